package main

import (
	"alcyxob/workout-ledger/internal/api"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	log.Println("INFO: Starting workout ledger server...")
	a, err := newApp(opts.cfg, opts.fs)
	if err != nil {
		return err
	}
	defer a.Close()

	a.load(ctx)
	log.Printf("INFO: Ledger loaded with %d workouts (%s).", len(a.ledger.Workouts()), a.ledger.Status())

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger())

	userID, _ := a.identity.UserID()
	api.SetupRoutes(router, a.ledger, a.exports, api.RouteOptions{
		JWTSecret:   opts.cfg.JWT.Secret,
		SessionUser: userID,
		Clock:       a.clock,
	})

	// No write timeout: /live connections stay open.
	server := &http.Server{
		Addr:              opts.cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("INFO: Server starting on %s", opts.cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("INFO: Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Println("INFO: Server exiting.")
	return err
}
