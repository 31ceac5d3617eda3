package api

import (
	"alcyxob/workout-ledger/internal/clock"
	"alcyxob/workout-ledger/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteOptions configures SetupRoutes. With an empty JWTSecret the API is
// open, which is how the server runs on a single device.
type RouteOptions struct {
	JWTSecret   string
	SessionUser string
	Clock       clock.Clock
}

func SetupRoutes(
	router *gin.Engine,
	ledgerService service.LedgerService,
	exportService service.ExportService,
	opts RouteOptions,
) {
	ledgerHandler := NewLedgerHandler(ledgerService, opts.Clock)
	exportHandler := NewExportHandler(exportService)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	if opts.JWTSecret != "" {
		apiV1.Use(AuthMiddleware(opts.JWTSecret, opts.SessionUser))
	}
	{
		workoutGroup := apiV1.Group("/workouts")
		{
			workoutGroup.GET("", ledgerHandler.ListWorkouts)
			workoutGroup.POST("", ledgerHandler.CreateWorkout)
			workoutGroup.GET("/:id", ledgerHandler.GetWorkout)
			workoutGroup.PUT("/:id", ledgerHandler.UpdateWorkout)
			workoutGroup.DELETE("/:id", ledgerHandler.DeleteWorkout)
			workoutGroup.POST("/:id/favorite", ledgerHandler.ToggleFavorite)
		}

		draftGroup := apiV1.Group("/draft")
		{
			draftGroup.GET("", ledgerHandler.GetDraft)
			draftGroup.PUT("", ledgerHandler.SaveDraft)
			draftGroup.DELETE("", ledgerHandler.DiscardDraft)
			draftGroup.POST("/finish", ledgerHandler.FinishDraft)
		}

		apiV1.POST("/sync", ledgerHandler.SyncAll)
		apiV1.POST("/reload", ledgerHandler.Reload)
		apiV1.GET("/status", ledgerHandler.GetStatus)
		apiV1.GET("/stats", ledgerHandler.GetStats)
		apiV1.GET("/live", ledgerHandler.Live)
		apiV1.POST("/exports", exportHandler.CreateExport)
	}
}
