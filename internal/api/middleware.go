package api

import (
	"alcyxob/workout-ledger/internal/service"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Constants for context keys
const (
	ContextUserIDKey = "userID"
)

// AuthMiddleware requires a session token signed with jwtSecret, either as
// "Authorization: Bearer <token>" or as a ?token= query parameter (browsers
// can't set headers on websocket upgrades). When sessionUser is set the token
// must belong to that user.
func AuthMiddleware(jwtSecret, sessionUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, err.Error())
			return
		}

		userID, err := service.ParseSessionToken(tokenString, jwtSecret)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "Invalid token: "+err.Error())
			return
		}
		if sessionUser != "" && userID != sessionUser {
			abortWithError(c, http.StatusForbidden, "Token does not belong to this ledger's user")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", errors.New("Authorization header is missing")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("Authorization header format must be Bearer {token}")
	}
	return parts[1], nil
}

// RequestLogger logs one line per request in the server's log format.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		level := "INFO"
		if status >= http.StatusInternalServerError {
			level = "ERROR"
		}
		log.Printf("%s: %s %s -> %d (%s)", level, c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Microsecond))
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}
