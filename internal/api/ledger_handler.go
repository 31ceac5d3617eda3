package api

import (
	"alcyxob/workout-ledger/internal/clock"
	"alcyxob/workout-ledger/internal/domain"
	"alcyxob/workout-ledger/internal/service"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerHandler serves the workout ledger of the current session.
type LedgerHandler struct {
	ledger service.LedgerService
	clock  clock.Clock
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger service.LedgerService, clk clock.Clock) *LedgerHandler {
	if clk == nil {
		clk = clock.System()
	}
	return &LedgerHandler{ledger: ledger, clock: clk}
}

// --- DTOs for API (Data Transfer Objects) ---

// WorkoutRequest is the JSON body for creating or replacing a workout.
type WorkoutRequest struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name" binding:"required"`
	Date       *time.Time             `json:"date"` // Defaults to now
	Exercises  []domain.ExerciseEntry `json:"exercises"`
	IsFavorite bool                   `json:"isFavorite"`
}

// LedgerResponse is the full ledger plus the current sync status.
type LedgerResponse struct {
	Workouts []domain.WorkoutRecord `json:"workouts"`
	Status   domain.SyncStatus      `json:"status"`
}

// SyncResponse reports a whole-ledger push.
type SyncResponse struct {
	Written int               `json:"written"`
	Skipped int               `json:"skipped"`
	Status  domain.SyncStatus `json:"status"`
}

// toRecord builds the domain record; id is used when the body has none.
func (r WorkoutRequest) toRecord(id string, now time.Time) domain.WorkoutRecord {
	if r.ID != "" {
		id = r.ID
	}
	if id == "" {
		id = uuid.NewString()
	}
	date := now
	if r.Date != nil {
		date = *r.Date
	}
	exercises := r.Exercises
	if exercises == nil {
		exercises = []domain.ExerciseEntry{}
	}
	return domain.WorkoutRecord{
		ID:         id,
		Name:       r.Name,
		Date:       date,
		Exercises:  exercises,
		IsFavorite: r.IsFavorite,
	}
}

func (h *LedgerHandler) ledgerResponse() LedgerResponse {
	return LedgerResponse{Workouts: h.ledger.Workouts(), Status: h.ledger.Status()}
}

// --- Handler Methods ---

// ListWorkouts godoc
// @Summary List workouts
// @Description Returns the ledger newest first as the session currently sees it.
// @Tags Workouts
// @Produce json
// @Success 200 {object} LedgerResponse
// @Router /workouts [get]
func (h *LedgerHandler) ListWorkouts(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledgerResponse())
}

// GetWorkout godoc
// @Summary Get one workout
// @Tags Workouts
// @Produce json
// @Param id path string true "Workout ID"
// @Success 200 {object} domain.WorkoutRecord
// @Failure 404 {object} gin.H "Workout not found"
// @Router /workouts/{id} [get]
func (h *LedgerHandler) GetWorkout(c *gin.Context) {
	workout, ok := h.ledger.Workout(c.Param("id"))
	if !ok {
		abortWithError(c, http.StatusNotFound, "Workout not found.")
		return
	}
	c.JSON(http.StatusOK, workout)
}

// CreateWorkout godoc
// @Summary Save a new workout
// @Description Saves locally first, then pushes to the remote ledger in the background.
// @Tags Workouts
// @Accept json
// @Produce json
// @Param workout body WorkoutRequest true "Workout"
// @Success 201 {object} domain.WorkoutRecord
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 500 {object} gin.H "Local cache write failed"
// @Router /workouts [post]
func (h *LedgerHandler) CreateWorkout(c *gin.Context) {
	var req WorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	record := req.toRecord("", h.clock.Now())
	if !h.save(c, record) {
		return
	}
	c.JSON(http.StatusCreated, record)
}

// UpdateWorkout godoc
// @Summary Replace a workout
// @Tags Workouts
// @Accept json
// @Produce json
// @Param id path string true "Workout ID"
// @Param workout body WorkoutRequest true "Workout"
// @Success 200 {object} domain.WorkoutRecord
// @Failure 400 {object} gin.H "Invalid input"
// @Router /workouts/{id} [put]
func (h *LedgerHandler) UpdateWorkout(c *gin.Context) {
	var req WorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	req.ID = ""
	record := req.toRecord(c.Param("id"), h.clock.Now())
	if !h.save(c, record) {
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *LedgerHandler) save(c *gin.Context, record domain.WorkoutRecord) bool {
	if err := h.ledger.Save(record); err != nil {
		writeLedgerError(c, err)
		return false
	}
	return true
}

// DeleteWorkout godoc
// @Summary Delete a workout
// @Description Deleting an unknown id succeeds without changes.
// @Tags Workouts
// @Param id path string true "Workout ID"
// @Success 204
// @Router /workouts/{id} [delete]
func (h *LedgerHandler) DeleteWorkout(c *gin.Context) {
	if err := h.ledger.Delete(domain.WorkoutRecord{ID: c.Param("id")}); err != nil {
		writeLedgerError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleFavorite godoc
// @Summary Flip the favorite flag of a workout
// @Tags Workouts
// @Produce json
// @Param id path string true "Workout ID"
// @Success 200 {object} domain.WorkoutRecord
// @Failure 404 {object} gin.H "Workout not found"
// @Router /workouts/{id}/favorite [post]
func (h *LedgerHandler) ToggleFavorite(c *gin.Context) {
	current, ok := h.ledger.Workout(c.Param("id"))
	if !ok {
		abortWithError(c, http.StatusNotFound, "Workout not found.")
		return
	}
	updated, err := h.ledger.ToggleFavorite(current)
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// SyncAll godoc
// @Summary Push the whole ledger to the remote
// @Tags Sync
// @Produce json
// @Success 200 {object} SyncResponse
// @Failure 409 {object} gin.H "No signed-in user"
// @Failure 503 {object} gin.H "Remote ledger unreachable"
// @Router /sync [post]
func (h *LedgerHandler) SyncAll(c *gin.Context) {
	total := len(h.ledger.Workouts())
	written, err := h.ledger.SyncAllWorkouts(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNotAuthenticated) || errors.Is(err, service.ErrServiceClosed) {
			writeLedgerError(c, err)
			return
		}
		log.Printf("WARN: Sync request failed: %v", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "status": h.ledger.Status()})
		return
	}
	c.JSON(http.StatusOK, SyncResponse{Written: written, Skipped: max(total-written, 0), Status: h.ledger.Status()})
}

// Reload godoc
// @Summary Refetch the ledger from the remote, falling back to the local cache
// @Tags Sync
// @Produce json
// @Success 200 {object} LedgerResponse
// @Router /reload [post]
func (h *LedgerHandler) Reload(c *gin.Context) {
	h.ledger.Load(c.Request.Context())
	c.JSON(http.StatusOK, h.ledgerResponse())
}

// GetStatus godoc
// @Summary Current sync status
// @Tags Sync
// @Produce json
// @Success 200 {object} gin.H
// @Router /status [get]
func (h *LedgerHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": h.ledger.Status()})
}

// GetStats godoc
// @Summary Workout statistics
// @Tags Stats
// @Produce json
// @Success 200 {object} domain.WorkoutStats
// @Router /stats [get]
func (h *LedgerHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.Stats())
}

// writeLedgerError maps service errors onto HTTP statuses.
func writeLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWorkoutIDRequired):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNoDraft):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotAuthenticated):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrServiceClosed), errors.Is(err, service.ErrExportUnavailable):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		abortWithError(c, http.StatusInternalServerError, "Operation failed: "+err.Error())
	}
}
