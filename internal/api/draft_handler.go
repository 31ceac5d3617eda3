package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetDraft godoc
// @Summary The in-progress workout
// @Tags Draft
// @Produce json
// @Success 200 {object} domain.WorkoutRecord
// @Failure 404 {object} gin.H "No draft"
// @Router /draft [get]
func (h *LedgerHandler) GetDraft(c *gin.Context) {
	draft, ok := h.ledger.Draft()
	if !ok {
		abortWithError(c, http.StatusNotFound, "No workout in progress.")
		return
	}
	c.JSON(http.StatusOK, draft)
}

// SaveDraft godoc
// @Summary Replace the in-progress workout
// @Tags Draft
// @Accept json
// @Produce json
// @Param draft body WorkoutRequest true "Draft"
// @Success 200 {object} domain.WorkoutRecord
// @Router /draft [put]
func (h *LedgerHandler) SaveDraft(c *gin.Context) {
	var req WorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	id := ""
	if current, ok := h.ledger.Draft(); ok {
		id = current.ID
	}
	draft, err := h.ledger.SaveDraft(req.toRecord(id, h.clock.Now()))
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// DiscardDraft godoc
// @Summary Throw away the in-progress workout
// @Tags Draft
// @Success 204
// @Router /draft [delete]
func (h *LedgerHandler) DiscardDraft(c *gin.Context) {
	if err := h.ledger.DiscardDraft(); err != nil {
		writeLedgerError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// FinishDraft godoc
// @Summary Save the in-progress workout into the ledger
// @Tags Draft
// @Produce json
// @Success 201 {object} domain.WorkoutRecord
// @Failure 404 {object} gin.H "No draft"
// @Router /draft/finish [post]
func (h *LedgerHandler) FinishDraft(c *gin.Context) {
	workout, err := h.ledger.FinishDraft()
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, workout)
}
