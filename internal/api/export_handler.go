package api

import (
	"alcyxob/workout-ledger/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ExportHandler uploads ledger exports to object storage.
type ExportHandler struct {
	exportService service.ExportService
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportService service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// CreateExport godoc
// @Summary Export the ledger
// @Description Uploads the ledger as JSON and returns a presigned download URL.
// @Tags Exports
// @Produce json
// @Success 201 {object} service.ExportResult
// @Failure 409 {object} gin.H "No signed-in user"
// @Failure 503 {object} gin.H "Export storage not configured"
// @Router /exports [post]
func (h *ExportHandler) CreateExport(c *gin.Context) {
	if h.exportService == nil {
		abortWithError(c, http.StatusServiceUnavailable, service.ErrExportUnavailable.Error())
		return
	}
	result, err := h.exportService.ExportLedger(c.Request.Context())
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
