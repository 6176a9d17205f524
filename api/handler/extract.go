package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/dodf/extractor"
	"github.com/use-agent/dodf/models"
)

// Extract returns a handler for POST /api/v1/extract. It runs the field
// extractor over caller-supplied text without touching the site.
func Extract(ex *extractor.Extractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ExtractResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		rec := ex.Extract(req.Text)
		c.JSON(http.StatusOK, models.ExtractResponse{
			Success:    true,
			Applicable: rec != nil,
			Record:     rec,
		})
	}
}
