package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/dodf/models"
)

// asScrapeError returns the first ScrapeError in err's chain, or wraps err
// as INTERNAL_ERROR.
func asScrapeError(err error) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
}

// errorBody is the envelope for failures outside a typed response.
type errorBody struct {
	Success bool                `json:"success"`
	Error   *models.ErrorDetail `json:"error"`
}

// abortWithError writes a structured JSON error and stops the chain.
func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{
		Error: &models.ErrorDetail{Code: code, Message: message},
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeElementNotFound:
		return http.StatusBadGateway // 502
	case models.ErrCodeBrowserLaunch:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
