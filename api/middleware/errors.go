package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/use-agent/dodf/models"
)

func errorBody(code, message string) gin.H {
	return gin.H{
		"success": false,
		"error":   models.ErrorDetail{Code: code, Message: message},
	}
}
