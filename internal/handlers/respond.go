package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"apr-manager/internal/apperr"
)

// fail translates the error taxonomy into an HTTP status and a JSON
// body. Internal errors are logged but never leak their cause.
func fail(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case apperr.KindBadRequest:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperr.KindAnalysis:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
