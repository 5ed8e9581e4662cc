package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"brasul/fretes/internal/freight"
	"brasul/fretes/internal/services"
	"brasul/fretes/internal/store"
)

// respondError maps service errors to status codes. Unknown errors answer
// 500 with fallback.
func respondError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)

	var verr *freight.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Não encontrado"})
	case errors.Is(err, services.ErrAgentInactive):
		c.JSON(http.StatusConflict, gin.H{"error": "Agenciador inativo"})
	case errors.Is(err, services.ErrCodeAllocation):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Não foi possível gerar o código de agenciador, tente novamente"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
