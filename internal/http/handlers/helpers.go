package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/plevandm/repairhub-backend/internal/http/middleware"
	"github.com/plevandm/repairhub-backend/internal/models"
)

// currentPrincipal извлекает принципала из контекста запроса.
func currentPrincipal(c *gin.Context) (models.Principal, bool) {
	raw, exists := c.Get(middleware.ContextPrincipalKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return models.Principal{}, false
	}

	principal, ok := raw.(models.Principal)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return models.Principal{}, false
	}

	return principal, true
}

// parseUUIDParam разбирает UUID из параметра пути.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("параметр %s должен быть валидным UUID", name)})
		return uuid.Nil, false
	}
	return parsed, true
}

// paginationParams читает limit и offset из query-строки.
func paginationParams(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
