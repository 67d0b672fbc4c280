package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UUIDValidator отклоняет запрос, если path-параметр не является
// валидным UUID. Хэндлеры за ним парсят параметр без повторной проверки.
func UUIDValidator(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := uuid.Parse(c.Param(param)); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "параметр " + param + " должен быть валидным UUID",
			})
			return
		}
		c.Next()
	}
}
