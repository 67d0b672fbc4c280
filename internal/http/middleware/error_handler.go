package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/plevandm/repairhub-backend/internal/logger"
	"github.com/plevandm/repairhub-backend/internal/pkg/apperror"
)

// ErrorHandler переводит ошибки доменного слоя в HTTP ответы.
// Типизированные ошибки apperror несут свой статус и сообщение,
// всё остальное маскируется как внутренняя ошибка.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := apperror.HTTPStatusOf(err)

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			if logger.Log != nil && status >= http.StatusInternalServerError {
				logRequestError(c, err)
			}
			c.JSON(status, gin.H{
				"error": appErr.Message,
				"code":  appErr.Code,
			})
			return
		}

		if logger.Log != nil {
			logRequestError(c, err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка сервера"})
	}
}

func logRequestError(c *gin.Context, err error) {
	logger.Log.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	}).Error("request error")
}
