package handler

import (
	"errors"
	"net/http"

	"github.com/collabdoc/backend/internal/repository"
	"github.com/collabdoc/backend/internal/service/statemachine"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// respondError 将核心错误分类映射为 HTTP 状态码
func respondError(c *gin.Context, err error) {
	var transitionErr *statemachine.InvalidContributeStateTransitionError
	var validationErrs validation.Errors
	var validationErr validation.Error

	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrInvalidState), errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &validationErrs), errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
