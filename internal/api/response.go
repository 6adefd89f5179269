package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/assist"
	"resumeBuilder/internal/errcode"
	"resumeBuilder/internal/gateway"
	"resumeBuilder/internal/listcache"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/store"
)

func Error(c *gin.Context, status int, msg string) {
	ErrorCode(c, status, errcode.SystemError, msg)
}

// ErrorCode 返回带业务错误码的错误响应。
func ErrorCode(c *gin.Context, status, code int, msg string) {
	c.JSON(status, gin.H{"error": msg, "code": code})
}

func BadRequest(c *gin.Context, msg string) {
	ErrorCode(c, http.StatusBadRequest, errcode.FieldValidation, msg)
}
func NotFound(c *gin.Context, msg string) {
	ErrorCode(c, http.StatusNotFound, errcode.ResourceMissing, msg)
}
func Conflict(c *gin.Context, msg string) { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string) { Error(c, http.StatusInternalServerError, msg) }

// respondError maps domain errors onto status codes and error codes.
func respondError(c *gin.Context, err error) {
	var (
		verrs   resume.ValidationErrors
		saveErr *store.SaveError
		loadErr *listcache.LoadError
	)
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"code":   errcode.FieldValidation,
			"fields": verrs,
		})
	case errors.Is(err, resume.ErrDuplicateSkill):
		ErrorCode(c, http.StatusConflict, errcode.DuplicateInput, err.Error())
	case errors.Is(err, resume.ErrInvalidSkill),
		errors.Is(err, resume.ErrUnsupportedFormat),
		errors.Is(err, assist.ErrUnknownKind):
		BadRequest(c, err.Error())
	case errors.Is(err, gateway.ErrNotFound):
		NotFound(c, "resume not found")
	case errors.Is(err, store.ErrNoDraft):
		NotFound(c, "no open draft")
	case errors.Is(err, store.ErrNoRemoteID), errors.Is(err, store.ErrAlreadyPersisted):
		Conflict(c, err.Error())
	case errors.As(err, &saveErr), errors.As(err, &loadErr),
		errors.Is(err, assist.ErrGeneratorUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     err.Error(),
			"code":      errcode.Retryable,
			"retryable": true,
		})
	default:
		Internal(c, err.Error())
	}
}
