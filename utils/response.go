package utils

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"reliefhub-api/models"
)

type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Code    int                 `json:"code,omitempty"`
	Fields  []models.FieldError `json:"validation_errors,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
}

func SendError(c *gin.Context, status int, err string) {
	c.JSON(status, ErrorResponse{
		Error: err,
		Code:  status,
	})
}

func SendValidationError(c *gin.Context, fields []models.FieldError) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "Validation failed",
		Message: fieldsMessage(fields),
		Code:    http.StatusBadRequest,
		Fields:  fields,
	})
}

// SendBindError reports a request body or query that could not be bound.
func SendBindError(c *gin.Context, err error) {
	SendValidationError(c, BindingFieldErrors(err))
}

// SendServiceError maps a domain error onto its HTTP status.
func SendServiceError(c *gin.Context, err error) {
	var validation *models.ValidationError
	if errors.As(err, &validation) {
		SendValidationError(c, validation.Errors)
		return
	}

	var locked *models.LockedError
	if errors.As(err, &locked) {
		retry := int(time.Until(locked.UnlockAt).Seconds())
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		c.JSON(http.StatusLocked, gin.H{
			"error":     "Account locked",
			"message":   locked.Error(),
			"code":      http.StatusLocked,
			"unlock_at": locked.UnlockAt.UTC(),
		})
		return
	}

	status, title := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(status, ErrorResponse{
			Error:   title,
			Message: "An unexpected error occurred",
			Code:    status,
		})
		return
	}

	c.JSON(status, ErrorResponse{
		Error:   title,
		Message: publicMessage(err),
		Code:    status,
	})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, "Validation failed"
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, models.ErrLocked):
		return http.StatusLocked, "Account locked"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// publicMessage strips the trailing sentinel text pkg/errors leaves on
// wrapped domain errors.
func publicMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{models.ErrNotFound, models.ErrConflict, models.ErrUnauthorized, models.ErrForbidden} {
		msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	}
	return msg
}

func fieldsMessage(fields []models.FieldError) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return strings.Join(parts, "; ")
}

func SendSuccess(c *gin.Context, message string, data interface{}) {
	response := SuccessResponse{
		Message: message,
	}
	if data != nil {
		response.Data = data
	}
	c.JSON(http.StatusOK, response)
}

func SendCreated(c *gin.Context, message string, data interface{}) {
	response := SuccessResponse{
		Message: message,
		Data:    data,
	}
	c.JSON(http.StatusCreated, response)
}

func SendPaginated(c *gin.Context, data interface{}, page, limit int, total int64) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:       data,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	})
}
