package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reliefhub-api/models"
)

func TestValidators(t *testing.T) {
	assert.True(t, IsValidEmail("donor@example.com"))
	assert.False(t, IsValidEmail("donor@example"))

	assert.True(t, IsValidPassword("Relief#1"))
	assert.True(t, IsValidPassword("relief123!"))
	assert.False(t, IsValidPassword("relief"))
	assert.False(t, IsValidPassword("Ab1"))

	assert.True(t, IsValidPIN("0042"))
	assert.False(t, IsValidPIN("42"))
	assert.False(t, IsValidPIN("12345"))
	assert.False(t, IsValidPIN("12a4"))

	assert.True(t, IsValidLatitude(-90))
	assert.False(t, IsValidLatitude(90.1))
	assert.True(t, IsValidLongitude(180))
	assert.False(t, IsValidLongitude(-180.5))
}

type bindingSample struct {
	Category string `json:"category" validate:"required,category"`
	EditPIN  string `json:"edit_pin" validate:"omitempty,editpin"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

func TestCustomValidationsAndFieldErrors(t *testing.T) {
	v := validator.New()
	RegisterCustomValidations(v)

	require.NoError(t, v.Struct(bindingSample{Category: "medical", EditPIN: "1234", Quantity: 1}))
	require.NoError(t, v.Struct(bindingSample{Category: "clothes", Quantity: 1}))

	err := v.Struct(bindingSample{Category: "furniture", EditPIN: "12", Quantity: 0})
	require.Error(t, err)

	fields := BindingFieldErrors(err)
	assert.ElementsMatch(t, []models.FieldError{
		{Field: "category", Message: "unknown category"},
		{Field: "edit_pin", Message: "must be 4 digits"},
		{Field: "quantity", Message: "must be greater than 0"},
	}, fields)

	fields = BindingFieldErrors(errors.New("unexpected EOF"))
	assert.Equal(t, []models.FieldError{{Field: "body", Message: "unexpected EOF"}}, fields)
}

func serviceErrorResponse(t *testing.T, err error) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/posts/p1", nil)
	SendServiceError(c, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestSendServiceErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", errors.Wrap(models.ErrNotFound, "get post"), http.StatusNotFound},
		{"conflict", models.NewConflictError("post already fulfilled"), http.StatusConflict},
		{"validation", models.NewValidationError("quantity", "must be positive"), http.StatusBadRequest},
		{"unauthorized", errors.Wrap(models.ErrUnauthorized, "invalid email or password"), http.StatusUnauthorized},
		{"forbidden", errors.Wrap(models.ErrForbidden, "invalid edit PIN"), http.StatusForbidden},
		{"locked", &models.LockedError{UnlockAt: time.Now().Add(10 * time.Minute)}, http.StatusLocked},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := serviceErrorResponse(t, tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestSendServiceErrorBodies(t *testing.T) {
	_, body := serviceErrorResponse(t, errors.Wrap(models.ErrForbidden, "invalid edit PIN"))
	assert.Equal(t, "invalid edit PIN", body["message"])

	_, body = serviceErrorResponse(t, models.NewConflictError("post already fulfilled"))
	assert.Equal(t, "post already fulfilled", body["message"])

	_, body = serviceErrorResponse(t, models.NewValidationError("quantity", "must be positive"))
	fields := body["validation_errors"].([]interface{})
	require.Len(t, fields, 1)
	assert.Equal(t, "quantity", fields[0].(map[string]interface{})["field"])

	w, body := serviceErrorResponse(t, &models.LockedError{UnlockAt: time.Now().Add(10 * time.Minute)})
	assert.NotEmpty(t, body["unlock_at"])
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	_, body = serviceErrorResponse(t, errors.New("dial tcp 10.0.0.5:3306: refused"))
	assert.Equal(t, "An unexpected error occurred", body["message"])
}

func TestSendPaginated(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/donors/me/donations", nil)
	SendPaginated(c, []string{"a", "b"}, 2, 2, 5)

	var body PaginatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.TotalPages)
	assert.Equal(t, int64(5), body.Total)
}
