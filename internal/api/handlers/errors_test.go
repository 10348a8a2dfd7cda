package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"recycle-pickup-api-server/internal/lifecycle"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind lifecycle.Kind
		want int
	}{
		{lifecycle.ValidationFailure, http.StatusBadRequest},
		{lifecycle.Unauthorized, http.StatusForbidden},
		{lifecycle.NotFound, http.StatusNotFound},
		{lifecycle.Conflict, http.StatusConflict},
		{lifecycle.InvalidState, http.StatusConflict},
		{lifecycle.BudgetExhausted, http.StatusConflict},
		{lifecycle.InvalidTransition, http.StatusUnprocessableEntity},
		{lifecycle.PersistenceTimeout, http.StatusServiceUnavailable},
		{lifecycle.KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.kind))
		})
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, lifecycle.Errorf(lifecycle.InvalidTransition, "pickup.start", "cannot start a pickup that is scheduled"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid_transition", body["kind"])
	assert.Equal(t, "pickup.start: cannot start a pickup that is scheduled", body["error"])

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	respondError(c, errors.New("dial tcp: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestCustomValidators(t *testing.T) {
	RegisterValidators()
	RegisterValidators()

	ok := MaterialPayload{Type: "plastic"}
	assert.NoError(t, binding.Validator.ValidateStruct(ok))
	assert.Error(t, binding.Validator.ValidateStruct(MaterialPayload{Type: "wood"}))

	type slot struct {
		TimeSlot string `binding:"timeslot"`
	}
	assert.NoError(t, binding.Validator.ValidateStruct(slot{TimeSlot: "13:00-15:00"}))
	assert.Error(t, binding.Validator.ValidateStruct(slot{TimeSlot: "12:00-13:00"}))
}
