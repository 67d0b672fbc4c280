package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatusOf(ErrOrderNotFound))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatusOf(ErrUnauthorized))
	assert.Equal(t, http.StatusForbidden, HTTPStatusOf(ErrForbidden))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusOf(New(ErrCodeValidation, "плохой ввод")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusOf(errors.New("что-то сломалось")))
}

func TestStateMachineErrorsMapToConflict(t *testing.T) {
	codes := []ErrorCode{
		ErrCodeInvalidTransition,
		ErrCodeInvalidOrderState,
		ErrCodeInvalidProposalState,
		ErrCodeDuplicateProposal,
		ErrCodeConflict,
	}
	for _, code := range codes {
		err := New(code, "конфликт")
		assert.Equal(t, http.StatusConflict, err.HTTPStatus, "код %s", code)
		assert.True(t, IsConflict(err))
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("нет соединения с базой")
	err := Wrap(cause, ErrCodeInternal, "не удалось сохранить заказ")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "не удалось сохранить заказ")
	assert.Contains(t, err.Error(), "нет соединения с базой")
}

func TestWrappedAppErrorDetectedThroughFmt(t *testing.T) {
	err := fmt.Errorf("слой выше: %w", ErrDuplicateProposal)

	assert.True(t, IsConflict(err))
	assert.Equal(t, http.StatusConflict, HTTPStatusOf(err))
}

func TestInvalidTransitionMessage(t *testing.T) {
	err := InvalidTransition("completed", "in_progress")

	assert.Equal(t, ErrCodeInvalidTransition, err.Code)
	assert.Contains(t, err.Error(), "completed")
	assert.Contains(t, err.Error(), "in_progress")
}
