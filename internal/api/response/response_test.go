package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{err: domain.ErrSessionNotFound, status: http.StatusNotFound},
		{err: domain.ErrEmptyMessage, status: http.StatusBadRequest},
		{err: domain.ErrUnknownQuickReply, status: http.StatusBadRequest},
		{err: fmt.Errorf("%w: bad uuid", domain.ErrInvalidSessionID), status: http.StatusBadRequest},
		{err: domain.ErrGenerationInProgress, status: http.StatusConflict},
		{err: domain.ErrSessionClosed, status: http.StatusConflict},
		{err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			FromError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)

			var body Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":{"status":"ok"}}`, rec.Body.String())
}
