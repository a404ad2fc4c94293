package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/Rrens/chatwidget/internal/llm/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"You can encrypt text here."}}],"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	p := openai.NewProvider("sk-test", "", srv.URL)
	resp, err := p.Generate(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, "You can encrypt text here.", resp.Text)
	assert.Equal(t, 42, resp.TokensUsed)
}

func TestProvider_GenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, `{}`, domain.ErrTransportFailure},
		{"no choices", http.StatusOK, `{"choices":[]}`, domain.ErrMalformedResponse},
		{"invalid json", http.StatusOK, `not json`, domain.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := openai.NewProvider("sk-test", "gpt-4o", srv.URL)
			_, err := p.Generate(context.Background(), "prompt", "")
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
