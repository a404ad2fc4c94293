// Package chatapi is a HistoryStore backed by the chat history REST API.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Rrens/chatwidget/internal/domain"
)

// Store talks to the chat history API:
//
//	POST   {base}/chat              append one message
//	GET    {base}/chat/{sessionId}  list messages, oldest first
//	DELETE {base}/chat/{sessionId}  drop the whole session
type Store struct {
	baseURL    string
	httpClient *http.Client
}

// NewStore creates a new chat history API client
func NewStore(baseURL string, timeout time.Duration) *Store {
	return &Store{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// record is the API's wire format
type record struct {
	SessionID string             `json:"sessionId,omitempty"`
	Role      domain.MessageRole `json:"role"`
	Text      string             `json:"text"`
	Timestamp time.Time          `json:"timestamp"`
}

// Append stores one message
func (s *Store) Append(ctx context.Context, id domain.SessionID, msg domain.Message) error {
	body, err := json.Marshal(record{
		SessionID: id.String(),
		Role:      msg.Role,
		Text:      msg.Text,
		Timestamp: msg.Timestamp.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// List returns the session's messages in chronological order
func (s *Store) List(ctx context.Context, id domain.SessionID) ([]domain.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.sessionURL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []domain.Message{}, nil
	}

	var records []record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: failed to decode history: %v", domain.ErrPersistenceFailure, err)
	}

	msgs := make([]domain.Message, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, domain.Message{Role: r.Role, Text: r.Text, Timestamp: r.Timestamp})
	}
	return msgs, nil
}

// Delete removes every message of the session
func (s *Store) Delete(ctx context.Context, id domain.SessionID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.sessionURL(id), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Ping checks that the API answers at all
func (s *Store) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.baseURL+"/chat", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	resp.Body.Close()
	return nil
}

func (s *Store) sessionURL(id domain.SessionID) string {
	return s.baseURL + "/chat/" + url.PathEscape(id.String())
}

// do sends the request and maps transport errors and unexpected statuses.
// 404 is passed through so List can treat it as an empty history.
func (s *Store) do(req *http.Request) (*http.Response, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrPersistenceFailure, req.Method, req.URL.Path, err)
	}

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s %s returned %d: %s",
			domain.ErrPersistenceFailure, req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return resp, nil
}
