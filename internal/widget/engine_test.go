package widget

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestEngine(gen Generator, opts Options) *ResponseEngine {
	return NewResponseEngine(gen, DefaultScript(), opts, zerolog.Nop())
}

func TestResponseEngine_Respond(t *testing.T) {
	script := DefaultScript()

	tests := []struct {
		name    string
		reply   string
		want    string
		outcome Outcome
	}{
		{
			name:    "generated reply is trimmed",
			reply:   "  You can encrypt text from the Encrypt tab.\n",
			want:    "You can encrypt text from the Encrypt tab.",
			outcome: OutcomeGenerated,
		},
		{
			name:    "short reply falls back",
			reply:   "Yes.",
			want:    script.FallbackReply,
			outcome: OutcomeFallback,
		},
		{
			name:    "whitespace padding does not count",
			reply:   "   ok    ",
			want:    script.FallbackReply,
			outcome: OutcomeFallback,
		},
		{
			name:    "low confidence marker falls back",
			reply:   "Sorry, I don't understand what you mean by that.",
			want:    script.FallbackReply,
			outcome: OutcomeFallback,
		},
		{
			name:    "exactly ten characters is accepted",
			reply:   "0123456789",
			want:    "0123456789",
			outcome: OutcomeGenerated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(MockGenerator)
			gen.On("Generate", mock.Anything, mock.Anything).Return(tt.reply, nil).Once()

			reply := newTestEngine(gen, testOptions()).Respond(context.Background(), "how do I encrypt?", nil)

			assert.Equal(t, tt.want, reply.Text)
			assert.Equal(t, tt.outcome, reply.Outcome)
			assert.Equal(t, 1, reply.Attempts)
			assert.NoError(t, reply.Err)
			assert.Equal(t, tt.outcome == OutcomeFallback, reply.LowConfidence())
			gen.AssertExpectations(t)
		})
	}
}

func TestResponseEngine_RetriesThenSucceeds(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("", fmt.Errorf("%w: connection reset", domain.ErrTransportFailure)).Once()
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("", fmt.Errorf("%w: no candidates", domain.ErrMalformedResponse)).Once()
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("Upload the file and enter the key.", nil).Once()

	reply := newTestEngine(gen, testOptions()).Respond(context.Background(), "decrypt file", nil)

	assert.Equal(t, OutcomeGenerated, reply.Outcome)
	assert.Equal(t, "Upload the file and enter the key.", reply.Text)
	assert.Equal(t, 3, reply.Attempts)
	gen.AssertNumberOfCalls(t, "Generate", 3)
}

func TestResponseEngine_ExhaustedRetries(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("", fmt.Errorf("%w: status 503", domain.ErrTransportFailure))

	reply := newTestEngine(gen, testOptions()).Respond(context.Background(), "hello", nil)

	assert.Equal(t, OutcomeFailed, reply.Outcome)
	assert.Equal(t, DefaultScript().ErrorReply, reply.Text)
	assert.Equal(t, 3, reply.Attempts)
	assert.ErrorIs(t, reply.Err, domain.ErrTransportFailure)
	gen.AssertNumberOfCalls(t, "Generate", 3)
}

func TestResponseEngine_NoRetries(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("", fmt.Errorf("%w: empty body", domain.ErrMalformedResponse))

	opts := testOptions()
	opts.MaxRetries = 0

	reply := newTestEngine(gen, opts).Respond(context.Background(), "hello", nil)

	assert.Equal(t, OutcomeFailed, reply.Outcome)
	gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestResponseEngine_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return("", fmt.Errorf("%w: timeout", domain.ErrTransportFailure))

	opts := testOptions()
	opts.RetryBackoff = time.Hour

	done := make(chan Reply, 1)
	go func() { done <- newTestEngine(gen, opts).Respond(ctx, "hello", nil) }()

	select {
	case reply := <-done:
		assert.Equal(t, OutcomeCancelled, reply.Outcome)
		assert.Empty(t, reply.Text)
		gen.AssertNumberOfCalls(t, "Generate", 1)
	case <-time.After(2 * time.Second):
		t.Fatal("Respond did not return after cancellation")
	}
}

func TestResponseEngine_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := new(MockGenerator)
	reply := newTestEngine(gen, testOptions()).Respond(ctx, "hello", nil)

	assert.Equal(t, OutcomeCancelled, reply.Outcome)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestResponseEngine_Prompt(t *testing.T) {
	engine := newTestEngine(new(MockGenerator), testOptions())

	window := []domain.Message{
		{Role: domain.RoleUser, Text: "hi"},
		{Role: domain.RoleBot, Text: "Hello, how can I help?"},
	}
	prompt := engine.Prompt("is it <b>secure</b>?", window)

	assert.Contains(t, prompt, `Query: "hello" or "hi" or "hey"`)
	assert.Contains(t, prompt, "Default (unrecognized queries)")
	assert.Contains(t, prompt, "Conversation history:\nPatient: hi\nAssistant: Hello, how can I help?")
	assert.Contains(t, prompt, "Current patient query: is it bsecure/b?")
	assert.NotContains(t, prompt, "<b>")
}
