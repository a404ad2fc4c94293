package widget

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/Rrens/chatwidget/internal/llm"
	"github.com/Rrens/chatwidget/internal/metrics"
	"github.com/rs/zerolog"
)

// Generator produces a completion for a single prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type Outcome string

const (
	OutcomeGenerated Outcome = "generated"
	OutcomeFallback  Outcome = "fallback"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Reply is the resolved answer to one user turn
type Reply struct {
	Text     string
	Outcome  Outcome
	Attempts int
	// Err is the last generation error, nil for generated and fallback replies
	Err error
}

// LowConfidence reports whether the generated text was replaced by the fallback reply
func (r Reply) LowConfidence() bool {
	return r.Outcome == OutcomeFallback
}

// ResponseEngine turns a user query plus recent context into a bot reply
type ResponseEngine struct {
	generator      Generator
	script         Script
	maxRetries     int
	backoff        time.Duration
	minReplyLength int
	log            zerolog.Logger
}

func NewResponseEngine(generator Generator, script Script, opts Options, logger zerolog.Logger) *ResponseEngine {
	return &ResponseEngine{
		generator:      generator,
		script:         script,
		maxRetries:     opts.MaxRetries,
		backoff:        opts.RetryBackoff,
		minReplyLength: opts.MinReplyLength,
		log:            logger,
	}
}

// Prompt builds the generation prompt for a query and its context window
func (e *ResponseEngine) Prompt(query string, window []domain.Message) string {
	return llm.BuildPrompt(llm.PromptRequest{
		Examples:        e.script.Examples,
		DefaultResponse: e.script.DefaultResponse,
		History:         window,
		Query:           llm.Sanitize(query),
		UserLabel:       e.script.UserLabel,
		BotLabel:        e.script.BotLabel,
	})
}

// Respond calls the generator, retrying failed attempts after a fixed backoff.
// It never returns an error: exhausted retries resolve to the scripted error reply.
func (e *ResponseEngine) Respond(ctx context.Context, query string, window []domain.Message) Reply {
	prompt := e.Prompt(query, window)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Reply{Outcome: OutcomeCancelled, Attempts: attempt - 1, Err: err}
		}

		text, err := e.generator.Generate(ctx, prompt)
		if err == nil {
			metrics.GenerationAttempts.WithLabelValues("ok").Inc()
			return e.accept(text, attempt)
		}

		if ctx.Err() != nil {
			metrics.GenerationAttempts.WithLabelValues("cancelled").Inc()
			return Reply{Outcome: OutcomeCancelled, Attempts: attempt, Err: ctx.Err()}
		}

		class := classify(err)
		metrics.GenerationAttempts.WithLabelValues(class).Inc()

		if attempt > e.maxRetries {
			e.log.Error().Err(err).Str("failure", class).Int("attempts", attempt).Msg("Generation failed, giving up")
			return Reply{Text: e.script.ErrorReply, Outcome: OutcomeFailed, Attempts: attempt, Err: err}
		}

		e.log.Warn().Err(err).Str("failure", class).Int("attempt", attempt).Dur("backoff", e.backoff).Msg("Generation failed, retrying")

		if !sleep(ctx, e.backoff) {
			return Reply{Outcome: OutcomeCancelled, Attempts: attempt, Err: ctx.Err()}
		}
	}
}

func (e *ResponseEngine) accept(text string, attempts int) Reply {
	trimmed := strings.TrimSpace(text)

	lowConfidence := utf8.RuneCountInString(trimmed) < e.minReplyLength ||
		(e.script.LowConfidenceMarker != "" && strings.Contains(trimmed, e.script.LowConfidenceMarker))
	if lowConfidence {
		e.log.Debug().Str("reply", trimmed).Msg("Low confidence reply replaced with fallback")
		return Reply{Text: e.script.FallbackReply, Outcome: OutcomeFallback, Attempts: attempts}
	}

	return Reply{Text: trimmed, Outcome: OutcomeGenerated, Attempts: attempts}
}

func classify(err error) string {
	if errors.Is(err, domain.ErrMalformedResponse) {
		return "malformed_response"
	}
	return "transport_failure"
}

// sleep waits for d or until ctx is done, reporting whether the full delay elapsed
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
