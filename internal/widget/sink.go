package widget

import (
	"context"

	"github.com/Rrens/chatwidget/internal/domain"
)

// MessageSink renders session output. Implementations must not block for long:
// every call is made while the session lock is held.
type MessageSink interface {
	RenderMessage(msg domain.Message, isWelcome bool)
	RenderQuickReplies(replies []domain.QuickReply)
	RemoveQuickReplies()
	SetTypingIndicator(visible bool)
	ShowWidget()
	HideWidget()
	ClearMessages()
}

// Confirmer asks the user a yes/no question
type Confirmer interface {
	Confirm(ctx context.Context, question string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, question string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, question string) bool {
	return f(ctx, question)
}

// AlwaysConfirm accepts every question
var AlwaysConfirm = ConfirmFunc(func(context.Context, string) bool { return true })

type nopSink struct{}

func (nopSink) RenderMessage(domain.Message, bool)     {}
func (nopSink) RenderQuickReplies([]domain.QuickReply) {}
func (nopSink) RemoveQuickReplies()                    {}
func (nopSink) SetTypingIndicator(bool)                {}
func (nopSink) ShowWidget()                            {}
func (nopSink) HideWidget()                            {}
func (nopSink) ClearMessages()                         {}
