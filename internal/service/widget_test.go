package service

import (
	"context"
	"testing"
	"time"

	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/Rrens/chatwidget/internal/repository/memory"
	"github.com/Rrens/chatwidget/internal/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(store domain.HistoryStore, evictAfter time.Duration) *WidgetService {
	gen := widget.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "You can encrypt text from the Encrypt tab.", nil
	})
	opts := widget.DefaultOptions()
	opts.RetryBackoff = time.Millisecond
	return NewWidgetService(store, gen, widget.DefaultScript(), opts, evictAfter)
}

func TestWidgetService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewStore(), time.Hour)
	defer svc.Shutdown()

	w, err := svc.Create(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Count())

	got, err := svc.Get(w.ID)
	require.NoError(t, err)
	assert.Same(t, w, got)

	require.NoError(t, w.Session.Open(ctx))
	require.NoError(t, w.Session.Send(ctx, "how do I encrypt?"))
	w.Session.Wait()

	state := w.State()
	assert.True(t, state.Opened)
	assert.Len(t, state.Messages, 2)
	assert.Equal(t, w.Session.ID(), state.SessionID)
	assert.Positive(t, state.LastSeq)

	events := w.Events.Since(0)
	assert.Equal(t, EventShow, events[0].Type)
	assert.True(t, events[1].Welcome)

	require.NoError(t, svc.Remove(w.ID))
	_, err = svc.Get(w.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, svc.Remove(w.ID), domain.ErrSessionNotFound)
	assert.True(t, w.Session.Closed())
}

func TestWidgetService_ResumeReplaysHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestService(store, time.Hour)
	defer svc.Shutdown()

	first, err := svc.Create(ctx, "")
	require.NoError(t, err)
	require.NoError(t, first.Session.Open(ctx))
	require.NoError(t, first.Session.Send(ctx, "how do I encrypt?"))
	first.Session.Wait()
	sessionID := first.Session.ID()
	require.NoError(t, svc.Remove(first.ID))

	resumed, err := svc.Create(ctx, sessionID.String())
	require.NoError(t, err)
	require.NoError(t, resumed.Session.Open(ctx))

	// the question and the answer; the stored welcome stays out of the conversation
	msgs := resumed.Session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "how do I encrypt?", msgs[0].Text)

	welcomes := 0
	for _, e := range resumed.Events.Since(0) {
		if e.Type == EventMessage && e.Welcome {
			welcomes++
		}
	}
	assert.Equal(t, 1, welcomes)

	stored, err := store.List(ctx, sessionID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestWidgetService_InvalidSessionID(t *testing.T) {
	svc := newTestService(memory.NewStore(), time.Hour)

	_, err := svc.Create(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrInvalidSessionID)
	assert.Equal(t, 0, svc.Count())
}

func TestWidgetService_EvictsIdleWidgets(t *testing.T) {
	svc := newTestService(memory.NewStore(), 30*time.Millisecond)
	defer svc.Shutdown()

	w, err := svc.Create(context.Background(), "")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return svc.Count() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, w.Session.Closed())
}
