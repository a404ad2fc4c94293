package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEventSink_Sequence(t *testing.T) {
	b := &capturingBroadcaster{}
	sink := NewEventSink(b)

	sink.ShowWidget()
	sink.RenderMessage(domain.Message{Role: domain.RoleBot, Text: "Hi, I'm CRYPHIX BOT.", Timestamp: time.Now()}, true)
	sink.RenderQuickReplies([]domain.QuickReply{{Label: "Encrypt Text", Message: "How can I encrypt a text message?"}})
	sink.SetTypingIndicator(true)

	events := sink.Since(0)
	require.Len(t, events, 4)
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.Seq)
	}
	assert.Equal(t, EventShow, events[0].Type)
	assert.True(t, events[1].Welcome)
	assert.Equal(t, "Hi, I'm CRYPHIX BOT.", events[1].Message.Text)
	assert.Len(t, events[2].QuickReplies, 1)
	assert.True(t, events[3].Typing)

	assert.Len(t, sink.Since(2), 2)
	assert.Equal(t, int64(4), sink.LastSeq())

	frames := b.Frames()
	require.Len(t, frames, 4)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(frames[1]), &decoded))
	assert.Equal(t, "message", decoded["type"])
	assert.Equal(t, true, decoded["welcome"])
}

func TestEventSink_ClearTruncatesBacklog(t *testing.T) {
	b := new(MockBroadcaster)
	b.On("Broadcast", mock.Anything).Return()
	sink := NewEventSink(b)

	sink.ShowWidget()
	sink.RenderMessage(domain.Message{Role: domain.RoleUser, Text: "hi"}, false)
	sink.ClearMessages()

	events := sink.Since(0)
	require.Len(t, events, 1)
	assert.Equal(t, EventClear, events[0].Type)
	assert.Equal(t, int64(3), events[0].Seq)
	b.AssertNumberOfCalls(t, "Broadcast", 3)
}

func TestEventSink_BacklogIsBounded(t *testing.T) {
	sink := NewEventSink(nil)
	sink.maxBacklog = 3

	for i := 0; i < 10; i++ {
		sink.SetTypingIndicator(i%2 == 0)
	}

	events := sink.Since(0)
	require.Len(t, events, 3)
	assert.Equal(t, int64(8), events[0].Seq)
	assert.Equal(t, int64(10), sink.LastSeq())
}
