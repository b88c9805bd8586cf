package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"ai-meeting-summary-be/internal/dto"
	"ai-meeting-summary-be/internal/pkg/logger"
	"ai-meeting-summary-be/pkg/events"

	"github.com/stretchr/testify/assert"
)

type recordingFinalizer struct {
	mu       sync.Mutex
	meetings []string
	done     chan struct{}
}

func (f *recordingFinalizer) OnAllLeft(ctx context.Context, meetingId string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meetings = append(f.meetings, meetingId)
	if f.done != nil {
		close(f.done)
		f.done = nil
	}
}

type recordingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (p *recordingPublisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

func newEventFixture() (ITrackerService, *recordingFinalizer, *recordingPublisher, IEventService) {
	tracker := newTracker()
	finalizer := &recordingFinalizer{}
	publisher := &recordingPublisher{}
	svc := NewEventService(tracker, finalizer, publisher, logger.NewNopLogger())
	return tracker, finalizer, publisher, svc
}

func TestJoinedEventRegistersParticipant(t *testing.T) {
	tracker, _, _, svc := newEventFixture()

	err := svc.HandleEvent(context.Background(), events.BaseEvent{
		Type: events.TypeMeetingJoined,
		Data: map[string]interface{}{
			"meeting_id":     "m1",
			"participant_id": "u1",
			"display_name":   "Alice",
			"email":          "alice@example.com",
		},
		OccurredAt: time.Now(),
	})

	assert.NoError(t, err)
	m, ok := tracker.Get("m1")
	assert.True(t, ok)
	assert.Equal(t, "Alice", m.Participants["u1"].DisplayName)
	assert.Equal(t, "alice@example.com", m.Participants["u1"].Email)
}

func TestJoinedEventDerivesMissingDisplayName(t *testing.T) {
	tracker, _, _, svc := newEventFixture()

	err := svc.HandleEvent(context.Background(), events.BaseEvent{
		Type: events.TypeMeetingJoined,
		Data: map[string]interface{}{
			"meeting_id":     "m1",
			"participant_id": "participant-123456",
		},
		OccurredAt: time.Now(),
	})

	assert.NoError(t, err)
	m, _ := tracker.Get("m1")
	assert.Equal(t, "User particip", m.Participants["participant-123456"].DisplayName)
}

func TestEventWithoutMeetingIdIsRejected(t *testing.T) {
	_, _, _, svc := newEventFixture()

	err := svc.HandleEvent(context.Background(), events.BaseEvent{
		Type:       events.TypeMeetingJoined,
		Data:       map[string]interface{}{"participant_id": "u1"},
		OccurredAt: time.Now(),
	})

	assert.Error(t, err)
}

func TestLastLeaveTriggersFinalizerOnce(t *testing.T) {
	tracker, finalizer, _, svc := newEventFixture()
	finalizer.done = make(chan struct{})

	tracker.Join("m1", "u1", "Alice", "")

	err := svc.HandleEvent(context.Background(), events.BaseEvent{
		Type: events.TypeMeetingLeft,
		Data: map[string]interface{}{
			"meeting_id":     "m1",
			"participant_id": "u1",
		},
		OccurredAt: time.Now(),
	})
	assert.NoError(t, err)

	select {
	case <-finalizer.done:
	case <-time.After(time.Second):
		t.Fatal("finalizer was not triggered")
	}
	assert.Equal(t, []string{"m1"}, finalizer.meetings)

	// A repeated leave resolves to AlreadyResolved and must not re-trigger.
	err = svc.HandleEvent(context.Background(), events.BaseEvent{
		Type: events.TypeMeetingLeft,
		Data: map[string]interface{}{
			"meeting_id":     "m1",
			"participant_id": "u1",
		},
		OccurredAt: time.Now(),
	})
	assert.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	finalizer.mu.Lock()
	defer finalizer.mu.Unlock()
	assert.Len(t, finalizer.meetings, 1)
}

func TestChatMessageEventIsRecorded(t *testing.T) {
	tracker, _, _, svc := newEventFixture()
	tracker.Join("m1", "u1", "Alice", "")

	ts := time.Now().Add(-time.Minute)
	err := svc.HandleEvent(context.Background(), events.BaseEvent{
		Type: events.TypeChatMessage,
		Data: map[string]interface{}{
			"meeting_id":     "m1",
			"participant_id": "u1",
			"display_name":   "Alice",
			"text":           "hello",
		},
		OccurredAt: ts,
	})

	assert.NoError(t, err)
	m, _ := tracker.Get("m1")
	assert.Len(t, m.ChatMessages, 1)
	assert.Equal(t, "hello", m.ChatMessages[0].Text)
	assert.Equal(t, ts, m.ChatMessages[0].Timestamp)
}

func TestAudioChunkEventIsQueued(t *testing.T) {
	tracker, _, publisher, svc := newEventFixture()
	tracker.Join("m1", "u1", "Alice", "")

	err := svc.HandleEvent(context.Background(), events.BaseEvent{
		Type: events.TypeAudioChunk,
		Data: map[string]interface{}{
			"meeting_id":     "m1",
			"participant_id": "u1",
			"display_name":   "Alice",
			"audio_base64":   "aGVsbG8=",
		},
		OccurredAt: time.Now(),
	})

	assert.NoError(t, err)
	assert.Len(t, publisher.payloads, 1)

	var job dto.TranscribeAudioMessage
	assert.NoError(t, json.Unmarshal(publisher.payloads[0], &job))
	assert.Equal(t, "m1", job.MeetingId)
	assert.Equal(t, "aGVsbG8=", job.AudioBase64)
}

func TestUnknownEventTypeIsIgnored(t *testing.T) {
	tracker, _, publisher, svc := newEventFixture()

	err := svc.HandleEvent(context.Background(), events.BaseEvent{
		Type:       "SOMETHING_ELSE",
		Data:       map[string]interface{}{"meeting_id": "m1"},
		OccurredAt: time.Now(),
	})

	assert.NoError(t, err)
	assert.Empty(t, publisher.payloads)
	_, ok := tracker.Get("m1")
	assert.False(t, ok, "unknown events never create meetings")
}

func TestDecodeAudioHandlesDataURL(t *testing.T) {
	decoded, err := DecodeAudio("data:audio/webm;base64,aGVsbG8=")
	assert.NoError(t, err)
	assert.Equal(t, []byte("hello"), decoded)

	decoded, err = DecodeAudio("aGVsbG8=")
	assert.NoError(t, err)
	assert.Equal(t, []byte("hello"), decoded)

	_, err = DecodeAudio("")
	assert.Error(t, err)
}
