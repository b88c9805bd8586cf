package events

import "time"

// Event type codes carried on the bus. Upstream meeting events arrive on
// these subjects; the summary event is emitted by this service.
const (
	TypeMeetingJoined    = "MEETING_JOINED"
	TypeMeetingLeft      = "MEETING_LEFT"
	TypeChatMessage      = "CHAT_MESSAGE"
	TypeAudioChunk       = "AUDIO_CHUNK"
	TypeTranscriptReady  = "TRANSCRIPT_READY"
	TypeSummaryGenerated = "SUMMARY_GENERATED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "MEETING_LEFT").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic Event implementation used for both publishing
// and for events reconstructed off the wire.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewMeetingEvent builds a meeting-scoped event stamped with the current time.
func NewMeetingEvent(eventType, meetingId string, data map[string]interface{}) BaseEvent {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["meeting_id"] = meetingId
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
