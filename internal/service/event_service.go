package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-meeting-summary-be/internal/dto"
	"ai-meeting-summary-be/internal/entity"
	"ai-meeting-summary-be/internal/pkg/logger"
	"ai-meeting-summary-be/pkg/events"
)

// IEventService maps inbound meeting events to registry operations. It is
// the only caller of Finalizer.OnAllLeft, and only when Leave reports
// AllLeft.
type IEventService interface {
	HandleEvent(ctx context.Context, event events.Event) error
}

type eventService struct {
	tracker        ITrackerService
	finalizer      IFinalizerService
	audioPublisher IPublisherService
	logger         logger.ILogger
}

func NewEventService(
	tracker ITrackerService,
	finalizer IFinalizerService,
	audioPublisher IPublisherService,
	log logger.ILogger,
) IEventService {
	return &eventService{
		tracker:        tracker,
		finalizer:      finalizer,
		audioPublisher: audioPublisher,
		logger:         log,
	}
}

func (s *eventService) HandleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	meetingId := stringField(payload, "meeting_id")
	if meetingId == "" {
		return fmt.Errorf("event %s is missing meeting_id", event.EventType())
	}

	switch event.EventType() {
	case events.TypeMeetingJoined:
		participantId := stringField(payload, "participant_id")
		if participantId == "" {
			return fmt.Errorf("join event for %s is missing participant_id", meetingId)
		}
		s.tracker.Join(meetingId, participantId,
			displayNameOrDefault(payload, participantId),
			stringField(payload, "email"))
		return nil

	case events.TypeMeetingLeft:
		participantId := stringField(payload, "participant_id")
		if participantId == "" {
			return fmt.Errorf("leave event for %s is missing participant_id", meetingId)
		}
		outcome := s.tracker.Leave(meetingId, participantId)
		if outcome.Status == LeaveAllLeft {
			// Finalization is fire-and-forget from the event loop; the
			// finalizer owns its own duplicate-trigger protection.
			go s.finalizer.OnAllLeft(context.WithoutCancel(ctx), meetingId)
		}
		return nil

	case events.TypeChatMessage:
		s.tracker.AddChatMessage(meetingId, entity.ChatMessage{
			Text:          stringField(payload, "text"),
			ParticipantId: stringField(payload, "participant_id"),
			DisplayName:   displayNameOrDefault(payload, stringField(payload, "participant_id")),
			Timestamp:     event.Timestamp(),
		})
		return nil

	case events.TypeTranscriptReady:
		s.tracker.AddTranscript(meetingId, entity.Transcript{
			Text:          stringField(payload, "text"),
			ParticipantId: stringField(payload, "participant_id"),
			DisplayName:   displayNameOrDefault(payload, stringField(payload, "participant_id")),
			Timestamp:     event.Timestamp(),
		})
		return nil

	case events.TypeAudioChunk:
		// Transcription is slow: hand it to the worker queue instead of
		// blocking the event loop.
		job := dto.TranscribeAudioMessage{
			MeetingId:     meetingId,
			ParticipantId: stringField(payload, "participant_id"),
			DisplayName:   displayNameOrDefault(payload, stringField(payload, "participant_id")),
			AudioBase64:   stringField(payload, "audio_base64"),
			Timestamp:     event.Timestamp(),
		}
		payloadJson, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal transcription job: %w", err)
		}
		return s.audioPublisher.Publish(ctx, payloadJson)

	default:
		s.logger.Debug("EventService", "Ignoring unhandled event type", map[string]interface{}{
			"type": event.EventType(),
		})
		return nil
	}
}

func stringField(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

// displayNameOrDefault falls back to a name derived from the participant
// id when the event carries none.
func displayNameOrDefault(payload map[string]interface{}, participantId string) string {
	if name := stringField(payload, "display_name"); name != "" {
		return name
	}
	if len(participantId) > 8 {
		participantId = participantId[:8]
	}
	return fmt.Sprintf("User %s", participantId)
}
