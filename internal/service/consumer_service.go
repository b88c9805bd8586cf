package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"ai-meeting-summary-be/internal/dto"
	"ai-meeting-summary-be/internal/entity"
	"ai-meeting-summary-be/internal/pkg/logger"
	"ai-meeting-summary-be/pkg/transcribe"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ITranscriber is the slice of the transcription orchestrator the consumer
// needs.
type ITranscriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the audio queue: each message is decoded,
// transcribed through the provider chain and fed back into the registry
// as a transcript.
type consumerService struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	transcriber ITranscriber
	tracker     ITrackerService
	logger      logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	transcriber ITranscriber,
	tracker ITrackerService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:      pubSub,
		topicName:   topicName,
		transcriber: transcriber,
		tracker:     tracker,
		logger:      log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.TranscribeAudioMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("Consumer", "Failed to unmarshal transcription job", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	audio, err := DecodeAudio(payload.AudioBase64)
	if err != nil {
		cs.logger.Error("Consumer", "Invalid audio payload", map[string]interface{}{
			"meeting_id": payload.MeetingId,
			"error":      err.Error(),
		})
		msg.Ack()
		return
	}

	cs.logger.Info("Consumer", "Transcribing audio", map[string]interface{}{
		"meeting_id": payload.MeetingId,
		"bytes":      len(audio),
	})

	text, err := cs.transcriber.Transcribe(ctx, audio)
	if err != nil {
		var exhausted *transcribe.ExhaustedError
		if errors.As(err, &exhausted) {
			// Every provider already retried; requeueing would only repeat
			// the same failures.
			cs.logger.Error("Consumer", "Transcription exhausted all providers", map[string]interface{}{
				"meeting_id": payload.MeetingId,
				"error":      err.Error(),
			})
			msg.Ack()
			return
		}
		cs.logger.Error("Consumer", "Transcription failed", map[string]interface{}{
			"meeting_id": payload.MeetingId,
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}

	cs.tracker.AddTranscript(payload.MeetingId, entity.Transcript{
		Text:          text,
		ParticipantId: payload.ParticipantId,
		DisplayName:   payload.DisplayName,
		Timestamp:     payload.Timestamp,
	})
	msg.Ack()
}

// DecodeAudio accepts both bare base64 and data-URL payloads
// ("data:audio/webm;base64,....").
func DecodeAudio(audioBase64 string) ([]byte, error) {
	if audioBase64 == "" {
		return nil, errors.New("empty audio payload")
	}
	if idx := strings.Index(audioBase64, ","); idx >= 0 {
		audioBase64 = audioBase64[idx+1:]
	}
	return base64.StdEncoding.DecodeString(audioBase64)
}
