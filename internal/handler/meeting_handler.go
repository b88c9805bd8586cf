package handler

import (
	"errors"
	"time"

	"ai-meeting-summary-be/internal/dto"
	"ai-meeting-summary-be/internal/entity"
	"ai-meeting-summary-be/internal/pkg/logger"
	"ai-meeting-summary-be/internal/service"
	"ai-meeting-summary-be/pkg/transcribe"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

type MeetingHandler struct {
	tracker     service.ITrackerService
	transcriber service.ITranscriber
	logger      logger.ILogger
}

func NewMeetingHandler(tracker service.ITrackerService, transcriber service.ITranscriber, log logger.ILogger) *MeetingHandler {
	return &MeetingHandler{
		tracker:     tracker,
		transcriber: transcriber,
		logger:      log,
	}
}

// Health reports liveness.
func (h *MeetingHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// CreateTranscription accepts either an already transcribed text or a
// base64 audio blob for a meeting. Audio is transcribed synchronously so
// provider failures surface to the caller.
func (h *MeetingHandler) CreateTranscription(c *fiber.Ctx) error {
	var req dto.TranscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	text := req.Transcription
	if text == "" {
		if req.AudioBase64 == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Either transcription or audio_base64 is required"})
		}

		audio, err := service.DecodeAudio(req.AudioBase64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid base64 audio payload"})
		}

		text, err = h.transcriber.Transcribe(c.UserContext(), audio)
		if err != nil {
			h.logger.Error("MeetingHandler", "Transcription failed", map[string]interface{}{
				"meeting_id": req.MeetingId,
				"error":      err.Error(),
			})
			var exhausted *transcribe.ExhaustedError
			if errors.As(err, &exhausted) {
				return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "All transcription providers failed"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Transcription failed"})
		}
	}

	h.tracker.AddTranscript(req.MeetingId, entity.Transcript{
		Text:          text,
		ParticipantId: req.ParticipantId,
		DisplayName:   req.DisplayName,
		Timestamp:     parseTimestamp(req.Timestamp),
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"meeting_id":    req.MeetingId,
		"transcription": text,
	})
}

// ListMeetings returns the currently tracked active meetings.
func (h *MeetingHandler) ListMeetings(c *fiber.Ctx) error {
	meetings := h.tracker.ActiveMeetings()

	responses := make([]dto.MeetingResponse, 0, len(meetings))
	for _, m := range meetings {
		responses = append(responses, toMeetingResponse(m))
	}

	return c.JSON(fiber.Map{"meetings": responses})
}

// GetMeeting returns one tracked meeting, active or already finalized.
func (h *MeetingHandler) GetMeeting(c *fiber.Ctx) error {
	meeting, ok := h.tracker.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Meeting not found"})
	}

	return c.JSON(toMeetingResponse(meeting))
}

func toMeetingResponse(m *entity.Meeting) dto.MeetingResponse {
	participants := make([]dto.ParticipantResponse, 0, len(m.Participants))
	for _, p := range m.Participants {
		participants = append(participants, dto.ParticipantResponse{
			Id:          p.Id,
			DisplayName: p.DisplayName,
			JoinedAt:    p.JoinedAt,
			LeftAt:      p.LeftAt,
		})
	}

	return dto.MeetingResponse{
		Id:           m.Id,
		Title:        m.Title,
		StartedAt:    m.StartedAt,
		EndedAt:      m.EndedAt,
		Active:       m.Active,
		Participants: participants,
		ChatCount:    len(m.ChatMessages),
		Transcripts:  len(m.Transcripts),
	}
}

func parseTimestamp(raw string) time.Time {
	if raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts
		}
	}
	return time.Now()
}
