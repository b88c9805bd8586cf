package dto

import "time"

// TranscribeAudioMessage is the internal queue payload for audio awaiting
// transcription.
type TranscribeAudioMessage struct {
	MeetingId     string    `json:"meeting_id"`
	ParticipantId string    `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
	AudioBase64   string    `json:"audio_base64"`
	Timestamp     time.Time `json:"timestamp"`
}

// TranscriptionRequest is the REST payload for submitting audio or an
// already transcribed text for a meeting.
type TranscriptionRequest struct {
	MeetingId     string `json:"meeting_id" validate:"required"`
	ParticipantId string `json:"participant_id" validate:"required"`
	DisplayName   string `json:"display_name" validate:"required"`
	Transcription string `json:"transcription"`
	AudioBase64   string `json:"audio_base64"`
	Timestamp     string `json:"timestamp"`
}

type ParticipantResponse struct {
	Id          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	JoinedAt    time.Time  `json:"joined_at"`
	LeftAt      *time.Time `json:"left_at,omitempty"`
}

type MeetingResponse struct {
	Id           string                `json:"id"`
	Title        string                `json:"title"`
	StartedAt    time.Time             `json:"started_at"`
	EndedAt      *time.Time            `json:"ended_at,omitempty"`
	Active       bool                  `json:"active"`
	Participants []ParticipantResponse `json:"participants"`
	ChatCount    int                   `json:"chat_count"`
	Transcripts  int                   `json:"transcript_count"`
}
