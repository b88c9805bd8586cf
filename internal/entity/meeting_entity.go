package entity

import (
	"fmt"
	"time"
)

// Meeting is the in-memory lifecycle record for one tracked meeting.
// Once Active flips to false the record is frozen: late events are dropped.
type Meeting struct {
	Id           string
	Title        string
	StartedAt    time.Time
	EndedAt      *time.Time
	Participants map[string]*Participant
	ChatMessages []ChatMessage
	Transcripts  []Transcript
	Active       bool
}

type Participant struct {
	Id          string
	DisplayName string
	Email       string
	JoinedAt    time.Time
	LeftAt      *time.Time
}

type ChatMessage struct {
	Text          string
	ParticipantId string
	DisplayName   string
	Timestamp     time.Time
}

type Transcript struct {
	Text          string
	ParticipantId string
	DisplayName   string
	Timestamp     time.Time
}

func NewMeeting(id, title string) *Meeting {
	if title == "" {
		title = fmt.Sprintf("Meeting %s", id)
	}
	return &Meeting{
		Id:           id,
		Title:        title,
		StartedAt:    time.Now(),
		Participants: make(map[string]*Participant),
		Active:       true,
	}
}

// ActiveCount returns the number of participants without a LeftAt stamp.
func (m *Meeting) ActiveCount() int {
	count := 0
	for _, p := range m.Participants {
		if p.LeftAt == nil {
			count++
		}
	}
	return count
}

// Snapshot returns a deep copy of the meeting. The copy shares nothing
// mutable with the original, so finalization can read it without locks.
func (m *Meeting) Snapshot() *Meeting {
	cp := &Meeting{
		Id:           m.Id,
		Title:        m.Title,
		StartedAt:    m.StartedAt,
		Participants: make(map[string]*Participant, len(m.Participants)),
		ChatMessages: append([]ChatMessage(nil), m.ChatMessages...),
		Transcripts:  append([]Transcript(nil), m.Transcripts...),
		Active:       m.Active,
	}
	if m.EndedAt != nil {
		endedAt := *m.EndedAt
		cp.EndedAt = &endedAt
	}
	for id, p := range m.Participants {
		pc := *p
		if p.LeftAt != nil {
			leftAt := *p.LeftAt
			pc.LeftAt = &leftAt
		}
		cp.Participants[id] = &pc
	}
	return cp
}
