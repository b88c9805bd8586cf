package service

import (
	"sync"
	"time"

	"ai-meeting-summary-be/internal/entity"
	"ai-meeting-summary-be/internal/pkg/logger"
)

// LeaveStatus is the transition signal returned by Leave. The AllLeft /
// AlreadyResolved distinction is what guarantees finalization is triggered
// exactly once even when leave events race or repeat.
type LeaveStatus int

const (
	// LeaveNotFound means the meeting or participant is unknown.
	LeaveNotFound LeaveStatus = iota
	// LeaveStillActive means other participants remain in the meeting.
	LeaveStillActive
	// LeaveAllLeft means this call observed the last participant leaving.
	// Returned at most once per meeting.
	LeaveAllLeft
	// LeaveAlreadyResolved means the meeting already produced its AllLeft
	// signal; the caller must not trigger finalization again.
	LeaveAlreadyResolved
)

type LeaveOutcome struct {
	Status      LeaveStatus
	ActiveCount int
}

type ITrackerService interface {
	Join(meetingId, participantId, displayName, email string)
	Leave(meetingId, participantId string) LeaveOutcome
	AddChatMessage(meetingId string, message entity.ChatMessage)
	AddTranscript(meetingId string, transcript entity.Transcript)
	Finalize(meetingId string) (*entity.Meeting, bool)
	Get(meetingId string) (*entity.Meeting, bool)
	ActiveMeetings() []*entity.Meeting
}

// meetingState pairs a meeting with its own lock so operations on
// different meetings never contend.
type meetingState struct {
	mu       sync.Mutex
	meeting  *entity.Meeting
	resolved bool // AllLeft already returned (or meeting finalized)
	snapped  bool // Finalize already handed out its snapshot
}

type trackerService struct {
	mu       sync.RWMutex
	meetings map[string]*meetingState
	logger   logger.ILogger
}

func NewTrackerService(log logger.ILogger) ITrackerService {
	return &trackerService{
		meetings: make(map[string]*meetingState),
		logger:   log,
	}
}

// getOrCreate returns the state for meetingId, creating it when create is
// set. The returned state's own mutex serializes per-meeting mutation.
func (s *trackerService) getOrCreate(meetingId, title string, create bool) (*meetingState, bool) {
	s.mu.RLock()
	state, ok := s.meetings[meetingId]
	s.mu.RUnlock()
	if ok || !create {
		return state, ok
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok = s.meetings[meetingId]; ok {
		return state, true
	}
	state = &meetingState{meeting: entity.NewMeeting(meetingId, title)}
	s.meetings[meetingId] = state
	s.logger.Info("Tracker", "Started tracking meeting", map[string]interface{}{"meeting_id": meetingId})
	return state, true
}

func (s *trackerService) Join(meetingId, participantId, displayName, email string) {
	state, _ := s.getOrCreate(meetingId, "", true)

	state.mu.Lock()
	defer state.mu.Unlock()

	if !state.meeting.Active {
		s.logger.Warn("Tracker", "Dropping join for finalized meeting", map[string]interface{}{
			"meeting_id": meetingId, "participant_id": participantId,
		})
		return
	}

	if p, ok := state.meeting.Participants[participantId]; ok {
		if p.LeftAt == nil {
			// Duplicate join race: keep the original record.
			return
		}
		// Rejoin after leaving: fresh joinedAt, clear the departure.
		p.DisplayName = displayName
		if email != "" {
			p.Email = email
		}
		p.JoinedAt = time.Now()
		p.LeftAt = nil
		s.logger.Info("Tracker", "Participant rejoined", map[string]interface{}{
			"meeting_id": meetingId, "participant_id": participantId,
		})
		return
	}

	state.meeting.Participants[participantId] = &entity.Participant{
		Id:          participantId,
		DisplayName: displayName,
		Email:       email,
		JoinedAt:    time.Now(),
	}
	s.logger.Info("Tracker", "Participant joined", map[string]interface{}{
		"meeting_id": meetingId, "participant_id": participantId, "name": displayName,
	})
}

func (s *trackerService) Leave(meetingId, participantId string) LeaveOutcome {
	state, ok := s.getOrCreate(meetingId, "", false)
	if !ok {
		s.logger.Warn("Tracker", "Leave for unknown meeting", map[string]interface{}{"meeting_id": meetingId})
		return LeaveOutcome{Status: LeaveNotFound}
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	p, ok := state.meeting.Participants[participantId]
	if !ok {
		s.logger.Warn("Tracker", "Leave for unknown participant", map[string]interface{}{
			"meeting_id": meetingId, "participant_id": participantId,
		})
		return LeaveOutcome{Status: LeaveNotFound}
	}

	if state.resolved {
		return LeaveOutcome{Status: LeaveAlreadyResolved}
	}

	if p.LeftAt == nil {
		now := time.Now()
		p.LeftAt = &now
		s.logger.Info("Tracker", "Participant left", map[string]interface{}{
			"meeting_id": meetingId, "participant_id": participantId,
		})
	}

	activeCount := state.meeting.ActiveCount()
	if activeCount == 0 && len(state.meeting.Participants) > 0 {
		// First observation of the empty meeting wins the AllLeft signal.
		state.resolved = true
		s.logger.Info("Tracker", "All participants left", map[string]interface{}{"meeting_id": meetingId})
		return LeaveOutcome{Status: LeaveAllLeft}
	}

	return LeaveOutcome{Status: LeaveStillActive, ActiveCount: activeCount}
}

func (s *trackerService) AddChatMessage(meetingId string, message entity.ChatMessage) {
	// Chat never autocreates a meeting.
	state, ok := s.getOrCreate(meetingId, "", false)
	if !ok {
		return
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if !state.meeting.Active {
		return
	}
	state.meeting.ChatMessages = append(state.meeting.ChatMessages, message)
}

func (s *trackerService) AddTranscript(meetingId string, transcript entity.Transcript) {
	// Audio can arrive before any join event: autocreate with the
	// transcript's author as sole member.
	state, ok := s.getOrCreate(meetingId, "", false)
	if !ok {
		s.logger.Warn("Tracker", "Transcript for unknown meeting, autocreating", map[string]interface{}{
			"meeting_id": meetingId,
		})
		state, _ = s.getOrCreate(meetingId, "", true)
		state.mu.Lock()
		if _, exists := state.meeting.Participants[transcript.ParticipantId]; !exists && state.meeting.Active {
			state.meeting.Participants[transcript.ParticipantId] = &entity.Participant{
				Id:          transcript.ParticipantId,
				DisplayName: transcript.DisplayName,
				JoinedAt:    time.Now(),
			}
		}
		state.mu.Unlock()
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if !state.meeting.Active {
		return
	}
	state.meeting.Transcripts = append(state.meeting.Transcripts, transcript)
}

func (s *trackerService) Finalize(meetingId string) (*entity.Meeting, bool) {
	state, ok := s.getOrCreate(meetingId, "", false)
	if !ok {
		return nil, false
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.snapped {
		// The snapshot is handed out at most once so downstream work
		// cannot be duplicated.
		return nil, false
	}

	now := time.Now()
	state.meeting.Active = false
	state.meeting.EndedAt = &now
	for _, p := range state.meeting.Participants {
		if p.LeftAt == nil {
			p.LeftAt = &now
		}
	}
	state.resolved = true
	state.snapped = true

	s.logger.Info("Tracker", "Meeting finalized", map[string]interface{}{
		"meeting_id":   meetingId,
		"participants": len(state.meeting.Participants),
		"messages":     len(state.meeting.ChatMessages),
		"transcripts":  len(state.meeting.Transcripts),
	})
	return state.meeting.Snapshot(), true
}

func (s *trackerService) Get(meetingId string) (*entity.Meeting, bool) {
	state, ok := s.getOrCreate(meetingId, "", false)
	if !ok {
		return nil, false
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return state.meeting.Snapshot(), true
}

func (s *trackerService) ActiveMeetings() []*entity.Meeting {
	s.mu.RLock()
	states := make([]*meetingState, 0, len(s.meetings))
	for _, state := range s.meetings {
		states = append(states, state)
	}
	s.mu.RUnlock()

	var active []*entity.Meeting
	for _, state := range states {
		state.mu.Lock()
		if state.meeting.Active {
			active = append(active, state.meeting.Snapshot())
		}
		state.mu.Unlock()
	}
	return active
}
