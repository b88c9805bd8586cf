package service

import (
	"context"
	"strings"
	"time"

	"ai-meeting-summary-be/internal/entity"
	"ai-meeting-summary-be/internal/pkg/logger"
	"ai-meeting-summary-be/internal/pkg/mailer"
	"ai-meeting-summary-be/pkg/events"
	"ai-meeting-summary-be/pkg/identity"

	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"
)

// ISummaryGenerator produces a summary from a frozen meeting snapshot.
// Implemented by summary.Generator; it never fails, it falls back to a
// templated summary instead.
type ISummaryGenerator interface {
	Generate(ctx context.Context, meeting *entity.Meeting) *entity.MeetingSummary
}

// IEventPublisher is the outbound slice of the event bus the finalizer needs.
type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IFinalizerService interface {
	// OnAllLeft runs the one-shot finalization sequence for a meeting.
	// Safe to call concurrently and repeatedly: duplicate triggers while a
	// finalization is running, or within the cooldown window after it
	// finished, are absorbed silently.
	OnAllLeft(ctx context.Context, meetingId string)
}

type finalizerService struct {
	tracker   ITrackerService
	generator ISummaryGenerator
	resolver  identity.Resolver
	mailer    mailer.IEmailService
	publisher IEventPublisher

	// inProgress holds one entry per meeting currently finalizing or
	// cooling down. go-cache's Add is an atomic check-and-insert and TTL
	// expiry realizes the cooldown window.
	inProgress *gocache.Cache
	cooldown   time.Duration
	logger     logger.ILogger
}

func NewFinalizerService(
	tracker ITrackerService,
	generator ISummaryGenerator,
	resolver identity.Resolver,
	emailService mailer.IEmailService,
	publisher IEventPublisher,
	cooldown time.Duration,
	log logger.ILogger,
) IFinalizerService {
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &finalizerService{
		tracker:    tracker,
		generator:  generator,
		resolver:   resolver,
		mailer:     emailService,
		publisher:  publisher,
		inProgress: gocache.New(cooldown, time.Minute),
		cooldown:   cooldown,
		logger:     log,
	}
}

func (s *finalizerService) OnAllLeft(ctx context.Context, meetingId string) {
	// Atomic check-and-insert: a second AllLeft arriving while the first
	// finalization runs (or cools down) fails here and is dropped.
	if err := s.inProgress.Add(meetingId, struct{}{}, s.cooldown); err != nil {
		s.logger.Info("Finalizer", "Duplicate finalization trigger absorbed", map[string]interface{}{
			"meeting_id": meetingId,
		})
		return
	}

	snapshot, ok := s.tracker.Finalize(meetingId)
	if !ok {
		// Already finalized through another path; nothing to cool down.
		s.inProgress.Delete(meetingId)
		return
	}

	// Long-running work below runs on the frozen snapshot only, never
	// holding any registry lock.
	s.finalize(ctx, snapshot)

	// Restart the cooldown clock from completion so a late duplicate
	// trigger inside the window is still absorbed rather than reprocessed.
	s.inProgress.Set(meetingId, struct{}{}, s.cooldown)
}

func (s *finalizerService) finalize(ctx context.Context, snapshot *entity.Meeting) {
	s.logger.Info("Finalizer", "Generating meeting summary", map[string]interface{}{
		"meeting_id":   snapshot.Id,
		"participants": len(snapshot.Participants),
	})

	meetingSummary := s.generator.Generate(ctx, snapshot)

	emails := s.resolveEmails(ctx, snapshot)
	if len(emails) == 0 {
		s.logger.Warn("Finalizer", "No participant emails resolved, skipping notification", map[string]interface{}{
			"meeting_id": snapshot.Id,
		})
		return
	}

	if err := s.mailer.SendMeetingSummary(meetingSummary, emails); err != nil {
		// Best effort: never propagated, never retried, never re-queued.
		s.logger.Error("Finalizer", "Failed to send summary email", map[string]interface{}{
			"meeting_id": snapshot.Id,
			"error":      err.Error(),
		})
		return
	}

	s.logger.Info("Finalizer", "Summary sent", map[string]interface{}{
		"meeting_id": snapshot.Id,
		"recipients": len(emails),
	})

	if s.publisher != nil {
		evt := events.NewMeetingEvent(events.TypeSummaryGenerated, snapshot.Id, map[string]interface{}{
			"title":      meetingSummary.Title,
			"recipients": len(emails),
		})
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("Finalizer", "Failed to publish summary event", map[string]interface{}{
				"meeting_id": snapshot.Id,
				"error":      err.Error(),
			})
		}
	}
}

// resolveEmails prefers the email recorded on the participant and falls
// back to the identity directory. A failed lookup means no email for that
// participant, not a failed finalization.
func (s *finalizerService) resolveEmails(ctx context.Context, snapshot *entity.Meeting) []string {
	var emails []string
	for _, p := range snapshot.Participants {
		if p.Email != "" {
			emails = append(emails, p.Email)
			continue
		}

		email, found, err := s.resolver.LookupEmail(ctx, p.Id)
		if err != nil {
			s.logger.Warn("Finalizer", "Email lookup failed", map[string]interface{}{
				"participant_id": p.Id,
				"error":          err.Error(),
			})
			continue
		}
		if found {
			emails = append(emails, email)
		}
	}

	return lo.UniqBy(emails, strings.ToLower)
}
