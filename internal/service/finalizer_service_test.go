package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-meeting-summary-be/internal/entity"
	"ai-meeting-summary-be/internal/pkg/logger"
	"ai-meeting-summary-be/pkg/events"

	"github.com/stretchr/testify/assert"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
}

func (f *fakeGenerator) Generate(ctx context.Context, meeting *entity.Meeting) *entity.MeetingSummary {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return &entity.MeetingSummary{
		MeetingId:    meeting.Id,
		Title:        meeting.Title,
		Participants: nil,
		Summary:      "summary",
		CreatedAt:    time.Now(),
	}
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeResolver struct {
	emails map[string]string
	errs   map[string]error
}

func (f *fakeResolver) LookupEmail(ctx context.Context, participantId string) (string, bool, error) {
	if err, ok := f.errs[participantId]; ok {
		return "", false, err
	}
	email, ok := f.emails[participantId]
	return email, ok, nil
}

type fakeMailer struct {
	mu     sync.Mutex
	calls  int
	emails []string
	err    error
}

func (f *fakeMailer) SendMeetingSummary(summary *entity.MeetingSummary, toEmails []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.emails = toEmails
	return f.err
}

func (f *fakeMailer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePublisher struct {
	mu         sync.Mutex
	eventTypes []string
}

func (f *fakePublisher) Publish(ctx context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventTypes = append(f.eventTypes, event.EventType())
	return nil
}

type finalizerFixture struct {
	tracker   ITrackerService
	generator *fakeGenerator
	resolver  *fakeResolver
	mailer    *fakeMailer
	publisher *fakePublisher
	finalizer IFinalizerService
}

func newFinalizerFixture(cooldown time.Duration) *finalizerFixture {
	f := &finalizerFixture{
		tracker:   newTracker(),
		generator: &fakeGenerator{},
		resolver:  &fakeResolver{emails: map[string]string{}, errs: map[string]error{}},
		mailer:    &fakeMailer{},
		publisher: &fakePublisher{},
	}
	f.finalizer = NewFinalizerService(
		f.tracker, f.generator, f.resolver, f.mailer, f.publisher,
		cooldown, logger.NewNopLogger(),
	)
	return f
}

func TestOnAllLeftFinalizesAndNotifies(t *testing.T) {
	f := newFinalizerFixture(time.Minute)

	f.tracker.Join("m1", "u1", "Alice", "alice@example.com")
	f.tracker.Join("m1", "u2", "Bob", "")
	f.resolver.emails["u2"] = "bob@example.com"
	f.tracker.Leave("m1", "u1")
	f.tracker.Leave("m1", "u2")

	f.finalizer.OnAllLeft(context.Background(), "m1")

	assert.Equal(t, 1, f.generator.callCount())
	assert.Equal(t, 1, f.mailer.callCount())
	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, f.mailer.emails)
	assert.Contains(t, f.publisher.eventTypes, events.TypeSummaryGenerated)

	m, ok := f.tracker.Get("m1")
	assert.True(t, ok)
	assert.False(t, m.Active)
}

func TestOnAllLeftDeduplicatesEmailsCaseInsensitively(t *testing.T) {
	f := newFinalizerFixture(time.Minute)

	f.tracker.Join("m1", "u1", "Alice", "Alice@Example.com")
	f.tracker.Join("m1", "u2", "Alice's laptop", "alice@example.com")
	f.tracker.Leave("m1", "u1")
	f.tracker.Leave("m1", "u2")

	f.finalizer.OnAllLeft(context.Background(), "m1")

	assert.Len(t, f.mailer.emails, 1)
}

func TestOnAllLeftSkipsNotifierWithoutEmails(t *testing.T) {
	f := newFinalizerFixture(time.Minute)

	f.tracker.Join("m1", "u1", "Alice", "")
	f.resolver.errs["u1"] = errors.New("directory down")
	f.tracker.Leave("m1", "u1")

	f.finalizer.OnAllLeft(context.Background(), "m1")

	assert.Equal(t, 1, f.generator.callCount(), "summary is still generated")
	assert.Equal(t, 0, f.mailer.callCount(), "notifier must not be called with zero emails")
}

func TestOnAllLeftAbsorbsConcurrentDuplicateTriggers(t *testing.T) {
	f := newFinalizerFixture(time.Minute)
	f.generator.delay = 20 * time.Millisecond

	f.tracker.Join("m1", "u1", "Alice", "alice@example.com")
	f.tracker.Leave("m1", "u1")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.finalizer.OnAllLeft(context.Background(), "m1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.generator.callCount(), "only one finalization may run")
	assert.Equal(t, 1, f.mailer.callCount())
}

func TestOnAllLeftAbsorbsLateTriggerWithinCooldown(t *testing.T) {
	f := newFinalizerFixture(time.Minute)

	f.tracker.Join("m1", "u1", "Alice", "alice@example.com")
	f.tracker.Leave("m1", "u1")

	f.finalizer.OnAllLeft(context.Background(), "m1")
	f.finalizer.OnAllLeft(context.Background(), "m1") // late duplicate inside cooldown

	assert.Equal(t, 1, f.generator.callCount())
}

func TestOnAllLeftAfterCooldownIsIdempotent(t *testing.T) {
	f := newFinalizerFixture(10 * time.Millisecond)

	f.tracker.Join("m1", "u1", "Alice", "alice@example.com")
	f.tracker.Leave("m1", "u1")

	f.finalizer.OnAllLeft(context.Background(), "m1")
	time.Sleep(30 * time.Millisecond)

	// The cooldown has expired but the meeting was already finalized:
	// the registry refuses a second snapshot and nothing reruns.
	f.finalizer.OnAllLeft(context.Background(), "m1")

	assert.Equal(t, 1, f.generator.callCount())
	assert.Equal(t, 1, f.mailer.callCount())
}

func TestNotifierFailureIsSwallowed(t *testing.T) {
	f := newFinalizerFixture(time.Minute)
	f.mailer.err = errors.New("smtp down")

	f.tracker.Join("m1", "u1", "Alice", "alice@example.com")
	f.tracker.Leave("m1", "u1")

	f.finalizer.OnAllLeft(context.Background(), "m1")

	assert.Equal(t, 1, f.mailer.callCount())
	assert.Empty(t, f.publisher.eventTypes, "no summary event after a failed notification")

	m, _ := f.tracker.Get("m1")
	assert.False(t, m.Active, "a failed notification never makes the meeting re-triggerable")
}

func TestUnknownMeetingTriggerIsNoOp(t *testing.T) {
	f := newFinalizerFixture(time.Minute)

	f.finalizer.OnAllLeft(context.Background(), "ghost")

	assert.Equal(t, 0, f.generator.callCount())
	assert.Equal(t, 0, f.mailer.callCount())
}
