package summary

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-meeting-summary-be/internal/entity"
	"ai-meeting-summary-be/internal/pkg/logger"
	"ai-meeting-summary-be/pkg/llm"

	"github.com/stretchr/testify/assert"
)

type fakeLLM struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", errors.New("no scripted response")
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.Generate(ctx, "")
}

func testMeeting() *entity.Meeting {
	m := entity.NewMeeting("m1", "")
	m.StartedAt = time.Now().Add(-10 * time.Minute)
	m.Participants["u1"] = &entity.Participant{Id: "u1", DisplayName: "Alice", JoinedAt: m.StartedAt}
	m.Participants["u2"] = &entity.Participant{Id: "u2", DisplayName: "Bob", JoinedAt: m.StartedAt}
	m.ChatMessages = append(m.ChatMessages, entity.ChatMessage{
		Text: "hello", ParticipantId: "u1", DisplayName: "Alice", Timestamp: time.Now(),
	})
	m.Transcripts = append(m.Transcripts, entity.Transcript{
		Text: "let's start", ParticipantId: "u2", DisplayName: "Bob", Timestamp: time.Now(),
	})
	return m
}

func TestGenerateWithAI(t *testing.T) {
	provider := &fakeLLM{responses: []string{
		"Executive summary of the meeting.",
		`{"tasks": [{"description": "Send the report", "assignedToName": "Alice", "priority": "high"}]}`,
	}}
	g := NewGenerator(provider, 3, time.Millisecond, logger.NewNopLogger())

	s := g.Generate(context.Background(), testMeeting())

	assert.Equal(t, "m1", s.MeetingId)
	assert.Equal(t, "Meeting m1", s.Title)
	assert.Equal(t, "Executive summary of the meeting.", s.Summary)
	assert.Len(t, s.Tasks, 1)
	assert.Equal(t, "Send the report", s.Tasks[0].Description)
	assert.Equal(t, "Alice", s.Tasks[0].AssignedToName)
	assert.Len(t, s.Participants, 2)
	assert.Equal(t, 10, s.DurationMinutes)
}

func TestGenerateFallsBackToBasicSummary(t *testing.T) {
	provider := &fakeLLM{errs: []error{
		errors.New("provider unavailable"),
	}}
	g := NewGenerator(provider, 3, time.Millisecond, logger.NewNopLogger())

	s := g.Generate(context.Background(), testMeeting())

	assert.Contains(t, s.Summary, "basic summary")
	assert.Contains(t, s.Summary, "Alice: hello")
	assert.Contains(t, s.Summary, "Bob: let's start")
	assert.Empty(t, s.Tasks)
	assert.Equal(t, 1, provider.calls, "non rate-limit errors must not be retried")
}

func TestGenerateRetriesRateLimit(t *testing.T) {
	provider := &fakeLLM{
		errs:      []error{errors.New("429 rate limit"), nil, nil},
		responses: []string{"", "AI summary after retry", `{"tasks": []}`},
	}
	g := NewGenerator(provider, 3, time.Millisecond, logger.NewNopLogger())

	s := g.Generate(context.Background(), testMeeting())

	assert.Equal(t, "AI summary after retry", s.Summary)
	assert.Equal(t, 3, provider.calls)
}

func TestTaskExtractionFailureIsNonFatal(t *testing.T) {
	provider := &fakeLLM{
		responses: []string{"A fine summary", "this is not json"},
	}
	g := NewGenerator(provider, 3, time.Millisecond, logger.NewNopLogger())

	s := g.Generate(context.Background(), testMeeting())

	assert.Equal(t, "A fine summary", s.Summary)
	assert.Empty(t, s.Tasks)
}

func TestTaskExtractionStripsMarkdownFences(t *testing.T) {
	provider := &fakeLLM{
		responses: []string{
			"Summary",
			"```json\n{\"tasks\": [{\"description\": \"Review PR\"}]}\n```",
		},
	}
	g := NewGenerator(provider, 3, time.Millisecond, logger.NewNopLogger())

	s := g.Generate(context.Background(), testMeeting())

	assert.Len(t, s.Tasks, 1)
	assert.Equal(t, "Review PR", s.Tasks[0].Description)
}

func TestExtractHighlights(t *testing.T) {
	short := make([]entity.ChatMessage, 4)
	for i := range short {
		short[i] = entity.ChatMessage{Text: "msg", DisplayName: "Alice"}
	}
	assert.Len(t, extractHighlights(short), 4, "short chats keep every message")

	long := make([]entity.ChatMessage, 15)
	for i := range long {
		long[i] = entity.ChatMessage{Text: "msg", DisplayName: "Bob"}
	}
	assert.Len(t, extractHighlights(long), 5, "long chats keep the last five")
}

func TestBuildContentWithoutRecords(t *testing.T) {
	m := entity.NewMeeting("empty", "")
	assert.Equal(t, "No recorded content.", buildContent(m))
}
