package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"ai-meeting-summary-be/internal/entity"
	"ai-meeting-summary-be/internal/pkg/logger"
	"ai-meeting-summary-be/pkg/llm"

	"github.com/samber/lo"
)

// Generator produces a MeetingSummary from a frozen meeting snapshot.
// It always returns a summary: if the LLM fails for any reason it falls
// back to a deterministic templated summary instead of erroring.
type Generator struct {
	provider   llm.LLMProvider
	maxRetries int
	retryDelay time.Duration
	logger     logger.ILogger
}

func NewGenerator(provider llm.LLMProvider, maxRetries int, retryDelay time.Duration, log logger.ILogger) *Generator {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	return &Generator{
		provider:   provider,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     log,
	}
}

func (g *Generator) Generate(ctx context.Context, meeting *entity.Meeting) *entity.MeetingSummary {
	participants := lo.Values(meeting.Participants)
	content := buildContent(meeting)
	endedAt := time.Now()
	if meeting.EndedAt != nil {
		endedAt = *meeting.EndedAt
	}

	text, err := g.generateWithRetry(ctx, g.buildSummaryPrompt(meeting, participants, content, endedAt))
	if err != nil {
		g.logger.Warn("SummaryGenerator", "AI summary failed, using basic summary", map[string]interface{}{
			"meeting_id": meeting.Id,
			"error":      err.Error(),
		})
		return g.basicSummary(meeting, participants, endedAt)
	}

	tasks := g.extractTasks(ctx, content, participants)

	return &entity.MeetingSummary{
		MeetingId:       meeting.Id,
		Title:           meeting.Title,
		StartedAt:       meeting.StartedAt,
		EndedAt:         endedAt,
		DurationMinutes: durationMinutes(meeting.StartedAt, endedAt),
		Participants:    participants,
		Summary:         text,
		Tasks:           tasks,
		ChatHighlights:  extractHighlights(meeting.ChatMessages),
		CreatedAt:       time.Now(),
	}
}

func buildContent(meeting *entity.Meeting) string {
	chatLines := lo.Map(meeting.ChatMessages, func(m entity.ChatMessage, _ int) string {
		return fmt.Sprintf("%s: %s", m.DisplayName, m.Text)
	})
	transcriptLines := lo.Map(meeting.Transcripts, func(t entity.Transcript, _ int) string {
		return fmt.Sprintf("%s: %s", t.DisplayName, t.Text)
	})

	sections := lo.Filter([]string{
		strings.Join(chatLines, "\n"),
		strings.Join(transcriptLines, "\n"),
	}, func(s string, _ int) bool {
		return strings.TrimSpace(s) != ""
	})

	if len(sections) == 0 {
		return "No recorded content."
	}
	return strings.Join(sections, "\n\n---\n\n")
}

func (g *Generator) buildSummaryPrompt(meeting *entity.Meeting, participants []*entity.Participant, content string, endedAt time.Time) string {
	names := lo.Map(participants, func(p *entity.Participant, _ int) string {
		return p.DisplayName
	})

	return fmt.Sprintf(`You are an expert assistant that writes professional meeting summaries.

MEETING INFORMATION:
- Title: %s
- Participants: %s
- Duration: %d minutes
- Chat messages: %d
- Audio transcripts: %d

FULL MEETING CONTENT:
%s

INSTRUCTIONS:
Write a professional, structured summary that includes:

1. EXECUTIVE SUMMARY: A short summary of the main topics discussed.

2. KEY POINTS: List the most important points, naming who said what where relevant.

3. DECISIONS MADE: If decisions were made, list them clearly.

4. CONCLUSIONS: Any conclusion or agreement reached.

IMPORTANT:
- Use participant names when mentioning who said something
- Be specific and clear
- Do NOT include the full transcripts, only the summary

Format: structured text with headings and lists where appropriate.`,
		meeting.Title,
		strings.Join(names, ", "),
		durationMinutes(meeting.StartedAt, endedAt),
		len(meeting.ChatMessages),
		len(meeting.Transcripts),
		content,
	)
}

// generateWithRetry retries rate-limit failures with a linearly growing
// delay; other failures escalate immediately to the templated fallback.
func (g *Generator) generateWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		text, err := g.provider.Generate(ctx, prompt)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				return "", fmt.Errorf("provider returned an empty summary")
			}
			return strings.TrimSpace(text), nil
		}

		lastErr = err
		if !isRateLimitError(err) || attempt == g.maxRetries {
			return "", err
		}

		delay := g.retryDelay * time.Duration(attempt)
		g.logger.Warn("SummaryGenerator", "Rate limited, retrying", map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func isRateLimitError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota")
}

var jsonBlockPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// extractTasks asks the LLM for a JSON task list. Any failure yields an
// empty list, never an error.
func (g *Generator) extractTasks(ctx context.Context, content string, participants []*entity.Participant) []entity.Task {
	names := lo.Map(participants, func(p *entity.Participant, _ int) string {
		return p.DisplayName
	})

	prompt := fmt.Sprintf(`Analyze the following meeting content and extract every task, commitment or assigned action.

Content:
%s

Participants: %s

For each identified task provide:
- A clear description of the task
- The assigned person (if mentioned)
- Priority (low, medium, high) if evident

Respond ONLY with valid JSON in this format:
{
  "tasks": [
    {
      "description": "Task description",
      "assignedToName": "Person name",
      "priority": "medium"
    }
  ]
}

If there are no tasks, return {"tasks": []}.`, content, strings.Join(names, ", "))

	response, err := g.provider.Generate(ctx, prompt)
	if err != nil {
		g.logger.Warn("SummaryGenerator", "Task extraction failed", map[string]interface{}{"error": err.Error()})
		return nil
	}

	// The model may wrap the JSON in markdown fences.
	jsonText := response
	if match := jsonBlockPattern.FindString(response); match != "" {
		jsonText = match
	}

	var parsed struct {
		Tasks []entity.Task `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		g.logger.Warn("SummaryGenerator", "Task extraction returned invalid JSON", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return parsed.Tasks
}

// basicSummary is the no-AI fallback used when the provider is unavailable.
func (g *Generator) basicSummary(meeting *entity.Meeting, participants []*entity.Participant, endedAt time.Time) *entity.MeetingSummary {
	names := lo.Map(participants, func(p *entity.Participant, _ int) string {
		return p.DisplayName
	})
	chatLines := lo.Map(meeting.ChatMessages, func(m entity.ChatMessage, _ int) string {
		return fmt.Sprintf("%s: %s", m.DisplayName, m.Text)
	})
	transcriptLines := lo.Map(meeting.Transcripts, func(t entity.Transcript, _ int) string {
		return fmt.Sprintf("%s: %s", t.DisplayName, t.Text)
	})

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Summary of meeting %q\n\n", meeting.Title))
	b.WriteString(fmt.Sprintf("Participants: %s\n\n", strings.Join(names, ", ")))
	b.WriteString(fmt.Sprintf("Duration: %d minutes\n\n", durationMinutes(meeting.StartedAt, endedAt)))
	b.WriteString(fmt.Sprintf("Chat messages: %d\n", len(meeting.ChatMessages)))
	b.WriteString(fmt.Sprintf("Audio transcripts: %d\n\n", len(meeting.Transcripts)))
	b.WriteString("Content:\n")
	if len(chatLines) > 0 {
		b.WriteString(strings.Join(chatLines, "\n"))
	} else {
		b.WriteString("No chat messages recorded.")
	}
	if len(transcriptLines) > 0 {
		b.WriteString("\n\nTranscripts:\n")
		b.WriteString(strings.Join(transcriptLines, "\n"))
	}
	b.WriteString("\n\nNote: This is an automatically generated basic summary. AI generation was not available.")

	return &entity.MeetingSummary{
		MeetingId:       meeting.Id,
		Title:           meeting.Title,
		StartedAt:       meeting.StartedAt,
		EndedAt:         endedAt,
		DurationMinutes: durationMinutes(meeting.StartedAt, endedAt),
		Participants:    participants,
		Summary:         b.String(),
		Tasks:           nil,
		ChatHighlights:  extractHighlights(meeting.ChatMessages),
		CreatedAt:       time.Now(),
	}
}

// extractHighlights keeps every message for short chats and the last five
// for long ones.
func extractHighlights(messages []entity.ChatMessage) []string {
	selected := messages
	if len(messages) > 10 {
		selected = messages[len(messages)-5:]
	}
	return lo.Map(selected, func(m entity.ChatMessage, _ int) string {
		return fmt.Sprintf("%s: %s", m.DisplayName, m.Text)
	})
}

func durationMinutes(start, end time.Time) int {
	return int(end.Sub(start).Round(time.Minute).Minutes())
}
