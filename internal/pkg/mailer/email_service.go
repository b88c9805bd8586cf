package mailer

import (
	"fmt"
	"strings"

	"ai-meeting-summary-be/internal/entity"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendMeetingSummary(summary *entity.MeetingSummary, toEmails []string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

func (s *emailService) SendMeetingSummary(summary *entity.MeetingSummary, toEmails []string) error {
	if len(toEmails) == 0 {
		return fmt.Errorf("no recipient emails provided")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.senderEmail, s.senderName))
	m.SetHeader("To", toEmails...)
	m.SetHeader("Subject", fmt.Sprintf("Meeting Summary: %s", summary.Title))
	m.SetBody("text/plain", buildTextBody(summary))
	m.AddAlternative("text/html", buildHTMLBody(summary))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send summary email: %w", err)
	}
	return nil
}

func buildHTMLBody(summary *entity.MeetingSummary) string {
	var participants strings.Builder
	for _, p := range summary.Participants {
		participants.WriteString(fmt.Sprintf("<li>%s</li>", p.DisplayName))
	}

	tasksHTML := "<p>No specific tasks were identified in this meeting.</p>"
	if len(summary.Tasks) > 0 {
		var items strings.Builder
		for _, task := range summary.Tasks {
			items.WriteString(`<li style="background: #fff; margin: 10px 0; padding: 10px; border-left: 3px solid #3498db;">`)
			items.WriteString(fmt.Sprintf("<strong>%s</strong>", task.Description))
			if task.AssignedToName != "" {
				items.WriteString(fmt.Sprintf("<br>Assigned to: %s", task.AssignedToName))
			}
			if task.Priority != "" {
				items.WriteString(fmt.Sprintf("<br>Priority: %s", task.Priority))
			}
			items.WriteString("</li>")
		}
		tasksHTML = fmt.Sprintf(`<h2>Tasks and Commitments</h2><ul style="list-style-type: none; padding: 0;">%s</ul>`, items.String())
	}

	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h1 style="color: #2c3e50;">Meeting Summary</h1>
			<div style="background: #f4f4f4; padding: 15px; border-radius: 5px; margin: 20px 0;">
				<p><strong>Title:</strong> %s</p>
				<p><strong>Date:</strong> %s</p>
				<p><strong>Duration:</strong> %d minutes</p>
			</div>
			<h2 style="color: #34495e;">Participants</h2>
			<ul>%s</ul>
			<h2 style="color: #34495e;">Summary</h2>
			<div style="white-space: pre-wrap;">%s</div>
			%s
			<hr>
			<p style="color: #7f8c8d; font-size: 12px;">
				This summary was generated automatically by our AI system.
			</p>
		</div>
	`,
		summary.Title,
		summary.StartedAt.Format("Jan 2, 2006 15:04"),
		summary.DurationMinutes,
		participants.String(),
		summary.Summary,
		tasksHTML,
	)
}

func buildTextBody(summary *entity.MeetingSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Meeting Summary: %s\n", summary.Title))
	b.WriteString(fmt.Sprintf("Date: %s\n", summary.StartedAt.Format("Jan 2, 2006 15:04")))
	b.WriteString(fmt.Sprintf("Duration: %d minutes\n\n", summary.DurationMinutes))

	b.WriteString("Participants:\n")
	for _, p := range summary.Participants {
		b.WriteString(fmt.Sprintf("- %s\n", p.DisplayName))
	}

	b.WriteString(fmt.Sprintf("\nSummary:\n%s\n\n", summary.Summary))

	b.WriteString("Tasks and Commitments:\n")
	if len(summary.Tasks) == 0 {
		b.WriteString("No specific tasks were identified.\n")
	}
	for _, task := range summary.Tasks {
		b.WriteString(fmt.Sprintf("- %s", task.Description))
		if task.AssignedToName != "" {
			b.WriteString(fmt.Sprintf(" (Assigned to: %s)", task.AssignedToName))
		}
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}
