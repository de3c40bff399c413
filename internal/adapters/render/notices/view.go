package notices

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hms-project/hmsctl/internal/domain"
)

type RenderOptions struct {
	Now time.Time
	// Subject is shown in the header when set.
	Subject string
}

func renderView(notices []domain.Notice, opts RenderOptions, s styles) string {
	header := fmt.Sprintf("notices: %d", len(notices))
	if opts.Subject != "" {
		header = fmt.Sprintf("%s | patient: %s", header, opts.Subject)
	}

	lines := []string{
		s.title.Render("Patient Notices"),
		s.header.Render(header),
	}

	if len(notices) == 0 {
		lines = append(lines, s.empty.Render("No pending notices."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, notice := range notices {
		lines = append(lines, s.section.Render(renderNotice(notice, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderNotice(notice domain.Notice, opts RenderOptions, s styles) string {
	badge := s.paymentBadge.Render("[payment]")
	if notice.Kind == domain.NoticeKindRegistration {
		badge = s.visitBadge.Render("[visit]")
	}

	title := lipgloss.JoinHorizontal(lipgloss.Top, badge, " ", s.message.Render(notice.Message))
	meta := s.meta.Render(fmt.Sprintf("%s, %s", sourceLabel(notice), formatAge(notice.CreatedAt, opts.Now)))

	return lipgloss.JoinVertical(lipgloss.Left, title, meta)
}

func sourceLabel(notice domain.Notice) string {
	switch {
	case notice.PaymentID != nil:
		return fmt.Sprintf("payment #%d", *notice.PaymentID)
	case notice.RegistrationID != nil:
		return fmt.Sprintf("registration #%d", *notice.RegistrationID)
	default:
		return notice.Key
	}
}

func formatAge(createdAt, now time.Time) string {
	if createdAt.IsZero() {
		return "checked at unknown time"
	}
	if now.IsZero() {
		return "checked " + createdAt.Format(time.RFC3339)
	}

	elapsed := now.Sub(createdAt)
	if elapsed < time.Minute {
		return "checked just now"
	}
	if elapsed < time.Hour {
		minutes := int(math.Floor(elapsed.Minutes()))
		suffix := "minutes"
		if minutes == 1 {
			suffix = "minute"
		}
		return fmt.Sprintf("checked %d %s ago", minutes, suffix)
	}

	return "checked at " + createdAt.Format("15:04 on 02 Jan")
}
