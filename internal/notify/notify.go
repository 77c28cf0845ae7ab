// Package notify tells officers about complaints placed with them.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"grievance/backend/internal/localization"
	"grievance/backend/internal/models"
	"grievance/backend/internal/telegram"
)

const deadlineLayout = "02 Jan 2006 15:04 MST"

// Notifier is satisfied by every delivery channel.
type Notifier interface {
	OfficerAssigned(ctx context.Context, officer *models.Officer, c *models.Complaint) error
}

// Noop drops every notification.
type Noop struct{}

func (Noop) OfficerAssigned(context.Context, *models.Officer, *models.Complaint) error { return nil }

// Telegram sends assignment notices to the officer's linked chat.
type Telegram struct {
	sender    telegram.Sender
	localizer *localization.Localizer
	lang      string
	logger    *slog.Logger
}

func NewTelegram(sender telegram.Sender, localizer *localization.Localizer, lang string, logger *slog.Logger) *Telegram {
	if lang == "" {
		lang = localization.DefaultLanguage
	}
	return &Telegram{sender: sender, localizer: localizer, lang: lang, logger: logger}
}

// OfficerAssigned is a no-op for officers without a linked chat.
func (t *Telegram) OfficerAssigned(_ context.Context, officer *models.Officer, c *models.Complaint) error {
	if officer.TelegramChatID == 0 {
		t.logger.Debug("officer has no telegram chat, skipping notice", "officer_id", officer.ID)
		return nil
	}

	if _, err := t.sender.Send(telegram.HTMLMessage(officer.TelegramChatID, t.render(c))); err != nil {
		return fmt.Errorf("failed to notify officer %d: %w", officer.ID, err)
	}
	t.logger.Info("officer notified", "officer_id", officer.ID, "complaint_id", c.ID)
	return nil
}

func (t *Telegram) render(c *models.Complaint) string {
	location := c.Location
	if location == "" {
		location = t.localizer.GetString(t.lang, "unknown_location")
	}
	deadline := t.localizer.GetString(t.lang, "no_deadline")
	if c.SLADeadline != nil {
		deadline = c.SLADeadline.UTC().Format(deadlineLayout)
	}

	body := t.localizer.Format(t.lang, "assigned_body",
		html.EscapeString(c.Title),
		html.EscapeString(c.PublicID),
		html.EscapeString(string(c.Priority)),
		html.EscapeString(location),
		deadline)
	return "<b>" + html.EscapeString(t.localizer.GetString(t.lang, "assigned_title")) + "</b>\n\n" + body
}
