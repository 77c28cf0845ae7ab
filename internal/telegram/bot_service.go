package telegram

import (
	"context"
	"html"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/complaint"
	"grievance/backend/internal/localization"
)

// StatusLookup resolves a tracking code to its public status.
type StatusLookup interface {
	PublicStatus(ctx context.Context, publicID string) (*complaint.PublicStatus, error)
}

// BotService answers citizen commands sent to the bot.
type BotService struct {
	sender    Sender
	lookup    StatusLookup
	localizer *localization.Localizer
	logger    *slog.Logger
}

func NewBotService(sender Sender, lookup StatusLookup, localizer *localization.Localizer, logger *slog.Logger) *BotService {
	return &BotService{
		sender:    sender,
		lookup:    lookup,
		localizer: localizer,
		logger:    logger,
	}
}

// Run long-polls bot for updates until ctx is done.
func (s *BotService) Run(ctx context.Context, bot *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)
	defer bot.StopReceivingUpdates()

	s.logger.Info("telegram bot listening for updates")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("telegram bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate replies to a single command message. Anything else is ignored.
func (s *BotService) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}
	lang := localization.DefaultLanguage
	if msg.From != nil && msg.From.LanguageCode != "" {
		lang = msg.From.LanguageCode
	}

	var reply string
	switch msg.Command() {
	case "start", "help":
		reply = s.localizer.GetString(lang, "bot_welcome")
	case "track":
		reply = s.track(ctx, lang, strings.TrimSpace(msg.CommandArguments()))
	default:
		reply = s.localizer.GetString(lang, "bot_unknown_command")
	}

	if _, err := s.sender.Send(HTMLMessage(msg.Chat.ID, reply)); err != nil {
		s.logger.Warn("failed to send bot reply", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (s *BotService) track(ctx context.Context, lang, publicID string) string {
	if publicID == "" {
		return html.EscapeString(s.localizer.GetString(lang, "bot_usage"))
	}
	st, err := s.lookup.PublicStatus(ctx, publicID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.Error("tracking lookup failed", "public_id", publicID, "error", err)
		}
		return s.localizer.GetString(lang, "bot_not_found")
	}

	reply := s.localizer.Format(lang, "bot_status",
		html.EscapeString(st.PublicID),
		html.EscapeString(st.Category),
		html.EscapeString(string(st.Priority)),
		html.EscapeString(string(st.Status)))
	if st.SLABreached {
		reply += "\n" + s.localizer.GetString(lang, "bot_breached")
	}
	return reply
}
