package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"anonpair/backend/internal/chathub"
	"anonpair/backend/internal/complaint"
	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/models"
)

func (s *BotService) handleCommand(ctx context.Context, chatID int64, user *models.User, cmd, args string) {
	switch cmd {
	case "start":
		s.reply(ctx, chatID, user, "welcome")
		return
	case "help":
		s.reply(ctx, chatID, user, "help")
		return
	case "language":
		s.sendKeyboard(ctx, chatID, s.loc.GetString(langOf(user), "choose_language"), s.languageKeyboard())
		return
	}

	if s.cfg.IsAdmin(user.ID) && s.handleAdmin(ctx, chatID, user.ID, cmd, args) {
		return
	}
	if user.Blocked {
		s.reply(ctx, chatID, user, "blocked_user")
		return
	}

	switch cmd {
	case "profile":
		s.startProfile(ctx, chatID, user)
	case "find":
		s.sessions.Cancel(user.ID)
		s.find(ctx, chatID, user, chathub.FindRequest{UserID: user.ID})
	case "search":
		s.startSearch(ctx, chatID, user)
	case "stop":
		s.stop(ctx, chatID, user)
	case "next":
		s.next(ctx, chatID, user)
	case "cancel":
		s.cancel(ctx, chatID, user)
	case "upgrade":
		s.startUpgrade(ctx, chatID, user)
	case "report":
		s.startReport(ctx, chatID, user)
	default:
		s.reply(ctx, chatID, user, "unknown_command")
	}
}

func (s *BotService) find(ctx context.Context, chatID int64, user *models.User, req chathub.FindRequest) {
	res := s.manager.Find(ctx, req)
	if res.Status == chathub.FindFailed {
		logger.Error("find failed", "user", user.ID, "err", res.Err)
	}
	s.reply(ctx, chatID, user, findReplyKey(res.Status))
}

func (s *BotService) stop(ctx context.Context, chatID int64, user *models.User) {
	res := s.manager.End(ctx, user.ID)
	switch res.Status {
	case chathub.EndClosed:
		s.reply(ctx, chatID, user, "chat_ended")
	case chathub.EndNotInRoom:
		if s.manager.Cancel(user.ID) {
			s.reply(ctx, chatID, user, "search_cancelled")
			return
		}
		s.reply(ctx, chatID, user, "not_in_chat")
	default:
		s.reply(ctx, chatID, user, "try_again")
	}
}

// next ends the current chat and searches again, repeating the user's last
// filtered search while premium is active.
func (s *BotService) next(ctx context.Context, chatID int64, user *models.User) {
	s.sessions.Cancel(user.ID)
	req := chathub.FindRequest{UserID: user.ID}
	if user.PremiumActive(s.now()) {
		last := s.sessions.LastSearch(user.ID)
		req.Filters = last.Filters
		req.RequirePremium = last.RequirePremium
	}

	end, found := s.manager.Next(ctx, req)
	if end.Status == chathub.EndClosed {
		s.reply(ctx, chatID, user, "chat_ended")
	}
	if found.Status == chathub.FindFailed {
		logger.Error("next failed", "user", user.ID, "err", found.Err)
	}
	s.reply(ctx, chatID, user, findReplyKey(found.Status))
}

func (s *BotService) cancel(ctx context.Context, chatID int64, user *models.User) {
	if s.sessions.Cancel(user.ID) {
		s.reply(ctx, chatID, user, "cancelled")
		return
	}
	if s.manager.Cancel(user.ID) {
		s.reply(ctx, chatID, user, "search_cancelled")
		return
	}
	s.reply(ctx, chatID, user, "nothing_to_cancel")
}

func (s *BotService) startUpgrade(ctx context.Context, chatID int64, user *models.User) {
	if user.PremiumActive(s.now()) {
		s.reply(ctx, chatID, user, "already_premium", formatExpiry(user.PremiumExpiry))
		return
	}
	if s.cfg.Bot.AdminGroupID == 0 {
		s.reply(ctx, chatID, user, "upgrade_unavailable")
		return
	}
	s.sessions.Set(user.ID, Session{Step: StepUpgradeProof})
	s.reply(ctx, chatID, user, "upgrade_prompt")
}

// submitProof forwards payment proof to the admin group for review.
func (s *BotService) submitProof(ctx context.Context, chatID int64, user *models.User, msg *tgbotapi.Message) {
	c := extractContent(chatID, msg)
	if c.Kind != models.KindPhoto && c.Kind != models.KindDocument {
		s.reply(ctx, chatID, user, "upgrade_need_proof")
		return
	}

	group := s.cfg.Bot.AdminGroupID
	if err := s.out.CopyMessage(ctx, group, chatID, msg.MessageID); err != nil {
		logger.Error("forward proof failed", "user", user.ID, "err", err)
		s.reply(ctx, chatID, user, "try_again")
		return
	}
	s.sendKeyboard(ctx, group, premiumRequestText(user), reviewKeyboard(user.ID))

	s.sessions.Cancel(user.ID)
	s.reply(ctx, chatID, user, "proof_received")
}

func (s *BotService) startReport(ctx context.Context, chatID int64, user *models.User) {
	registry := s.manager.Registry()
	roomID, ok := registry.RoomFor(user.ID)
	if !ok {
		s.reply(ctx, chatID, user, "report_not_in_room")
		return
	}
	room, ok := registry.ActiveRoom(roomID)
	if !ok {
		s.reply(ctx, chatID, user, "report_not_in_room")
		return
	}
	partner, ok := room.Partner(user.ID)
	if !ok {
		s.reply(ctx, chatID, user, "room_error")
		return
	}

	s.sessions.Set(user.ID, Session{Step: StepReportReason, ReportRoom: roomID, ReportTarget: partner})
	s.reply(ctx, chatID, user, "report_reason_prompt")
}

func (s *BotService) submitReport(ctx context.Context, chatID int64, user *models.User, sess Session, reason string) {
	_, err := s.reports.File(ctx, complaint.Request{
		ReporterID: user.ID,
		ReportedID: sess.ReportTarget,
		RoomID:     sess.ReportRoom,
		Reason:     reason,
	})
	s.sessions.Cancel(user.ID)
	if err != nil {
		logger.Error("report failed", "user", user.ID, "err", err)
		s.reply(ctx, chatID, user, "try_again")
		return
	}
	s.reply(ctx, chatID, user, "report_submitted")
}

func (s *BotService) setLanguage(ctx context.Context, chatID int64, user *models.User, lang string) {
	if !s.loc.Supports(lang) {
		s.reply(ctx, chatID, user, "invalid_value")
		return
	}
	if err := s.store.UpsertProfile(ctx, user.ID, map[string]any{"language": lang}); err != nil {
		logger.Error("set language failed", "user", user.ID, "err", err)
		s.reply(ctx, chatID, user, "try_again")
		return
	}
	user.Language = lang
	s.reply(ctx, chatID, user, "language_changed")
}

func formatExpiry(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.DateOnly)
}
