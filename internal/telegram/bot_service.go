// Package telegram handles the integration with the Telegram Bot API.
// It receives updates, drives the chathub manager and the conversational
// wizards, and sends localized replies.
package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"anonpair/backend/internal/chathub"
	"anonpair/backend/internal/complaint"
	"anonpair/backend/internal/config"
	"anonpair/backend/internal/localization"
	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/models"
	"anonpair/backend/internal/premium"
	"anonpair/backend/internal/storage"
)

// messenger is the outbound surface the bot replies through.
type messenger interface {
	SendText(ctx context.Context, to int64, text string) error
	SendKeyboard(ctx context.Context, to int64, text string, markup tgbotapi.InlineKeyboardMarkup) error
	CopyMessage(ctx context.Context, to int64, fromChat int64, messageID int) error
	AnswerCallback(callbackID, text string) error
}

// Deps are the collaborators of a BotService.
type Deps struct {
	// API is only needed by Run. Handlers never touch it directly.
	API       *tgbotapi.BotAPI
	Out       messenger
	Manager   *chathub.Manager
	Store     storage.Storage
	Reports   *complaint.Service
	Premium   *premium.Monitor
	Localizer *localization.Localizer
	Config    *config.Config
}

// BotService is responsible for receiving Telegram updates and routing them
// to the chat manager.
type BotService struct {
	api      *tgbotapi.BotAPI
	out      messenger
	manager  *chathub.Manager
	store    storage.Storage
	reports  *complaint.Service
	premium  *premium.Monitor
	loc      *localization.Localizer
	cfg      *config.Config
	sessions *Sessions
	now      func() time.Time
}

var _ chathub.Notifier = (*BotService)(nil)

// NewBotService creates a new BotService instance.
func NewBotService(d Deps) *BotService {
	return &BotService{
		api:      d.API,
		out:      d.Out,
		manager:  d.Manager,
		store:    d.Store,
		reports:  d.Reports,
		premium:  d.Premium,
		loc:      d.Localizer,
		cfg:      d.Config,
		sessions: NewSessions(),
		now:      time.Now,
	}
}

// Run is the main loop for receiving Telegram updates. It returns after ctx
// is done and every queued update has been handled.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(config.UpdateTimeout / time.Second)
	updates := s.api.GetUpdatesChan(u)

	d := newDispatcher(config.UpdateWorkers, s.HandleUpdate)
	d.start(ctx)
	logger.Info("telegram bot started", "account", s.api.Self.UserName, "workers", config.UpdateWorkers)

	for {
		select {
		case <-ctx.Done():
			s.api.StopReceivingUpdates()
			d.stop()
			logger.Info("telegram bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				d.stop()
				return
			}
			d.dispatch(update)
		}
	}
}

// HandleUpdate processes one update with its own deadline.
func (s *BotService) HandleUpdate(parent context.Context, u tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), config.UpdateTimeout)
	defer cancel()

	switch {
	case u.Message != nil:
		s.handleMessage(ctx, u.Message.Chat.ID, u.Message)
	case u.CallbackQuery != nil:
		s.handleCallback(ctx, u.CallbackQuery)
	}
}

// handleMessage routes a message: commands first, then an active wizard,
// then the relay.
func (s *BotService) handleMessage(ctx context.Context, chatID int64, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}
	uid := msg.From.ID
	cmd, args, isCommand := parseCommand(msg.Text)

	if chatID != uid {
		// Group chats only take admin commands.
		if isCommand && s.cfg.IsAdmin(uid) {
			s.handleAdmin(ctx, chatID, uid, cmd, args)
		}
		return
	}

	user, created, err := s.store.EnsureProfile(ctx, uid, msg.From.UserName, displayName(msg.From))
	if err != nil {
		logger.Error("ensure profile failed", "user", uid, "err", err)
		s.sendText(ctx, chatID, s.loc.GetString(localization.DefaultLanguage, "try_again"))
		return
	}
	if created {
		logger.Info("new user", "user", uid)
	}

	if isCommand {
		s.handleCommand(ctx, chatID, user, cmd, args)
		return
	}
	if user.Blocked {
		s.reply(ctx, chatID, user, "blocked_user")
		return
	}

	if sess := s.sessions.Get(uid); sess.Step != StepIdle {
		s.handleStepInput(ctx, chatID, user, sess, msg)
		return
	}
	s.relay(ctx, chatID, user, msg)
}

func (s *BotService) relay(ctx context.Context, chatID int64, user *models.User, msg *tgbotapi.Message) {
	out := s.manager.Relay(ctx, chathub.Inbound{
		SenderID: user.ID,
		Content:  extractContent(chatID, msg),
		At:       s.now(),
	})
	if out.Rejected() {
		s.reply(ctx, chatID, user, relayReplyKey(out.Status))
	}
}

func (s *BotService) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil {
		return
	}
	if err := s.out.AnswerCallback(cq.ID, ""); err != nil {
		logger.Warn("failed to answer callback", "err", err)
	}

	prefix, rest, _ := strings.Cut(cq.Data, ":")
	if prefix == cbPremiumReview {
		s.handlePremiumReview(ctx, cq.From.ID, rest)
		return
	}

	uid := cq.From.ID
	user, _, err := s.store.EnsureProfile(ctx, uid, cq.From.UserName, displayName(cq.From))
	if err != nil {
		logger.Error("ensure profile failed", "user", uid, "err", err)
		return
	}
	if user.Blocked {
		s.reply(ctx, uid, user, "blocked_user")
		return
	}

	switch prefix {
	case cbProfile:
		s.handleProfileChoice(ctx, uid, user, rest)
	case cbSearchMenu:
		s.handleSearchMenu(ctx, uid, user, rest)
	case cbSearchValue:
		field, value, _ := strings.Cut(rest, ":")
		s.applySearchValue(ctx, uid, user, field, value)
	case cbLanguage:
		s.setLanguage(ctx, uid, user, rest)
	default:
		logger.Debug("unknown callback", "data", cq.Data)
	}
}

// Matched tells a user a partner was found on their behalf.
func (s *BotService) Matched(ctx context.Context, userID, partnerID int64, roomID string) error {
	return s.out.SendText(ctx, userID, s.loc.GetString(s.langFor(ctx, userID), "match_found"))
}

// PartnerLeft tells a user their partner ended the chat.
func (s *BotService) PartnerLeft(ctx context.Context, userID int64, roomID string) error {
	return s.out.SendText(ctx, userID, s.loc.GetString(s.langFor(ctx, userID), "partner_left"))
}

// SearchDropped tells a waiting user their search ended without a match.
func (s *BotService) SearchDropped(ctx context.Context, userID int64, status chathub.FindStatus) error {
	return s.out.SendText(ctx, userID, s.loc.GetString(s.langFor(ctx, userID), findReplyKey(status)))
}

func (s *BotService) langFor(ctx context.Context, userID int64) string {
	u, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		logger.Warn("profile lookup for language failed", "user", userID, "err", err)
	}
	return langOf(u)
}

func langOf(u *models.User) string {
	if u == nil || u.Language == "" {
		return localization.DefaultLanguage
	}
	return u.Language
}

func (s *BotService) reply(ctx context.Context, chatID int64, user *models.User, key string, args ...any) {
	s.sendText(ctx, chatID, s.loc.Format(langOf(user), key, args...))
}

func (s *BotService) sendText(ctx context.Context, chatID int64, text string) {
	if err := s.out.SendText(ctx, chatID, text); err != nil {
		logger.Warn("reply failed", "chat", chatID, "err", err)
	}
}

func (s *BotService) sendKeyboard(ctx context.Context, chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	if err := s.out.SendKeyboard(ctx, chatID, text, markup); err != nil {
		logger.Warn("keyboard reply failed", "chat", chatID, "err", err)
	}
}

func displayName(u *tgbotapi.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func relayReplyKey(status chathub.RelayStatus) string {
	switch status {
	case chathub.RelayNotInRoom:
		return "not_in_chat"
	case chathub.RelayBlockedContent:
		return "blocked_content"
	case chathub.RelayRateLimited:
		return "rate_limited"
	case chathub.RelayRoomError:
		return "room_error"
	case chathub.RelayDeliveryFailed:
		return "delivery_failed"
	}
	return "try_again"
}

func findReplyKey(status chathub.FindStatus) string {
	switch status {
	case chathub.FindMatched:
		return "match_found"
	case chathub.FindQueued:
		return "searching"
	case chathub.FindAlreadyInRoom:
		return "already_in_room"
	case chathub.FindBlocked:
		return "blocked_user"
	case chathub.FindPremiumRequired:
		return "premium_required"
	case chathub.FindProfileMissing:
		return "profile_missing"
	}
	return "try_again"
}
