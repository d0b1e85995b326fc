package telegram

import (
	"context"
	"slices"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"anonpair/backend/internal/chathub"
	"anonpair/backend/internal/config"
	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/models"
)

const maxCountryLength = 56

// handleStepInput feeds a non-command message to the active wizard.
func (s *BotService) handleStepInput(ctx context.Context, chatID int64, user *models.User, sess Session, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)

	switch sess.Step {
	case StepProfileCountry:
		if text == "" {
			s.reply(ctx, chatID, user, "enter_country")
			return
		}
		s.applyProfileValue(ctx, chatID, user, sess.Step, models.FilterCountry, text)
	case StepSearchValue:
		if text == "" {
			s.reply(ctx, chatID, user, "enter_filter_country")
			return
		}
		s.applySearchValue(ctx, chatID, user, sess.Field, text)
	case StepReportReason:
		if text == "" {
			s.reply(ctx, chatID, user, "report_reason_prompt")
			return
		}
		s.submitReport(ctx, chatID, user, sess, text)
	case StepUpgradeProof:
		s.submitProof(ctx, chatID, user, msg)
	default:
		s.reply(ctx, chatID, user, "use_buttons")
	}
}

func (s *BotService) startProfile(ctx context.Context, chatID int64, user *models.User) {
	s.sendText(ctx, chatID, s.profileText(user))
	s.sessions.Set(user.ID, Session{Step: StepProfileGender})
	s.promptProfileStep(ctx, chatID, user, StepProfileGender)
}

func (s *BotService) promptProfileStep(ctx context.Context, chatID int64, user *models.User, step Step) {
	lang := langOf(user)
	switch step {
	case StepProfileGender:
		s.sendKeyboard(ctx, chatID, s.loc.GetString(lang, "choose_gender"),
			s.choiceKeyboard(lang, cbProfile, models.FilterGender, config.Genders, true))
	case StepProfileRegion:
		s.sendKeyboard(ctx, chatID, s.loc.GetString(lang, "choose_region"),
			s.choiceKeyboard(lang, cbProfile, models.FilterRegion, config.Regions, true))
	case StepProfileCountry:
		s.sendKeyboard(ctx, chatID, s.loc.GetString(lang, "enter_country"), s.skipKeyboard(lang))
	case StepProfileLanguage:
		s.sendKeyboard(ctx, chatID, s.loc.GetString(lang, "choose_language"),
			s.choiceKeyboard(lang, cbProfile, models.FilterLanguage, config.Languages, true))
	}
}

// handleProfileChoice handles "pf:skip" and "pf:<field>:<value>".
func (s *BotService) handleProfileChoice(ctx context.Context, chatID int64, user *models.User, data string) {
	sess := s.sessions.Get(user.ID)
	field, ok := profileField(sess.Step)
	if !ok {
		s.reply(ctx, chatID, user, "wizard_expired")
		return
	}
	if data == actionSkip {
		s.advanceProfile(ctx, chatID, user, sess.Step)
		return
	}
	got, value, _ := strings.Cut(data, ":")
	if got != field {
		s.reply(ctx, chatID, user, "wizard_expired")
		return
	}
	s.applyProfileValue(ctx, chatID, user, sess.Step, field, value)
}

func (s *BotService) applyProfileValue(ctx context.Context, chatID int64, user *models.User, step Step, field, value string) {
	value, ok := normalizeChoice(field, value)
	if !ok {
		s.reply(ctx, chatID, user, "invalid_value")
		s.promptProfileStep(ctx, chatID, user, step)
		return
	}
	if err := s.store.UpsertProfile(ctx, user.ID, map[string]any{field: value}); err != nil {
		logger.Error("profile update failed", "user", user.ID, "field", field, "err", err)
		s.reply(ctx, chatID, user, "try_again")
		return
	}
	setAttribute(user, field, value)
	s.advanceProfile(ctx, chatID, user, step)
}

func (s *BotService) advanceProfile(ctx context.Context, chatID int64, user *models.User, step Step) {
	next := nextProfileStep(step)
	s.sessions.Set(user.ID, Session{Step: next})
	if next == StepIdle {
		s.reply(ctx, chatID, user, "profile_saved")
		s.sendText(ctx, chatID, s.profileText(user))
		return
	}
	s.promptProfileStep(ctx, chatID, user, next)
}

func (s *BotService) profileText(user *models.User) string {
	lang := langOf(user)
	premium := s.loc.GetString(lang, "premium_inactive")
	if user.PremiumActive(s.now()) {
		premium = s.loc.Format(lang, "premium_active", formatExpiry(user.PremiumExpiry))
	}
	return s.loc.Format(lang, "profile_view",
		s.valueLabel(lang, models.FilterGender, user.Gender),
		s.valueLabel(lang, models.FilterRegion, user.Region),
		s.valueLabel(lang, models.FilterCountry, user.Country),
		s.valueLabel(lang, models.FilterLanguage, user.Language),
		premium,
	)
}

func (s *BotService) startSearch(ctx context.Context, chatID int64, user *models.User) {
	if !user.PremiumActive(s.now()) {
		s.reply(ctx, chatID, user, "premium_required")
		return
	}
	if _, ok := s.manager.Registry().RoomFor(user.ID); ok {
		s.reply(ctx, chatID, user, "already_in_room")
		return
	}
	sess := Session{Step: StepSearchMenu, Search: s.sessions.LastSearch(user.ID)}
	s.sessions.Set(user.ID, sess)
	s.sendSearchMenu(ctx, chatID, user, sess.Search)
}

func (s *BotService) sendSearchMenu(ctx context.Context, chatID int64, user *models.User, q Search) {
	lang := langOf(user)
	premiumOnly := s.loc.GetString(lang, "no")
	if q.RequirePremium {
		premiumOnly = s.loc.GetString(lang, "yes")
	}
	text := s.loc.Format(lang, "search_menu",
		s.valueLabel(lang, models.FilterGender, q.Filters.Gender),
		s.valueLabel(lang, models.FilterRegion, q.Filters.Region),
		s.valueLabel(lang, models.FilterCountry, q.Filters.Country),
		s.valueLabel(lang, models.FilterLanguage, q.Filters.Language),
		premiumOnly,
	)
	s.sendKeyboard(ctx, chatID, text, s.searchMenuKeyboard(lang))
}

// handleSearchMenu handles "sf:<action>" buttons of the search menu.
func (s *BotService) handleSearchMenu(ctx context.Context, chatID int64, user *models.User, action string) {
	sess := s.sessions.Get(user.ID)
	if sess.Step != StepSearchMenu && sess.Step != StepSearchValue {
		s.reply(ctx, chatID, user, "wizard_expired")
		return
	}
	lang := langOf(user)

	switch action {
	case models.FilterGender:
		s.sendKeyboard(ctx, chatID, s.loc.GetString(lang, "choose_gender"),
			s.choiceKeyboard(lang, cbSearchValue, models.FilterGender, config.Genders, false))
	case models.FilterRegion:
		s.sendKeyboard(ctx, chatID, s.loc.GetString(lang, "choose_region"),
			s.choiceKeyboard(lang, cbSearchValue, models.FilterRegion, config.Regions, false))
	case models.FilterLanguage:
		s.sendKeyboard(ctx, chatID, s.loc.GetString(lang, "choose_language"),
			s.choiceKeyboard(lang, cbSearchValue, models.FilterLanguage, config.Languages, false))
	case models.FilterCountry:
		sess.Step = StepSearchValue
		sess.Field = models.FilterCountry
		s.sessions.Set(user.ID, sess)
		s.reply(ctx, chatID, user, "enter_filter_country")
	case actionPremiumOnly:
		sess.Search.RequirePremium = !sess.Search.RequirePremium
		sess.Step = StepSearchMenu
		s.sessions.Set(user.ID, sess)
		s.sendSearchMenu(ctx, chatID, user, sess.Search)
	case actionClear:
		sess = Session{Step: StepSearchMenu}
		s.sessions.Set(user.ID, sess)
		s.sendSearchMenu(ctx, chatID, user, sess.Search)
	case actionGo:
		s.sessions.Cancel(user.ID)
		s.sessions.Remember(user.ID, sess.Search)
		s.find(ctx, chatID, user, chathub.FindRequest{
			UserID:         user.ID,
			Filters:        sess.Search.Filters,
			RequirePremium: sess.Search.RequirePremium,
		})
	case actionCancel:
		s.sessions.Cancel(user.ID)
		s.reply(ctx, chatID, user, "cancelled")
	default:
		s.reply(ctx, chatID, user, "wizard_expired")
	}
}

func (s *BotService) applySearchValue(ctx context.Context, chatID int64, user *models.User, field, value string) {
	sess := s.sessions.Get(user.ID)
	if sess.Step != StepSearchMenu && sess.Step != StepSearchValue {
		s.reply(ctx, chatID, user, "wizard_expired")
		return
	}
	value, ok := normalizeChoice(field, value)
	if !ok {
		s.reply(ctx, chatID, user, "invalid_value")
		return
	}
	sess.Search.Filters = sess.Search.Filters.With(field, value)
	sess.Step = StepSearchMenu
	sess.Field = ""
	s.sessions.Set(user.ID, sess)
	s.sendSearchMenu(ctx, chatID, user, sess.Search)
}

// normalizeChoice validates a wizard value for field. Button fields must be
// one of the offered options; country is free text.
func normalizeChoice(field, value string) (string, bool) {
	value = strings.TrimSpace(value)
	switch field {
	case models.FilterGender:
		return value, slices.Contains(config.Genders, value)
	case models.FilterRegion:
		return value, slices.Contains(config.Regions, value)
	case models.FilterLanguage:
		return value, slices.Contains(config.Languages, value)
	case models.FilterCountry:
		n := utf8.RuneCountInString(value)
		return value, n > 0 && n <= maxCountryLength
	}
	return "", false
}

func setAttribute(u *models.User, field, value string) {
	switch field {
	case models.FilterGender:
		u.Gender = value
	case models.FilterRegion:
		u.Region = value
	case models.FilterCountry:
		u.Country = value
	case models.FilterLanguage:
		u.Language = value
	}
}
