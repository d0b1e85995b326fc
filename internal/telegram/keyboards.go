package telegram

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"anonpair/backend/internal/models"
)

// Callback data prefixes. Data is "<prefix>:<payload>" and must stay under
// the 64 byte Bot API limit.
const (
	cbProfile       = "pf"
	cbSearchMenu    = "sf"
	cbSearchValue   = "sv"
	cbLanguage      = "lang"
	cbPremiumReview = "pr"
)

const (
	actionSkip        = "skip"
	actionGo          = "go"
	actionClear       = "clear"
	actionCancel      = "cancel"
	actionPremiumOnly = "premium"
	actionApprove     = "ok"
	actionDecline     = "no"
)

func callbackData(prefix string, parts ...string) string {
	data := prefix
	for _, p := range parts {
		data += ":" + p
	}
	return data
}

// choiceKeyboard lists values one per row as "<prefix>:<field>:<value>".
func (s *BotService) choiceKeyboard(lang, prefix, field string, values []string, skip bool) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(values)+1)
	for _, v := range values {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.valueLabel(lang, field, v), callbackData(prefix, field, v)),
		))
	}
	if skip {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.loc.GetString(lang, "btn_skip"), callbackData(prefix, actionSkip)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (s *BotService) skipKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(s.loc.GetString(lang, "btn_skip"), callbackData(cbProfile, actionSkip)),
	))
}

func (s *BotService) searchMenuKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	btn := func(key, action string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(s.loc.GetString(lang, key), callbackData(cbSearchMenu, action))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(btn("filter_gender", models.FilterGender), btn("filter_region", models.FilterRegion)),
		tgbotapi.NewInlineKeyboardRow(btn("filter_country", models.FilterCountry), btn("filter_language", models.FilterLanguage)),
		tgbotapi.NewInlineKeyboardRow(btn("filter_premium", actionPremiumOnly)),
		tgbotapi.NewInlineKeyboardRow(btn("btn_search", actionGo), btn("btn_clear", actionClear)),
		tgbotapi.NewInlineKeyboardRow(btn("btn_cancel", actionCancel)),
	)
}

func (s *BotService) languageKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, lang := range s.loc.Languages() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(s.loc.GetString(lang, "lang_"+lang), callbackData(cbLanguage, lang)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func reviewKeyboard(userID int64) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(userID, 10)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Approve", callbackData(cbPremiumReview, actionApprove, id)),
		tgbotapi.NewInlineKeyboardButtonData("❌ Decline", callbackData(cbPremiumReview, actionDecline, id)),
	))
}

func premiumRequestText(u *models.User) string {
	who := fmt.Sprintf("%d", u.ID)
	if u.Username != "" {
		who += " (@" + u.Username + ")"
	}
	return "Premium request from user " + who + ". Proof is above."
}

// valueLabel renders a profile or filter value for display.
func (s *BotService) valueLabel(lang, field, value string) string {
	if value == "" {
		return s.loc.GetString(lang, "not_set")
	}
	switch field {
	case models.FilterGender:
		return s.loc.GetString(lang, "gender_"+value)
	case models.FilterLanguage:
		return s.loc.GetString(lang, "lang_"+value)
	}
	return value
}
