package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"anonpair/backend/internal/models"
)

var errMissingFile = errors.New("media content has no file id")

// Transport sends messages through the Bot API. It implements
// chathub.Transport and oversight.Sender.
type Transport struct {
	api *tgbotapi.BotAPI
}

func NewTransport(api *tgbotapi.BotAPI) *Transport {
	return &Transport{api: api}
}

func (t *Transport) SendText(ctx context.Context, to int64, text string) error {
	return t.send(ctx, tgbotapi.NewMessage(to, text))
}

func (t *Transport) SendMedia(ctx context.Context, to int64, content models.Content) error {
	cfg, err := mediaConfig(to, content)
	if err != nil {
		return err
	}
	return t.send(ctx, cfg)
}

// CopyMessage copies a message by reference, which works for every kind
// including ones the relay does not model.
func (t *Transport) CopyMessage(ctx context.Context, to int64, fromChat int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Request(tgbotapi.NewCopyMessage(to, fromChat, messageID)); err != nil {
		return fmt.Errorf("copy message %d to %d: %w", messageID, to, err)
	}
	return nil
}

// SendKeyboard sends text with an inline keyboard.
func (t *Transport) SendKeyboard(ctx context.Context, to int64, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(to, text)
	msg.ReplyMarkup = markup
	return t.send(ctx, msg)
}

// AnswerCallback stops the loading state of an inline button.
func (t *Transport) AnswerCallback(callbackID, text string) error {
	_, err := t.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func (t *Transport) send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Send(c); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// mediaConfig builds the Bot API request for a media kind. Text goes in the
// caption where the kind supports one.
func mediaConfig(chatID int64, c models.Content) (tgbotapi.Chattable, error) {
	if c.FileID == "" {
		return nil, errMissingFile
	}
	file := tgbotapi.FileID(c.FileID)

	switch c.Kind {
	case models.KindPhoto:
		cfg := tgbotapi.NewPhoto(chatID, file)
		cfg.Caption = c.Text
		return cfg, nil
	case models.KindDocument:
		cfg := tgbotapi.NewDocument(chatID, file)
		cfg.Caption = c.Text
		return cfg, nil
	case models.KindVoice:
		cfg := tgbotapi.NewVoice(chatID, file)
		cfg.Caption = c.Text
		return cfg, nil
	case models.KindVideo:
		cfg := tgbotapi.NewVideo(chatID, file)
		cfg.Caption = c.Text
		return cfg, nil
	case models.KindAudio:
		cfg := tgbotapi.NewAudio(chatID, file)
		cfg.Caption = c.Text
		return cfg, nil
	case models.KindAnimation:
		cfg := tgbotapi.NewAnimation(chatID, file)
		cfg.Caption = c.Text
		return cfg, nil
	case models.KindSticker:
		return tgbotapi.NewSticker(chatID, file), nil
	case models.KindVideoNote:
		return tgbotapi.NewVideoNote(chatID, 0, file), nil
	}
	return nil, fmt.Errorf("kind %q cannot be sent as media", c.Kind)
}
