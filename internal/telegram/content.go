package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"anonpair/backend/internal/models"
)

// extractContent converts an inbound message into relay content. Kinds the
// relay does not model become KindOther and are copied by reference.
// Animations also carry a document, so they are checked first.
func extractContent(chatID int64, msg *tgbotapi.Message) models.Content {
	c := models.Content{
		Kind:            models.KindOther,
		Text:            msg.Caption,
		SourceChatID:    chatID,
		SourceMessageID: msg.MessageID,
	}

	switch {
	case msg.Text != "":
		c.Kind = models.KindText
		c.Text = msg.Text
	case len(msg.Photo) > 0:
		c.Kind = models.KindPhoto
		c.FileID = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Animation != nil:
		c.Kind = models.KindAnimation
		c.FileID = msg.Animation.FileID
	case msg.Document != nil:
		c.Kind = models.KindDocument
		c.FileID = msg.Document.FileID
	case msg.Voice != nil:
		c.Kind = models.KindVoice
		c.FileID = msg.Voice.FileID
	case msg.Video != nil:
		c.Kind = models.KindVideo
		c.FileID = msg.Video.FileID
	case msg.Sticker != nil:
		c.Kind = models.KindSticker
		c.FileID = msg.Sticker.FileID
		c.Text = ""
	case msg.Audio != nil:
		c.Kind = models.KindAudio
		c.FileID = msg.Audio.FileID
	case msg.VideoNote != nil:
		c.Kind = models.KindVideoNote
		c.FileID = msg.VideoNote.FileID
		c.Text = ""
	}
	return c
}

// parseCommand splits "/cmd@bot args" into its parts.
func parseCommand(text string) (cmd, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}
