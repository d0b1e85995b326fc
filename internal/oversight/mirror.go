package oversight

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/models"
	"anonpair/backend/internal/storage"
)

// Sender is the outbound transport used to reach the admin group.
type Sender interface {
	SendText(ctx context.Context, to int64, text string) error
	SendMedia(ctx context.Context, to int64, content models.Content) error
	CopyMessage(ctx context.Context, to int64, fromChat int64, messageID int) error
}

type item struct {
	relay  *relayItem
	notice string
	queued time.Time
}

type relayItem struct {
	room    models.ChatRoom
	record  models.ChatHistory
	content models.Content
}

// Mirror copies relayed messages and system notices to the admin group and
// the live feed. Publishing never blocks; when the queue is full the item
// is dropped with a warning.
type Mirror struct {
	groupID  int64
	sender   Sender
	profiles storage.ProfileStore
	feed     *Feed
	queue    chan item
}

func NewMirror(groupID int64, sender Sender, profiles storage.ProfileStore, feed *Feed) *Mirror {
	return &Mirror{
		groupID:  groupID,
		sender:   sender,
		profiles: profiles,
		feed:     feed,
		queue:    make(chan item, config.OversightQueueSize),
	}
}

// MirrorRelay queues a delivered message for oversight.
func (m *Mirror) MirrorRelay(room models.ChatRoom, record models.ChatHistory, content models.Content) {
	m.enqueue(item{relay: &relayItem{room: room, record: record, content: content}, queued: time.Now()})
}

// Notice queues a plain text notice for the admin group.
func (m *Mirror) Notice(text string) {
	m.enqueue(item{notice: text, queued: time.Now()})
}

func (m *Mirror) enqueue(it item) {
	select {
	case m.queue <- it:
	default:
		logger.Warn("oversight queue full, dropping item")
	}
}

// Run delivers queued items until ctx is done, then drains what is left.
func (m *Mirror) Run(ctx context.Context) {
	logger.Info("oversight mirror started", "group", m.groupID)
	for {
		select {
		case <-ctx.Done():
			m.drain()
			logger.Info("oversight mirror stopped")
			return
		case it := <-m.queue:
			m.handle(ctx, it)
		}
	}
}

func (m *Mirror) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), config.DeliveryTimeout)
	defer cancel()
	for {
		select {
		case it := <-m.queue:
			m.handle(ctx, it)
		default:
			return
		}
	}
}

func (m *Mirror) handle(ctx context.Context, it item) {
	var err error
	if it.relay != nil {
		err = m.relay(ctx, it.relay)
	} else {
		if m.feed != nil {
			m.feed.Broadcast(Event{Type: "notice", Text: it.notice, At: it.queued.UTC()})
		}
		if m.groupID != 0 {
			err = m.sender.SendText(ctx, m.groupID, it.notice)
		}
	}
	if err != nil {
		logger.Warn("oversight delivery failed", "err", err)
	}
}

func (m *Mirror) relay(ctx context.Context, r *relayItem) error {
	if m.feed != nil {
		m.feed.Broadcast(Event{
			Type:        "relay",
			RoomID:      r.record.RoomID,
			SenderID:    r.record.SenderID,
			RecipientID: r.record.RecipientID,
			Kind:        string(r.record.Kind),
			Text:        r.record.Text,
			At:          r.record.SentAt,
		})
	}
	if m.groupID == 0 {
		return nil
	}

	sender, err := m.profiles.GetProfile(ctx, r.record.SenderID)
	if err != nil {
		return fmt.Errorf("sender profile: %w", err)
	}
	recipient, err := m.profiles.GetProfile(ctx, r.record.RecipientID)
	if err != nil {
		return fmt.Errorf("recipient profile: %w", err)
	}
	header := Header(r.room, r.record, sender, recipient)
	label := kindLabel(r.record.Kind)

	switch {
	case r.content.Kind == models.KindText:
		return m.sender.SendText(ctx, m.groupID, header+"\nMessage: "+r.content.Text)

	case r.content.Kind.HasCaption():
		c := r.content
		c.Text = header + "\n" + label
		if r.content.Text != "" {
			c.Text += "\nCaption: " + r.content.Text
		}
		return m.sender.SendMedia(ctx, m.groupID, c)

	case r.content.Kind.IsMedia():
		if err := m.sender.SendMedia(ctx, m.groupID, r.content); err != nil {
			return err
		}
		return m.sender.SendText(ctx, m.groupID, header+"\n"+label+" sent above")

	default:
		if err := m.sender.CopyMessage(ctx, m.groupID, r.content.SourceChatID, r.content.SourceMessageID); err != nil {
			return m.sender.SendText(ctx, m.groupID, header+"\nCould not copy message: "+err.Error())
		}
		return m.sender.SendText(ctx, m.groupID, header+"\nAbove: unsupported message type")
	}
}

// Header renders the oversight preamble. It carries ids and public profile
// attributes only.
func Header(room models.ChatRoom, record models.ChatHistory, sender, recipient *models.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room #%s\n", room.RoomID)
	fmt.Fprintf(&b, "Sender: %d%s\n", record.SenderID, describe(sender))
	fmt.Fprintf(&b, "Receiver: %d%s\n", record.RecipientID, describe(recipient))
	fmt.Fprintf(&b, "Room created: %s", room.StartedAt.UTC().Format(time.DateTime))
	return b.String()
}

func describe(u *models.User) string {
	attrs := u.PublicAttributes()
	if len(attrs) == 0 {
		return ""
	}

	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if v != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		v := attrs[k]
		if k == "username" {
			v = "@" + v
		}
		parts[i] = k + "=" + v
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func kindLabel(k models.ContentKind) string {
	switch k {
	case models.KindPhoto:
		return "[Photo message]"
	case models.KindVideo:
		return "[Video message]"
	case models.KindVideoNote:
		return "[Video note]"
	case models.KindAudio:
		return "[Audio message]"
	case models.KindVoice:
		return "[Voice message]"
	case models.KindDocument:
		return "[Document message]"
	case models.KindSticker:
		return "[Sticker]"
	case models.KindAnimation:
		return "[Animation]"
	}
	return "[" + string(k) + "]"
}

// ExpiryNotice formats the batched premium expiry notice.
func ExpiryNotice(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("Premium expired for %d user(s): %s", len(ids), strings.Join(parts, ", "))
}
