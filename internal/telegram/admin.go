package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/models"
	"anonpair/backend/internal/storage"
)

// maxMessageLength is the Bot API limit for one text message.
const maxMessageLength = 4096

// handleAdmin runs an admin command and reports whether cmd was one.
// Replies are in English; the admin group is not localized.
func (s *BotService) handleAdmin(ctx context.Context, chatID, adminID int64, cmd, args string) bool {
	log := logger.With("admin", adminID, "cmd", cmd)

	switch cmd {
	case "block", "unblock":
		id, ok := s.parseTarget(ctx, chatID, cmd, args)
		if !ok {
			return true
		}
		var err error
		if cmd == "block" {
			err = s.reports.Block(ctx, id)
		} else {
			err = s.reports.Unblock(ctx, id)
		}
		if err != nil {
			log.Error("admin command failed", "target", id, "err", err)
			s.sendText(ctx, chatID, "Failed: "+err.Error())
			return true
		}
		s.sendText(ctx, chatID, fmt.Sprintf("User %d %sed.", id, cmd))

	case "blockword", "unblockword":
		word := storage.NormalizeWord(args)
		if word == "" {
			s.sendText(ctx, chatID, "Usage: /"+cmd+" <word>")
			return true
		}
		var err error
		if cmd == "blockword" {
			err = s.store.AddBlockedWord(ctx, word, adminID)
		} else {
			err = s.store.RemoveBlockedWord(ctx, word)
		}
		if err != nil {
			log.Error("admin command failed", "word", word, "err", err)
			s.sendText(ctx, chatID, "Failed: "+err.Error())
			return true
		}
		if cmd == "blockword" {
			s.sendText(ctx, chatID, fmt.Sprintf("Word %q blocked.", word))
		} else {
			s.sendText(ctx, chatID, fmt.Sprintf("Word %q unblocked.", word))
		}

	case "stats":
		st, err := s.store.Stats(ctx)
		if err != nil {
			log.Error("stats failed", "err", err)
			s.sendText(ctx, chatID, "Failed: "+err.Error())
			return true
		}
		s.sendText(ctx, chatID, s.statsText(st))

	case "roominfo":
		roomID := strings.TrimSpace(args)
		if roomID == "" {
			s.sendText(ctx, chatID, "Usage: /roominfo <room_id>")
			return true
		}
		room, err := s.manager.Registry().GetRoom(ctx, roomID)
		if err != nil {
			s.sendText(ctx, chatID, "Failed: "+err.Error())
			return true
		}
		if room == nil {
			s.sendText(ctx, chatID, "Room not found.")
			return true
		}
		status := "active"
		if !room.IsActive {
			status = "closed"
		}
		text := fmt.Sprintf("Room #%s (%s)\nUsers: %d, %d\nStarted: %s\nMessages: %d",
			room.RoomID, status, room.User1ID, room.User2ID,
			room.StartedAt.UTC().Format(time.DateTime), room.MessageCount)
		if room.EndedAt != nil {
			text += "\nEnded: " + room.EndedAt.UTC().Format(time.DateTime)
		}
		s.sendText(ctx, chatID, text)

	case "userinfo":
		id, ok := s.parseTarget(ctx, chatID, cmd, args)
		if !ok {
			return true
		}
		u, err := s.store.GetProfile(ctx, id)
		if err != nil {
			s.sendText(ctx, chatID, "Failed: "+err.Error())
			return true
		}
		if u == nil {
			s.sendText(ctx, chatID, "User not found.")
			return true
		}
		s.sendText(ctx, chatID, s.userInfoText(u))

	case "history":
		roomID := strings.TrimSpace(args)
		if roomID == "" {
			s.sendText(ctx, chatID, "Usage: /history <room_id>")
			return true
		}
		history, err := s.store.QueryChatLog(ctx, roomID, config.ReportLogLimit)
		if err != nil {
			s.sendText(ctx, chatID, "Failed: "+err.Error())
			return true
		}
		if len(history) == 0 {
			s.sendText(ctx, chatID, "No messages logged for room "+roomID+".")
			return true
		}
		lines := make([]string, len(history))
		for i, h := range history {
			lines[i] = h.Render()
		}
		for _, chunk := range chunkLines(lines, maxMessageLength) {
			s.sendText(ctx, chatID, chunk)
		}

	case "msg":
		idArg, text, _ := strings.Cut(strings.TrimSpace(args), " ")
		id, err := strconv.ParseInt(idArg, 10, 64)
		text = strings.TrimSpace(text)
		if err != nil || text == "" {
			s.sendText(ctx, chatID, "Usage: /msg <user_id> <text>")
			return true
		}
		lang := s.langFor(ctx, id)
		if err := s.out.SendText(ctx, id, s.loc.Format(lang, "admin_message", text)); err != nil {
			s.sendText(ctx, chatID, "Failed: "+err.Error())
			return true
		}
		s.sendText(ctx, chatID, fmt.Sprintf("Sent to %d.", id))

	case "grant":
		idArg, daysArg, _ := strings.Cut(strings.TrimSpace(args), " ")
		id, err := strconv.ParseInt(idArg, 10, 64)
		if err != nil {
			s.sendText(ctx, chatID, "Usage: /grant <user_id> [days]")
			return true
		}
		d := s.cfg.Premium.Duration
		if daysArg = strings.TrimSpace(daysArg); daysArg != "" {
			days, err := strconv.Atoi(daysArg)
			if err != nil || days <= 0 {
				s.sendText(ctx, chatID, "Usage: /grant <user_id> [days]")
				return true
			}
			d = time.Duration(days) * 24 * time.Hour
		}
		until, err := s.premium.GrantFor(ctx, id, d)
		if err != nil {
			s.sendText(ctx, chatID, "Failed: "+err.Error())
			return true
		}
		s.sendText(ctx, chatID, fmt.Sprintf("Premium granted to %d until %s.", id, until.Format(time.DateOnly)))

	case "sweep":
		n, err := s.premium.Sweep(ctx)
		if err != nil {
			s.sendText(ctx, chatID, "Failed: "+err.Error())
			return true
		}
		s.sendText(ctx, chatID, fmt.Sprintf("Premium sweep done, %d expired.", n))

	case "reports":
		reports, err := s.store.ListReports(ctx, true, 10)
		if err != nil {
			s.sendText(ctx, chatID, "Failed: "+err.Error())
			return true
		}
		if len(reports) == 0 {
			s.sendText(ctx, chatID, "No pending reports.")
			return true
		}
		lines := make([]string, len(reports))
		for i, r := range reports {
			lines[i] = fmt.Sprintf("%s %s: %d reported %d in #%s: %s",
				r.CreatedAt.UTC().Format(time.DateTime), r.ReportID, r.ReporterID, r.ReportedID, r.RoomID, r.Reason)
		}
		for _, chunk := range chunkLines(lines, maxMessageLength) {
			s.sendText(ctx, chatID, chunk)
		}

	default:
		return false
	}

	log.Info("admin command handled")
	return true
}

func (s *BotService) parseTarget(ctx context.Context, chatID int64, cmd, args string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || id == 0 {
		s.sendText(ctx, chatID, "Usage: /"+cmd+" <user_id>")
		return 0, false
	}
	return id, true
}

// handlePremiumReview handles "pr:ok:<id>" and "pr:no:<id>" from the admin group.
func (s *BotService) handlePremiumReview(ctx context.Context, adminID int64, data string) {
	if !s.cfg.IsAdmin(adminID) {
		logger.Warn("premium review from non-admin", "user", adminID)
		return
	}
	action, idArg, _ := strings.Cut(data, ":")
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		logger.Warn("malformed premium review", "data", data)
		return
	}
	group := s.cfg.Bot.AdminGroupID
	lang := s.langFor(ctx, id)

	switch action {
	case actionApprove:
		until, err := s.premium.Grant(ctx, id)
		if err != nil {
			logger.Error("premium grant failed", "user", id, "err", err)
			s.sendText(ctx, group, fmt.Sprintf("Granting premium to %d failed: %v", id, err))
			return
		}
		s.sendText(ctx, id, s.loc.Format(lang, "premium_approved", until.Format(time.DateOnly)))
		s.sendText(ctx, group, fmt.Sprintf("Premium approved for %d until %s by %d.", id, until.Format(time.DateOnly), adminID))
	case actionDecline:
		s.sendText(ctx, id, s.loc.GetString(lang, "premium_declined"))
		s.sendText(ctx, group, fmt.Sprintf("Premium declined for %d by %d.", id, adminID))
	default:
		logger.Warn("unknown premium review action", "data", data)
	}
}

func (s *BotService) statsText(st storage.Stats) string {
	registry := s.manager.Registry()
	return fmt.Sprintf(
		"Users: %d\nPremium: %d\nBlocked: %d\nActive rooms: %d (live %d)\nTotal rooms: %d\nMessages: %d\nReports: %d\nWaiting: %d",
		st.Users, st.Premium, st.Blocked, st.ActiveRooms, len(registry.ActiveRooms()),
		st.TotalRooms, st.Messages, st.Reports, s.manager.Pool().Len(),
	)
}

// userInfoText describes a profile for admins. Phone stays private.
func (s *BotService) userInfoText(u *models.User) string {
	premium := "none"
	switch {
	case u.PremiumActive(s.now()) && u.PremiumExpiry != nil:
		premium = "active until " + u.PremiumExpiry.UTC().Format(time.DateOnly)
	case u.PremiumActive(s.now()):
		premium = "active"
	case u.PremiumExpiry != nil:
		premium = "expired " + u.PremiumExpiry.UTC().Format(time.DateOnly)
	}
	blocked := "no"
	if u.Blocked {
		blocked = "yes"
	}
	username := "-"
	if u.Username != "" {
		username = "@" + u.Username
	}
	return fmt.Sprintf("User %d (%s)\nName: %s\nGender: %s\nRegion: %s\nCountry: %s\nLanguage: %s\nPremium: %s\nBlocked: %s\nJoined: %s",
		u.ID, username, orDash(u.Name), orDash(u.Gender), orDash(u.Region), orDash(u.Country), orDash(u.Language),
		premium, blocked, u.CreatedAt.UTC().Format(time.DateTime))
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

// chunkLines joins lines into messages no longer than limit bytes. A single
// line over the limit is cut.
func chunkLines(lines []string, limit int) []string {
	var chunks []string
	var b strings.Builder
	for _, line := range lines {
		if len(line) > limit {
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			line = line[:cut]
		}
		if b.Len() > 0 && b.Len()+1+len(line) > limit {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
