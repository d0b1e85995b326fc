package models

// ContentKind is the Telegram message kind carried through the relay.
type ContentKind string

const (
	KindText      ContentKind = "text"
	KindPhoto     ContentKind = "photo"
	KindDocument  ContentKind = "document"
	KindVoice     ContentKind = "voice"
	KindVideo     ContentKind = "video"
	KindSticker   ContentKind = "sticker"
	KindAudio     ContentKind = "audio"
	KindAnimation ContentKind = "animation"
	KindVideoNote ContentKind = "video_note"
	KindOther     ContentKind = "other"
)

// Content is one inbound message as the relay sees it.
type Content struct {
	Kind ContentKind
	// Text is the message text, or the caption for media.
	Text string
	// FileID is the Telegram file id for media kinds.
	FileID string
	// SourceChatID and SourceMessageID locate the original message so
	// unsupported kinds can be copied by reference.
	SourceChatID    int64
	SourceMessageID int
}

// IsMedia reports whether the kind is sent by file id.
func (k ContentKind) IsMedia() bool {
	switch k {
	case KindPhoto, KindDocument, KindVoice, KindVideo, KindSticker,
		KindAudio, KindAnimation, KindVideoNote:
		return true
	}
	return false
}

// HasCaption reports whether Telegram accepts a caption for the kind.
func (k ContentKind) HasCaption() bool {
	switch k {
	case KindPhoto, KindDocument, KindVoice, KindVideo, KindAudio, KindAnimation:
		return true
	}
	return false
}
