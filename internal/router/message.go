package router

import "fmt"

// Kind is the category of an inbound media message.
type Kind int

const (
	KindVoice Kind = iota + 1
	KindAudio
	KindVideo
	KindVideoNote
)

func (k Kind) String() string {
	switch k {
	case KindVoice:
		return "voice"
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	case KindVideoNote:
		return "video_note"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Media describes the attachment of a message.
type Media struct {
	FileID   string // resolvable to a download through the platform
	UniqueID string // stable across bots, used to name video notes
	FileName string // sender-declared, may be empty
	MimeType string // may be empty
	FileSize int64  // declared size in bytes, 0 when unknown
}

// Message is an inbound message routed by kind. Command is set instead of
// Media for bot commands such as /start.
type Message struct {
	ID       int
	ChatID   int64
	UserID   int64
	Username string
	Kind     Kind
	Media    Media
	Command  string
}
