package archive

import (
	"github.com/user/archive-bot-go/internal/model"
)

// Sender identifies the attributed author of a message. For forwarded
// messages this is the original sender, not the relaying account.
type Sender struct {
	ID          int64
	Username    string
	DisplayName string
}

// Attachment describes one media object carried by a message.
type Attachment struct {
	FileID       string
	FileUniqueID string
	// FileName is the transport-provided name; only documents carry one.
	FileName string
}

// Message is the transport-neutral view of one inbound chat message.
// A message may carry both a photo and a document at once.
type Message struct {
	ChatID    int64
	ChatType  model.ChatType
	MessageID int
	Text      string
	Sender    Sender
	Photo     *Attachment
	Document  *Attachment
}
