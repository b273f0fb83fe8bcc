package archive

import (
	"fmt"
	"path/filepath"

	"github.com/user/archive-bot-go/internal/model"
)

// Classification is the outcome of inspecting one message against a
// subscriber's accepted-media configuration. Type is empty when nothing
// should be archived; Notice carries an optional verbose-mode reply that
// may be sent even when no type was found.
type Classification struct {
	Type   model.FileType
	FileID string
	Notice string
}

// Classify inspects a message for archivable media. The photo check runs
// first, the document check second; when a message carries both and both
// are accepted, the document wins (last-match-wins).
func Classify(msg *Message, sub *model.Subscriber) Classification {
	accepted := AcceptedMediaSet(sub.AcceptedMedia)

	var c Classification

	if msg.Photo != nil {
		if accepted["photo"] {
			c.Type = model.FileTypePhoto
			c.FileID = msg.Photo.FileID
		} else if sub.Verbose {
			c.Notice = fmt.Sprintf("Please send uncompressed files @%s :(.", msg.Sender.Username)
		}
	}

	if msg.Document != nil && accepted["document"] {
		c.Type = model.FileTypeDocument
		c.FileID = msg.Document.FileID
	}

	return c
}

// CandidateFileName derives the on-disk name for a classified message.
// Documents keep their transport-provided name when it carries one;
// photos are named by their stable unique ID so re-uploads of the same
// photo collide with the first copy.
func CandidateFileName(msg *Message, fileType model.FileType) string {
	switch fileType {
	case model.FileTypeDocument:
		if msg.Document == nil {
			return ""
		}
		// Base strips any path components a hostile client may have
		// smuggled into the transport-provided name.
		name := filepath.Base(msg.Document.FileName)
		if name == "" || name == "." || name == string(filepath.Separator) {
			name = msg.Document.FileUniqueID
		}
		if name == "" {
			name = msg.Document.FileID
		}
		return name
	case model.FileTypePhoto:
		if msg.Photo == nil {
			return ""
		}
		id := msg.Photo.FileUniqueID
		if id == "" {
			id = msg.Photo.FileID
		}
		return id + ".jpg"
	default:
		return ""
	}
}
