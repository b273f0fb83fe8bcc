package archive

import (
	"strings"

	"github.com/user/archive-bot-go/internal/model"
)

// ShouldAccept decides whether an inbound message enters the archive
// pipeline at all. selfID is the bot's own user ID; messages the bot
// forwarded to itself are rejected to prevent loops. Command messages
// are handled exclusively by the command router and never ingested.
func ShouldAccept(sub *model.Subscriber, msg *Message, selfID int64) bool {
	if !sub.Active {
		return false
	}
	if strings.HasPrefix(msg.Text, "/") {
		return false
	}
	if msg.Sender.ID == selfID {
		return false
	}
	return true
}
