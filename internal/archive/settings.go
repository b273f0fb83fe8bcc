package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/user/archive-bot-go/internal/model"
)

// The configuration mutators below are the surface the command layer
// calls into. Each one takes the chat's lock, so a rename can never race
// an in-flight path resolution for the same chat, mutates the subscriber
// row and commits before returning.

// Rename changes a chat's channel name, moving the channel directory
// along with it. ErrPathEscape and ErrNameCollision leave both the
// stored name and the disk untouched.
func (p *Pipeline) Rename(ctx context.Context, chatID int64, chatType model.ChatType, newName string) error {
	p.chats.Lock(chatID)
	defer p.chats.Unlock(chatID)

	sub, err := p.store.GetOrCreateSubscriber(ctx, chatID, chatType, newName)
	if err != nil {
		return err
	}

	oldName := sub.ChannelName
	if err := p.resolver.Rename(oldName, newName); err != nil {
		return err
	}

	sub.ChannelName = newName
	if err := p.store.SaveSubscriber(ctx, sub); err != nil {
		// Move the directory back so the stored name and the disk stay
		// in agreement.
		if rbErr := p.resolver.Rename(newName, oldName); rbErr != nil {
			log.Error().Err(rbErr).Str("channel", oldName).Msg("Failed to roll back channel directory move")
		}
		return err
	}

	return nil
}

// SetVerbose parses a user-supplied boolean and stores it
func (p *Pipeline) SetVerbose(ctx context.Context, chatID int64, chatType model.ChatType, raw string) (bool, error) {
	value, err := ParseBool(raw)
	if err != nil {
		return false, err
	}

	p.chats.Lock(chatID)
	defer p.chats.Unlock(chatID)

	sub, err := p.store.GetOrCreateSubscriber(ctx, chatID, chatType, DefaultChannelName(chatID))
	if err != nil {
		return false, err
	}

	sub.Verbose = value
	return value, p.store.SaveSubscriber(ctx, sub)
}

// SetSortByUser parses a user-supplied boolean and stores it
func (p *Pipeline) SetSortByUser(ctx context.Context, chatID int64, chatType model.ChatType, raw string) (bool, error) {
	value, err := ParseBool(raw)
	if err != nil {
		return false, err
	}

	p.chats.Lock(chatID)
	defer p.chats.Unlock(chatID)

	sub, err := p.store.GetOrCreateSubscriber(ctx, chatID, chatType, DefaultChannelName(chatID))
	if err != nil {
		return false, err
	}

	sub.SortByUser = value
	return value, p.store.SaveSubscriber(ctx, sub)
}

// SetAcceptedMedia normalizes the requested media tokens and stores
// them, returning the persisted form
func (p *Pipeline) SetAcceptedMedia(ctx context.Context, chatID int64, chatType model.ChatType, args []string) (string, error) {
	p.chats.Lock(chatID)
	defer p.chats.Unlock(chatID)

	sub, err := p.store.GetOrCreateSubscriber(ctx, chatID, chatType, DefaultChannelName(chatID))
	if err != nil {
		return "", err
	}

	sub.AcceptedMedia = ParseAcceptedMedia(args)
	return sub.AcceptedMedia, p.store.SaveSubscriber(ctx, sub)
}

// Activate turns archiving on for a chat
func (p *Pipeline) Activate(ctx context.Context, chatID int64, chatType model.ChatType) error {
	return p.setActive(ctx, chatID, chatType, true)
}

// Deactivate turns archiving off for a chat
func (p *Pipeline) Deactivate(ctx context.Context, chatID int64, chatType model.ChatType) error {
	return p.setActive(ctx, chatID, chatType, false)
}

func (p *Pipeline) setActive(ctx context.Context, chatID int64, chatType model.ChatType, active bool) error {
	p.chats.Lock(chatID)
	defer p.chats.Unlock(chatID)

	sub, err := p.store.GetOrCreateSubscriber(ctx, chatID, chatType, DefaultChannelName(chatID))
	if err != nil {
		return err
	}

	sub.Active = active
	return p.store.SaveSubscriber(ctx, sub)
}

// Info returns a human-readable summary of a chat's current settings
func (p *Pipeline) Info(ctx context.Context, chatID int64, chatType model.ChatType) (string, error) {
	p.chats.Lock(chatID)
	defer p.chats.Unlock(chatID)

	sub, err := p.store.GetOrCreateSubscriber(ctx, chatID, chatType, DefaultChannelName(chatID))
	if err != nil {
		return "", err
	}

	var lines []string
	lines = append(lines, "Current settings:")
	lines = append(lines, fmt.Sprintf("Channel name: %s", sub.ChannelName))
	lines = append(lines, fmt.Sprintf("Active: %t", sub.Active))
	lines = append(lines, fmt.Sprintf("Verbose: %t", sub.Verbose))
	lines = append(lines, fmt.Sprintf("Sort by user: %t", sub.SortByUser))
	lines = append(lines, fmt.Sprintf("Accepted media: %s", sub.AcceptedMedia))
	return strings.Join(lines, "\n"), nil
}

// ParseBool converts command input into a boolean. Accepted tokens are
// true/false, on/off, 1/0 and yes/no; anything else is
// ErrInvalidConfigValue.
func ParseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "on", "1", "yes":
		return true, nil
	case "false", "off", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("%q: %w", raw, ErrInvalidConfigValue)
	}
}
