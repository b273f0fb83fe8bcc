package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/user/archive-bot-go/internal/archive"
	"github.com/user/archive-bot-go/internal/model"
)

const helpText = `Hi! I'm a bot which archives files posted in this chat.

Available commands:
/start - Start archiving files in this chat
/stop - Stop archiving files
/set_name <name> - Set the name of the archive directory
/verbose <true|false> - Get replies when something is rejected
/sort_by_user <true|false> - Sort files into per-sender directories
/accept <document photo> - Set which media types are archived
/info - Show the current settings
/help - Show this text`

// Handler routes Telegram updates to the archive pipeline and the
// configuration commands it exposes
type Handler struct {
	pipeline *archive.Pipeline
	telegram *Client
}

// NewHandler creates a new command handler
func NewHandler(pipeline *archive.Pipeline, telegram *Client) *Handler {
	return &Handler{
		pipeline: pipeline,
		telegram: telegram,
	}
}

// HandleUpdate processes an incoming Telegram update
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	msg := update.Message

	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
		return
	}

	h.pipeline.Process(ctx, toArchiveMessage(msg))
}

// handleCommand routes commands to their respective handlers
func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	chatType := normalizeChatType(msg.Chat.Type)
	command := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	log.Info().
		Int64("chatID", chatID).
		Str("command", command).
		Str("args", args).
		Msg("Received command")

	switch command {
	case "help":
		h.send(chatID, helpText)
	case "info":
		h.handleInfo(ctx, chatID, chatType)
	case "start":
		h.handleStart(ctx, chatID, chatType)
	case "stop":
		h.handleStop(ctx, chatID, chatType)
	case "set_name":
		h.handleSetName(ctx, chatID, chatType, args)
	case "verbose":
		h.handleVerbose(ctx, chatID, chatType, args)
	case "sort_by_user":
		h.handleSortByUser(ctx, chatID, chatType, args)
	case "accept":
		h.handleAccept(ctx, chatID, chatType, args)
	default:
		// Unknown commands are ignored, matching the ingestion path's
		// command filter.
	}
}

// handleInfo handles /info
func (h *Handler) handleInfo(ctx context.Context, chatID int64, chatType model.ChatType) {
	text, err := h.pipeline.Info(ctx, chatID, chatType)
	if err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to get subscriber info")
		return
	}
	h.send(chatID, text)
}

// handleStart handles /start
func (h *Handler) handleStart(ctx context.Context, chatID int64, chatType model.ChatType) {
	if err := h.pipeline.Activate(ctx, chatID, chatType); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to activate subscriber")
		return
	}
	h.send(chatID, "Files posted in this channel will now be archived.")
}

// handleStop handles /stop
func (h *Handler) handleStop(ctx context.Context, chatID int64, chatType model.ChatType) {
	if err := h.pipeline.Deactivate(ctx, chatID, chatType); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to deactivate subscriber")
		return
	}
	h.send(chatID, "Files won't be archived any longer.")
}

// handleSetName handles /set_name
func (h *Handler) handleSetName(ctx context.Context, chatID int64, chatType model.ChatType, args string) {
	if args == "" {
		h.send(chatID, "Please provide a channel name. Example: /set_name my_channel")
		return
	}

	err := h.pipeline.Rename(ctx, chatID, chatType, args)
	switch {
	case errors.Is(err, archive.ErrPathEscape):
		h.send(chatID, "Please stop fooling around and trying to escape the directory.")
	case errors.Is(err, archive.ErrNameCollision):
		h.send(chatID, "Channel name already exists. Please choose another one.")
	case err != nil:
		log.Error().Err(err).Int64("chatID", chatID).Str("name", args).Msg("Failed to rename channel")
	default:
		h.send(chatID, "Channel name changed.")
	}
}

// handleVerbose handles /verbose
func (h *Handler) handleVerbose(ctx context.Context, chatID int64, chatType model.ChatType, args string) {
	value, err := h.pipeline.SetVerbose(ctx, chatID, chatType, args)
	if errors.Is(err, archive.ErrInvalidConfigValue) {
		h.send(chatID, "Got an invalid value. Please use one of [true, false, on, off, 0, 1]")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to set verbose")
		return
	}

	mood := "sneaky"
	if value {
		mood = "verbose"
	}
	h.send(chatID, fmt.Sprintf("I'm now configured to be %s.", mood))
}

// handleSortByUser handles /sort_by_user
func (h *Handler) handleSortByUser(ctx context.Context, chatID int64, chatType model.ChatType, args string) {
	value, err := h.pipeline.SetSortByUser(ctx, chatID, chatType, args)
	if errors.Is(err, archive.ErrInvalidConfigValue) {
		h.send(chatID, "Got an invalid value. Please use one of [true, false, on, off, 0, 1]")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to set sort_by_user")
		return
	}

	prefix := "Not sorting"
	if value {
		prefix = "Sorting"
	}
	h.send(chatID, fmt.Sprintf("%s by user.", prefix))
}

// handleAccept handles /accept
func (h *Handler) handleAccept(ctx context.Context, chatID int64, chatType model.ChatType, args string) {
	accepted, err := h.pipeline.SetAcceptedMedia(ctx, chatID, chatType, strings.Fields(strings.ToLower(args)))
	if err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to set accepted media")
		return
	}
	h.send(chatID, fmt.Sprintf("Now accepting following media types: [%s].", accepted))
}

// send sends a reply, logging delivery failures
func (h *Handler) send(chatID int64, text string) {
	if err := h.telegram.SendMessage(chatID, text); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send reply")
	}
}

// toArchiveMessage converts a Telegram message into the pipeline's
// transport-neutral form, resolving the forward-aware sender
func toArchiveMessage(msg *tgbotapi.Message) *archive.Message {
	out := &archive.Message{
		ChatID:    msg.Chat.ID,
		ChatType:  normalizeChatType(msg.Chat.Type),
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}

	// Forwarded messages are attributed to their original author, not
	// the relaying account.
	from := msg.From
	if msg.ForwardFrom != nil {
		from = msg.ForwardFrom
	}
	if from != nil {
		out.Sender = archive.Sender{
			ID:          from.ID,
			Username:    from.UserName,
			DisplayName: senderDisplayName(from),
		}
	}

	if len(msg.Photo) > 0 {
		// Telegram sends every resolution of a photo; the last entry is
		// the largest.
		photo := msg.Photo[len(msg.Photo)-1]
		out.Photo = &archive.Attachment{
			FileID:       photo.FileID,
			FileUniqueID: photo.FileUniqueID,
		}
	}

	if msg.Document != nil {
		out.Document = &archive.Attachment{
			FileID:       msg.Document.FileID,
			FileUniqueID: msg.Document.FileUniqueID,
			FileName:     msg.Document.FileName,
		}
	}

	return out
}

// senderDisplayName picks the name used for per-sender directories
func senderDisplayName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return user.UserName
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name != "" {
		return name
	}
	return fmt.Sprintf("%d", user.ID)
}

// normalizeChatType maps Telegram chat types onto the subscriber enum
func normalizeChatType(chatType string) model.ChatType {
	switch chatType {
	case "private":
		return model.ChatTypePrivate
	case "group", "supergroup":
		return model.ChatTypeGroup
	case "channel":
		return model.ChatTypeChannel
	default:
		return model.ChatTypePrivate
	}
}
