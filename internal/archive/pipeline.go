package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/archive-bot-go/internal/model"
	"github.com/user/archive-bot-go/internal/server"
	"github.com/user/archive-bot-go/internal/store"
	"golang.org/x/time/rate"
)

// Transport is the chat-transport surface the pipeline depends on
type Transport interface {
	// Download materializes the bytes of a media object at destPath.
	Download(ctx context.Context, fileID, destPath string) error
	// SendMessage delivers a plain text reply to a chat.
	SendMessage(chatID int64, text string) error
	// UserName resolves a user ID to a username for attribution replies.
	UserName(ctx context.Context, userID int64) (string, error)
}

// Pipeline runs the message-acceptance and file-archival sequence for
// every inbound message and owns the per-chat configuration mutators.
type Pipeline struct {
	store     store.Store
	transport Transport
	resolver  *Resolver
	selfID    int64
	chats     *keyedMutex[int64]
	limiter   *rate.Limiter // Telegram rate limit: max 30 msg/sec globally
}

// NewPipeline creates an archive pipeline
func NewPipeline(store store.Store, transport Transport, resolver *Resolver, selfID int64, replyRate float64) *Pipeline {
	return &Pipeline{
		store:     store,
		transport: transport,
		resolver:  resolver,
		selfID:    selfID,
		chats:     newKeyedMutex[int64](),
		limiter:   rate.NewLimiter(rate.Limit(replyRate), 1),
	}
}

// Process runs one inbound message through the pipeline. Every rejection
// is local: the method logs, optionally replies, and returns so the next
// message can be handled. Only the per-chat lock serializes it against
// configuration commands for the same chat.
func (p *Pipeline) Process(ctx context.Context, msg *Message) {
	p.chats.Lock(msg.ChatID)
	defer p.chats.Unlock(msg.ChatID)

	sub, err := p.store.GetOrCreateSubscriber(ctx, msg.ChatID, msg.ChatType, DefaultChannelName(msg.ChatID))
	if err != nil {
		log.Error().Err(err).Int64("chatID", msg.ChatID).Msg("Failed to load subscriber")
		return
	}

	if !ShouldAccept(sub, msg, p.selfID) {
		return
	}

	c := Classify(msg, sub)
	if c.Notice != "" {
		p.reply(ctx, msg.ChatID, c.Notice)
	}
	if c.Type == "" {
		return
	}

	dir, err := p.resolver.Resolve(sub.ChannelName, msg.Sender.DisplayName, sub.SortByUser)
	if err != nil {
		if errors.Is(err, ErrPathEscape) && sub.Verbose {
			p.reply(ctx, msg.ChatID, "Please stop fooling around and trying to escape the directory.")
		}
		log.Warn().Err(err).Int64("chatID", msg.ChatID).Str("channel", sub.ChannelName).Msg("Path resolution rejected")
		return
	}

	fileName := CandidateFileName(msg, c.Type)
	if fileName == "" {
		return
	}

	if FileExists(dir, fileName) {
		p.replyDuplicate(ctx, sub, msg, fileName)
		return
	}

	if err := p.resolver.EnsureDir(sub.ChannelName, dir); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("Failed to create channel directory")
		return
	}

	// Durable provenance first: the record exists with Success=false
	// before a single byte is downloaded.
	record := &model.FileRecord{
		FileID:    c.FileID,
		ChatID:    msg.ChatID,
		MessageID: msg.MessageID,
		SenderID:  msg.Sender.ID,
		FileName:  fileName,
		FileType:  c.Type,
	}
	if err := p.store.CreateFileRecord(ctx, record); err != nil {
		log.Error().Err(err).Int64("chatID", msg.ChatID).Str("file", fileName).Msg("Failed to create file record")
		return
	}

	start := time.Now()
	if err := p.transport.Download(ctx, c.FileID, filepath.Join(dir, fileName)); err != nil {
		// No retry: the record stays Success=false permanently.
		server.RecordFile(string(c.Type), "failed")
		log.Error().Err(err).
			Int64("chatID", msg.ChatID).
			Str("file", fileName).
			Msg("Download failed")
		return
	}
	server.ObserveDownloadDuration(time.Since(start))

	if err := p.store.MarkFileSuccess(ctx, record.ID); err != nil {
		log.Error().Err(err).Uint("recordID", record.ID).Msg("Failed to mark file record as succeeded")
		return
	}
	server.RecordFile(string(c.Type), "success")

	log.Info().
		Int64("chatID", msg.ChatID).
		Str("file", fileName).
		Str("type", string(c.Type)).
		Msg("Archived file")
}

// replyDuplicate tells a verbose chat that the file already exists,
// attributing it to whoever uploaded it first
func (p *Pipeline) replyDuplicate(ctx context.Context, sub *model.Subscriber, msg *Message, fileName string) {
	if !sub.Verbose {
		return
	}

	uploader := ""
	if record, err := p.store.GetFileRecord(ctx, msg.ChatID, fileName); err == nil && record != nil {
		if name, err := p.transport.UserName(ctx, record.SenderID); err == nil && name != "" {
			uploader = "@" + name
		} else {
			uploader = strconv.FormatInt(record.SenderID, 10)
		}
	}

	text := fmt.Sprintf("File %s already exists and wasn't saved again.", fileName)
	if uploader != "" {
		text = fmt.Sprintf("File %s already exists. It was first uploaded by %s.", fileName, uploader)
	}
	p.reply(ctx, msg.ChatID, text)
}

// reply sends a throttled text message, logging instead of failing
func (p *Pipeline) reply(ctx context.Context, chatID int64, text string) {
	if err := p.limiter.Wait(ctx); err != nil {
		log.Error().Err(err).Msg("Rate limiter error")
		return
	}
	if err := p.transport.SendMessage(chatID, text); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send reply")
	}
}

// DefaultChannelName is the channel name assigned on first contact,
// before the chat picks one with /set_name
func DefaultChannelName(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
