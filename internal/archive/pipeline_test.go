package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/user/archive-bot-go/internal/model"
)

// mockStore implements a minimal in-memory store for pipeline tests
type mockStore struct {
	mu          sync.Mutex
	subscribers map[int64]*model.Subscriber
	records     []*model.FileRecord
	nextID      uint
	saveErr     error
}

func newMockStore() *mockStore {
	return &mockStore{
		subscribers: make(map[int64]*model.Subscriber),
	}
}

func (m *mockStore) GetOrCreateSubscriber(ctx context.Context, chatID int64, chatType model.ChatType, defaultName string) (*model.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subscribers[chatID]; ok {
		return sub, nil
	}
	sub := &model.Subscriber{
		ChatID:        chatID,
		ChatType:      chatType,
		ChannelName:   defaultName,
		AcceptedMedia: model.DefaultAcceptedMedia,
	}
	m.subscribers[chatID] = sub
	return sub, nil
}

func (m *mockStore) SaveSubscriber(ctx context.Context, sub *model.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.subscribers[sub.ChatID] = sub
	return nil
}

func (m *mockStore) CountSubscribers(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.subscribers)), nil
}

func (m *mockStore) CreateFileRecord(ctx context.Context, record *model.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	record.ID = m.nextID
	record.Success = false
	m.records = append(m.records, record)
	return nil
}

func (m *mockStore) MarkFileSuccess(ctx context.Context, recordID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == recordID {
			r.Success = true
		}
	}
	return nil
}

func (m *mockStore) GetFileRecord(ctx context.Context, chatID int64, fileName string) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ChatID == chatID && r.FileName == fileName {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockStore) CountFileRecords(ctx context.Context) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var succeeded int64
	for _, r := range m.records {
		if r.Success {
			succeeded++
		}
	}
	return int64(len(m.records)), succeeded, nil
}

func (m *mockStore) Ping(ctx context.Context) error { return nil }
func (m *mockStore) Close() error                   { return nil }

// mockTransport records sends and materializes downloads on disk
type mockTransport struct {
	mu          sync.Mutex
	downloads   []string
	messages    []string
	downloadErr error
}

func (m *mockTransport) Download(ctx context.Context, fileID, destPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.downloadErr != nil {
		return m.downloadErr
	}
	if err := os.WriteFile(destPath, []byte(fileID), 0o644); err != nil {
		return err
	}
	m.downloads = append(m.downloads, destPath)
	return nil
}

func (m *mockTransport) SendMessage(chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, text)
	return nil
}

func (m *mockTransport) UserName(ctx context.Context, userID int64) (string, error) {
	return "original_uploader", nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *mockStore, *mockTransport) {
	t.Helper()
	resolver, err := NewResolver(t.TempDir())
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	st := newMockStore()
	tr := &mockTransport{}
	return NewPipeline(st, tr, resolver, 99, 1000), st, tr
}

func activeSubscriber(t *testing.T, st *mockStore, chatID int64) *model.Subscriber {
	t.Helper()
	sub, err := st.GetOrCreateSubscriber(context.Background(), chatID, model.ChatTypeGroup, "channel")
	if err != nil {
		t.Fatalf("GetOrCreateSubscriber() error = %v", err)
	}
	sub.Active = true
	sub.ChannelName = "channel"
	return sub
}

func documentMessage(messageID int) *Message {
	return &Message{
		ChatID:    1,
		ChatType:  model.ChatTypeGroup,
		MessageID: messageID,
		Sender:    Sender{ID: 7, Username: "alice", DisplayName: "alice"},
		Document:  &Attachment{FileID: "doc-file-id", FileUniqueID: "doc-uid", FileName: "report.pdf"},
	}
}

func TestPipeline_ArchivesDocument(t *testing.T) {
	p, st, tr := newTestPipeline(t)
	activeSubscriber(t, st, 1)

	p.Process(context.Background(), documentMessage(10))

	if len(st.records) != 1 {
		t.Fatalf("got %d file records, want 1", len(st.records))
	}
	record := st.records[0]
	if !record.Success {
		t.Error("record.Success = false after completed download")
	}
	if record.FileName != "report.pdf" {
		t.Errorf("record.FileName = %q, want %q", record.FileName, "report.pdf")
	}
	if record.FileType != model.FileTypeDocument {
		t.Errorf("record.FileType = %q, want document", record.FileType)
	}
	if record.SenderID != 7 {
		t.Errorf("record.SenderID = %d, want 7", record.SenderID)
	}

	if len(tr.downloads) != 1 {
		t.Fatalf("got %d downloads, want 1", len(tr.downloads))
	}
	wantPath := filepath.Join(p.resolver.Root(), "channel", "report.pdf")
	if tr.downloads[0] != wantPath {
		t.Errorf("download path = %q, want %q", tr.downloads[0], wantPath)
	}
	if _, err := os.Stat(wantPath); err != nil {
		t.Errorf("archived file missing on disk: %v", err)
	}
}

func TestPipeline_SortByUserNestsSenderDirectory(t *testing.T) {
	p, st, tr := newTestPipeline(t)
	sub := activeSubscriber(t, st, 1)
	sub.SortByUser = true

	p.Process(context.Background(), documentMessage(10))

	wantPath := filepath.Join(p.resolver.Root(), "channel", "alice", "report.pdf")
	if len(tr.downloads) != 1 || tr.downloads[0] != wantPath {
		t.Errorf("downloads = %v, want [%s]", tr.downloads, wantPath)
	}
}

func TestPipeline_DuplicateUploadRejected(t *testing.T) {
	p, st, tr := newTestPipeline(t)
	sub := activeSubscriber(t, st, 1)
	sub.Verbose = true

	p.Process(context.Background(), documentMessage(10))
	p.Process(context.Background(), documentMessage(11))

	if len(st.records) != 1 {
		t.Errorf("got %d file records after duplicate upload, want 1", len(st.records))
	}
	if len(tr.downloads) != 1 {
		t.Errorf("got %d downloads after duplicate upload, want 1", len(tr.downloads))
	}

	// Verbose chats get an attribution reply for the duplicate.
	found := false
	for _, text := range tr.messages {
		if strings.Contains(text, "already exists") {
			found = true
		}
	}
	if !found {
		t.Errorf("no duplicate reply sent, messages = %v", tr.messages)
	}
}

func TestPipeline_DownloadFailureLeavesRecordIncomplete(t *testing.T) {
	p, st, tr := newTestPipeline(t)
	activeSubscriber(t, st, 1)
	tr.downloadErr = errors.New("network gone")

	p.Process(context.Background(), documentMessage(10))

	if len(st.records) != 1 {
		t.Fatalf("got %d file records, want 1", len(st.records))
	}
	if st.records[0].Success {
		t.Error("record.Success = true after failed download")
	}

	// The pipeline keeps working for the next message.
	tr.downloadErr = nil
	msg := documentMessage(11)
	msg.Document = &Attachment{FileID: "other-id", FileUniqueID: "other-uid", FileName: "other.pdf"}
	p.Process(context.Background(), msg)

	if len(st.records) != 2 {
		t.Fatalf("got %d file records, want 2", len(st.records))
	}
	if !st.records[1].Success {
		t.Error("second record.Success = false, want true")
	}
}

func TestPipeline_InactiveSubscriberIgnored(t *testing.T) {
	p, st, tr := newTestPipeline(t)
	// First contact creates the subscriber inactive by default.

	p.Process(context.Background(), documentMessage(10))

	if len(st.records) != 0 {
		t.Errorf("got %d file records for inactive subscriber, want 0", len(st.records))
	}
	if len(tr.downloads) != 0 {
		t.Errorf("got %d downloads for inactive subscriber, want 0", len(tr.downloads))
	}
}

func TestPipeline_UnacceptedPhotoVerboseNotice(t *testing.T) {
	p, st, tr := newTestPipeline(t)
	sub := activeSubscriber(t, st, 1)
	sub.Verbose = true
	sub.AcceptedMedia = "document"

	msg := &Message{
		ChatID:   1,
		ChatType: model.ChatTypeGroup,
		Sender:   Sender{ID: 7, Username: "alice"},
		Photo:    &Attachment{FileID: "photo-id", FileUniqueID: "photo-uid"},
	}
	p.Process(context.Background(), msg)

	if len(st.records) != 0 {
		t.Errorf("got %d file records, want 0", len(st.records))
	}
	if len(tr.messages) != 1 {
		t.Fatalf("got %d notices, want 1", len(tr.messages))
	}
	if tr.messages[0] == "" {
		t.Error("notice text is empty")
	}
}

// blockingTransport stalls the download of one file ID until released
type blockingTransport struct {
	mockTransport
	stallFileID string
	stalled     chan struct{}
	release     chan struct{}
}

func (b *blockingTransport) Download(ctx context.Context, fileID, destPath string) error {
	if fileID == b.stallFileID {
		close(b.stalled)
		<-b.release
	}
	return b.mockTransport.Download(ctx, fileID, destPath)
}

func TestPipeline_SlowDownloadDoesNotBlockOtherChats(t *testing.T) {
	resolver, err := NewResolver(t.TempDir())
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	st := newMockStore()
	tr := &blockingTransport{
		stallFileID: "slow-id",
		stalled:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	p := NewPipeline(st, tr, resolver, 99, 1000)
	activeSubscriber(t, st, 1)
	activeSubscriber(t, st, 2)

	slow := documentMessage(10)
	slow.Document = &Attachment{FileID: "slow-id", FileUniqueID: "slow-uid", FileName: "slow.pdf"}
	done := make(chan struct{})
	go func() {
		p.Process(context.Background(), slow)
		close(done)
	}()
	<-tr.stalled

	// A second chat's upload completes while the first is mid-download.
	fast := documentMessage(11)
	fast.ChatID = 2
	p.Process(context.Background(), fast)

	select {
	case <-done:
		t.Fatal("stalled download finished before being released")
	default:
	}

	st.mu.Lock()
	archived := false
	for _, r := range st.records {
		if r.ChatID == 2 && r.Success {
			archived = true
		}
	}
	st.mu.Unlock()
	if !archived {
		t.Error("second chat's file not archived while first chat's download was in flight")
	}

	close(tr.release)
	<-done
}

func TestPipeline_EscapingChannelNameRejected(t *testing.T) {
	p, st, tr := newTestPipeline(t)
	sub := activeSubscriber(t, st, 1)
	sub.ChannelName = "../../etc"
	sub.Verbose = true

	p.Process(context.Background(), documentMessage(10))

	if len(st.records) != 0 {
		t.Errorf("got %d file records, want 0", len(st.records))
	}
	if len(tr.downloads) != 0 {
		t.Errorf("got %d downloads, want 0", len(tr.downloads))
	}
	if len(tr.messages) != 1 {
		t.Errorf("got %d replies, want 1 escape warning", len(tr.messages))
	}
}
