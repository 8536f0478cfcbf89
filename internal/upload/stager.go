// ABOUTME: File staging unit holding one validated attachment until it is uploaded
// ABOUTME: Rejects oversized or disallowed files before any network call

package upload

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/backend"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/config"
	apperrors "github.com/dheeraj009joshi/WeCare-sub002/internal/errors"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/logger"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/retry"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/session"
	"github.com/google/uuid"
)

// sniffLen is how many bytes http.DetectContentType considers.
const sniffLen = 512

type Reporter interface {
	Add(err error, context string) string
}

// StagedFile is an attachment held client-side.
type StagedFile struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

type Option func(*Stager)

// WithMaxBytes lowers the size limit. It cannot exceed config.DefaultMaxUploadBytes.
func WithMaxBytes(n int64) Option {
	return func(s *Stager) {
		if n > 0 && n <= config.DefaultMaxUploadBytes {
			s.maxBytes = n
		}
	}
}

func WithAllowedTypes(types []string) Option {
	return func(s *Stager) {
		if len(types) == 0 {
			return
		}
		s.allowed = make(map[string]bool, len(types))
		for _, t := range types {
			s.allowed[strings.ToLower(strings.TrimSpace(t))] = true
		}
	}
}

type Stager struct {
	sessions *session.Manager
	api      backend.API
	retry    *retry.Controller
	reporter Reporter
	userID   string
	maxBytes int64
	allowed  map[string]bool

	mu      sync.Mutex
	staged  *StagedFile
	changes chat.Signal
}

func New(sessions *session.Manager, api backend.API, rc *retry.Controller, reporter Reporter, userID string, opts ...Option) *Stager {
	s := &Stager{
		sessions: sessions,
		api:      api,
		retry:    rc,
		reporter: reporter,
		userID:   userID,
		maxBytes: config.DefaultMaxUploadBytes,
	}
	WithAllowedTypes(config.DefaultAllowedTypes)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stage validates f and holds it for the next upload. A rejected file leaves
// the slot empty and produces exactly one reported error.
func (s *Stager) Stage(f StagedFile) error {
	// Held bytes win over a smaller declared size.
	f.Size = max(f.Size, int64(len(f.Data)))

	if err := s.validate(f); err != nil {
		s.Clear()
		s.reporter.Add(err, "file_stage")
		return err
	}

	f.ContentType = normalizeType(f.ContentType)
	s.mu.Lock()
	s.staged = &f
	s.mu.Unlock()

	logger.Debug("upload: staged %s (%s, %d bytes)", f.Name, f.ContentType, f.Size)
	s.changes.Notify()
	return nil
}

func (s *Stager) validate(f StagedFile) error {
	if f.Size > s.maxBytes {
		return apperrors.NewFileTooLargeError(f.Name, f.Size, s.maxBytes)
	}
	if !s.allowed[normalizeType(f.ContentType)] {
		return apperrors.NewFileTypeError(f.Name, f.ContentType)
	}
	return nil
}

// StageFromPath reads a file from disk, detects its type, and stages it.
// Oversized files are rejected without being read.
func (s *Stager) StageFromPath(path string) error {
	name := filepath.Base(path)
	info, err := os.Stat(path)
	if err != nil {
		err = fmt.Errorf("stage %s: %w", name, err)
		s.reporter.Add(err, "file_stage")
		return err
	}
	if info.Size() > s.maxBytes {
		return s.Stage(StagedFile{Name: name, Size: info.Size()})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("stage %s: %w", name, err)
		s.reporter.Add(err, "file_stage")
		return err
	}
	return s.Stage(StagedFile{
		Name:        name,
		ContentType: DetectType(name, data),
		Size:        int64(len(data)),
		Data:        data,
	})
}

// documentTypes covers extensions missing from minimal mime tables.
var documentTypes = map[string]string{
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}

// DetectType prefers the extension and falls back to content sniffing.
func DetectType(name string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t := mime.TypeByExtension(ext); t != "" {
		return normalizeType(t)
	}
	if t, ok := documentTypes[ext]; ok {
		return t
	}
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	return normalizeType(http.DetectContentType(data))
}

func normalizeType(t string) string {
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return strings.ToLower(mt)
	}
	return strings.ToLower(strings.TrimSpace(t))
}

// Staged returns the file currently held, if any.
func (s *Stager) Staged() (StagedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged == nil {
		return StagedFile{}, false
	}
	return *s.staged, true
}

func (s *Stager) Clear() {
	s.mu.Lock()
	had := s.staged != nil
	s.staged = nil
	s.mu.Unlock()
	if had {
		s.changes.Notify()
	}
}

// Changes signals when the slot is filled or emptied.
func (s *Stager) Changes() <-chan struct{} {
	return s.changes.Subscribe()
}

// UploadStaged sends the staged file with an optional caption to the active
// session. The slot is cleared whatever the outcome.
func (s *Stager) UploadStaged(ctx context.Context, messageText string) error {
	s.mu.Lock()
	staged := s.staged
	s.mu.Unlock()
	if staged == nil {
		return apperrors.ErrNoStagedFile
	}
	defer s.Clear()

	if s.userID == "" {
		err := apperrors.NewMissingUserIDError("upload")
		s.reporter.Add(err, "file_upload")
		return err
	}

	sessID := s.sessions.ActiveID()
	backendID, ok := s.sessions.BackendID(sessID)
	if !ok {
		err := apperrors.NewNoBackendSessionError("upload")
		s.reporter.Add(err, "file_upload")
		return err
	}

	messageText = strings.TrimSpace(messageText)
	reaction, err := retry.Do(ctx, s.retry, "file_upload", func(ctx context.Context) (string, error) {
		return s.api.Upload(ctx, backend.UploadRequest{
			FileName:    staged.Name,
			ContentType: staged.ContentType,
			Data:        staged.Data,
			UserID:      s.userID,
			SessionID:   backendID,
			MessageText: messageText,
		})
	})
	if err != nil {
		if !errors.Is(err, retry.ErrExhausted) && ctx.Err() == nil {
			s.reporter.Add(err, "file_upload")
		}
		return fmt.Errorf("upload %s: %w", staged.Name, err)
	}

	now := time.Now().Format(chat.TimeLayout)
	user := chat.Message{
		ID:     uuid.NewString(),
		Sender: chat.SenderUser,
		Text:   Caption(messageText, staged.Name),
		Time:   now,
		Status: chat.StatusSent,
	}
	ai := chat.NewAIMessage(uuid.NewString(), reaction)
	if err := s.sessions.Append(sessID, user, ai); err != nil {
		return fmt.Errorf("upload %s: %w", staged.Name, err)
	}

	logger.Info("upload: %s delivered to session %d", staged.Name, sessID)
	return nil
}

// Caption is the transcript text for an uploaded file.
func Caption(messageText, fileName string) string {
	if messageText == "" {
		return "📎 " + fileName
	}
	return messageText + "\n📎 " + fileName
}
