// ABOUTME: In-memory chat backend implementing the REST contract the client consumes
// ABOUTME: Supports scripted failures and call counting for tests and local development

package mockbackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/backend"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Route names used for call counting and failure injection.
const (
	RouteCreateSession = "POST /chat/session"
	RouteMessages      = "GET /chat/{sessionId}/messages"
	RouteSaveMessage   = "POST /chat/message"
	RouteAI            = "POST /chat/ai"
	RouteUpdateTitle   = "PUT /chat/session/{sessionId}/title"
	RouteTitle         = "POST /chat/title"
	RouteUpload        = "POST /chat/upload"
)

const (
	DefaultDoctorServices    = "/services/doctors"
	DefaultEmergencyServices = "/services/emergency"

	maxUploadBytes = 11 << 20
)

// Responder produces the AI reply for a user message.
type Responder func(message string) backend.AIReply

type sessionRecord struct {
	UserID    string
	Title     string
	Messages  []chat.Message
	CreatedAt time.Time
}

type fault struct {
	remaining int
	status    int
	body      interface{}
}

// Upload records a received multipart upload.
type Upload struct {
	SessionID   string
	UserID      string
	MessageText string
	FileName    string
	ContentType string
	Size        int
}

type Server struct {
	responder  Responder
	latency    time.Duration
	requestLog bool

	mu       sync.Mutex
	sessions map[string]*sessionRecord
	calls    map[string]int
	faults   map[string]*fault
	uploads  []Upload
}

type Option func(*Server)

func WithResponder(r Responder) Option {
	return func(s *Server) { s.responder = r }
}

// WithLatency delays every response, to make connecting states visible.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

// WithRequestLog enables chi's request logger.
func WithRequestLog() Option {
	return func(s *Server) { s.requestLog = true }
}

func New(opts ...Option) *Server {
	s := &Server{
		responder: DefaultResponder,
		sessions:  make(map[string]*sessionRecord),
		calls:     make(map[string]int),
		faults:    make(map[string]*fault),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with every route mounted under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.requestLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		api.Route("/chat", func(c chi.Router) {
			c.Post("/session", s.track(RouteCreateSession, s.handleCreateSession))
			c.Put("/session/{sessionId}/title", s.track(RouteUpdateTitle, s.handleUpdateTitle))
			c.Get("/{sessionId}/messages", s.track(RouteMessages, s.handleMessages))
			c.Post("/message", s.track(RouteSaveMessage, s.handleSaveMessage))
			c.Post("/ai", s.track(RouteAI, s.handleAI))
			c.Post("/title", s.track(RouteTitle, s.handleTitle))
			c.Post("/upload", s.track(RouteUpload, s.handleUpload))
		})
	})
	return r
}

// Fail makes the next n calls to route answer with status and body.
func (s *Server) Fail(route string, n, status int, body interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if body == nil {
		body = map[string]string{"error": http.StatusText(status)}
	}
	s.faults[route] = &fault{remaining: n, status: status, body: body}
}

// Calls returns how many requests route has received.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns the number of requests across all routes.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Messages returns the stored transcript for a backend session.
func (s *Server) Messages(sessionID string) []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]chat.Message, len(rec.Messages))
	copy(out, rec.Messages)
	return out
}

// Title returns the stored title for a backend session.
func (s *Server) Title(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.sessions[sessionID]; ok {
		return rec.Title
	}
	return ""
}

func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Upload, len(s.uploads))
	copy(out, s.uploads)
	return out
}

func (s *Server) track(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[route]++
		f := s.faults[route]
		var injected *fault
		if f != nil && f.remaining > 0 {
			f.remaining--
			copied := *f
			injected = &copied
		}
		s.mu.Unlock()

		if s.latency > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(s.latency):
			}
		}

		if injected != nil {
			logger.Debug("mockbackend: injecting %d for %s", injected.status, route)
			respondJSON(w, injected.status, injected.body)
			return
		}
		h(w, r)
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if req.Title == "" {
		req.Title = chat.DefaultTitle
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &sessionRecord{UserID: req.UserID, Title: req.Title, CreatedAt: time.Now()}
	s.mu.Unlock()

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":     id,
		"userId": req.UserID,
		"title":  req.Title,
	})
}

func (s *Server) handleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	var req backend.TitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	s.mu.Lock()
	rec, ok := s.sessions[id]
	if ok {
		rec.Title = req.Title
	}
	s.mu.Unlock()

	if !ok {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	s.mu.Lock()
	rec, ok := s.sessions[id]
	var msgs []chat.Message
	if ok {
		msgs = make([]chat.Message, len(rec.Messages))
		copy(msgs, rec.Messages)
	}
	s.mu.Unlock()

	if !ok {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleSaveMessage(w http.ResponseWriter, r *http.Request) {
	var req backend.SaveMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Sender != chat.SenderUser && req.Sender != chat.SenderAI {
		respondError(w, http.StatusBadRequest, "sender must be user or ai")
		return
	}

	msg := chat.Message{
		ID:     uuid.NewString(),
		Sender: req.Sender,
		Text:   req.Text,
		Time:   time.Now().Format(chat.TimeLayout),
	}
	if !s.appendMessage(req.SessionID, msg) {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "saved", "id": msg.ID})
}

func (s *Server) handleAI(w http.ResponseWriter, r *http.Request) {
	var req backend.AIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Greet {
		respondJSON(w, http.StatusOK, backend.AIReply{Response: Greeting})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	s.mu.Lock()
	_, ok := s.sessions[req.SessionID]
	s.mu.Unlock()
	if !ok {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	respondJSON(w, http.StatusOK, s.responder(req.Message))
}

func (s *Server) handleTitle(w http.ResponseWriter, r *http.Request) {
	var req backend.InferTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	respondJSON(w, http.StatusOK, backend.InferTitleResponse{Title: InferTitle(req.Message)})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	up := Upload{
		SessionID:   r.FormValue("sessionId"),
		UserID:      r.FormValue("userId"),
		MessageText: r.FormValue("messageText"),
		FileName:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        int(hdr.Size),
	}

	reaction := fmt.Sprintf("I've received %s. I'll take a look and point out anything that needs a doctor's attention.", up.FileName)
	caption := up.FileName
	if up.MessageText != "" {
		caption = up.MessageText + "\n" + up.FileName
	}
	now := time.Now().Format(chat.TimeLayout)
	if !s.appendMessage(up.SessionID,
		chat.Message{ID: uuid.NewString(), Sender: chat.SenderUser, Text: caption, Time: now},
		chat.Message{ID: uuid.NewString(), Sender: chat.SenderAI, Text: reaction, Time: now},
	) {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	s.mu.Lock()
	s.uploads = append(s.uploads, up)
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, backend.UploadResponse{AIResponse: reaction})
}

func (s *Server) appendMessage(sessionID string, msgs ...chat.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	rec.Messages = append(rec.Messages, msgs...)
	return true
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("mockbackend: encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
