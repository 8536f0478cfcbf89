// ABOUTME: REST client for the chat backend consumed by the session manager and pipeline
// ABOUTME: Non-2xx responses become *StatusError carrying the decoded body

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/logger"
)

const (
	DefaultTimeout = 30 * time.Second

	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 10 * 1024 * 1024
)

// API is the set of backend operations the chat client consumes.
type API interface {
	CreateSession(ctx context.Context, userID, title string) (string, error)
	Messages(ctx context.Context, sessionID string) ([]chat.Message, error)
	SaveMessage(ctx context.Context, sessionID string, sender chat.Sender, text string) error
	Reply(ctx context.Context, sessionID, message string) (*AIReply, error)
	Greeting(ctx context.Context) (string, error)
	UpdateTitle(ctx context.Context, sessionID, title string) error
	InferTitle(ctx context.Context, message string) (string, error)
	Upload(ctx context.Context, req UploadRequest) (string, error)
}

type CreateSessionRequest struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
}

type CreateSessionResponse struct {
	ID string `json:"id"`
}

type SaveMessageRequest struct {
	SessionID string      `json:"sessionId"`
	Sender    chat.Sender `json:"sender"`
	Text      string      `json:"text"`
}

// AIRequest covers both reply and greeting calls. Greet requests carry no session.
type AIRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message,omitempty"`
	Greet     bool   `json:"greet,omitempty"`
}

type AIReply struct {
	Response        string                `json:"response"`
	Escalation      bool                  `json:"escalation,omitempty"`
	EscalationLinks *chat.EscalationLinks `json:"escalationLinks,omitempty"`
}

// Links returns the escalation links when the reply signals an emergency.
func (r *AIReply) Links() *chat.EscalationLinks {
	if r == nil || !r.Escalation || r.EscalationLinks == nil {
		return nil
	}
	links := *r.EscalationLinks
	return &links
}

type TitleRequest struct {
	Title string `json:"title"`
}

type InferTitleRequest struct {
	Message string `json:"message"`
}

type InferTitleResponse struct {
	Title string `json:"title"`
}

type UploadResponse struct {
	AIResponse string `json:"aiResponse"`
}

// UploadRequest is the multipart payload for POST /chat/upload.
type UploadRequest struct {
	FileName    string
	ContentType string
	Data        []byte
	UserID      string
	SessionID   string
	MessageText string
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(string(e.Body))
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(e.Body, &envelope) == nil {
		if envelope.Error != "" {
			msg = envelope.Error
		} else if envelope.Message != "" {
			msg = envelope.Message
		}
	}
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// Permanent reports whether repeating the request cannot help. Client errors
// are permanent except timeouts and rate limiting.
func (e *StatusError) Permanent() bool {
	if e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusTooManyRequests {
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// Escalation decodes escalation data carried by a failure body, if any.
func (e *StatusError) Escalation() *chat.EscalationLinks {
	var reply AIReply
	if err := json.Unmarshal(e.Body, &reply); err != nil {
		return nil
	}
	return reply.Links()
}

// EscalationFrom extracts escalation links from a failed call's error chain.
func EscalationFrom(err error) *chat.EscalationLinks {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Escalation()
	}
	return nil
}

// Client talks JSON over HTTP to the chat backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient returns a client rooted at baseURL, e.g. http://localhost:5000/api.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) CreateSession(ctx context.Context, userID, title string) (string, error) {
	var resp CreateSessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/session", CreateSessionRequest{UserID: userID, Title: title}, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("create session: response has no id")
	}
	return resp.ID, nil
}

func (c *Client) Messages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	var msgs []chat.Message
	path := "/chat/" + url.PathEscape(sessionID) + "/messages"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) SaveMessage(ctx context.Context, sessionID string, sender chat.Sender, text string) error {
	return c.doJSON(ctx, http.MethodPost, "/chat/message", SaveMessageRequest{
		SessionID: sessionID,
		Sender:    sender,
		Text:      text,
	}, nil)
}

func (c *Client) Reply(ctx context.Context, sessionID, message string) (*AIReply, error) {
	var reply AIReply
	if err := c.doJSON(ctx, http.MethodPost, "/chat/ai", AIRequest{SessionID: sessionID, Message: message}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) Greeting(ctx context.Context) (string, error) {
	var reply AIReply
	if err := c.doJSON(ctx, http.MethodPost, "/chat/ai", AIRequest{Greet: true}, &reply); err != nil {
		return "", err
	}
	return reply.Response, nil
}

func (c *Client) UpdateTitle(ctx context.Context, sessionID, title string) error {
	path := "/chat/session/" + url.PathEscape(sessionID) + "/title"
	return c.doJSON(ctx, http.MethodPut, path, TitleRequest{Title: title}, nil)
}

func (c *Client) InferTitle(ctx context.Context, message string) (string, error) {
	var resp InferTitleResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/title", InferTitleRequest{Message: message}, &resp); err != nil {
		return "", err
	}
	return resp.Title, nil
}

func (c *Client) Upload(ctx context.Context, req UploadRequest) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(req.FileName)))
	if req.ContentType != "" {
		h.Set("Content-Type", req.ContentType)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}
	part, err := w.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("upload: create file part: %w", err)
	}
	if _, err := part.Write(req.Data); err != nil {
		return "", fmt.Errorf("upload: write file part: %w", err)
	}
	for name, value := range map[string]string{
		"userId":      req.UserID,
		"sessionId":   req.SessionID,
		"messageText": req.MessageText,
	} {
		if err := w.WriteField(name, value); err != nil {
			return "", fmt.Errorf("upload: write %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload: close multipart: %w", err)
	}

	var resp UploadResponse
	if err := c.do(ctx, http.MethodPost, "/chat/upload", w.FormDataContentType(), &buf, &resp); err != nil {
		return "", err
	}
	return resp.AIResponse, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s %s: encode request: %w", method, path, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: build request: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}
	logger.Debug("backend: %s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: data}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
