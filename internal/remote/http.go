// Package remote implements domain.Remote against the messaging backend
// and provides an in-process loopback backend for development.
package remote

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

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"

	"github.com/soyeahso/kirpich/internal/domain"
	"github.com/soyeahso/kirpich/internal/logging"
	"github.com/soyeahso/kirpich/internal/version"
)

const (
	pathLogin    = "/api/v1/auth/login"
	pathMessages = "/api/v1/messages/"
	pathUpload   = "/api/v1/messages/upload"
	pathChats    = "/api/v1/chats/"

	maxErrorBody = 4 << 10
)

// HTTPClient talks to the backend REST API. Retries, backoff and timeouts
// are handled here and nowhere else.
type HTTPClient struct {
	baseURL   string
	mediaBase string
	client    *retryablehttp.Client
	log       *logging.Logger
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithRetries sets the retry count and the backoff bounds.
func WithRetries(retries int, waitMin, waitMax time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.client.RetryMax = retries
		c.client.RetryWaitMin = waitMin
		c.client.RetryWaitMax = waitMax
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) { c.client.HTTPClient.Timeout = d }
}

// WithMediaBase sets the base URL relative media paths are resolved
// against. It defaults to the API base URL.
func WithMediaBase(base string) HTTPOption {
	return func(c *HTTPClient) { c.mediaBase = strings.TrimSuffix(base, "/") }
}

// NewHTTPClient creates a client for the backend at baseURL, e.g.
// "http://localhost:8080".
func NewHTTPClient(baseURL string, log *logging.Logger, opts ...HTTPOption) *HTTPClient {
	baseURL = strings.TrimSuffix(baseURL, "/")

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 3 * time.Second
	rc.HTTPClient.Timeout = 30 * time.Second

	c := &HTTPClient{
		baseURL:   baseURL,
		mediaBase: baseURL,
		client:    rc,
		log:       log.Sub("remote"),
	}
	rc.Logger = leveledLogger{log: c.log}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ domain.Remote = (*HTTPClient)(nil)

type loginRequest struct {
	PhoneOrEmail string `json:"phone_or_email"`
	Password     string `json:"password"`
}

type loginResponse struct {
	UserID       string `json:"user_id"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type sendRequest struct {
	ChatID      string `json:"chat_id"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
}

type messageResponse struct {
	ID       string  `json:"id"`
	ChatID   string  `json:"chat_id"`
	Content  string  `json:"content"`
	MediaURL *string `json:"media_url,omitempty"`
}

type uploadResponse struct {
	Message messageResponse `json:"message"`
	Media   struct {
		FilePath string `json:"file_path"`
		MimeType string `json:"mime_type"`
	} `json:"media"`
}

type chatResponse struct {
	ID          string           `json:"id"`
	Name        *string          `json:"name,omitempty"`
	Type        string           `json:"type"`
	LastMessage *messageResponse `json:"last_message,omitempty"`
	UnreadCount int              `json:"unread_count"`
}

// apiError is a non-2xx answer.
type apiError struct {
	Status  int
	Message string `json:"error"`
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// Authenticate implements domain.Remote.
func (c *HTTPClient) Authenticate(ctx context.Context, creds domain.Credentials) (string, error) {
	var resp loginResponse
	err := c.doJSON(ctx, http.MethodPost, pathLogin, "", loginRequest{
		PhoneOrEmail: strings.TrimSpace(creds.Email),
		Password:     creds.Password,
	}, &resp)
	if err != nil {
		var ae *apiError
		if errors.As(err, &ae) {
			switch ae.Status {
			case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
				return "", domain.AuthRejected(ae.Message, ae)
			}
		}
		return "", err
	}
	return resp.Token, nil
}

// Send implements domain.Remote. Receipt ids have the form
// msg-<chatId>-<backend message id>.
func (c *HTTPClient) Send(ctx context.Context, token, chatID, body string) (string, error) {
	var resp messageResponse
	requestID := uuid.NewString()
	err := c.doJSON(withRequestID(ctx, requestID), http.MethodPost, pathMessages, token, sendRequest{
		ChatID:      chatID,
		Content:     body,
		MessageType: "text",
	}, &resp)
	if err != nil {
		return "", err
	}
	id := resp.ID
	if id == "" {
		id = requestID
	}
	return fmt.Sprintf("msg-%s-%s", chatID, id), nil
}

// Upload implements domain.Remote.
func (c *HTTPClient) Upload(ctx context.Context, token string, asset domain.MediaAsset) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chat_id", asset.ChatID); err != nil {
		return "", fmt.Errorf("writing form: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(asset.FileName)))
	h.Set("Content-Type", mimetype.Detect(asset.Bytes).String())
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("writing form: %w", err)
	}
	if _, err := part.Write(asset.Bytes); err != nil {
		return "", fmt.Errorf("writing form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("writing form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, pathUpload, token, buf.Bytes())
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp uploadResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}

	switch {
	case resp.Message.MediaURL != nil && *resp.Message.MediaURL != "":
		return c.resolveMedia(*resp.Message.MediaURL), nil
	case resp.Media.FilePath != "":
		return c.resolveMedia(resp.Media.FilePath), nil
	default:
		return MediaURL(c.mediaBase, asset.ChatID, asset.FileName), nil
	}
}

// ListChats implements domain.Remote.
func (c *HTTPClient) ListChats(ctx context.Context, token string) ([]domain.ChatSummary, error) {
	var resp []chatResponse
	if err := c.doJSON(ctx, http.MethodGet, pathChats, token, nil, &resp); err != nil {
		return nil, err
	}

	chats := make([]domain.ChatSummary, 0, len(resp))
	for _, r := range resp {
		s := domain.ChatSummary{
			ID:          r.ID,
			Title:       chatTitle(r),
			UnreadCount: max(r.UnreadCount, 0),
		}
		if r.LastMessage != nil {
			last := r.LastMessage.Content
			s.LastMessage = &last
		}
		chats = append(chats, s)
	}
	return chats, nil
}

// MarkRead implements domain.Remote.
func (c *HTTPClient) MarkRead(ctx context.Context, token, chatID string) error {
	return c.doJSON(ctx, http.MethodPost, pathChats+url.PathEscape(chatID)+"/read", token, nil, nil)
}

func chatTitle(r chatResponse) string {
	if r.Name != nil && strings.TrimSpace(*r.Name) != "" {
		return *r.Name
	}
	if r.Type == "group" {
		return "Group chat"
	}
	return "Direct message"
}

func (c *HTTPClient) resolveMedia(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	base, err := url.Parse(c.mediaBase + "/")
	if err != nil {
		return ref
	}
	return base.ResolveReference(&url.URL{Path: strings.TrimPrefix(u.Path, "/")}).String()
}

// MediaURL derives the URL of an uploaded file from its chat and name.
func MediaURL(base, chatID, fileName string) string {
	u, err := url.JoinPath(base, chatID, fileName)
	if err != nil {
		return strings.TrimSuffix(base, "/") + "/" + chatID + "/" + fileName
	}
	return u
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path, token string, body []byte) (*retryablehttp.Request, error) {
	var rawBody any
	if body != nil {
		rawBody = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, rawBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	id, _ := ctx.Value(requestIDKey{}).(string)
	if id == "" {
		id = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", id)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req.Request)
	}
	return req, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}
	req, err := c.newRequest(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// do sends req and decodes a 2xx body into out. Failures come back as
// *domain.Error: Unauthenticated for 401, RemoteUnavailable otherwise. A
// failed login is reclassified by Authenticate.
func (c *HTTPClient) do(req *retryablehttp.Request, out any) error {
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Msg("request failed")
		return domain.RemoteUnavailable("", err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Str("requestId", req.Header.Get("X-Request-ID")).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ae := &apiError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = json.Unmarshal(raw, ae)
		ae.Status = resp.StatusCode

		if resp.StatusCode == http.StatusUnauthorized && !strings.HasSuffix(req.URL.Path, pathLogin) {
			return domain.Unauthenticated(ae)
		}
		if resp.StatusCode >= 500 {
			return domain.RemoteUnavailable("", ae)
		}
		return domain.RemoteUnavailable(ae.Message, ae)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.RemoteUnavailable("", fmt.Errorf("decoding %s response: %w", req.URL.Path, err))
	}
	return nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
