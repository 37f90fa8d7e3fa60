package gateway

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/soyeahso/kirpich/internal/domain"
)

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("/", handleNotFound)
}

// registerRPCHandlers sets up the RPC methods. Command methods exist only
// when a command gateway is attached, menu.dispatch only with a menu.
func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("surface.state", s.rpcSurfaceState)

	if s.commands != nil {
		s.Handle("login", s.rpcLogin)
		s.Handle("sendMessage", s.rpcSendMessage)
		s.Handle("uploadMedia", s.rpcUploadMedia)
		s.Handle("getChats", s.rpcGetChats)
		s.Handle("deliverNotification", s.rpcDeliverNotification)
		s.Handle("logout", s.rpcLogout)
		s.Handle("markRead", s.rpcMarkRead)
		s.Handle("session.state", s.rpcSessionState)
	}
	if s.menu != nil {
		s.Handle("menu.dispatch", s.rpcMenuDispatch)
	}
}

// ByteArray decodes either a base64 string or a JSON array of byte values.
type ByteArray []byte

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*b = nil
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("bytes: invalid base64: %w", err)
		}
		*b = decoded
		return nil
	case data[0] == '[':
		var nums []int
		if err := json.Unmarshal(data, &nums); err != nil {
			return fmt.Errorf("bytes: %w", err)
		}
		out := make([]byte, len(nums))
		for i, n := range nums {
			if n < 0 || n > 255 {
				return fmt.Errorf("bytes: value %d at index %d out of range", n, i)
			}
			out[i] = byte(n)
		}
		*b = out
		return nil
	default:
		return fmt.Errorf("bytes: expected base64 string or array")
	}
}

func (s *Server) rpcHealth(rc *RequestContext) {
	resp := HealthResponse{
		Status:   "ok",
		Version:  s.version,
		Clients:  s.clients.Count(),
		UptimeMs: s.uptime().Milliseconds(),
	}
	if s.commands != nil {
		resp.Session = s.commands.State().State
	}
	rc.Respond(resp)
}

func (s *Server) rpcSurfaceState(rc *RequestContext) {
	if s.surface == nil {
		rc.Respond(SurfaceState{})
		return
	}
	rc.Respond(s.surface.State())
}

// decode unmarshals params or answers invalid_params.
func decode[T any](rc *RequestContext) (T, bool) {
	var p T
	if err := rc.Params(&p); err != nil {
		rc.RespondError(CodeInvalidParams, err.Error())
		return p, false
	}
	return p, true
}

func (s *Server) rpcLogin(rc *RequestContext) {
	creds, ok := decode[domain.Credentials](rc)
	if !ok {
		return
	}
	token, err := s.commands.Login(rc.Context(), creds)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(token)
}

func (s *Server) rpcSendMessage(rc *RequestContext) {
	msg, ok := decode[domain.OutboundMessage](rc)
	if !ok {
		return
	}
	receipt, err := s.commands.SendMessage(rc.Context(), msg)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(receipt)
}

type uploadParams struct {
	ChatID   string    `json:"chatId"`
	FileName string    `json:"fileName"`
	Bytes    ByteArray `json:"bytes"`
}

func (s *Server) rpcUploadMedia(rc *RequestContext) {
	p, ok := decode[uploadParams](rc)
	if !ok {
		return
	}
	ref, err := s.commands.UploadMedia(rc.Context(), domain.MediaAsset{
		ChatID:   p.ChatID,
		FileName: p.FileName,
		Bytes:    p.Bytes,
	})
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(ref)
}

func (s *Server) rpcGetChats(rc *RequestContext) {
	chats, err := s.commands.GetChats(rc.Context())
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(chats)
}

func (s *Server) rpcDeliverNotification(rc *RequestContext) {
	n, ok := decode[domain.Notification](rc)
	if !ok {
		return
	}
	if err := s.commands.DeliverNotification(rc.Context(), n); err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(struct{}{})
}

func (s *Server) rpcLogout(rc *RequestContext) {
	s.commands.Logout(rc.Context())
	rc.Respond(struct{}{})
}

type chatParams struct {
	ChatID string `json:"chatId"`
}

func (s *Server) rpcMarkRead(rc *RequestContext) {
	p, ok := decode[chatParams](rc)
	if !ok {
		return
	}
	if err := s.commands.MarkRead(rc.Context(), p.ChatID); err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(struct{}{})
}

func (s *Server) rpcSessionState(rc *RequestContext) {
	rc.Respond(s.commands.State())
}

type menuParams struct {
	ID string `json:"id"`
}

// rpcMenuDispatch never fails for an unknown id; handled reports whether
// the id mapped to a command.
func (s *Server) rpcMenuDispatch(rc *RequestContext) {
	p, ok := decode[menuParams](rc)
	if !ok {
		return
	}
	rc.Respond(map[string]any{"id": p.ID, "handled": s.menu.DispatchID(p.ID)})
}
