package gateway

import (
	"sync"

	"github.com/soyeahso/kirpich/internal/domain"
	"github.com/soyeahso/kirpich/internal/logging"
)

// SurfaceState is the window state the bridge believes the UI is in.
type SurfaceState struct {
	Created bool `json:"created"`
	Visible bool `json:"visible"`
}

// broadcaster delivers an event to every connected surface and reports how
// many received it.
type broadcaster func(event string, payload any) int

// Surface is the presentation controller seen by the command gateway and
// the host menu. Calls become events pushed to the connected UI. Redundant
// calls (showing a visible surface, hiding a hidden one) are no-ops.
type Surface struct {
	mu      sync.Mutex
	state   SurfaceState
	publish broadcaster
	log     *logging.Logger
}

var (
	_ domain.Presenter = (*Surface)(nil)
	_ domain.Chrome    = (*Surface)(nil)
)

// NewSurface creates a surface that is not created and not visible. Events
// are dropped until a Server attaches to it.
func NewSurface(log *logging.Logger) *Surface {
	return &Surface{log: log.Sub("surface")}
}

func (s *Surface) attach(b broadcaster) {
	s.mu.Lock()
	s.publish = b
	s.mu.Unlock()
}

// State returns the current surface state.
func (s *Surface) State() SurfaceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// send must be called without mu held.
func (s *Surface) send(event string, payload any) {
	s.mu.Lock()
	publish := s.publish
	s.mu.Unlock()

	if publish == nil {
		s.log.Debug().Str("event", event).Msg("no bridge attached, dropping event")
		return
	}
	if n := publish(event, payload); n == 0 {
		s.log.Debug().Str("event", event).Msg("no surface connected")
	}
}

// transition applies fn under the lock and publishes event when fn reports
// a change.
func (s *Surface) transition(event string, fn func(*SurfaceState) bool) {
	s.mu.Lock()
	changed := fn(&s.state)
	snapshot := s.state
	s.mu.Unlock()

	if changed {
		s.send(event, snapshot)
	}
}

func (s *Surface) CreateMainSurface() {
	s.transition(EventSurfaceCreated, func(st *SurfaceState) bool {
		if st.Created {
			return false
		}
		st.Created = true
		return true
	})
}

func (s *Surface) ShowMainSurface() {
	s.transition(EventSurfaceShown, func(st *SurfaceState) bool {
		if st.Visible {
			return false
		}
		st.Created = true
		st.Visible = true
		return true
	})
}

func (s *Surface) HideMainSurface() {
	s.transition(EventSurfaceHidden, func(st *SurfaceState) bool {
		if !st.Visible {
			return false
		}
		st.Visible = false
		return true
	})
}

// FocusMainSurface only applies to a visible surface.
func (s *Surface) FocusMainSurface() {
	s.transition(EventSurfaceFocused, func(st *SurfaceState) bool {
		return st.Visible
	})
}

func (s *Surface) Notify(n domain.Notification) {
	s.send(EventNotification, n)
}

func (s *Surface) OpenSettings()   { s.send(EventChromeSettings, nil) }
func (s *Surface) Reload()         { s.send(EventChromeReload, nil) }
func (s *Surface) ToggleDevtools() { s.send(EventChromeDevtools, nil) }

// ChatsUpdated pushes a fresh chat list to the UI.
func (s *Surface) ChatsUpdated(chats []domain.ChatSummary) {
	s.send(EventChatsUpdated, map[string]any{"chats": chats})
}
