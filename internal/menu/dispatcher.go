// Package menu routes host menu and tray commands onto the presentation
// surface. The command gateway never sees these events.
package menu

import (
	"github.com/soyeahso/kirpich/internal/domain"
	"github.com/soyeahso/kirpich/internal/logging"
)

// Dispatcher maps each domain.MenuCommand onto a host action.
type Dispatcher struct {
	presenter domain.Presenter
	chrome    domain.Chrome
	quit      func()
	log       *logging.Logger
}

// NewDispatcher creates a dispatcher. quit is called for MenuQuit and may
// be nil, in which case quit is ignored.
func NewDispatcher(presenter domain.Presenter, chrome domain.Chrome, quit func(), log *logging.Logger) *Dispatcher {
	return &Dispatcher{
		presenter: presenter,
		chrome:    chrome,
		quit:      quit,
		log:       log.Sub("menu"),
	}
}

// Dispatch performs the action for cmd. It reports false for MenuUnknown.
func (d *Dispatcher) Dispatch(cmd domain.MenuCommand) bool {
	switch cmd {
	case domain.MenuShow:
		d.presenter.CreateMainSurface()
		d.presenter.ShowMainSurface()
		d.presenter.FocusMainSurface()
	case domain.MenuHide:
		d.presenter.HideMainSurface()
	case domain.MenuQuit:
		if d.quit != nil {
			d.quit()
		}
	case domain.MenuSettings:
		d.presenter.CreateMainSurface()
		d.presenter.ShowMainSurface()
		d.chrome.OpenSettings()
	case domain.MenuReload:
		d.chrome.Reload()
	case domain.MenuToggleDevtools:
		d.chrome.ToggleDevtools()
	case domain.MenuUnknown:
		return false
	default:
		d.log.Warn().Int("command", int(cmd)).Msg("menu command out of range")
		return false
	}
	d.log.Debug().Str("command", cmd.String()).Msg("menu command dispatched")
	return true
}

// DispatchID parses a native menu identifier and dispatches it.
// Unrecognized identifiers are logged and ignored.
func (d *Dispatcher) DispatchID(id string) bool {
	cmd, ok := domain.ParseMenuCommand(id)
	if !ok {
		d.log.Debug().Str("id", id).Msg("ignoring unknown menu id")
		return false
	}
	return d.Dispatch(cmd)
}
