package domain

// MenuCommand is a host menu or tray item.
type MenuCommand int

const (
	MenuUnknown MenuCommand = iota
	MenuShow
	MenuHide
	MenuQuit
	MenuSettings
	MenuReload
	MenuToggleDevtools
)

var menuIDs = map[string]MenuCommand{
	"show":            MenuShow,
	"hide":            MenuHide,
	"quit":            MenuQuit,
	"settings":        MenuSettings,
	"reload":          MenuReload,
	"toggleDevtools":  MenuToggleDevtools,
	"toggle_devtools": MenuToggleDevtools,
}

// ParseMenuCommand maps a native menu identifier onto a MenuCommand.
// Unrecognized identifiers return MenuUnknown and false.
func ParseMenuCommand(id string) (MenuCommand, bool) {
	cmd, ok := menuIDs[id]
	return cmd, ok
}

func (c MenuCommand) String() string {
	switch c {
	case MenuShow:
		return "show"
	case MenuHide:
		return "hide"
	case MenuQuit:
		return "quit"
	case MenuSettings:
		return "settings"
	case MenuReload:
		return "reload"
	case MenuToggleDevtools:
		return "toggleDevtools"
	default:
		return "unknown"
	}
}
