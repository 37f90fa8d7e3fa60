//go:generate go run go.uber.org/mock/mockgen -source=presenter.go -destination=../mocks/mock_presenter.go -package=mocks

package domain

// Presenter controls the main window of the host application. Every method
// is idempotent: showing a visible surface is a no-op.
type Presenter interface {
	CreateMainSurface()
	ShowMainSurface()
	HideMainSurface()
	FocusMainSurface()

	// Notify displays a notification on the host's notification surface.
	Notify(n Notification)
}

// Chrome covers the remaining host menu actions that are not window
// visibility.
type Chrome interface {
	OpenSettings()
	Reload()
	ToggleDevtools()
}
