//go:generate go run go.uber.org/mock/mockgen -source=remote.go -destination=../mocks/mock_remote.go -package=mocks

package domain

import "context"

// Remote is the network-facing messaging backend. Implementations own their
// retry and connection policy; the gateway treats them as stateless.
//
// Failures should be *Error values: KindAuthRejected from Authenticate,
// KindUnauthenticated when the backend revokes a token, KindRemoteUnavailable
// otherwise. Untyped errors are classified by the caller.
type Remote interface {
	// Authenticate exchanges credentials for a session token.
	Authenticate(ctx context.Context, creds Credentials) (string, error)

	// Send posts a text message and returns its receipt id.
	Send(ctx context.Context, token, chatID, body string) (string, error)

	// Upload stores a media asset and returns its URL.
	Upload(ctx context.Context, token string, asset MediaAsset) (string, error)

	// ListChats returns the conversation summaries visible to token.
	// token is empty when no user is signed in.
	ListChats(ctx context.Context, token string) ([]ChatSummary, error)

	// MarkRead clears the unread marker of a chat on the backend.
	MarkRead(ctx context.Context, token, chatID string) error
}
