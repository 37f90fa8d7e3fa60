// Package validate holds the request well-formedness checks run before any
// command touches session state, the chat cache or the network.
package validate

import (
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/soyeahso/kirpich/internal/domain"
)

// User-facing failure messages.
const (
	MsgCredentialsRequired = "Email and password are required"
	MsgEmptyMessage        = "Message cannot be empty"
	MsgEmptyPayload        = "File payload is empty"
	MsgTitleRequired       = "Notification title is required"
	MsgChatIDRequired      = "Chat id is required"
)

// validator.Validate caches struct metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// Credentials fails when either field is blank after trimming.
func Credentials(c domain.Credentials) error {
	return check(c, MsgCredentialsRequired)
}

// OutboundMessage fails when the body is blank after trimming.
func OutboundMessage(m domain.OutboundMessage) error {
	return check(m, MsgEmptyMessage)
}

// MediaAsset fails when the payload has zero length. Chat id and file name
// are not checked here.
func MediaAsset(a domain.MediaAsset) error {
	return check(a, MsgEmptyPayload)
}

// Notification fails when the title is blank after trimming.
func Notification(n domain.Notification) error {
	return check(n, MsgTitleRequired)
}

// ChatID fails when id is blank after trimming.
func ChatID(id string) error {
	if err := validate.Var(id, "notblank"); err != nil {
		return domain.InvalidInput(MsgChatIDRequired)
	}
	return nil
}

func check(req any, message string) error {
	if err := validate.Struct(req); err != nil {
		return domain.InvalidInput(message)
	}
	return nil
}
