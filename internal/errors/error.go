package errors

import "github.com/pkg/errors"

var (
	// configuration errors
	ErrMissingGmailCredentials     = errors.New("gmail access token is missing")
	ErrMissingAnthropicCredentials = errors.New("anthropic api key is missing")

	// user errors
	ErrUserNotFound = errors.New("user not found")

	// events errors
	ErrPublisherClosed = errors.New("events publisher is closed")
)
