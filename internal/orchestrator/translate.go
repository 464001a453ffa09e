package orchestrator

import (
	"context"
	"errors"
	"strings"
)

// User-facing messages for model-layer failures. Raw errors never reach
// the caller.
const (
	MsgRateLimited = "The AI service is handling too many requests right now. Please wait a moment and try again."
	MsgTimeout     = "That took too long to answer. Please try a simpler question."
	MsgBadAPIKey   = "The AI service credentials are invalid. Please contact support."
	MsgGeneric     = "Sorry, something went wrong while answering your question. Please try again."
)

// toolFailure wraps a tool result's error text so it survives to the
// caller verbatim instead of being remapped by TranslateModelError.
type toolFailure struct {
	msg string
}

func (e *toolFailure) Error() string { return e.msg }

// userMessage renders any run failure as user-facing text. Tool
// failures already carry their own wording; everything else goes
// through the model-error table.
func userMessage(err error) string {
	var tf *toolFailure
	if errors.As(err, &tf) {
		return tf.msg
	}
	return TranslateModelError(err)
}

// TranslateModelError maps an error from the model layer onto one of
// the user-facing messages. Matching is substring-based because the
// underlying SDK wraps provider errors as plain strings.
func TranslateModelError(err error) string {
	if err == nil {
		return MsgGeneric
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return MsgTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "resource_exhausted"),
		strings.Contains(msg, "quota"):
		return MsgRateLimited
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return MsgTimeout
	case strings.Contains(msg, "api key"),
		strings.Contains(msg, "api_key"),
		strings.Contains(msg, "unauthenticated"),
		strings.Contains(msg, "permission_denied"):
		return MsgBadAPIKey
	default:
		return MsgGeneric
	}
}
