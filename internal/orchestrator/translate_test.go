package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestTranslateModelError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil error", nil, MsgGeneric},
		{"http 429", errors.New("googleai: 429 Too Many Requests"), MsgRateLimited},
		{"quota wording", errors.New("RESOURCE_EXHAUSTED: quota exceeded"), MsgRateLimited},
		{"deadline sentinel", context.DeadlineExceeded, MsgTimeout},
		{"wrapped deadline", fmt.Errorf("generate: %w", context.DeadlineExceeded), MsgTimeout},
		{"timeout wording", errors.New("client timeout awaiting headers"), MsgTimeout},
		{"bad api key", errors.New("API key not valid. Please pass a valid API key."), MsgBadAPIKey},
		{"unauthenticated", errors.New("rpc error: code = Unauthenticated"), MsgBadAPIKey},
		{"anything else", errors.New("stream closed unexpectedly"), MsgGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TranslateModelError(tt.err); got != tt.want {
				t.Errorf("TranslateModelError(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	failure := &toolFailure{msg: "Invalid or expired token. Check your QA API credentials."}
	if got := userMessage(failure); got != failure.msg {
		t.Errorf("tool failure must pass through verbatim, got %q", got)
	}
	if got := userMessage(fmt.Errorf("resolve: %w", failure)); got != failure.msg {
		t.Errorf("wrapped tool failure must pass through verbatim, got %q", got)
	}
	if got := userMessage(errors.New("boom")); got != MsgGeneric {
		t.Errorf("model errors still translate, got %q", got)
	}
}
