package qase

import "fmt"

// AuthError indicates the API token was rejected (401/403). The retrieval
// tools surface it to users verbatim, so the message stays user-facing.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return "Invalid or expired token. Check your QA API credentials."
}

// APIError indicates the API rejected the request for a reason other than
// authentication (not-found, validation). Message is the server's own
// description and is surfaced verbatim.
type APIError struct {
	Message string
	Status  int
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error (status %d)", e.Status)
	}
	return e.Message
}
