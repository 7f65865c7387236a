// Package chat defines the live chat provider the bridge reads from and posts
// to, with a YouTube Data API implementation and an in-memory one for local
// development and tests.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotLive means the video has no active live chat.
	ErrNotLive = errors.New("chat: video is not live")
	// ErrChatEnded means the live chat was closed by the provider.
	ErrChatEnded = errors.New("chat: live chat ended")
)

// TransientError wraps a provider failure that is worth retrying with the
// same cursor (network trouble, quota, 5xx).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("chat: transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err, or anything it wraps, is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Message is one live chat line.
type Message struct {
	ID          string    `json:"id"`
	AuthorName  string    `json:"authorName"`
	AuthorID    string    `json:"authorId"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Page is one read of a live chat.
type Page struct {
	Messages   []Message
	NextCursor string
	// PollAfter is the provider's requested wait before the next read; zero
	// when it has no opinion.
	PollAfter time.Duration
}

// Provider is the chat backend. Implementations must be safe for concurrent use.
type Provider interface {
	// ResolveLiveChatID returns the active live chat of videoID or ErrNotLive.
	ResolveLiveChatID(ctx context.Context, videoID string) (string, error)
	// ListMessages returns messages newer than cursor. An empty cursor starts
	// from whatever the provider considers the current position. It returns
	// ErrChatEnded once the chat is closed and a TransientError for
	// retryable failures.
	ListMessages(ctx context.Context, liveChatID, cursor string) (Page, error)
	// PostMessage writes text to the live chat and returns the provider's
	// message id.
	PostMessage(ctx context.Context, liveChatID, text string) (string, error)
}
