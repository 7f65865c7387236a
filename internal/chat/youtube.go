package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/tbourn/go-superchat-bridge/internal/config"
)

// YouTube reads and writes live chat through the YouTube Data API v3.
type YouTube struct {
	svc *yt.Service
}

// NewYouTube builds an OAuth2 client from the configured refresh token. The
// token source refreshes the access token on demand.
func NewYouTube(ctx context.Context, cfg config.YouTubeConfig) (*YouTube, error) {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{yt.YoutubeForceSslScope},
	}
	ts := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	return NewYouTubeWithOptions(ctx, option.WithTokenSource(ts))
}

// NewYouTubeWithOptions builds the client from raw API options, e.g. a custom
// HTTP client or endpoint.
func NewYouTubeWithOptions(ctx context.Context, opts ...option.ClientOption) (*YouTube, error) {
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube: new service: %w", err)
	}
	return &YouTube{svc: svc}, nil
}

// ResolveLiveChatID implements Provider.
func (y *YouTube) ResolveLiveChatID(ctx context.Context, videoID string) (string, error) {
	res, err := y.svc.Videos.List([]string{"liveStreamingDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", classify("videos.list", err)
	}
	if len(res.Items) == 0 || res.Items[0].LiveStreamingDetails == nil ||
		res.Items[0].LiveStreamingDetails.ActiveLiveChatId == "" {
		return "", ErrNotLive
	}
	return res.Items[0].LiveStreamingDetails.ActiveLiveChatId, nil
}

// ListMessages implements Provider.
func (y *YouTube) ListMessages(ctx context.Context, liveChatID, cursor string) (Page, error) {
	call := y.svc.LiveChatMessages.List(liveChatID, []string{"snippet", "authorDetails"}).Context(ctx)
	if cursor != "" {
		call = call.PageToken(cursor)
	}
	res, err := call.Do()
	if err != nil {
		return Page{}, classify("liveChatMessages.list", err)
	}
	if res.OfflineAt != "" {
		return Page{}, ErrChatEnded
	}

	page := Page{
		NextCursor: res.NextPageToken,
		PollAfter:  time.Duration(res.PollingIntervalMillis) * time.Millisecond,
		Messages:   make([]Message, 0, len(res.Items)),
	}
	for _, it := range res.Items {
		m := Message{ID: it.Id}
		if it.Snippet != nil {
			m.Text = it.Snippet.DisplayMessage
			m.AuthorID = it.Snippet.AuthorChannelId
			m.PublishedAt, _ = time.Parse(time.RFC3339, it.Snippet.PublishedAt)
		}
		if it.AuthorDetails != nil {
			m.AuthorName = it.AuthorDetails.DisplayName
		}
		page.Messages = append(page.Messages, m)
	}
	return page, nil
}

// PostMessage implements Provider.
func (y *YouTube) PostMessage(ctx context.Context, liveChatID, text string) (string, error) {
	msg := &yt.LiveChatMessage{
		Snippet: &yt.LiveChatMessageSnippet{
			LiveChatId: liveChatID,
			Type:       "textMessageEvent",
			TextMessageDetails: &yt.LiveChatTextMessageDetails{
				MessageText: text,
			},
		},
	}
	res, err := y.svc.LiveChatMessages.Insert([]string{"snippet"}, msg).Context(ctx).Do()
	if err != nil {
		return "", classify("liveChatMessages.insert", err)
	}
	return res.Id, nil
}

// classify maps API failures onto the provider error taxonomy.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		for _, item := range gerr.Errors {
			switch item.Reason {
			case "liveChatEnded", "liveChatNotFound", "liveChatDisabled":
				return fmt.Errorf("youtube %s: %w", op, ErrChatEnded)
			case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded", "backendError":
				return Transient(fmt.Errorf("youtube %s: %w", op, err))
			}
		}
		if gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500 {
			return Transient(fmt.Errorf("youtube %s: %w", op, err))
		}
		return fmt.Errorf("youtube %s: %w", op, err)
	}

	var nerr net.Error
	if errors.As(err, &nerr) || errors.Is(err, context.DeadlineExceeded) {
		return Transient(fmt.Errorf("youtube %s: %w", op, err))
	}
	return fmt.Errorf("youtube %s: %w", op, err)
}
