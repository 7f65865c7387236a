package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Memory is an in-process Provider. Videos are made live with GoLive, chat
// lines are added with Inject, and posts land in the same chat so pollers see
// them. Cursors are message offsets.
type Memory struct {
	mu       sync.Mutex
	videos   map[string]string // videoID -> liveChatID
	chats    map[string]*memChat
	seq      int
	postErrs []error
	listErrs []error
	posts    int
}

type memChat struct {
	messages []Message
	ended    bool
}

// NewMemory returns an empty provider.
func NewMemory() *Memory {
	return &Memory{
		videos: make(map[string]string),
		chats:  make(map[string]*memChat),
	}
}

// GoLive marks videoID live with a fresh chat and returns its id.
func (m *Memory) GoLive(videoID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("chat-%s-%d", videoID, m.seq)
	m.videos[videoID] = id
	m.chats[id] = &memChat{}
	return id
}

// End closes the live chat of videoID.
func (m *Memory) End(videoID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.videos[videoID]; ok {
		m.chats[id].ended = true
		delete(m.videos, videoID)
	}
}

// Inject appends a viewer line to the live chat of videoID.
func (m *Memory) Inject(videoID, author, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.videos[videoID]
	if !ok {
		return ErrNotLive
	}
	m.appendLocked(m.chats[id], author, text)
	return nil
}

// FailPosts makes the next PostMessage calls fail with errs, in order.
func (m *Memory) FailPosts(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postErrs = append(m.postErrs, errs...)
}

// FailLists makes the next ListMessages calls fail with errs, in order.
func (m *Memory) FailLists(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErrs = append(m.listErrs, errs...)
}

// Posts returns how many messages were successfully posted.
func (m *Memory) Posts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.posts
}

// Messages returns a copy of every line in the live chat of videoID.
func (m *Memory) Messages(videoID string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.videos[videoID]
	if !ok {
		return nil
	}
	return append([]Message(nil), m.chats[id].messages...)
}

// ResolveLiveChatID implements Provider.
func (m *Memory) ResolveLiveChatID(ctx context.Context, videoID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.videos[videoID]
	if !ok {
		return "", ErrNotLive
	}
	return id, nil
}

// ListMessages implements Provider. An empty cursor starts at the end of the
// chat.
func (m *Memory) ListMessages(ctx context.Context, liveChatID, cursor string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.listErrs) > 0 {
		err := m.listErrs[0]
		m.listErrs = m.listErrs[1:]
		return Page{}, err
	}
	c, ok := m.chats[liveChatID]
	if !ok {
		return Page{}, ErrChatEnded
	}
	if c.ended {
		return Page{}, ErrChatEnded
	}
	from := len(c.messages)
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 || n > len(c.messages) {
			return Page{}, errors.New("chat: bad cursor")
		}
		from = n
	}
	return Page{
		Messages:   append([]Message(nil), c.messages[from:]...),
		NextCursor: strconv.Itoa(len(c.messages)),
	}, nil
}

// PostMessage implements Provider.
func (m *Memory) PostMessage(ctx context.Context, liveChatID, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.postErrs) > 0 {
		err := m.postErrs[0]
		m.postErrs = m.postErrs[1:]
		return "", err
	}
	c, ok := m.chats[liveChatID]
	if !ok || c.ended {
		return "", ErrChatEnded
	}
	msg := m.appendLocked(c, "bridge", text)
	m.posts++
	return msg.ID, nil
}

func (m *Memory) appendLocked(c *memChat, author, text string) Message {
	m.seq++
	msg := Message{
		ID:          "msg-" + strconv.Itoa(m.seq),
		AuthorName:  author,
		AuthorID:    author,
		Text:        text,
		PublishedAt: time.Now().UTC(),
	}
	c.messages = append(c.messages, msg)
	return msg
}
