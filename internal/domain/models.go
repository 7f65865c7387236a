// Package domain defines the persistence models for short links, monitor
// sessions, and validated superchats. These types are mapped with GORM and
// shared by the repository, ledger, monitor, and service layers.
package domain

import "time"

// ShortLink binds an opaque code to the video, payee, and invoice a viewer
// pays against. Links are written once and never updated.
//
// Fields:
//   - Code: opaque upper-case base-36 code; primary key.
//   - VideoID: live video the payment is for (indexed).
//   - PayeeAddress: wallet or lightning address receiving the payment.
//   - InvoiceRef: caller-supplied reference to the payment request.
//   - CreatedAt: creation time managed by GORM.
//   - ExpiresAt: optional expiry; nil means the link never expires.
type ShortLink struct {
	Code         string     `json:"code"                 gorm:"type:varchar(32);primaryKey"`
	VideoID      string     `json:"videoId"              gorm:"type:varchar(64);not null;index:idx_links_video"`
	PayeeAddress string     `json:"payeeAddress"         gorm:"type:varchar(128);not null"`
	InvoiceRef   string     `json:"invoiceRef"           gorm:"type:varchar(256);not null"`
	CreatedAt    time.Time  `json:"createdAt"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"  gorm:"index"`
}

// TableName returns the database table name for ShortLink.
func (ShortLink) TableName() string { return "short_links" }

// Expired reports whether the link has an expiry at or before now.
func (l ShortLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// SessionStatus is the lifecycle state of a MonitorSession.
type SessionStatus string

const (
	SessionStarting SessionStatus = "starting"
	SessionRunning  SessionStatus = "running"
	SessionEnded    SessionStatus = "ended"
	SessionFailed   SessionStatus = "failed"
)

// Active reports whether the status belongs to a session that is still polling.
func (s SessionStatus) Active() bool {
	return s == SessionStarting || s == SessionRunning
}

// MonitorSession is the snapshot of one live chat polling session. The row is
// rewritten on every status transition and on shutdown so the last cursor
// that was successfully advanced survives a restart.
type MonitorSession struct {
	VideoID    string        `json:"videoId"              gorm:"type:varchar(64);primaryKey"`
	LiveChatID string        `json:"liveChatId,omitempty" gorm:"type:varchar(128)"`
	Cursor     string        `json:"cursor,omitempty"     gorm:"type:text"`
	Status     SessionStatus `json:"status"               gorm:"type:varchar(16);not null;check:status IN ('starting','running','ended','failed')"`
	LastPollAt *time.Time    `json:"lastPollAt,omitempty"`
	LastError  string        `json:"lastError,omitempty"  gorm:"type:text"`
	StartedAt  time.Time     `json:"startedAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// TableName returns the database table name for MonitorSession.
func (MonitorSession) TableName() string { return "monitor_sessions" }

// Superchat is a validated payment that produced exactly one chat post.
// Seq preserves append order for replay; PaymentID is unique.
type Superchat struct {
	Seq           uint64    `json:"seq"           gorm:"primaryKey;autoIncrement"`
	PaymentID     string    `json:"paymentId"     gorm:"type:varchar(128);not null;uniqueIndex:ux_superchats_payment"`
	VideoID       string    `json:"videoId"       gorm:"type:varchar(64);not null;index:idx_superchats_video"`
	PayerAddress  string    `json:"payerAddress"  gorm:"type:varchar(128);not null"`
	Amount        string    `json:"amount"        gorm:"type:varchar(64);not null"`
	Message       string    `json:"message"       gorm:"type:text;not null"`
	DisplayText   string    `json:"displayText"   gorm:"type:text;not null"`
	ChatMessageID string    `json:"chatMessageId" gorm:"type:varchar(128)"`
	PostedAt      time.Time `json:"postedAt"      gorm:"not null;index"`
}

// TableName returns the database table name for Superchat.
func (Superchat) TableName() string { return "superchats" }

// PaymentConfirmation is the settled payment handed to the bridge by the
// settlement layer. PaymentID is unique per real-world payment.
type PaymentConfirmation struct {
	PaymentID    string `json:"paymentId"`
	VideoID      string `json:"videoId"`
	PayerAddress string `json:"payerAddress"`
	Amount       string `json:"amount"`
	Message      string `json:"message"`
}
