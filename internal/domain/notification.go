package domain

import "time"

// NotificationKind enumerates notices emitted by the ledger.
type NotificationKind string

const (
	NotificationBountyContributed NotificationKind = "bounty_contributed"
)

// Notification is a fire-and-forget notice addressed to one user.
type Notification struct {
	ID          string
	RecipientID string
	Kind        NotificationKind
	ReportID    string
	Message     string
	CreatedAt   time.Time
}
