package repo

import (
	"context"

	"bountyledger/internal/domain"
	"bountyledger/internal/infra"
	"bountyledger/internal/sqlinline"
)

// NotificationRepositoryPG persists notifications in PostgreSQL.
type NotificationRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewNotificationRepository creates a notification repository.
func NewNotificationRepository(sql infra.SQLExecutor) *NotificationRepositoryPG {
	return &NotificationRepositoryPG{sql: sql}
}

// Create inserts a notification row.
func (r *NotificationRepositoryPG) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertNotification,
		n.ID,
		n.RecipientID,
		string(n.Kind),
		n.ReportID,
		n.Message,
		n.CreatedAt,
	)
	return err
}
