package repository

import (
	"context"

	"convo-chat/internal/domain/message"

	"gorm.io/gorm"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

// CreateMany writes msgs as a single multi-row insert. Duplicates are
// allowed, messages carry no uniqueness constraint.
func (r *PostgresMessageRepository) CreateMany(ctx context.Context, msgs []message.Message) (int64, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Create(&msgs)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *PostgresMessageRepository) DeleteByParticipant(ctx context.Context, userID int) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Delete(&message.Message{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *PostgresMessageRepository) DeleteByParticipantRange(ctx context.Context, startID, endID int) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("(sender_id >= ? AND sender_id < ?) OR (receiver_id >= ? AND receiver_id < ?)", startID, endID, startID, endID).
		Delete(&message.Message{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
