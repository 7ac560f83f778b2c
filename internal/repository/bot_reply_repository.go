package repository

import (
	"context"

	"convo-chat/internal/domain/botreply"

	"gorm.io/gorm"
)

type PostgresBotReplyRepository struct {
	db *gorm.DB
}

func NewBotReplyRepository(db *gorm.DB) BotReplyRepository {
	return &PostgresBotReplyRepository{db: db}
}

func (r *PostgresBotReplyRepository) GetReplies(ctx context.Context, limit int) ([]botreply.BotReply, error) {
	var replies []botreply.BotReply
	q := r.db.WithContext(ctx).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}

func (r *PostgresBotReplyRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&botreply.BotReply{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PostgresBotReplyRepository) CreateMany(ctx context.Context, replies []botreply.BotReply) error {
	if len(replies) == 0 {
		return nil
	}
	return translateWriteError(r.db.WithContext(ctx).Create(&replies).Error)
}
