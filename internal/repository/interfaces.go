package repository

import (
	"context"

	"convo-chat/internal/domain/botreply"
	"convo-chat/internal/domain/message"
	"convo-chat/internal/domain/user"
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	// CreateMany inserts users, silently skipping rows whose id or email
	// already exists, and returns the number of rows written.
	CreateMany(ctx context.Context, users []user.User) (int64, error)

	GetUserByID(ctx context.Context, id int) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	GetAllUsersByName(ctx context.Context) ([]user.User, error)
	GetAllUserIDs(ctx context.Context) ([]int, error)

	DeleteUser(ctx context.Context, id int) error
	// DeleteUserRange removes users with startID <= id < endID.
	DeleteUserRange(ctx context.Context, startID, endID int) (int64, error)
}

type MessageRepository interface {
	CreateMany(ctx context.Context, msgs []message.Message) (int64, error)

	// DeleteByParticipant removes every message sent or received by userID.
	DeleteByParticipant(ctx context.Context, userID int) (int64, error)
	// DeleteByParticipantRange removes every message whose sender or
	// receiver falls in [startID, endID).
	DeleteByParticipantRange(ctx context.Context, startID, endID int) (int64, error)
}

type BotReplyRepository interface {
	// GetReplies returns at most limit replies in ascending id order.
	GetReplies(ctx context.Context, limit int) ([]botreply.BotReply, error)
	Count(ctx context.Context) (int64, error)
	CreateMany(ctx context.Context, replies []botreply.BotReply) error
}
