package database

import (
	"context"
	"fmt"

	"convo-chat/internal/domain/botreply"
	"convo-chat/internal/domain/user"
	"convo-chat/internal/repository"
)

// SeedConfig holds configuration for seeding the database
type SeedConfig struct {
	BotCount int
	Replies  []string
}

// DefaultReplies is the catalog the bots play back after a broadcast.
var DefaultReplies = []string{
	"Hey! Thanks for the update 👋",
	"Got it, sounds great.",
	"Interesting, tell me more!",
	"Count me in 🙌",
	"Love this, thanks for sharing.",
	"Noted, I'll check it out later.",
	"Awesome news!",
	"Haha, nice one 😄",
}

// DefaultSeedConfig returns default seed configuration
func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		BotCount: len(DefaultReplies),
		Replies:  DefaultReplies,
	}
}

// SeedResult holds the result of the seeding operation
type SeedResult struct {
	UsersCreated   int64
	RepliesCreated int
}

// Seed creates the two system accounts, one user per bot starting at id 3,
// and the bot reply catalog. Re-running it leaves existing rows untouched.
func Seed(ctx context.Context, users repository.UserRepository, replies repository.BotReplyRepository, cfg *SeedConfig) (*SeedResult, error) {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}

	result := &SeedResult{}

	accounts := []user.User{
		{ID: 1, Email: "system@convo.chat", Name: "System", ProfilePicture: user.DefaultProfilePicture},
		{ID: 2, Email: "admin@convo.chat", Name: "Admin", ProfilePicture: user.DefaultProfilePicture},
	}
	for i := 0; i < cfg.BotCount; i++ {
		id := i + 3
		accounts = append(accounts, user.User{
			ID:             id,
			Email:          fmt.Sprintf("bot%d@convo.chat", id),
			Name:           fmt.Sprintf("Bot %d", id),
			ProfilePicture: user.DefaultBatchProfilePicture,
			About:          user.DefaultOnboardAbout,
		})
	}

	n, err := users.CreateMany(ctx, accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to seed accounts: %w", err)
	}
	result.UsersCreated = n

	existing, err := replies.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count bot replies: %w", err)
	}
	if existing == 0 && len(cfg.Replies) > 0 {
		rows := make([]botreply.BotReply, 0, len(cfg.Replies))
		for _, content := range cfg.Replies {
			rows = append(rows, botreply.BotReply{Content: content})
		}
		if err := replies.CreateMany(ctx, rows); err != nil {
			return nil, fmt.Errorf("failed to seed bot replies: %w", err)
		}
		result.RepliesCreated = len(rows)
	}

	return result, nil
}
