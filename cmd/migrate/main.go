package main

import (
	"context"
	"errors"
	"log"
	"os"

	"convo-chat/config"
	"convo-chat/internal/redis"
	"convo-chat/internal/repository"
	"convo-chat/pkg/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// directory is the cached user list the API serves; seed and truncate clear it.
type directory interface {
	Invalidate(ctx context.Context) error
}

func newRootCommand() *cobra.Command {
	var db *gorm.DB
	var dir directory
	closeDir := func() {}

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Convo Chat database CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			conn, err := database.Connect(cfg)
			if err != nil {
				return err
			}
			db = conn
			dir, closeDir = openDirectory(cfg)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if db != nil {
				_ = database.Close(db)
			}
			closeDir()
		},
	}

	conn := func() *gorm.DB { return db }
	cached := func() directory { return dir }
	root.AddCommand(
		newUpCommand(conn),
		newStatusCommand(conn),
		newSeedCommand(conn, cached),
		newTruncateCommand(conn, cached),
	)
	return root
}

// openDirectory returns nil when Redis is not configured.
func openDirectory(cfg *config.Config) (directory, func()) {
	if !cfg.RedisEnabled() {
		return nil, func() {}
	}
	client := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return redis.NewDirectoryCache(client, cfg.DirectoryCacheTTL), func() { _ = client.Close() }
}

func clearDirectory(ctx context.Context, dir directory) {
	if dir == nil {
		return
	}
	if err := dir.Invalidate(ctx); err != nil {
		log.Printf("⚠️  Could not clear the cached user directory: %v", err)
		return
	}
	log.Println("🧹 Cached user directory cleared")
}

func newUpCommand(db func() *gorm.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Create or update the users, messages and bot_replies tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Println("🚀 Running migrations UP...")
			if err := database.Migrate(db()); err != nil {
				log.Printf("❌ Migration failed: %v", err)
				return err
			}
			log.Println("✅ Migrations completed successfully!")
			return nil
		},
	}
}

func newStatusCommand(db func() *gorm.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database connection and table status",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Println("🔍 Checking database status...")

			if err := database.HealthCheck(cmd.Context(), db()); err != nil {
				log.Printf("❌ Database connection failed: %v", err)
				return err
			}
			log.Println("✅ Database connection: OK")

			for _, table := range database.Tables {
				if !database.TableExists(db(), table) {
					log.Printf("❌ Table %-12s does not exist", table)
					continue
				}
				count, err := database.GetTableCount(db(), table)
				if err != nil {
					log.Printf("⚠️  Error counting table %s: %v", table, err)
					continue
				}
				log.Printf("✅ Table %-12s exists (%d rows)", table, count)
			}
			return nil
		},
	}
}

func newSeedCommand(db func() *gorm.DB, dir func() directory) *cobra.Command {
	cfg := database.DefaultSeedConfig()

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the system accounts, bot users and bot reply catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.BotCount < 0 {
				return errors.New("--bots must not be negative")
			}
			log.Println("🌱 Seeding database...")

			result, err := database.Seed(cmd.Context(),
				repository.NewUserRepository(db()),
				repository.NewBotReplyRepository(db()),
				cfg)
			if err != nil {
				log.Printf("❌ Seeding failed: %v", err)
				return err
			}
			if err := database.SyncUserSequence(db()); err != nil {
				log.Printf("⚠️  Could not advance the users id sequence: %v", err)
			}
			clearDirectory(cmd.Context(), dir())

			log.Println("📊 Seed Summary:")
			log.Printf("   - Users created: %d", result.UsersCreated)
			log.Printf("   - Bot replies created: %d", result.RepliesCreated)
			log.Println("✅ Seeding completed!")
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.BotCount, "bots", cfg.BotCount, "number of bot users to create, starting at id 3")
	return cmd
}

func newTruncateCommand(db func() *gorm.DB, dir func() directory) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "truncate",
		Short: "Truncate all tables (DANGEROUS)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return errors.New("refusing to truncate without --yes")
			}
			log.Println("⚠️  WARNING: This will TRUNCATE all tables!")
			if err := database.TruncateAllTables(db()); err != nil {
				log.Printf("❌ Truncate failed: %v", err)
				return err
			}
			clearDirectory(cmd.Context(), dir())
			log.Println("✅ All tables truncated!")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm that every table should be emptied")
	return cmd
}
