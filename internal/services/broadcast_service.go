package services

import (
	"context"
	"time"

	"convo-chat/internal/domain/message"
	"convo-chat/internal/domain/user"
	"convo-chat/internal/metrics"
	"convo-chat/internal/ratelimit"
	"convo-chat/internal/repository"
	convo_errors "convo-chat/pkg/errors"
	"convo-chat/pkg/events"
	"convo-chat/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	BroadcastBatchSize = 300
	DefaultBotCount    = 8
	MaxBotCount        = 100
	FirstBotID         = 3
)

const (
	BroadcastCompleted  = "Broadcasted successfully."
	BroadcastNoUsers    = "No users to broadcast to."
	BroadcastNoEligible = "No eligible users to broadcast to."
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	tmr := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !tmr.Stop() {
			<-tmr.C
		}
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}

type BroadcastInput struct {
	Message  string
	SenderID int
	// BotCount of zero selects DefaultBotCount.
	BotCount int
	// BotDelays are milliseconds, one per bot in id order.
	BotDelays []int
}

type BatchStats struct {
	Batches   int   `json:"batches"`
	Failed    int   `json:"failed"`
	Delivered int64 `json:"delivered"`
}

type BotOutcome struct {
	BotID   int        `json:"botId"`
	DelayMs int64      `json:"delayMs"`
	Skipped bool       `json:"skipped"`
	Stats   BatchStats `json:"stats"`
}

type BroadcastReport struct {
	ID         string       `json:"id"`
	Message    string       `json:"-"`
	Recipients int          `json:"recipients"`
	Sender     BatchStats   `json:"sender"`
	Bots       []BotOutcome `json:"bots,omitempty"`
}

type botTask struct {
	botID int
	reply string
	delay time.Duration
}

type BroadcastService struct {
	users     repository.UserRepository
	messages  repository.MessageRepository
	replies   repository.BotReplyRepository
	logger    *logger.Logger
	metrics   *metrics.Metrics
	pacer     *ratelimit.Pacer
	events    events.Publisher
	sleep     Sleeper
	batchSize int
}

type BroadcastOption func(*BroadcastService)

func WithSleeper(s Sleeper) BroadcastOption {
	return func(b *BroadcastService) { b.sleep = s }
}

func WithPacer(p *ratelimit.Pacer) BroadcastOption {
	return func(b *BroadcastService) { b.pacer = p }
}

func WithMetrics(m *metrics.Metrics) BroadcastOption {
	return func(b *BroadcastService) { b.metrics = m }
}

// WithEvents announces finished broadcasts on events.ChannelBroadcasts.
func WithEvents(p events.Publisher) BroadcastOption {
	return func(b *BroadcastService) { b.events = p }
}

// WithBatchSize overrides BroadcastBatchSize. Tests use it to exercise
// batching with small user sets.
func WithBatchSize(n int) BroadcastOption {
	return func(b *BroadcastService) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

func NewBroadcastService(users repository.UserRepository, messages repository.MessageRepository, replies repository.BotReplyRepository, l *logger.Logger, opts ...BroadcastOption) *BroadcastService {
	if l == nil {
		l = logger.NewNop()
	}
	s := &BroadcastService{
		users:     users,
		messages:  messages,
		replies:   replies,
		logger:    l,
		sleep:     timerSleep,
		batchSize: BroadcastBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeBotCount applies the default to zero and clamps into [1, MaxBotCount].
func NormalizeBotCount(n int) int {
	if n == 0 {
		n = DefaultBotCount
	}
	if n < 1 {
		return 1
	}
	if n > MaxBotCount {
		return MaxBotCount
	}
	return n
}

// NormalizeBotDelays returns exactly count delays. Missing and negative
// entries become zero, extra entries are dropped.
func NormalizeBotDelays(delaysMs []int, count int) []time.Duration {
	out := make([]time.Duration, count)
	for i := 0; i < count && i < len(delaysMs); i++ {
		if delaysMs[i] > 0 {
			out[i] = time.Duration(delaysMs[i]) * time.Millisecond
		}
	}
	return out
}

// Broadcast sends in.Message from in.SenderID to every user except the two
// system accounts, then plays the bot reply catalog back to every user, one
// bot at a time in ascending id order. Failed batches are logged and counted
// but never abort the run.
func (s *BroadcastService) Broadcast(ctx context.Context, in BroadcastInput) (*BroadcastReport, error) {
	if in.Message == "" || in.SenderID == 0 {
		return nil, convo_errors.ErrInvalidInput
	}

	report := &BroadcastReport{ID: uuid.NewString()}
	ctx = context.WithValue(ctx, logger.BroadcastIdKey, report.ID)
	log := s.logger.WithContext(ctx)

	allIDs, err := s.users.GetAllUserIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(allIDs) == 0 {
		report.Message = BroadcastNoUsers
		return report, nil
	}

	recipients := make([]int, 0, len(allIDs))
	for _, id := range allIDs {
		if !user.IsSystemAccount(id) {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		report.Message = BroadcastNoEligible
		return report, nil
	}
	if s.metrics != nil {
		s.metrics.BroadcastsTotal.Inc()
	}
	report.Recipients = len(recipients)

	log.Info("broadcast started",
		zap.Int("sender_id", in.SenderID),
		zap.Int("recipients", len(recipients)),
		zap.Int("users", len(allIDs)))

	report.Sender = s.sendInBatches(ctx, log, metrics.PhaseSender, in.SenderID, recipients, in.Message)

	tasks, err := s.botTasks(ctx, log, in)
	if err != nil {
		return nil, err
	}

	// Bots run strictly one after another so their replies land in id order.
	for _, task := range tasks {
		outcome := BotOutcome{BotID: task.botID, DelayMs: task.delay.Milliseconds()}
		if task.reply == "" {
			log.Warn("no reply for bot", zap.Int("bot_id", task.botID))
			if s.metrics != nil {
				s.metrics.BotsSkipped.Inc()
			}
			outcome.Skipped = true
			report.Bots = append(report.Bots, outcome)
			continue
		}

		if err := s.sleep(ctx, task.delay); err != nil {
			log.Warn("bot delay interrupted", zap.Int("bot_id", task.botID), zap.Error(err))
		}
		outcome.Stats = s.sendInBatches(ctx, log, metrics.PhaseBot, task.botID, allIDs, task.reply)
		report.Bots = append(report.Bots, outcome)
	}

	log.Info("broadcast finished",
		zap.Int("sender_batches", report.Sender.Batches),
		zap.Int("sender_failed", report.Sender.Failed),
		zap.Int("bots", len(report.Bots)))

	report.Message = BroadcastCompleted
	s.announce(ctx, log, in.SenderID, report)
	return report, nil
}

// BroadcastCompletedPayload is the body of a broadcast.completed event.
type BroadcastCompletedPayload struct {
	ID            string `json:"id"`
	SenderID      int    `json:"senderId"`
	Recipients    int    `json:"recipients"`
	Bots          int    `json:"bots"`
	FailedBatches int    `json:"failedBatches"`
}

func (s *BroadcastService) announce(ctx context.Context, log *logger.Logger, senderID int, report *BroadcastReport) {
	if s.events == nil {
		return
	}
	failed := report.Sender.Failed
	for _, b := range report.Bots {
		failed += b.Stats.Failed
	}
	evt := events.New(events.TypeBroadcastCompleted, BroadcastCompletedPayload{
		ID:            report.ID,
		SenderID:      senderID,
		Recipients:    report.Recipients,
		Bots:          len(report.Bots),
		FailedBatches: failed,
	})
	if err := s.events.Publish(ctx, events.ChannelBroadcasts, evt); err != nil {
		log.Warn("broadcast event publish failed", zap.Error(err))
	}
}

func (s *BroadcastService) botTasks(ctx context.Context, log *logger.Logger, in BroadcastInput) ([]botTask, error) {
	count := NormalizeBotCount(in.BotCount)
	delays := NormalizeBotDelays(in.BotDelays, count)

	catalog, err := s.replies.GetReplies(ctx, count)
	if err != nil {
		return nil, err
	}

	tasks := make([]botTask, count)
	for i := range tasks {
		tasks[i] = botTask{botID: FirstBotID + i, delay: delays[i]}
		if i < len(catalog) {
			tasks[i].reply = catalog[i].Content
		}
	}

	log.Info("bot playback planned",
		zap.Int("bot_count", count),
		zap.Int("replies", len(catalog)),
		zap.Durations("delays", delays))
	return tasks, nil
}

// sendInBatches writes one message per receiver, batchSize rows at a time.
func (s *BroadcastService) sendInBatches(ctx context.Context, log *logger.Logger, phase string, senderID int, receivers []int, text string) BatchStats {
	var stats BatchStats
	for start := 0; start < len(receivers); start += s.batchSize {
		end := start + s.batchSize
		if end > len(receivers) {
			end = len(receivers)
		}
		batchNo := start/s.batchSize + 1

		if err := s.pacer.Wait(ctx); err != nil {
			log.Warn("batch pacing interrupted", zap.String("phase", phase), zap.Error(err))
		}

		batch := make([]message.Message, 0, end-start)
		for _, receiverID := range receivers[start:end] {
			batch = append(batch, message.Message{
				SenderID:   senderID,
				ReceiverID: receiverID,
				Message:    text,
			})
		}

		stats.Batches++
		n, err := s.messages.CreateMany(ctx, batch)
		s.metrics.ObserveBatch(phase, len(batch), err)
		if err != nil {
			stats.Failed++
			log.Error("broadcast batch failed",
				zap.String("phase", phase),
				zap.Int("sender_id", senderID),
				zap.Int("batch", batchNo),
				zap.Error(err))
			continue
		}
		stats.Delivered += n
		log.Info("broadcast batch sent",
			zap.String("phase", phase),
			zap.Int("sender_id", senderID),
			zap.Int("batch", batchNo),
			zap.Int("size", len(batch)))
	}
	return stats
}
