package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"convo-chat/internal/domain/botreply"
	"convo-chat/internal/domain/message"
	"convo-chat/internal/domain/user"
	"convo-chat/internal/metrics"
	"convo-chat/internal/repository/memory"
	convo_errors "convo-chat/pkg/errors"
	"convo-chat/pkg/events"
	"convo-chat/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func seedUsers(t *testing.T, store *memory.Store, ids ...int) {
	t.Helper()
	rows := make([]user.User, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, user.User{ID: id, Email: fmt.Sprintf("u%d@example.com", id), Name: fmt.Sprintf("User %d", id)})
	}
	n, err := store.Users().CreateMany(context.Background(), rows)
	require.NoError(t, err)
	require.EqualValues(t, len(ids), n)
}

func seedReplies(t *testing.T, store *memory.Store, contents ...string) {
	t.Helper()
	rows := make([]botreply.BotReply, 0, len(contents))
	for _, c := range contents {
		rows = append(rows, botreply.BotReply{Content: c})
	}
	require.NoError(t, store.BotReplies().CreateMany(context.Background(), rows))
}

type recordedSleep struct {
	delays []time.Duration
}

func (r *recordedSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newBroadcaster(store *memory.Store, opts ...BroadcastOption) *BroadcastService {
	return NewBroadcastService(store.Users(), store.Messages(), store.BotReplies(), logger.NewNop(), opts...)
}

func sendersAndReceivers(msgs []message.Message) (senders, receivers []int) {
	for _, m := range msgs {
		senders = append(senders, m.SenderID)
		receivers = append(receivers, m.ReceiverID)
	}
	return senders, receivers
}

func TestBroadcastSendsHumanMessageThenBotsInOrder(t *testing.T) {
	store := memory.New()
	seedUsers(t, store, 1, 2, 10, 11, 12)
	seedReplies(t, store, "a", "b", "c")
	sleeper := &recordedSleep{}

	svc := newBroadcaster(store, WithSleeper(sleeper.sleep))
	report, err := svc.Broadcast(context.Background(), BroadcastInput{
		Message:   "hello",
		SenderID:  10,
		BotCount:  3,
		BotDelays: []int{0, 0, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, BroadcastCompleted, report.Message)
	assert.Equal(t, 3, report.Recipients)

	msgs := store.AllMessages()
	require.Len(t, msgs, 3+5*3)

	human := msgs[:3]
	for _, m := range human {
		assert.Equal(t, 10, m.SenderID)
		assert.Equal(t, "hello", m.Message)
	}
	_, receivers := sendersAndReceivers(human)
	assert.Equal(t, []int{10, 11, 12}, receivers)

	for i, want := range []struct {
		bot  int
		text string
	}{{3, "a"}, {4, "b"}, {5, "c"}} {
		chunk := msgs[3+i*5 : 3+(i+1)*5]
		senders, receivers := sendersAndReceivers(chunk)
		assert.Equal(t, []int{want.bot, want.bot, want.bot, want.bot, want.bot}, senders)
		assert.Equal(t, []int{1, 2, 10, 11, 12}, receivers, "bot %d must reach every user", want.bot)
		for _, m := range chunk {
			assert.Equal(t, want.text, m.Message)
		}
	}

	require.Len(t, report.Bots, 3)
	for i, b := range report.Bots {
		assert.Equal(t, FirstBotID+i, b.BotID)
		assert.False(t, b.Skipped)
		assert.EqualValues(t, 5, b.Stats.Delivered)
	}
	assert.Equal(t, []time.Duration{0, 0, 0}, sleeper.delays)
}

func TestBroadcastValidation(t *testing.T) {
	svc := newBroadcaster(memory.New())

	_, err := svc.Broadcast(context.Background(), BroadcastInput{SenderID: 10})
	assert.ErrorIs(t, err, convo_errors.ErrInvalidInput)

	_, err = svc.Broadcast(context.Background(), BroadcastInput{Message: "hi"})
	assert.ErrorIs(t, err, convo_errors.ErrInvalidInput)
}

func TestBroadcastWithoutUsers(t *testing.T) {
	store := memory.New()
	report, err := newBroadcaster(store).Broadcast(context.Background(), BroadcastInput{Message: "hi", SenderID: 1})
	require.NoError(t, err)
	assert.Equal(t, BroadcastNoUsers, report.Message)
	assert.Empty(t, store.AllMessages())
}

func TestBroadcastWithOnlySystemAccounts(t *testing.T) {
	store := memory.New()
	seedUsers(t, store, 1, 2)
	seedReplies(t, store, "a")

	report, err := newBroadcaster(store).Broadcast(context.Background(), BroadcastInput{Message: "hi", SenderID: 1})
	require.NoError(t, err)
	assert.Equal(t, BroadcastNoEligible, report.Message)
	assert.Empty(t, store.AllMessages())
}

func TestNormalizeBotCount(t *testing.T) {
	cases := map[int]int{
		0:   DefaultBotCount,
		500: MaxBotCount,
		100: 100,
		-4:  1,
		1:   1,
		7:   7,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeBotCount(in), "input %d", in)
	}
}

func TestNormalizeBotDelays(t *testing.T) {
	assert.Equal(t,
		[]time.Duration{5 * time.Millisecond, 0, 0},
		NormalizeBotDelays([]int{5, -1}, 3))
	assert.Equal(t,
		[]time.Duration{time.Millisecond},
		NormalizeBotDelays([]int{1, 2, 3}, 1))
	assert.Equal(t, []time.Duration{0, 0}, NormalizeBotDelays(nil, 2))
}

func TestBroadcastClampsBotCountTo100(t *testing.T) {
	store := memory.New()
	seedUsers(t, store, 1, 2, 10)
	seedReplies(t, store, "a", "b")

	report, err := newBroadcaster(store, WithSleeper((&recordedSleep{}).sleep)).Broadcast(context.Background(), BroadcastInput{
		Message:  "hi",
		SenderID: 10,
		BotCount: 500,
	})
	require.NoError(t, err)
	require.Len(t, report.Bots, MaxBotCount)
	assert.Equal(t, FirstBotID+MaxBotCount-1, report.Bots[len(report.Bots)-1].BotID)

	skipped := 0
	for _, b := range report.Bots {
		if b.Skipped {
			skipped++
		}
	}
	assert.Equal(t, MaxBotCount-2, skipped)
}

func TestBroadcastDefaultsBotCount(t *testing.T) {
	store := memory.New()
	seedUsers(t, store, 10)

	report, err := newBroadcaster(store).Broadcast(context.Background(), BroadcastInput{Message: "hi", SenderID: 10})
	require.NoError(t, err)
	assert.Len(t, report.Bots, DefaultBotCount)
}

func TestBroadcastSkipsBotsWithoutReplies(t *testing.T) {
	store := memory.New()
	seedUsers(t, store, 1, 2, 10)
	seedReplies(t, store, "only")

	core, logs := observer.New(zapcore.WarnLevel)
	sleeper := &recordedSleep{}
	svc := NewBroadcastService(store.Users(), store.Messages(), store.BotReplies(), logger.FromZap(zap.New(core)), WithSleeper(sleeper.sleep))

	report, err := svc.Broadcast(context.Background(), BroadcastInput{
		Message:   "hi",
		SenderID:  10,
		BotCount:  3,
		BotDelays: []int{1, 2, 3},
	})
	require.NoError(t, err)

	require.Len(t, report.Bots, 3)
	assert.False(t, report.Bots[0].Skipped)
	assert.True(t, report.Bots[1].Skipped)
	assert.True(t, report.Bots[2].Skipped)

	msgs := store.AllMessages()
	require.Len(t, msgs, 1+3)
	for _, m := range msgs[1:] {
		assert.Equal(t, 3, m.SenderID)
		assert.Equal(t, "only", m.Message)
	}

	// Skipped bots never wait.
	assert.Equal(t, []time.Duration{time.Millisecond}, sleeper.delays)
	assert.Equal(t, 2, logs.FilterMessage("no reply for bot").Len())
}

func TestBroadcastContinuesAfterFailedBatch(t *testing.T) {
	store := memory.New()
	ids := []int{1, 2}
	for id := 100; id < 100+700; id++ {
		ids = append(ids, id)
	}
	seedUsers(t, store, ids...)
	seedReplies(t, store, "bot says hi")

	calls := 0
	store.FailInsert = func(batch []message.Message) error {
		calls++
		if calls == 2 {
			return errors.New("connection reset")
		}
		return nil
	}

	m := metrics.New(nil)
	report, err := newBroadcaster(store, WithMetrics(m)).Broadcast(context.Background(), BroadcastInput{
		Message:  "hi",
		SenderID: 100,
		BotCount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, BroadcastCompleted, report.Message)

	assert.Equal(t, BatchStats{Batches: 3, Failed: 1, Delivered: 400}, report.Sender)
	require.Len(t, report.Bots, 1)
	assert.Equal(t, BatchStats{Batches: 3, Failed: 0, Delivered: 702}, report.Bots[0].Stats)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BroadcastBatches.WithLabelValues(metrics.PhaseSender, "failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BroadcastBatches.WithLabelValues(metrics.PhaseSender, "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.BroadcastBatches.WithLabelValues(metrics.PhaseBot, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BroadcastsTotal))
}

func TestBroadcastDelaysOncePerBot(t *testing.T) {
	store := memory.New()
	ids := []int{}
	for id := 10; id < 10+650; id++ {
		ids = append(ids, id)
	}
	seedUsers(t, store, ids...)
	seedReplies(t, store, "a", "b")
	sleeper := &recordedSleep{}

	_, err := newBroadcaster(store, WithSleeper(sleeper.sleep)).Broadcast(context.Background(), BroadcastInput{
		Message:   "hi",
		SenderID:  10,
		BotCount:  2,
		BotDelays: []int{250, 40, 999},
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 40 * time.Millisecond}, sleeper.delays)
}

func TestBroadcastUsesConfiguredBatchSize(t *testing.T) {
	store := memory.New()
	seedUsers(t, store, 10, 11, 12, 13, 14)

	report, err := newBroadcaster(store, WithBatchSize(2)).Broadcast(context.Background(), BroadcastInput{Message: "hi", SenderID: 10, BotCount: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Sender.Batches)
}

func TestBroadcastBatchesThreeHundredByDefault(t *testing.T) {
	store := memory.New()
	ids := make([]int, 0, 603)
	for id := 10; id < 613; id++ {
		ids = append(ids, id)
	}
	seedUsers(t, store, ids...)

	report, err := newBroadcaster(store).Broadcast(context.Background(), BroadcastInput{Message: "hi", SenderID: 10, BotCount: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Sender.Batches)
	assert.EqualValues(t, 603, report.Sender.Delivered)
}

func TestTimerSleep(t *testing.T) {
	assert.NoError(t, timerSleep(context.Background(), 0))
	assert.NoError(t, timerSleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, timerSleep(ctx, time.Hour), context.Canceled)
}

type recordedEvents struct {
	channel string
	events  []events.Event
	err     error
}

func (r *recordedEvents) Publish(_ context.Context, channel string, e events.Event) error {
	r.channel = channel
	r.events = append(r.events, e)
	return r.err
}

func TestBroadcastAnnouncesCompletion(t *testing.T) {
	store := memory.New()
	seedUsers(t, store, 1, 2, 10, 11)
	seedReplies(t, store, "a")
	pub := &recordedEvents{}

	report, err := newBroadcaster(store, WithEvents(pub)).Broadcast(context.Background(), BroadcastInput{Message: "hi", SenderID: 10, BotCount: 2})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.ChannelBroadcasts, pub.channel)
	assert.Equal(t, events.TypeBroadcastCompleted, pub.events[0].Type)
	assert.Equal(t, BroadcastCompletedPayload{
		ID:         report.ID,
		SenderID:   10,
		Recipients: 2,
		Bots:       2,
	}, pub.events[0].Payload)
}

func TestBroadcastIgnoresPublishFailure(t *testing.T) {
	store := memory.New()
	seedUsers(t, store, 10)
	pub := &recordedEvents{err: errors.New("redis down")}

	report, err := newBroadcaster(store, WithEvents(pub)).Broadcast(context.Background(), BroadcastInput{Message: "hi", SenderID: 10, BotCount: 1})
	require.NoError(t, err)
	assert.Equal(t, BroadcastCompleted, report.Message)
}

func TestBroadcastWithoutRecipientsPublishesNothing(t *testing.T) {
	pub := &recordedEvents{}
	_, err := newBroadcaster(memory.New(), WithEvents(pub)).Broadcast(context.Background(), BroadcastInput{Message: "hi", SenderID: 10})
	require.NoError(t, err)
	assert.Empty(t, pub.events)
}
