package session

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wager-bridge-bot/internal/game"
	"wager-bridge-bot/internal/model"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

type queueHarness struct {
	q        *Queue
	notifier *fakeNotifier
	world    *fakeWorld
	spaces   *flakySpaces
	statuses chan Status
}

func newQueueHarness(t *testing.T, poolSize int, failures map[string]int) *queueHarness {
	t.Helper()

	registry := game.NewRegistry()
	require.NoError(t, registry.Register(&scripted{maxRounds: 10}))

	h := &queueHarness{
		notifier: &fakeNotifier{},
		world:    newFakeWorld(1_000_000, nil),
		spaces:   &flakySpaces{failures: failures},
		statuses: make(chan Status, 64),
	}
	h.q = NewQueue(QueueConfig{
		PoolSize:           poolSize,
		HouseEdge:          houseEdge,
		SpaceRetries:       2,
		SpaceRetryInterval: time.Millisecond,
	}, Deps{
		Registry: registry,
		Notifier: h.notifier,
		Spaces:   h.spaces,
		World:    h.world,
	})
	h.q.OnChange(func(s Status) {
		select {
		case h.statuses <- s:
		default:
		}
	})
	h.q.Start(context.Background())
	t.Cleanup(h.q.Stop)
	return h
}

func entry(requester string) model.QueueEntry {
	return model.QueueEntry{
		RequesterID:     requester,
		RequesterName:   "name-" + requester,
		OriginChannelID: "lobby",
		Variant:         string(game.VariantCoinFlip),
	}
}

// started waits until the session in spaceID has sent its first prompt.
func (h *queueHarness) started(t *testing.T, spaceID string) {
	t.Helper()
	require.Eventually(t, func() bool { return h.notifier.count(spaceID) > 0 }, waitFor, tick)
}

func TestQueue_FIFOAdmission(t *testing.T) {
	h := newQueueHarness(t, 1, nil)

	pos, err := h.q.Enqueue(entry("a"))
	require.NoError(t, err)
	assert.Equal(t, 0, pos)

	pos, err = h.q.Enqueue(entry("b"))
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	pos, err = h.q.Enqueue(entry("c"))
	require.NoError(t, err)
	assert.Equal(t, 2, pos)

	assert.Equal(t, Status{Waiting: 2, Active: 1}, h.q.Status())
	h.started(t, "space-a")
	assert.Zero(t, h.notifier.count("space-b"))

	// play a through to a refund
	require.True(t, h.q.Dispatch("space-a", OwnerReplied{ActorID: "a", Text: "Steve"}))
	require.Eventually(t, func() bool { return len(h.q.AwaitingDeposit()) == 1 }, waitFor, tick)

	candidate := h.q.AwaitingDeposit()[0]
	assert.Equal(t, "Steve", candidate.Identifier)
	require.True(t, h.q.DeliverPayment(candidate.SessionID, decimal.NewFromInt(100), "Steve paid you $100."))
	require.True(t, h.q.Dispatch("space-a", OwnerReplied{ActorID: "a", Text: "2"}))
	require.True(t, h.q.Dispatch("space-a", ChoiceSelected{ActorID: "a", OptionID: OptionRefund}))

	h.started(t, "space-b")
	assert.Contains(t, h.spaces.closedSpaces(), "space-a")
	assert.Zero(t, h.notifier.count("space-c"))
	assert.Equal(t, []payCmd{{target: "Steve", amount: 100}}, h.world.payments())

	require.Eventually(t, func() bool {
		return h.q.Status() == Status{Waiting: 1, Active: 1}
	}, waitFor, tick)
	assert.False(t, h.q.Dispatch("space-a", OwnerReplied{ActorID: "a", Text: "hello"}))

	// a may queue again once released
	_, err = h.q.Enqueue(entry("a"))
	assert.NoError(t, err)
}

func TestQueue_RejectsDuplicateAndUnknown(t *testing.T) {
	h := newQueueHarness(t, 1, nil)

	_, err := h.q.Enqueue(entry("a"))
	require.NoError(t, err)

	_, err = h.q.Enqueue(entry("a"))
	assert.ErrorIs(t, err, ErrAlreadyQueued)

	e := entry("b")
	e.Variant = "roulette"
	_, err = h.q.Enqueue(e)
	assert.ErrorIs(t, err, ErrUnknownVariant)

	assert.Equal(t, Status{Waiting: 0, Active: 1}, h.q.Status())
}

func TestQueue_SpaceFailureDropsEntry(t *testing.T) {
	h := newQueueHarness(t, 1, map[string]int{"a": 10})

	_, err := h.q.Enqueue(entry("a"))
	require.NoError(t, err)
	_, err = h.q.Enqueue(entry("b"))
	require.NoError(t, err)

	h.started(t, "space-b")
	assert.Zero(t, h.notifier.count("space-a"))
	assert.Equal(t, Status{Waiting: 0, Active: 1}, h.q.Status())
}

func TestQueue_SpaceRetrySucceeds(t *testing.T) {
	h := newQueueHarness(t, 1, map[string]int{"a": 2})

	_, err := h.q.Enqueue(entry("a"))
	require.NoError(t, err)

	h.started(t, "space-a")
}

func TestQueue_SharedIdentifierBlocked(t *testing.T) {
	h := newQueueHarness(t, 2, nil)

	_, err := h.q.Enqueue(entry("a"))
	require.NoError(t, err)
	_, err = h.q.Enqueue(entry("b"))
	require.NoError(t, err)
	h.started(t, "space-a")
	h.started(t, "space-b")

	require.True(t, h.q.Dispatch("space-a", OwnerReplied{ActorID: "a", Text: "Steve"}))
	require.Eventually(t, func() bool { return len(h.q.AwaitingDeposit()) == 1 }, waitFor, tick)

	require.True(t, h.q.Dispatch("space-b", OwnerReplied{ActorID: "b", Text: "STEVE"}))
	require.Eventually(t, func() bool { return h.notifier.count("space-b") == 2 }, waitFor, tick)

	candidates := h.q.AwaitingDeposit()
	require.Len(t, candidates, 1)
	assert.Equal(t, "Steve", candidates[0].Identifier)
}

func TestQueue_DispatchUnknownSpace(t *testing.T) {
	h := newQueueHarness(t, 1, nil)
	assert.False(t, h.q.Dispatch("nowhere", OwnerReplied{ActorID: "a", Text: "hi"}))
	assert.False(t, h.q.DeliverPayment("missing", decimal.NewFromInt(1), "x paid you $1"))
}

func TestQueue_OnChange(t *testing.T) {
	h := newQueueHarness(t, 1, nil)

	_, err := h.q.Enqueue(entry("a"))
	require.NoError(t, err)
	_, err = h.q.Enqueue(entry("b"))
	require.NoError(t, err)

	var last Status
	require.Eventually(t, func() bool {
		for {
			select {
			case s := <-h.statuses:
				last = s
			default:
				return last == Status{Waiting: 1, Active: 1}
			}
		}
	}, waitFor, tick)
}

func TestQueue_StopRejectsNewEntries(t *testing.T) {
	h := newQueueHarness(t, 1, nil)

	_, err := h.q.Enqueue(entry("a"))
	require.NoError(t, err)
	h.started(t, "space-a")

	h.q.Stop()

	_, err = h.q.Enqueue(entry("b"))
	assert.ErrorIs(t, err, ErrQueueStopped)
	assert.Equal(t, Status{}, h.q.Status())
}
