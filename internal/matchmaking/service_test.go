package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rankline/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore is an in-memory Store with the same locking discipline the SQL
// implementation gets from the database: one mutex serializes every call.
type fakeStore struct {
	mu          sync.Mutex
	nextEntryID int
	nextMatchID int
	queue       []*models.QueueEntry
	matches     map[string]*models.Match
	locked      map[int]bool // user ids whose entries a pairing attempt holds
	conflicts   int          // forced ErrPairingConflict results before success
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		matches: make(map[string]*models.Match),
		locked:  make(map[int]bool),
	}
}

func (f *fakeStore) Enqueue(ctx context.Context, userID int) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, m := range f.matches {
		if !m.IsTerminal() && m.HasParticipant(userID) {
			return nil, ErrAlreadyInMatch
		}
	}
	for _, e := range f.queue {
		if e.UserID == userID {
			return nil, ErrAlreadyQueued
		}
	}

	f.nextEntryID++
	entry := &models.QueueEntry{ID: f.nextEntryID, UserID: userID, JoinedAt: time.Now()}
	f.queue = append(f.queue, entry)
	return entry, nil
}

func (f *fakeStore) RemoveEntry(ctx context.Context, userID int) (RemoveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, e := range f.queue {
		if e.UserID == userID {
			if f.locked[userID] {
				return RemoveConflict, nil
			}
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			return RemoveRemoved, nil
		}
	}
	return RemoveNotFound, nil
}

func (f *fakeStore) EntryForUser(ctx context.Context, userID int) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, e := range f.queue {
		if e.UserID == userID {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ActiveMatchForUser(ctx context.Context, userID int) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, m := range f.matches {
		if !m.IsTerminal() && m.HasParticipant(userID) {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) PairOldest(ctx context.Context) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conflicts > 0 {
		f.conflicts--
		return nil, ErrPairingConflict
	}
	if len(f.queue) < 2 {
		return nil, ErrNotEnoughWaiting
	}

	first, second := f.queue[0], f.queue[1]
	f.queue = f.queue[2:]

	f.nextMatchID++
	m := &models.Match{
		ID:        fmt.Sprintf("match-%d", f.nextMatchID),
		User1ID:   first.UserID,
		User2ID:   second.UserID,
		Status:    models.MatchStatusActive,
		CreatedAt: time.Now(),
	}
	f.matches[m.ID] = m

	copied := *m
	return &copied, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	found []*models.Match
}

func (n *recordingNotifier) MatchFound(ctx context.Context, match *models.Match) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.found = append(n.found, match)
}

func (n *recordingNotifier) foundCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.found)
}

func newTestService(store *fakeStore, notifier *recordingNotifier) *Service {
	return NewService(store, notifier, 3, zap.NewNop())
}

func TestJoinPairsTwoOldest(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier)
	ctx := context.Background()

	_, err := svc.Join(ctx, 1)
	require.NoError(t, err)

	status, err := svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateWaiting, status.State)
	require.NotNil(t, status.QueueEntry)
	assert.Equal(t, 1, status.QueueEntry.UserID)

	_, err = svc.Join(ctx, 2)
	require.NoError(t, err)

	for _, userID := range []int{1, 2} {
		status, err := svc.Status(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, StateInMatch, status.State, "user %d", userID)
		require.NotNil(t, status.Match)
		assert.Equal(t, models.MatchStatusActive, status.Match.Status)
	}

	assert.Empty(t, store.queue)
	require.Equal(t, 1, notifier.foundCount())
	assert.Equal(t, 1, notifier.found[0].User1ID)
	assert.Equal(t, 2, notifier.found[0].User2ID)
}

func TestJoinRejectsDuplicates(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})
	ctx := context.Background()

	_, err := svc.Join(ctx, 1)
	require.NoError(t, err)

	_, err = svc.Join(ctx, 1)
	assert.ErrorIs(t, err, ErrAlreadyQueued)
}

func TestJoinRejectsUserInLiveMatch(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})
	ctx := context.Background()

	_, err := svc.Join(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Join(ctx, 2)
	require.NoError(t, err)

	_, err = svc.Join(ctx, 1)
	assert.ErrorIs(t, err, ErrAlreadyInMatch)
}

func TestLeave(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})
	ctx := context.Background()

	result, err := svc.Leave(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, RemoveNotFound, result)

	_, err = svc.Join(ctx, 42)
	require.NoError(t, err)

	result, err = svc.Leave(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, RemoveRemoved, result)

	// Leave is idempotent: a second call reports not_found, not an error.
	result, err = svc.Leave(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, RemoveNotFound, result)

	status, err := svc.Status(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, status.State)
}

func TestLeaveReportsConflictWhileEntryLocked(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})
	ctx := context.Background()

	_, err := svc.Join(ctx, 7)
	require.NoError(t, err)

	store.mu.Lock()
	store.locked[7] = true
	store.mu.Unlock()

	result, err := svc.Leave(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, RemoveConflict, result)

	// Entry is still queued; the caller retries after the pairing settles.
	store.mu.Lock()
	store.locked[7] = false
	store.mu.Unlock()

	result, err = svc.Leave(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, RemoveRemoved, result)
}

func TestStatusPrefersMatchOverStaleQueueEntry(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})
	ctx := context.Background()

	// A stray queue row alongside a live match must not demote the user.
	store.mu.Lock()
	store.queue = append(store.queue, &models.QueueEntry{ID: 1, UserID: 5, JoinedAt: time.Now()})
	store.matches["m1"] = &models.Match{
		ID: "m1", User1ID: 5, User2ID: 6, Status: models.MatchStatusActive,
	}
	store.mu.Unlock()

	status, err := svc.Status(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StateInMatch, status.State)
	require.NotNil(t, status.Match)
	assert.Equal(t, "m1", status.Match.ID)
}

func TestTryPairRetriesConflicts(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := NewService(store, notifier, 3, zap.NewNop())
	ctx := context.Background()

	store.mu.Lock()
	store.queue = []*models.QueueEntry{
		{ID: 1, UserID: 1, JoinedAt: time.Now()},
		{ID: 2, UserID: 2, JoinedAt: time.Now()},
	}
	store.conflicts = 2
	store.mu.Unlock()

	m, err := svc.TryPair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, m.User1ID)
	assert.Equal(t, 2, m.User2ID)
	assert.Equal(t, 1, notifier.foundCount())
}

func TestTryPairGivesUpAfterRetryBudget(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &recordingNotifier{}, 3, zap.NewNop())
	ctx := context.Background()

	store.mu.Lock()
	store.queue = []*models.QueueEntry{
		{ID: 1, UserID: 1, JoinedAt: time.Now()},
		{ID: 2, UserID: 2, JoinedAt: time.Now()},
	}
	store.conflicts = 3
	store.mu.Unlock()

	_, err := svc.TryPair(ctx)
	assert.ErrorIs(t, err, ErrPairingUnavailable)

	// Queue is untouched after a failed attempt.
	store.mu.Lock()
	assert.Len(t, store.queue, 2)
	store.mu.Unlock()
}

func TestTryPairNotEnoughWaiting(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})

	_, err := svc.TryPair(context.Background())
	assert.ErrorIs(t, err, ErrNotEnoughWaiting)
}

func TestConcurrentJoinsPairEveryone(t *testing.T) {
	const users = 20

	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= users; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			_, err := svc.Join(ctx, userID)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// One sweep pass drains whatever the greedy attempts left behind.
	for {
		if _, err := svc.TryPair(ctx); errors.Is(err, ErrNotEnoughWaiting) {
			break
		} else if err != nil {
			t.Fatalf("unexpected pairing error: %v", err)
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	assert.Empty(t, store.queue)
	require.Len(t, store.matches, users/2)
	assert.Equal(t, users/2, notifier.foundCount())

	seen := make(map[int]int)
	for _, m := range store.matches {
		assert.Equal(t, models.MatchStatusActive, m.Status)
		assert.NotEqual(t, m.User1ID, m.User2ID)
		seen[m.User1ID]++
		seen[m.User2ID]++
	}
	require.Len(t, seen, users)
	for userID, count := range seen {
		assert.Equal(t, 1, count, "user %d appears in %d matches", userID, count)
	}
}

func TestSweeperPairsWaitingUsers(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Exhaust the greedy attempts so only the sweep can pair.
	store.mu.Lock()
	store.conflicts = 6
	store.mu.Unlock()

	_, err := svc.Join(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Join(ctx, 2)
	require.NoError(t, err)

	go svc.RunSweeper(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		status, err := svc.Status(context.Background(), 1)
		return err == nil && status.State == StateInMatch
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, notifier.foundCount())
}
