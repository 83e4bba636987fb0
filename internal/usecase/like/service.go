package like

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Guyuepp/artfeed/domain"
	"github.com/Guyuepp/artfeed/internal/platform/metrics"
	"github.com/Guyuepp/artfeed/internal/stream"
)

const (
	persistTimeout = 5 * time.Second
	existsTimeout  = 3 * time.Second

	DefaultKnownCacheSize = 100000
)

// pendingEntry is the latest unflushed intent for one key.
// base is the state the remote store held when the entry was created and is
// only meaningful when baseKnown is set.
type pendingEntry struct {
	liked     bool
	base      bool
	baseKnown bool
	ts        int64
}

// netZero reports an entry that would leave the remote store unchanged.
// Without a known base the write is always issued since writes are idempotent.
func (e pendingEntry) netZero() bool {
	return e.baseKnown && e.liked == e.base
}

// countDelta is the effect of the entry on the stored like count
func (e pendingEntry) countDelta() int64 {
	switch {
	case !e.baseKnown || e.liked == e.base:
		return 0
	case e.liked:
		return 1
	default:
		return -1
	}
}

// Service coalesces like toggles per (user, post) and flushes them to the
// like repository. Pending intents are mirrored to a PendingLikeStore so
// they survive restarts.
type Service struct {
	likeRepo  domain.LikeRepository
	store     domain.PendingLikeStore
	publisher domain.ChangePublisher
	metrics   *metrics.LikeMetrics
	retry     RetryPolicy
	clientID  string
	now       func() time.Time

	mu        sync.Mutex
	pending   map[domain.LikeKey]pendingEntry
	known     *simplelru.LRU[domain.LikeKey, bool]
	knownSize int
	version   uint64

	flushMu     sync.Mutex
	failures    int
	nextAttempt time.Time

	persistMu sync.Mutex
	persisted uint64
	persistWG sync.WaitGroup

	group  singleflight.Group
	events *stream.Broadcaster[domain.PostLikeEvent]
}

var _ domain.LikeAggregator = (*Service)(nil)

type Option func(*Service)

// WithClientID sets the instance id stamped on published changes
func WithClientID(id string) Option {
	return func(s *Service) { s.clientID = id }
}

// WithPublisher announces flushed changes to other instances
func WithPublisher(p domain.ChangePublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Service) {
		if p.OnExhausted == nil {
			p.OnExhausted = logExhausted
		}
		s.retry = p
	}
}

func WithMetrics(m *metrics.LikeMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithKnownCacheSize bounds the number of stored like states kept in memory
func WithKnownCacheSize(n int) Option {
	return func(s *Service) { s.knownSize = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds the aggregator and restores the pending queue from store.
// Recovery finishes before NewService returns, so no flush can observe a
// half restored queue.
func NewService(ctx context.Context, lr domain.LikeRepository, store domain.PendingLikeStore, opts ...Option) *Service {
	s := &Service{
		likeRepo:  lr,
		store:     store,
		retry:     DefaultRetryPolicy(),
		now:       time.Now,
		pending:   make(map[domain.LikeKey]pendingEntry),
		knownSize: DefaultKnownCacheSize,
		events:    stream.NewBroadcaster[domain.PostLikeEvent](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.knownSize <= 0 {
		s.knownSize = DefaultKnownCacheSize
	}
	// only fails on a non-positive size
	s.known, _ = simplelru.NewLRU[domain.LikeKey, bool](s.knownSize, nil)
	if s.metrics == nil {
		s.metrics = metrics.NewLikeMetrics("artfeed")
	}
	s.events.OnDrop = s.metrics.EventsDropped.Inc

	s.recover(ctx)
	return s
}

func (s *Service) recover(ctx context.Context) {
	actions, err := s.store.Load(ctx)
	if err != nil {
		logrus.Errorf("failed to load pending likes, starting empty: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range actions {
		key := a.Key()
		if cur, ok := s.pending[key]; ok && cur.ts > a.Timestamp {
			continue
		}
		// the stored state is unknown after a restart, so the intent is written as is
		s.pending[key] = pendingEntry{liked: a.Action.Liked(), ts: a.Timestamp}
	}
	s.metrics.PendingActions.Set(float64(len(s.pending)))
	if len(s.pending) > 0 {
		logrus.Infof("restored %d pending like actions", len(s.pending))
	}
}

// QueueLike records the latest intent of userID for postID.
// A later call for the same pair replaces an unflushed earlier one.
func (s *Service) QueueLike(userID string, postID int64, liked bool) {
	key := domain.LikeKey{UserID: userID, PostID: postID}
	ts := s.now().UnixMilli()

	s.mu.Lock()
	entry, ok := s.pending[key]
	if !ok {
		entry.base, entry.baseKnown = s.known.Get(key)
	}
	entry.liked, entry.ts = liked, ts
	s.pending[key] = entry
	actions, version := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.LikesQueued.Inc()
	s.persistAsync(actions, version)
	s.publish(domain.PostLikeEvent{
		PostID:    postID,
		IsLiked:   liked,
		Timestamp: ts,
		OwnUpdate: true,
	})
}

// IsPostLikedByUser answers from the pending queue, then the local cache,
// and falls back to the repository. Any repository failure reads as not liked.
func (s *Service) IsPostLikedByUser(ctx context.Context, userID string, postID int64) bool {
	key := domain.LikeKey{UserID: userID, PostID: postID}
	if liked, ok := s.localState(key); ok {
		return liked
	}

	v, err, _ := s.group.Do(key.String(), func() (interface{}, error) {
		// shared by every caller waiting on this key
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), existsTimeout)
		defer cancel()
		exists, err := s.likeRepo.Exists(ctx, userID, postID)
		if err != nil {
			return false, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		// a concurrent QueueLike is newer than what we read
		if cur, ok := s.pending[key]; ok {
			return cur.liked, nil
		}
		s.known.Add(key, exists)
		return exists, nil
	})
	if err != nil {
		logrus.Warnf("failed to check like of post %d by %s: %v", postID, userID, err)
		return false
	}
	return v.(bool)
}

func (s *Service) localState(key domain.LikeKey) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.pending[key]; ok {
		return e.liked, true
	}
	return s.known.Get(key)
}

// GetLikeCount returns the stored count adjusted by unflushed local intents.
// It returns 0 when the repository fails.
func (s *Service) GetLikeCount(ctx context.Context, postID int64) int64 {
	count, err := s.likeRepo.CountByPost(ctx, postID)
	if err != nil {
		logrus.Warnf("failed to count likes of post %d: %v", postID, err)
		return 0
	}

	s.mu.Lock()
	for key, e := range s.pending {
		if key.PostID == postID {
			count += e.countDelta()
		}
	}
	s.mu.Unlock()

	return max(count, 0)
}

// Flush writes the net effect of the pending queue to the repository.
// Concurrent calls run one after another. On failure the queue is kept as is
// and later flushes are deferred according to the retry policy.
func (s *Service) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	if s.now().Before(s.nextAttempt) {
		s.metrics.Flushes.WithLabelValues(metrics.ResultDeferred).Inc()
		return domain.ErrFlushDeferred
	}

	s.mu.Lock()
	snapshot := maps.Clone(s.pending)
	s.mu.Unlock()
	if len(snapshot) == 0 {
		return nil
	}

	changes := partition(snapshot)
	if err := s.apply(ctx, changes); err != nil {
		return s.flushFailed(ctx, snapshot, err)
	}

	s.failures, s.nextAttempt = 0, time.Time{}
	s.metrics.Flushes.WithLabelValues(metrics.ResultSuccess).Inc()
	s.metrics.RowsWritten.WithLabelValues("insert").Add(float64(len(changes.ToAdd)))
	s.metrics.RowsWritten.WithLabelValues("delete").Add(float64(len(changes.ToRemove)))

	s.settle(ctx, snapshot)
	s.announce(ctx, changes)
	return nil
}

func (s *Service) apply(ctx context.Context, changes domain.LikeStateChanges) error {
	if len(changes.ToAdd) > 0 {
		if err := s.likeRepo.InsertBatch(ctx, changes.ToAdd); err != nil {
			return fmt.Errorf("insert %d likes: %w", len(changes.ToAdd), err)
		}
	}
	for _, l := range changes.ToRemove {
		if err := s.likeRepo.Delete(ctx, l); err != nil {
			return fmt.Errorf("delete like of post %d by %s: %w", l.PostID, l.UserID, err)
		}
	}
	return nil
}

// settle drops the flushed entries that were not replaced while flushing.
// Replaced entries stay and now build on the state just written.
func (s *Service) settle(ctx context.Context, snapshot map[domain.LikeKey]pendingEntry) {
	s.mu.Lock()
	for key, flushed := range snapshot {
		cur, ok := s.pending[key]
		if !ok {
			continue
		}
		if cur == flushed {
			delete(s.pending, key)
			s.known.Add(key, flushed.liked)
			continue
		}
		cur.base, cur.baseKnown = flushed.liked, true
		s.pending[key] = cur
	}
	actions, version := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, actions, version)
}

func (s *Service) flushFailed(ctx context.Context, snapshot map[domain.LikeKey]pendingEntry, err error) error {
	s.failures++
	s.metrics.Flushes.WithLabelValues(metrics.ResultFailure).Inc()

	if !s.retry.exhausted(s.failures) {
		wait := s.retry.Backoff(s.failures)
		s.nextAttempt = s.now().Add(wait)
		logrus.Warnf("flush of %d pending likes failed (attempt %d), next try in %s: %v",
			len(snapshot), s.failures, wait, err)
		return fmt.Errorf("flush %d pending likes: %w", len(snapshot), err)
	}

	attempts := s.failures
	s.failures, s.nextAttempt = 0, time.Time{}

	s.mu.Lock()
	var dropped []domain.PendingLikeAction
	for key, failed := range snapshot {
		if cur, ok := s.pending[key]; ok && cur == failed {
			delete(s.pending, key)
			s.known.Remove(key)
			dropped = append(dropped, toAction(key, failed))
		}
	}
	actions, version := s.snapshotLocked()
	s.mu.Unlock()

	sortActions(dropped)
	s.metrics.DeadLettered.Add(float64(len(dropped)))
	s.retry.OnExhausted(dropped, err)
	s.persist(ctx, actions, version)

	return fmt.Errorf("flush failed %d times, dropped %d like actions: %w", attempts, len(dropped), err)
}

// announce tells other instances about the rows this instance just wrote
func (s *Service) announce(ctx context.Context, changes domain.LikeStateChanges) {
	if s.publisher == nil || changes.Empty() {
		return
	}
	now := s.now()
	out := make([]domain.LikeChange, 0, len(changes.ToAdd)+len(changes.ToRemove))
	for _, l := range changes.ToAdd {
		out = append(out, domain.LikeChange{Type: domain.ChangeInsert, UserID: l.UserID, PostID: l.PostID, Origin: s.clientID, CommitTimestamp: now})
	}
	for _, l := range changes.ToRemove {
		out = append(out, domain.LikeChange{Type: domain.ChangeDelete, UserID: l.UserID, PostID: l.PostID, Origin: s.clientID, CommitTimestamp: now})
	}
	if err := s.publisher.Publish(ctx, out); err != nil {
		logrus.Warnf("failed to publish %d like changes: %v", len(out), err)
	}
}

// Subscribe registers a listener on the live update stream
func (s *Service) Subscribe(buffer int) (<-chan domain.PostLikeEvent, func()) {
	return s.events.Subscribe(buffer)
}

func (s *Service) HasPending(userID string, postID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[domain.LikeKey{UserID: userID, PostID: postID}]
	return ok
}

// Pending returns the unflushed actions ordered by user and post
func (s *Service) Pending() []domain.PendingLikeAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actionsLocked()
}

// ObserveExternal publishes a change written by someone else.
// Changes stamped with our own client id, or touching a key with a pending
// local intent, are suppressed. Only states already cached are updated.
func (s *Service) ObserveExternal(change domain.LikeChange) bool {
	if change.Origin != "" && change.Origin == s.clientID {
		s.metrics.RealtimeEvents.WithLabelValues(metrics.RealtimeSuppressed).Inc()
		return false
	}

	key := change.Key()
	s.mu.Lock()
	if _, ok := s.pending[key]; ok {
		s.mu.Unlock()
		s.metrics.RealtimeEvents.WithLabelValues(metrics.RealtimeSuppressed).Inc()
		return false
	}
	if s.known.Contains(key) {
		s.known.Add(key, change.Liked())
	}
	s.mu.Unlock()

	ts := change.CommitTimestamp
	if ts.IsZero() {
		ts = s.now()
	}
	s.metrics.RealtimeEvents.WithLabelValues(metrics.RealtimePublished).Inc()
	s.publish(domain.PostLikeEvent{
		PostID:    change.PostID,
		IsLiked:   change.Liked(),
		Timestamp: ts.UnixMilli(),
	})
	return true
}

// CloseSubscriptions ends every live update stream. Later subscribers get a closed channel.
func (s *Service) CloseSubscriptions() {
	s.events.Close()
}

// Close waits for in-flight persists and closes every subscription.
// It must not race with Flush or QueueLike.
func (s *Service) Close() {
	s.persistWG.Wait()
	s.events.Close()
}

func (s *Service) publish(ev domain.PostLikeEvent) {
	origin := "external"
	if ev.OwnUpdate {
		origin = "own"
	}
	s.metrics.EventsPublished.WithLabelValues(origin).Inc()
	s.events.Publish(ev)
}

// snapshotLocked returns the durable form of the queue and must be called
// with mu held. Net-zero entries are left out: the durable form carries no
// base, so a restored entry is always written.
func (s *Service) snapshotLocked() ([]domain.PendingLikeAction, uint64) {
	s.version++
	s.metrics.PendingActions.Set(float64(len(s.pending)))
	actions := make([]domain.PendingLikeAction, 0, len(s.pending))
	for key, e := range s.pending {
		if !e.netZero() {
			actions = append(actions, toAction(key, e))
		}
	}
	sortActions(actions)
	return actions, s.version
}

func (s *Service) actionsLocked() []domain.PendingLikeAction {
	actions := make([]domain.PendingLikeAction, 0, len(s.pending))
	for key, e := range s.pending {
		actions = append(actions, toAction(key, e))
	}
	sortActions(actions)
	return actions
}

func (s *Service) persistAsync(actions []domain.PendingLikeAction, version uint64) {
	s.persistWG.Add(1)
	go func() {
		defer s.persistWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		s.persist(ctx, actions, version)
	}()
}

// persist writes one snapshot of the queue. Snapshots older than the last
// one written are skipped so a slow goroutine cannot roll the store back.
func (s *Service) persist(ctx context.Context, actions []domain.PendingLikeAction, version uint64) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if version <= s.persisted {
		return
	}
	s.persisted = version

	var err error
	if len(actions) == 0 {
		err = s.store.Clear(ctx)
	} else {
		err = s.store.Save(ctx, actions)
	}
	if err != nil {
		s.metrics.PersistFailures.Inc()
		logrus.Warnf("failed to persist %d pending likes: %v", len(actions), err)
	}
}

func partition(snapshot map[domain.LikeKey]pendingEntry) domain.LikeStateChanges {
	var changes domain.LikeStateChanges
	for key, e := range snapshot {
		if e.netZero() {
			continue
		}
		l := domain.Like{PostID: key.PostID, UserID: key.UserID, CreatedAt: time.UnixMilli(e.ts)}
		if e.liked {
			changes.ToAdd = append(changes.ToAdd, l)
		} else {
			changes.ToRemove = append(changes.ToRemove, l)
		}
	}
	sortLikes(changes.ToAdd)
	sortLikes(changes.ToRemove)
	return changes
}

func toAction(key domain.LikeKey, e pendingEntry) domain.PendingLikeAction {
	return domain.PendingLikeAction{
		PostID:    key.PostID,
		UserID:    key.UserID,
		Action:    domain.LikeActionOf(e.liked),
		Timestamp: e.ts,
	}
}

func compareKeys(a, b domain.LikeKey) int {
	if c := strings.Compare(a.UserID, b.UserID); c != 0 {
		return c
	}
	switch {
	case a.PostID < b.PostID:
		return -1
	case a.PostID > b.PostID:
		return 1
	}
	return 0
}

func sortActions(actions []domain.PendingLikeAction) {
	slices.SortFunc(actions, func(a, b domain.PendingLikeAction) int {
		return compareKeys(a.Key(), b.Key())
	})
}

func sortLikes(likes []domain.Like) {
	slices.SortFunc(likes, func(a, b domain.Like) int {
		return compareKeys(
			domain.LikeKey{UserID: a.UserID, PostID: a.PostID},
			domain.LikeKey{UserID: b.UserID, PostID: b.PostID},
		)
	})
}
