package search

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	DefaultDelay          = 500 * time.Millisecond
	DefaultMinQueryLength = 3
)

type FetchFunc func(ctx context.Context, query string) ([]Suggestion, error)

// Debouncer fetches suggestions for the latest input once typing pauses.
// Fetch errors are logged and dropped.
type Debouncer struct {
	fetch     FetchFunc
	onResults func(query string, suggestions []Suggestion)
	delay     time.Duration
	minLength int
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	wg     sync.WaitGroup
}

type DebouncerOption func(*Debouncer)

func WithDelay(d time.Duration) DebouncerOption {
	return func(db *Debouncer) { db.delay = d }
}

func WithMinQueryLength(n int) DebouncerOption {
	return func(db *Debouncer) { db.minLength = n }
}

func WithLogger(l *zap.Logger) DebouncerOption {
	return func(db *Debouncer) { db.logger = l }
}

func NewDebouncer(fetch FetchFunc, onResults func(query string, suggestions []Suggestion), opts ...DebouncerOption) *Debouncer {
	ctx, cancel := context.WithCancel(context.Background())

	db := &Debouncer{
		fetch:     fetch,
		onResults: onResults,
		delay:     DefaultDelay,
		minLength: DefaultMinQueryLength,
		logger:    zap.NewNop(),
		ctx:       ctx,
		cancel:    cancel,
	}

	for _, opt := range opts {
		opt(db)
	}

	return db
}

// Input resets the pending timer. Queries shorter than the minimum length
// only cancel it.
func (db *Debouncer) Input(query string) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return
	}

	db.stopLocked()

	if utf8.RuneCountInString(query) < db.minLength {
		return
	}

	db.wg.Add(1)
	db.timer = time.AfterFunc(db.delay, func() {
		defer db.wg.Done()
		db.run(query)
	})
}

// Close cancels any pending or in-flight fetch and waits for it to return.
func (db *Debouncer) Close() {
	db.mu.Lock()
	db.closed = true
	db.stopLocked()
	db.mu.Unlock()

	db.cancel()
	db.wg.Wait()
}

func (db *Debouncer) stopLocked() {
	if db.timer != nil && db.timer.Stop() {
		// the callback never ran, release its slot
		db.wg.Done()
	}
	db.timer = nil
}

func (db *Debouncer) run(query string) {
	suggestions, err := db.fetch(db.ctx, query)
	if err != nil {
		db.logger.Warn("fetch search suggestions", zap.String("query", query), zap.Error(err))
		return
	}

	db.onResults(query, suggestions)
}
