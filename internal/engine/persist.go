package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const defaultPersistTimeout = 5 * time.Second

// persister writes snapshots for one store key from a single goroutine.
// Only the newest pending snapshot is kept; older ones are dropped before
// they reach the store.
type persister struct {
	store   repository.Store
	key     string
	kind    string
	timeout time.Duration
	logger  *slog.Logger

	pending chan string
	done    chan struct{}
	once    sync.Once
}

func newPersister(store repository.Store, key, kind string, timeout time.Duration, logger *slog.Logger) *persister {
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	p := &persister{
		store:   store,
		key:     key,
		kind:    kind,
		timeout: timeout,
		logger:  logger,
		pending: make(chan string, 1),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// submit queues value, replacing any snapshot not yet written. Callers must
// serialize calls to submit and must not call it after close.
func (p *persister) submit(value string) {
	for {
		select {
		case p.pending <- value:
			return
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

func (p *persister) run() {
	defer close(p.done)
	for value := range p.pending {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.store.Set(ctx, p.key, value); err != nil {
			persistFailures.WithLabelValues(p.kind).Inc()
			p.logger.Error("failed to persist state",
				slog.String("key", p.key),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}
}

// close stops accepting snapshots and waits until the last one is written or
// ctx ends.
func (p *persister) close(ctx context.Context) error {
	p.once.Do(func() { close(p.pending) })
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func encodeList[T any](list []T) (string, error) {
	if list == nil {
		list = []T{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// loadList reads the JSON array stored under key. A missing key yields nil.
// A value that is not a JSON array of T is removed from the store and also
// yields nil. Store read failures are logged and yield nil.
func loadList[T any](ctx context.Context, store repository.Store, key, kind string, logger *slog.Logger) []T {
	raw, err := store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, "failed to load persisted state",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	var list []T
	if gjson.Valid(raw) && gjson.Parse(raw).IsArray() {
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return list
		}
	}

	corruptStates.WithLabelValues(kind).Inc()
	logger.WarnContext(ctx, "discarding malformed persisted state", slog.String("key", key))
	if err := store.Remove(ctx, key); err != nil {
		logger.ErrorContext(ctx, "failed to remove malformed state",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
