package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-timetable-engine/pkg/errors"
)

type termLocker interface {
	Acquire(ctx context.Context, termKey string) (func(context.Context) error, error)
}

// LocalTermLocker is an in-process keyed try-lock.
type LocalTermLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalTermLocker constructs an empty locker.
func NewLocalTermLocker() *LocalTermLocker {
	return &LocalTermLocker{held: make(map[string]bool)}
}

// Acquire takes the key or fails with ErrTermLocked without waiting.
func (l *LocalTermLocker) Acquire(_ context.Context, termKey string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[termKey] {
		return nil, appErrors.Clone(appErrors.ErrTermLocked, fmt.Sprintf("term %s is already being generated", termKey))
	}
	l.held[termKey] = true

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, termKey)
			l.mu.Unlock()
		})
		return nil
	}, nil
}

// FallbackTermLocker prefers the distributed lock and degrades to the local one when
// the primary cannot be reached. A held primary lock is reported as is.
type FallbackTermLocker struct {
	primary termLocker
	local   *LocalTermLocker
	logger  *zap.Logger
}

// NewFallbackTermLocker wires the two lockers. A nil primary uses the local lock only.
func NewFallbackTermLocker(primary termLocker, logger *zap.Logger) *FallbackTermLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackTermLocker{primary: primary, local: NewLocalTermLocker(), logger: logger}
}

// Acquire implements termLocker.
func (l *FallbackTermLocker) Acquire(ctx context.Context, termKey string) (func(context.Context) error, error) {
	if l.primary != nil {
		release, err := l.primary.Acquire(ctx, termKey)
		if err == nil {
			return release, nil
		}
		if appErrors.HasCode(err, appErrors.ErrTermLocked.Code) {
			return nil, err
		}
		l.logger.Warn("distributed term lock unavailable, using local lock", zap.String("term", termKey), zap.Error(err))
	}
	return l.local.Acquire(ctx, termKey)
}
