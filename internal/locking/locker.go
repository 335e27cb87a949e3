package locking

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Locker serializes work per key. Unlock must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func StockKey(skuID, binID int64) string {
	return fmt.Sprintf("stock:%d:%d", skuID, binID)
}

// BinKey guards writes that raise a bin's total, whatever the SKU.
func BinKey(binID int64) string {
	return fmt.Sprintf("bin:%d", binID)
}

func ItemKey(itemID int64) string {
	return fmt.Sprintf("item:%d", itemID)
}

func TaskKey(taskID int64) string {
	return fmt.Sprintf("task:%d", taskID)
}

func ApprovalKey(approvalID int64) string {
	return fmt.Sprintf("approval:%d", approvalID)
}

// LockAll takes every key in sorted order so two callers locking
// overlapping sets cannot deadlock.
func LockAll(ctx context.Context, l Locker, keys ...string) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	var unlocks []func()
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	seen := make(map[string]bool, len(sorted))
	for _, key := range sorted {
		if seen[key] {
			continue
		}
		seen[key] = true
		unlock, err := l.Lock(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

type entry struct {
	sem  chan struct{}
	refs int
}

// localLocker is an in-process keyed mutex. Entries are dropped once no
// goroutine holds or waits for them.
type localLocker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewLocalLocker() Locker {
	return &localLocker{entries: make(map[string]*entry)}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, nil
}

func (l *localLocker) release(key string, e *entry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}
