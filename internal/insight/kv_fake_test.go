package insight_test

import (
	"context"
	"sync"
	"time"

	"github.com/xela07ax/medipredict-console/internal/insight"
)

// fakeKVStore: память вместо Redis, с TTL
type fakeKVStore struct {
	mu      sync.Mutex
	data    map[string]fakeKVItem
	failGet error
	failSet error
}

type fakeKVItem struct {
	value   string
	expires time.Time // zero = no ttl
}

func newFakeKVStore() *fakeKVStore {
	return &fakeKVStore{data: make(map[string]fakeKVItem)}
}

func (f *fakeKVStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failGet != nil {
		return "", f.failGet
	}
	item, ok := f.data[key]
	if !ok {
		return "", insight.ErrCacheMiss
	}
	if !item.expires.IsZero() && time.Now().After(item.expires) {
		delete(f.data, key)
		return "", insight.ErrCacheMiss
	}
	return item.value, nil
}

func (f *fakeKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSet != nil {
		return f.failSet
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	f.data[key] = fakeKVItem{value: value, expires: exp}
	return nil
}
