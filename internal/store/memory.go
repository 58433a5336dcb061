package store

import (
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

func init() {
	Register("memory", newMemoryStore)
}

// memoryStore keeps entries in an unbounded expirable LRU. Contents are lost on Close.
type memoryStore struct {
	inner *lru.LRU[string, []byte]
}

func newMemoryStore(cfg ProviderConfig) (Store, error) {
	return &memoryStore{
		inner: lru.NewLRU[string, []byte](0, nil, cfg.TTL),
	}, nil
}

func (m *memoryStore) Get(key string) ([]byte, bool) {
	return m.inner.Get(key)
}

func (m *memoryStore) Set(key string, value []byte) error {
	m.inner.Add(key, append([]byte(nil), value...))
	return nil
}

func (m *memoryStore) Delete(key string) error {
	m.inner.Remove(key)
	return nil
}

func (m *memoryStore) Contains(key string) bool {
	return m.inner.Contains(key)
}

func (m *memoryStore) Len() int {
	return m.inner.Len()
}

func (m *memoryStore) Close() error {
	return nil
}
