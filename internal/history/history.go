// Package history keeps the list of completed downloads, newest first.
package history

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/linkdrop/linkdrop/internal/config"
	"github.com/linkdrop/linkdrop/internal/models"
	"github.com/linkdrop/linkdrop/internal/store"
)

const (
	// Key is the store key the encoded history lives under.
	Key = "linkdrop_history"
	// MaxRecords is the number of records kept; older ones are dropped on Add.
	MaxRecords = 50
)

// History is a capped, newest-first list of HistoryRecord persisted in a store.Store.
type History struct {
	mu    sync.Mutex
	store store.Store
}

// New wraps s. The store is owned by the caller.
func New(s store.Store) *History {
	return &History{store: s}
}

// Open creates the store configured in cfg.History and wraps it. With a ttl set,
// the whole history is forgotten once nothing has been added for that long.
// Close the returned History to release the store.
func Open(cfg *config.Config) (*History, error) {
	provider := cfg.History.Provider
	if provider == "" {
		provider = "bolt"
	}
	var ttl time.Duration
	if cfg.History.TTL != "" {
		parsed, err := time.ParseDuration(cfg.History.TTL)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid history.ttl %q: must be a non-negative duration", cfg.History.TTL)
		}
		ttl = parsed
	}
	s, err := store.New(provider, store.ProviderConfig{
		TTL:           ttl,
		Path:          cfg.History.Path,
		RedisAddress:  cfg.History.RedisAddress,
		RedisPassword: cfg.History.RedisPassword,
		RedisDB:       cfg.History.RedisDB,
		Logger:        store.ZerologLogger{Logger: config.GetLogger()},
	})
	if err != nil {
		return nil, fmt.Errorf("open %s history store: %w", provider, err)
	}
	return New(s), nil
}

// List returns the stored records, newest first. A missing or unreadable entry yields an empty list.
func (h *History) List() []models.HistoryRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load()
}

// Add prepends rec and drops everything past MaxRecords.
func (h *History) Add(rec models.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	records := append([]models.HistoryRecord{rec}, h.load()...)
	if len(records) > MaxRecords {
		records = records[:MaxRecords]
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := h.store.Set(Key, data); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Clear removes every record.
func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.store.Delete(Key); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Close releases the underlying store.
func (h *History) Close() error {
	return h.store.Close()
}

func (h *History) load() []models.HistoryRecord {
	data, ok := h.store.Get(Key)
	if !ok || len(data) == 0 {
		return []models.HistoryRecord{}
	}

	var records []models.HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		logger := config.GetLogger()
		logger.Warn().Err(err).Msg("Discarding unreadable download history")
		return []models.HistoryRecord{}
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}
	return records
}
