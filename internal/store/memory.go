package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"restaurant-assistant/internal/models"
)

type memoryEntry struct {
	doc          models.Document
	restaurantID string
	seq          int64
}

// Memory is an in-process Store used by tests and the "memory" database driver.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]*memoryEntry
	seq         int64
	reads       int
	writes      int
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]*memoryEntry)}
}

func (m *Memory) Get(ctx context.Context, collection, id string) (models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++

	entry, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return entry.doc.Clone(), nil
}

func (m *Memory) Find(ctx context.Context, collection, restaurantID string) ([]models.Document, error) {
	if restaurantID == "" {
		return nil, ErrMissingTenant
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++

	var entries []*memoryEntry
	for _, entry := range m.collections[collection] {
		if entry.restaurantID == restaurantID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]models.Document, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.doc.Clone())
	}
	return out, nil
}

func (m *Memory) Commit(ctx context.Context, batch []Mutation) error {
	if err := validateBatch(batch); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Stage against copies so a failing mutation leaves nothing applied.
	staged := make(map[string]map[string]*memoryEntry)
	lookup := func(collection, id string) (*memoryEntry, bool) {
		if coll, ok := staged[collection]; ok {
			if entry, ok := coll[id]; ok {
				return entry, entry != nil
			}
		}
		entry, ok := m.collections[collection][id]
		return entry, ok
	}
	put := func(collection, id string, entry *memoryEntry) {
		if staged[collection] == nil {
			staged[collection] = make(map[string]*memoryEntry)
		}
		staged[collection][id] = entry
	}

	seq := m.seq
	for _, mut := range batch {
		existing, exists := lookup(mut.Collection, mut.ID)
		if exists && existing.restaurantID != mut.RestaurantID {
			if mut.Type == MutationCreate || mut.Type == MutationMerge {
				return ErrConflict
			}
			return ErrNotFound
		}

		switch mut.Type {
		case MutationCreate:
			if exists {
				return ErrConflict
			}
			seq++
			doc := mut.Data.Clone()
			doc[models.FieldID] = mut.ID
			put(mut.Collection, mut.ID, &memoryEntry{doc: doc, restaurantID: mut.RestaurantID, seq: seq})

		case MutationUpdate, MutationMerge:
			if !exists {
				if mut.Type == MutationUpdate {
					return ErrNotFound
				}
				seq++
				doc := mut.Data.Clone()
				doc[models.FieldID] = mut.ID
				put(mut.Collection, mut.ID, &memoryEntry{doc: doc, restaurantID: mut.RestaurantID, seq: seq})
				continue
			}
			doc := existing.doc.Clone()
			for k, v := range mut.Data.Clone() {
				doc[k] = v
			}
			doc[models.FieldID] = mut.ID
			put(mut.Collection, mut.ID, &memoryEntry{doc: doc, restaurantID: existing.restaurantID, seq: existing.seq})

		case MutationDelete:
			if !exists {
				return ErrNotFound
			}
			put(mut.Collection, mut.ID, nil)

		default:
			return fmt.Errorf("unknown mutation type %q", mut.Type)
		}
	}

	for collection, entries := range staged {
		if m.collections[collection] == nil {
			m.collections[collection] = make(map[string]*memoryEntry)
		}
		for id, entry := range entries {
			if entry == nil {
				delete(m.collections[collection], id)
				continue
			}
			m.collections[collection][id] = entry
		}
	}
	m.seq = seq
	m.writes++
	return nil
}

// Ops reports how many read and write calls reached the store.
func (m *Memory) Ops() (reads, writes int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads, m.writes
}
