package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shandysiswandi/gostream/internal/media/entity"
	"github.com/shandysiswandi/gostream/internal/pkg/pkgerror"
)

// InMemoryStore keeps asset records in process memory. It implements the
// metadata store contract the service depends on; a durable backend can
// replace it without touching callers.
type InMemoryStore struct {
	mu     sync.RWMutex
	assets map[string]*assetRecord
	seq    int64
}

type assetRecord struct {
	mu    sync.RWMutex
	asset entity.Asset
	seq   int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		assets: make(map[string]*assetRecord),
	}
}

// Create registers a new asset record. The status always starts pending
// regardless of what the caller passes in.
func (s *InMemoryStore) Create(ctx context.Context, asset entity.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assets[asset.ID]; exists {
		return pkgerror.NewBusiness("asset already exists", pkgerror.CodeConflict)
	}

	asset.Status = entity.AssetStatusPending
	s.seq++
	s.assets[asset.ID] = &assetRecord{
		asset: asset,
		seq:   s.seq,
	}

	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, assetID string) (entity.Asset, error) {
	rec, err := s.get(assetID)
	if err != nil {
		return entity.Asset{}, err
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()

	return rec.asset, nil
}

// UpdateStatus is a conditional update: it only applies next when the
// current status equals expected, and fails with a conflict otherwise.
// This is the atomic guard behind the exactly-once status transition.
func (s *InMemoryStore) UpdateStatus(ctx context.Context, assetID string, expected, next entity.AssetStatus) (entity.Asset, error) {
	rec, err := s.get(assetID)
	if err != nil {
		return entity.Asset{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.asset.Status != expected {
		return entity.Asset{}, pkgerror.NewBusiness("asset status changed by another writer", pkgerror.CodeConflict)
	}

	rec.asset.Status = next

	return rec.asset, nil
}

// List returns the owner's assets newest-first. Ties on CreatedAt resolve
// to the most recently inserted record.
func (s *InMemoryStore) List(ctx context.Context, ownerID string) ([]entity.Asset, error) {
	s.mu.RLock()
	records := make([]*assetRecord, 0, len(s.assets))
	for _, rec := range s.assets {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	type entry struct {
		asset entity.Asset
		seq   int64
	}

	entries := make([]entry, 0, len(records))
	for _, rec := range records {
		rec.mu.RLock()
		if rec.asset.OwnerID == ownerID {
			entries = append(entries, entry{asset: rec.asset, seq: rec.seq})
		}
		rec.mu.RUnlock()
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].asset.CreatedAt != entries[j].asset.CreatedAt {
			return entries[i].asset.CreatedAt > entries[j].asset.CreatedAt
		}
		return entries[i].seq > entries[j].seq
	})

	assets := make([]entity.Asset, 0, len(entries))
	for _, e := range entries {
		assets = append(assets, e.asset)
	}

	return assets, nil
}

func (s *InMemoryStore) get(assetID string) (*assetRecord, error) {
	s.mu.RLock()
	rec, ok := s.assets[assetID]
	s.mu.RUnlock()
	if !ok {
		return nil, pkgerror.ErrNotFound
	}

	return rec, nil
}
