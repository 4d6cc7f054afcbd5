package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"appstore/internal/model"
	"appstore/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MemoryDocumentRepository is an in-memory repository.DocumentRepository for service tests.
// Its clock advances one microsecond per write so creation order is always strict.
// Fail, when set, is returned by the operation it names ("Create", "Delete", ...).
type MemoryDocumentRepository struct {
	mu   sync.Mutex
	docs map[string]model.Document
	now  time.Time

	Fail map[string]error
}

var _ repository.DocumentRepository = (*MemoryDocumentRepository)(nil)

func NewMemoryDocumentRepository() *MemoryDocumentRepository {
	return &MemoryDocumentRepository{
		docs: map[string]model.Document{},
		now:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Fail: map[string]error{},
	}
}

func (m *MemoryDocumentRepository) tick() time.Time {
	m.now = m.now.Add(time.Microsecond)
	return m.now
}

func (m *MemoryDocumentRepository) Create(_ context.Context, collection string, data datatypes.JSON) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["Create"]; err != nil {
		return nil, err
	}
	ts := m.tick()
	d := model.Document{
		ID:         uuid.NewString(),
		Collection: collection,
		Data:       append(datatypes.JSON(nil), data...),
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	m.docs[d.ID] = d
	return &d, nil
}

func (m *MemoryDocumentRepository) FindByID(_ context.Context, collection, id string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.Collection != collection {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (m *MemoryDocumentRepository) Update(ctx context.Context, collection, id string, data datatypes.JSON) (*model.Document, error) {
	return m.update(collection, id, data, nil)
}

func (m *MemoryDocumentRepository) UpdateIf(ctx context.Context, collection, id string, data datatypes.JSON, expectedUpdatedAt time.Time) (*model.Document, error) {
	return m.update(collection, id, data, &expectedUpdatedAt)
}

func (m *MemoryDocumentRepository) update(collection, id string, data datatypes.JSON, expected *time.Time) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["Update"]; err != nil {
		return nil, err
	}
	d, ok := m.docs[id]
	if !ok || d.Collection != collection {
		return nil, repository.ErrNotFound
	}
	if expected != nil && !d.UpdatedAt.Equal(*expected) {
		return nil, repository.ErrConflict
	}
	d.Data = append(datatypes.JSON(nil), data...)
	d.UpdatedAt = m.tick()
	m.docs[id] = d
	return &d, nil
}

func (m *MemoryDocumentRepository) Delete(_ context.Context, collection, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["Delete"]; err != nil {
		return false, err
	}
	d, ok := m.docs[id]
	if !ok || d.Collection != collection {
		return false, nil
	}
	delete(m.docs, id)
	return true, nil
}

func (m *MemoryDocumentRepository) List(_ context.Context, collection string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["List"]; err != nil {
		return nil, err
	}
	all := make([]model.Document, 0)
	for _, d := range m.docs {
		if d.Collection == collection {
			all = append(all, d)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return repository.Paginate(all, pq), nil
}

func (m *MemoryDocumentRepository) ListCollections(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	out := make([]string, 0)
	for _, d := range m.docs {
		if !seen[d.Collection] {
			seen[d.Collection] = true
			out = append(out, d.Collection)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryDocumentRepository) RawQuery(_ context.Context, query string) ([]map[string]any, error) {
	if err := repository.GuardRawQuery(query); err != nil {
		return nil, err
	}
	return []map[string]any{}, nil
}

func (m *MemoryDocumentRepository) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = map[string]model.Document{}
	return nil
}

// Count returns the number of documents in collection.
func (m *MemoryDocumentRepository) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.docs {
		if d.Collection == collection {
			n++
		}
	}
	return n
}
