package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"

	"appstore/internal/model"
)

var (
	// ErrNotFound is returned when no document matches collection+id (or a logical id).
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned by UpdateIf when the document changed since it was read.
	ErrConflict = errors.New("document was modified concurrently")
	// ErrQueryRejected is returned for raw statements that are not SELECT or PRAGMA.
	ErrQueryRejected = errors.New("only SELECT and PRAGMA statements are allowed")
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// DocumentRepository is collection-scoped persistence of JSON documents.
// No knowledge of apps or projects lives here.
type DocumentRepository interface {
	// Create assigns a fresh id and equal created_at/updated_at.
	Create(ctx context.Context, collection string, data datatypes.JSON) (*model.Document, error)

	// FindByID matches on both collection and id.
	FindByID(ctx context.Context, collection, id string) (*model.Document, error)

	// Update replaces data wholesale and refreshes updated_at. ErrNotFound when nothing matched.
	Update(ctx context.Context, collection, id string, data datatypes.JSON) (*model.Document, error)

	// UpdateIf is Update guarded by the updated_at the caller last observed.
	// Returns ErrConflict when the row exists but has moved on.
	UpdateIf(ctx context.Context, collection, id string, data datatypes.JSON, expectedUpdatedAt time.Time) (*model.Document, error)

	// Delete reports whether a row was removed. A missing row is not an error.
	Delete(ctx context.Context, collection, id string) (bool, error)

	// List returns a newest-first page and the size of the whole collection.
	List(ctx context.Context, collection string, pq PageQuery) (*PageResult[model.Document], error)

	// ListCollections returns distinct collection names in lexical order.
	ListCollections(ctx context.Context) ([]string, error)

	// RawQuery runs a guarded read-only statement and coerces every column.
	RawQuery(ctx context.Context, query string) ([]map[string]any, error)

	// Reset drops and recreates the backing table. Every collection is lost.
	Reset(ctx context.Context) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// Normalize applies the default limit, the hard cap and a non-negative offset.
func (pq PageQuery) Normalize() PageQuery {
	if pq.Limit <= 0 {
		pq.Limit = DefaultLimit
	}
	if pq.Limit > MaxLimit {
		pq.Limit = MaxLimit
	}
	if pq.Offset < 0 {
		pq.Offset = 0
	}
	return pq
}

// PageResult is a generic pagination result wrapper.
// Total is the size of the whole (possibly filtered) set, not len(Items).
type PageResult[T any] struct {
	Items []T
	Total int
}

// Paginate slices an already filtered set. Used where filtering happens before paging.
func Paginate[T any](all []T, pq PageQuery) *PageResult[T] {
	pq = pq.Normalize()
	items := make([]T, 0)
	if pq.Offset < len(all) {
		end := pq.Offset + pq.Limit
		if end > len(all) {
			end = len(all)
		}
		items = append(items, all[pq.Offset:end]...)
	}
	return &PageResult[T]{Items: items, Total: len(all)}
}

// GuardRawQuery accepts only a single statement whose trimmed, lower-cased text starts
// with "select" or "pragma". Nothing else reaches the database.
func GuardRawQuery(query string) error {
	q := strings.ToLower(strings.TrimSpace(query))
	if !strings.HasPrefix(q, "select") && !strings.HasPrefix(q, "pragma") {
		return ErrQueryRejected
	}
	if hasTrailingStatement(q) {
		return ErrQueryRejected
	}
	return nil
}

// hasTrailingStatement reports whether anything but whitespace or comments follows a
// statement-terminating semicolon. Quoted text and comments are skipped.
func hasTrailingStatement(q string) bool {
	terminated := false
	for i := 0; i < len(q); i++ {
		ch := q[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			if terminated {
				return true
			}
			j := strings.IndexByte(q[i+1:], ch)
			if j < 0 {
				return false
			}
			i += j + 1
		case ch == '-' && i+1 < len(q) && q[i+1] == '-':
			j := strings.IndexByte(q[i:], '\n')
			if j < 0 {
				return false
			}
			i += j
		case ch == '/' && i+1 < len(q) && q[i+1] == '*':
			j := strings.Index(q[i+2:], "*/")
			if j < 0 {
				return false
			}
			i += j + 3
		case ch == ';':
			terminated = true
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
		default:
			if terminated {
				return true
			}
		}
	}
	return false
}
