package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"appstore/internal/database/migration"
	"appstore/internal/model"
	"appstore/internal/repository"
)

// DocumentStore is the SQL implementation of repository.DocumentRepository.
// Queries are written with "?" placeholders and rebound for the driver.
type DocumentStore struct {
	db     *sqlx.DB
	driver string
	logger zerolog.Logger
	now    func() time.Time
}

// NewDocumentStore creates a DocumentStore. driver is "sqlite" or "postgres" and selects the
// schema dialect used by Reset.
func NewDocumentStore(db *sqlx.DB, driver string, logger zerolog.Logger) *DocumentStore {
	return &DocumentStore{
		db:     db,
		driver: driver,
		logger: logger.With().Str("component", "document_store").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.DocumentRepository = (*DocumentStore)(nil)

type documentRow struct {
	ID         string `db:"id"`
	Collection string `db:"collection"`
	Data       string `db:"data"`
	CreatedAt  string `db:"created_at"`
	UpdatedAt  string `db:"updated_at"`
}

func (r documentRow) toModel() (*model.Document, error) {
	created, err := model.ParseTime(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("document %s: created_at: %w", r.ID, err)
	}
	updated, err := model.ParseTime(r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("document %s: updated_at: %w", r.ID, err)
	}
	return &model.Document{
		ID:         r.ID,
		Collection: r.Collection,
		Data:       datatypes.JSON(r.Data),
		CreatedAt:  created,
		UpdatedAt:  updated,
	}, nil
}

const columns = `id, collection, data, created_at, updated_at`

// Create inserts a new document row and returns the stored record.
func (s *DocumentStore) Create(ctx context.Context, collection string, data datatypes.JSON) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, collection, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	now := s.now()
	ts := model.FormatTime(now)
	id := uuid.NewString()

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(q), id, collection, string(data), ts, ts); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	created, _ := model.ParseTime(ts)
	return &model.Document{
		ID:         id,
		Collection: collection,
		Data:       data,
		CreatedAt:  created,
		UpdatedAt:  created,
	}, nil
}

// FindByID fetches a single document by collection and id.
func (s *DocumentStore) FindByID(ctx context.Context, collection, id string) (*model.Document, error) {
	const q = `SELECT ` + columns + ` FROM documents WHERE collection = ? AND id = ?`
	var r documentRow
	if err := s.db.GetContext(ctx, &r, s.db.Rebind(q), collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return r.toModel()
}

// Update replaces data and moves updated_at strictly forward, even when the clock has
// not advanced past the stored value. A concurrent write between the read and the
// conditional update is retried.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, data datatypes.JSON) (*model.Document, error) {
	for attempt := 0; attempt < updateAttempts; attempt++ {
		cur, err := s.FindByID(ctx, collection, id)
		if err != nil {
			return nil, err
		}
		doc, err := s.UpdateIf(ctx, collection, id, data, cur.UpdatedAt)
		if !errors.Is(err, repository.ErrConflict) {
			return doc, err
		}
	}
	return nil, repository.ErrConflict
}

const updateAttempts = 3

// UpdateIf replaces data only while updated_at still equals expectedUpdatedAt.
func (s *DocumentStore) UpdateIf(ctx context.Context, collection, id string, data datatypes.JSON, expectedUpdatedAt time.Time) (*model.Document, error) {
	const q = `
		UPDATE documents SET data = ?, updated_at = ?
		WHERE collection = ? AND id = ? AND updated_at = ?
		RETURNING ` + columns

	now := s.now()
	if !now.After(expectedUpdatedAt) {
		now = expectedUpdatedAt.Add(time.Nanosecond)
	}

	var r documentRow
	err := s.db.GetContext(ctx, &r, s.db.Rebind(q),
		string(data), model.FormatTime(now), collection, id, model.FormatTime(expectedUpdatedAt))
	if err == nil {
		return r.toModel()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conditional update: %w", err)
	}

	if _, ferr := s.FindByID(ctx, collection, id); ferr != nil {
		return nil, ferr
	}
	return nil, repository.ErrConflict
}

// Delete removes a document. It reports false when no row matched.
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) (bool, error) {
	const q = `DELETE FROM documents WHERE collection = ? AND id = ?`
	res, err := s.db.ExecContext(ctx, s.db.Rebind(q), collection, id)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	return n > 0, nil
}

// List returns documents using LIMIT/OFFSET pagination and the collection's total count.
func (s *DocumentStore) List(ctx context.Context, collection string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	pq = pq.Normalize()

	const qCount = `SELECT COUNT(*) FROM documents WHERE collection = ?`
	var total int
	if err := s.db.GetContext(ctx, &total, s.db.Rebind(qCount), collection); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	const qList = `
		SELECT ` + columns + `
		FROM documents
		WHERE collection = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(qList), collection, pq.Limit, pq.Offset); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	items := make([]model.Document, 0, len(rows))
	for _, r := range rows {
		d, err := r.toModel()
		if err != nil {
			s.logger.Error().Err(err).Str("collection", collection).Msg("stored document is malformed")
			return nil, err
		}
		items = append(items, *d)
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// ListCollections returns the distinct collection names currently in use.
func (s *DocumentStore) ListCollections(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT collection FROM documents ORDER BY collection`
	names := make([]string, 0)
	if err := s.db.SelectContext(ctx, &names, q); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return names, nil
}

// RawQuery runs a SELECT or PRAGMA statement and returns one map per row.
// The statement runs in a read-only transaction that is always rolled back. sqlite
// has no read-only transactions, so its connection is switched to query_only instead.
func (s *DocumentStore) RawQuery(ctx context.Context, query string) ([]map[string]any, error) {
	if err := repository.GuardRawQuery(query); err != nil {
		return nil, err
	}

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("raw query: %w", err)
	}
	defer conn.Close()

	if s.driver == "sqlite" {
		if _, err := conn.ExecContext(ctx, `PRAGMA query_only = ON`); err != nil {
			return nil, fmt.Errorf("raw query: %w", err)
		}
		defer func() {
			if _, err := conn.ExecContext(context.WithoutCancel(ctx), `PRAGMA query_only = OFF`); err != nil {
				s.logger.Error().Err(err).Msg("failed to restore query_only, discarding connection")
				_ = conn.Raw(func(any) error { return driver.ErrBadConn })
			}
		}()
	}

	tx, err := conn.BeginTxx(ctx, &sql.TxOptions{ReadOnly: s.driver == "postgres"})
	if err != nil {
		return nil, fmt.Errorf("raw query: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("raw query: %w", err)
	}
	defer rows.Close()

	out := make([]map[string]any, 0)
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("raw query scan: %w", err)
		}
		for k, v := range row {
			row[k] = CoerceValue(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("raw query: %w", err)
	}
	return out, nil
}

// Reset drops and recreates the documents table.
func (s *DocumentStore) Reset(ctx context.Context) error {
	s.logger.Warn().Str("event", "store_reset").Msg("dropping all collections")
	return migration.Recreate(ctx, s.db, s.driver, s.logger)
}
