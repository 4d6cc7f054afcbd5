package repository

import (
	"context"

	"github.com/tidwall/gjson"

	"appstore/internal/model"
)

// ScanLimit bounds how many documents a logical-id lookup inspects.
// Documents past the bound are invisible to FindByLogicalID.
const ScanLimit = MaxLimit

// Collection addresses the entities of one collection by their logical id (data.id).
// Logical-id lookups scan the newest ScanLimit documents; Filter reads every page.
type Collection struct {
	docs DocumentRepository
	name string
	scan int
}

func newCollection(docs DocumentRepository, name string, scan int) Collection {
	return Collection{docs: docs, name: name, scan: scan}
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// Filter walks the whole collection page by page and returns the documents that
// satisfy keep, newest first.
func (c Collection) Filter(ctx context.Context, keep func(model.Document) bool) ([]model.Document, error) {
	out := make([]model.Document, 0)
	for offset := 0; ; {
		page, err := c.docs.List(ctx, c.name, PageQuery{Limit: c.scan, Offset: offset})
		if err != nil {
			return nil, err
		}
		for _, d := range page.Items {
			if keep(d) {
				out = append(out, d)
			}
		}
		offset += len(page.Items)
		if len(page.Items) == 0 || offset >= page.Total {
			return out, nil
		}
	}
}

// FindByLogicalID returns the first scanned document whose data.id equals id.
func (c Collection) FindByLogicalID(ctx context.Context, id string) (*model.Document, error) {
	page, err := c.docs.List(ctx, c.name, PageQuery{Limit: c.scan})
	if err != nil {
		return nil, err
	}
	for i := range page.Items {
		if page.Items[i].LogicalID() == id {
			return &page.Items[i], nil
		}
	}
	return nil, ErrNotFound
}

// Published returns the documents whose status is "published", newest first.
func (c Collection) Published(ctx context.Context) ([]model.Document, error) {
	return c.Filter(ctx, model.IsPublished)
}

type Apps struct{ Collection }

func NewApps(docs DocumentRepository) *Apps {
	return &Apps{newCollection(docs, model.CollectionApps, ScanLimit)}
}

type Projects struct{ Collection }

func NewProjects(docs DocumentRepository) *Projects {
	return &Projects{newCollection(docs, model.CollectionProjects, ScanLimit)}
}

type Versions struct{ Collection }

func NewVersions(docs DocumentRepository) *Versions {
	return &Versions{newCollection(docs, model.CollectionProjectVersions, ScanLimit)}
}

// ListByProject returns every version whose project_id equals projectID, newest first.
func (v *Versions) ListByProject(ctx context.Context, projectID string) ([]model.Document, error) {
	return v.Filter(ctx, func(d model.Document) bool {
		return d.Field("project_id").String() == projectID
	})
}

// FindVersion locates version n of a project.
func (v *Versions) FindVersion(ctx context.Context, projectID string, n int) (*model.Document, error) {
	docs, err := v.Filter(ctx, func(d model.Document) bool {
		num := d.Field("version_number")
		return d.Field("project_id").String() == projectID && num.Type == gjson.Number && num.Int() == int64(n)
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return &docs[0], nil
}

type Layouts struct{ Collection }

func NewLayouts(docs DocumentRepository) *Layouts {
	return &Layouts{newCollection(docs, model.CollectionDashboardLayouts, 100)}
}

// FindSingleton returns the layout document carrying model.LayoutID. If duplicates
// exist the newest wins.
func (l *Layouts) FindSingleton(ctx context.Context) (*model.Document, error) {
	return l.FindByLogicalID(ctx, model.LayoutID)
}
