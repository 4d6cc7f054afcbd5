package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"appstore/internal/model"
	"appstore/internal/repository"
)

var (
	//go:embed templates/notepad.js
	notepadSource string
	//go:embed templates/db-viewer.js
	dbViewerSource string
)

type seedApp struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Version     string  `json:"version"`
	Price       float64 `json:"price"`
	Icon        string  `json:"icon"`
	Installed   int     `json:"installed"`
	SourceCode  string  `json:"source_code,omitempty"`
}

func defaultApps() []seedApp {
	return []seedApp{
		{ID: "notepad", Name: "Notepad", Description: "A simple notepad for quick notes and ideas.", Version: "1.0.0", Icon: "📝", Installed: 1, SourceCode: notepadSource},
		{ID: "db-viewer", Name: "DB Viewer", Description: "Browse and manage your database collections and documents.", Version: "1.0.0", Icon: "🗃️", Installed: 1, SourceCode: dbViewerSource},
		{ID: "to-do-list", Name: "To-Do List", Description: "Manage your tasks and stay organized.", Version: "1.2.3", Price: 2.99, Icon: "✅"},
		{ID: "calendar", Name: "Calendar", Description: "View and schedule your events easily.", Version: "2.1.0", Price: 4.99, Icon: "📅"},
		{ID: "chess", Name: "Chess", Description: "Play chess and challenge your mind.", Version: "1.8.7", Price: 7.50, Icon: "♟️"},
		{ID: "file-drive", Name: "File Drive", Description: "Store and access your files securely.", Version: "3.0.2", Price: 9.99, Icon: "🗂️"},
		{ID: "calculator", Name: "Calculator", Description: "Perform quick calculations and solve equations.", Version: "2.4.1", Price: 1.99, Icon: "🧮"},
		{ID: "stocks", Name: "Stocks", Description: "Track stock prices and market trends.", Version: "1.5.9", Price: 8.99, Icon: "📈"},
	}
}

// Seeder fills an empty apps collection with the built-in catalog.
type Seeder struct {
	repo   repository.DocumentRepository
	logger zerolog.Logger
}

func NewSeeder(repo repository.DocumentRepository, logger zerolog.Logger) *Seeder {
	return &Seeder{repo: repo, logger: logger.With().Str("component", "seeder").Logger()}
}

// Seed is a no-op when the apps collection already holds a document.
func (s *Seeder) Seed(ctx context.Context) error {
	existing, err := s.repo.List(ctx, model.CollectionApps, repository.PageQuery{Limit: 1})
	if err != nil {
		return fmt.Errorf("check apps: %w", err)
	}
	if existing.Total > 0 {
		s.logger.Info().Str("event", "seed_skip").Int("apps", existing.Total).Msg("apps already exist, skipping seeding")
		return nil
	}

	apps := defaultApps()
	for _, a := range apps {
		b, err := json.Marshal(a)
		if err != nil {
			return err
		}
		if _, err := s.repo.Create(ctx, model.CollectionApps, datatypes.JSON(b)); err != nil {
			return fmt.Errorf("seed app %s: %w", a.ID, err)
		}
	}
	s.logger.Info().Str("event", "seed_success").Int("apps", len(apps)).Msg("seeded default apps")
	return nil
}
