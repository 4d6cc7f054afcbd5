package model

import (
	"time"

	"github.com/tidwall/gjson"
)

type Project struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Icon           string           `json:"icon"`
	Status         string           `json:"status"`
	CurrentVersion int              `json:"current_version"`
	InitialPrompt  string           `json:"initial_prompt"`
	InitialModel   *string          `json:"initial_model,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Versions       []ProjectVersion `json:"versions,omitempty"`
}

type ProjectVersion struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	VersionNumber int       `json:"version_number"`
	Prompt        string    `json:"prompt"`
	SourceCode    string    `json:"source_code"`
	Model         *string   `json:"model,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProjectFromDocument derives a Project. Versions are left nil; only detail reads fill them.
func ProjectFromDocument(doc Document) Project {
	d := gjson.ParseBytes(doc.Data)
	return Project{
		ID:             stringOr(d.Get("id"), ""),
		Name:           stringOr(d.Get("name"), "Untitled Project"),
		Description:    stringOr(d.Get("description"), ""),
		Icon:           stringOr(d.Get("icon"), "📋"),
		Status:         stringOr(d.Get("status"), StatusDraft),
		CurrentVersion: intOr(d.Get("current_version"), 0),
		InitialPrompt:  stringOr(d.Get("initial_prompt"), ""),
		InitialModel:   optString(d.Get("initial_model")),
		CreatedAt:      timeOr(d.Get("created_at"), doc.CreatedAt),
		UpdatedAt:      timeOr(d.Get("updated_at"), doc.UpdatedAt),
	}
}

func VersionFromDocument(doc Document) ProjectVersion {
	d := gjson.ParseBytes(doc.Data)
	return ProjectVersion{
		ID:            stringOr(d.Get("id"), ""),
		ProjectID:     stringOr(d.Get("project_id"), ""),
		VersionNumber: intOr(d.Get("version_number"), 0),
		Prompt:        stringOr(d.Get("prompt"), ""),
		SourceCode:    stringOr(d.Get("source_code"), ""),
		Model:         optString(d.Get("model")),
		CreatedAt:     timeOr(d.Get("created_at"), doc.CreatedAt),
	}
}
