package model

import (
	"time"

	"github.com/tidwall/gjson"
)

// App is the typed view of a document in the apps collection.
type App struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Version        string    `json:"version"`
	Price          float64   `json:"price"`
	Icon           string    `json:"icon"`
	Installed      int       `json:"installed"`
	SourceCode     *string   `json:"source_code,omitempty"`
	Prompt         *string   `json:"prompt,omitempty"`
	Model          *string   `json:"model,omitempty"`
	Status         string    `json:"status"`
	ProjectID      *string   `json:"project_id,omitempty"`
	ProjectVersion *int      `json:"project_version,omitempty"`
	BundleKey      *string   `json:"bundle_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// AppFromDocument derives an App, falling back to defaults for absent fields.
func AppFromDocument(doc Document) App {
	d := gjson.ParseBytes(doc.Data)
	return App{
		ID:             stringOr(d.Get("id"), ""),
		Name:           stringOr(d.Get("name"), "Untitled App"),
		Description:    stringOr(d.Get("description"), ""),
		Version:        versionString(d.Get("version")),
		Price:          floatOr(d.Get("price"), 0),
		Icon:           stringOr(d.Get("icon"), "📱"),
		Installed:      intOr(d.Get("installed"), 1),
		SourceCode:     optString(d.Get("source_code")),
		Prompt:         optString(d.Get("prompt")),
		Model:          optString(d.Get("model")),
		Status:         stringOr(d.Get("status"), StatusDraft),
		ProjectID:      optString(d.Get("project_id")),
		ProjectVersion: optInt(d.Get("project_version")),
		BundleKey:      optString(d.Get("bundle_key")),
		CreatedAt:      timeOr(d.Get("created_at"), doc.CreatedAt),
	}
}

// IsPublished reports whether the stored status is "published".
func IsPublished(doc Document) bool {
	return doc.Field("status").String() == StatusPublished
}
