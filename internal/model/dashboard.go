package model

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
)

// LayoutID is the well-known logical id of the singleton dashboard layout.
const LayoutID = "default_layout"

// Widget places one app on the dashboard grid.
type Widget struct {
	ID       string `json:"id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	W        int    `json:"w"`
	H        int    `json:"h"`
	MinW     *int   `json:"min_w,omitempty"`
	MinH     *int   `json:"min_h,omitempty"`
	MaxW     *int   `json:"max_w,omitempty"`
	MaxH     *int   `json:"max_h,omitempty"`
	NoResize *bool  `json:"no_resize,omitempty"`
	NoMove   *bool  `json:"no_move,omitempty"`
}

// DashboardLayout has a nil UpdatedAt until it has been saved once.
type DashboardLayout struct {
	ID        string     `json:"id"`
	Widgets   []Widget   `json:"widgets"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// EmptyLayout is what callers see before the first save.
func EmptyLayout() DashboardLayout {
	return DashboardLayout{ID: LayoutID, Widgets: []Widget{}}
}

// LayoutFromDocument derives a layout. Malformed widget arrays read as empty.
func LayoutFromDocument(doc Document) DashboardLayout {
	d := gjson.ParseBytes(doc.Data)

	widgets := []Widget{}
	if w := d.Get("widgets"); w.IsArray() {
		var parsed []Widget
		if err := json.Unmarshal([]byte(w.Raw), &parsed); err == nil && parsed != nil {
			widgets = parsed
		}
	}

	updated := timeOr(d.Get("updated_at"), doc.UpdatedAt)
	return DashboardLayout{
		ID:        stringOr(d.Get("id"), LayoutID),
		Widgets:   widgets,
		UpdatedAt: &updated,
	}
}
