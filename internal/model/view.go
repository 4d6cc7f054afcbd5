package model

import (
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// Collections used by the application layer. The store itself accepts any name.
const (
	CollectionApps             = "apps"
	CollectionProjects         = "projects"
	CollectionProjectVersions  = "project_versions"
	CollectionDashboardLayouts = "dashboard_layouts"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

func stringOr(r gjson.Result, def string) string {
	if r.Type == gjson.String {
		return r.Str
	}
	return def
}

func optString(r gjson.Result) *string {
	if r.Type != gjson.String {
		return nil
	}
	s := r.Str
	return &s
}

func intOr(r gjson.Result, def int) int {
	if r.Type == gjson.Number {
		return int(r.Int())
	}
	return def
}

func optInt(r gjson.Result) *int {
	if r.Type != gjson.Number {
		return nil
	}
	i := int(r.Int())
	return &i
}

func floatOr(r gjson.Result, def float64) float64 {
	if r.Type == gjson.Number {
		return r.Num
	}
	return def
}

// timeOr prefers a parseable timestamp string stored inside the payload.
func timeOr(r gjson.Result, def time.Time) time.Time {
	if r.Type == gjson.String {
		if t, err := ParseTime(r.Str); err == nil {
			return t
		}
	}
	return def
}

// versionString accepts both "1.2" and 3 as a version.
func versionString(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return strconv.FormatInt(r.Int(), 10)
	default:
		return "1"
	}
}

// LogicalID returns data.id, the application-level identifier, or "" when absent.
func (d Document) LogicalID() string {
	return stringOr(gjson.GetBytes(d.Data, "id"), "")
}

// Field reads a top-level payload field.
func (d Document) Field(path string) gjson.Result {
	return gjson.GetBytes(d.Data, path)
}
