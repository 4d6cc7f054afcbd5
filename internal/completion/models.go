package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
)

// ModelInfo describes a provider model with relative ratings from 1 to 5.
type ModelInfo struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Icon         string  `json:"icon"`
	Power        int     `json:"power"`
	Cost         int     `json:"cost"`
	Speed        int     `json:"speed"`
	SpecialLabel *string `json:"special_label"`
}

// ModelCatalog is the provider's model list decorated with ratings.
type ModelCatalog struct {
	Data    []ModelInfo `json:"data"`
	HasMore bool        `json:"has_more"`
	FirstID *string     `json:"first_id"`
	LastID  *string     `json:"last_id"`
}

// Recommendations picks the cheapest and the most powerful model. Ties go to the earlier entry.
type Recommendations struct {
	MostCostEffective *ModelInfo `json:"mostCostEffective"`
	MostPowerful      *ModelInfo `json:"mostPowerful"`
}

type providerModel struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CreatedAt   string `json:"created_at"`
	Type        string `json:"type"`
}

type providerModelList struct {
	Data    []providerModel `json:"data"`
	HasMore bool            `json:"has_more"`
	FirstID *string         `json:"first_id"`
	LastID  *string         `json:"last_id"`
}

func label(s string) *string { return &s }

var knownModels = map[string]ModelInfo{
	"claude-3-haiku-20240307": {
		Name: "Claude 3 Haiku", Description: "Fast and cost-effective for simple tasks", Icon: "⚡",
		Power: 2, Cost: 1, Speed: 5,
	},
	"claude-3-5-haiku-20241022": {
		Name: "Claude 3.5 Haiku", Description: "Enhanced speed and intelligence", Icon: "🚀",
		Power: 3, Cost: 2, Speed: 5, SpecialLabel: label("latest"),
	},
	"claude-3-5-sonnet-20241022": {
		Name: "Claude 3.5 Sonnet", Description: "Balanced performance and capability", Icon: "🎼",
		Power: 4, Cost: 3, Speed: 4, SpecialLabel: label("flagship"),
	},
	"claude-sonnet-4-20250514": {
		Name: "Claude Sonnet 4", Description: "Most advanced model with superior intelligence", Icon: "🧠",
		Power: 5, Cost: 4, Speed: 3, SpecialLabel: label("most powerful"),
	},
	"claude-3-opus-20240229": {
		Name: "Claude 3 Opus", Description: "Powerful model for complex tasks", Icon: "💎",
		Power: 5, Cost: 5, Speed: 2,
	},
}

// DescribeModel returns the ratings for id, with neutral ratings for unknown models.
func DescribeModel(id string) ModelInfo {
	if m, ok := knownModels[id]; ok {
		m.ID = id
		return m
	}
	return ModelInfo{
		ID:          id,
		Name:        "Model " + id,
		Description: "Advanced AI model",
		Icon:        "🤖",
		Power:       3,
		Cost:        3,
		Speed:       3,
	}
}

// SortModels orders by power descending, then name.
func SortModels(models []ModelInfo) {
	sort.SliceStable(models, func(i, j int) bool {
		if models[i].Power != models[j].Power {
			return models[i].Power > models[j].Power
		}
		return models[i].Name < models[j].Name
	})
}

func Recommend(models []ModelInfo) Recommendations {
	var r Recommendations
	for i := range models {
		m := &models[i]
		if r.MostCostEffective == nil || m.Cost < r.MostCostEffective.Cost {
			r.MostCostEffective = m
		}
		if r.MostPowerful == nil || m.Power > r.MostPowerful.Power {
			r.MostPowerful = m
		}
	}
	return r
}

// ListModels fetches the provider's models and decorates them.
func (c *Client) ListModels(ctx context.Context) (*ModelCatalog, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(c.http, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read models: %v", ErrUpstream, err)
	}
	var list providerModelList
	if err := json.Unmarshal(raw, &list); err != nil {
		c.logger.Error().Err(err).Msg("failed to parse models response")
		return nil, fmt.Errorf("%w: malformed models response", ErrUpstream)
	}

	infos := make([]ModelInfo, 0, len(list.Data))
	for _, m := range list.Data {
		infos = append(infos, DescribeModel(m.ID))
	}
	SortModels(infos)

	return &ModelCatalog{
		Data:    infos,
		HasMore: list.HasMore,
		FirstID: list.FirstID,
		LastID:  list.LastID,
	}, nil
}
