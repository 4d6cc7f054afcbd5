package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"appstore/internal/completion"
)

// CodeGenerator runs the generate and modify flows.
type CodeGenerator interface {
	Configured() bool
	GenerateSync(ctx context.Context, in completion.GenerateInput) (string, error)
	Generate(ctx context.Context, in completion.GenerateInput) <-chan completion.Event
	Modify(ctx context.Context, in completion.ModifyInput) <-chan completion.Event
}

// ModelLister lists the provider's models.
type ModelLister interface {
	ListModels(ctx context.Context) (*completion.ModelCatalog, error)
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

type modifyRequest struct {
	ExistingCode       string `json:"existing_code"`
	ModificationPrompt string `json:"modification_prompt"`
	Model              string `json:"model"`
}

func requireConfigured(c *fiber.Ctx, gen CodeGenerator) error {
	if gen.Configured() {
		return nil
	}
	_ = respondError(c, completion.ErrNoAPIKey)
	return errBodyWritten
}

// ListModels godoc
// @Summary List provider models with ratings and recommendations
// @Tags generation
// @Produce json
// @Router /api/models [get]
func ListModels(lister ModelLister) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat, err := lister.ListModels(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusOK, envelope{
			Data: cat.Data,
			Meta: fiber.Map{
				"has_more":        cat.HasMore,
				"first_id":        cat.FirstID,
				"last_id":         cat.LastID,
				"recommendations": completion.Recommend(cat.Data),
			},
			Links: links{"self": "/api/models"},
		})
	}
}

// GenerateSync godoc
// @Summary Generate an app without streaming
// @Tags generation
// @Accept json
// @Produce json
// @Router /generate/sync [post]
func GenerateSync(gen CodeGenerator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := requireConfigured(c, gen); err != nil {
			return handled(err)
		}
		var req generateRequest
		if err := decodeBody(c, &req); err != nil {
			return handled(err)
		}
		if strings.TrimSpace(req.Prompt) == "" {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "prompt is required")
		}

		code, err := gen.GenerateSync(c.UserContext(), completion.GenerateInput{Prompt: req.Prompt, Model: req.Model})
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusOK, envelope{Data: fiber.Map{"source_code": code}})
	}
}

// GenerateStream godoc
// @Summary Generate an app, streaming status, token, usage and done events
// @Tags generation
// @Accept json
// @Produce text/event-stream
// @Router /generate [post]
func GenerateStream(gen CodeGenerator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := requireConfigured(c, gen); err != nil {
			return handled(err)
		}
		var req generateRequest
		if err := decodeBody(c, &req); err != nil {
			return handled(err)
		}
		if strings.TrimSpace(req.Prompt) == "" {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "prompt is required")
		}

		in := completion.GenerateInput{Prompt: req.Prompt, Model: req.Model}
		return streamEvents(c, func(ctx context.Context) <-chan completion.Event {
			return gen.Generate(ctx, in)
		})
	}
}

// ModifyStream godoc
// @Summary Apply a modification to existing code, streaming like /generate
// @Tags generation
// @Accept json
// @Produce text/event-stream
// @Router /generate/modify [post]
func ModifyStream(gen CodeGenerator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := requireConfigured(c, gen); err != nil {
			return handled(err)
		}
		var req modifyRequest
		if err := decodeBody(c, &req); err != nil {
			return handled(err)
		}
		if strings.TrimSpace(req.ModificationPrompt) == "" {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "modification_prompt is required")
		}

		in := completion.ModifyInput{
			ExistingCode: req.ExistingCode,
			Modification: req.ModificationPrompt,
			Model:        req.Model,
		}
		return streamEvents(c, func(ctx context.Context) <-chan completion.Event {
			return gen.Modify(ctx, in)
		})
	}
}
