package handler

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"appstore/internal/service"
)

type documentRequest struct {
	Data json.RawMessage `json:"data"`
}

type queryRequest struct {
	Query string `json:"query"`
}

func readDocumentRequest(c *fiber.Ctx) (json.RawMessage, error) {
	var req documentRequest
	if err := decodeBody(c, &req); err != nil {
		return nil, err
	}
	if len(req.Data) == 0 {
		_ = writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "data is required")
		return nil, errBodyWritten
	}
	return req.Data, nil
}

// ListCollections godoc
// @Summary List collections that hold at least one document
// @Tags db
// @Produce json
// @Router /api/db [get]
func ListCollections(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		names, err := svc.Collections(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		if names == nil {
			names = []string{}
		}
		return respond(c, fiber.StatusOK, envelope{
			Data:  names,
			Links: links{"self": "/api/db", "collections": "/api/db"},
		})
	}
}

// CreateDocument godoc
// @Summary Store a JSON payload in a collection
// @Tags db
// @Accept json
// @Produce json
// @Param collection path string true "collection name"
// @Router /api/db/{collection} [post]
func CreateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		collection := c.Params("collection")
		data, err := readDocumentRequest(c)
		if err != nil {
			return handled(err)
		}

		doc, err := svc.Create(c.UserContext(), collection, data)
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusCreated, envelope{
			Data:  doc,
			Links: links{"self": fmt.Sprintf("/api/db/%s/%s", collection, doc.ID)},
		})
	}
}

// ListDocuments godoc
// @Summary Page through a collection, newest first
// @Tags db
// @Produce json
// @Param collection path string true "collection name"
// @Param limit query int false "page size (default 100, max 1000)"
// @Param offset query int false "rows to skip"
// @Router /api/db/{collection} [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		collection := c.Params("collection")
		limit, offset, err := parsePaging(c)
		if err != nil {
			return handled(err)
		}

		res, err := svc.List(c.UserContext(), collection, limit, offset)
		if err != nil {
			return respondError(c, err)
		}
		base := "/api/db/" + collection
		return respond(c, fiber.StatusOK, envelope{
			Data: res.Items,
			Meta: pageMeta{Count: res.Total, Limit: res.Limit, Offset: res.Offset},
			Links: links{
				"self":        pageLinks(base, res.Limit, res.Offset),
				"collection":  base,
				"collections": "/api/db",
			},
		})
	}
}

// GetDocument godoc
// @Summary Fetch one document
// @Tags db
// @Produce json
// @Param collection path string true "collection name"
// @Param id path string true "document id"
// @Router /api/db/{collection}/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		collection, id := c.Params("collection"), c.Params("id")
		doc, err := svc.Get(c.UserContext(), collection, id)
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusOK, envelope{
			Data: doc,
			Links: links{
				"self":       fmt.Sprintf("/api/db/%s/%s", collection, id),
				"collection": "/api/db/" + collection,
			},
		})
	}
}

// UpdateDocument godoc
// @Summary Replace a document's payload
// @Tags db
// @Accept json
// @Produce json
// @Param collection path string true "collection name"
// @Param id path string true "document id"
// @Router /api/db/{collection}/{id} [put]
func UpdateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		collection, id := c.Params("collection"), c.Params("id")
		data, err := readDocumentRequest(c)
		if err != nil {
			return handled(err)
		}

		doc, err := svc.Update(c.UserContext(), collection, id, data)
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusOK, envelope{
			Data: doc,
			Links: links{
				"self":       fmt.Sprintf("/api/db/%s/%s", collection, id),
				"collection": "/api/db/" + collection,
			},
		})
	}
}

// DeleteDocument godoc
// @Summary Delete a document
// @Tags db
// @Param collection path string true "collection name"
// @Param id path string true "document id"
// @Success 204
// @Router /api/db/{collection}/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("collection"), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ExecuteQuery godoc
// @Summary Run a read-only SQL statement (SELECT or PRAGMA)
// @Tags db
// @Accept json
// @Produce json
// @Router /api/query [post]
func ExecuteQuery(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req queryRequest
		if err := decodeBody(c, &req); err != nil {
			return handled(err)
		}

		rows, err := svc.Query(c.UserContext(), req.Query)
		if err != nil {
			return respondError(c, err)
		}
		if rows == nil {
			rows = []map[string]any{}
		}
		return respond(c, fiber.StatusOK, envelope{
			Data:  rows,
			Meta:  fiber.Map{"count": len(rows), "query": req.Query},
			Links: links{"self": "/api/query"},
		})
	}
}

// ResetDatabase godoc
// @Summary Drop every collection and re-seed the default apps
// @Tags db
// @Produce json
// @Router /api/db/reset [post]
func ResetDatabase(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Reset(c.UserContext()); err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Database reset successfully",
			"links":   links{"self": "/api/db/reset", "collections": "/api/db"},
		})
	}
}
