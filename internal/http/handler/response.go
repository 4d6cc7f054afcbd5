package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// envelope is the success body shared by every JSON route.
type envelope struct {
	Data  any `json:"data"`
	Meta  any `json:"meta,omitempty"`
	Links any `json:"links,omitempty"`
}

type links map[string]string

// pageMeta reports the collection-wide (or post-filter) count, not the page size.
type pageMeta struct {
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func respond(c *fiber.Ctx, status int, body envelope) error {
	return c.Status(status).JSON(body)
}

// parsePaging reads ?limit and ?offset. Absent values are 0 and get normalized downstream.
// A malformed value is answered with 400 and errBodyWritten.
func parsePaging(c *fiber.Ctx) (limit, offset int, err error) {
	if s := c.Query("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil {
			_ = writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
			return 0, 0, errBodyWritten
		}
	}
	if s := c.Query("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil {
			_ = writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
			return 0, 0, errBodyWritten
		}
	}
	return limit, offset, nil
}

// decodeBody unmarshals the raw body regardless of Content-Type.
// On failure it has already written the 400 and returns errBodyWritten.
func decodeBody(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		_ = writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "request body is required")
		return errBodyWritten
	}
	if err := json.Unmarshal(c.Body(), dst); err != nil {
		_ = writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return errBodyWritten
	}
	return nil
}

// errBodyWritten signals that the response is already complete.
var errBodyWritten = errors.New("response written")

// handled converts errBodyWritten into a nil handler result.
func handled(err error) error {
	if err == errBodyWritten {
		return nil
	}
	return err
}

func pageLinks(base string, limit, offset int) string {
	return fmt.Sprintf("%s?limit=%d&offset=%d", base, limit, offset)
}
