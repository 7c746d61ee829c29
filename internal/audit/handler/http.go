// Package handler serves the activity feed.
package handler

import (
	"github.com/gofiber/fiber/v2"

	"teamos/backend/internal/audit"
	"teamos/backend/internal/platform/httpx"
)

// Handler serves /api/activity.
type Handler struct {
	feed *audit.Feed
}

// New returns a Handler.
func New(feed *audit.Feed) *Handler {
	return &Handler{feed: feed}
}

// List returns the latest activity of the current organization. ?limit= is capped by the feed.
func (h *Handler) List(c *fiber.Ctx) error {
	entries, err := h.feed.List(c.UserContext(), httpx.Tenant(c), c.QueryInt("limit"))
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []audit.FeedEntry{}
	}
	return httpx.OK(c, entries)
}
