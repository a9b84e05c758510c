package api

import (
	"github.com/gofiber/fiber/v2"

	"threadview/sanitize"
	"threadview/utils"
	"threadview/view"
)

// ThreadHandler serves sanitized conversation views.
type ThreadHandler struct {
	manager      *view.Manager
	defaultTheme sanitize.ThemeMode
}

// NewThreadHandler creates a thread handler.
func NewThreadHandler(manager *view.Manager, defaultTheme sanitize.ThemeMode) *ThreadHandler {
	return &ThreadHandler{
		manager:      manager,
		defaultTheme: defaultTheme,
	}
}

// HandleThread loads a thread and returns its messages with bodies
// already safe to inject, plus the derived expansion set.
func (h *ThreadHandler) HandleThread(c *fiber.Ctx) error {
	threadID := c.Params("id")
	if threadID == "" {
		return utils.BadRequestError("Thread ID is required", nil)
	}

	theme := h.defaultTheme
	if q := c.Query("theme"); q != "" {
		theme = sanitize.ParseThemeMode(q)
	}

	identity, owner := CallerIdentity(c)
	session := h.manager.Get(owner, identity)

	thread, expansion, err := session.View.Load(c.UserContext(), threadID, theme)
	if err != nil {
		return utils.BadGatewayError("Failed to load thread", err)
	}

	return c.JSON(fiber.Map{
		"thread":       thread,
		"expanded_ids": expansion.IDs(),
	})
}
