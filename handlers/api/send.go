package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"threadview/models"
	"threadview/sendgate"
	"threadview/utils"
	"threadview/view"
)

// SendHandler drives the send authorization pipeline for one user's
// compose session.
type SendHandler struct {
	manager *view.Manager
	events  *EventHandler
}

// NewSendHandler creates a send handler.
func NewSendHandler(manager *view.Manager, events *EventHandler) *SendHandler {
	return &SendHandler{
		manager: manager,
		events:  events,
	}
}

// SendRequest represents a message send request.
type SendRequest struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	HTMLBody string `json:"html_body"`
	Kind     string `json:"kind"`
	ThreadID string `json:"thread_id"`
	ParentID string `json:"parent_id"`
}

// HandleSend handles the message send request.
func (h *SendHandler) HandleSend(c *fiber.Ctx) error {
	var req SendRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	identity, owner := CallerIdentity(c)
	session := h.manager.Get(owner, identity)
	composer := session.Composer

	kind := models.KindPlain
	if req.Kind == string(models.KindHTML) {
		kind = models.KindHTML
	}
	composer.SetRecipient(req.To)
	composer.SetContent(req.Subject, req.Body, req.HTMLBody, kind)
	composer.SetReply(req.ThreadID, req.ParentID)

	result, err := composer.Send(c.UserContext())
	if err != nil {
		return mapSendError(err)
	}

	if h.events != nil {
		h.events.NotifyMessageSent(result.Message)
	}
	utils.Log.Info("send accepted: to=%s thread=%s", req.To, req.ThreadID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": result.Message,
	})
}

// HandleRecipientChanged is called as the user edits the recipient
// field; a well-formed address pre-warms the proof-of-work pool.
func (h *SendHandler) HandleRecipientChanged(c *fiber.Ctx) error {
	var req struct {
		To string `json:"to"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	identity, owner := CallerIdentity(c)
	h.manager.Get(owner, identity).Composer.SetRecipient(req.To)
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleVerificationToken receives a token from the human-verification
// widget and feeds it to the waiting send attempt.
func (h *SendHandler) HandleVerificationToken(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return utils.BadRequestError("Verification token is required", err)
	}

	identity, owner := CallerIdentity(c)
	h.manager.Get(owner, identity).Widget.Offer(req.Token)
	return c.SendStatus(fiber.StatusNoContent)
}

// mapSendError translates pipeline failures into HTTP responses. The
// recoverable classes keep compose state server-side, so the client
// only needs to re-trigger the send.
func mapSendError(err error) error {
	switch {
	case errors.Is(err, sendgate.ErrEmptyBody),
		errors.Is(err, sendgate.ErrNoRecipient):
		return utils.BadRequestError(err.Error(), err)
	case errors.Is(err, sendgate.ErrNotAuthenticated):
		return utils.UnauthorizedError(err.Error(), err)
	case errors.Is(err, sendgate.ErrSendInFlight):
		return utils.NewAppError(fiber.StatusConflict, "A send is already in progress", err)
	case errors.Is(err, sendgate.ErrVerificationTimeout):
		return utils.RequestTimeoutError("Human verification timed out, please try again", err)
	case errors.Is(err, sendgate.ErrRetryDifficulty):
		return utils.TooManyRequestsError("Sending requires more proof of work, please retry", err).
			WithContext("retry", true)
	case errors.Is(err, sendgate.ErrUploadFailed):
		return utils.BadGatewayError("Attachment upload failed, your files are still attached", err)
	default:
		return utils.BadGatewayError("Message could not be sent", err)
	}
}
