package api

import (
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"threadview/models"
	"threadview/storage"
	"threadview/utils"
)

// AttachmentHandler manages the staged attachments of a compose
// session. Staging only holds bytes locally; nothing reaches the mail
// API until the send pipeline's upload step runs.
type AttachmentHandler struct {
	store    *storage.StagedStore
	maxBytes int64
}

// NewAttachmentHandler creates an attachment handler.
func NewAttachmentHandler(store *storage.StagedStore, maxBytes int64) *AttachmentHandler {
	return &AttachmentHandler{
		store:    store,
		maxBytes: maxBytes,
	}
}

// HandleStage stores one uploaded file as a staged attachment.
func (h *AttachmentHandler) HandleStage(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.BadRequestError("A file is required", err)
	}
	if h.maxBytes > 0 && fileHeader.Size > h.maxBytes {
		return utils.BadRequestError(
			fmt.Sprintf("File exceeds the %d byte limit", h.maxBytes), nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.InternalServerError("Failed to read upload", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return utils.InternalServerError("Failed to read upload", err)
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, owner := CallerIdentity(c)
	staged := models.StagedAttachment{
		AttachmentDescriptor: models.AttachmentDescriptor{
			ID:          uuid.New().String(),
			Filename:    fileHeader.Filename,
			Size:        fileHeader.Size,
			ContentType: contentType,
		},
		Content: content,
	}
	if err := h.store.Put(owner, staged); err != nil {
		return utils.InternalServerError("Failed to stage attachment", err)
	}

	return c.Status(fiber.StatusCreated).JSON(staged.AttachmentDescriptor)
}

// HandleList returns the caller's staged attachment descriptors.
func (h *AttachmentHandler) HandleList(c *fiber.Ctx) error {
	_, owner := CallerIdentity(c)
	staged, err := h.store.List(owner)
	if err != nil {
		return utils.InternalServerError("Failed to list attachments", err)
	}

	descriptors := make([]models.AttachmentDescriptor, 0, len(staged))
	for _, att := range staged {
		descriptors = append(descriptors, att.AttachmentDescriptor)
	}
	return c.JSON(fiber.Map{
		"attachments": descriptors,
	})
}

// HandleDelete removes one staged attachment.
func (h *AttachmentHandler) HandleDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return utils.BadRequestError("Attachment ID is required", nil)
	}

	_, owner := CallerIdentity(c)
	if err := h.store.Delete(owner, id); err != nil {
		return utils.InternalServerError("Failed to delete attachment", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
