package handlers

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/LectureQA-backend/internal/httpx"
	"github.com/noteduco342/LectureQA-backend/internal/middleware"
	"github.com/noteduco342/LectureQA-backend/internal/models"
	"github.com/noteduco342/LectureQA-backend/internal/service"
	"github.com/noteduco342/LectureQA-backend/internal/validation"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// SendMessage accepts multipart form data: a "text" field plus up to
// MaxImagesPerMessage "images" files. Plain JSON bodies with just text
// work too.
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	actor, err := middleware.ActorFromCtx(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	threadID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_thread", "Invalid thread id")
	}

	text := ""
	var images [][]byte

	if form, err := c.MultipartForm(); err == nil && form != nil {
		if vals := form.Value["text"]; len(vals) > 0 {
			text = vals[0]
		}
		files := form.File["images"]
		if len(files) > validation.MaxImagesPerMessage() {
			return httpx.BadRequest(c, "too_many_images", "Too many attachments")
		}
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				return httpx.BadRequest(c, "invalid_image", "Unreadable attachment")
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return httpx.BadRequest(c, "invalid_image", "Unreadable attachment")
			}
			images = append(images, data)
		}
	} else {
		var input struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&input); err != nil {
			return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
		}
		text = input.Text
	}

	text = validation.TrimAndLimit(text, validation.MaxMessageLength())

	message, err := h.messageService.SendMessage(c.Context(), actor, threadID, text, images)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			return httpx.BadRequest(c, "empty_message", "Message needs text or an image")
		}
		return httpx.FromError(c, "send_message_failed", err)
	}

	return c.Status(fiber.StatusCreated).JSON(message.ToResponse())
}

func (h *MessageHandler) ListMessages(c *fiber.Ctx) error {
	actor, err := middleware.ActorFromCtx(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	threadID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_thread", "Invalid thread id")
	}

	messages, err := h.messageService.List(actor, threadID)
	if err != nil {
		return httpx.FromError(c, "fetch_messages_failed", err)
	}

	responses := make([]models.MessageResponse, len(messages))
	for i := range messages {
		responses[i] = messages[i].ToResponse()
	}

	return c.JSON(fiber.Map{
		"messages": responses,
		"count":    len(responses),
	})
}

func (h *MessageHandler) EditMessage(c *fiber.Ctx) error {
	actor, err := middleware.ActorFromCtx(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	messageID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_message", "Invalid message id")
	}

	var input struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	input.Text = validation.TrimAndLimit(input.Text, validation.MaxMessageLength())
	if input.Text == "" {
		return httpx.BadRequest(c, "missing_text", "text is required")
	}

	if err := h.messageService.Edit(actor, messageID, input.Text); err != nil {
		return httpx.FromError(c, "edit_message_failed", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *MessageHandler) DeleteMessage(c *fiber.Ctx) error {
	actor, err := middleware.ActorFromCtx(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	messageID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_message", "Invalid message id")
	}

	if err := h.messageService.Delete(actor, messageID); err != nil {
		return httpx.FromError(c, "delete_message_failed", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
