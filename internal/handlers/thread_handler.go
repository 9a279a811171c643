package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/LectureQA-backend/internal/httpx"
	"github.com/noteduco342/LectureQA-backend/internal/middleware"
	"github.com/noteduco342/LectureQA-backend/internal/models"
	"github.com/noteduco342/LectureQA-backend/internal/service"
	"github.com/noteduco342/LectureQA-backend/internal/validation"
)

type ThreadHandler struct {
	threadService *service.ThreadService
	readState     *service.ReadStateService
}

func NewThreadHandler(threadService *service.ThreadService, readState *service.ReadStateService) *ThreadHandler {
	return &ThreadHandler{
		threadService: threadService,
		readState:     readState,
	}
}

func paramUint(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// threadResponse renders a thread with the read flag the caller actually
// sees: the server flag merged with any local mark-as-read override.
func (h *ThreadHandler) threadResponse(actor models.Actor, thread *models.Thread) models.ThreadResponse {
	resp := thread.ToResponse()
	switch actor.RoleFor(thread) {
	case models.RoleMentor:
		resp.IsReadByTeacher = h.readState.EffectiveRead(actor, thread)
	case models.RoleStudentOwner:
		resp.IsReadByStudent = h.readState.EffectiveRead(actor, thread)
	}
	return resp
}

func (h *ThreadHandler) ListThreads(c *fiber.Ctx) error {
	actor, err := middleware.ActorFromCtx(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	lectureID, err := paramUint(c, "lectureID")
	if err != nil {
		return httpx.BadRequest(c, "invalid_lecture", "Invalid lecture id")
	}

	threads, err := h.threadService.ListByLecture(lectureID)
	if err != nil {
		return httpx.FromError(c, "list_threads_failed", err)
	}

	responses := make([]models.ThreadResponse, 0, len(threads))
	for i := range threads {
		t := &threads[i]
		role := actor.RoleFor(t)
		if role == models.RoleOther {
			if !t.IsPublished {
				continue
			}
			// Published questions are listable, but the conversation
			// itself stays between the student and the teachers.
			t.Messages = nil
		}
		responses = append(responses, h.threadResponse(actor, t))
	}

	return c.JSON(fiber.Map{
		"threads": responses,
		"count":   len(responses),
	})
}

func (h *ThreadHandler) GetThread(c *fiber.Ctx) error {
	actor, err := middleware.ActorFromCtx(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	threadID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_thread", "Invalid thread id")
	}

	thread, err := h.threadService.Get(actor, threadID)
	if err != nil {
		return httpx.FromError(c, "get_thread_failed", err)
	}

	if actor.RoleFor(thread) == models.RoleOther && !thread.IsPublished {
		return httpx.NotFound(c, "thread_not_found", "Not found")
	}

	return c.JSON(h.threadResponse(actor, thread))
}

func (h *ThreadHandler) CreateThread(c *fiber.Ctx) error {
	actor, err := middleware.ActorFromCtx(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input service.CreateThreadInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	input.QuestionText = validation.TrimAndLimit(input.QuestionText, validation.MaxQuestionLength())
	if input.QuestionText == "" {
		return httpx.BadRequest(c, "missing_question", "question_text is required")
	}
	if input.LectureID == 0 {
		return httpx.BadRequest(c, "missing_lecture", "lecture_id is required")
	}

	thread, err := h.threadService.Create(actor.ID, input)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuestion) {
			return httpx.BadRequest(c, "missing_question", "question_text is required")
		}
		return httpx.FromError(c, "create_thread_failed", err)
	}

	return c.Status(fiber.StatusCreated).JSON(h.threadResponse(actor, thread))
}

func (h *ThreadHandler) EditQuestionText(c *fiber.Ctx) error {
	actor, err := middleware.ActorFromCtx(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	threadID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_thread", "Invalid thread id")
	}

	var input struct {
		QuestionText string `json:"question_text"`
	}
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	input.QuestionText = validation.TrimAndLimit(input.QuestionText, validation.MaxQuestionLength())
	if input.QuestionText == "" {
		return httpx.BadRequest(c, "missing_question", "question_text is required")
	}

	if err := h.threadService.EditQuestionText(actor, threadID, input.QuestionText); err != nil {
		return httpx.FromError(c, "edit_question_failed", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ThreadHandler) TogglePublish(c *fiber.Ctx) error {
	actor, err := middleware.ActorFromCtx(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	threadID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_thread", "Invalid thread id")
	}

	var input struct {
		Published bool `json:"published"`
	}
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if err := h.threadService.TogglePublish(actor, threadID, input.Published); err != nil {
		return httpx.FromError(c, "toggle_publish_failed", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ThreadHandler) DeleteThread(c *fiber.Ctx) error {
	actor, err := middleware.ActorFromCtx(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	threadID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_thread", "Invalid thread id")
	}

	if err := h.threadService.Delete(actor, threadID); err != nil {
		return httpx.FromError(c, "delete_thread_failed", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ThreadHandler) MarkAsRead(c *fiber.Ctx) error {
	actor, err := middleware.ActorFromCtx(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	threadID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_thread", "Invalid thread id")
	}

	if err := h.readState.MarkAsRead(actor, threadID); err != nil {
		return httpx.FromError(c, "mark_read_failed", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
