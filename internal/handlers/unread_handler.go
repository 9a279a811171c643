package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/LectureQA-backend/internal/httpx"
	"github.com/noteduco342/LectureQA-backend/internal/middleware"
	"github.com/noteduco342/LectureQA-backend/internal/service"
)

type UnreadHandler struct {
	unreadService *service.UnreadService
}

func NewUnreadHandler(unreadService *service.UnreadService) *UnreadHandler {
	return &UnreadHandler{unreadService: unreadService}
}

// GetUnreadCount returns the caller's unread thread count. With a
// lecture_id query it is scoped to that lecture, otherwise global.
func (h *UnreadHandler) GetUnreadCount(c *fiber.Ctx) error {
	actor, err := middleware.ActorFromCtx(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	if lectureIDStr := c.Query("lecture_id"); lectureIDStr != "" {
		lectureID, err := strconv.ParseUint(lectureIDStr, 10, 32)
		if err != nil {
			return httpx.BadRequest(c, "invalid_lecture", "Invalid lecture_id")
		}
		count, err := h.unreadService.CountForLecture(actor, uint(lectureID))
		if err != nil {
			return httpx.FromError(c, "unread_count_failed", err)
		}
		return c.JSON(fiber.Map{
			"scope":      "lecture",
			"lecture_id": uint(lectureID),
			"count":      count,
		})
	}

	count, err := h.unreadService.CountGlobal(actor)
	if err != nil {
		return httpx.FromError(c, "unread_count_failed", err)
	}
	return c.JSON(fiber.Map{
		"scope": "global",
		"count": count,
	})
}
