package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vberezin/storehub/internal/middleware/auth"
	"github.com/vberezin/storehub/internal/models"
)

type NotificationHandler struct {
	DB *gorm.DB
}

func (h *NotificationHandler) List(c echo.Context) error {
	var notifications []models.Notification
	err := h.DB.Where("user_id = ?", auth.UserID(c)).
		Order("created_at DESC").
		Find(&notifications).Error
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var n models.Notification
	if err := h.DB.Where("id = ? AND user_id = ?", id, auth.UserID(c)).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "notification not found")
		}
		return internalError(c, err)
	}

	n.Read = true
	if err := h.DB.Save(&n).Error; err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}
