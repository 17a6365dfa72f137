package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vberezin/storehub/internal/logging"
	"github.com/vberezin/storehub/internal/middleware/auth"
	"github.com/vberezin/storehub/internal/models"
	"github.com/vberezin/storehub/internal/mykafka"
	"github.com/vberezin/storehub/internal/notify"
	"github.com/vberezin/storehub/internal/sequence"
)

type DeliveryHandler struct {
	DB         *gorm.DB
	Producer   *mykafka.Producer
	Dispatcher *notify.Dispatcher
}

// Create records a delivery for an order. The admin supplies order and
// user ids by hand; they are deliberately not checked against the order
// table.
func (h *DeliveryHandler) Create(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "delivery_create")

	var req struct {
		OrderID           uint   `json:"order_id"`
		UserID            uint   `json:"user_id"`
		Address           string `json:"address"`
		EstimatedDelivery string `json:"estimated_delivery"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if req.OrderID == 0 || req.UserID == 0 || req.Address == "" {
		return errorJSON(c, http.StatusBadRequest, "order_id, user_id and address are required")
	}

	var estimated *time.Time
	if req.EstimatedDelivery != "" {
		t, err := time.Parse(time.RFC3339, req.EstimatedDelivery)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "estimated_delivery must be RFC3339")
		}
		estimated = &t
	}

	id, err := sequence.Next(h.DB, sequence.DeliveryCounter)
	if err != nil {
		return internalError(c, err)
	}

	delivery := models.Delivery{
		ID:                id,
		OrderID:           req.OrderID,
		UserID:            req.UserID,
		Address:           req.Address,
		Status:            models.DeliveryPending,
		EstimatedDelivery: estimated,
	}
	if err := h.DB.Create(&delivery).Error; err != nil {
		return internalError(c, err)
	}

	l.Info("delivery_created", "delivery_id", delivery.ID, "order_id", delivery.OrderID)
	publish(c, h.Producer, "delivery_events", fmt.Sprint(delivery.ID),
		map[string]any{"type": "delivery_created", "deliveryID": delivery.ID, "orderID": delivery.OrderID})

	return c.JSON(http.StatusCreated, delivery)
}

// UpdateStatus overwrites the delivery status and tells the customer.
func (h *DeliveryHandler) UpdateStatus(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "delivery_status")

	id, err := parseID(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if !models.ValidDeliveryStatus(req.Status) {
		return errorJSON(c, http.StatusBadRequest, "invalid status")
	}

	var delivery models.Delivery
	if err := h.DB.First(&delivery, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "delivery not found")
		}
		return internalError(c, err)
	}

	var user models.User
	if err := h.DB.First(&user, delivery.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "delivery user not found")
		}
		return internalError(c, err)
	}

	delivery.Status = req.Status
	if req.Status == models.DeliveryDelivered && delivery.ActualDelivery == nil {
		now := time.Now()
		delivery.ActualDelivery = &now
	}
	if err := h.DB.Save(&delivery).Error; err != nil {
		return internalError(c, err)
	}

	l.Info("delivery_status_updated", "delivery_id", delivery.ID, "status", delivery.Status)

	h.Dispatcher.Enqueue(notify.Job{
		UserID:  delivery.UserID,
		Message: fmt.Sprintf("Delivery for order #%d is now %s", delivery.OrderID, delivery.Status),
		Email:   user.Email,
		Subject: fmt.Sprintf("Delivery update for order #%d", delivery.OrderID),
		Body:    fmt.Sprintf("The delivery for your order #%d is now %s.", delivery.OrderID, delivery.Status),
		Topic:   "delivery_events",
		Key:     fmt.Sprint(delivery.ID),
		Event:   map[string]any{"type": "delivery_status_changed", "deliveryID": delivery.ID, "orderID": delivery.OrderID, "status": delivery.Status},
	})

	return c.JSON(http.StatusOK, delivery)
}

// A delivery carries the shipping address, so lookups are limited to
// its owner and admins.
func (h *DeliveryHandler) ownedByCaller(c echo.Context, d models.Delivery) bool {
	return d.UserID == auth.UserID(c) || auth.Role(c) == models.RoleAdmin
}

func (h *DeliveryHandler) GetByID(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var delivery models.Delivery
	if err := h.DB.First(&delivery, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "delivery not found")
		}
		return internalError(c, err)
	}
	if !h.ownedByCaller(c, delivery) {
		return errorJSON(c, http.StatusForbidden, "not your delivery")
	}
	return c.JSON(http.StatusOK, delivery)
}

func (h *DeliveryHandler) GetByOrder(c echo.Context) error {
	orderID, err := parseID(c, "orderId")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var delivery models.Delivery
	if err := h.DB.Where("order_id = ?", orderID).First(&delivery).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "delivery not found")
		}
		return internalError(c, err)
	}
	if !h.ownedByCaller(c, delivery) {
		return errorJSON(c, http.StatusForbidden, "not your delivery")
	}
	return c.JSON(http.StatusOK, delivery)
}
