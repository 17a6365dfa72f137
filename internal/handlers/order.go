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
	"github.com/vberezin/storehub/internal/service/analytics"
)

type OrderHandler struct {
	DB         *gorm.DB
	Producer   *mykafka.Producer
	Dispatcher *notify.Dispatcher
	UploadDir  string
	AdminEmail string
	Now        func() time.Time // test hook; nil means time.Now
}

func (h *OrderHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// CreateOrder snapshots the user's cart into a new order, deletes the
// cart in the same transaction and fans out notifications afterwards.
// Side-effect failures never undo the order.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "order_create")
	userID := auth.UserID(c)

	shippingAddress := c.FormValue("shipping_address")
	if shippingAddress == "" {
		return errorJSON(c, http.StatusBadRequest, "shipping_address is required")
	}
	paymentMethod := c.FormValue("payment_method")
	if paymentMethod != models.PaymentCOD && paymentMethod != models.PaymentSlip {
		return errorJSON(c, http.StatusBadRequest, "invalid payment method")
	}

	var slip string
	if paymentMethod == models.PaymentSlip {
		file, err := c.FormFile("payment_slip")
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "payment slip is required")
		}
		slip, err = storeFile(file, h.UploadDir)
		if err != nil {
			return internalError(c, err)
		}
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "user not found")
		}
		return internalError(c, err)
	}
	email := c.FormValue("email")
	if email == "" {
		email = user.Email
	}

	paymentStatus := models.PaymentStatusPaid
	if paymentMethod == models.PaymentCOD {
		paymentStatus = models.PaymentStatusPending
	}

	var (
		order      models.Order
		orderItems []models.OrderItem
	)
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := tx.Where("user_id = ?", userID).Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return errEmptyCart
		}

		var total float64
		for _, it := range items {
			total += float64(it.Quantity) * it.UnitPrice
		}

		id, err := sequence.Next(tx, sequence.OrderCounter)
		if err != nil {
			return err
		}

		order = models.Order{
			ID:              id,
			UserID:          userID,
			Email:           email,
			TotalPrice:      total,
			ShippingAddress: shippingAddress,
			Status:          models.OrderPending,
			PaymentMethod:   paymentMethod,
			PaymentStatus:   paymentStatus,
			PaymentSlip:     slip,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		orderItems = make([]models.OrderItem, 0, len(items))
		for _, it := range items {
			oi := models.OrderItem{
				OrderID:   order.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.UnitPrice,
			}
			if err := tx.Create(&oi).Error; err != nil {
				return err
			}
			orderItems = append(orderItems, oi)
		}

		return tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
	})
	if txErr != nil {
		if errors.Is(txErr, errEmptyCart) {
			return errorJSON(c, http.StatusBadRequest, "cart is empty")
		}
		return internalError(c, txErr)
	}

	l.Info("order_created", "order_id", order.ID, "user_id", userID, "total", order.TotalPrice)

	h.Dispatcher.Enqueue(notify.Job{
		UserID:  userID,
		Message: fmt.Sprintf("Your order #%d has been placed", order.ID),
		Email:   email,
		Subject: fmt.Sprintf("Order #%d confirmation", order.ID),
		Body:    fmt.Sprintf("Thank you for your order #%d. Total: %.2f. We will keep you posted.", order.ID, order.TotalPrice),
		Topic:   "order_events",
		Key:     fmt.Sprint(order.ID),
		Event:   map[string]any{"type": "order_created", "orderID": order.ID, "userID": userID, "total": order.TotalPrice},
	})

	var admins []models.User
	if err := h.DB.Where("role = ?", models.RoleAdmin).Find(&admins).Error; err != nil {
		l.Error("admin lookup failed", "error", err)
	}
	for _, admin := range admins {
		h.Dispatcher.Enqueue(notify.Job{
			UserID:  admin.ID,
			Message: fmt.Sprintf("New order #%d from %s", order.ID, user.Username),
		})
	}
	if h.AdminEmail != "" {
		h.Dispatcher.Enqueue(notify.Job{
			Email:   h.AdminEmail,
			Subject: fmt.Sprintf("New order #%d", order.ID),
			Body:    fmt.Sprintf("Order #%d placed by %s for %.2f (%s).", order.ID, user.Username, order.TotalPrice, order.PaymentMethod),
		})
	}

	return c.JSON(http.StatusCreated, echo.Map{"order": order, "items": orderItems})
}

var errEmptyCart = errors.New("cart is empty")

func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := parseID(c, "order_id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var order models.Order
	if err := h.DB.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "order not found")
		}
		return internalError(c, err)
	}
	if order.UserID != auth.UserID(c) && auth.Role(c) != models.RoleAdmin {
		return errorJSON(c, http.StatusForbidden, "not your order")
	}

	var items []models.OrderItem
	if err := h.DB.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": order, "items": items})
}

func (h *OrderHandler) GetOrders(c echo.Context) error {
	q := h.DB.Order("created_at DESC")
	if auth.Role(c) != models.RoleAdmin {
		q = q.Where("user_id = ?", auth.UserID(c))
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// UpdateStatus overwrites the order status. No transition table: the
// admin decides, only the enum is checked.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "order_status")

	id, err := parseID(c, "order_id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if !models.ValidOrderStatus(req.Status) {
		return errorJSON(c, http.StatusBadRequest, "invalid status")
	}

	var order models.Order
	if err := h.DB.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "order not found")
		}
		return internalError(c, err)
	}

	var user models.User
	if err := h.DB.First(&user, order.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "order user not found")
		}
		return internalError(c, err)
	}

	order.Status = req.Status
	if err := h.DB.Save(&order).Error; err != nil {
		return internalError(c, err)
	}

	l.Info("order_status_updated", "order_id", order.ID, "status", order.Status)

	h.Dispatcher.Enqueue(notify.Job{
		UserID:  order.UserID,
		Message: fmt.Sprintf("Order #%d status changed to %s", order.ID, order.Status),
		Email:   user.Email,
		Subject: fmt.Sprintf("Order #%d update", order.ID),
		Body:    fmt.Sprintf("Your order #%d is now %s.", order.ID, order.Status),
		Topic:   "order_events",
		Key:     fmt.Sprint(order.ID),
		Event:   map[string]any{"type": "order_status_changed", "orderID": order.ID, "status": order.Status},
	})

	return c.JSON(http.StatusOK, order)
}

// Cancel flips the order to cancelled through one conditional UPDATE so
// a concurrent ship cannot race past the guard. Non-admin callers can
// only hit their own orders.
func (h *OrderHandler) Cancel(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "order_cancel")

	id, err := parseID(c, "order_id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	userID, role := auth.UserID(c), auth.Role(c)
	q := h.DB.Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", id, []string{models.OrderShipped, models.OrderDelivered})
	if role != models.RoleAdmin {
		q = q.Where("user_id = ?", userID)
	}
	res := q.Update("status", models.OrderCancelled)
	if res.Error != nil {
		return internalError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		var order models.Order
		err := h.DB.First(&order, id).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return errorJSON(c, http.StatusBadRequest, "order cannot be cancelled")
		case err != nil:
			return internalError(c, err)
		case order.UserID != userID && role != models.RoleAdmin:
			return errorJSON(c, http.StatusForbidden, "not your order")
		}
		return errorJSON(c, http.StatusBadRequest, "order cannot be cancelled")
	}

	var order models.Order
	if err := h.DB.First(&order, id).Error; err != nil {
		return internalError(c, err)
	}

	l.Info("order_cancelled", "order_id", order.ID)

	h.Dispatcher.Enqueue(notify.Job{
		UserID:  order.UserID,
		Message: fmt.Sprintf("Order #%d has been cancelled", order.ID),
		Topic:   "order_events",
		Key:     fmt.Sprint(order.ID),
		Event:   map[string]any{"type": "order_cancelled", "orderID": order.ID},
	})

	return c.JSON(http.StatusOK, order)
}

// Analytics aggregates orders inside the requested window. Admin-only
// report, computed in memory.
func (h *OrderHandler) Analytics(c echo.Context) error {
	timeRange := c.QueryParam("timeRange")
	since, err := analytics.ResolveWindow(timeRange, h.now())
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	q := h.DB.Model(&models.Order{})
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return internalError(c, err)
	}

	orderIDs := make([]uint, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}
	var items []models.OrderItem
	if len(orderIDs) > 0 {
		if err := h.DB.Where("order_id IN ?", orderIDs).Find(&items).Error; err != nil {
			return internalError(c, err)
		}
	}

	return c.JSON(http.StatusOK, analytics.Compute(timeRange, orders, items))
}
