package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vberezin/storehub/internal/middleware/auth"
	"github.com/vberezin/storehub/internal/models"
	"github.com/vberezin/storehub/internal/mykafka"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *CartHandler) publish(c echo.Context, key string, event map[string]any) {
	publish(c, h.Producer, "cart_events", key, event)
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID := auth.UserID(c)

	var items []models.CartItem
	if err := h.DB.Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// AddToCart merges quantity into an existing line or creates a new one,
// snapshotting the product's current price.
func (h *CartHandler) AddToCart(c echo.Context) error {
	userID := auth.UserID(c)

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusBadRequest, "product does not exist")
		}
		return internalError(c, err)
	}

	var item models.CartItem
	tx := h.DB.Where("user_id = ? AND product_id = ?", userID, req.ProductID).First(&item)
	if tx.Error == nil {
		item.Quantity += req.Quantity
		if err := h.DB.Save(&item).Error; err != nil {
			return internalError(c, err)
		}
		h.publish(c, "cart", map[string]any{"type": "cart_item_added", "userID": userID, "productID": req.ProductID, "quantity": item.Quantity})
		return c.JSON(http.StatusOK, item)
	}
	if !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return internalError(c, tx.Error)
	}

	newItem := models.CartItem{
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: product.Price,
	}
	if err := h.DB.Create(&newItem).Error; err != nil {
		return internalError(c, err)
	}
	h.publish(c, "cart", map[string]any{"type": "cart_item_added", "userID": userID, "productID": req.ProductID, "quantity": newItem.Quantity})
	return c.JSON(http.StatusOK, newItem)
}

// RemoveOne decrements a line by one and deletes it at zero.
func (h *CartHandler) RemoveOne(c echo.Context) error {
	userID := auth.UserID(c)

	id, err := parseID(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var item models.CartItem
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "item not found")
		}
		return internalError(c, err)
	}

	if item.Quantity > 1 {
		item.Quantity--
		if err := h.DB.Save(&item).Error; err != nil {
			return internalError(c, err)
		}
		h.publish(c, "cart", map[string]any{"type": "cart_item_decremented", "userID": userID, "id": item.ID, "new_quantity": item.Quantity})
		return c.JSON(http.StatusOK, item)
	}

	if err := h.DB.Delete(&item).Error; err != nil {
		return internalError(c, err)
	}
	h.publish(c, "cart", map[string]any{"type": "cart_item_deleted", "userID": userID, "deleted_item": id})
	return c.JSON(http.StatusOK, echo.Map{"deleted_item": id})
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	userID := auth.UserID(c)

	if err := h.DB.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return internalError(c, err)
	}

	h.publish(c, "cart", map[string]any{"type": "cart_cleared", "userID": userID})
	return c.NoContent(http.StatusNoContent)
}
