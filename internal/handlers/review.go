package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vberezin/storehub/internal/middleware/auth"
	"github.com/vberezin/storehub/internal/models"
)

type ReviewHandler struct {
	DB *gorm.DB
}

func validRating(r int) bool { return r >= 1 && r <= 5 }

func (h *ReviewHandler) Create(c echo.Context) error {
	userID := auth.UserID(c)

	var req struct {
		ProductID uint   `json:"product_id"`
		Rating    int    `json:"rating"`
		Comment   string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if req.ProductID == 0 {
		return errorJSON(c, http.StatusBadRequest, "product_id is required")
	}
	if !validRating(req.Rating) {
		return errorJSON(c, http.StatusBadRequest, "rating must be between 1 and 5")
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusBadRequest, "product does not exist")
		}
		return internalError(c, err)
	}

	review := models.Review{
		ProductID: req.ProductID,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := h.DB.Create(&review).Error; err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) ListByProduct(c echo.Context) error {
	productID, err := parseID(c, "productId")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var reviews []models.Review
	if err := h.DB.Where("product_id = ?", productID).Order("created_at DESC").Find(&reviews).Error; err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, reviews)
}

// Summary reports mean rating and review count for one product.
func (h *ReviewHandler) Summary(c echo.Context) error {
	productID, err := parseID(c, "productId")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var agg struct {
		Count   int64   `json:"count"`
		Average float64 `json:"average"`
	}
	err = h.DB.Model(&models.Review{}).
		Select("count(*) as count, coalesce(avg(rating), 0) as average").
		Where("product_id = ?", productID).
		Scan(&agg).Error
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"product_id": productID,
		"count":      agg.Count,
		"average":    agg.Average,
	})
}

// loadOwned fetches a review and enforces that the caller is its author
// or an admin.
func (h *ReviewHandler) loadOwned(c echo.Context) (*models.Review, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var review models.Review
	if err := h.DB.First(&review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorJSON(c, http.StatusNotFound, "review not found")
		}
		return nil, internalError(c, err)
	}
	if review.UserID != auth.UserID(c) && auth.Role(c) != models.RoleAdmin {
		return nil, errorJSON(c, http.StatusForbidden, "not your review")
	}
	return &review, nil
}

func (h *ReviewHandler) Update(c echo.Context) error {
	review, errResp := h.loadOwned(c)
	if review == nil {
		return errResp
	}

	var req struct {
		Rating  *int    `json:"rating"`
		Comment *string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if req.Rating != nil {
		if !validRating(*req.Rating) {
			return errorJSON(c, http.StatusBadRequest, "rating must be between 1 and 5")
		}
		review.Rating = *req.Rating
	}
	if req.Comment != nil {
		review.Comment = *req.Comment
	}

	if err := h.DB.Save(review).Error; err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, review)
}

func (h *ReviewHandler) Delete(c echo.Context) error {
	review, errResp := h.loadOwned(c)
	if review == nil {
		return errResp
	}

	if err := h.DB.Delete(review).Error; err != nil {
		return internalError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
