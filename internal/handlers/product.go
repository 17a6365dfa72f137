package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vberezin/storehub/internal/logging"
	"github.com/vberezin/storehub/internal/models"
	"github.com/vberezin/storehub/internal/sequence"
	"github.com/vberezin/storehub/internal/util"
)

// A product is valid only under a brand that belongs to the same
// category.
func (h *CatalogHandler) brandMatchesCategory(brandID, categoryID uint) (bool, error) {
	var count int64
	err := h.DB.Model(&models.Brand{}).
		Where("id = ? AND category_id = ?", brandID, categoryID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (h *CatalogHandler) productImages(c echo.Context) ([]string, error) {
	var images []string
	for i := 1; i <= 4; i++ {
		name, err := saveUpload(c, fmt.Sprintf("product_image%d", i), h.UploadDir)
		if err != nil {
			return nil, err
		}
		if name != "" {
			images = append(images, name)
		}
	}
	return images, nil
}

func (h *CatalogHandler) CreateProduct(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "product_create")

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return errorJSON(c, http.StatusBadRequest, "name is required")
	}
	categoryID, err := strconv.Atoi(c.FormValue("category_id"))
	if err != nil || categoryID <= 0 {
		return errorJSON(c, http.StatusBadRequest, "category_id is required")
	}
	brandID, err := strconv.Atoi(c.FormValue("brand_id"))
	if err != nil || brandID <= 0 {
		return errorJSON(c, http.StatusBadRequest, "brand_id is required")
	}
	price, err := strconv.ParseFloat(c.FormValue("price"), 64)
	if err != nil || price < 0 {
		return errorJSON(c, http.StatusBadRequest, "price must be a non-negative number")
	}
	status := c.FormValue("status")
	if status == "" {
		status = models.StatusActive
	}
	if !models.ValidCatalogStatus(status) {
		return errorJSON(c, http.StatusBadRequest, "invalid status")
	}

	ok, err := h.brandMatchesCategory(uint(brandID), uint(categoryID))
	if err != nil {
		return internalError(c, err)
	}
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "brand does not exist under this category")
	}

	images, err := h.productImages(c)
	if err != nil {
		return uploadError(c, err)
	}

	id, err := sequence.Next(h.DB, sequence.ProductCounter)
	if err != nil {
		return internalError(c, err)
	}

	prod := models.Product{
		ID:          id,
		Name:        name,
		Description: c.FormValue("description"),
		Price:       price,
		Images:      images,
		Status:      status,
		CategoryID:  uint(categoryID),
		BrandID:     uint(brandID),
	}
	if err := h.DB.Create(&prod).Error; err != nil {
		return internalError(c, err)
	}

	l.Info("product_created", "product_id", prod.ID)
	h.esIndex(c, prod)
	h.publish(c, "product", map[string]any{"type": "product_created", "productID": prod.ID, "name": prod.Name})

	return c.JSON(http.StatusCreated, prod)
}

func (h *CatalogHandler) GetProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "product not found")
		}
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, prod)
}

func (h *CatalogHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Product{})
	if cid := c.QueryParam("category_id"); cid != "" {
		q = q.Where("category_id = ?", parseIntDefault(cid, 0))
	}
	if bid := c.QueryParam("brand_id"); bid != "" {
		q = q.Where("brand_id = ?", parseIntDefault(bid, 0))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return internalError(c, err)
	}

	var items []models.Product
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return internalError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *CatalogHandler) UpdateProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "product not found")
		}
		return internalError(c, err)
	}

	// When only one side of the brand/category pair arrives, the other
	// half comes from the current record before the pair is re-checked.
	categoryID, brandID := prod.CategoryID, prod.BrandID
	linkChanged := false
	if v := c.FormValue("category_id"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return errorJSON(c, http.StatusBadRequest, "invalid category_id")
		}
		categoryID = uint(n)
		linkChanged = true
	}
	if v := c.FormValue("brand_id"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return errorJSON(c, http.StatusBadRequest, "invalid brand_id")
		}
		brandID = uint(n)
		linkChanged = true
	}
	if linkChanged {
		ok, err := h.brandMatchesCategory(brandID, categoryID)
		if err != nil {
			return internalError(c, err)
		}
		if !ok {
			return errorJSON(c, http.StatusBadRequest, "brand does not exist under this category")
		}
		prod.CategoryID = categoryID
		prod.BrandID = brandID
	}

	if name := strings.TrimSpace(c.FormValue("name")); name != "" {
		prod.Name = name
	}
	if desc := c.FormValue("description"); desc != "" {
		prod.Description = desc
	}
	if v := c.FormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			return errorJSON(c, http.StatusBadRequest, "price must be a non-negative number")
		}
		prod.Price = price
	}
	if status := c.FormValue("status"); status != "" {
		if !models.ValidCatalogStatus(status) {
			return errorJSON(c, http.StatusBadRequest, "invalid status")
		}
		prod.Status = status
	}
	if images, err := h.productImages(c); err != nil {
		return uploadError(c, err)
	} else if len(images) > 0 {
		prod.Images = images
	}

	if err := h.DB.Save(&prod).Error; err != nil {
		return internalError(c, err)
	}

	h.esIndex(c, prod)
	h.publish(c, "product", map[string]any{"type": "product_updated", "productID": prod.ID})

	return c.JSON(http.StatusOK, prod)
}

func (h *CatalogHandler) DeleteProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	res := h.DB.Delete(&models.Product{}, id)
	if res.Error != nil {
		return internalError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return errorJSON(c, http.StatusNotFound, "product not found")
	}

	h.esDelete(c, id)
	h.publish(c, "product", map[string]any{"type": "product_deleted", "productID": id})

	return c.NoContent(http.StatusNoContent)
}
