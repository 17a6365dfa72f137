package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vberezin/storehub/internal/logging"
	"github.com/vberezin/storehub/internal/models"
	"github.com/vberezin/storehub/internal/sequence"
)

func (h *CatalogHandler) CreateBrand(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "brand_create")

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return errorJSON(c, http.StatusBadRequest, "name is required")
	}
	categoryID, err := strconv.Atoi(c.FormValue("category_id"))
	if err != nil || categoryID <= 0 {
		return errorJSON(c, http.StatusBadRequest, "category_id is required")
	}
	status := c.FormValue("status")
	if status == "" {
		status = models.StatusActive
	}
	if !models.ValidCatalogStatus(status) {
		return errorJSON(c, http.StatusBadRequest, "invalid status")
	}

	var cat models.Category
	if err := h.DB.First(&cat, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusBadRequest, "category does not exist")
		}
		return internalError(c, err)
	}

	image, err := saveUpload(c, "brand_image", h.UploadDir)
	if err != nil {
		return uploadError(c, err)
	}

	id, err := sequence.Next(h.DB, sequence.BrandCounter)
	if err != nil {
		return internalError(c, err)
	}

	brand := models.Brand{
		ID:           id,
		Name:         name,
		Description:  c.FormValue("description"),
		Image:        image,
		Status:       status,
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
	}
	if err := h.DB.Create(&brand).Error; err != nil {
		return internalError(c, err)
	}

	l.Info("brand_created", "brand_id", brand.ID, "category_id", cat.ID)
	h.publish(c, "brand", map[string]any{"type": "brand_created", "brandID": brand.ID, "name": brand.Name})

	return c.JSON(http.StatusCreated, brand)
}

func (h *CatalogHandler) GetBrand(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var brand models.Brand
	if err := h.DB.First(&brand, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "brand not found")
		}
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, brand)
}

func (h *CatalogHandler) GetBrands(c echo.Context) error {
	q := h.DB.Order("id ASC")
	if cid := c.QueryParam("category_id"); cid != "" {
		q = q.Where("category_id = ?", parseIntDefault(cid, 0))
	}
	var brands []models.Brand
	if err := q.Find(&brands).Error; err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, brands)
}

func (h *CatalogHandler) UpdateBrand(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var brand models.Brand
	if err := h.DB.First(&brand, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "brand not found")
		}
		return internalError(c, err)
	}

	if v := c.FormValue("category_id"); v != "" {
		categoryID, err := strconv.Atoi(v)
		if err != nil || categoryID <= 0 {
			return errorJSON(c, http.StatusBadRequest, "invalid category_id")
		}
		var cat models.Category
		if err := h.DB.First(&cat, categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errorJSON(c, http.StatusBadRequest, "category does not exist")
			}
			return internalError(c, err)
		}
		brand.CategoryID = cat.ID
		brand.CategoryName = cat.Name
	}
	if name := strings.TrimSpace(c.FormValue("name")); name != "" {
		brand.Name = name
	}
	if desc := c.FormValue("description"); desc != "" {
		brand.Description = desc
	}
	if status := c.FormValue("status"); status != "" {
		if !models.ValidCatalogStatus(status) {
			return errorJSON(c, http.StatusBadRequest, "invalid status")
		}
		brand.Status = status
	}
	if image, err := saveUpload(c, "brand_image", h.UploadDir); err != nil {
		return uploadError(c, err)
	} else if image != "" {
		brand.Image = image
	}

	if err := h.DB.Save(&brand).Error; err != nil {
		return internalError(c, err)
	}

	h.publish(c, "brand", map[string]any{"type": "brand_updated", "brandID": brand.ID})

	return c.JSON(http.StatusOK, brand)
}

// DeleteBrand removes the brand and every product under it in one
// transaction.
func (h *CatalogHandler) DeleteBrand(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "brand_delete")

	id, err := parseID(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var productIDs []uint
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var brand models.Brand
		if err := tx.First(&brand, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Product{}).Where("brand_id = ?", id).Pluck("id", &productIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("brand_id = ?", id).Delete(&models.Product{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Brand{}, id).Error
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "brand not found")
		}
		return internalError(c, txErr)
	}

	l.Info("brand_deleted", "brand_id", id, "products_removed", len(productIDs))
	h.esDelete(c, productIDs...)
	h.publish(c, "brand", map[string]any{"type": "brand_deleted", "brandID": id})

	return c.NoContent(http.StatusNoContent)
}
