package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vberezin/storehub/internal/logging"
	"github.com/vberezin/storehub/internal/models"
	"github.com/vberezin/storehub/internal/sequence"
)

// duplicateCategory reports whether another category carries the same
// name under case-insensitive, trimmed comparison. excludeID skips the
// record being updated.
func (h *CatalogHandler) duplicateCategory(name string, excludeID uint) (bool, error) {
	var count int64
	q := h.DB.Model(&models.Category{}).Where("lower(name) = lower(?)", strings.TrimSpace(name))
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "category_create")

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return errorJSON(c, http.StatusBadRequest, "name is required")
	}
	status := c.FormValue("status")
	if status == "" {
		status = models.StatusActive
	}
	if status != models.StatusActive && status != models.StatusInactive {
		return errorJSON(c, http.StatusBadRequest, "invalid status")
	}

	dup, err := h.duplicateCategory(name, 0)
	if err != nil {
		return internalError(c, err)
	}
	if dup {
		return errorJSON(c, http.StatusBadRequest, "category name already exists")
	}

	image, err := saveUpload(c, "category_image", h.UploadDir)
	if err != nil {
		return uploadError(c, err)
	}

	id, err := sequence.Next(h.DB, sequence.CategoryCounter)
	if err != nil {
		return internalError(c, err)
	}

	cat := models.Category{
		ID:          id,
		Name:        name,
		Description: c.FormValue("description"),
		Image:       image,
		Status:      status,
	}
	if err := h.DB.Create(&cat).Error; err != nil {
		return internalError(c, err)
	}

	l.Info("category_created", "category_id", cat.ID)
	h.publish(c, "category", map[string]any{"type": "category_created", "categoryID": cat.ID, "name": cat.Name})

	return c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHandler) GetCategory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var cat models.Category
	if err := h.DB.First(&cat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "category not found")
		}
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHandler) GetCategories(c echo.Context) error {
	var cats []models.Category
	if err := h.DB.Order("id ASC").Find(&cats).Error; err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *CatalogHandler) UpdateCategory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var cat models.Category
	if err := h.DB.First(&cat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "category not found")
		}
		return internalError(c, err)
	}

	if name := strings.TrimSpace(c.FormValue("name")); name != "" {
		dup, err := h.duplicateCategory(name, cat.ID)
		if err != nil {
			return internalError(c, err)
		}
		if dup {
			return errorJSON(c, http.StatusBadRequest, "category name already exists")
		}
		cat.Name = name
	}
	if desc := c.FormValue("description"); desc != "" {
		cat.Description = desc
	}
	if status := c.FormValue("status"); status != "" {
		if status != models.StatusActive && status != models.StatusInactive {
			return errorJSON(c, http.StatusBadRequest, "invalid status")
		}
		cat.Status = status
	}
	if image, err := saveUpload(c, "category_image", h.UploadDir); err != nil {
		return uploadError(c, err)
	} else if image != "" {
		cat.Image = image
	}

	if err := h.DB.Save(&cat).Error; err != nil {
		return internalError(c, err)
	}

	h.publish(c, "category", map[string]any{"type": "category_updated", "categoryID": cat.ID})

	return c.JSON(http.StatusOK, cat)
}

// DeleteCategory removes the category together with its brands, the
// products under those brands and any product still tagged with the
// category directly. The whole cascade runs in one transaction.
func (h *CatalogHandler) DeleteCategory(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "category_delete")

	id, err := parseID(c, "id")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var productIDs []uint
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var cat models.Category
		if err := tx.First(&cat, id).Error; err != nil {
			return err
		}

		var brandIDs []uint
		if err := tx.Model(&models.Brand{}).Where("category_id = ?", id).Pluck("id", &brandIDs).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Product{}).
			Where("category_id = ?", id).Or("brand_id IN ?", brandIDs).
			Pluck("id", &productIDs).Error; err != nil {
			return err
		}

		if len(brandIDs) > 0 {
			if err := tx.Where("brand_id IN ?", brandIDs).Delete(&models.Product{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("category_id = ?", id).Delete(&models.Brand{}).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&models.Product{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Category{}, id).Error
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "category not found")
		}
		return internalError(c, txErr)
	}

	l.Info("category_deleted", "category_id", id, "products_removed", len(productIDs))
	h.esDelete(c, productIDs...)
	h.publish(c, "category", map[string]any{"type": "category_deleted", "categoryID": id})

	return c.NoContent(http.StatusNoContent)
}
