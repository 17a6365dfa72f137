package handlers

import (
	"context"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vberezin/storehub/internal/models"
	"github.com/vberezin/storehub/internal/mykafka"
	"github.com/vberezin/storehub/internal/service/search"
)

// CatalogHandler owns categories, brands and products, including the
// parent-link checks and the cascading deletes.
type CatalogHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	ES        *elasticsearch.Client
	Index     string
	UploadDir string
}

func (h *CatalogHandler) publish(c echo.Context, key string, event map[string]any) {
	publish(c, h.Producer, "catalog_events", key, event)
}

// esIndex mirrors a product write into the search index, best-effort.
func (h *CatalogHandler) esIndex(c echo.Context, p models.Product) {
	if h.ES == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := search.IndexProduct(ctx, h.ES, h.Index, p); err != nil {
			c.Logger().Errorf("ES index error: %v", err)
		}
	}()
}

func (h *CatalogHandler) esDelete(c echo.Context, ids ...uint) {
	if h.ES == nil || len(ids) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, id := range ids {
			if err := search.DeleteProduct(ctx, h.ES, h.Index, id); err != nil {
				c.Logger().Errorf("ES delete error: %v", err)
			}
		}
	}()
}
