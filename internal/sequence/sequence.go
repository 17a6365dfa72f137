// Package sequence hands out monotonically increasing integer ids, one
// counter per entity name. The increment is a single upsert statement so
// two concurrent callers can never observe the same value.
package sequence

import (
	"fmt"

	"gorm.io/gorm"
)

const (
	CategoryCounter    = "category"
	BrandCounter       = "brand"
	ProductCounter     = "product"
	OrderCounter       = "order"
	DeliveryCounter    = "delivery"
	ChatMessageCounter = "chat_message"
)

// Next atomically increments the named counter and returns its new
// value, creating the counter on first use. The first value is 1.
func Next(db *gorm.DB, name string) (uint, error) {
	var value uint
	err := db.Raw(
		`INSERT INTO counters (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		 RETURNING value`,
		name,
	).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("sequence %q: %w", name, err)
	}
	return value, nil
}
