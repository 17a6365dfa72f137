package models

import (
	"time"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDraft    = "draft"
)

const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

const (
	PaymentCOD  = "COD"
	PaymentSlip = "Payment Slip"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

const (
	DeliveryPending   = "pending"
	DeliveryAssigned  = "assigned"
	DeliveryPickedUp  = "picked_up"
	DeliveryInTransit = "in_transit"
	DeliveryDelivered = "delivered"
	DeliveryCancelled = "cancelled"
)

const (
	RoleCustomer = "customer"
	RoleAgent    = "agent"
	RoleAdmin    = "admin"
)

// Counter backs the sequence generator. Value only moves through the
// single-statement upsert in internal/sequence.
type Counter struct {
	Name  string `gorm:"primaryKey" json:"name"`
	Value uint64 `gorm:"not null"   json:"value"`
}

type Category struct {
	ID          uint      `gorm:"primaryKey"               json:"id"`
	Name        string    `gorm:"not null;index"           json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Status      string    `gorm:"not null;default:active"  json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Brand struct {
	ID          uint   `gorm:"primaryKey"               json:"id"`
	Name        string `gorm:"not null"                 json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Status      string `gorm:"not null;default:active"  json:"status"`
	CategoryID  uint   `gorm:"index;not null"           json:"category_id"`
	// snapshot of the parent name at write time
	CategoryName string    `json:"category_name"`
	CreatedAt    time.Time `json:"created_at"`
}

type Product struct {
	ID          uint      `gorm:"primaryKey"               json:"id"`
	Name        string    `gorm:"not null"                 json:"name"`
	Description string    `json:"description"`
	Price       float64   `gorm:"not null"                 json:"price"`
	Images      []string  `gorm:"serializer:json"          json:"images"`
	Status      string    `gorm:"not null;default:active"  json:"status"`
	CategoryID  uint      `gorm:"index;not null"           json:"category_id"`
	BrandID     uint      `gorm:"index;not null"           json:"brand_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type CartItem struct {
	ID        uint    `gorm:"primaryKey"                  json:"id"`
	UserID    uint    `gorm:"index;not null"              json:"user_id"`
	ProductID uint    `gorm:"not null"                    json:"product_id"`
	Quantity  uint    `gorm:"default:1;check:quantity>0"  json:"quantity"`
	UnitPrice float64 `gorm:"not null"                    json:"unit_price"`
}

type Order struct {
	ID              uint      `gorm:"primaryKey"      json:"id"`
	UserID          uint      `gorm:"index;not null"  json:"user_id"`
	Email           string    `json:"email"`
	TotalPrice      float64   `gorm:"not null"        json:"total_price"`
	ShippingAddress string    `gorm:"not null"        json:"shipping_address"`
	Status          string    `gorm:"not null"        json:"status"`
	PaymentMethod   string    `gorm:"not null"        json:"payment_method"`
	PaymentStatus   string    `gorm:"not null"        json:"payment_status"`
	PaymentSlip     string    `json:"payment_slip,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// OrderItem is a price snapshot taken at order time; later catalog
// changes never touch it.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey"      json:"id"`
	OrderID   uint    `gorm:"index;not null"  json:"order_id"`
	ProductID uint    `gorm:"not null"        json:"product_id"`
	Quantity  uint    `gorm:"not null"        json:"quantity"`
	Price     float64 `gorm:"not null"        json:"price"`
}

type Delivery struct {
	ID                uint       `gorm:"primaryKey"      json:"id"`
	OrderID           uint       `gorm:"index;not null"  json:"order_id"`
	UserID            uint       `gorm:"index;not null"  json:"user_id"`
	Address           string     `gorm:"not null"        json:"address"`
	Status            string     `gorm:"not null"        json:"status"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time `json:"actual_delivery,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type Notification struct {
	ID        uint      `gorm:"primaryKey"      json:"id"`
	UserID    uint      `gorm:"index;not null"  json:"user_id"`
	Message   string    `gorm:"not null"        json:"message"`
	Read      bool      `gorm:"default:false"   json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey"      json:"id"`
	ProductID uint      `gorm:"index;not null"  json:"product_id"`
	UserID    uint      `gorm:"index;not null"  json:"user_id"`
	Rating    int       `gorm:"not null"        json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `gorm:"not null"                 json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type SupportTicket struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null"           json:"user_id"`
	Subject   string    `gorm:"not null"                 json:"subject"`
	Status    string    `gorm:"not null;default:open"    json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatMessage struct {
	ID         uint      `gorm:"primaryKey"      json:"id"`
	TicketID   uint      `gorm:"index;not null"  json:"ticket_id"`
	SenderID   uint      `gorm:"not null"        json:"sender_id"`
	SenderRole string    `gorm:"not null"        json:"sender_role"`
	Body       string    `gorm:"not null"        json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

func ValidOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

func ValidDeliveryStatus(s string) bool {
	switch s {
	case DeliveryPending, DeliveryAssigned, DeliveryPickedUp, DeliveryInTransit, DeliveryDelivered, DeliveryCancelled:
		return true
	}
	return false
}

func ValidCatalogStatus(s string) bool {
	switch s {
	case StatusActive, StatusInactive, StatusDraft:
		return true
	}
	return false
}
