package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vberezin/storehub/internal/handlers"
	"github.com/vberezin/storehub/internal/metrics"
	"github.com/vberezin/storehub/internal/middleware/auth"
)

type Deps struct {
	DB                  *gorm.DB
	AuthMW              *auth.Middleware
	Metrics             *metrics.ServerMetrics
	AuthHandler         *handlers.AuthHandler
	CatalogHandler      *handlers.CatalogHandler
	CartHandler         *handlers.CartHandler
	OrderHandler        *handlers.OrderHandler
	DeliveryHandler     *handlers.DeliveryHandler
	ReviewHandler       *handlers.ReviewHandler
	SupportHandler      *handlers.SupportHandler
	NotificationHandler *handlers.NotificationHandler
	SearchHandler       *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	e.POST("/auth/register", d.AuthHandler.Register)
	e.POST("/auth/login", d.AuthHandler.Login)
	e.POST("/auth/logout", d.AuthHandler.Logout)

	admin := d.AuthMW.AdminOnly
	login := d.AuthMW.RequireLogin
	staff := d.AuthMW.AgentOrAdmin

	categories := e.Group("/categories")
	categories.GET("", d.CatalogHandler.GetCategories)
	categories.GET("/:id", d.CatalogHandler.GetCategory)
	categories.POST("/addcategory", d.CatalogHandler.CreateCategory, admin)
	categories.PUT("/updatecategory/:id", d.CatalogHandler.UpdateCategory, admin)
	categories.DELETE("/deletecategory/:id", d.CatalogHandler.DeleteCategory, admin)

	brands := e.Group("/brands")
	brands.GET("", d.CatalogHandler.GetBrands)
	brands.GET("/:id", d.CatalogHandler.GetBrand)
	brands.POST("/addbrand", d.CatalogHandler.CreateBrand, admin)
	brands.PUT("/updatebrand/:id", d.CatalogHandler.UpdateBrand, admin)
	brands.DELETE("/deletebrand/:id", d.CatalogHandler.DeleteBrand, admin)

	products := e.Group("/products")
	products.GET("", d.CatalogHandler.GetProducts)
	products.GET("/search", d.SearchHandler.Search)
	products.GET("/:id", d.CatalogHandler.GetProduct)
	products.POST("/addproduct", d.CatalogHandler.CreateProduct, admin)
	products.PUT("/updateproduct/:id", d.CatalogHandler.UpdateProduct, admin)
	products.DELETE("/deleteproduct/:id", d.CatalogHandler.DeleteProduct, admin)

	cart := e.Group("/cart", login)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.DELETE("/:id", d.CartHandler.RemoveOne)
	cart.DELETE("", d.CartHandler.ClearCart)

	orders := e.Group("/orders")
	orders.POST("", d.OrderHandler.CreateOrder, login)
	orders.GET("", d.OrderHandler.GetOrders, login)
	orders.GET("/analytics", d.OrderHandler.Analytics, admin)
	orders.GET("/:order_id", d.OrderHandler.GetOrder, login)
	orders.PUT("/:order_id/status", d.OrderHandler.UpdateStatus, admin)
	orders.PUT("/cancel/:order_id", d.OrderHandler.Cancel, login)

	deliveries := e.Group("/deliveries")
	deliveries.POST("", d.DeliveryHandler.Create, admin)
	deliveries.PUT("/:id/status", d.DeliveryHandler.UpdateStatus, admin)
	deliveries.GET("/by-order/:orderId", d.DeliveryHandler.GetByOrder, login)
	deliveries.GET("/:id", d.DeliveryHandler.GetByID, login)

	reviews := e.Group("/reviews")
	reviews.GET("/product/:productId", d.ReviewHandler.ListByProduct)
	reviews.GET("/product/:productId/summary", d.ReviewHandler.Summary)
	reviews.POST("", d.ReviewHandler.Create, login)
	reviews.PUT("/:id", d.ReviewHandler.Update, login)
	reviews.DELETE("/:id", d.ReviewHandler.Delete, login)

	support := e.Group("/support/tickets", login)
	support.POST("", d.SupportHandler.CreateTicket)
	support.GET("", d.SupportHandler.ListTickets)
	support.GET("/:id", d.SupportHandler.GetTicket)
	support.POST("/:id/messages", d.SupportHandler.PostMessage)
	support.PUT("/:id/close", d.SupportHandler.CloseTicket, staff)

	notifications := e.Group("/notifications", login)
	notifications.GET("", d.NotificationHandler.List)
	notifications.PUT("/:id/read", d.NotificationHandler.MarkRead)
}
