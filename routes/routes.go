package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yvetteluxe63/yvetteluxe/common/errors"
	"github.com/yvetteluxe63/yvetteluxe/common/logger"
	"github.com/yvetteluxe63/yvetteluxe/controllers"
	"github.com/yvetteluxe63/yvetteluxe/middleware"
	awspkg "github.com/yvetteluxe63/yvetteluxe/pkg/aws"
	"github.com/yvetteluxe63/yvetteluxe/services"
	"go.uber.org/zap"
)

const (
	serviceName    = "storefront"
	requestTimeout = 30 * time.Second
)

// Dependencies is everything the HTTP surface needs.
type Dependencies struct {
	Registry *services.SessionRegistry
	Catalog  *services.AdminCatalog
	Checkout controllers.OrderPlacer
	Contact  controllers.ContactSender
	Feed     *controllers.OrderFeed

	Metrics     *awspkg.MetricsClient
	RateLimiter *middleware.RateLimiter
	Logger      *zap.Logger

	AllowedOrigins      []string
	RequireCustomerAuth bool
}

// NewRouter builds the engine with the global middleware chain and all routes.
func NewRouter(d Dependencies) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	// Logging and metrics sit outside ErrorMiddleware so they see the rendered status.
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.Metrics(d.Metrics, serviceName))
	r.Use(apperrors.ErrorMiddleware())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(d.AllowedOrigins))
	if d.RateLimiter != nil {
		r.Use(middleware.RateLimit(d.RateLimiter))
	}
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	RegisterRoutes(r, d)
	return r
}

// RegisterRoutes mounts the storefront, shopper-session and admin routes.
func RegisterRoutes(r *gin.Engine, d Dependencies) {
	catalog := controllers.NewCatalogController(d.Catalog, d.Contact)
	cart := controllers.NewCartController(d.Catalog)
	wishlist := controllers.NewWishlistController(d.Catalog)
	checkout := controllers.NewCheckoutController(d.Checkout)
	auth := controllers.NewAuthController()
	admin := controllers.NewAdminController(d.Catalog, d.Metrics, d.Logger)

	products := r.Group("/products")
	{
		products.GET("", catalog.ListProducts)
		products.GET("/featured", catalog.Featured)
		products.GET("/categories", catalog.Categories)
		products.GET("/:id", catalog.GetProduct)
	}
	r.GET("/currency", catalog.Currency)
	r.POST("/contact", catalog.Contact)

	session := r.Group("", middleware.Session(d.Registry))

	cartRoutes := session.Group("/cart")
	{
		cartRoutes.GET("", cart.Get)
		cartRoutes.POST("/items", cart.AddItem)
		cartRoutes.PUT("/items/:productId", cart.UpdateItem)
		cartRoutes.DELETE("/items/:productId", cart.RemoveItem)
		cartRoutes.DELETE("", cart.Clear)
	}

	wishlistRoutes := session.Group("/wishlist")
	{
		wishlistRoutes.GET("", wishlist.Get)
		wishlistRoutes.POST("", wishlist.Add)
		wishlistRoutes.POST("/from-product/:productId", wishlist.AddFromCatalog)
		wishlistRoutes.DELETE("/:productId", wishlist.Remove)
		wishlistRoutes.DELETE("", wishlist.Clear)
	}

	checkoutRoutes := session.Group("/checkout")
	if d.RequireCustomerAuth {
		checkoutRoutes.Use(middleware.RequireCustomer())
	}
	{
		checkoutRoutes.GET("", checkout.Prefill)
		checkoutRoutes.POST("", checkout.PlaceOrder)
	}

	authRoutes := session.Group("/auth")
	{
		authRoutes.POST("/signup", auth.SignUp)
		authRoutes.POST("/signin", auth.SignIn)
		authRoutes.POST("/signout", auth.SignOut)
		authRoutes.GET("/session", auth.Session)
	}

	adminRoutes := session.Group("/admin")
	{
		adminRoutes.POST("/login", admin.Login)
		adminRoutes.POST("/logout", admin.Logout)
		adminRoutes.GET("/status", admin.Status)
	}

	gated := adminRoutes.Group("", middleware.RequireAdmin())
	{
		gated.GET("/products", admin.ListProducts)
		gated.POST("/products", admin.CreateProduct)
		gated.PUT("/products/:id", admin.UpdateProduct)
		gated.DELETE("/products/:id", admin.DeleteProduct)
		gated.POST("/products/image", admin.UploadImage)
		gated.POST("/products/image/presign", admin.PresignImage)
		gated.POST("/refresh", admin.Refresh)

		gated.GET("/orders", admin.ListOrders)
		gated.GET("/orders/stats", admin.OrderStats)
		gated.GET("/orders/export", admin.ExportOrders)
		gated.PUT("/orders/:id/fulfill", admin.FulfillOrder)
		if d.Feed != nil {
			gated.GET("/orders/ws", d.Feed.Serve)
		}

		gated.PUT("/currency", admin.SetCurrency)
	}
}
