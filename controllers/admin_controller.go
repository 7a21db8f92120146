package controllers

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yvetteluxe63/yvetteluxe/common/errors"
	"github.com/yvetteluxe63/yvetteluxe/models"
	awspkg "github.com/yvetteluxe63/yvetteluxe/pkg/aws"
	"github.com/yvetteluxe63/yvetteluxe/services"
	"go.uber.org/zap"
)

const (
	maxImageSize         = 10 << 20
	defaultPresignExpiry = 15 * time.Minute
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// CatalogAdmin is everything the dashboard does against the admin catalog.
type CatalogAdmin interface {
	ProductCatalog
	FetchAll(ctx context.Context) error
	Create(ctx context.Context, in models.ProductInput) (*models.Product, error)
	Update(ctx context.Context, id string, patch models.ProductPatch) error
	Delete(ctx context.Context, id string) error
	UploadImage(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
	PresignImage(ctx context.Context, filename, contentType string, expiry time.Duration) (*services.PresignedUpload, error)
	Orders() []models.Order
	MarkFulfilled(ctx context.Context, id string) (models.Order, error)
	OrderStats() models.OrderStats
	SetCurrency(ctx context.Context, code string) error
}

// MetricsRecorder is satisfied by pkg/aws.MetricsClient.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, name string, dimensions map[string]string) error
}

type AdminController struct {
	catalog CatalogAdmin
	metrics MetricsRecorder
	logger  *zap.Logger
}

func NewAdminController(catalog CatalogAdmin, metrics MetricsRecorder, logger *zap.Logger) *AdminController {
	return &AdminController{catalog: catalog, metrics: metrics, logger: logger}
}

type adminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type currencyRequest struct {
	Currency string `json:"currency" binding:"required"`
}

type presignRequest struct {
	Filename      string `json:"filename" binding:"required"`
	ContentType   string `json:"content_type" binding:"required"`
	ExpiresInSecs int64  `json:"expires_in" binding:"omitempty,min=60,max=3600"`
}

func (h *AdminController) Login(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	if err := sess.Admin.Login(c.Request.Context(), req.Password); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

func (h *AdminController) Logout(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	if err := sess.Admin.Logout(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

func (h *AdminController) Status(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": sess.Admin.IsAuthenticated()})
}

func (h *AdminController) ListProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"products": h.catalog.Products(),
		"loading":  h.catalog.Loading(),
	})
}

func (h *AdminController) Refresh(c *gin.Context) {
	if err := h.catalog.FetchAll(c.Request.Context()); err != nil {
		fail(c, apperrors.Wrap(apperrors.ErrBadGateway, err))
		return
	}
	h.ListProducts(c)
}

func (h *AdminController) CreateProduct(c *gin.Context) {
	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindFailed(c, err)
		return
	}
	product, err := h.catalog.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *AdminController) UpdateProduct(c *gin.Context) {
	var patch models.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		bindFailed(c, err)
		return
	}
	id := c.Param("id")
	if err := h.catalog.Update(c.Request.Context(), id, patch); err != nil {
		fail(c, err)
		return
	}
	if product, ok := h.catalog.Product(id); ok {
		c.JSON(http.StatusOK, product)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *AdminController) DeleteProduct(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadImage accepts a multipart "image" field and returns the stored image's public URL.
func (h *AdminController) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageSize+1<<20)
	fh, err := c.FormFile("image")
	if err != nil {
		fail(c, apperrors.Validation("image", "An image file is required"))
		return
	}
	if fh.Size > maxImageSize {
		fail(c, apperrors.Validation("image", "Image must be 10MB or smaller"))
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		fail(c, apperrors.Validation("image", "Only JPEG, PNG, WebP and GIF images are allowed"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()

	url, err := h.catalog.UploadImage(c.Request.Context(), fh.Filename, contentType, f)
	if err != nil {
		fail(c, apperrors.New(http.StatusBadGateway, err.Error(), err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func (h *AdminController) PresignImage(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	req.ContentType = strings.ToLower(strings.TrimSpace(req.ContentType))
	if !allowedImageTypes[req.ContentType] {
		fail(c, apperrors.Validation("content_type", "Only JPEG, PNG, WebP and GIF images are allowed"))
		return
	}
	expiry := defaultPresignExpiry
	if req.ExpiresInSecs > 0 {
		expiry = time.Duration(req.ExpiresInSecs) * time.Second
	}

	upload, err := h.catalog.PresignImage(c.Request.Context(), req.Filename, req.ContentType, expiry)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

func (h *AdminController) ListOrders(c *gin.Context) {
	status := c.Query("status")
	orders := h.catalog.Orders()
	if status != "" {
		filtered := orders[:0]
		for _, o := range orders {
			if o.Status == status {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders), "currency": h.catalog.Currency()})
}

func (h *AdminController) FulfillOrder(c *gin.Context) {
	order, err := h.catalog.MarkFulfilled(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if h.metrics != nil {
		_ = h.metrics.RecordCount(c.Request.Context(), awspkg.MetricOrdersFulfilled, nil)
	}
	h.logger.Info("order fulfilled", zap.String("order_id", order.ID))
	c.JSON(http.StatusOK, order)
}

func (h *AdminController) OrderStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.OrderStats())
}

func (h *AdminController) SetCurrency(c *gin.Context) {
	var req currencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	if err := h.catalog.SetCurrency(c.Request.Context(), req.Currency); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currency": h.catalog.Currency()})
}
