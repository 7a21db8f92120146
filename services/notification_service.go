package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yvetteluxe63/yvetteluxe/models"
	awspkg "github.com/yvetteluxe63/yvetteluxe/pkg/aws"
	"github.com/yvetteluxe63/yvetteluxe/sender"
	"go.uber.org/zap"
)

const (
	contactAutoresponse = "Thank you for contacting us! We will get back to you within 24 hours."
	notifyAttempts      = 3
	notifyTimeout       = 30 * time.Second
	metricTimeout       = 5 * time.Second
)

// MetricsRecorder is satisfied by pkg/aws.MetricsClient.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, name string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, name string, d time.Duration, dimensions map[string]string) error
}

type noopMetrics struct{}

func (noopMetrics) RecordCount(context.Context, string, map[string]string) error { return nil }
func (noopMetrics) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	return nil
}

// OrderNotifier sends order and contact mails through a relay. Order mails run in the
// background and their failures are only logged.
type OrderNotifier struct {
	relay      sender.MailRelay
	adminEmail string
	storeName  string
	logger     *zap.Logger
	metrics    MetricsRecorder
	backoff    time.Duration
	timeout    time.Duration
	now        func() time.Time

	wg sync.WaitGroup
}

func NewOrderNotifier(relay sender.MailRelay, adminEmail, storeName string, metrics MetricsRecorder, logger *zap.Logger) *OrderNotifier {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &OrderNotifier{
		relay:      relay,
		adminEmail: adminEmail,
		storeName:  storeName,
		logger:     logger,
		metrics:    metrics,
		backoff:    time.Second,
		timeout:    notifyTimeout,
		now:        time.Now,
	}
}

// DispatchOrder starts the customer confirmation and the admin notification and returns
// immediately.
func (n *OrderNotifier) DispatchOrder(order models.Order) {
	number := OrderNumber(n.now())
	currency := order.Currency

	n.goSend(order.ID, order.CustomerEmail, "Order Confirmation - "+number,
		CustomerConfirmationFields(order, number, currency, n.storeName))
	n.goSend(order.ID, n.adminEmail, "New Order Received - "+number,
		AdminNotificationFields(order, number, currency))
}

func (n *OrderNotifier) goSend(orderID, recipient, subject string, fields map[string]string) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.sendWithRetry(ctx, recipient, subject, fields); err != nil {
			n.logger.Error("order notification failed",
				zap.String("order_id", orderID),
				zap.String("subject", subject),
				zap.Error(err),
			)
			// The send context may be the thing that expired.
			mctx, mcancel := context.WithTimeout(context.Background(), metricTimeout)
			_ = n.metrics.RecordCount(mctx, awspkg.MetricNotificationFailed, nil)
			mcancel()
		}
	}()
}

func (n *OrderNotifier) sendWithRetry(ctx context.Context, recipient, subject string, fields map[string]string) error {
	var lastErr error
	for attempt := 0; attempt < notifyAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * n.backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = n.relay.Send(ctx, recipient, subject, fields); lastErr == nil {
			return nil
		}
		n.logger.Warn("send attempt failed",
			zap.String("subject", subject),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}
	return lastErr
}

// Wait blocks until every dispatched notification has finished.
func (n *OrderNotifier) Wait() {
	n.wg.Wait()
}

// Contact forwards a storefront contact form to the shop inbox.
func (n *OrderNotifier) Contact(ctx context.Context, msg models.ContactMessage) error {
	fields := map[string]string{
		"name":          msg.Name,
		"email":         msg.Email,
		"message":       msg.Message,
		"_replyto":      msg.Email,
		"_autoresponse": contactAutoresponse,
	}
	if err := n.relay.Send(ctx, n.adminEmail, "New Contact Form Message", fields); err != nil {
		return fmt.Errorf("send contact message: %w", err)
	}
	return nil
}

// OrderNumber is the human facing reference used in mails: "ORD-" plus the last six
// digits of the millisecond timestamp.
func OrderNumber(t time.Time) string {
	ms := fmt.Sprintf("%d", t.UnixMilli())
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return "ORD-" + ms
}

func formatItems(items []models.CartItem, currency string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		line := fmt.Sprintf("%dx %s", it.Quantity, it.Name)
		if it.Size != "" {
			line += fmt.Sprintf(" (Size: %s)", it.Size)
		}
		if it.Color != "" {
			line += fmt.Sprintf(" (Color: %s)", it.Color)
		}
		line += fmt.Sprintf(" - %s %s", currency, it.LineTotal().StringFixed(2))
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func paymentMethodLabel(method string) string {
	if method == models.PaymentMethodMobileMoney {
		return "Mobile Money"
	}
	return "Paystack"
}

// CustomerConfirmationBody is the plain-text confirmation sent to the shopper.
func CustomerConfirmationBody(order models.Order, number, currency, storeName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", order.CustomerName)
	b.WriteString("Thank you for your order! Your payment has been successfully processed.\n\n")

	b.WriteString("ORDER DETAILS\n")
	fmt.Fprintf(&b, "Order ID: %s\nPayment Status: SUCCESSFUL\nPayment Reference: %s\n\n", number, order.PaymentReference)

	b.WriteString("CUSTOMER INFORMATION\n")
	fmt.Fprintf(&b, "Name: %s\nEmail: %s\nPhone: %s\nDelivery Address: %s\n\n",
		order.CustomerName, order.CustomerEmail, order.CustomerPhone, order.CustomerAddress)

	b.WriteString("ITEMS ORDERED\n")
	b.WriteString(formatItems(order.Items, currency))
	b.WriteString("\n\n")

	b.WriteString("PAYMENT INFORMATION\n")
	fmt.Fprintf(&b, "Payment Method: %s\n", paymentMethodLabel(order.PaymentMethod))
	if order.Network != "" {
		fmt.Fprintf(&b, "Network: %s\n", strings.ToUpper(order.Network))
	}
	fmt.Fprintf(&b, "Total Amount: %s %s\n\n", currency, order.Total.StringFixed(2))

	b.WriteString("DELIVERY INFORMATION\n")
	fmt.Fprintf(&b, "Estimated Delivery: 2-3 business days\nDelivery Address: %s\n\n", order.CustomerAddress)

	b.WriteString("You will receive SMS updates about your delivery status.\n\n")
	b.WriteString("Thank you for shopping with us!\n\n")
	fmt.Fprintf(&b, "Best regards,\n%s Team", storeName)
	return b.String()
}

func CustomerConfirmationFields(order models.Order, number, currency, storeName string) map[string]string {
	return map[string]string{
		"message":        CustomerConfirmationBody(order, number, currency, storeName),
		"order_id":       number,
		"customer_name":  order.CustomerName,
		"total_amount":   fmt.Sprintf("%s %s", currency, order.Total.StringFixed(2)),
		"payment_status": "SUCCESSFUL",
	}
}

func AdminNotificationFields(order models.Order, number, currency string) map[string]string {
	fields := map[string]string{
		"order_id":          number,
		"customer_name":     order.CustomerName,
		"customer_phone":    order.CustomerPhone,
		"customer_email":    order.CustomerEmail,
		"customer_address":  order.CustomerAddress,
		"total_amount":      fmt.Sprintf("%s %s", currency, order.Total.StringFixed(2)),
		"payment_method":    order.PaymentMethod,
		"payment_reference": order.PaymentReference,
		"payment_status":    "PAID",
		"order_items":       formatItems(order.Items, currency),
	}
	if order.Network != "" {
		fields["network"] = order.Network
	}
	if order.MomoNumber != "" {
		fields["momo_number"] = order.MomoNumber
	}
	return fields
}
