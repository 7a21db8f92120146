package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
	"github.com/yvetteluxe63/yvetteluxe/models"
	"go.uber.org/zap"
)

var orderExportHeaders = []string{
	"Order ID", "Placed At", "Status", "Paid", "Customer", "Email", "Phone", "Address",
	"Items", "Total", "Currency", "Payment Method", "Network", "Payment Reference",
}

// BuildOrdersWorkbook renders the ledger as a single-sheet workbook, one row per order.
func BuildOrdersWorkbook(orders []models.Order) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range orderExportHeaders {
		header.AddCell().SetValue(h)
	}

	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetValue(o.ID)
		row.AddCell().SetValue(o.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(o.Status)
		row.AddCell().SetBool(o.IsPaid)
		row.AddCell().SetValue(o.CustomerName)
		row.AddCell().SetValue(o.CustomerEmail)
		row.AddCell().SetValue(o.CustomerPhone)
		row.AddCell().SetValue(o.CustomerAddress)
		row.AddCell().SetValue(itemSummary(o.Items))
		total, _ := o.Total.Float64()
		row.AddCell().SetFloatWithFormat(total, "0.00")
		row.AddCell().SetValue(o.Currency)
		row.AddCell().SetValue(o.PaymentMethod)
		row.AddCell().SetValue(o.Network)
		row.AddCell().SetValue(o.PaymentReference)
	}
	return file, nil
}

func itemSummary(items []models.CartItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", it.Quantity, it.Name))
	}
	return strings.Join(parts, "; ")
}

// ExportOrders streams the ledger as an .xlsx download.
func (h *AdminController) ExportOrders(c *gin.Context) {
	file, err := BuildOrdersWorkbook(h.catalog.Orders())
	if err != nil {
		fail(c, err)
		return
	}

	name := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Status(http.StatusOK)
	if err := file.Write(c.Writer); err != nil {
		h.logger.Error("failed to write order export", zap.Error(err))
	}
}
