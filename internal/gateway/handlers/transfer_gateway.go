package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"syntra-ledger/internal/export"
	"syntra-ledger/internal/services/commissions/handler"
)

// TransferHTTPHandler serves transfer types and transfer commissions.
type TransferHTTPHandler struct {
	commissions *handler.CommissionHandler
	renderer    export.Renderer
}

func NewTransferHTTPHandler(commissions *handler.CommissionHandler, renderer export.Renderer) *TransferHTTPHandler {
	return &TransferHTTPHandler{
		commissions: commissions,
		renderer:    renderer,
	}
}

type ListTransferTypesQuery struct {
	ActiveOnly bool `form:"active_only"`
}

type SaveTransferCommissionRequest struct {
	TransferID    int64            `json:"transferId" binding:"required"`
	SalespersonID int64            `json:"salespersonId" binding:"required"`
	Commission    *decimal.Decimal `json:"commission" binding:"required"`
}

type UpdateTransferCommissionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type BulkTransferCalculateRequest struct {
	TransferIDs []int64 `json:"transfer_ids" binding:"required"`
}

type ReportQuery struct {
	StartDate  string `form:"startDate"`
	EndDate    string `form:"endDate"`
	Status     string `form:"status"`
	EmployeeID int64  `form:"employeeId"`
}

// --- Transfer Type Handlers ---

func (h *TransferHTTPHandler) CreateTransferType(c *gin.Context) {
	var req handler.TransferTypeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	tt, err := h.commissions.CreateTransferType(ctx, req)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, successResponse("Transfer type created successfully", tt))
}

func (h *TransferHTTPHandler) ListTransferTypes(c *gin.Context) {
	var query ListTransferTypesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	types, err := h.commissions.ListTransferTypes(ctx, query.ActiveOnly)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Transfer types retrieved successfully", types))
}

func (h *TransferHTTPHandler) GetTransferType(c *gin.Context) {
	id, ok := paramID(c, "id", "transfer type ID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	tt, err := h.commissions.GetTransferType(ctx, id)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Transfer type retrieved successfully", tt))
}

func (h *TransferHTTPHandler) UpdateTransferType(c *gin.Context) {
	id, ok := paramID(c, "id", "transfer type ID")
	if !ok {
		return
	}

	var req handler.TransferTypeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	tt, err := h.commissions.UpdateTransferType(ctx, id, req)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Transfer type updated successfully", tt))
}

func (h *TransferHTTPHandler) DeleteTransferType(c *gin.Context) {
	id, ok := paramID(c, "id", "transfer type ID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if handleServiceError(c, h.commissions.DeleteTransferType(ctx, id)) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Transfer type deleted successfully", nil))
}

// --- Transfer Commission Handlers ---

func (h *TransferHTTPHandler) SaveTransferCommission(c *gin.Context) {
	var req SaveTransferCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	commission, created, err := h.commissions.SaveOrUpdateTransferCommission(ctx, handler.SaveTransferCommissionRequest{
		TransferID:    req.TransferID,
		SalespersonID: req.SalespersonID,
		Commission:    *req.Commission,
	})
	if handleServiceError(c, err) {
		return
	}

	if created {
		c.JSON(http.StatusCreated, successResponse("Transfer commission created successfully", commission))
		return
	}
	c.JSON(http.StatusOK, successResponse("Transfer commission updated successfully", commission))
}

func (h *TransferHTTPHandler) GetTransferCommission(c *gin.Context) {
	transferID, ok := paramID(c, "transferId", "transfer ID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	commission, err := h.commissions.GetTransferCommission(ctx, transferID)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Transfer commission retrieved successfully", commission))
}

func (h *TransferHTTPHandler) UpdateTransferCommissionStatus(c *gin.Context) {
	commissionID, ok := paramID(c, "commissionId", "commission ID")
	if !ok {
		return
	}

	var req UpdateTransferCommissionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	commission, err := h.commissions.UpdateTransferCommissionStatus(ctx, commissionID, req.Status)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Transfer commission status updated successfully", commission))
}

func (h *TransferHTTPHandler) BulkCalculateTransferCommissions(c *gin.Context) {
	var req BulkTransferCalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second) // Longer timeout for bulk operations
	defer cancel()

	res, err := h.commissions.BulkCalculateTransferCommissions(ctx, req.TransferIDs)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Bulk calculation processed", res))
}

func (h *TransferHTTPHandler) Summary(c *gin.Context) {
	var query ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	summary, err := h.commissions.Summary(ctx, query.StartDate, query.EndDate)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Commission summary retrieved successfully", summary))
}

func (h *TransferHTTPHandler) Export(c *gin.Context) {
	var query ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	rows, err := h.commissions.ExportRows(ctx, handler.ReportFilter{
		StartDate:  query.StartDate,
		EndDate:    query.EndDate,
		Status:     query.Status,
		EmployeeID: query.EmployeeID,
	})
	if handleServiceError(c, err) {
		return
	}

	filename := fmt.Sprintf("transfer-commissions-%s%s", time.Now().Format("20060102"), h.renderer.Extension())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", h.renderer.ContentType())
	c.Status(http.StatusOK)
	if err := h.renderer.Render(c.Writer, handler.ExportHeader, rows); err != nil {
		log.Printf("Failed to render export: %v", err)
	}
}
