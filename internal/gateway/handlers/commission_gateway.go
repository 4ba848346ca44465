package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"syntra-ledger/internal/services/commissions/handler"
)

type CommissionsHTTPHandler struct {
	commissions *handler.CommissionHandler
}

func NewCommissionsHTTPHandler(commissions *handler.CommissionHandler) *CommissionsHTTPHandler {
	return &CommissionsHTTPHandler{
		commissions: commissions,
	}
}

// --- Request & Query Structs for Binding ---

type CalculateRankRequest struct {
	ProfitAmount *decimal.Decimal `json:"profit_amount" binding:"required"`
}

type BulkRankCalculateRequest struct {
	Items []handler.PurchaseProfitItem `json:"items" binding:"required"`
}

type ListCsCommissionsQuery struct {
	Paid   *bool  `form:"paid"`
	Status string `form:"status"`
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
}

type UpdateCsCommissionRequest struct {
	IsPaid *bool `json:"is_paid" binding:"required"`
}

// --- Commission Rank Handlers ---

func (h *CommissionsHTTPHandler) ListRanks(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	ranks, err := h.commissions.ListRanks(ctx)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Commission ranks retrieved successfully", ranks))
}

func (h *CommissionsHTTPHandler) SaveRanks(c *gin.Context) {
	var req []handler.RankInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	ranks, err := h.commissions.SaveRanks(ctx, req)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Commission ranks saved successfully", ranks))
}

func (h *CommissionsHTTPHandler) CalculateRank(c *gin.Context) {
	var req CalculateRankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	res, err := h.commissions.CalculateForProfit(ctx, *req.ProfitAmount)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Commission calculated successfully", res))
}

func (h *CommissionsHTTPHandler) BulkCalculateRanks(c *gin.Context) {
	var req BulkRankCalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	res, err := h.commissions.BulkCalculatePurchaseCommissions(ctx, req.Items)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Bulk calculation processed", res))
}

// --- Employee & CS Commission Handlers ---

func (h *CommissionsHTTPHandler) SubmitCommissions(c *gin.Context) {
	var req handler.SubmitCommissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	res, err := h.commissions.SubmitEmployeeCommissions(ctx, req)
	if err != nil && res != nil && len(res.InvalidEmployeeIDs) > 0 {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "Invalid employee ids",
			Data:    gin.H{"invalid_employee_ids": res.InvalidEmployeeIDs},
		})
		return
	}
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Commissions submitted successfully", res))
}

func (h *CommissionsHTTPHandler) ListCsCommissions(c *gin.Context) {
	var query ListCsCommissionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	rows, meta, err := h.commissions.ListCsCommissions(ctx, handler.ListCsCommissionsRequest{
		Paid:   query.Paid,
		Status: query.Status,
		Page:   query.Page,
		Limit:  query.Limit,
	})
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("CS commissions retrieved successfully", rows, meta))
}

func (h *CommissionsHTTPHandler) UpdateCsCommission(c *gin.Context) {
	id, ok := paramID(c, "id", "CS commission ID")
	if !ok {
		return
	}

	var req UpdateCsCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	row, err := h.commissions.UpdateCsCommissionPaid(ctx, id, *req.IsPaid)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("CS commission updated successfully", row))
}

func (h *CommissionsHTTPHandler) GetPurchaseStatus(c *gin.Context) {
	purchaseID, ok := paramID(c, "purchaseId", "purchase ID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	res, err := h.commissions.GetPurchaseStatus(ctx, purchaseID)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Commission status retrieved successfully", res))
}

func (h *CommissionsHTTPHandler) GetEmployeeCommissions(c *gin.Context) {
	purchaseID, ok := paramID(c, "purchaseId", "purchase ID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	rows, err := h.commissions.GetEmployeeCommissions(ctx, purchaseID)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Employee commissions retrieved successfully", rows))
}

func (h *CommissionsHTTPHandler) GetCsCommission(c *gin.Context) {
	purchaseID, ok := paramID(c, "purchaseId", "purchase ID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	row, err := h.commissions.GetCsCommission(ctx, purchaseID)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("CS commission retrieved successfully", row))
}
