package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	userhandler "syntra-ledger/internal/services/user/handler"
)

// EmployeeHTTPHandler exposes the read-only employee directory used to pick
// salespeople and commission recipients.
type EmployeeHTTPHandler struct {
	users *userhandler.UserHandler
}

func NewEmployeeHTTPHandler(users *userhandler.UserHandler) *EmployeeHTTPHandler {
	return &EmployeeHTTPHandler{
		users: users,
	}
}

type ValidateEmployeesRequest struct {
	EmployeeIDs []int64 `json:"employee_ids" binding:"required"`
}

func (h *EmployeeHTTPHandler) GetEmployee(c *gin.Context) {
	id, ok := paramID(c, "id", "employee ID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	employee, err := h.users.GetEmployee(ctx, id)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Employee retrieved successfully", employee))
}

// ValidateEmployees reports which of the given ids cannot receive a commission.
func (h *EmployeeHTTPHandler) ValidateEmployees(c *gin.Context) {
	var req ValidateEmployeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	invalid, err := h.users.FindInvalidEmployeeIDs(ctx, req.EmployeeIDs)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Employees validated", gin.H{
		"valid":                len(invalid) == 0,
		"invalid_employee_ids": invalid,
	}))
}
