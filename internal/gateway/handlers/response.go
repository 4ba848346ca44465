package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

// handleServiceError writes the error response and reports whether there was
// an error, so callers can return early.
func handleServiceError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.InvalidArgument:
			c.JSON(http.StatusBadRequest, errorResponse(s.Message()))
		case codes.NotFound:
			c.JSON(http.StatusNotFound, errorResponse(s.Message()))
		case codes.FailedPrecondition:
			c.JSON(http.StatusBadRequest, errorResponse(s.Message()))
		case codes.AlreadyExists:
			c.JSON(http.StatusConflict, errorResponse(s.Message()))
		default:
			c.JSON(http.StatusInternalServerError, errorResponse("Service error: "+s.Message()))
		}
	} else {
		c.JSON(http.StatusInternalServerError, errorResponse("Unknown service error"))
	}
	c.Abort()
	return true
}

func paramID(c *gin.Context, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid "+label))
		return 0, false
	}
	return id, true
}
