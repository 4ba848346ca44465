package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"syntra-ledger/internal/services/ledger/handler"
)

var slipFields = []string{
	handler.SlipFieldTransfer,
	handler.SlipFieldCustomerDeposit,
	handler.SlipFieldExchange,
}

type LedgerHTTPHandler struct {
	ledger *handler.LedgerHandler
}

func NewLedgerHTTPHandler(ledger *handler.LedgerHandler) *LedgerHTTPHandler {
	return &LedgerHTTPHandler{
		ledger: ledger,
	}
}

type ListRecordsQuery struct {
	Page          int    `form:"page,default=1"`
	Limit         int    `form:"limit,default=20"`
	CustomerID    int64  `form:"customer_id"`
	SalespersonID int64  `form:"salesperson_id"`
	Type          string `form:"type"`
	StartDate     string `form:"start_date"`
	EndDate       string `form:"end_date"`
}

// readSubmission accepts multipart forms with up to three slip files, or a
// JSON body. The returned cleanup closes any opened files.
func readSubmission(c *gin.Context) (*handler.Submission, []handler.UploadedFile, func(), error) {
	noop := func() {}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, nil, noop, err
		}

		fields := make(map[string]string, len(form.Value))
		for k, v := range form.Value {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}

		var files []handler.UploadedFile
		cleanup := func() {
			for _, f := range files {
				if closer, ok := f.Reader.(interface{ Close() error }); ok {
					closer.Close()
				}
			}
		}
		for _, field := range slipFields {
			headers := form.File[field]
			if len(headers) == 0 {
				continue
			}
			f, err := headers[0].Open()
			if err != nil {
				cleanup()
				return nil, nil, noop, err
			}
			files = append(files, handler.UploadedFile{Field: field, Name: headers[0].Filename, Reader: f})
		}
		return handler.NormalizeSubmission(fields), files, cleanup, nil
	}

	body := map[string]interface{}{}
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, nil, noop, err
	}
	return handler.NormalizeSubmission(handler.FlattenJSON(body)), nil, noop, nil
}

func (h *LedgerHTTPHandler) CreateRecord(c *gin.Context) {
	sub, files, cleanup, err := readSubmission(c)
	defer cleanup()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	res, err := h.ledger.CreateRecord(ctx, sub, files)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, successResponse("Record created successfully", res))
}

func (h *LedgerHTTPHandler) UpdateRecord(c *gin.Context) {
	id, ok := paramID(c, "id", "record ID")
	if !ok {
		return
	}

	sub, files, cleanup, err := readSubmission(c)
	defer cleanup()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	res, err := h.ledger.UpdateRecord(ctx, id, sub, files)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Record updated successfully", res))
}

func (h *LedgerHTTPHandler) GetRecord(c *gin.Context) {
	id, ok := paramID(c, "id", "record ID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	res, err := h.ledger.GetRecord(ctx, id)
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successResponse("Record retrieved successfully", res))
}

func (h *LedgerHTTPHandler) ListRecords(c *gin.Context) {
	var query ListRecordsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	records, meta, err := h.ledger.ListRecords(ctx, handler.ListRecordsRequest{
		Page:          query.Page,
		Limit:         query.Limit,
		CustomerID:    query.CustomerID,
		SalespersonID: query.SalespersonID,
		Type:          query.Type,
		StartDate:     query.StartDate,
		EndDate:       query.EndDate,
	})
	if handleServiceError(c, err) {
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Records retrieved successfully", records, meta))
}

func (h *LedgerHTTPHandler) DeleteRecord(c *gin.Context) {
	id, ok := paramID(c, "id", "record ID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if handleServiceError(c, h.ledger.DeleteRecord(ctx, id)) {
		return
	}

	log.Printf("Record %d deleted", id)
	c.JSON(http.StatusOK, successResponse("Record deleted successfully", nil))
}
