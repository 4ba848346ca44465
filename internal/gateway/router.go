// Package gateway wires the HTTP routes onto the ledger and commission services.
package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"syntra-ledger/internal/cache"
	"syntra-ledger/internal/export"
	"syntra-ledger/internal/gateway/handlers"
	"syntra-ledger/internal/gateway/middleware"
	commissionhandler "syntra-ledger/internal/services/commissions/handler"
	ledgerhandler "syntra-ledger/internal/services/ledger/handler"
	userhandler "syntra-ledger/internal/services/user/handler"
)

type Deps struct {
	DB          *gorm.DB
	Cache       cache.Store
	Commissions *commissionhandler.CommissionHandler
	Ledger      *ledgerhandler.LedgerHandler
	Users       *userhandler.UserHandler
	Renderer    export.Renderer

	JWTSecret      []byte
	RateLimit      string
	AllowedOrigins string
	// UploadDir is served under UploadURL when both are set and UploadURL is
	// a path. Absolute URLs point at an external host.
	UploadDir string
	UploadURL string
}

func NewRouter(deps Deps) (*gin.Engine, error) {
	r := gin.New()

	r.Use(middleware.CORS(deps.AllowedOrigins))
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	if deps.RateLimit != "" {
		limit, err := middleware.RateLimit(deps.RateLimit)
		if err != nil {
			return nil, err
		}
		r.Use(limit)
	}

	if deps.Renderer == nil {
		deps.Renderer = export.CSVRenderer{}
	}
	commissionHandler := handlers.NewCommissionsHTTPHandler(deps.Commissions)
	transferHandler := handlers.NewTransferHTTPHandler(deps.Commissions, deps.Renderer)
	ledgerHandler := handlers.NewLedgerHTTPHandler(deps.Ledger)
	employeeHandler := handlers.NewEmployeeHTTPHandler(deps.Users)

	r.GET("/health", healthCheckHandler(deps.DB, deps.Cache))
	if deps.UploadDir != "" && strings.HasPrefix(deps.UploadURL, "/") {
		r.Static(deps.UploadURL, deps.UploadDir)
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(deps.JWTSecret))
	{
		employees := protected.Group("/employees")
		{
			employees.GET("/:id", employeeHandler.GetEmployee)
			employees.POST("/validate", employeeHandler.ValidateEmployees)
		}

		ranks := protected.Group("/commission-ranks")
		{
			ranks.GET("", commissionHandler.ListRanks)
			ranks.POST("", commissionHandler.SaveRanks)
			ranks.POST("/calculate", commissionHandler.CalculateRank)
			ranks.POST("/bulk-calculate", commissionHandler.BulkCalculateRanks)
		}

		commissions := protected.Group("/commissions")
		{
			commissions.POST("/submit", commissionHandler.SubmitCommissions)
			commissions.GET("/cs-commissions", commissionHandler.ListCsCommissions)
			commissions.PATCH("/cs-commissions/:id", commissionHandler.UpdateCsCommission)
			commissions.GET("/status/:purchaseId", commissionHandler.GetPurchaseStatus)
			commissions.GET("/employee-commissions/:purchaseId", commissionHandler.GetEmployeeCommissions)
			commissions.GET("/cs-commission/:purchaseId", commissionHandler.GetCsCommission)
		}

		transferCommissions := protected.Group("/transfer-commissions")
		{
			transferCommissions.POST("", transferHandler.SaveTransferCommission)
			transferCommissions.POST("/bulk-calculate", transferHandler.BulkCalculateTransferCommissions)
			transferCommissions.GET("/summary", transferHandler.Summary)
			transferCommissions.GET("/export", transferHandler.Export)
			transferCommissions.GET("/:transferId", transferHandler.GetTransferCommission)
			transferCommissions.PUT("/:commissionId/status", transferHandler.UpdateTransferCommissionStatus)
		}

		transferTypes := protected.Group("/transfer-types")
		{
			transferTypes.POST("", transferHandler.CreateTransferType)
			transferTypes.GET("", transferHandler.ListTransferTypes)
			transferTypes.GET("/:id", transferHandler.GetTransferType)
			transferTypes.PUT("/:id", transferHandler.UpdateTransferType)
			transferTypes.DELETE("/:id", transferHandler.DeleteTransferType)
		}

		records := protected.Group("/record-money")
		{
			records.POST("", ledgerHandler.CreateRecord)
			records.GET("", ledgerHandler.ListRecords)
			records.GET("/:id", ledgerHandler.GetRecord)
			records.PUT("/:id", ledgerHandler.UpdateRecord)
			records.DELETE("/:id", ledgerHandler.DeleteRecord)
		}
	}

	return r, nil
}

func healthCheckHandler(db *gorm.DB, store cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		services := map[string]string{"database": "healthy", "cache": "healthy"}
		overall := "healthy"
		httpStatus := http.StatusOK

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			services["database"] = "unavailable"
			overall = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
		}
		if store != nil {
			if err := store.Ping(ctx); err != nil {
				services["cache"] = "unavailable"
				if overall == "healthy" {
					overall = "degraded"
				}
			}
		}

		c.JSON(httpStatus, gin.H{
			"status":    overall,
			"services":  services,
			"timestamp": time.Now(),
		})
	}
}
