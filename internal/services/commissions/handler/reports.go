package handler

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"syntra-ledger/internal/database/models"
)

// Read-only projections over transfer commissions.

type ReportFilter struct {
	StartDate  string
	EndDate    string
	Status     string
	EmployeeID int64
}

type StatusTotals struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type EmployeeTotals struct {
	EmployeeID   int64           `json:"employee_id"`
	EmployeeName string          `json:"employee_name"`
	Count        int             `json:"count"`
	Amount       decimal.Decimal `json:"amount"`
}

type CommissionSummary struct {
	StartDate   string                  `json:"start_date,omitempty"`
	EndDate     string                  `json:"end_date,omitempty"`
	TotalCount  int                     `json:"total_count"`
	TotalAmount decimal.Decimal         `json:"total_amount"`
	ByStatus    map[string]StatusTotals `json:"by_status"`
	ByEmployee  []EmployeeTotals        `json:"by_employee"`
}

var ExportHeader = []string{
	"commission_id", "transfer_id", "document_number", "transfer_date", "customer_id",
	"employee_id", "employee_name", "transfer_type", "amount", "status", "created_at",
}

func (c *CommissionHandler) filteredCommissions(ctx context.Context, f ReportFilter) ([]models.TransferCommission, error) {
	start, end, err := parseDateRange(f.StartDate, f.EndDate)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	query := c.db.WithContext(ctx).Model(&models.TransferCommission{})
	if start != nil {
		query = query.Where("created_at >= ?", *start)
	}
	if end != nil {
		query = query.Where("created_at < ?", *end)
	}
	if s := strings.TrimSpace(f.Status); s != "" {
		st := models.TransferCommissionStatus(strings.ToUpper(s))
		if st.Step() < 0 {
			return nil, status.Errorf(codes.InvalidArgument, "Invalid status %q", f.Status)
		}
		query = query.Where("status = ?", st)
	}
	if f.EmployeeID > 0 {
		query = query.Where("employee_id = ?", f.EmployeeID)
	}

	var rows []models.TransferCommission
	if err := query.Order("created_at asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to query transfer commissions: %v", err)
	}
	return rows, nil
}

func (c *CommissionHandler) namesFor(ctx context.Context, rows []models.TransferCommission) (map[int64]string, error) {
	seen := map[int64]struct{}{}
	var ids []int64
	for _, r := range rows {
		if _, ok := seen[r.EmployeeID]; !ok {
			seen[r.EmployeeID] = struct{}{}
			ids = append(ids, r.EmployeeID)
		}
	}
	return c.directory.EmployeeNames(ctx, ids)
}

func (c *CommissionHandler) Summary(ctx context.Context, startDate, endDate string) (*CommissionSummary, error) {
	rows, err := c.filteredCommissions(ctx, ReportFilter{StartDate: startDate, EndDate: endDate})
	if err != nil {
		return nil, err
	}
	names, err := c.namesFor(ctx, rows)
	if err != nil {
		return nil, err
	}

	summary := &CommissionSummary{
		StartDate:   startDate,
		EndDate:     endDate,
		TotalAmount: decimal.Zero,
		ByStatus: map[string]StatusTotals{
			string(models.TransferCommissionPending):  {Amount: decimal.Zero},
			string(models.TransferCommissionApproved): {Amount: decimal.Zero},
			string(models.TransferCommissionPaid):     {Amount: decimal.Zero},
		},
		ByEmployee: []EmployeeTotals{},
	}

	perEmployee := map[int64]*EmployeeTotals{}
	for _, r := range rows {
		summary.TotalCount++
		summary.TotalAmount = summary.TotalAmount.Add(r.Amount)

		st := summary.ByStatus[string(r.Status)]
		st.Count++
		st.Amount = st.Amount.Add(r.Amount)
		summary.ByStatus[string(r.Status)] = st

		et, ok := perEmployee[r.EmployeeID]
		if !ok {
			et = &EmployeeTotals{EmployeeID: r.EmployeeID, EmployeeName: names[r.EmployeeID], Amount: decimal.Zero}
			perEmployee[r.EmployeeID] = et
		}
		et.Count++
		et.Amount = et.Amount.Add(r.Amount)
	}

	for _, et := range perEmployee {
		summary.ByEmployee = append(summary.ByEmployee, *et)
	}
	sort.Slice(summary.ByEmployee, func(i, j int) bool {
		a, b := summary.ByEmployee[i], summary.ByEmployee[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.EmployeeID < b.EmployeeID
	})
	return summary, nil
}

func formatTime(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}

// ExportRows returns the rows for the tabular export in ExportHeader order.
// Transfers deleted after their commission was created are still listed.
func (c *CommissionHandler) ExportRows(ctx context.Context, f ReportFilter) ([][]string, error) {
	rows, err := c.filteredCommissions(ctx, f)
	if err != nil {
		return nil, err
	}
	names, err := c.namesFor(ctx, rows)
	if err != nil {
		return nil, err
	}

	transferIDs := make([]int64, 0, len(rows))
	for _, r := range rows {
		transferIDs = append(transferIDs, r.TransferID)
	}
	transfers := map[int64]models.Transaction{}
	if len(transferIDs) > 0 {
		var trxs []models.Transaction
		err := c.db.WithContext(ctx).Unscoped().
			Select("id", "document_number", "transfer_date", "customer_id").
			Where("id IN ?", transferIDs).Find(&trxs).Error
		if err != nil {
			return nil, status.Errorf(codes.Internal, "Failed to load transfers: %v", err)
		}
		for _, t := range trxs {
			transfers[t.ID] = t
		}
	}

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		trx := transfers[r.TransferID]
		customer := ""
		if trx.ID != 0 {
			customer = strconv.FormatInt(trx.CustomerID, 10)
		}
		out = append(out, []string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.TransferID, 10),
			trx.DocumentNumber,
			formatTime(trx.TransferDate, dateLayout),
			customer,
			strconv.FormatInt(r.EmployeeID, 10),
			names[r.EmployeeID],
			r.TransferType,
			r.Amount.StringFixed(2),
			string(r.Status),
			formatTime(r.CreatedAt, time.RFC3339),
		})
	}
	return out, nil
}
