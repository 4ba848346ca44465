package handler

import (
	"bytes"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"syntra-ledger/internal/database/models"
	"syntra-ledger/internal/utils"
)

// MovementInput is one side (customer deposit or exchange) of a submission.
// nil fields were not supplied.
type MovementInput struct {
	AmountRMB        *decimal.Decimal
	ExchangeRate     *decimal.Decimal
	Fee              *decimal.Decimal
	Amount           *decimal.Decimal
	Vat              *decimal.Decimal
	TransferDate     *time.Time
	ReceivingAccount *string
	TransferSlipURL  *string
	Notes            *string
	ExchangeType     *string
}

// Submission is a raw ledger submission after normalization.
type Submission struct {
	Type            *string
	Date            *time.Time
	DocumentNumber  *string
	CustomerID      *int64
	SalespersonID   *int64
	AmountRMB       *decimal.Decimal
	TransferDate    *time.Time
	TransferSlipURL *string
	Notes           *string

	CustomerDeposit *MovementInput
	Exchange        *MovementInput
}

type submissionField func(s *Submission, raw string)
type movementField func(m *MovementInput, raw string)

// Keys are compared after canonKey, so "amountRMB", "amount_rmb" and
// "AmountRmb" all map to the same field.
var submissionFields = map[string]submissionField{
	"type":            func(s *Submission, raw string) { s.Type = trimmed(raw) },
	"date":            func(s *Submission, raw string) { s.Date = parseDate(raw) },
	"documentnumber":  func(s *Submission, raw string) { s.DocumentNumber = trimmed(raw) },
	"customerid":      func(s *Submission, raw string) { s.CustomerID = parseID(raw) },
	"salespersonid":   func(s *Submission, raw string) { s.SalespersonID = parseID(raw) },
	"amountrmb":       func(s *Submission, raw string) { s.AmountRMB = parseAmount(raw) },
	"transferdate":    func(s *Submission, raw string) { s.TransferDate = parseDate(raw) },
	"transferslipurl": func(s *Submission, raw string) { s.TransferSlipURL = trimmed(raw) },
	"transferslip":    func(s *Submission, raw string) { s.TransferSlipURL = trimmed(raw) },
	"notes":           func(s *Submission, raw string) { s.Notes = &raw },
}

var movementFields = map[string]movementField{
	"amountrmb":        func(m *MovementInput, raw string) { m.AmountRMB = parseAmount(raw) },
	"exchangerate":     func(m *MovementInput, raw string) { m.ExchangeRate = parseAmount(raw) },
	"fee":              func(m *MovementInput, raw string) { m.Fee = parseAmount(raw) },
	"amount":           func(m *MovementInput, raw string) { m.Amount = parseAmount(raw) },
	"vat":              func(m *MovementInput, raw string) { m.Vat = parseOptionalAmount(raw) },
	"transferdate":     func(m *MovementInput, raw string) { m.TransferDate = parseDate(raw) },
	"receivingaccount": func(m *MovementInput, raw string) { m.ReceivingAccount = trimmed(raw) },
	"transferslipurl":  func(m *MovementInput, raw string) { m.TransferSlipURL = trimmed(raw) },
	"transferslip":     func(m *MovementInput, raw string) { m.TransferSlipURL = trimmed(raw) },
	"notes":            func(m *MovementInput, raw string) { m.Notes = &raw },
	"exchangetype":     func(m *MovementInput, raw string) { m.ExchangeType = trimmed(raw) },
}

const (
	sectionCustomerDeposit = "customerdeposit"
	sectionExchange        = "exchange"
)

func canonKey(k string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(k), "_", ""))
}

func trimmed(raw string) *string {
	v := strings.TrimSpace(raw)
	return &v
}

// parseAmount is lenient: anything unparseable becomes zero.
func parseAmount(raw string) *decimal.Decimal {
	d := utils.ParseDecimalLenient(raw)
	return &d
}

func parseOptionalAmount(raw string) *decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return parseAmount(raw)
}

func parseID(raw string) *int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 0 {
		id = 0
	}
	return &id
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return &t
		}
	}
	log.Printf("Ignoring unparseable date %q", raw)
	return nil
}

func (s *Submission) section(name string) *MovementInput {
	switch name {
	case sectionCustomerDeposit:
		if s.CustomerDeposit == nil {
			s.CustomerDeposit = &MovementInput{}
		}
		return s.CustomerDeposit
	case sectionExchange:
		if s.Exchange == nil {
			s.Exchange = &MovementInput{}
		}
		return s.Exchange
	}
	return nil
}

func isSection(name string) bool {
	return name == sectionCustomerDeposit || name == sectionExchange
}

// NormalizeSubmission turns flat form fields into a Submission. Nested
// sides may come as dotted keys ("customerDeposit.amountRMB") or as a
// JSON-encoded object under the side's name; dotted keys win when both are
// present. A side whose JSON does not parse is logged and left empty.
// Unknown keys are ignored.
func NormalizeSubmission(fields map[string]string) *Submission {
	sub := &Submission{}

	for key, raw := range fields {
		name := canonKey(key)
		if !isSection(name) || strings.TrimSpace(raw) == "" {
			continue
		}
		nested, err := decodeObject(raw)
		if err != nil {
			log.Printf("Ignoring malformed %s object: %v", key, err)
			continue
		}
		if len(nested) == 0 {
			continue
		}
		m := sub.section(name)
		for nk, nv := range nested {
			if set, ok := movementFields[canonKey(nk)]; ok {
				set(m, nv)
			}
		}
	}

	for key, raw := range fields {
		dot := strings.Index(key, ".")
		if dot <= 0 {
			continue
		}
		name := canonKey(key[:dot])
		if !isSection(name) {
			continue
		}
		if set, ok := movementFields[canonKey(key[dot+1:])]; ok {
			set(sub.section(name), raw)
		}
	}

	for key, raw := range fields {
		if strings.Contains(key, ".") {
			continue
		}
		if set, ok := submissionFields[canonKey(key)]; ok {
			set(sub, raw)
		}
	}

	return sub
}

// FlattenJSON converts a decoded JSON body into form-style fields. Nested
// objects are re-encoded so NormalizeSubmission treats them like a
// JSON-encoded form value.
func FlattenJSON(body map[string]interface{}) map[string]string {
	out := make(map[string]string, len(body))
	for k, v := range body {
		if v == nil {
			continue
		}
		out[k] = stringify(v)
	}
	return out
}

func decodeObject(raw string) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return FlattenJSON(obj), nil
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func (m *MovementInput) toMovement() models.MoneyMovement {
	var mv models.MoneyMovement
	m.applyTo(&mv)
	return mv
}

// applyTo copies the supplied fields onto mv and leaves the rest alone.
func (m *MovementInput) applyTo(mv *models.MoneyMovement) {
	if m.AmountRMB != nil {
		mv.AmountRMB = *m.AmountRMB
	}
	if m.ExchangeRate != nil {
		mv.ExchangeRate = *m.ExchangeRate
	}
	if m.Fee != nil {
		mv.Fee = *m.Fee
	}
	if m.Amount != nil {
		mv.Amount = *m.Amount
	}
	if m.Vat != nil {
		mv.Vat = decimal.NewNullDecimal(*m.Vat)
	}
	if m.TransferDate != nil {
		mv.TransferDate = m.TransferDate
	}
	if m.ReceivingAccount != nil {
		mv.ReceivingAccount = *m.ReceivingAccount
	}
	if m.TransferSlipURL != nil {
		mv.TransferSlipURL = *m.TransferSlipURL
	}
	if m.Notes != nil {
		mv.Notes = *m.Notes
	}
}
