package database_test

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"syntra-ledger/internal/database"
)

func TestIsDuplicateKey(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":            {nil, false},
		"gorm sentinel":  {fmt.Errorf("create: %w", gorm.ErrDuplicatedKey), true},
		"sqlite message": {errors.New("constraint failed: UNIQUE constraint failed: transactions.document_number"), true},
		"mysql message":  {errors.New("Error 1062 (23000): Duplicate entry 'TRX1' for key 'idx_doc'"), true},
		"other":          {gorm.ErrRecordNotFound, false},
	}
	for name, tc := range cases {
		if got := database.IsDuplicateKey(tc.err); got != tc.want {
			t.Errorf("%s: expected %v, got %v", name, tc.want, got)
		}
	}
}
