package export_test

import (
	"bytes"
	"testing"

	"syntra-ledger/internal/export"
)

func TestCSVRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := export.CSVRenderer{}
	err := r.Render(&buf, []string{"id", "note"}, [][]string{
		{"1", "plain"},
		{"2", "has,comma"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	want := "id,note\n1,plain\n2,\"has,comma\"\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
	if r.Extension() != ".csv" {
		t.Errorf("unexpected extension %q", r.Extension())
	}
}
