// Package export renders tabular report rows.
package export

import (
	"encoding/csv"
	"io"
)

type Renderer interface {
	ContentType() string
	Extension() string
	Render(w io.Writer, header []string, rows [][]string) error
}

type CSVRenderer struct{}

func (CSVRenderer) ContentType() string { return "text/csv; charset=utf-8" }

func (CSVRenderer) Extension() string { return ".csv" }

func (CSVRenderer) Render(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
