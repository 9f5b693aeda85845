// Package excel reads workbook bytes into plain row matrices. The
// processing loop never touches the workbook format directly.
package excel

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kociii/reData/pkg/errors"
)

// Sheet is one worksheet as raw cell strings. Rows keep the workbook's
// ragged shape; short rows are not padded.
type Sheet struct {
	Name string
	Rows [][]string
}

// Decoder turns workbook content into sheets.
type Decoder interface {
	Decode(r io.Reader) ([]Sheet, error)
}

type XLSXDecoder struct{}

func NewDecoder() *XLSXDecoder { return &XLSXDecoder{} }

func (d *XLSXDecoder) Decode(r io.Reader) ([]Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidWorkbook, err)
	}
	defer f.Close()

	names := f.GetSheetList()
	sheets := make([]Sheet, 0, len(names))
	for _, name := range names {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}
	return sheets, nil
}

// DecodeBytes is a convenience wrapper over Decode.
func (d *XLSXDecoder) DecodeBytes(data []byte) ([]Sheet, error) {
	return d.Decode(bytes.NewReader(data))
}
