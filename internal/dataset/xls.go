package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
)

type xlsReader struct{}

func (xlsReader) CanRead(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xls")
}

// Read decodes a legacy BIFF workbook. Sheets are selected by 1-based index;
// a sheet name, when given, must match one of the workbook's sheets.
func (xlsReader) Read(path string, opt ReadOptions) (*Table, error) {
	book, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	idx := opt.SheetIndex - 1
	if idx < 0 {
		idx = 0
	}
	if opt.SheetName != "" {
		idx = -1
		for i := 0; i < book.NumSheets(); i++ {
			if s := book.GetSheet(i); s != nil && strings.EqualFold(s.Name, opt.SheetName) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%s: sheet '%s' not found", filepath.Base(path), opt.SheetName)
		}
	}
	sheet := book.GetSheet(idx)
	if sheet == nil {
		return nil, fmt.Errorf("%s: sheet %d not found", filepath.Base(path), idx+1)
	}

	t := &Table{Name: filepath.Base(path)}
	for r := 0; r <= int(sheet.MaxRow); r++ {
		row := sheet.Row(r)
		if row == nil {
			continue
		}
		cells := make([]string, row.LastCol()+1)
		for c := row.FirstCol(); c <= row.LastCol(); c++ {
			cells[c] = strings.TrimSpace(row.Col(c))
		}
		if t.Header == nil {
			t.Header = cells
			continue
		}
		if isBlank(cells) {
			continue
		}
		t.Rows = append(t.Rows, padRow(cells, len(t.Header)))
	}
	return t, nil
}
