// Package export renders admin reports as XLSX workbooks.
package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
}

// NewWorkbook builds one sheet per spec with a bold, filterable header row and column
// widths fitted to the content.
func NewWorkbook(sheets []SheetSpec) (*excelize.File, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for i, s := range sheets {
		name := sheetName(s.Title)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet: %w", err)
		}

		for c, h := range s.Header {
			if err := f.SetCellStr(name, cell(c, 0), h); err != nil {
				return nil, err
			}
		}
		for r, row := range s.Rows {
			for c, v := range row {
				if err := f.SetCellStr(name, cell(c, r+1), v); err != nil {
					return nil, err
				}
			}
		}

		if len(s.Header) == 0 {
			continue
		}
		end := colName(len(s.Header)) + "1"
		_ = f.SetCellStyle(name, "A1", end, bold)
		_ = f.AutoFilter(name, "A1:"+end, nil)
		for c, w := range columnWidths(s) {
			col := colName(c + 1)
			_ = f.SetColWidth(name, col, col, w)
		}
	}
	return f, nil
}

// Bytes renders the workbook into memory.
func Bytes(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func columnWidths(s SheetSpec) []float64 {
	widths := make([]float64, len(s.Header))
	for c, h := range s.Header {
		widths[c] = float64(visualLen(h)) + 1.5
	}
	for r := 0; r < len(s.Rows) && r < 200; r++ {
		for c, v := range s.Rows[r] {
			if c >= len(widths) {
				break
			}
			if w := float64(visualLen(v)) * 1.1; w > widths[c] {
				widths[c] = w
			}
		}
	}
	for c := range widths {
		widths[c] = min(max(widths[c], 10), 60)
	}
	return widths
}

func cell(col, row int) string {
	return fmt.Sprintf("%s%d", colName(col+1), row+1)
}

// colName maps 1 to A and 27 to AA.
func colName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}

// visualLen counts runes, tabs as four.
func visualLen(s string) int {
	n := 0
	for _, r := range s {
		if r == '\t' {
			n += 4
		} else {
			n++
		}
	}
	return n
}

var invalidSheetRe = regexp.MustCompile(`[\\/?*\[\]:]+`)

// Sheet names are at most 31 characters and may not contain \ / ? * [ ] :.
func sheetName(s string) string {
	s = strings.TrimSpace(invalidSheetRe.ReplaceAllString(s, " "))
	if s == "" {
		s = "Sheet"
	}
	if r := []rune(s); len(r) > 31 {
		s = string(r[:31])
	}
	return s
}

var invalidFileRe = regexp.MustCompile(`[\\/:*?"<>|]+`)

// Filename builds a download name like "tracon2024-programme.xlsx".
func Filename(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(p), " ")
		p = invalidFileRe.ReplaceAllString(p, "_")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, "-") + ".xlsx"
}
