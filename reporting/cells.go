package reporting

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// cell returns the trimmed value at 1-based (col, row) of a GetRows grid.
func cell(rows [][]string, col, row int) string {
	if row < 1 || row > len(rows) {
		return ""
	}
	r := rows[row-1]
	if col < 1 || col > len(r) {
		return ""
	}
	return strings.TrimSpace(r[col-1])
}

// number parses a cell as a float. Blank or non numeric cells are 0.
func number(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// optionalNumber is number for cells where blank and 0 differ.
func optionalNumber(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalize folds case, accents and inner whitespace of a header.
func normalize(s string) string {
	folded, _, err := transform.String(foldAccents, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(folded)), " ")
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// sheetRows returns the rows of the named sheet, falling back to the
// first one.
func sheetRows(f *excelize.File, preferred string) (string, [][]string, error) {
	sheet := ""
	for _, s := range f.GetSheetList() {
		if preferred != "" && s == preferred {
			sheet = s
			break
		}
	}
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return "", nil, ErrNoSheets
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return sheet, nil, err
	}
	return sheet, rows, nil
}
