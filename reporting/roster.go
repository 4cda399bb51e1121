package reporting

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"uamvh.cloud/escolar/escolar/v1/common"
	"uamvh.cloud/escolar/utils"
)

const headerSearchRows = 10

// rosterColumns maps each required column to the header spellings it
// accepts, already normalized.
var rosterColumns = []struct {
	name     string
	variants []string
}{
	{"MATRICULA", []string{"MATRICULA", "MATRICULA ALUMNO", "NO. MATRICULA", "REGISTRATION NUMBER"}},
	{"NOMBRE", []string{"NOMBRE", "NOMBRE COMPLETO", "ALUMNO", "NOMBRE DEL ALUMNO"}},
}

// MissingColumnsError reports required roster columns that no header
// row contained.
type MissingColumnsError struct {
	File    string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: faltan columnas requeridas: %s", e.File, strings.Join(e.Columns, ", "))
}

type RosterEntry struct {
	Row                int    `json:"row"`
	RegistrationNumber string `json:"registrationNumber"`
	FullName           string `json:"fullName"`
}

func (e RosterEntry) Student() common.StudentDTO {
	return common.StudentDTO{FullName: e.FullName, RegistrationNumber: e.RegistrationNumber}
}

type Roster struct {
	File     string        `json:"file"`
	Entries  []RosterEntry `json:"entries"`
	Warnings []string      `json:"warnings,omitempty"`
}

// ParseRoster reads a student list from an .xlsx or .csv file. The
// header row is searched in the first rows of the sheet.
func ParseRoster(r io.Reader, name string) (*Roster, error) {
	rows, err := readTable(r, name)
	if err != nil {
		return nil, err
	}

	headerRow, cols, missing := findHeader(rows)
	if len(missing) > 0 {
		return nil, &MissingColumnsError{File: name, Columns: missing}
	}

	roster := &Roster{File: name, Entries: []RosterEntry{}}
	seen := map[string]int{}
	for i := headerRow + 1; i < len(rows); i++ {
		line := i + 1
		reg := cell(rows, cols[0]+1, line)
		full := cell(rows, cols[1]+1, line)
		if reg == "" && full == "" {
			continue
		}
		if reg == "" || full == "" {
			roster.Warnings = append(roster.Warnings, fmt.Sprintf("Fila %d: matrícula o nombre vacío", line))
			continue
		}
		if prev, ok := seen[reg]; ok {
			roster.Warnings = append(roster.Warnings, fmt.Sprintf("Fila %d: matrícula %s duplicada (fila %d)", line, reg, prev))
			continue
		}
		seen[reg] = line
		roster.Entries = append(roster.Entries, RosterEntry{Row: line, RegistrationNumber: reg, FullName: full})
	}
	return roster, nil
}

func readTable(r io.Reader, name string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		// spreadsheets exported on Windows start with a BOM
		data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
		rows, err := utils.ParseCSV(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return rows, nil
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer f.Close()
		_, rows, err := sheetRows(f, "")
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return rows, nil
	}
	return nil, fmt.Errorf("%s: formato no soportado, se esperaba .xlsx o .csv", name)
}

// findHeader picks the row matching the most required columns and
// returns its index, the 0-based column of each required column and the
// names of the ones it lacks.
func findHeader(rows [][]string) (int, []int, []string) {
	best, bestCols, bestHits := 0, make([]int, len(rosterColumns)), -1
	for i := 0; i < len(rows) && i < headerSearchRows; i++ {
		cols := make([]int, len(rosterColumns))
		hits := 0
		for k, rc := range rosterColumns {
			cols[k] = -1
			for j, v := range rows[i] {
				if contains(rc.variants, normalize(v)) {
					cols[k] = j
					hits++
					break
				}
			}
		}
		if hits > bestHits {
			best, bestCols, bestHits = i, cols, hits
		}
	}

	var missing []string
	for k, rc := range rosterColumns {
		if bestHits < 0 || bestCols[k] < 0 {
			missing = append(missing, rc.name)
		}
	}
	return best, bestCols, missing
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
