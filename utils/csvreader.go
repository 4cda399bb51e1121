package utils

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"
)

// ParseCSV reads every record. Excel in Spanish locales saves with ';'
// so the delimiter is picked from the first line.
func ParseCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	line := string(first)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	reader := csv.NewReader(br)
	if strings.Count(line, ";") > strings.Count(line, ",") {
		reader.Comma = ';'
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return records, nil
}
