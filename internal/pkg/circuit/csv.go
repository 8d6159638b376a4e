package circuit

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadCSV reads a line list of from,to,r1[,name] rows. The first row is
// treated as a header when its third column is named r1.
func ReadCSV(path string) (*SliceSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, configErr(path, 0, "%v", err)
	}
	defer f.Close()

	lines, err := parseCSV(path, f)
	if err != nil {
		return nil, err
	}
	return NewSliceSource(lines), nil
}

func parseCSV(path string, r io.Reader) ([]LineRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var lines []LineRecord
	row := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, configErr(path, row, "%v", err)
		}
		if len(fields) < 3 || len(fields) > 4 {
			return nil, configErr(path, row, "want 3 or 4 fields (from, to, r1[, name]), got %d", len(fields))
		}

		if row == 1 && isHeader(fields) {
			continue
		}
		r1, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, configErr(path, row, "bad resistance %q", fields[2])
		}

		line := LineRecord{
			From: strings.TrimSpace(fields[0]),
			To:   strings.TrimSpace(fields[1]),
			R1:   r1,
		}
		if len(fields) == 4 {
			line.Name = strings.TrimSpace(fields[3])
		}
		if line.From == "" || line.To == "" {
			return nil, configErr(path, row, "empty bus label")
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func isHeader(fields []string) bool {
	return strings.EqualFold(strings.TrimSpace(fields[2]), "r1")
}
