package circuit

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// CoordTable maps a bus label to its drawing coordinate.
type CoordTable map[string]r2.Vec

var coordSep = regexp.MustCompile(`[,\s]+`)

// ReadCoords reads a bus coordinate file. Each row holds a bus label, x and y
// separated by commas and/or whitespace. A later row for the same bus
// replaces an earlier one.
func ReadCoords(path string) (CoordTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, configErr(path, 0, "%v", err)
	}
	defer f.Close()

	return parseCoords(path, f)
}

func parseCoords(path string, r io.Reader) (CoordTable, error) {
	table := make(CoordTable)
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		row := strings.TrimSpace(scanner.Text())
		if row == "" || strings.HasPrefix(row, "#") {
			continue
		}

		fields := coordSep.Split(row, -1)
		if len(fields) != 3 {
			return nil, configErr(path, n, "want 3 fields (bus, x, y), got %d", len(fields))
		}

		x, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, configErr(path, n, "bad x coordinate %q", fields[1])
		}
		y, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, configErr(path, n, "bad y coordinate %q", fields[2])
		}
		table[fields[0]] = r2.Vec{X: x, Y: y}
	}
	if err := scanner.Err(); err != nil {
		return nil, configErr(path, n, "%v", err)
	}
	return table, nil
}
