package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapsisso/pkg/expr"
)

// LoadDat reads a whitespace-delimited file whose first non-blank line holds
// the column names, as in SISSO's train.dat and desc_DDDd_pPPP.dat files.
func LoadDat(path string) (*expr.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cols []*column
	rows := 0
	line := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if cols == nil {
			cols = make([]*column, len(fields))
			for i, name := range fields {
				cols[i] = &column{name: name, numeric: true}
			}
			continue
		}
		if len(fields) != len(cols) {
			return nil, fmt.Errorf("%s:%d: expected %d fields, found %d", path, line, len(cols), len(fields))
		}
		for i, c := range cols {
			if !c.numeric {
				continue
			}
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				c.numeric = false
				continue
			}
			c.values = append(c.values, v)
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if cols == nil {
		return nil, fmt.Errorf("%s: no header line", path)
	}
	return buildFrame(cols, rows)
}
