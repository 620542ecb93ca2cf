// Package sheet loads spreadsheet files into an in-memory dataset. The
// engine never sees file formats; only this package does.
package sheet

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/internal/model"
)

// ErrUnsupportedFormat is returned for file extensions other than .xlsx,
// .csv and .tsv.
var ErrUnsupportedFormat = eris.New("sheet: unsupported file format")

// ErrEmpty is returned when a file has no header row.
var ErrEmpty = eris.New("sheet: no header row found")

// Options selects the worksheet for XLSX input. SheetName wins over
// SheetIndex.
type Options struct {
	SheetName  string
	SheetIndex int
}

// Load reads the spreadsheet at path.
func Load(path string, opts Options) (*model.Dataset, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open")
	}
	defer f.Close() //nolint:errcheck

	return Read(f, filepath.Base(path), opts)
}

// Read parses r, choosing the format from name's extension.
func Read(r io.Reader, name string, opts Options) (*model.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: read")
	}

	var rows [][]string
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(data, opts)
	case ".csv":
		rows, err = readCSV(bytes.NewReader(data), ',')
	case ".tsv":
		rows, err = readCSV(bytes.NewReader(data), '\t')
	default:
		return nil, eris.Wrapf(ErrUnsupportedFormat, "sheet: %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return toDataset(rows)
}

// toDataset takes the first non-blank row as the header.
func toDataset(rows [][]string) (*model.Dataset, error) {
	for i, row := range rows {
		if blank(row) {
			continue
		}
		return model.NewDataset(Header(row), rows[i+1:]), nil
	}
	return nil, ErrEmpty
}

// Header trims header cells, names empty ones "Column N" (1-based) and makes
// duplicates unique by suffixing " (2)", " (3)" and so on.
func Header(cells []string) []string {
	out := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, c := range cells {
		name := strings.Join(strings.Fields(c), " ")
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		key := strings.ToLower(name)
		seen[key]++
		if n := seen[key]; n > 1 {
			name = fmt.Sprintf("%s (%d)", name, n)
		}
		out[i] = name
	}
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
