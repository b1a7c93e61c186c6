package cohort

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/htmlindex"
)

// UnspecifiedReason is recorded for exclusion entries that carry no reason.
const UnspecifiedReason = "unspecified"

// Exclusions maps a sample identifier to the reason it must be excluded.
// When the same identifier appears in multiple lists the last loaded
// reason wins.
type Exclusions map[string]string

// Contains reports whether id is excluded.
func (e Exclusions) Contains(id string) bool {
	_, ok := e[id]
	return ok
}

// LoadOptions configures exclusion list parsing.
type LoadOptions struct {
	IDColumn     string // header name of the sample ID column
	ReasonColumn string // header name of the reason column
	Sheet        int    // xlsx sheet index
	Encoding     string // text encoding for csv/tsv files ("" = utf-8)
}

func (o LoadOptions) withDefaults() LoadOptions {
	if o.IDColumn == "" {
		o.IDColumn = "SampleID"
	}
	if o.ReasonColumn == "" {
		o.ReasonColumn = "Reason"
	}
	return o
}

// LoadExclusions reads one or more exclusion lists and merges them into a
// single set. The format is chosen by file extension: .csv, .tsv and .txt
// are delimited text, .xlsx is a workbook. The first row of every source
// is a header; the configured column names are matched case-insensitively,
// falling back to the first two columns when absent.
func LoadExclusions(paths []string, opts LoadOptions) (Exclusions, error) {
	opts = opts.withDefaults()
	out := make(Exclusions)

	for _, path := range paths {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			err = loadDelimited(path, ',', opts, out)
		case ".tsv", ".txt":
			err = loadDelimited(path, '\t', opts, out)
		case ".xlsx":
			err = loadWorkbook(path, opts, out)
		default:
			err = eris.Errorf("cohort: unsupported exclusion list format %q", filepath.Ext(path))
		}
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func loadDelimited(path string, delimiter rune, opts LoadOptions, out Exclusions) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "cohort: open exclusion list %s", path)
	}
	defer f.Close()

	r, err := decodeReader(f, opts.Encoding)
	if err != nil {
		return err
	}

	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "cohort: read exclusion header %s", path)
	}
	idIdx, reasonIdx := columnIndexes(header, opts)

	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrapf(err, "cohort: read exclusion row %s", path)
		}
		addRow(out, row, idIdx, reasonIdx)
	}
}

func loadWorkbook(path string, opts LoadOptions, out Exclusions) error {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return eris.Wrapf(err, "cohort: open exclusion workbook %s", path)
	}
	if opts.Sheet >= len(f.Sheets) {
		return eris.Errorf("cohort: sheet index %d out of range (workbook %s has %d sheets)",
			opts.Sheet, path, len(f.Sheets))
	}
	sheet := f.Sheets[opts.Sheet]

	idIdx, reasonIdx := 0, 1
	for i, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if i == 0 {
			idIdx, reasonIdx = columnIndexes(cells, opts)
			continue
		}
		addRow(out, cells, idIdx, reasonIdx)
	}
	return nil
}

// columnIndexes locates the configured columns in a header row, falling
// back to positions 0 and 1 when a name is not present.
func columnIndexes(header []string, opts LoadOptions) (int, int) {
	idIdx, reasonIdx := 0, 1
	for i, cell := range header {
		name := strings.TrimSpace(cell)
		if strings.EqualFold(name, opts.IDColumn) {
			idIdx = i
		}
		if strings.EqualFold(name, opts.ReasonColumn) {
			reasonIdx = i
		}
	}
	return idIdx, reasonIdx
}

func addRow(out Exclusions, row []string, idIdx, reasonIdx int) {
	if idIdx >= len(row) {
		return
	}
	id := strings.TrimSpace(row[idIdx])
	if id == "" {
		return
	}
	reason := UnspecifiedReason
	if reasonIdx < len(row) {
		if r := strings.TrimSpace(row[reasonIdx]); r != "" {
			reason = r
		}
	}
	out[id] = reason
}

func decodeReader(r io.Reader, name string) (io.Reader, error) {
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return r, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, eris.Wrapf(err, "cohort: unsupported encoding %q", name)
	}
	return enc.NewDecoder().Reader(r), nil
}
