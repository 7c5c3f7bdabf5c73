package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"telcodw/internal/config"
)

// LoadCSV reads one spreadsheet export into a RecordSet.
//
// Reader options:
//   - "comma":      field delimiter, default ","
//   - "trim_space": trim cell whitespace, default true
//   - "lazy_quotes": tolerate bare quotes, default false
//   - "encoding":   "utf-8" (default), "windows-1252"/"cp1252",
//     "latin1"/"iso-8859-1"; exports saved from old Excel builds
//     are frequently windows-1252
//
// The first header cell is stripped of a UTF-8 BOM if present. Column names
// are kept as-is apart from edge-whitespace trimming; alias reconciliation
// happens downstream.
func LoadCSV(path string, opt config.Options) (*RecordSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := decodeReader(f, opt.String("encoding", ""))
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.FieldsPerRecord = -1
	trim := opt.Bool("trim_space", true)

	hdr, err := cr.Read()
	if err == io.EOF {
		return &RecordSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make([]string, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		cols[i] = strings.TrimSpace(h)
	}

	rs := &RecordSet{Columns: cols}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}

		row := make([]string, len(rec))
		for i, v := range rec {
			if trim {
				v = strings.TrimSpace(v)
			}
			row[i] = v
		}
		rs.Rows = append(rs.Rows, row)
	}
}

// decodeReader wraps r with a charset decoder when the export is not UTF-8.
func decodeReader(r io.Reader, enc string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case "latin1", "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
}
