package dataset

import (
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xi2/xz"
)

// Table is a raw rectangular table as read from disk: a header row and
// string cells. Rows are padded to the header width.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// ReadOptions controls how a table file is decoded.
type ReadOptions struct {
	// Delimiter for delimited text. If 0, chosen by extension (.tsv/.txt => tab) or sniffed.
	Delimiter rune
	// SheetName selects a spreadsheet sheet by name (XLSX only).
	SheetName string
	// SheetIndex is the 1-based sheet index used when SheetName is empty.
	SheetIndex int
}

// Reader decodes one family of table formats.
type Reader interface {
	CanRead(filename string) bool
	Read(path string, opt ReadOptions) (*Table, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// ErrUnsupported indicates a table format is not supported.
var ErrUnsupported = errors.New("unsupported table format")

// ReadTable selects a reader based on filename and returns the decoded table.
func ReadTable(path string, opt ReadOptions) (*Table, error) {
	for _, r := range registry {
		if r.CanRead(path) {
			t, err := r.Read(path, opt)
			if err != nil {
				return nil, err
			}
			if t.Name == "" {
				t.Name = filepath.Base(path)
			}
			return t, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
}

func init() {
	Register(xlsxReader{})
	Register(xlsReader{})
	Register(delimitedReader{})
}

// stripCompression removes a trailing .gz/.xz so the inner extension decides the format.
func stripCompression(name string) (inner string, codec string) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		return lower[:len(lower)-3], "gz"
	case strings.HasSuffix(lower, ".xz"):
		return lower[:len(lower)-3], "xz"
	}
	return lower, ""
}

type delimitedReader struct{}

func (delimitedReader) CanRead(filename string) bool {
	inner, _ := stripCompression(filename)
	for _, ext := range []string{".csv", ".tsv", ".txt", ".tab"} {
		if strings.HasSuffix(inner, ext) {
			return true
		}
	}
	return false
}

func (delimitedReader) Read(path string, opt ReadOptions) (*Table, error) {
	raw, err := openDecompressed(path)
	if err != nil {
		return nil, err
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path, raw)
	}
	return parseDelimited(filepath.Base(path), bytes.NewReader(raw), delim)
}

// openDecompressed reads the whole file, transparently inflating gzip or xz payloads.
func openDecompressed(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()
	var r io.Reader = f
	_, codec := stripCompression(path)
	switch codec {
	case "gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	case "xz":
		xr, err := xz.NewReader(f, 0)
		if err != nil {
			return nil, fmt.Errorf("open xz: %w", err)
		}
		r = xr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	return b, nil
}

// ParseDelimited decodes delimited text from r. Exposed for callers holding in-memory data.
func ParseDelimited(name string, r io.Reader, delim rune) (*Table, error) {
	return parseDelimited(name, r, delim)
}

func parseDelimited(name string, r io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Table{Name: name}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &Table{Name: name, Header: trimAll(header)}
	line := 1
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line+1, err)
		}
		line++
		if isBlank(rec) {
			continue
		}
		t.Rows = append(t.Rows, padRow(trimAll(rec), len(t.Header)))
	}
	return t, nil
}

// sniffDelimiter picks tab for .tsv/.txt/.tab files, otherwise counts candidates on the first line.
func sniffDelimiter(path string, data []byte) rune {
	inner, _ := stripCompression(path)
	if strings.HasSuffix(inner, ".tsv") || strings.HasSuffix(inner, ".tab") {
		return '\t'
	}
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	best, bestN := ',', 0
	for _, c := range []rune{',', '\t', ';'} {
		if n := bytes.Count(first, []byte(string(c))); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, v := range rec {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func padRow(rec []string, n int) []string {
	if len(rec) >= n {
		return rec
	}
	tmp := make([]string, n)
	copy(tmp, rec)
	return tmp
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
