package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrMissingSourceFile is returned when a declared table does not exist
	ErrMissingSourceFile = errors.New("source file not found")

	// ErrEmptySourceFile is returned when a table has no header row
	ErrEmptySourceFile = errors.New("source file is empty")

	// ErrMissingColumn is returned when a configured column is not in the header
	ErrMissingColumn = errors.New("column not found")
)

// LoadError ties a load failure to the file that caused it
type LoadError struct {
	Path string
	Kind error // one of the Err* sentinels, or the underlying read error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Kind)
}

func (e *LoadError) Unwrap() error {
	return e.Kind
}

// Table is a fully loaded CSV file: the header plus every data row
type Table struct {
	Path   string
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows (header excluded)
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of a header column
func (t *Table) Column(name string) (int, error) {
	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}
	return -1, &LoadError{Path: t.Path, Kind: fmt.Errorf("%w: %q", ErrMissingColumn, name)}
}

// Values returns every row's value in column i. Short rows yield "".
func (t *Table) Values(i int) []string {
	values := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		if i < len(row) {
			values[r] = row[i]
		}
	}
	return values
}

// Loader opens tables by name. Nodes and relations both use it.
type Loader interface {
	Load(name string) (*Table, error)
}

// DirLoader resolves <Dir>/<name>.csv
type DirLoader struct {
	Dir string
}

// NewDirLoader creates a loader rooted at dir
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{Dir: dir}
}

// PathFor returns the file location for a table name
func (l *DirLoader) PathFor(name string) string {
	return filepath.Join(l.Dir, name+".csv")
}

// Load reads the whole table into memory
func (l *DirLoader) Load(name string) (*Table, error) {
	path := l.PathFor(name)

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Path: path, Kind: ErrMissingSourceFile}
		}
		return nil, &LoadError{Path: path, Kind: err}
	}
	defer func() { _ = file.Close() }()

	return Read(path, file)
}

// Read parses CSV content. The first record is the header.
func Read(path string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are tolerated, missing cells read as ""

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &LoadError{Path: path, Kind: ErrEmptySourceFile}
	}
	if err != nil {
		return nil, &LoadError{Path: path, Kind: err}
	}
	header[0] = trimBOM(header[0])

	t := &Table{Path: path, Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{Path: path, Kind: err}
		}
		t.Rows = append(t.Rows, record)
	}

	return t, nil
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
