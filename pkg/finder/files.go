package finder

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindTables lists the CSV tables directly under dir, by table name
// ("Gene.csv" -> "Gene"), sorted. Subdirectories are not searched: tables are
// located by name only.
func FindTables(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var tables []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if ext := filepath.Ext(name); ext == ".csv" {
			tables = append(tables, strings.TrimSuffix(name, ext))
		}
	}
	sort.Strings(tables)

	return tables, nil
}

// FindUndeclared returns the tables that no declared name refers to
func FindUndeclared(tables []string, declared []string) []string {
	declaredSet := make(map[string]bool, len(declared))
	for _, name := range declared {
		declaredSet[name] = true
	}

	var undeclared []string
	for _, table := range tables {
		if !declaredSet[table] {
			undeclared = append(undeclared, table)
		}
	}

	return undeclared
}
