package watcher

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Reason describes a batch of changes for the rebuild log line
func Reason(events []ChangeEvent) string {
	var parts []string
	for _, event := range events {
		names := make([]string, 0, len(event.Paths))
		seen := make(map[string]bool)
		for _, p := range event.Paths {
			name := filepath.Base(p)
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		parts = append(parts, fmt.Sprintf("%s changed: %s", event.Type, strings.Join(names, ", ")))
	}
	if len(parts) == 0 {
		return "inputs changed"
	}
	return strings.Join(parts, "; ")
}
