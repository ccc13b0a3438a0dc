package output

import (
	"encoding/json"
	"os"
	"path/filepath"

	"helptree/internal/report"
	"helptree/internal/tree"
)

// WriteReport writes the run report as indented JSON.
func WriteReport(path string, run *report.Run) error {
	return writeJSON(path, run)
}

// WriteManifest writes the enumerated leaves, in order, as a JSON list.
func WriteManifest(path string, leaves []tree.Leaf) error {
	if leaves == nil {
		leaves = []tree.Leaf{}
	}
	return writeJSON(path, leaves)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
