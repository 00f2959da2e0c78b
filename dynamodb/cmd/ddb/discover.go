package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const schemaFilename = "ddb.schema.yaml"

// Directories to skip for performance
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".ddb":         true,
	".venv":        true,
}

// DiscoverSchemas finds every ddb.schema.yaml below root, sorted by path.
// Directories starting with "_" or "." are skipped like the go tool does.
func DiscoverSchemas(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (skipDirs[name] || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == schemaFilename {
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			files = append(files, abs)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}
