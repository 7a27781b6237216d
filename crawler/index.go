package crawler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/use-agent/doccrawl/models"
)

// IndexFilename is the name of the run summary written to the output root.
const IndexFilename = "index.json"

// BuildIndex scans root and lists, for every subdirectory, the Markdown
// files it directly contains. The listing reflects what is on disk, so
// files left by earlier runs are included. Failed and skipped URLs come
// from ledger.
func BuildIndex(root string, ledger *Ledger) (*models.Index, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("crawler: read output dir: %w", err)
	}

	index := &models.Index{
		Sections:    make(map[string][]string),
		FailedURLs:  ledger.Failed(),
		SkippedURLs: ledger.Skipped(),
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		files, err := markdownFiles(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, err
		}
		index.Sections[e.Name()] = files
		index.TotalFiles += len(files)
	}

	return index, nil
}

func markdownFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("crawler: read section dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".md") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// WriteIndex writes index as indented JSON to <root>/index.json.
func WriteIndex(root string, index *models.Index) (string, error) {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return "", fmt.Errorf("crawler: marshal index: %w", err)
	}

	path := filepath.Join(root, IndexFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("crawler: write index: %w", err)
	}
	return path, nil
}
