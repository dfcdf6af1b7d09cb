package taskstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// writeToDisk atomically replaces the store file: write to a .tmp sibling,
// then rename over the target, so a crash mid-write never leaves a
// truncated file behind.
func writeToDisk(path string, tasks map[string]*types.Task) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create task store dir: %w", err)
	}

	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal task store: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write task store tmp file: %w", err)
	}
	return os.Rename(tmp, path)
}

// loadFromDisk reads and parses the store file. A missing file is not an
// error — it means a fresh store.
func loadFromDisk(path string) (map[string]*types.Task, error) {
	tasks := make(map[string]*types.Task)
	if path == "" {
		return tasks, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tasks, nil
		}
		return nil, fmt.Errorf("read task store: %w", err)
	}

	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("unmarshal task store: %w", err)
	}
	return tasks, nil
}
