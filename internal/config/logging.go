package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const logFilePrefix = "docuchat-"

// OpenLogFile creates a timestamped log file under dir and prunes the
// oldest files beyond keep. The caller owns the returned handle.
func OpenLogFile(dir string, keep int) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	name := logFilePrefix + time.Now().Format("2006-01-02T15-04-05") + ".log"
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	// Pruning never breaks logging, it only reports
	if err := pruneLogFiles(dir, keep); err != nil {
		fmt.Fprintf(os.Stderr, "warning: pruning old log files: %v\n", err)
	}

	return f, nil
}

// pruneLogFiles removes the oldest log files until at most keep remain.
// The timestamped names sort chronologically.
func pruneLogFiles(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for len(names) > keep {
		if err := os.Remove(filepath.Join(dir, names[0])); err != nil {
			return fmt.Errorf("remove %s: %w", names[0], err)
		}
		names = names[1:]
	}
	return nil
}
