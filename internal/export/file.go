package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"entrain/internal/descriptive"
	"entrain/internal/isc"
)

// ISCFile writes a correlation result under dir with atomic placement
// and returns the final path.
func ISCFile(dir, runID string, res isc.Result) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("isc-%s.csv", runID))
	if err := ISCFileAt(path, res); err != nil {
		return "", err
	}
	return path, nil
}

// ISCFileAt writes a correlation result to an explicit path with atomic
// placement.
func ISCFileAt(path string, res isc.Result) error {
	var buf bytes.Buffer
	if err := WriteISCCSV(&buf, res); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes(), 0o644)
}

// StatsFile writes a descriptive summary under dir with atomic
// placement and returns the final path.
func StatsFile(dir, runID string, table descriptive.Table) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("stats-%s.csv", runID))
	if err := StatsFileAt(path, table); err != nil {
		return "", err
	}
	return path, nil
}

// StatsFileAt writes a descriptive summary to an explicit path with atomic
// placement.
func StatsFileAt(path string, table descriptive.Table) error {
	var buf bytes.Buffer
	if err := WriteStatsCSV(&buf, table); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes(), 0o644)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure export directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "export-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
