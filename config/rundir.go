package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CreateRunDir creates <prefix>/run_<n>, with n one above the highest
// existing run number, and records the wall time in timestamp.txt.
func CreateRunDir(prefix string) (string, error) {
	if err := os.MkdirAll(prefix, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %s", prefix)
	}

	entries, err := os.ReadDir(prefix)
	if err != nil {
		return "", errors.Wrapf(err, "listing %s", prefix)
	}

	next := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "run_") {
			continue
		}

		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "run_"))
		if err == nil && n >= next {
			next = n + 1
		}
	}

	dir := filepath.Join(prefix, "run_"+strconv.Itoa(next))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %s", dir)
	}

	stamp := time.Now().Format(time.RFC3339) + "\n"
	err = os.WriteFile(filepath.Join(dir, "timestamp.txt"), []byte(stamp), 0o644)
	if err != nil {
		return "", errors.Wrap(err, "writing timestamp")
	}

	return dir, nil
}
