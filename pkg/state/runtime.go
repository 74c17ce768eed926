package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RuntimeInfo records what this process is running with. Written once at
// startup so operators can see the effective backend without reading logs.
type RuntimeInfo struct {
	Version   string `json:"version"`
	Backend   string `json:"backend"`
	Engine    string `json:"engine"`
	StartedAt string `json:"started_at"`
	PID       int    `json:"pid"`
}

// WriteRuntimeInfo writes the runtime record under <dataPath>/state. The
// write goes through a temp file so a crash never leaves a torn record.
func WriteRuntimeInfo(dataPath string, info RuntimeInfo) error {
	if dataPath == "" {
		return nil
	}
	info.StartedAt = time.Now().UTC().Format(time.RFC3339)
	info.PID = os.Getpid()

	dir := filepath.Join(dataPath, "state")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("cannot create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".runtime-*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create runtime temp file: %w", err)
	}
	name := tmp.Name()
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("cannot encode runtime record: %w", err)
	}
	tmp.Close()
	return os.Rename(name, filepath.Join(dir, "runtime.json"))
}
