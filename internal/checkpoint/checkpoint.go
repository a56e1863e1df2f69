// Package checkpoint persists the registry's function list to a single
// versioned binary file and restores it at startup.
package checkpoint

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schedulerd/schedulerd/internal/function"
)

// version is written as a single byte ahead of the gob stream. Bump it if
// the on-disk layout ever changes in a way that breaks decoding.
const version = 1

// ErrUnsupportedVersion is returned by Load when the checkpoint file's
// version byte is not one this build knows how to decode.
var ErrUnsupportedVersion = errors.New("checkpoint: unsupported checkpoint version")

// gob only knows how to decode into an interface{} field (event.Event's
// Data) the concrete types it has seen registered. Event payloads arrive as
// encoding/json-decoded values, whose dynamic types are exactly these.
func init() {
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
	gob.Register("")
	gob.Register(float64(0))
	gob.Register(false)
}

// Save gob-encodes fns behind a version header and writes it to path. The
// write lands in a temporary file in the same directory first and is then
// os.Rename'd over path, so a reader never observes a partially-written
// checkpoint.
func Save(path string, fns []*function.Function) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("checkpoint: create directory: %w", err)
		}
	}

	var buf bytes.Buffer
	buf.WriteByte(version)
	if err := gob.NewEncoder(&buf).Encode(fns); err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".chk-*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("checkpoint: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("checkpoint: rename into place: %w", err)
	}
	return nil
}

// Load restores the function list from path. A missing file is not an
// error: it means no checkpoint has ever been written, and the caller
// should start from an empty registry. Any other read, version, or decode
// failure is returned as-is, so a corrupt checkpoint fails startup rather
// than silently discarding state.
func Load(path string) ([]*function.Function, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("checkpoint: read: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("checkpoint: %w: empty file", ErrUnsupportedVersion)
	}

	got := data[0]
	if got != version {
		return nil, fmt.Errorf("checkpoint: %w: got %d, want %d", ErrUnsupportedVersion, got, version)
	}

	var fns []*function.Function
	dec := gob.NewDecoder(bytes.NewReader(data[1:]))
	if err := dec.Decode(&fns); err != nil {
		return nil, fmt.Errorf("checkpoint: decode: %w", err)
	}
	return fns, nil
}
