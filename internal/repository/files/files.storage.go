// FilePath: internal/repository/files/files.storage.go
package files

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
)

const (
	defaultPermissions = 0755
	filePermissions    = 0644
	dayFormat          = "2006-01-02"

	latestFile = "latest.json"
	eventsFile = "events.json"
	placesFile = "places.json"
	targetFile = "last_target.json"
	logsDir    = "logs"
	historyDir = "history"
)

// FileConfig holds configuration for the file storage
type FileConfig struct {
	BasePath string
	LogCap   int
}

func createDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, defaultPermissions); err != nil {
			return errors.NewInternalError("failed to create directory", err)
		}
	}
	return nil
}

// writeFileAtomic writes data next to path and renames it into place so
// readers never observe a partially written file.
func writeFileAtomic(path string, data []byte) error {
	if err := createDirectoryIfNotExists(filepath.Dir(path)); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.NewStorageError("failed to create temp file", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.NewStorageError("failed to write file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.NewStorageError("failed to write file", err)
	}
	if err := os.Chmod(tmp.Name(), filePermissions); err != nil {
		os.Remove(tmp.Name())
		return errors.NewStorageError("failed to write file", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.NewStorageError("failed to replace file", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.NewInternalError("failed to encode json", err)
	}
	return writeFileAtomic(path, data)
}

// readJSON decodes path into v. A missing file leaves v untouched and
// returns false.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.NewStorageError("failed to read file", err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.NewStorageError("failed to decode "+filepath.Base(path), err)
	}
	return true, nil
}

func checkHex(hex string) error {
	if !models.ValidHex(hex) {
		return errors.NewValidationError("invalid vehicle hex", nil).WithDetails(map[string]string{"hex": hex})
	}
	return nil
}
