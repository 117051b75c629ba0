package files

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/itsatony/flightwatch/internal/errors"
)

// TraceRepo stores raw history archive files as history/<hex>/<YYYY-MM-DD>.json
type TraceRepo struct {
	config FileConfig
}

func NewTraceRepository(config FileConfig) (*TraceRepo, error) {
	if err := createDirectoryIfNotExists(filepath.Join(config.BasePath, historyDir)); err != nil {
		return nil, err
	}
	return &TraceRepo{config: config}, nil
}

func (r *TraceRepo) dir(hex string) string {
	return filepath.Join(r.config.BasePath, historyDir, hex)
}

func (r *TraceRepo) path(hex string, day time.Time) string {
	return filepath.Join(r.dir(hex), day.UTC().Format(dayFormat)+".json")
}

func (r *TraceRepo) HasDay(hex string, day time.Time) (bool, error) {
	if err := checkHex(hex); err != nil {
		return false, err
	}
	info, err := os.Stat(r.path(hex, day))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.NewStorageError("failed to stat trace file", err)
	}
	return !info.IsDir() && info.Size() > 0, nil
}

// SaveDay writes body verbatim
func (r *TraceRepo) SaveDay(hex string, day time.Time, body []byte) error {
	if err := checkHex(hex); err != nil {
		return err
	}
	return writeFileAtomic(r.path(hex, day), body)
}

// ListDays returns the stored days of hex in ascending order
func (r *TraceRepo) ListDays(hex string) ([]time.Time, error) {
	if err := checkHex(hex); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.dir(hex))
	if os.IsNotExist(err) {
		return []time.Time{}, nil
	}
	if err != nil {
		return nil, errors.NewStorageError("failed to list trace files", err)
	}
	days := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		day, err := time.Parse(dayFormat, strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

func (r *TraceRepo) ReadDay(hex string, day time.Time) ([]byte, error) {
	if err := checkHex(hex); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path(hex, day))
	if os.IsNotExist(err) {
		return nil, errors.NewNotFoundError("trace not found", err)
	}
	if err != nil {
		return nil, errors.NewStorageError("failed to read trace file", err)
	}
	return data, nil
}

func (r *TraceRepo) DeleteVehicle(hex string) error {
	if err := checkHex(hex); err != nil {
		return err
	}
	if err := os.RemoveAll(r.dir(hex)); err != nil {
		return errors.NewStorageError("failed to delete trace files", err)
	}
	return nil
}
