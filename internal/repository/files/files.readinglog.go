package files

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

const defaultLogCap = 5000

// ReadingLogRepo stores online readings as one JSON line per reading in
// logs/<hex>.jsonl, keeping at most LogCap lines per vehicle.
type ReadingLogRepo struct {
	config FileConfig
	mu     sync.Mutex
	counts map[string]int
}

func NewReadingLogRepository(config FileConfig) (*ReadingLogRepo, error) {
	if config.LogCap <= 0 {
		config.LogCap = defaultLogCap
	}
	if err := createDirectoryIfNotExists(filepath.Join(config.BasePath, logsDir)); err != nil {
		return nil, err
	}
	return &ReadingLogRepo{config: config, counts: make(map[string]int)}, nil
}

func (r *ReadingLogRepo) path(hex string) string {
	return filepath.Join(r.config.BasePath, logsDir, hex+".jsonl")
}

// Append adds one line and trims the oldest lines beyond the cap
func (r *ReadingLogRepo) Append(reading *models.Reading) error {
	if err := checkHex(reading.Hex); err != nil {
		return err
	}
	line, err := json.Marshal(reading)
	if err != nil {
		return errors.NewInternalError("failed to encode reading", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	count, ok := r.counts[reading.Hex]
	if !ok {
		lines, err := r.readLines(reading.Hex)
		if err != nil {
			return err
		}
		count = len(lines)
	}

	f, err := os.OpenFile(r.path(reading.Hex), os.O_CREATE|os.O_APPEND|os.O_WRONLY, filePermissions)
	if err != nil {
		return errors.NewStorageError("failed to open reading log", err)
	}
	_, werr := f.Write(append(line, '\n'))
	cerr := f.Close()
	if werr != nil {
		return errors.NewStorageError("failed to append reading", werr)
	}
	if cerr != nil {
		return errors.NewStorageError("failed to append reading", cerr)
	}
	count++

	if count > r.config.LogCap {
		lines, err := r.readLines(reading.Hex)
		if err != nil {
			return err
		}
		if len(lines) > r.config.LogCap {
			lines = lines[len(lines)-r.config.LogCap:]
		}
		if err := writeFileAtomic(r.path(reading.Hex), joinLines(lines)); err != nil {
			return err
		}
		count = len(lines)
	}
	r.counts[reading.Hex] = count
	return nil
}

// Read returns the most recent readings of hex, oldest first. A limit <= 0
// returns the whole log. Malformed lines are skipped.
func (r *ReadingLogRepo) Read(hex string, limit int) ([]*models.Reading, error) {
	if err := checkHex(hex); err != nil {
		return nil, err
	}
	r.mu.Lock()
	lines, err := r.readLines(hex)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}

	out := make([]*models.Reading, 0, len(lines))
	for _, line := range lines {
		var reading models.Reading
		if err := json.Unmarshal(line, &reading); err != nil {
			nuts.L.Warnf("[ReadingLog] Skipping malformed line in %s log: %v", hex, err)
			continue
		}
		out = append(out, &reading)
	}
	return out, nil
}

// Vehicles lists the hex identifiers that have a log
func (r *ReadingLogRepo) Vehicles() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.config.BasePath, logsDir))
	if err != nil {
		return nil, errors.NewStorageError("failed to list reading logs", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		if hex := strings.TrimSuffix(name, ".jsonl"); models.ValidHex(hex) {
			out = append(out, hex)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *ReadingLogRepo) Delete(hex string) error {
	if err := checkHex(hex); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.counts, hex)
	if err := os.Remove(r.path(hex)); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageError("failed to delete reading log", err)
	}
	return nil
}

// WriteAll replaces the log of hex with readings, keeping the newest LogCap
func (r *ReadingLogRepo) WriteAll(hex string, readings []*models.Reading) (int, error) {
	if err := checkHex(hex); err != nil {
		return 0, err
	}
	if len(readings) > r.config.LogCap {
		readings = readings[len(readings)-r.config.LogCap:]
	}
	lines := make([][]byte, 0, len(readings))
	for _, reading := range readings {
		line, err := json.Marshal(reading)
		if err != nil {
			return 0, errors.NewInternalError("failed to encode reading", err)
		}
		lines = append(lines, line)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := writeFileAtomic(r.path(hex), joinLines(lines)); err != nil {
		return 0, err
	}
	r.counts[hex] = len(lines)
	return len(lines), nil
}

func (r *ReadingLogRepo) readLines(hex string) ([][]byte, error) {
	f, err := os.Open(r.path(hex))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorageError("failed to open reading log", err)
	}
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewStorageError("failed to read reading log", err)
	}
	return lines, nil
}

func joinLines(lines [][]byte) []byte {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
