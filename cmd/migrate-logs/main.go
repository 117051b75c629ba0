// Command migrate-logs converts a legacy single-file reading log
// ({"<hex>": [records]}) into the per-vehicle JSONL logs of the service.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/itsatony/flightwatch/internal/config"
	"github.com/itsatony/flightwatch/internal/models"
	"github.com/itsatony/flightwatch/internal/repository/files"
	nuts "github.com/vaudience/go-nuts"
)

// legacyCap is the number of records the legacy log kept per vehicle
const legacyCap = 5000

// LogWriter replaces the whole log of a vehicle
type LogWriter interface {
	WriteAll(hex string, readings []*models.Reading) (int, error)
}

// Summary counts what a migration did
type Summary struct {
	Vehicles map[string]int
	Skipped  []string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		nuts.L.Fatalf("[Migrate] Failed to load configuration: %v", err)
	}

	source := flag.String("source", "adsb_log.json", "legacy log file to convert")
	dataDir := flag.String("data-dir", cfg.Storage.DataDir, "data directory of the service")
	flag.Parse()

	f, err := os.Open(*source)
	if err != nil {
		nuts.L.Fatalf("[Migrate] Source %s not readable: %v", *source, err)
	}
	defer f.Close()

	logs, err := files.NewReadingLogRepository(files.FileConfig{BasePath: *dataDir, LogCap: max(cfg.Storage.LogCap, legacyCap)})
	if err != nil {
		nuts.L.Fatalf("[Migrate] Failed to open reading logs in %s: %v", *dataDir, err)
	}

	summary, err := Migrate(f, logs)
	if err != nil {
		nuts.L.Fatalf("[Migrate] %v", err)
	}

	hexes := make([]string, 0, len(summary.Vehicles))
	for hex := range summary.Vehicles {
		hexes = append(hexes, hex)
	}
	sort.Strings(hexes)
	for _, hex := range hexes {
		nuts.L.Infof("[Migrate] %s: %d records migrated", hex, summary.Vehicles[hex])
	}
	for _, key := range summary.Skipped {
		nuts.L.Warnf("[Migrate] Skipped %q", key)
	}
	nuts.L.Infof("[Migrate] Migration finished, %d vehicles written to %s", len(hexes), *dataDir)
}

// Migrate reads the legacy log from src and writes one log per vehicle.
// Keys are lower-cased, only the last records up to the legacy cap are
// kept and records without a hex get the hex of their key.
func Migrate(src io.Reader, logs LogWriter) (*Summary, error) {
	var legacy map[string]json.RawMessage
	if err := json.NewDecoder(src).Decode(&legacy); err != nil {
		return nil, fmt.Errorf("source is not a JSON object of vehicle logs: %w", err)
	}

	summary := &Summary{Vehicles: make(map[string]int)}
	for key, raw := range legacy {
		hex := strings.ToLower(strings.TrimSpace(key))
		if !models.ValidHex(hex) {
			summary.Skipped = append(summary.Skipped, key)
			continue
		}

		var records []json.RawMessage
		if err := json.Unmarshal(raw, &records); err != nil {
			summary.Skipped = append(summary.Skipped, key)
			continue
		}
		if len(records) > legacyCap {
			records = records[len(records)-legacyCap:]
		}

		readings := make([]*models.Reading, 0, len(records))
		for i, rec := range records {
			var r models.Reading
			if err := json.Unmarshal(rec, &r); err != nil {
				nuts.L.Warnf("[Migrate] Skipping record %d of %s: %v", i, hex, err)
				continue
			}
			if r.Hex == "" {
				r.Hex = hex
			} else {
				r.Hex = strings.ToLower(r.Hex)
			}
			readings = append(readings, &r)
		}

		n, err := logs.WriteAll(hex, readings)
		if err != nil {
			return summary, fmt.Errorf("failed to write log of %s: %w", hex, err)
		}
		summary.Vehicles[hex] = n
	}
	sort.Strings(summary.Skipped)
	return summary, nil
}
