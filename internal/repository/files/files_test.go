package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewSnapshotRepository(FileConfig{BasePath: dir})
	require.NoError(t, err)

	latest, err := repo.LoadLatest()
	require.NoError(t, err)
	assert.Nil(t, latest)
	target, err := repo.LoadTarget()
	require.NoError(t, err)
	assert.Nil(t, target)
	events, err := repo.LoadEvents()
	require.NoError(t, err)
	assert.Empty(t, events)

	r := &models.Reading{Time: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), Hex: "3e0fe9", Altitude: models.Float(1200)}
	require.NoError(t, repo.SaveLatest(r))
	require.NoError(t, repo.SaveTarget(&models.Target{Hex: "3e0fe9"}))
	require.NoError(t, repo.SaveEvents([]*models.Event{{ID: 4, Type: models.EventTakeoff, Hex: "3e0fe9"}}))
	require.NoError(t, repo.SavePlaces([]*models.GazetteerEntry{{ID: "plc_x", Name: "Home"}}))

	latest, err = repo.LoadLatest()
	require.NoError(t, err)
	assert.Equal(t, r.Time, latest.Time)
	assert.Equal(t, 1200.0, *latest.Altitude)
	assert.Nil(t, latest.Lat)

	target, err = repo.LoadTarget()
	require.NoError(t, err)
	assert.Equal(t, "3e0fe9", target.Hex)

	events, err = repo.LoadEvents()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(4), events[0].ID)

	places, err := repo.LoadPlaces()
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Home", places[0].Name)

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".*"))
	assert.Empty(t, leftovers)
}

func TestSnapshotCorruptFile(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewSnapshotRepository(FileConfig{BasePath: dir})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, eventsFile), []byte("{nope"), 0644))

	_, err = repo.LoadEvents()
	assert.Error(t, err)
}

func TestReadingLogCap(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewReadingLogRepository(FileConfig{BasePath: dir, LogCap: 3})
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(&models.Reading{Time: base.Add(time.Duration(i) * time.Second), Hex: "abc123"}))
	}

	got, err := repo.Read("abc123", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, base.Add(2*time.Second), got[0].Time)
	assert.Equal(t, base.Add(4*time.Second), got[2].Time)

	got, err = repo.Read("abc123", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, base.Add(4*time.Second), got[0].Time)

	// a fresh repository picks up the existing line count
	repo2, err := NewReadingLogRepository(FileConfig{BasePath: dir, LogCap: 3})
	require.NoError(t, err)
	require.NoError(t, repo2.Append(&models.Reading{Time: base.Add(5 * time.Second), Hex: "abc123"}))
	got, err = repo2.Read("abc123", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, base.Add(3*time.Second), got[0].Time)
}

func TestReadingLogVehiclesAndDelete(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewReadingLogRepository(FileConfig{BasePath: dir})
	require.NoError(t, err)

	require.NoError(t, repo.Append(&models.Reading{Hex: "bbbbbb"}))
	require.NoError(t, repo.Append(&models.Reading{Hex: "aaaaaa"}))

	vehicles, err := repo.Vehicles()
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaaaa", "bbbbbb"}, vehicles)

	require.NoError(t, repo.Delete("aaaaaa"))
	require.NoError(t, repo.Delete("aaaaaa"))
	got, err := repo.Read("aaaaaa", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadingLogRejectsBadHex(t *testing.T) {
	repo, err := NewReadingLogRepository(FileConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	err = repo.Append(&models.Reading{Hex: "../../etc"})
	assert.True(t, errors.IsValidation(err))
	_, err = repo.Read("", 0)
	assert.Error(t, err)
}

func TestReadingLogSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewReadingLogRepository(FileConfig{BasePath: dir})
	require.NoError(t, err)
	content := "{\"hex\":\"abc123\",\"alt\":100}\nnot-json\n\n{\"hex\":\"abc123\",\"alt\":200}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, logsDir, "abc123.jsonl"), []byte(content), 0644))

	got, err := repo.Read("abc123", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 200.0, *got[1].Altitude)
}

func TestReadingLogWriteAll(t *testing.T) {
	repo, err := NewReadingLogRepository(FileConfig{BasePath: t.TempDir(), LogCap: 2})
	require.NoError(t, err)

	n, err := repo.WriteAll("abc123", []*models.Reading{{Hex: "abc123", Callsign: "A"}, {Hex: "abc123", Callsign: "B"}, {Hex: "abc123", Callsign: "C"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := repo.Read("abc123", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Callsign)
}

func TestTraceRepo(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewTraceRepository(FileConfig{BasePath: dir})
	require.NoError(t, err)

	day := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	ok, err := repo.HasDay("3e0fe9", day)
	require.NoError(t, err)
	assert.False(t, ok)

	body := []byte(`{"icao":"3e0fe9","trace":[]}`)
	require.NoError(t, repo.SaveDay("3e0fe9", day, body))
	require.NoError(t, repo.SaveDay("3e0fe9", day.AddDate(0, 0, -1), body))

	ok, err = repo.HasDay("3e0fe9", day.Add(13*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.FileExists(t, filepath.Join(dir, historyDir, "3e0fe9", "2024-02-29.json"))

	days, err := repo.ListDays("3e0fe9")
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, day.AddDate(0, 0, -1), days[0])

	got, err := repo.ReadDay("3e0fe9", day)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	_, err = repo.ReadDay("3e0fe9", day.AddDate(0, 0, 1))
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, repo.DeleteVehicle("3e0fe9"))
	days, err = repo.ListDays("3e0fe9")
	require.NoError(t, err)
	assert.Empty(t, days)
}
