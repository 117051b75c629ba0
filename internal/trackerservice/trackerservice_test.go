package trackerservice

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/itsatony/flightwatch/internal/browser"
	"github.com/itsatony/flightwatch/internal/config"
	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	"github.com/itsatony/flightwatch/internal/places"
	"github.com/itsatony/flightwatch/internal/repository/files"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptyArchive struct{}

func (emptyArchive) Fetch(ctx context.Context, hex string, day time.Time) (int, []byte, error) {
	return http.StatusNotFound, nil, nil
}

type fixture struct {
	svc       *TrackerService
	live      *config.Live
	launcher  *browser.FakeLauncher
	snapshots *files.SnapshotRepo
	logs      *files.ReadingLogRepo
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Storage.DataDir = t.TempDir()
	cfg.History.Enabled = false
	cfg.Tracking.ScrapeInterval = 10 * time.Millisecond
	cfg.Tracking.ReadTimeout = 200 * time.Millisecond
	cfg.Tracking.NavigateTimeout = 200 * time.Millisecond
	cfg.Tracking.SessionCloseTimeout = 50 * time.Millisecond
	return cfg
}

func newFixture(t *testing.T, cfg *config.Config, seed func(f *fixture)) *fixture {
	t.Helper()
	fc := files.FileConfig{BasePath: cfg.Storage.DataDir, LogCap: cfg.Storage.LogCap}
	snapshots, err := files.NewSnapshotRepository(fc)
	require.NoError(t, err)
	logs, err := files.NewReadingLogRepository(fc)
	require.NoError(t, err)
	traces, err := files.NewTraceRepository(fc)
	require.NoError(t, err)

	f := &fixture{
		live:      config.NewLive(cfg),
		launcher:  browser.NewFakeLauncher(nil),
		snapshots: snapshots,
		logs:      logs,
	}
	if seed != nil {
		seed(f)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc, err := New(ctx, f.live, Dependencies{
		Snapshots:  snapshots,
		ReadingLog: logs,
		Traces:     traces,
		Launcher:   f.launcher,
		Archive:    emptyArchive{},
	})
	require.NoError(t, err)
	f.svc = svc
	t.Cleanup(svc.Stop)
	return f
}

func event(hex string, lat, lon float64) *models.Event {
	return &models.Event{
		Type:  models.EventLanding,
		Time:  time.Now().UTC(),
		Hex:   hex,
		Lat:   models.Float(lat),
		Lon:   models.Float(lon),
		Place: models.UnknownPlace(time.Now().UTC()),
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(context.Background(), config.NewLive(testConfig(t)), Dependencies{})
	assert.Error(t, err)
}

func TestNewRestoresState(t *testing.T) {
	cfg := testConfig(t)
	f := newFixture(t, cfg, func(f *fixture) {
		require.NoError(t, f.snapshots.SaveTarget(&models.Target{Hex: "abc123"}))
		require.NoError(t, f.snapshots.SaveLatest(&models.Reading{Hex: "abc123", Time: time.Now().UTC()}))
		ev := event("abc123", 47, 8)
		ev.ID = 5
		require.NoError(t, f.snapshots.SaveEvents([]*models.Event{ev}))
	})

	assert.Equal(t, "abc123", f.svc.Target().Hex)
	require.NotNil(t, f.svc.Latest())
	assert.Equal(t, "abc123", f.svc.Latest().Hex)

	stored, err := f.svc.Events.Append(event("abc123", 47, 8))
	require.NoError(t, err)
	assert.Equal(t, int64(6), stored.ID)
}

func TestDefaultTarget(t *testing.T) {
	f := newFixture(t, testConfig(t), nil)
	assert.Equal(t, "3e0fe9", f.svc.Target().Hex)
}

func TestSetTarget(t *testing.T) {
	f := newFixture(t, testConfig(t), nil)

	target, err := f.svc.SetTarget(context.Background(), " ABC123 ")
	require.NoError(t, err)
	assert.Equal(t, "abc123", target.Hex)
	assert.Equal(t, "abc123", f.svc.Target().Hex)

	saved, err := f.snapshots.LoadTarget()
	require.NoError(t, err)
	assert.Equal(t, "abc123", saved.Hex)

	_, err = f.svc.SetTarget(context.Background(), "not-a-hex")
	assert.True(t, errors.IsValidation(err))
}

func TestPlaceEditsReattributeEvents(t *testing.T) {
	f := newFixture(t, testConfig(t), nil)
	ctx := context.Background()

	_, err := f.svc.Events.Append(event("3e0fe9", 47.0, 8.0))
	require.NoError(t, err)
	_, err = f.svc.Events.Append(event("3e0fe9", 10.0, 10.0))
	require.NoError(t, err)

	entry, err := f.svc.CreatePlace(ctx, places.EntryInput{
		Name: "Home field", Category: "airfield", Lat: models.Float(47.0), Lon: models.Float(8.0),
	})
	require.NoError(t, err)

	events, err := f.svc.QueryEvents(models.EventQuery{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Home field", events[0].Place.Name)
	assert.Equal(t, models.PlaceSourceUser, events[0].Place.Source)
	assert.True(t, events[1].Place.IsUnknown())

	_, err = f.svc.UpdatePlace(ctx, entry.ID, places.EntryInput{
		Name: "Home strip", Category: "airfield", Lat: models.Float(47.0), Lon: models.Float(8.0),
	})
	require.NoError(t, err)
	events, _ = f.svc.QueryEvents(models.EventQuery{})
	assert.Equal(t, "Home strip", events[0].Place.Name)

	require.NoError(t, f.svc.DeletePlace(ctx, entry.ID))
	events, _ = f.svc.QueryEvents(models.EventQuery{})
	assert.True(t, events[0].Place.IsUnknown())
}

func TestRadiusChangeReattributes(t *testing.T) {
	cfg := testConfig(t)
	f := newFixture(t, cfg, nil)
	ctx := context.Background()

	// about 1 km north of the place
	_, err := f.svc.Events.Append(event("3e0fe9", 47.009, 8.0))
	require.NoError(t, err)
	_, err = f.svc.CreatePlace(ctx, places.EntryInput{
		Name: "Home field", Lat: models.Float(47.0), Lon: models.Float(8.0),
	})
	require.NoError(t, err)
	events, _ := f.svc.QueryEvents(models.EventQuery{})
	require.Equal(t, "Home field", events[0].Place.Name)

	next := *cfg
	next.Places.MatchRadiusM = 500
	require.NoError(t, f.live.Replace(&next))

	events, _ = f.svc.QueryEvents(models.EventQuery{})
	assert.True(t, events[0].Place.IsUnknown())
}

func TestDeleteVehicle(t *testing.T) {
	f := newFixture(t, testConfig(t), nil)
	ctx := context.Background()

	_, err := f.svc.Events.Append(event("abc123", 47, 8))
	require.NoError(t, err)
	require.NoError(t, f.logs.Append(&models.Reading{Hex: "abc123", Time: time.Now().UTC()}))

	report, err := f.svc.DeleteVehicle(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, 1, report.EventsRemoved)

	readings, err := f.svc.QueryLog(models.LogQuery{Hex: "abc123"})
	require.NoError(t, err)
	assert.Empty(t, readings)
	assert.Equal(t, 0, f.svc.Events.Len())

	assert.Equal(t, int64(1), f.svc.Metrics().Counters["vehicles_deleted"])
}

func TestQueryValidation(t *testing.T) {
	f := newFixture(t, testConfig(t), nil)

	_, err := f.svc.QueryLog(models.LogQuery{Hex: "../x"})
	assert.True(t, errors.IsValidation(err))
	_, err = f.svc.QueryEvents(models.EventQuery{Type: "crash"})
	assert.True(t, errors.IsValidation(err))
	_, err = f.svc.HistoryDay("3e0fe9", "yesterday")
	assert.True(t, errors.IsValidation(err))
	_, err = f.svc.TriggerBackfill("3e0fe9")
	assert.Error(t, err)
}

func TestStartScrapesIntoLatestAndLog(t *testing.T) {
	f := newFixture(t, testConfig(t), nil)
	f.launcher.Configure(func(l *browser.FakeLauncher) {
		l.Read = func(ctx context.Context) (*models.RawReading, error) {
			return &models.RawReading{
				Time:     time.Now().UTC(),
				Hex:      "3e0fe9",
				Speed:    "140",
				Altitude: "2500",
				Position: "47.0, 8.0",
				LastSeen: "1s",
			}, nil
		}
	})

	require.NoError(t, f.svc.Start(context.Background()))
	require.Eventually(t, func() bool {
		latest := f.svc.Latest()
		return latest != nil && latest.Hex == "3e0fe9"
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		readings, err := f.svc.QueryLog(models.LogQuery{Hex: "3e0fe9"})
		return err == nil && len(readings) > 0
	}, 2*time.Second, 5*time.Millisecond)

	st := f.svc.Status()
	assert.True(t, st.Running)
	require.NotNil(t, st.Vehicle)
	assert.Equal(t, models.StatusOnline, st.Vehicle.Status)

	h := f.svc.Health(context.Background())
	assert.Equal(t, "3e0fe9", h.Target)
	assert.Equal(t, "ok", h.Status)
}
