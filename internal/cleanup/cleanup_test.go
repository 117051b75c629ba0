package cleanup

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/itsatony/flightwatch/internal/database"
	"github.com/itsatony/flightwatch/internal/eventlog"
	"github.com/itsatony/flightwatch/internal/models"
	"github.com/itsatony/flightwatch/internal/repository/files"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryEvents struct {
	mu     sync.Mutex
	events []*models.Event
}

func (m *memoryEvents) LoadEvents() ([]*models.Event, error) { return nil, nil }
func (m *memoryEvents) SaveEvents(events []*models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = events
	return nil
}

type forgetter struct {
	mu  sync.Mutex
	got []string
}

func (f *forgetter) Forget(hex string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, hex)
}

type fakeTx struct {
	committed, rolledBack bool
}

func (t *fakeTx) Commit() error   { t.committed = true; return nil }
func (t *fakeTx) Rollback() error { t.rolledBack = true; return nil }
func (t *fakeTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

type fakeMirror struct {
	tx      *fakeTx
	deleted []string
}

func (m *fakeMirror) BeginTx(ctx context.Context) (database.Transaction, error) {
	m.tx = &fakeTx{}
	return m.tx, nil
}
func (m *fakeMirror) UpsertEvent(ctx context.Context, ev *models.Event) error { return nil }
func (m *fakeMirror) DeleteEventsByHex(ctx context.Context, hex string, tx database.Transaction) error {
	m.deleted = append(m.deleted, "events:"+hex)
	return nil
}
func (m *fakeMirror) InsertReading(ctx context.Context, r *models.Reading) error { return nil }
func (m *fakeMirror) DeleteByHex(ctx context.Context, hex string, tx database.Transaction) error {
	m.deleted = append(m.deleted, "readings:"+hex)
	return nil
}

func TestDeleteVehicle(t *testing.T) {
	cfg := files.FileConfig{BasePath: t.TempDir(), LogCap: 100}
	logs, err := files.NewReadingLogRepository(cfg)
	require.NoError(t, err)
	traces, err := files.NewTraceRepository(cfg)
	require.NoError(t, err)

	events, err := eventlog.New(&memoryEvents{})
	require.NoError(t, err)
	now := time.Now().UTC()
	for _, hex := range []string{"3e0fe9", "abc123", "3e0fe9"} {
		_, err := events.Append(&models.Event{Type: models.EventTakeoff, Hex: hex, Time: now})
		require.NoError(t, err)
		require.NoError(t, logs.Append(&models.Reading{Hex: hex, Time: now}))
	}
	require.NoError(t, traces.SaveDay("3e0fe9", now, []byte(`{}`)))

	detector, backfill := &forgetter{}, &forgetter{}
	mirror := &fakeMirror{}
	svc := New(Options{
		ReadingLog:    logs,
		Traces:        traces,
		Events:        events,
		Detector:      detector,
		Backfill:      backfill,
		Tx:            mirror,
		EventMirror:   mirror,
		ReadingMirror: mirror,
	})

	notified := make(chan string, 1)
	require.NoError(t, svc.OnCleanup(EventVehicleDeleted, func(hex string) { notified <- hex }))

	report, err := svc.DeleteVehicle(context.Background(), "3e0fe9")
	require.NoError(t, err)
	assert.Equal(t, 2, report.EventsRemoved)
	assert.True(t, report.SQLMirrored)

	assert.Equal(t, 1, events.Len())
	readings, err := logs.Read("3e0fe9", 0)
	require.NoError(t, err)
	assert.Empty(t, readings)
	days, err := traces.ListDays("3e0fe9")
	require.NoError(t, err)
	assert.Empty(t, days)
	others, err := logs.Read("abc123", 0)
	require.NoError(t, err)
	assert.Len(t, others, 1)

	assert.Equal(t, []string{"3e0fe9"}, detector.got)
	assert.Equal(t, []string{"3e0fe9"}, backfill.got)
	assert.Equal(t, []string{"events:3e0fe9", "readings:3e0fe9"}, mirror.deleted)
	assert.True(t, mirror.tx.committed)

	select {
	case hex := <-notified:
		assert.Equal(t, "3e0fe9", hex)
	case <-time.After(time.Second):
		t.Fatal("vehicle.deleted was not emitted")
	}
}

func TestDeleteVehicleRejectsInvalidHex(t *testing.T) {
	svc := New(Options{})
	_, err := svc.DeleteVehicle(context.Background(), "../etc")
	assert.Error(t, err)
}

func TestOnCleanupHandlersRunBeforeDeleteReturns(t *testing.T) {
	cfg := files.FileConfig{BasePath: t.TempDir(), LogCap: 10}
	logs, err := files.NewReadingLogRepository(cfg)
	require.NoError(t, err)
	traces, err := files.NewTraceRepository(cfg)
	require.NoError(t, err)
	events, err := eventlog.New(&memoryEvents{})
	require.NoError(t, err)

	svc := New(Options{ReadingLog: logs, Traces: traces, Events: events})

	var first, second []string
	require.NoError(t, svc.OnCleanup(EventVehicleDeleted, func(hex string) { first = append(first, hex) }))
	require.NoError(t, svc.OnCleanup(EventVehicleDeleted, func(hex string) { second = append(second, hex) }))

	_, err = svc.DeleteVehicle(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, []string{"abc123"}, first)
	assert.Equal(t, []string{"abc123"}, second)
}
