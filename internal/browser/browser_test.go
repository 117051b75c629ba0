package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	ferrors "github.com/itsatony/flightwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	err := classify("read", context.DeadlineExceeded)
	assert.True(t, ferrors.Is(err, ferrors.ErrTimeout))
	assert.True(t, ferrors.IsBrowsingFailure(err))

	err = classify("read", errors.New("websocket: close 1006"))
	assert.True(t, ferrors.Is(err, ferrors.ErrProtocol))

	err = classify("read", context.Canceled)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, ferrors.IsBrowsingFailure(err))
}

func TestFakeSessionLifecycle(t *testing.T) {
	l := NewFakeLauncher(nil)
	s, err := l.Launch(context.Background())
	require.NoError(t, err)

	p, err := s.NewPage(context.Background())
	require.NoError(t, err)
	p.SetDefaultTimeout(time.Second)
	require.NoError(t, p.Navigate(context.Background(), "https://example.com/?icao=abc123"))

	fs := l.Sessions()[0]
	fp := fs.Pages()[0]
	assert.Equal(t, []string{"https://example.com/?icao=abc123"}, fp.Navigations())
	assert.Equal(t, time.Second, fp.Timeout())

	fs.Drop()
	select {
	case <-s.Disconnected():
	default:
		t.Fatal("expected disconnect notification")
	}

	require.NoError(t, s.Kill())
	_, err = s.NewPage(context.Background())
	assert.True(t, ferrors.Is(err, ferrors.ErrSession))
}
