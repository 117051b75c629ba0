// Package browser defines the browsing session the scraper drives and its
// headless Chromium implementation.
package browser

import (
	"context"
	"time"

	"github.com/itsatony/flightwatch/internal/models"
)

// Launcher starts browsing sessions
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is one running browser
type Session interface {
	ID() string
	NewPage(ctx context.Context) (Page, error)
	// Close shuts the browser down gracefully
	Close(ctx context.Context) error
	// Kill terminates the browser process
	Kill() error
	// Disconnected is closed when the connection to the browser is lost
	// without Close having been called.
	Disconnected() <-chan struct{}
}

// Page is one tab of a session
type Page interface {
	SetDefaultTimeout(d time.Duration)
	Navigate(ctx context.Context, url string) error
	ReadCurrentReading(ctx context.Context) (*models.RawReading, error)
	Close(ctx context.Context) error
}
