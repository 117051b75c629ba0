package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
)

// ReadFunc produces the reading of a fake page
type ReadFunc func(ctx context.Context) (*models.RawReading, error)

// FakeLauncher is an in-memory Launcher for tests
type FakeLauncher struct {
	mu         sync.Mutex
	LaunchErr  error
	NewPageErr error
	// CloseHang makes Session.Close block until its context is done
	CloseHang bool
	Read      ReadFunc
	sessions  []*FakeSession
}

func NewFakeLauncher(read ReadFunc) *FakeLauncher {
	return &FakeLauncher{Read: read}
}

func (l *FakeLauncher) Launch(ctx context.Context) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.LaunchErr != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrSession, l.LaunchErr)
	}
	s := &FakeSession{
		id:           fmt.Sprintf("fake-%d", len(l.sessions)+1),
		launcher:     l,
		disconnected: make(chan struct{}),
	}
	l.sessions = append(l.sessions, s)
	return s, nil
}

// Configure changes the launcher behaviour under its lock
func (l *FakeLauncher) Configure(fn func(l *FakeLauncher)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l)
}

// Sessions returns every session launched so far
func (l *FakeLauncher) Sessions() []*FakeSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*FakeSession, len(l.sessions))
	copy(out, l.sessions)
	return out
}

func (l *FakeLauncher) settings() (ReadFunc, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Read, l.CloseHang, l.NewPageErr
}

type FakeSession struct {
	mu           sync.Mutex
	id           string
	launcher     *FakeLauncher
	pages        []*FakePage
	closed       bool
	killed       bool
	disconnected chan struct{}
	dropOnce     sync.Once
}

func (s *FakeSession) ID() string { return s.id }

func (s *FakeSession) NewPage(ctx context.Context) (Page, error) {
	_, _, pageErr := s.launcher.settings()
	if pageErr != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrProtocol, pageErr)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.killed {
		return nil, fmt.Errorf("%w: session closed", errors.ErrSession)
	}
	p := &FakePage{launcher: s.launcher}
	s.pages = append(s.pages, p)
	return p, nil
}

func (s *FakeSession) Close(ctx context.Context) error {
	_, hang, _ := s.launcher.settings()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FakeSession) Kill() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killed = true
	return nil
}

func (s *FakeSession) Disconnected() <-chan struct{} { return s.disconnected }

// Drop simulates a lost browser connection
func (s *FakeSession) Drop() {
	s.dropOnce.Do(func() { close(s.disconnected) })
}

func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *FakeSession) Killed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}

func (s *FakeSession) Pages() []*FakePage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*FakePage, len(s.pages))
	copy(out, s.pages)
	return out
}

type FakePage struct {
	mu          sync.Mutex
	launcher    *FakeLauncher
	timeout     time.Duration
	navigations []string
	closed      bool
}

func (p *FakePage) SetDefaultTimeout(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = d
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	return nil
}

func (p *FakePage) ReadCurrentReading(ctx context.Context) (*models.RawReading, error) {
	read, _, _ := p.launcher.settings()
	if read == nil {
		return &models.RawReading{Time: time.Now().UTC()}, nil
	}
	return read(ctx)
}

func (p *FakePage) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *FakePage) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.navigations))
	copy(out, p.navigations)
	return out
}

func (p *FakePage) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *FakePage) Timeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeout
}
