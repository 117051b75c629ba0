package browser

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// readScript extracts the selected aircraft panel of the globe page
const readScript = `(() => {
  const get = (sel) => {
    const el = document.querySelector(sel);
    return el && el.textContent ? el.textContent.trim() : "";
  };
  return {
    hex: get("#selected_icao"),
    callsign: get("#selected_callsign"),
    reg: get("#selected_registration"),
    type: get("#selected_icaotype"),
    gs: get("#selected_speed1"),
    alt: get("#selected_altitude1"),
    pos: get("#selected_position"),
    vr: get("#selected_vert_rate"),
    hdg: get("#selected_track1"),
    lastSeen: get("#selected_seen_pos") || get("#selected_seen"),
  };
})()`

// ChromeOptions configures the Chromium process
type ChromeOptions struct {
	ExecPath  string
	Headless  bool
	NoSandbox bool
	UserAgent string
}

// ChromeLauncher starts Chromium through the DevTools protocol
type ChromeLauncher struct {
	opts ChromeOptions
}

func NewChromeLauncher(opts ChromeOptions) *ChromeLauncher {
	return &ChromeLauncher{opts: opts}
}

func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !l.opts.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if l.opts.NoSandbox {
		opts = append(opts, chromedp.NoSandbox, chromedp.Flag("disable-setuid-sandbox", true))
	}
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	if l.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.opts.UserAgent))
	}

	// the browser outlives the launch call, so it is not derived from ctx
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := firstRun(ctx, browserCtx, browserCancel); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: start chromium: %v", errors.ErrSession, err)
	}

	s := &chromeSession{
		id:            uuid.NewString(),
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		disconnected:  make(chan struct{}),
		closing:       make(chan struct{}),
	}
	go s.watch()
	nuts.L.Infof("[Browser] Started session %s", s.id)
	return s, nil
}

type chromeSession struct {
	id            string
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	disconnected  chan struct{}
	closing       chan struct{}
	closeOnce     sync.Once
}

func (s *chromeSession) ID() string {
	return s.id
}

func (s *chromeSession) Disconnected() <-chan struct{} {
	return s.disconnected
}

// watch turns a lost connection into a disconnect notification unless the
// session is being closed on purpose.
func (s *chromeSession) watch() {
	var lost <-chan struct{}
	if c := chromedp.FromContext(s.browserCtx); c != nil && c.Browser != nil {
		lost = c.Browser.LostConnection
	}
	select {
	case <-lost:
	case <-s.browserCtx.Done():
	case <-s.closing:
		return
	}
	select {
	case <-s.closing:
		return
	default:
	}
	nuts.L.Warnf("[Browser] Session %s lost its browser connection", s.id)
	close(s.disconnected)
}

func (s *chromeSession) NewPage(ctx context.Context) (Page, error) {
	pageCtx, pageCancel := chromedp.NewContext(s.browserCtx)
	if err := firstRun(ctx, pageCtx, pageCancel); err != nil {
		pageCancel()
		return nil, classify("open page", err)
	}
	return &chromePage{ctx: pageCtx, cancel: pageCancel}, nil
}

func (s *chromeSession) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closing)
		tctx, cancel := context.WithCancel(s.browserCtx)
		stop := context.AfterFunc(ctx, cancel)
		defer stop()
		defer cancel()
		err = chromedp.Cancel(tctx)
		s.browserCancel()
		s.allocCancel()
	})
	if err != nil {
		return fmt.Errorf("%w: close browser: %v", errors.ErrSession, err)
	}
	return nil
}

func (s *chromeSession) Kill() error {
	s.closeOnce.Do(func() { close(s.closing) })
	c := chromedp.FromContext(s.browserCtx)
	defer s.allocCancel()
	defer s.browserCancel()
	if c == nil || c.Browser == nil || c.Browser.Process() == nil {
		return nil
	}
	if err := c.Browser.Process().Kill(); err != nil {
		return fmt.Errorf("%w: kill browser process: %v", errors.ErrSession, err)
	}
	nuts.L.Warnf("[Browser] Killed browser process of session %s", s.id)
	return nil
}

type chromePage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	timeout time.Duration
}

func (p *chromePage) SetDefaultTimeout(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = d
}

func (p *chromePage) defaultTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeout
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	if err := runBounded(ctx, p.ctx, p.defaultTimeout(), chromedp.Navigate(url)); err != nil {
		return classify("navigate", err)
	}
	return nil
}

type pageReading struct {
	Hex      string `json:"hex"`
	Callsign string `json:"callsign"`
	Reg      string `json:"reg"`
	Type     string `json:"type"`
	Speed    string `json:"gs"`
	Altitude string `json:"alt"`
	Position string `json:"pos"`
	VertRate string `json:"vr"`
	Track    string `json:"hdg"`
	LastSeen string `json:"lastSeen"`
}

func (p *chromePage) ReadCurrentReading(ctx context.Context) (*models.RawReading, error) {
	var out pageReading
	if err := runBounded(ctx, p.ctx, p.defaultTimeout(), chromedp.Evaluate(readScript, &out)); err != nil {
		return nil, classify("read reading", err)
	}
	return &models.RawReading{
		Time:         time.Now().UTC(),
		Hex:          out.Hex,
		Callsign:     out.Callsign,
		Registration: out.Reg,
		Type:         out.Type,
		Speed:        out.Speed,
		Altitude:     out.Altitude,
		Position:     out.Position,
		VerticalRate: out.VertRate,
		Track:        out.Track,
		LastSeen:     out.LastSeen,
	}, nil
}

func (p *chromePage) Close(ctx context.Context) error {
	tctx, cancel := context.WithCancel(p.ctx)
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	defer cancel()
	err := chromedp.Cancel(tctx)
	p.cancel()
	if err != nil && !stderrors.Is(err, context.Canceled) {
		return classify("close page", err)
	}
	return nil
}

// firstRun performs the initial Run on a fresh chromedp context, which
// allocates the browser or tab. It must use target itself because chromedp
// binds the allocation to that context, so the caller is honoured by
// cancelling target instead.
func firstRun(caller, target context.Context, cancelTarget context.CancelFunc) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(target) }()
	select {
	case err := <-done:
		return err
	case <-caller.Done():
		cancelTarget()
		return caller.Err()
	}
}

// runBounded runs actions on the chromedp context target while honouring
// the cancellation of caller and an optional timeout.
func runBounded(caller, target context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithCancel(target)
	defer cancel()
	if timeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, timeout)
		defer tcancel()
	}
	stop := context.AfterFunc(caller, cancel)
	defer stop()

	err := chromedp.Run(ctx, actions...)
	if err != nil && caller.Err() != nil {
		return caller.Err()
	}
	return err
}

func classify(op string, err error) error {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %v", errors.ErrTimeout, op, err)
	case stderrors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%w: %s: %v", errors.ErrProtocol, op, err)
	}
}
