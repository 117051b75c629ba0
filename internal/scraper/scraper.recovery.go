package scraper

import (
	"context"
	"time"

	"github.com/itsatony/flightwatch/internal/browser"
	"github.com/itsatony/flightwatch/internal/errors"
	nuts "github.com/vaudience/go-nuts"
)

// RebuildPage closes the current page and opens a fresh one on the target.
// A failed rebuild escalates to a session restart.
func (d *Driver) RebuildPage(ctx context.Context) error {
	if !d.recovering.CompareAndSwap(false, true) {
		return ErrRecoveryInProgress
	}
	defer d.recovering.Store(false)

	err := d.queue.Do(ctx, "rebuild-page", d.rebuildPage)
	if err == nil {
		d.record(func(r Recorder) { r.PageRebuilt() })
		nuts.L.Infof("[Recovery] Page rebuilt")
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	nuts.L.Warnf("[Recovery] Page rebuild failed, restarting session: %v", err)
	return d.restart(ctx)
}

// RestartSession replaces the whole browsing session
func (d *Driver) RestartSession(ctx context.Context) error {
	if !d.recovering.CompareAndSwap(false, true) {
		return ErrRecoveryInProgress
	}
	defer d.recovering.Store(false)
	return d.restart(ctx)
}

func (d *Driver) restart(ctx context.Context) error {
	err := d.queue.Do(ctx, "restart-session", d.restartSession)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		delay := d.settings().RestartRetryDelay
		d.mu.Lock()
		d.nextRestartAt = time.Now().UTC().Add(delay)
		d.mu.Unlock()
		nuts.L.Errorf("[Recovery] Session restart failed, retrying in %s: %v", delay, err)
		return err
	}
	d.mu.Lock()
	d.nextRestartAt = time.Time{}
	d.mu.Unlock()
	d.record(func(r Recorder) { r.SessionRestarted() })
	return nil
}

func (d *Driver) rebuildPage(ctx context.Context) error {
	s := d.settings()
	d.mu.Lock()
	session, page := d.session, d.page
	d.page = nil
	d.mu.Unlock()

	if session == nil {
		return errors.New("no session to rebuild the page on")
	}
	if page != nil {
		if err := runErrWithTimeout(ctx, s.SessionCloseTimeout, "close page", page.Close); err != nil {
			nuts.L.Warnf("[Recovery] Closing old page failed: %v", err)
		}
	}

	fresh, err := d.openPage(ctx, session)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.page = fresh
	d.mu.Unlock()
	return nil
}

func (d *Driver) restartSession(ctx context.Context) error {
	s := d.settings()
	if session, page := d.detach(); session != nil {
		d.closeSession(ctx, session, page)
	}

	session, err := runWithTimeout(ctx, s.NavigateTimeout, "launch browser", d.opts.Launcher.Launch, func(late browser.Session) {
		d.closeSession(context.Background(), late, nil)
	})
	if err != nil {
		return err
	}
	page, err := d.openPage(ctx, session)
	if err != nil {
		d.closeSession(ctx, session, nil)
		return err
	}

	d.mu.Lock()
	d.session = session
	d.page = page
	d.generation++
	gen := d.generation
	loopCtx := d.loopCtx
	d.mu.Unlock()

	if loopCtx != nil {
		go d.watchDisconnect(loopCtx, session, gen)
	}
	nuts.L.Infof("[Recovery] Session %s ready on %s", session.ID(), d.targetURL())
	return nil
}

// openPage creates a page with the default timeout applied and navigates it to the target
func (d *Driver) openPage(ctx context.Context, session browser.Session) (browser.Page, error) {
	s := d.settings()
	page, err := RunWithTimeout(ctx, s.NavigateTimeout, "open page", session.NewPage)
	if err != nil {
		return nil, err
	}
	if s.PageTimeout > 0 {
		page.SetDefaultTimeout(s.PageTimeout)
	}
	if err := d.navigate(ctx, page); err != nil {
		if cerr := runErrWithTimeout(ctx, s.SessionCloseTimeout, "close page", page.Close); cerr != nil {
			nuts.L.Warnf("[Recovery] Closing unusable page failed: %v", cerr)
		}
		return nil, err
	}
	return page, nil
}

// closeSession closes gracefully within the close timeout and kills the
// browser process when that does not work.
func (d *Driver) closeSession(ctx context.Context, session browser.Session, page browser.Page) {
	s := d.settings()
	if page != nil {
		if err := runErrWithTimeout(ctx, s.SessionCloseTimeout, "close page", page.Close); err != nil {
			nuts.L.Warnf("[Recovery] Closing page failed: %v", err)
		}
	}
	err := runErrWithTimeout(ctx, s.SessionCloseTimeout, "close session", session.Close)
	if err == nil {
		return
	}
	nuts.L.Warnf("[Recovery] Closing session %s failed, killing it: %v", session.ID(), err)
	if kerr := session.Kill(); kerr != nil {
		nuts.L.Errorf("[Recovery] Killing session %s failed: %v", session.ID(), kerr)
	}
}

// detach removes the current session and page from the driver
func (d *Driver) detach() (browser.Session, browser.Page) {
	d.mu.Lock()
	defer d.mu.Unlock()
	session, page := d.session, d.page
	d.session, d.page = nil, nil
	d.generation++
	return session, page
}

func (d *Driver) watchDisconnect(ctx context.Context, session browser.Session, gen int) {
	select {
	case <-ctx.Done():
		return
	case <-session.Disconnected():
	}

	nuts.L.Warnf("[Recovery] Session %s disconnected, restarting", session.ID())
	for ctx.Err() == nil {
		d.mu.Lock()
		current := d.generation == gen
		d.mu.Unlock()
		if !current {
			return
		}
		err := d.RestartSession(ctx)
		if err == nil || !errors.Is(err, ErrRecoveryInProgress) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
