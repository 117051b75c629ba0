// Package history backfills the raw daily trace files of a vehicle from the
// public trace archive.
package history

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/httputil"
)

const maxTraceSize = 64 << 20

// Archive fetches the trace of one vehicle for one UTC day. Non-200 answers
// are reported through status, not err.
type Archive interface {
	Fetch(ctx context.Context, hex string, day time.Time) (status int, body []byte, err error)
}

type HTTPArchive struct {
	client   httputil.HTTPClient
	template func() string
}

// NewHTTPArchive creates an archive client. template is read per request so
// configuration reloads apply to the next fetch.
func NewHTTPArchive(client httputil.HTTPClient, template func() string) *HTTPArchive {
	return &HTTPArchive{client: client, template: template}
}

func (a *HTTPArchive) Fetch(ctx context.Context, hex string, day time.Time) (int, []byte, error) {
	url := ExpandURL(a.template(), hex, day)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build archive request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: archive request %s: %v", errors.ErrTransient, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return resp.StatusCode, nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTraceSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: read archive body: %v", errors.ErrTransient, err)
	}
	return resp.StatusCode, body, nil
}

// ExpandURL fills the date placeholders %Y, %m and %d, {hex} and {suffix},
// the last two characters of the hex.
func ExpandURL(template, hex string, day time.Time) string {
	day = day.UTC()
	suffix := hex
	if len(suffix) > 2 {
		suffix = suffix[len(suffix)-2:]
	}
	return strings.NewReplacer(
		"%Y", day.Format("2006"),
		"%m", day.Format("01"),
		"%d", day.Format("02"),
		"{suffix}", suffix,
		"{hex}", hex,
	).Replace(template)
}
