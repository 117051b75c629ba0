package httputil

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardClientSetsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewStandardClient(time.Second, "flightwatch-test")
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "flightwatch-test", gotUA)
}

func TestMockClientReplaysInOrder(t *testing.T) {
	mock := NewMockClient().
		AddResponse(http.StatusTooManyRequests, "").
		AddError(errors.New("connection reset")).
		AddResponse(http.StatusOK, "done")
	mock.Fallback = &MockResponse{StatusCode: http.StatusNotFound}

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/a", nil)

	resp, err := mock.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	_, err = mock.Do(req)
	assert.EqualError(t, err, "connection reset")

	resp, err = mock.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "done", string(body))

	resp, err = mock.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Equal(t, 4, mock.RequestCount())
}
