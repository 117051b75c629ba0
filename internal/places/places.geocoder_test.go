package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/itsatony/flightwatch/internal/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatimReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "jsonv2", q.Get("format"))
		assert.Equal(t, "50.0333", q.Get("lat"))
		assert.Equal(t, "8.5706", q.Get("lon"))
		assert.Equal(t, "14", q.Get("zoom"))
		assert.Equal(t, "1", q.Get("addressdetails"))
		assert.Equal(t, "flightwatch-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"category":"aeroway","type":"aerodrome","name":"Flughafen Frankfurt","display_name":"Flughafen Frankfurt, Hessen","lat":"50.0333","lon":"8.5706","address":{"aeroway":"Flughafen Frankfurt","country":"Deutschland","country_code":"de"}}`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(httputil.NewStandardClient(time.Second, "flightwatch-test"), srv.URL+"/", "")
	addr, err := g.Reverse(context.Background(), 50.0333, 8.5706)
	require.NoError(t, err)
	assert.Equal(t, "aerodrome", addr.Type)
	assert.Equal(t, "Flughafen Frankfurt", addr.Fields["aeroway"])
	assert.Equal(t, "DE", addr.CountryCode)
	require.NotNil(t, addr.Lat)
	assert.Equal(t, 50.0333, *addr.Lat)
}

func TestNominatimReverseFailures(t *testing.T) {
	mock := httputil.NewMockClient().
		AddResponse(http.StatusInternalServerError, "").
		AddResponse(http.StatusOK, "not json").
		AddResponse(http.StatusOK, `{"error":"Unable to geocode"}`)
	g := NewNominatimGeocoder(mock, "https://nominatim.example", "")

	for i := 0; i < 3; i++ {
		_, err := g.Reverse(context.Background(), 1, 2)
		assert.Error(t, err)
	}
	assert.Equal(t, 3, mock.RequestCount())
}
