package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/httputil"
)

// Address is the provider-neutral result of a reverse lookup
type Address struct {
	Name        string
	Category    string
	Type        string
	DisplayName string
	Lat         *float64
	Lon         *float64
	Country     string
	CountryCode string
	Fields      map[string]string
}

// Geocoder resolves coordinates into an address
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*Address, error)
	Provider() string
}

// NominatimGeocoder queries the Nominatim /reverse endpoint
type NominatimGeocoder struct {
	client   httputil.HTTPClient
	baseURL  string
	language string
}

func NewNominatimGeocoder(client httputil.HTTPClient, baseURL, language string) *NominatimGeocoder {
	return &NominatimGeocoder{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
	}
}

func (g *NominatimGeocoder) Provider() string {
	return "nominatim"
}

type nominatimResponse struct {
	Error       string            `json:"error"`
	Category    string            `json:"category"`
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Address     map[string]string `json:"address"`
}

func (g *NominatimGeocoder) Reverse(ctx context.Context, lat, lon float64) (*Address, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("zoom", "14")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build nominatim request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if g.language != "" {
		req.Header.Set("Accept-Language", g.language)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: nominatim request: %v", errors.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: nominatim returned status %d", errors.ErrTransient, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read nominatim body: %v", errors.ErrTransient, err)
	}
	var payload nominatimResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: nominatim body: %v", errors.ErrParse, err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("nominatim: %s", payload.Error)
	}

	addr := &Address{
		Name:        payload.Name,
		Category:    payload.Category,
		Type:        payload.Type,
		DisplayName: payload.DisplayName,
		Fields:      payload.Address,
	}
	if v, err := strconv.ParseFloat(payload.Lat, 64); err == nil {
		addr.Lat = &v
	}
	if v, err := strconv.ParseFloat(payload.Lon, 64); err == nil {
		addr.Lon = &v
	}
	if payload.Address != nil {
		addr.Country = payload.Address["country"]
		addr.CountryCode = strings.ToUpper(payload.Address["country_code"])
	}
	return addr, nil
}
