package api

import "net/http"

const mediaTypeV3 = "application/vnd.github.v3+json"

// headerTransport stamps the headers every gateway request carries. GETs are
// marked no-cache so vote counts and states always come from the server.
type headerTransport struct {
	base http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Accept", mediaTypeV3)
	r.Header.Set("Content-Type", "application/json")
	if r.Method == http.MethodGet {
		r.Header.Set("Cache-Control", "no-cache")
		r.Header.Set("Pragma", "no-cache")
	}

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}
