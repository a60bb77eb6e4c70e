package normalizeurl

import "net/url"

type parsedURL struct {
	scheme   string
	hostname string
	port     string
	path     string
	query    string
	fragment string
}

// parseURL wraps net/url.Parse, pulling the pieces Normalize needs into a
// small unexported struct so the rest of this file never touches
// *url.URL's ambient methods (User, Opaque, ...) that don't apply here.
func parseURL(raw string) (*parsedURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &parsedURL{
		scheme:   u.Scheme,
		hostname: u.Hostname(),
		port:     u.Port(),
		path:     u.Path,
		query:    u.RawQuery,
		fragment: u.Fragment,
	}, nil
}
