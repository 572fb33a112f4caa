package fetcher

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Outcome classifies the end state of a fetch.
type Outcome int

const (
	// OK means the call succeeded and Body holds the payload.
	OK Outcome = iota
	// Rejected means the source answered with a non-retryable status.
	Rejected
	// Unavailable means every attempt was rate limited or failed in transit.
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Rejected:
		return "rejected"
	case Unavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Request fully describes one API call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Query  url.Values
}

// Get builds a GET request for endpoint with the given query parameters.
func Get(endpoint string, query url.Values) Request {
	return Request{Method: http.MethodGet, URL: endpoint, Query: query}
}

// WithBearer returns a copy of r carrying an Authorization bearer token.
func (r Request) WithBearer(token string) Request {
	h := r.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Authorization", "Bearer "+token)
	r.Header = h
	return r
}

// Endpoint returns the full URL with Query merged into any existing query string.
func (r Request) Endpoint() (string, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", fmt.Errorf("invalid request URL %q: %w", r.URL, err)
	}
	if len(r.Query) > 0 {
		q := u.Query()
		for k, vs := range r.Query {
			q.Del(k)
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Result is the outcome of one Fetch. Rejected and Unavailable results mean
// "no data" for the caller, with Err describing why.
type Result struct {
	Outcome    Outcome
	StatusCode int
	Body       []byte
	Attempts   int
	Err        error
}

// OK reports whether the fetch produced a payload.
func (r *Result) OK() bool {
	return r != nil && r.Outcome == OK
}

// Decode unmarshals the JSON payload into target.
func (r *Result) Decode(target any) error {
	if !r.OK() {
		return fmt.Errorf("no payload: fetch %s", r.Outcome)
	}
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}
