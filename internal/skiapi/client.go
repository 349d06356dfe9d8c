// Package skiapi is the client for the lift ride service under load.
package skiapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/skierload/internal/httpclient"
	"github.com/torosent/skierload/internal/tracing"
)

const (
	// DefaultResortID is the resort every generated ride belongs to.
	DefaultResortID = 1

	RidesPath          = "/liftrides"
	rideRoute          = RidesPath + "/{id}"
	maxBodyReadSize    = 1 << 20
	maxLoggedBodyBytes = 1024
)

// ErrMissingRideID is returned when a 201 response carries no usable ride id.
var ErrMissingRideID = errors.New("response did not include a lift ride id")

// LiftRide is one recorded use of a lift.
type LiftRide struct {
	SkierID  int `json:"skier"`
	ResortID int `json:"resort"`
	LiftID   int `json:"lift"`
	Time     int `json:"time"`
}

// HTTPError represents a response with an unexpected status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Result describes a completed call. StatusCode is 0 when no response arrived.
type Result struct {
	RideID     int
	StatusCode int
}

// Options configure a Client.
type Options struct {
	BaseURL    string
	Username   string
	Password   string
	HTTPClient *http.Client
	Tracer     trace.Tracer
	// Propagate injects W3C trace context headers into every request.
	Propagate bool
}

// Client issues lift ride writes and reads. It is safe for concurrent use.
type Client struct {
	http      *http.Client
	writes    *httpclient.RequestBuilder
	reads     *httpclient.RequestBuilder
	tracer    trace.Tracer
	propagate bool
}

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	writes, err := httpclient.NewRequestBuilder(http.MethodPost, opts.BaseURL, nil)
	if err != nil {
		return nil, err
	}
	writes.WithBasicAuth(opts.Username, opts.Password)
	reads, err := httpclient.NewRequestBuilder(http.MethodGet, opts.BaseURL, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, err
	}

	client := opts.HTTPClient
	if client == nil {
		client = httpclient.NewClient(0, 0)
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("skierload")
	}
	return &Client{
		http:      client,
		writes:    writes,
		reads:     reads,
		tracer:    tracer,
		propagate: opts.Propagate,
	}, nil
}

// CreateLiftRide posts a ride and returns the id the service assigned to it.
// Only 201 Created with an extractable id counts as success.
func (c *Client) CreateLiftRide(ctx context.Context, ride LiftRide) (Result, error) {
	ctx, span := tracing.StartRequestSpan(ctx, c.tracer, "write", http.MethodPost, RidesPath)

	body, err := httpclient.JSONBody(ride)
	if err != nil {
		span.End(0, err)
		return Result{}, err
	}
	status, payload, err := c.do(ctx, c.writes, RidesPath, body)
	res := Result{StatusCode: status}
	if err == nil && status != http.StatusCreated {
		err = newHTTPError(status, payload)
	}
	if err == nil {
		res.RideID, err = ExtractRideID(payload)
	}
	span.End(status, err, attribute.Int("skierload.skier_id", ride.SkierID))
	if err != nil {
		return res, fmt.Errorf("create lift ride: %w", err)
	}
	return res, nil
}

// GetLiftRide fetches a ride by id. Only 200 OK counts as success.
func (c *Client) GetLiftRide(ctx context.Context, id int) (Result, error) {
	ctx, span := tracing.StartRequestSpan(ctx, c.tracer, "read", http.MethodGet, rideRoute)

	status, payload, err := c.do(ctx, c.reads, RidesPath+"/"+strconv.Itoa(id), nil)
	if err == nil && status != http.StatusOK {
		err = newHTTPError(status, payload)
	}
	span.End(status, err, attribute.Int("skierload.ride_id", id))
	res := Result{RideID: id, StatusCode: status}
	if err != nil {
		return res, fmt.Errorf("get lift ride %d: %w", id, err)
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, builder *httpclient.RequestBuilder, path string, body *httpclient.Body) (int, []byte, error) {
	req, err := builder.Build(ctx, path, body)
	if err != nil {
		return 0, nil, err
	}
	if c.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	// Body read errors are non-fatal; the status already decided the outcome.
	payload, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyReadSize))
	if readErr != nil {
		payload = nil
	}
	return resp.StatusCode, payload, nil
}

func newHTTPError(status int, body []byte) *HTTPError {
	snippet := body
	if len(snippet) > maxLoggedBodyBytes {
		snippet = snippet[:maxLoggedBodyBytes]
	}
	msg := strings.TrimSpace(string(snippet))
	if m := gjson.GetBytes(snippet, "message"); m.Exists() && m.Type == gjson.String {
		msg = m.String()
	}
	return &HTTPError{StatusCode: status, Body: msg}
}

// ExtractRideID returns the liftRideId of the last ride in a create response.
// A bare {"liftRideId": N} object is accepted as well.
func ExtractRideID(body []byte) (int, error) {
	if !gjson.ValidBytes(body) {
		return 0, ErrMissingRideID
	}
	ids := gjson.GetBytes(body, "rides.#.liftRideId").Array()
	var id gjson.Result
	if len(ids) > 0 {
		id = ids[len(ids)-1]
	} else {
		id = gjson.GetBytes(body, "liftRideId")
	}
	// Ids are positive integers; anything else is not a usable key.
	if id.Type != gjson.Number || id.Int() < 1 || id.Num != float64(id.Int()) {
		return 0, ErrMissingRideID
	}
	return int(id.Int()), nil
}
