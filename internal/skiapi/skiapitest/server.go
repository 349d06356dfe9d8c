// Package skiapitest provides an in-process lift ride service for tests and
// local runs.
package skiapitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Options shape the fake service's behavior.
type Options struct {
	// BasePath is the prefix the routes are mounted under, e.g. "/A3_war".
	BasePath string
	Username string
	Password string
	// FailWrites makes every POST answer 500.
	FailWrites bool
	// FailReads makes every GET by id answer 404.
	FailReads bool
	// Delay is added before every response.
	Delay time.Duration
	// LatencyLog, when set, receives one "POST <ms>" or "GET <ms>" line per request.
	LatencyLog func(method string, elapsed time.Duration)
}

type storedRide struct {
	LiftRideID int    `json:"liftRideId"`
	URL        string `json:"url"`
	SkierID    int    `json:"skier"`
	ResortID   int    `json:"resort"`
	LiftID     int    `json:"lift"`
	Time       int    `json:"time"`
}

type rideInput struct {
	SkierID  int `json:"skier"`
	ResortID int `json:"resort"`
	LiftID   int `json:"lift"`
	Time     int `json:"time"`
}

type message struct {
	Message string `json:"message"`
}

// Handler serves POST /liftrides, GET /liftrides/{id} and GET /liftrides?skier=N.
type Handler struct {
	opts   Options
	mux    *http.ServeMux
	nextID atomic.Int64
	writes atomic.Int64
	reads  atomic.Int64

	mu    sync.RWMutex
	rides map[int]storedRide
}

// NewHandler builds the fake service.
func NewHandler(opts Options) *Handler {
	base := "/" + strings.Trim(opts.BasePath, "/")
	if base == "/" {
		base = ""
	}
	h := &Handler{opts: opts, mux: http.NewServeMux(), rides: make(map[int]storedRide)}
	h.mux.HandleFunc("POST "+base+"/liftrides", h.timed("POST", h.createRide))
	h.mux.HandleFunc("GET "+base+"/liftrides", h.timed("GET", h.listRides))
	h.mux.HandleFunc("GET "+base+"/liftrides/{id}", h.timed("GET", h.getRide))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Writes is the number of POST requests received.
func (h *Handler) Writes() int64 { return h.writes.Load() }

// Reads is the number of GET-by-id requests received.
func (h *Handler) Reads() int64 { return h.reads.Load() }

// Rides is the number of stored rides.
func (h *Handler) Rides() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rides)
}

func (h *Handler) timed(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if h.opts.Delay > 0 {
			time.Sleep(h.opts.Delay)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next(w, r)
		if h.opts.LatencyLog != nil {
			h.opts.LatencyLog(method, time.Since(start))
		}
	}
}

func (h *Handler) createRide(w http.ResponseWriter, r *http.Request) {
	h.writes.Add(1)
	if h.opts.FailWrites {
		writeMessage(w, http.StatusInternalServerError, "Failed writing to server")
		return
	}
	if h.opts.Username != "" || h.opts.Password != "" {
		user, pass, ok := r.BasicAuth()
		if !ok || user != h.opts.Username || pass != h.opts.Password {
			writeMessage(w, http.StatusUnauthorized, "Could not authenticate user")
			return
		}
	}

	var in rideInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil ||
		in.SkierID < 1 || in.ResortID < 1 || in.LiftID < 1 || in.Time < 1 {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id := int(h.nextID.Add(1))
	ride := storedRide{
		LiftRideID: id,
		URL:        "/liftrides/" + strconv.Itoa(id),
		SkierID:    in.SkierID,
		ResortID:   in.ResortID,
		LiftID:     in.LiftID,
		Time:       in.Time,
	}
	h.mu.Lock()
	h.rides[id] = ride
	h.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string][]storedRide{"rides": {ride}})
}

func (h *Handler) getRide(w http.ResponseWriter, r *http.Request) {
	h.reads.Add(1)
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "URL or ID invalid format")
		return
	}
	if h.opts.FailReads {
		writeMessage(w, http.StatusNotFound, "LiftRideId not found")
		return
	}
	h.mu.RLock()
	ride, ok := h.rides[id]
	h.mu.RUnlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "LiftRideId not found")
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (h *Handler) listRides(w http.ResponseWriter, r *http.Request) {
	skier := -1
	if raw := r.URL.Query().Get("skier"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid skier ID")
			return
		}
		skier = parsed
	}

	h.mu.RLock()
	rides := make([]storedRide, 0, len(h.rides))
	for _, ride := range h.rides {
		if skier < 0 || ride.SkierID == skier {
			rides = append(rides, ride)
		}
	}
	h.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string][]storedRide{"rides": rides})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, message{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Server is a Handler listening on a loopback httptest server.
type Server struct {
	*Handler
	srv *httptest.Server
}

// NewServer starts the fake service. Call Close when done.
func NewServer(opts Options) *Server {
	h := NewHandler(opts)
	return &Server{Handler: h, srv: httptest.NewServer(h)}
}

// URL is the server root, without the base path.
func (s *Server) URL() string { return s.srv.URL }

// HostPort splits the listener address for config.Config.
func (s *Server) HostPort() (string, int) {
	addr := strings.TrimPrefix(s.srv.URL, "http://")
	host, portStr, _ := strings.Cut(addr, ":")
	port, _ := strconv.Atoi(portStr)
	return host, port
}

// Close shuts the server down.
func (s *Server) Close() { s.srv.Close() }
