package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/torosent/skierload/internal/skiapi"
)

type fakeTarget struct {
	failWrites bool
	failReads  bool
	delay      time.Duration

	nextID atomic.Int64
	writes atomic.Int64
	reads  atomic.Int64

	mu    sync.Mutex
	rides []skiapi.LiftRide
	keep  bool
}

func (f *fakeTarget) CreateLiftRide(ctx context.Context, ride skiapi.LiftRide) (skiapi.Result, error) {
	f.writes.Add(1)
	if f.keep {
		f.mu.Lock()
		f.rides = append(f.rides, ride)
		f.mu.Unlock()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failWrites {
		return skiapi.Result{StatusCode: 500}, &skiapi.HTTPError{StatusCode: 500, Body: "Failed writing to server"}
	}
	return skiapi.Result{RideID: int(f.nextID.Add(1)), StatusCode: 201}, nil
}

func (f *fakeTarget) GetLiftRide(ctx context.Context, id int) (skiapi.Result, error) {
	f.reads.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failReads {
		return skiapi.Result{RideID: id, StatusCode: 404}, errors.New("not found")
	}
	return skiapi.Result{RideID: id, StatusCode: 200}, nil
}

// stopAfter reports stopped once it has been polled n times.
type stopAfter struct {
	n     int64
	polls atomic.Int64
}

func (s *stopAfter) Stopped() bool {
	return s.polls.Add(1) > s.n
}

type neverStop struct{}

func (neverStop) Stopped() bool { return false }

type alwaysStop struct{}

func (alwaysStop) Stopped() bool { return true }
