// Package sensor holds the shared snapshot of channel readings and
// drives the acquisition loop that produces it.
package sensor

import (
	"time"

	"github.com/rs/zerolog/log"
)

// NumChannels is the number of ADC channels the device exposes.
const NumChannels = 8

// Readings is one scaled snapshot of all channels.
type Readings [NumChannels]float64

// State is the single synchronization domain shared between the
// acquisition loop and HTTP handlers. The lock is a one-token channel
// so acquisition can be bounded: the snapshot paths give up after a
// configurable wait instead of stalling a request or the sampling
// cycle, while the logging flag paths wait as long as it takes because
// missing a start/stop command is worse than a delayed response.
type State struct {
	lock chan struct{}
	wait time.Duration

	readings Readings
	logging  bool
	logFile  string
}

// NewState creates the shared state. wait bounds snapshot lock
// acquisition for Publish, Read and CurrentLogFile.
func NewState(wait time.Duration) *State {
	s := &State{
		lock:    make(chan struct{}, 1),
		wait:    wait,
		logFile: "N/A",
	}
	s.lock <- struct{}{}
	return s
}

func (s *State) acquire() {
	<-s.lock
}

func (s *State) tryAcquire() bool {
	select {
	case <-s.lock:
		return true
	case <-time.After(s.wait):
		return false
	}
}

func (s *State) release() {
	s.lock <- struct{}{}
}

// Publish stores a new snapshot. If the lock cannot be taken within
// the bounded wait the snapshot is dropped; the next cycle will
// publish a fresher one anyway.
func (s *State) Publish(r Readings) {
	if !s.tryAcquire() {
		log.Debug().Msg("Snapshot busy, dropping readings")
		return
	}
	s.readings = r
	s.release()
}

// Read returns the latest snapshot, or the zero value if the lock
// could not be taken within the bounded wait. Callers get eight zeroed
// channels rather than a stalled response.
func (s *State) Read() Readings {
	if !s.tryAcquire() {
		log.Debug().Msg("Snapshot busy, returning zero readings")
		return Readings{}
	}
	r := s.readings
	s.release()
	return r
}

// SetLogging switches CSV logging on or off. Waits unbounded.
func (s *State) SetLogging(on bool) {
	s.acquire()
	s.logging = on
	s.release()
	log.Info().Bool("active", on).Msg("Logging flag changed")
}

// Logging reports whether CSV logging is active. Waits unbounded.
func (s *State) Logging() bool {
	s.acquire()
	on := s.logging
	s.release()
	return on
}

// SetCurrentLogFile records the name of the log file currently being
// written, or "N/A" when none is open.
func (s *State) SetCurrentLogFile(name string) {
	s.acquire()
	s.logFile = name
	s.release()
}

// CurrentLogFile returns the active log file name. A bounded wait
// applies; "N/A" is returned when the lock is busy.
func (s *State) CurrentLogFile() string {
	if !s.tryAcquire() {
		return "N/A"
	}
	name := s.logFile
	s.release()
	return name
}
