package sensor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// SampleFunc reads the raw channel voltages from the acquisition
// hardware. Implementations return volts before scaling.
type SampleFunc func() (Readings, error)

// maxLogFiles bounds the log_N.csv probe so a full card cannot spin
// the sampler forever.
const maxLogFiles = 10000

// csvHeader is the first line of every log file.
var csvHeader = func() string {
	cols := make([]string, 0, NumChannels+1)
	cols = append(cols, "timestamp")
	for i := 0; i < NumChannels; i++ {
		cols = append(cols, fmt.Sprintf("adc%d", i))
	}
	return strings.Join(cols, ";") + "\n"
}()

// Sampler runs the fixed-period acquisition loop: read hardware, apply
// per-channel scale factors, publish the snapshot, and append a CSV
// row while logging is active.
type Sampler struct {
	state  *State
	sample SampleFunc
	scale  func() [NumChannels]float64
	dir    string
	period time.Duration

	file *os.File
	path string
}

// NewSampler wires the loop together. scale is queried every cycle so
// configuration changes apply without a restart; dir is where log
// files are created.
func NewSampler(state *State, sample SampleFunc, scale func() [NumChannels]float64, dir string, period time.Duration) *Sampler {
	return &Sampler{
		state:  state,
		sample: sample,
		scale:  scale,
		dir:    dir,
		period: period,
	}
}

// Run drives the loop until ctx is cancelled. Any open log file is
// closed on the way out.
func (s *Sampler) Run(ctx context.Context) {
	log.Info().Dur("period", s.period).Str("dir", s.dir).Msg("Acquisition loop started")
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeLog()
			log.Info().Msg("Acquisition loop stopped")
			return
		case <-ticker.C:
			s.cycle()
		}
	}
}

func (s *Sampler) cycle() {
	raw, err := s.sample()
	if err != nil {
		log.Warn().Err(err).Msg("Sample failed, skipping cycle")
		return
	}

	factors := s.scale()
	var scaled Readings
	for i := range raw {
		scaled[i] = raw[i] * factors[i]
	}
	s.state.Publish(scaled)

	if !s.state.Logging() {
		s.closeLog()
		return
	}
	if s.file == nil {
		if err := s.openNextLog(); err != nil {
			log.Error().Err(err).Msg("Cannot open log file, disabling logging")
			s.state.SetLogging(false)
			return
		}
	}
	if err := s.writeRow(scaled); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("Log write failed, disabling logging")
		s.closeLog()
		s.state.SetLogging(false)
	}
}

// openNextLog probes log_1.csv, log_2.csv, ... for the first unused
// name and writes the CSV header.
func (s *Sampler) openNextLog() error {
	for i := 1; i <= maxLogFiles; i++ {
		name := fmt.Sprintf("log_%d.csv", i)
		path := filepath.Join(s.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return fmt.Errorf("open %s: %w", path, err)
		}
		if _, err := f.WriteString(csvHeader); err != nil {
			f.Close()
			os.Remove(path)
			return fmt.Errorf("write header %s: %w", path, err)
		}
		s.file = f
		s.path = path
		s.state.SetCurrentLogFile(name)
		log.Info().Str("path", path).Msg("Logging to new file")
		return nil
	}
	return fmt.Errorf("no free log file name under %s", s.dir)
}

func (s *Sampler) writeRow(r Readings) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", time.Now().UnixMilli())
	for _, v := range r {
		fmt.Fprintf(&b, ";%.6f", v)
	}
	b.WriteByte('\n')
	_, err := s.file.WriteString(b.String())
	return err
}

func (s *Sampler) closeLog() {
	if s.file == nil {
		return
	}
	if err := s.file.Close(); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Error closing log file")
	}
	log.Info().Str("path", s.path).Msg("Log file closed")
	s.file = nil
	s.path = ""
	s.state.SetCurrentLogFile("N/A")
}
