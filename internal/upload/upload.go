// Package upload reconstructs a single file from a multipart/form-data
// body delivered as raw chunks. The body is never buffered whole:
// chunks are parsed as they arrive and file data is appended to disk
// immediately, so an upload larger than memory still works.
//
// The parser is deliberately explicit about its states because the
// interesting transitions (part headers split across chunks, the
// closing boundary split across chunks, a name collision discovered
// mid-stream) all need different handling.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/sdpath"
)

// State identifies where the session is in the multipart stream.
type State int

const (
	// StateAwaitingHeaders accumulates bytes until the blank line that
	// separates part headers from file data.
	StateAwaitingHeaders State = iota

	// StateWritingData appends file bytes to disk while watching for
	// the closing boundary.
	StateWritingData

	// StateComplete means the closing boundary was seen and the file
	// is fully written and closed.
	StateComplete

	// StateConflict means the target file already exists and overwrite
	// was not requested. Remaining chunks are discarded so the client
	// connection stays usable for the response.
	StateConflict

	// StateFailed is terminal: headers were malformed or disk I/O
	// failed. Err() holds the cause.
	StateFailed
)

const (
	// maxFilenameLen bounds the part filename; longer names are
	// truncated, not rejected.
	maxFilenameLen = 128

	// maxHeaderLen bounds header accumulation so a body that never
	// sends the blank line cannot grow the session without limit.
	maxHeaderLen = 8 * 1024
)

var (
	// ErrNoFilename means the part headers carried no
	// Content-Disposition filename.
	ErrNoFilename = errors.New("upload: no filename in part headers")

	// ErrHeadersTooLong means the blank line terminating the part
	// headers never arrived within maxHeaderLen bytes.
	ErrHeadersTooLong = errors.New("upload: part headers too long")
)

var (
	headerEnd  = []byte("\r\n\r\n")
	dispToken  = []byte("Content-Disposition:")
	fnameToken = []byte(`filename="`)
)

// Session is the per-request upload state machine. It is not safe for
// concurrent use; each request owns exactly one.
type Session struct {
	root      string
	boundary  []byte
	overwrite bool

	state    State
	err      error
	filename string
	path     string
	file     *os.File
	written  int64

	header []byte
	carry  []byte
}

// New creates a session writing under root. boundary is the bare value
// from the Content-Type header; the leading dashes are added here.
func New(root, boundary string, overwrite bool) *Session {
	return &Session{
		root:      root,
		boundary:  []byte("--" + boundary),
		overwrite: overwrite,
	}
}

// State returns the current parser state.
func (s *Session) State() State { return s.state }

// Err returns the failure cause when State is StateFailed.
func (s *Session) Err() error { return s.err }

// Filename returns the part filename once headers have been parsed.
func (s *Session) Filename() string { return s.filename }

// Written returns the number of file bytes flushed to disk.
func (s *Session) Written() int64 { return s.written }

// Consume feeds one chunk of the raw request body into the machine.
// In terminal states the chunk is discarded without error so the
// caller can keep draining the body.
func (s *Session) Consume(chunk []byte) error {
	switch s.state {
	case StateAwaitingHeaders:
		return s.consumeHeaders(chunk)
	case StateWritingData:
		return s.consumeData(chunk)
	default:
		return nil
	}
}

func (s *Session) consumeHeaders(chunk []byte) error {
	s.header = append(s.header, chunk...)

	idx := bytes.Index(s.header, headerEnd)
	if idx < 0 {
		if len(s.header) > maxHeaderLen {
			return s.fail(ErrHeadersTooLong)
		}
		return nil
	}

	name, ok := partFilename(s.header[:idx])
	if !ok {
		return s.fail(ErrNoFilename)
	}
	s.filename = name
	s.path = sdpath.Build(s.root, name)

	rest := s.header[idx+len(headerEnd):]
	s.header = nil

	if _, err := os.Stat(s.path); err == nil && !s.overwrite {
		log.Warn().Str("path", s.path).Msg("Upload target exists, overwrite not requested")
		s.state = StateConflict
		return nil
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return s.fail(fmt.Errorf("open %s: %w", s.path, err))
	}
	s.file = f
	s.state = StateWritingData
	log.Info().Str("filename", name).Str("path", s.path).Msg("Receiving upload")

	return s.consumeData(rest)
}

func (s *Session) consumeData(chunk []byte) error {
	buf := append(s.carry, chunk...)
	s.carry = nil

	if idx := bytes.Index(buf, s.boundary); idx >= 0 {
		end := idx
		// The CRLF before the boundary belongs to the framing, not
		// the file. Some clients send a bare LF.
		if end >= 2 && buf[end-2] == '\r' && buf[end-1] == '\n' {
			end -= 2
		} else if end >= 1 && buf[end-1] == '\n' {
			end--
		}
		if err := s.flush(buf[:end]); err != nil {
			return err
		}
		if err := s.file.Close(); err != nil {
			s.file = nil
			return s.fail(fmt.Errorf("close %s: %w", s.path, err))
		}
		s.file = nil
		s.state = StateComplete
		log.Info().Str("filename", s.filename).Int64("bytes", s.written).Msg("Upload complete")
		return nil
	}

	// The boundary plus its preceding CRLF may straddle this chunk and
	// the next, so the last len(boundary)+3 bytes are withheld until
	// more data arrives.
	keep := len(s.boundary) + 3
	if len(buf) <= keep {
		s.carry = append(s.carry, buf...)
		return nil
	}
	s.carry = append(s.carry, buf[len(buf)-keep:]...)
	return s.flush(buf[:len(buf)-keep])
}

func (s *Session) flush(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := s.file.Write(data)
	s.written += int64(n)
	if err != nil {
		return s.fail(fmt.Errorf("write %s: %w", s.path, err))
	}
	return nil
}

// Finish is called after the body has been fully read. Reaching the
// end of the body while still writing means the closing boundary never
// arrived, which makes the upload malformed.
func (s *Session) Finish() error {
	switch s.state {
	case StateComplete, StateConflict:
		return nil
	case StateFailed:
		return s.err
	case StateAwaitingHeaders:
		return s.fail(errors.New("upload: body ended before part headers completed"))
	default:
		return s.fail(errors.New("upload: body ended before closing boundary"))
	}
}

// Abort tears the session down after a failure or client disconnect.
// A partially written file is removed so the storage root never holds
// silently truncated data.
func (s *Session) Abort() {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	if (s.state == StateWritingData || s.state == StateFailed) && s.path != "" {
		if err := os.Remove(s.path); err == nil {
			log.Warn().Str("path", s.path).Msg("Removed partial upload")
		}
	}
}

func (s *Session) fail(err error) error {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	s.state = StateFailed
	s.err = err
	return err
}

// partFilename extracts the quoted filename from a Content-Disposition
// header inside the part header block. Overlong names are truncated to
// maxFilenameLen bytes rather than rejected.
func partFilename(headers []byte) (string, bool) {
	cd := bytes.Index(headers, dispToken)
	if cd < 0 {
		return "", false
	}
	rest := headers[cd:]
	fn := bytes.Index(rest, fnameToken)
	if fn < 0 {
		return "", false
	}
	rest = rest[fn+len(fnameToken):]
	q := bytes.IndexByte(rest, '"')
	if q <= 0 {
		return "", false
	}
	name := rest[:q]
	if len(name) > maxFilenameLen {
		log.Warn().Int("len", len(name)).Msg("Filename too long, truncating")
		name = name[:maxFilenameLen]
	}
	return string(name), true
}
