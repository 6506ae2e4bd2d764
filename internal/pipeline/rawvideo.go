package pipeline

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"os"
	"time"
)

// Raw video container: a fixed header followed by uncompressed RGBA frames.
//
//	offset 0   magic "UPSCRAW1" (8 bytes)
//	offset 8   width  uint32 LE
//	offset 12  height uint32 LE
//	offset 16  total duration int64 LE, nanoseconds (patched on finalize)
//	offset 24  frames: ts int64, dur int64, then width*height*4 RGBA bytes
const (
	rawMagic      = "UPSCRAW1"
	rawHeaderSize = 24
	rawFrameMeta  = 16
)

// RawFileSource decodes the raw container from a file.
type RawFileSource struct {
	f      *os.File
	width  int
	height int
	total  time.Duration
	valid  bool
}

func OpenRawFile(path string) (*RawFileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s := &RawFileSource{f: f}
	s.valid = s.readHeader() == nil
	return s, nil
}

// NewRawReaderSource decodes the raw container from an in-memory buffer,
// used by the HTTP process endpoint.
func NewRawReaderSource(data []byte) *RawFileSource {
	f, err := os.CreateTemp("", "upscaled-input-*.raw")
	if err != nil {
		return &RawFileSource{}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return &RawFileSource{}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		os.Remove(f.Name())
		return &RawFileSource{}
	}
	os.Remove(f.Name())
	s := &RawFileSource{f: f}
	s.valid = s.readHeader() == nil
	return s
}

func (s *RawFileSource) readHeader() error {
	var hdr [rawHeaderSize]byte
	if _, err := io.ReadFull(s.f, hdr[:]); err != nil {
		return err
	}
	if !bytes.Equal(hdr[:8], []byte(rawMagic)) {
		return fmt.Errorf("raw video: bad magic")
	}
	s.width = int(binary.LittleEndian.Uint32(hdr[8:12]))
	s.height = int(binary.LittleEndian.Uint32(hdr[12:16]))
	s.total = time.Duration(int64(binary.LittleEndian.Uint64(hdr[16:24])))
	if s.width <= 0 || s.height <= 0 {
		return fmt.Errorf("raw video: invalid dimensions %dx%d", s.width, s.height)
	}
	return nil
}

func (s *RawFileSource) CanDecode() bool { return s.valid }

// Probe reports the source dimensions and frame count derived from the file
// size, for output-size estimation before the run starts.
func (s *RawFileSource) Probe() (width, height, frames int) {
	if !s.valid {
		return 0, 0, 0
	}
	fi, err := s.f.Stat()
	if err != nil {
		return s.width, s.height, 0
	}
	frameBytes := int64(s.width)*int64(s.height)*4 + rawFrameMeta
	return s.width, s.height, int((fi.Size() - rawHeaderSize) / frameBytes)
}

func (s *RawFileSource) TotalDuration() time.Duration { return s.total }

func (s *RawFileSource) Next() (*Sample, error) {
	var meta [rawFrameMeta]byte
	if _, err := io.ReadFull(s.f, meta[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	ts := time.Duration(int64(binary.LittleEndian.Uint64(meta[0:8])))
	dur := time.Duration(int64(binary.LittleEndian.Uint64(meta[8:16])))

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	if _, err := io.ReadFull(s.f, img.Pix); err != nil {
		return nil, fmt.Errorf("raw video: truncated frame: %w", err)
	}
	return &Sample{Timestamp: ts, Duration: dur, Image: img}, nil
}

func (s *RawFileSource) Close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}

// RawFileSink streams the raw container to a file, patching the duration
// field on finalize. It never holds more than one frame in memory.
type RawFileSink struct {
	f     *os.File
	total time.Duration
}

func CreateRawFile(path string) (*RawFileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &RawFileSink{f: f}, nil
}

func (s *RawFileSink) Start(width, height int) error {
	var hdr [rawHeaderSize]byte
	copy(hdr[:8], rawMagic)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(width))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(height))
	_, err := s.f.Write(hdr[:])
	return err
}

func (s *RawFileSink) Add(ts, dur time.Duration, img *image.RGBA) error {
	var meta [rawFrameMeta]byte
	binary.LittleEndian.PutUint64(meta[0:8], uint64(ts.Nanoseconds()))
	binary.LittleEndian.PutUint64(meta[8:16], uint64(dur.Nanoseconds()))
	if _, err := s.f.Write(meta[:]); err != nil {
		return err
	}
	if _, err := s.f.Write(img.Pix); err != nil {
		return err
	}
	if end := ts + dur; end > s.total {
		s.total = end
	}
	return nil
}

func (s *RawFileSink) Finalize() ([]byte, error) {
	var d [8]byte
	binary.LittleEndian.PutUint64(d[:], uint64(s.total.Nanoseconds()))
	if _, err := s.f.WriteAt(d[:], 16); err != nil {
		s.f.Close()
		return nil, err
	}
	return nil, s.f.Close()
}

// RawBufferSink assembles the raw container in memory and returns the bytes
// from Finalize.
type RawBufferSink struct {
	buf   bytes.Buffer
	total time.Duration
}

func (s *RawBufferSink) Start(width, height int) error {
	var hdr [rawHeaderSize]byte
	copy(hdr[:8], rawMagic)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(width))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(height))
	_, err := s.buf.Write(hdr[:])
	return err
}

func (s *RawBufferSink) Add(ts, dur time.Duration, img *image.RGBA) error {
	var meta [rawFrameMeta]byte
	binary.LittleEndian.PutUint64(meta[0:8], uint64(ts.Nanoseconds()))
	binary.LittleEndian.PutUint64(meta[8:16], uint64(dur.Nanoseconds()))
	if _, err := s.buf.Write(meta[:]); err != nil {
		return err
	}
	if _, err := s.buf.Write(img.Pix); err != nil {
		return err
	}
	if end := ts + dur; end > s.total {
		s.total = end
	}
	return nil
}

func (s *RawBufferSink) Finalize() ([]byte, error) {
	out := s.buf.Bytes()
	binary.LittleEndian.PutUint64(out[16:24], uint64(s.total.Nanoseconds()))
	return out, nil
}
