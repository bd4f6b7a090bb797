package media

import (
	"fmt"
	"image"
	"sync/atomic"
)

// SliceSource serves frames from memory. Useful for pre-decoded frames and
// synthetic streams.
type SliceSource struct {
	info     StreamInfo
	frames   []image.Image
	failures map[int]error
	pos      int
	closed   atomic.Bool
}

// NewSliceSource builds a source over frames at the given frame rate
func NewSliceSource(fps float64, frames ...image.Image) *SliceSource {
	info := StreamInfo{
		Path:       "memory",
		FPS:        fps,
		FrameCount: len(frames),
	}
	if len(frames) > 0 {
		b := frames[0].Bounds()
		info.Width, info.Height = b.Dx(), b.Dy()
	}
	if fps > 0 {
		info.Duration = float64(len(frames)) / fps
	}
	return &SliceSource{info: info, frames: frames, failures: make(map[int]error)}
}

// WithInfo replaces the reported stream metadata, e.g. to report more frames
// than are decodable
func (s *SliceSource) WithInfo(info StreamInfo) *SliceSource {
	s.info = info
	return s
}

// FailAt makes reads of index return err
func (s *SliceSource) FailAt(index int, err error) *SliceSource {
	s.failures[index] = err
	return s
}

func (s *SliceSource) Info() StreamInfo { return s.info }

func (s *SliceSource) Seek(index int) error {
	if s.closed.Load() {
		return ErrSourceClosed
	}
	if index < 0 {
		return fmt.Errorf("seek to negative index %d", index)
	}
	s.pos = index
	return nil
}

func (s *SliceSource) ReadFrame() (image.Image, error) {
	if s.closed.Load() {
		return nil, ErrSourceClosed
	}
	index := s.pos
	s.pos++
	if err, ok := s.failures[index]; ok {
		return nil, err
	}
	if index >= len(s.frames) {
		return nil, fmt.Errorf("frame %d out of range (%d frames)", index, len(s.frames))
	}
	return s.frames[index], nil
}

// Close may be called from another goroutine while a read is in flight
func (s *SliceSource) Close() error {
	s.closed.Store(true)
	return nil
}

// Closed reports whether Close has been called
func (s *SliceSource) Closed() bool {
	return s.closed.Load()
}
