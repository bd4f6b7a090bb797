package media

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
)

// ImageDirSource reads a frame sequence stored as numbered image files
// (frame_001.jpg, frame_002.jpg, ...). Files are ordered by name.
type ImageDirSource struct {
	info   StreamInfo
	files  []string
	pos    int
	closed atomic.Bool
}

var frameExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// OpenImageDir opens dir as a frame sequence played back at fps
func OpenImageDir(dir string, fps float64) (*ImageDirSource, error) {
	if fps <= 0 {
		return nil, Unreadable(dir, fmt.Errorf("invalid frame rate %v", fps))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, Unreadable(dir, err)
	}

	var files []string
	var size int64
	for _, entry := range entries {
		if entry.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
		if fi, err := entry.Info(); err == nil {
			size += fi.Size()
		}
	}
	sort.Strings(files)

	info := StreamInfo{
		Path:       dir,
		FPS:        fps,
		FrameCount: len(files),
		Duration:   float64(len(files)) / fps,
		SizeBytes:  size,
		VideoCodec: "image2",
	}

	if len(files) > 0 {
		cfg, err := decodeConfig(files[0])
		if err != nil {
			return nil, Unreadable(dir, err)
		}
		info.Width, info.Height = cfg.Width, cfg.Height
	}

	return &ImageDirSource{info: info, files: files}, nil
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	return cfg, err
}

func (s *ImageDirSource) Info() StreamInfo { return s.info }

func (s *ImageDirSource) Seek(index int) error {
	if s.closed.Load() {
		return ErrSourceClosed
	}
	if index < 0 || index >= len(s.files) {
		return fmt.Errorf("frame %d out of range (%d frames)", index, len(s.files))
	}
	s.pos = index
	return nil
}

func (s *ImageDirSource) ReadFrame() (image.Image, error) {
	if s.closed.Load() {
		return nil, ErrSourceClosed
	}
	if s.pos >= len(s.files) {
		return nil, fmt.Errorf("frame %d out of range (%d frames)", s.pos, len(s.files))
	}
	path := s.files[s.pos]
	s.pos++

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func (s *ImageDirSource) Close() error {
	s.closed.Store(true)
	return nil
}
