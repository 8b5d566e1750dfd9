package trace

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/Versifine/rotation/internal/rotation"
)

// Event is one line of the event log.
type Event struct {
	Tick       uint64          `json:"tick"`
	CapturedAt time.Time       `json:"captured_at"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
}

// Frame is one decoded tick sample.
type Frame struct {
	Tick       uint64
	CapturedAt time.Time
	Sample     rotation.TickResult
}

// Bundle is a fully decoded trace directory.
type Bundle struct {
	Manifest Manifest
	Events   []Event
	Frames   []Frame
}

// Open loads the manifest, events and frames of the bundle at path, which
// may be the directory or its manifest.json.
func Open(path string) (Bundle, error) {
	manifestPath := path
	info, err := os.Stat(path)
	if err != nil {
		return Bundle{}, err
	}
	if info.IsDir() {
		manifestPath = filepath.Join(path, manifestFile)
	}
	dir := filepath.Dir(manifestPath)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return Bundle{}, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Bundle{}, fmt.Errorf("decode manifest: %w", err)
	}
	if manifest.Version != ManifestVersion {
		return Bundle{}, fmt.Errorf("unsupported manifest version %d", manifest.Version)
	}

	events, err := ReadEvents(filepath.Join(dir, manifest.EventsPath))
	if err != nil {
		return Bundle{}, err
	}
	frames, err := ReadFrames(filepath.Join(dir, manifest.FramesPath))
	if err != nil {
		return Bundle{}, err
	}
	return Bundle{Manifest: manifest, Events: events, Frames: frames}, nil
}

// ReadEvents decodes a snappy-compressed JSONL event log.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(snappy.NewReader(f))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var evt Event
		if err := json.Unmarshal(line, &evt); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", len(events), err)
		}
		events = append(events, evt)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}

// ReadFrames decodes a zstd stream of length-prefixed frames.
func ReadFrames(path string) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var frames []Frame
	header := make([]byte, frameHeaderSize)
	for {
		if _, err := io.ReadFull(dec, header); err != nil {
			if errors.Is(err, io.EOF) {
				return frames, nil
			}
			return nil, fmt.Errorf("read frame header %d: %w", len(frames), err)
		}
		tick := binary.LittleEndian.Uint64(header[0:8])
		captured := int64(binary.LittleEndian.Uint64(header[8:16]))
		size := binary.LittleEndian.Uint32(header[16:20])

		payload := make([]byte, size)
		if _, err := io.ReadFull(dec, payload); err != nil {
			return nil, fmt.Errorf("read frame payload %d: %w", len(frames), err)
		}
		frame := Frame{Tick: tick, CapturedAt: time.Unix(0, captured).UTC()}
		if err := json.Unmarshal(payload, &frame.Sample); err != nil {
			return nil, fmt.Errorf("decode frame %d: %w", len(frames), err)
		}
		frames = append(frames, frame)
	}
}
