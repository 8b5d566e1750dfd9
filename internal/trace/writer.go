// Package trace records rotation ticks and change notifications to a
// compressed bundle on disk: a snappy JSONL event log, a zstd stream of
// length-prefixed frames and a manifest pointing at both.
package trace

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/Versifine/rotation/internal/event"
	"github.com/Versifine/rotation/internal/rotation"
)

const (
	ManifestVersion = 1
	eventsFile      = "events.jsonl.sz"
	framesFile      = "frames.bin.zst"
	manifestFile    = "manifest.json"
	frameHeaderSize = 8 + 8 + 4
)

var actorCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("trace writer closed")

// Manifest describes the bundle layout so tooling can locate artefacts.
type Manifest struct {
	Version    int    `json:"version"`
	Actor      string `json:"actor"`
	CreatedAt  string `json:"created_at"`
	EventsPath string `json:"events_path"`
	FramesPath string `json:"frames_path"`
}

// Writer streams a rotation trace to disk. It is a rotation.Recorder.
type Writer struct {
	mu          sync.Mutex
	dir         string
	now         func() time.Time
	log         *slog.Logger
	eventFile   *os.File
	eventStream *snappy.Writer
	frameFile   *os.File
	frameStream *zstd.Encoder
	tick        uint64
	frames      int
	closed      bool
	failed      bool
}

// NewWriter creates <root>/<actor>-<UTC timestamp>/ and opens the
// compressed sinks inside it.
func NewWriter(root, actor string, clock func() time.Time) (*Writer, Manifest, error) {
	if root == "" {
		return nil, Manifest{}, fmt.Errorf("trace root must be provided")
	}
	if clock == nil {
		clock = time.Now
	}

	cleaned := actorCleaner.ReplaceAllString(actor, "")
	if cleaned == "" {
		cleaned = "actor"
	}
	created := clock().UTC()
	dir := filepath.Join(root, fmt.Sprintf("%s-%s", cleaned, created.Format("20060102T150405Z")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, Manifest{}, fmt.Errorf("create trace dir: %w", err)
	}

	eventFile, err := os.Create(filepath.Join(dir, eventsFile))
	if err != nil {
		return nil, Manifest{}, err
	}
	eventStream := snappy.NewBufferedWriter(eventFile)

	frameFile, err := os.Create(filepath.Join(dir, framesFile))
	if err != nil {
		eventFile.Close()
		return nil, Manifest{}, err
	}
	frameStream, err := zstd.NewWriter(frameFile)
	if err != nil {
		eventStream.Close()
		eventFile.Close()
		frameFile.Close()
		return nil, Manifest{}, err
	}

	manifest := Manifest{
		Version:    ManifestVersion,
		Actor:      cleaned,
		CreatedAt:  created.Format(time.RFC3339Nano),
		EventsPath: eventsFile,
		FramesPath: framesFile,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err == nil {
		err = os.WriteFile(filepath.Join(dir, manifestFile), data, 0o644)
	}
	if err != nil {
		frameStream.Close()
		frameFile.Close()
		eventStream.Close()
		eventFile.Close()
		return nil, Manifest{}, fmt.Errorf("write manifest: %w", err)
	}

	return &Writer{
		dir:         dir,
		now:         clock,
		log:         slog.Default(),
		eventFile:   eventFile,
		eventStream: eventStream,
		frameFile:   frameFile,
		frameStream: frameStream,
	}, manifest, nil
}

// Directory is the bundle directory.
func (w *Writer) Directory() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// SetLogger replaces the logger used to report write failures.
func (w *Writer) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	w.mu.Lock()
	w.log = l
	w.mu.Unlock()
}

func (w *Writer) logger() *slog.Logger {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.log
}

// Frames counts frames written so far.
func (w *Writer) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// RecordTick writes result as one frame. Failures are logged once; the
// rotation loop is never interrupted by a full disk.
func (w *Writer) RecordTick(result rotation.TickResult) {
	if err := w.AppendFrame(result); err != nil {
		w.mu.Lock()
		first := !w.failed
		w.failed = true
		w.mu.Unlock()
		if first && !errors.Is(err, ErrClosed) {
			w.logger().Warn("Trace frame write failed", "error", err, "dir", w.dir)
		}
	}
}

// AppendFrame writes one length-prefixed frame:
// tick u64 | captured unix nanos u64 | payload length u32 | JSON payload.
func (w *Writer) AppendFrame(result rotation.TickResult) error {
	if w == nil {
		return fmt.Errorf("writer not initialised")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	captured := w.now().UTC()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	header := make([]byte, frameHeaderSize)
	binary.LittleEndian.PutUint64(header[0:8], result.Tick)
	binary.LittleEndian.PutUint64(header[8:16], uint64(captured.UnixNano()))
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(payload)))
	if _, err := w.frameStream.Write(header); err != nil {
		return err
	}
	if _, err := w.frameStream.Write(payload); err != nil {
		return err
	}
	w.tick = result.Tick
	w.frames++
	return nil
}

// AppendEvent writes one JSON line to the event log, stamped with the tick
// of the last recorded frame.
func (w *Writer) AppendEvent(eventType string, payload any) error {
	if w == nil {
		return fmt.Errorf("writer not initialised")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", eventType, err)
	}
	captured := w.now().UTC()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	line, err := json.Marshal(Event{
		Tick:       w.tick,
		CapturedAt: captured,
		Type:       eventType,
		Payload:    body,
	})
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := w.eventStream.Write(line); err != nil {
		return err
	}
	return w.eventStream.Flush()
}

// Attach records every rotation notification published on bus. The
// returned function detaches the writer again.
func (w *Writer) Attach(bus *event.Bus) (detach func()) {
	names := []string{event.EventModeChanged, event.EventLookTargetChanged}
	undo := make([]func(), 0, len(names))
	for _, name := range names {
		name := name
		id := bus.Subscribe(name, func(raw any) {
			if err := w.AppendEvent(name, raw); err != nil && !errors.Is(err, ErrClosed) {
				w.logger().Warn("Trace event write failed", "event", name, "error", err)
			}
		})
		undo = append(undo, func() { bus.Unsubscribe(name, id) })
	}
	return func() {
		for _, fn := range undo {
			fn()
		}
	}
}

// Close flushes both streams and releases the files. Further writes return
// ErrClosed.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	keep(w.eventStream.Flush())
	keep(w.eventStream.Close())
	keep(w.eventFile.Close())
	keep(w.frameStream.Close())
	keep(w.frameFile.Close())
	return firstErr
}
