package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/wricardo/magic-maze/game/engine"
)

const replayExt = ".jsonl.zst"

// FileReplay implements ReplayStore with one zstd-compressed JSONL file per
// match
type FileReplay struct {
	dir string
}

// NewFileReplay creates a replay store rooted at dir
func NewFileReplay(dir string) (*FileReplay, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create replay directory: %w", err)
	}
	return &FileReplay{dir: dir}, nil
}

// Open creates the log file of a match. An existing log is truncated.
func (fr *FileReplay) Open(matchID string) (ReplayWriter, error) {
	if matchID == "" || strings.ContainsAny(matchID, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMatchID, matchID)
	}
	f, err := os.OpenFile(fr.path(matchID), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create replay file: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &replayWriter{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

// Load reads every event of a match back in order
func (fr *FileReplay) Load(matchID string) ([]engine.Event, error) {
	f, err := os.Open(fr.path(matchID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrReplayNotFound
		}
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open zstd stream: %w", err)
	}
	defer dec.Close()

	var events []engine.Event
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev engine.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("replay %s line %d: %w", matchID, len(events)+1, err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read replay %s: %w", matchID, err)
	}
	return events, nil
}

// Delete removes a match log
func (fr *FileReplay) Delete(matchID string) error {
	if !fr.Exists(matchID) {
		return ErrReplayNotFound
	}
	if err := os.Remove(fr.path(matchID)); err != nil {
		return fmt.Errorf("failed to remove replay file: %w", err)
	}
	return nil
}

// ListAll returns the ids of every stored match log
func (fr *FileReplay) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fr.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), replayExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), replayExt))
	}
	return ids, nil
}

// Exists checks if a match log exists
func (fr *FileReplay) Exists(matchID string) bool {
	_, err := os.Stat(fr.path(matchID))
	return err == nil
}

func (fr *FileReplay) path(matchID string) string {
	return filepath.Join(fr.dir, matchID+replayExt)
}

type replayWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func (rw *replayWriter) Write(ev engine.Event) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.w == nil {
		return os.ErrClosed
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := rw.w.Write(b); err != nil {
		return err
	}
	return rw.w.WriteByte('\n')
}

func (rw *replayWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.w == nil {
		return nil
	}

	flushErr := rw.w.Flush()
	encErr := rw.enc.Close()
	fileErr := rw.f.Close()
	rw.w, rw.enc, rw.f = nil, nil, nil

	switch {
	case flushErr != nil:
		return flushErr
	case encErr != nil:
		return encErr
	}
	return fileErr
}
