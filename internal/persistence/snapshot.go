package persistence

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/stickersim/internal/engine"
)

// SnapshotHeader is the first line of a snapshot file, readable without
// decoding the body.
type SnapshotHeader struct {
	Version int       `json:"version"`
	RunID   string    `json:"run_id,omitempty"`
	Seed    uint64    `json:"seed"`
	Day     int       `json:"day"`
	Players int       `json:"players"`
	Markers int       `json:"markers"`
	SavedAt time.Time `json:"saved_at"`
}

// WriteSnapshot stores snap at path as a zstd stream holding a JSON header
// line followed by the gob-encoded state.
func WriteSnapshot(path, runID string, snap *engine.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hdr := SnapshotHeader{
		Version: snap.Version,
		RunID:   runID,
		Seed:    snap.Seed,
		Day:     snap.Day,
		Players: len(snap.Players),
		Markers: len(snap.Markers),
		SavedAt: time.Now().UTC(),
	}
	hb, err := json.Marshal(hdr)
	if err != nil {
		enc.Close()
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd close: %w", err)
	}
	return f.Close()
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (SnapshotHeader, *engine.Snapshot, error) {
	var hdr SnapshotHeader
	f, err := os.Open(path)
	if err != nil {
		return hdr, nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return hdr, nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return hdr, nil, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &hdr); err != nil {
		return hdr, nil, fmt.Errorf("decode header: %w", err)
	}
	if hdr.Version != engine.SnapshotVersion {
		return hdr, nil, fmt.Errorf("snapshot version %d, want %d", hdr.Version, engine.SnapshotVersion)
	}

	var snap engine.Snapshot
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return hdr, nil, fmt.Errorf("gob decode: %w", err)
	}
	return hdr, &snap, nil
}

// ReadSnapshotHeader returns only the header line of a snapshot.
func ReadSnapshotHeader(path string) (SnapshotHeader, error) {
	var hdr SnapshotHeader
	f, err := os.Open(path)
	if err != nil {
		return hdr, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return hdr, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return hdr, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &hdr); err != nil {
		return hdr, fmt.Errorf("decode header: %w", err)
	}
	return hdr, nil
}
