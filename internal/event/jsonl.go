package event

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrMissingCollisionID is returned for a collision record without "id".
	ErrMissingCollisionID = errors.New("collision has no id")
	// ErrDuplicateCollisionID is returned when an id repeats within a stream.
	ErrDuplicateCollisionID = errors.New("duplicate collision id")
)

// maxLineBytes bounds a single JSONL record; collisions with thousands of
// tracks fit comfortably.
const maxLineBytes = 64 * 1024 * 1024

// decodeLines calls fn for every non-empty line of r decoded into a fresh T.
func decodeLines[T any](r io.Reader, fn func(line int, v *T) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 || b[0] == '#' {
			continue
		}
		v := new(T)
		if err := json.Unmarshal(b, v); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(line, v); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read line %d: %w", line+1, err)
	}
	return nil
}

// collisionLine decodes a collision while recording whether "id" was
// present; the outer ID shadows Collision.ID.
type collisionLine struct {
	Collision
	ID *int64 `json:"id"`
}

// ReadCollisions streams collisions from r. Every record must carry an id
// that is unique within the stream. Each track's CollisionID is set to its
// collision's ID so track keys are unique across the stream.
func ReadCollisions(r io.Reader, fn func(*Collision) error) error {
	seen := make(map[int64]int)
	return decodeLines(r, func(line int, cl *collisionLine) error {
		if cl.ID == nil {
			return fmt.Errorf("line %d: %w", line, ErrMissingCollisionID)
		}
		id := *cl.ID
		if first, dup := seen[id]; dup {
			return fmt.Errorf("line %d: %w %d (first on line %d)", line, ErrDuplicateCollisionID, id, first)
		}
		seen[id] = line
		c := &cl.Collision
		c.ID = id
		for i := range c.Tracks {
			c.Tracks[i].CollisionID = id
		}
		return fn(c)
	})
}

// ReadAllCollisions reads every collision from r into memory.
func ReadAllCollisions(r io.Reader) ([]*Collision, error) {
	var out []*Collision
	err := ReadCollisions(r, func(c *Collision) error {
		out = append(out, c)
		return nil
	})
	return out, err
}

// ReadBplusCandidates reads every B± candidate from r.
func ReadBplusCandidates(r io.Reader) ([]BplusCandidate, error) {
	var out []BplusCandidate
	err := decodeLines(r, func(_ int, c *BplusCandidate) error {
		out = append(out, *c)
		return nil
	})
	return out, err
}

// ReadMCParticles reads every generator-level particle from r.
func ReadMCParticles(r io.Reader) ([]MCParticle, error) {
	var out []MCParticle
	err := decodeLines(r, func(_ int, p *MCParticle) error {
		out = append(out, *p)
		return nil
	})
	return out, err
}

// StatusRecord is one line of selector output.
type StatusRecord struct {
	Index  int   `json:"index"`
	Status uint8 `json:"status"`
}

// WriteStatuses writes one JSON line per status, in input order.
func WriteStatuses(w io.Writer, statuses []uint8) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i, s := range statuses {
		if err := enc.Encode(StatusRecord{Index: i, Status: s}); err != nil {
			return fmt.Errorf("encode status %d: %w", i, err)
		}
	}
	return bw.Flush()
}
