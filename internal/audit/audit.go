// Package audit records every applied state mutation in a tamper-evident,
// append-only JSONL trail. Entries are SHA-256 hash-chained: each line stores
// the digest of the previous line, so any in-place edit or deletion breaks
// the chain and is caught by Verify.
//
// The trail is an operational log of who changed what; it is not state
// persistence. The dashboard's domain state remains volatile by design.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// genesisHash is the all-zero digest chained to by the first entry.
const genesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Record describes one applied mutation.
type Record struct {
	// Actor is the username of the authenticated session that issued the
	// command, or "anonymous" for sessions that never authenticated.
	Actor string `json:"actor"`

	// Action is the command name, e.g. "add-rule" or "resolve-alert".
	Action string `json:"action"`

	// Subject identifies the mutated entity: a rule ID rendered as a
	// string, or an alert ID.
	Subject string `json:"subject"`
}

// entry is the wire format of one trail line.
type entry struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"ts"`
	Record    Record    `json:"record"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// Trail is an open audit log. It is safe for concurrent use; a mutex
// serialises appends to keep the sequence number and chain consistent.
type Trail struct {
	mu       sync.Mutex
	file     *os.File
	prevHash string
	seq      int64
}

// Open opens (or creates) the trail at path. An existing file is scanned to
// restore the chain head; a broken or malformed chain is an error.
func Open(path string) (*Trail, error) {
	prevHash, seq, err := scan(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open %q: %w", path, err)
	}

	return &Trail{file: f, prevHash: prevHash, seq: seq}, nil
}

// Append writes r as the next chained entry.
func (t *Trail) Append(r Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := entry{
		Seq:       t.seq + 1,
		Timestamp: time.Now().UTC(),
		Record:    r,
		PrevHash:  t.prevHash,
	}
	e.Hash = hashEntry(e)

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshal entry %d: %w", e.Seq, err)
	}
	if _, err := t.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: append entry %d: %w", e.Seq, err)
	}

	t.seq = e.Seq
	t.prevHash = e.Hash
	return nil
}

// Close closes the underlying file.
func (t *Trail) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}

// Verify walks the trail at path and checks every entry's hash and chain
// link. It returns the number of valid entries; a missing file verifies as
// an empty trail.
func Verify(path string) (int64, error) {
	_, seq, err := scan(path)
	return seq, err
}

// scan reads the trail at path, validating the chain, and returns the chain
// head (hash of the last entry) and the last sequence number.
func scan(path string) (prevHash string, seq int64, err error) {
	prevHash = genesisHash

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return prevHash, 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("audit: open %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var e entry
		if err := json.Unmarshal(line, &e); err != nil {
			return "", 0, fmt.Errorf("audit: malformed entry after seq %d: %w", seq, err)
		}
		if e.Seq != seq+1 {
			return "", 0, fmt.Errorf("audit: sequence gap: entry %d follows %d", e.Seq, seq)
		}
		if e.PrevHash != prevHash {
			return "", 0, fmt.Errorf("audit: chain break at seq %d", e.Seq)
		}
		if hashEntry(e) != e.Hash {
			return "", 0, fmt.Errorf("audit: hash mismatch at seq %d", e.Seq)
		}

		seq = e.Seq
		prevHash = e.Hash
	}
	if err := scanner.Err(); err != nil {
		return "", 0, fmt.Errorf("audit: read %q: %w", path, err)
	}
	return prevHash, seq, nil
}

// hashEntry digests the entry content, excluding the Hash field itself.
func hashEntry(e entry) string {
	e.Hash = ""
	content, _ := json.Marshal(e)
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
