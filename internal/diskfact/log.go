// Package diskfact implements the append-only disk fact log:
// length-prefixed, CRC32-protected records, last-write-wins on replay,
// tombstones for DENY. It is the durable sibling of fact.MemStore, with
// WAL-style append-only writes and an fsync-on-write discipline.
package diskfact

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"
	"sync"

	"nerdkernel/internal/fact"
	"nerdkernel/internal/vmerr"
)

// RecordType distinguishes a full fact record from a tombstone.
type RecordType byte

const (
	RecordFact  RecordType = 1
	RecordTomb  RecordType = 2
)

// Log is an append-only, CRC-protected fact log file. FactID sits at byte
// offset 8 of every record body (1 type byte + fixed header bytes before
// the 48-byte id).
type Log struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// Open opens (creating if necessary) the log file at path for appending
// and subsequent replay.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, vmerr.Wrap(vmerr.CodeStorageError, "open disk fact log", err)
	}
	return &Log{path: path, file: f}, nil
}

func (l *Log) Close() error { return l.file.Close() }

// recordHeaderLen is the fixed prefix before the 48-byte factId within a
// record body: 1 version byte, 1 type byte, 6 reserved bytes, matching
// so the 48-byte factId always sits at byte offset 8.
const recordHeaderLen = 8
const recordVersion = 1

// AppendFact writes a FACT record for f.
func (l *Log) AppendFact(f fact.Instance) error {
	payload := encodeFactBody(f)
	body := make([]byte, recordHeaderLen+48+len(payload))
	body[0] = recordVersion
	body[1] = byte(RecordFact)
	copy(body[recordHeaderLen:recordHeaderLen+48], f.FactID[:])
	copy(body[recordHeaderLen+48:], payload)
	return l.append(body)
}

// AppendTombstone writes a TOMB record carrying only the factId.
func (l *Log) AppendTombstone(factID [48]byte) error {
	body := make([]byte, recordHeaderLen+48)
	body[0] = recordVersion
	body[1] = byte(RecordTomb)
	copy(body[recordHeaderLen:recordHeaderLen+48], factID[:])
	return l.append(body)
}

func (l *Log) append(record []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(record)))

	crc := crc32.ChecksumIEEE(record)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc)

	if _, err := l.file.Seek(0, io.SeekEnd); err != nil {
		return vmerr.Wrap(vmerr.CodeStorageError, "seek disk fact log", err)
	}
	w := bufio.NewWriter(l.file)
	if _, err := w.Write(lenBuf[:]); err != nil {
		return vmerr.Wrap(vmerr.CodeStorageError, "write record length", err)
	}
	if _, err := w.Write(record); err != nil {
		return vmerr.Wrap(vmerr.CodeStorageError, "write record body", err)
	}
	if _, err := w.Write(crcBuf[:]); err != nil {
		return vmerr.Wrap(vmerr.CodeStorageError, "write record crc", err)
	}
	if err := w.Flush(); err != nil {
		return vmerr.Wrap(vmerr.CodeStorageError, "flush disk fact log", err)
	}
	return l.file.Sync()
}

// record is one decoded, CRC-verified entry from the log.
type record struct {
	Type   RecordType
	FactID [48]byte
	Fact   fact.Instance // only populated for RecordFact
}

// Replay reads every record in the log in order, verifying its CRC, and
// folds them into a last-write-wins map keyed by factId: a later FACT
// overwrites an earlier one, a later TOMB removes it, and vice versa.
func (l *Log) Replay() (map[[48]byte]fact.Instance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return nil, vmerr.Wrap(vmerr.CodeStorageError, "seek disk fact log", err)
	}
	r := bufio.NewReader(l.file)
	live := make(map[[48]byte]fact.Instance)

	for {
		rec, err := readRecord(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch rec.Type {
		case RecordFact:
			live[rec.FactID] = rec.Fact
		case RecordTomb:
			delete(live, rec.FactID)
		}
	}
	return live, nil
}

func readRecord(r *bufio.Reader) (record, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return record{}, io.EOF
		}
		return record{}, vmerr.Wrap(vmerr.CodeStorageError, "read record length", err)
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return record{}, vmerr.Wrap(vmerr.CodeStorageError, "read record body", err)
	}
	var crcBuf [4]byte
	if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
		return record{}, vmerr.Wrap(vmerr.CodeStorageError, "read record crc", err)
	}
	want := binary.LittleEndian.Uint32(crcBuf[:])
	got := crc32.ChecksumIEEE(body)
	if got != want {
		return record{}, vmerr.New(vmerr.CodeStorageError, "crc mismatch in disk fact log", map[string]any{"want": want, "got": got})
	}

	if len(body) < recordHeaderLen+48 {
		return record{}, vmerr.New(vmerr.CodeStorageError, "short record header", nil)
	}
	rt := RecordType(body[1])

	var rec record
	rec.Type = rt
	copy(rec.FactID[:], body[recordHeaderLen:recordHeaderLen+48])

	switch rt {
	case RecordFact:
		f, err := decodeFactBody(rec.FactID, body[recordHeaderLen+48:])
		if err != nil {
			return record{}, err
		}
		rec.Fact = f
	case RecordTomb:
		// factId already populated above; no payload.
	default:
		return record{}, vmerr.New(vmerr.CodeStorageError, "unknown record type", map[string]any{"type": byte(rt)})
	}
	return rec, nil
}
