// Package changelog implements append-only, segmented change log files.
//
// A log is a directory of segment files. Records are appended to the current
// segment and become durable once committed; several records can share one
// commit. A new segment is started by every writer session and whenever the
// current one grows past Options.MaxFileSize.
//
// File format:
//
//   - segment = header (record* commit)*
//   - header = magic:64 version:8 pad:8 flags:16 seq:32 timestamp:32 pad:32 reserved:64 checksum:64
//   - record = sizeShl1:uvarint tsDelta:uvarint bytes*
//   - commit = runningChecksum:64, lowest bit of the first byte set
//
// All checksums are xxhash64 over every preceding byte of the segment. The
// first byte of a record header always has its lowest bit clear, which is how
// a reader tells records and commits apart. Readers ignore records without a
// valid commit and stop reading a segment at the first damaged byte.
package changelog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

var (
	ErrClosed             = errors.New("changelog closed")
	ErrUnsupportedVersion = errors.New("unsupported changelog version")
	errCorrupted          = errors.New("corrupted changelog segment")
)

type Options struct {
	FileName    string // e.g. "settings-*.log"
	MaxFileSize int64  // new segment after this size
	DebugName   string
	Now         func() time.Time

	// NoSync skips fsync on commit.
	NoSync bool

	Logger  *slog.Logger
	Verbose bool
}

const DefaultMaxFileSize = 4 * 1024 * 1024

// maxRecordSize bounds record sizes accepted by readers.
const maxRecordSize = 64 * 1024 * 1024

const (
	magic          = 0x474f4c45474e4843 // "CHNGELOG" as little-endian uint64
	version0 uint8 = 0
)

const segmentHeaderSize = 5 * 8

type segmentHeader struct {
	Magic     uint64
	Version   uint8
	_         uint8
	Flags     uint16
	Seq       uint32
	Timestamp uint32
	_         uint32
	_         uint64
	Checksum  uint64
}

const (
	commitFlag  byte = 1
	recordShift      = 1
	timestampFmt     = "20060102T150405"
)

// Record is a committed log record.
type Record struct {
	ID   uint64
	Time time.Time
	Data []byte
}

// Log is a set of segment files in one directory.
type Log struct {
	dir         string
	prefix      string
	suffix      string
	debugName   string
	maxFileSize int64
	now         func() time.Time
	noSync      bool
	logger      *slog.Logger
	verbose     bool

	mu     sync.Mutex
	err    error // sticky write failure
	closed bool
	seq    uint32
	rec    uint64
	w      *segmentWriter
}

// Open prepares the log in dir, creating the directory if needed. Segment
// files are only created once something is written.
func Open(dir string, o Options) (*Log, error) {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.FileName == "" {
		o.FileName = "*.log"
	}
	if o.DebugName == "" {
		o.DebugName = "changelog"
	}
	if o.MaxFileSize == 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	prefix, suffix, _ := strings.Cut(o.FileName, "*")

	l := &Log{
		dir:         dir,
		prefix:      prefix,
		suffix:      suffix,
		debugName:   o.DebugName,
		maxFileSize: o.MaxFileSize,
		now:         o.Now,
		noSync:      o.NoSync,
		logger:      o.Logger,
		verbose:     o.Verbose,
	}
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, fmt.Errorf("%s: %w", l.debugName, err)
	}

	segs, err := l.segments()
	if err != nil {
		return nil, err
	}
	if len(segs) > 0 {
		last := segs[len(segs)-1]
		l.seq = last.seq
		l.rec = last.firstID - 1
		err := l.readSegment(last, func(r Record) error {
			l.rec = r.ID
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Log) String() string {
	return l.debugName
}

func (l *Log) timestamp() uint32 {
	v := l.now().Unix()
	if v < 0 || uint64(v)&0xFFFF_FFFF_0000_0000 != 0 {
		panic("time travel disallowed")
	}
	return uint32(v)
}

// Append writes one record. It is not visible to readers until Commit.
func (l *Log) Append(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if l.err != nil {
		return l.err
	}

	ts := l.timestamp()
	l.rec++
	if l.w == nil {
		l.seq++
		w, err := startSegment(l, l.seq, ts, l.rec)
		if err != nil {
			return l.fail(err)
		}
		l.w = w
	}
	return l.fail(l.w.writeRecord(ts, data))
}

// Commit makes every record appended so far durable, and rotates to a new
// segment if the current one has grown too large.
func (l *Log) Commit() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if l.err != nil {
		return l.err
	}
	if l.w == nil {
		return nil
	}
	if err := l.w.commit(!l.noSync); err != nil {
		return l.fail(err)
	}
	if l.w.size >= l.maxFileSize {
		if l.verbose {
			l.logger.Debug("changelog: rotating", "log", l.debugName, "seq", l.seq, "size", l.w.size)
		}
		l.w.close()
		l.w = nil
	}
	return nil
}

// Close finishes the current segment. Uncommitted records are lost.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.w != nil {
		l.w.close()
		l.w = nil
	}
	return nil
}

func (l *Log) fail(err error) error {
	if err == nil {
		return nil
	}
	l.logger.Error("changelog: write failed", "log", l.debugName, "err", err)
	if l.w != nil {
		l.w.close()
		l.w = nil
	}
	if l.err == nil {
		l.err = err
	}
	return err
}

// Read calls f for every committed record, oldest first. Damaged segment
// tails are skipped with a warning.
func (l *Log) Read(f func(Record) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	segs, err := l.segments()
	if err != nil {
		return err
	}
	for _, seg := range segs {
		if err := l.readSegment(seg, f); err != nil {
			return err
		}
	}
	return nil
}

type segmentInfo struct {
	name    string
	seq     uint32
	ts      uint32
	firstID uint64
}

func (l *Log) segments() ([]segmentInfo, error) {
	ents, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.debugName, err)
	}
	var segs []segmentInfo
	for _, ent := range ents {
		if !ent.Type().IsRegular() {
			continue
		}
		name := ent.Name()
		core, ok := strings.CutPrefix(name, l.prefix)
		if !ok {
			continue
		}
		core, ok = strings.CutSuffix(core, l.suffix)
		if !ok {
			continue
		}
		seq, ts, id, err := parseSegmentName(core)
		if err != nil {
			continue
		}
		segs = append(segs, segmentInfo{name, seq, ts, id})
	}
	// zero-padded sequence numbers keep ReadDir's name order chronological
	return segs, nil
}

func (l *Log) readSegment(seg segmentInfo, f func(Record) error) error {
	file, err := os.Open(filepath.Join(l.dir, seg.name))
	if err != nil {
		return fmt.Errorf("%s: %w", l.debugName, err)
	}
	defer file.Close()

	err = scanSegment(bufio.NewReader(file), seg, f)
	if err == errCorrupted {
		l.logger.Warn("changelog: ignoring damaged segment tail", "log", l.debugName, "file", seg.name)
		return nil
	}
	return err
}

// hashingReader feeds every byte it reads into a running checksum.
type hashingReader struct {
	r *bufio.Reader
	h *xxhash.Digest
}

func (hr hashingReader) ReadByte() (byte, error) {
	b, err := hr.r.ReadByte()
	if err == nil {
		hr.h.Write([]byte{b})
	}
	return b, err
}

func (hr hashingReader) readFull(buf []byte) error {
	_, err := io.ReadFull(hr.r, buf)
	if err != nil {
		return err
	}
	hr.h.Write(buf)
	return nil
}

func scanSegment(r *bufio.Reader, seg segmentInfo, f func(Record) error) error {
	var hbuf [segmentHeaderSize]byte
	if _, err := io.ReadFull(r, hbuf[:]); err != nil {
		return errCorrupted
	}
	var h segmentHeader
	if _, err := binary.Decode(hbuf[:], binary.LittleEndian, &h); err != nil {
		return errCorrupted
	}
	if h.Magic != magic || h.Checksum != xxhash.Sum64(hbuf[:segmentHeaderSize-8]) || h.Seq != seg.seq {
		return errCorrupted
	}
	if h.Version > version0 {
		return ErrUnsupportedVersion
	}

	hash := xxhash.New()
	hash.Write(hbuf[:])
	hr := hashingReader{r, hash}

	ts := h.Timestamp
	id := seg.firstID
	var pending []Record
	for {
		first, err := r.Peek(1)
		if err == io.EOF {
			return nil
		} else if err != nil {
			return errCorrupted
		}

		if first[0]&commitFlag != 0 {
			var want, got [8]byte
			binary.LittleEndian.PutUint64(want[:], hash.Sum64())
			want[0] |= commitFlag
			if hr.readFull(got[:]) != nil || got != want {
				return errCorrupted
			}
			for _, rec := range pending {
				if err := f(rec); err != nil {
					return err
				}
			}
			pending = pending[:0]
			continue
		}

		size, err := binary.ReadUvarint(hr)
		if err != nil {
			return errCorrupted
		}
		size >>= recordShift
		delta, err := binary.ReadUvarint(hr)
		if err != nil || size > maxRecordSize || delta > 0xFFFF_FFFF {
			return errCorrupted
		}
		data := make([]byte, size)
		if hr.readFull(data) != nil {
			return errCorrupted
		}
		ts += uint32(delta)
		pending = append(pending, Record{
			ID:   id,
			Time: time.Unix(int64(ts), 0).UTC(),
			Data: data,
		})
		id++
	}
}

type segmentWriter struct {
	f           *os.File
	ts          uint32
	size        int64
	hash        *xxhash.Digest
	uncommitted bool
}

func startSegment(l *Log, seq, ts uint32, rec uint64) (*segmentWriter, error) {
	name := l.prefix + formatSegmentName(seq, ts, rec) + l.suffix
	f, err := os.OpenFile(filepath.Join(l.dir, name), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return nil, err
	}

	var ok bool
	defer closeAndDeleteUnlessOK(f, &ok)

	sw := &segmentWriter{
		f:    f,
		ts:   ts,
		size: segmentHeaderSize,
		hash: xxhash.New(),
	}

	var hbuf [segmentHeaderSize]byte
	fillSegmentHeader(hbuf[:], seq, ts)
	sw.hash.Write(hbuf[:])
	if _, err := f.Write(hbuf[:]); err != nil {
		return nil, err
	}

	if l.verbose {
		l.logger.Debug("changelog: new segment", "log", l.debugName, "file", name)
	}
	ok = true
	return sw, nil
}

const maxRecHeaderLen = 2 * binary.MaxVarintLen64

func (sw *segmentWriter) writeRecord(ts uint32, data []byte) error {
	var tsDelta uint32
	if ts > sw.ts {
		tsDelta = ts - sw.ts
		sw.ts = ts
	}
	sw.uncommitted = true

	var hbuf [maxRecHeaderLen]byte
	h := appendRecordHeader(hbuf[:0], len(data), tsDelta)

	sw.hash.Write(h)
	if _, err := sw.f.Write(h); err != nil {
		return err
	}
	sw.hash.Write(data)
	if _, err := sw.f.Write(data); err != nil {
		return err
	}
	sw.size += int64(len(h) + len(data))
	return nil
}

func (sw *segmentWriter) commit(sync bool) error {
	if !sw.uncommitted {
		return nil
	}
	sw.uncommitted = false

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], sw.hash.Sum64())
	buf[0] |= commitFlag

	sw.hash.Write(buf[:])
	if _, err := sw.f.Write(buf[:]); err != nil {
		return err
	}
	sw.size += int64(len(buf))
	if sync {
		return sw.f.Sync()
	}
	return nil
}

func (sw *segmentWriter) close() {
	if sw.f == nil {
		return
	}
	sw.f.Close()
	sw.f = nil
}

func closeAndDeleteUnlessOK(f *os.File, ok *bool) {
	if *ok {
		return
	}
	f.Close()
	os.Remove(f.Name())
}

func fillSegmentHeader(buf []byte, seq, ts uint32) {
	h := segmentHeader{
		Magic:     magic,
		Version:   version0,
		Seq:       seq,
		Timestamp: ts,
	}
	n, err := binary.Encode(buf, binary.LittleEndian, h)
	if err != nil {
		panic(err)
	}
	if n != len(buf) {
		panic("internal size mismatch")
	}
	binary.LittleEndian.PutUint64(buf[segmentHeaderSize-8:], xxhash.Sum64(buf[:segmentHeaderSize-8]))
}

func appendRecordHeader(b []byte, size int, tsDelta uint32) []byte {
	b = binary.AppendUvarint(b, uint64(size)<<recordShift)
	b = binary.AppendUvarint(b, uint64(tsDelta))
	return b
}

func formatSegmentName(seq, ts uint32, id uint64) string {
	t := time.Unix(int64(ts), 0).UTC()
	return fmt.Sprintf("%012d-%s-%016x", seq, t.Format(timestampFmt), id)
}

func parseSegmentName(name string) (seq, ts uint32, id uint64, err error) {
	seqStr, rem, ok := strings.Cut(name, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid segment file name %q", name)
	}
	v, err := strconv.ParseUint(seqStr, 10, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid segment file name %q (invalid segment number)", name)
	}
	seq = uint32(v)

	tsStr, idStr, ok := strings.Cut(rem, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid segment file name %q", name)
	}
	t, err := time.ParseInLocation(timestampFmt, tsStr, time.UTC)
	if err != nil {
		return seq, 0, 0, fmt.Errorf("invalid segment file name %q (invalid timestamp)", name)
	}
	ts = uint32(t.Unix())

	id, err = strconv.ParseUint(idStr, 16, 64)
	if err != nil {
		return seq, 0, 0, fmt.Errorf("invalid segment file name %q (invalid record identifier)", name)
	}
	return
}
