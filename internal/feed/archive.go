package feed

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// Binary tick archives hold a fixed file header followed by
// fixed-size records, each carrying its own checksum so truncated or
// corrupted captures fail loudly instead of skewing a run.
const (
	archiveVersion    uint16 = 1
	fileHeaderSize           = 8
	recordPayloadSize        = 25
	recordSize               = recordPayloadSize + 4
)

var (
	archiveMagic = [4]byte{'T', 'C', 'K', '1'}
	crcTable     = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic       = errors.New("tick archive invalid magic")
	ErrUnsupportedVersion = errors.New("tick archive unsupported version")
	ErrChecksumMismatch   = errors.New("tick archive checksum mismatch")
	ErrTruncatedRecord    = errors.New("tick archive truncated record")
)

func encodeRecord(dst []byte, t schema.Tick) {
	_ = dst[recordSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], uint64(t.TsNano))
	binary.LittleEndian.PutUint64(dst[8:16], uint64(t.Price))
	binary.LittleEndian.PutUint64(dst[16:24], uint64(t.Qty))
	if t.BuyerMaker {
		dst[24] = 1
	} else {
		dst[24] = 0
	}
	sum := crc32.Checksum(dst[:recordPayloadSize], crcTable)
	binary.LittleEndian.PutUint32(dst[recordPayloadSize:recordSize], sum)
}

func decodeRecord(src []byte) (schema.Tick, error) {
	if len(src) < recordSize {
		return schema.Tick{}, ErrTruncatedRecord
	}
	expected := binary.LittleEndian.Uint32(src[recordPayloadSize:recordSize])
	if crc32.Checksum(src[:recordPayloadSize], crcTable) != expected {
		return schema.Tick{}, ErrChecksumMismatch
	}
	return schema.Tick{
		TsNano:     int64(binary.LittleEndian.Uint64(src[0:8])),
		Price:      schema.Price(binary.LittleEndian.Uint64(src[8:16])),
		Qty:        schema.Quantity(binary.LittleEndian.Uint64(src[16:24])),
		BuyerMaker: src[24] == 1,
	}, nil
}

// ArchiveWriter appends ticks to a binary archive file.
type ArchiveWriter struct {
	file *os.File
	buf  *bufio.Writer
	rec  [recordSize]byte
	n    int64
}

// NewArchiveWriter creates the file and writes the archive header.
func NewArchiveWriter(path string) (*ArchiveWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "create tick archive")
	}
	w := &ArchiveWriter{
		file: file,
		buf:  bufio.NewWriter(file),
	}
	var header [fileHeaderSize]byte
	copy(header[0:4], archiveMagic[:])
	binary.LittleEndian.PutUint16(header[4:6], archiveVersion)
	if _, err := w.buf.Write(header[:]); err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "write archive header")
	}
	return w, nil
}

// Append writes one tick record.
func (w *ArchiveWriter) Append(t schema.Tick) error {
	encodeRecord(w.rec[:], t)
	if _, err := w.buf.Write(w.rec[:]); err != nil {
		return errors.Wrap(err, "write tick record")
	}
	w.n++
	return nil
}

// Count returns the number of records appended so far.
func (w *ArchiveWriter) Count() int64 { return w.n }

// Close flushes, syncs, and closes the archive.
func (w *ArchiveWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		_ = w.file.Close()
		return err
	}
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// ArchiveReader streams ticks back out of an archive file.
type ArchiveReader struct {
	file *os.File
	buf  *bufio.Reader
	rec  [recordSize]byte
}

// OpenArchive opens an archive and validates its header.
func OpenArchive(path string) (*ArchiveReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open tick archive")
	}
	r := &ArchiveReader{
		file: file,
		buf:  bufio.NewReader(file),
	}
	var header [fileHeaderSize]byte
	if _, err := io.ReadFull(r.buf, header[:]); err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "read archive header")
	}
	if header[0] != archiveMagic[0] || header[1] != archiveMagic[1] ||
		header[2] != archiveMagic[2] || header[3] != archiveMagic[3] {
		_ = file.Close()
		return nil, ErrInvalidMagic
	}
	if binary.LittleEndian.Uint16(header[4:6]) != archiveVersion {
		_ = file.Close()
		return nil, ErrUnsupportedVersion
	}
	return r, nil
}

// Next returns the next tick or io.EOF at a clean end of file.
func (r *ArchiveReader) Next() (schema.Tick, error) {
	n, err := io.ReadFull(r.buf, r.rec[:])
	if err != nil {
		if err == io.EOF && n == 0 {
			return schema.Tick{}, io.EOF
		}
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return schema.Tick{}, ErrTruncatedRecord
		}
		return schema.Tick{}, err
	}
	return decodeRecord(r.rec[:])
}

// Close releases the underlying file.
func (r *ArchiveReader) Close() error { return r.file.Close() }
