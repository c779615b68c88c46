// Package grf reads GRF archives, the container format legacy game assets
// ship in. An Archive satisfies the importer's file source interface so
// models and their textures can be loaded straight out of one.
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Faultbox/meshview/pkg/encoding"
)

const (
	grfMagic   = "Master of Magic"
	headerSize = 46
	version200 = 0x200

	flagFile      = 0x01
	flagEncrypted = 0x02 | 0x04
)

var (
	// ErrInvalidMagic means the file is not a GRF archive.
	ErrInvalidMagic = errors.New("invalid GRF magic")
	// ErrUnsupportedVersion means the archive uses a table layout other than 0x200.
	ErrUnsupportedVersion = errors.New("unsupported GRF version")
	// ErrFileNotFound means the requested path has no entry in the archive.
	ErrFileNotFound = errors.New("file not found in archive")
	// ErrEncrypted means the entry uses DES obfuscation, which is not supported.
	ErrEncrypted = errors.New("encrypted GRF entries are not supported")
)

// Archive is an opened GRF archive.
type Archive struct {
	r       io.ReaderAt
	closer  io.Closer
	header  Header
	entries map[string]*Entry
}

// Header contains GRF file header information.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry describes one stored file.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Open opens a GRF archive on disk.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	a, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// NewReader reads the header and file table from r.
func NewReader(r io.ReaderAt) (*Archive, error) {
	a := &Archive{r: r, entries: make(map[string]*Entry)}
	if err := a.readHeader(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := a.readFileTable(); err != nil {
		return nil, fmt.Errorf("reading file table: %w", err)
	}
	return a, nil
}

// Close releases the underlying file, if any.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func (a *Archive) readHeader() error {
	sr := io.NewSectionReader(a.r, 0, headerSize)
	if err := binary.Read(sr, binary.LittleEndian, &a.header); err != nil {
		return err
	}
	if string(a.header.Magic[:]) != grfMagic {
		return ErrInvalidMagic
	}
	if a.header.Version != version200 {
		return fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	tableOffset := int64(a.header.TableOffset) + headerSize

	var sizes [8]byte
	if _, err := a.r.ReadAt(sizes[:], tableOffset); err != nil {
		return err
	}
	compressedSize := binary.LittleEndian.Uint32(sizes[0:])
	uncompressedSize := binary.LittleEndian.Uint32(sizes[4:])

	compressed := make([]byte, compressedSize)
	if _, err := a.r.ReadAt(compressed, tableOffset+8); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	table, err := inflate(compressed, uncompressedSize)
	if err != nil {
		return err
	}

	fileCount := int64(a.header.FileCount) - int64(a.header.Seed) - 7
	offset := 0
	for i := int64(0); i < fileCount; i++ {
		nameEnd := bytes.IndexByte(table[offset:], 0)
		if nameEnd < 0 {
			return fmt.Errorf("entry %d: unterminated name", i)
		}
		name := encoding.EUCKRToUTF8(table[offset : offset+nameEnd])
		offset += nameEnd + 1

		if offset+17 > len(table) {
			return fmt.Errorf("entry %d: truncated record", i)
		}

		e := &Entry{
			Name:             encoding.NormalizePath(name),
			CompressedSize:   binary.LittleEndian.Uint32(table[offset:]),
			AlignedSize:      binary.LittleEndian.Uint32(table[offset+4:]),
			UncompressedSize: binary.LittleEndian.Uint32(table[offset+8:]),
			Flags:            table[offset+12],
			Offset:           binary.LittleEndian.Uint32(table[offset+13:]),
		}
		offset += 17

		if e.Flags&flagFile != 0 {
			a.entries[e.Name] = e
		}
	}
	return nil
}

// List returns every file path in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.entries))
	for path := range a.entries {
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}

// Contains reports whether path has an entry.
func (a *Archive) Contains(path string) bool {
	_, ok := a.entries[encoding.NormalizePath(path)]
	return ok
}

// Stat returns the entry for path.
func (a *Archive) Stat(path string) (*Entry, error) {
	e, ok := a.entries[encoding.NormalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	return e, nil
}

// ReadFile returns the decompressed contents of path.
func (a *Archive) ReadFile(path string) ([]byte, error) {
	e, err := a.Stat(path)
	if err != nil {
		return nil, err
	}
	if e.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEncrypted)
	}

	stored := make([]byte, e.CompressedSize)
	if _, err := a.r.ReadAt(stored, int64(e.Offset)+headerSize); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if e.CompressedSize == e.UncompressedSize {
		return stored, nil
	}
	data, err := inflate(stored, e.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("inflating %s: %w", path, err)
	}
	return data, nil
}

func inflate(data []byte, size uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}
