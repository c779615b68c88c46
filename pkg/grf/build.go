package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"sort"
	"strings"

	"github.com/Faultbox/meshview/pkg/encoding"
)

// Build writes a version 0x200 archive holding files to w. Names use forward
// slashes and are stored with backslashes and EUC-KR encoding.
func Build(w io.Writer, files map[string][]byte) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var body, table bytes.Buffer
	for _, name := range names {
		content := files[name]

		var compressed bytes.Buffer
		zw := zlib.NewWriter(&compressed)
		if _, err := zw.Write(content); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}

		aligned := compressed.Len()
		if aligned%8 != 0 {
			aligned += 8 - aligned%8
		}
		offset := uint32(body.Len())
		body.Write(compressed.Bytes())
		body.Write(make([]byte, aligned-compressed.Len()))

		table.Write(encoding.UTF8ToEUCKR(strings.ReplaceAll(name, "/", "\\")))
		table.WriteByte(0)
		var rec [17]byte
		binary.LittleEndian.PutUint32(rec[0:], uint32(compressed.Len()))
		binary.LittleEndian.PutUint32(rec[4:], uint32(aligned))
		binary.LittleEndian.PutUint32(rec[8:], uint32(len(content)))
		rec[12] = flagFile
		binary.LittleEndian.PutUint32(rec[13:], offset)
		table.Write(rec[:])
	}

	var compressedTable bytes.Buffer
	zw := zlib.NewWriter(&compressedTable)
	if _, err := zw.Write(table.Bytes()); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	h := Header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(names)) + 7,
		Version:     version200,
	}
	copy(h.Magic[:], grfMagic)

	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	sizes := []uint32{uint32(compressedTable.Len()), uint32(table.Len())}
	if err := binary.Write(w, binary.LittleEndian, sizes); err != nil {
		return err
	}
	_, err := w.Write(compressedTable.Bytes())
	return err
}
