package pmtiles

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
)

// Entry is an entry in a PMTiles v3 directory.
// RunLength 0 marks a pointer to a leaf directory.
type Entry struct {
	TileID    uint64
	Offset    uint64
	Length    uint32
	RunLength uint32
}

// SerializeEntries encodes directory entries, compressed as requested.
func SerializeEntries(entries []Entry, compression Compression) ([]byte, error) {
	var b bytes.Buffer
	w, err := compressor(&b, compression)
	if err != nil {
		return nil, err
	}

	tmp := make([]byte, binary.MaxVarintLen64)
	put := func(v uint64) {
		n := binary.PutUvarint(tmp, v)
		w.Write(tmp[:n])
	}

	put(uint64(len(entries)))
	lastID := uint64(0)
	for _, e := range entries {
		put(e.TileID - lastID)
		lastID = e.TileID
	}
	for _, e := range entries {
		put(uint64(e.RunLength))
	}
	for _, e := range entries {
		put(uint64(e.Length))
	}
	for i, e := range entries {
		if i > 0 && e.Offset == entries[i-1].Offset+uint64(entries[i-1].Length) {
			put(0)
		} else {
			put(e.Offset + 1)
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// DeserializeEntries decodes a directory written by SerializeEntries.
func DeserializeEntries(data []byte, compression Compression) ([]Entry, error) {
	r, err := decompressor(bytes.NewReader(data), compression)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	br := bufio.NewReader(r)

	read := func() (uint64, error) {
		v, err := binary.ReadUvarint(br)
		if err != nil {
			return 0, fmt.Errorf("pmtiles: reading directory: %w", err)
		}
		return v, nil
	}

	n, err := read()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, n)

	lastID := uint64(0)
	for i := range entries {
		v, err := read()
		if err != nil {
			return nil, err
		}
		entries[i].TileID = lastID + v
		lastID = entries[i].TileID
	}
	for i := range entries {
		v, err := read()
		if err != nil {
			return nil, err
		}
		entries[i].RunLength = uint32(v)
	}
	for i := range entries {
		v, err := read()
		if err != nil {
			return nil, err
		}
		entries[i].Length = uint32(v)
	}
	for i := range entries {
		v, err := read()
		if err != nil {
			return nil, err
		}
		if i > 0 && v == 0 {
			entries[i].Offset = entries[i-1].Offset + uint64(entries[i-1].Length)
		} else {
			entries[i].Offset = v - 1
		}
	}
	return entries, nil
}

// FindTile looks up tileID in entries sorted by TileID.
func FindTile(entries []Entry, tileID uint64) (Entry, bool) {
	m, n := 0, len(entries)-1
	for m <= n {
		k := (n + m) >> 1
		switch {
		case tileID > entries[k].TileID:
			m = k + 1
		case tileID < entries[k].TileID:
			n = k - 1
		default:
			return entries[k], true
		}
	}

	// n is the largest entry below tileID; it may cover it through a run.
	if n >= 0 {
		e := entries[n]
		if e.RunLength == 0 || tileID-e.TileID < uint64(e.RunLength) {
			return e, true
		}
	}
	return Entry{}, false
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func compressor(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case NoCompression:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	default:
		return nil, fmt.Errorf("%w: %d", ErrCompression, c)
	}
}

func decompressor(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case NoCompression:
		return io.NopCloser(r), nil
	case Gzip:
		return gzip.NewReader(r)
	default:
		return nil, fmt.Errorf("%w: %d", ErrCompression, c)
	}
}
