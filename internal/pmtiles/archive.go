package pmtiles

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

// Tile is one tile payload addressed by z/x/y.
type Tile struct {
	Z    uint8
	X, Y uint32
	Data []byte
}

// WriteOptions describes the archive being written.
type WriteOptions struct {
	TileType TileType
	MinZoom  uint8
	MaxZoom  uint8
	// Bounds is min lon, min lat, max lon, max lat.
	Bounds   [4]float64
	Metadata map[string]any
}

// Write encodes tiles as a clustered single-directory archive.
// Tile payloads are stored as-is; directory and metadata are gzipped.
func Write(w io.Writer, tiles []Tile, opts WriteOptions) error {
	if len(tiles) == 0 {
		return errors.New("pmtiles: no tiles to write")
	}

	type tileEntry struct {
		id   uint64
		data []byte
	}
	sorted := make([]tileEntry, 0, len(tiles))
	for _, t := range tiles {
		sorted = append(sorted, tileEntry{id: ZxyToID(t.Z, t.X, t.Y), data: t.Data})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].id < sorted[j].id })

	var (
		entries  []Entry
		tileData bytes.Buffer
		offset   uint64
	)
	for _, te := range sorted {
		entries = append(entries, Entry{
			TileID:    te.id,
			Offset:    offset,
			Length:    uint32(len(te.data)),
			RunLength: 1,
		})
		tileData.Write(te.data)
		offset += uint64(len(te.data))
	}

	metadata := opts.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataBytes, err := SerializeMetadata(metadata, Gzip)
	if err != nil {
		return fmt.Errorf("serializing metadata: %w", err)
	}
	rootDir, err := SerializeEntries(entries, Gzip)
	if err != nil {
		return fmt.Errorf("serializing directory: %w", err)
	}

	rootOffset := uint64(HeaderLen)
	metadataOffset := rootOffset + uint64(len(rootDir))
	tileDataOffset := metadataOffset + uint64(len(metadataBytes))

	b := opts.Bounds
	centerZoom := opts.MinZoom + (opts.MaxZoom-opts.MinZoom)/2
	header := Header{
		SpecVersion:         3,
		RootOffset:          rootOffset,
		RootLength:          uint64(len(rootDir)),
		MetadataOffset:      metadataOffset,
		MetadataLength:      uint64(len(metadataBytes)),
		TileDataOffset:      tileDataOffset,
		TileDataLength:      uint64(tileData.Len()),
		AddressedTilesCount: uint64(len(entries)),
		TileEntriesCount:    uint64(len(entries)),
		TileContentsCount:   uint64(len(entries)),
		Clustered:           true,
		InternalCompression: Gzip,
		TileCompression:     NoCompression,
		TileType:            opts.TileType,
		MinZoom:             opts.MinZoom,
		MaxZoom:             opts.MaxZoom,
		MinLonE7:            e7(b[0]),
		MinLatE7:            e7(b[1]),
		MaxLonE7:            e7(b[2]),
		MaxLatE7:            e7(b[3]),
		CenterZoom:          centerZoom,
		CenterLonE7:         e7((b[0] + b[2]) / 2),
		CenterLatE7:         e7((b[1] + b[3]) / 2),
	}

	for _, part := range [][]byte{header.Bytes(), rootDir, metadataBytes, tileData.Bytes()} {
		if _, err := w.Write(part); err != nil {
			return err
		}
	}
	return nil
}

// SerializeMetadata converts metadata JSON to compressed bytes.
func SerializeMetadata(metadata map[string]any, compression Compression) ([]byte, error) {
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	w, err := compressor(&b, compression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(jsonBytes); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Reader serves tiles from a single-directory archive.
type Reader struct {
	ra       io.ReaderAt
	Header   Header
	Metadata map[string]any
	entries  []Entry
}

// NewReader parses the header, root directory and metadata of an archive.
func NewReader(ra io.ReaderAt) (*Reader, error) {
	buf := make([]byte, HeaderLen)
	if _, err := ra.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("pmtiles: reading header: %w", err)
	}
	h, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	if h.LeafDirectoryLength > 0 {
		return nil, ErrLeafDirs
	}

	dir, err := readSection(ra, h.RootOffset, h.RootLength)
	if err != nil {
		return nil, err
	}
	entries, err := DeserializeEntries(dir, h.InternalCompression)
	if err != nil {
		return nil, err
	}

	r := &Reader{ra: ra, Header: h, entries: entries, Metadata: map[string]any{}}
	if h.MetadataLength > 0 {
		raw, err := readSection(ra, h.MetadataOffset, h.MetadataLength)
		if err != nil {
			return nil, err
		}
		dec, err := decompressor(bytes.NewReader(raw), h.InternalCompression)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		if err := json.NewDecoder(dec).Decode(&r.Metadata); err != nil {
			return nil, fmt.Errorf("pmtiles: decoding metadata: %w", err)
		}
	}
	return r, nil
}

// Tile returns the payload of z/x/y, decompressed. The second result is
// false when the archive does not contain the tile.
func (r *Reader) Tile(z uint8, x, y uint32) ([]byte, bool, error) {
	e, ok := FindTile(r.entries, ZxyToID(z, x, y))
	if !ok {
		return nil, false, nil
	}
	if e.RunLength == 0 {
		return nil, false, ErrLeafDirs
	}
	raw, err := readSection(r.ra, r.Header.TileDataOffset+e.Offset, uint64(e.Length))
	if err != nil {
		return nil, false, err
	}
	if r.Header.TileCompression == NoCompression || r.Header.TileCompression == UnknownCompression {
		return raw, true, nil
	}
	dec, err := decompressor(bytes.NewReader(raw), r.Header.TileCompression)
	if err != nil {
		return nil, false, err
	}
	defer dec.Close()
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func readSection(ra io.ReaderAt, offset, length uint64) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := ra.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("pmtiles: reading %d bytes at %d: %w", length, offset, err)
	}
	return buf, nil
}

func e7(deg float64) int32 {
	return int32(math.Round(deg * 1e7))
}
