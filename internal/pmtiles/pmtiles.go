// Package pmtiles reads and writes PMTiles v3 archives of raster basemap tiles.
//
// Only what single-directory archives need is implemented: the fixed header,
// the root directory and tile data. Leaf directories are not written, and
// archives that use them are rejected on read.
//
// Spec: https://github.com/protomaps/PMTiles/blob/main/spec/v3/spec.md
package pmtiles

import (
	"encoding/binary"
	"errors"
)

// Compression is the compression algorithm applied to directories, metadata or tiles.
type Compression uint8

const (
	UnknownCompression Compression = 0
	NoCompression      Compression = 1
	Gzip               Compression = 2
	Brotli             Compression = 3
	Zstd               Compression = 4
)

// TileType is the format of individual tile contents.
type TileType uint8

const (
	UnknownTileType TileType = 0
	Mvt             TileType = 1
	Png             TileType = 2
	Jpeg            TileType = 3
	Webp            TileType = 4
	Avif            TileType = 5
)

func (t TileType) String() string {
	switch t {
	case Mvt:
		return "mvt"
	case Png:
		return "png"
	case Jpeg:
		return "jpeg"
	case Webp:
		return "webp"
	case Avif:
		return "avif"
	default:
		return "unknown"
	}
}

// HeaderLen is the size of the fixed binary header.
const HeaderLen = 127

var (
	ErrShortHeader = errors.New("pmtiles: buffer too small for header")
	ErrMagic       = errors.New("pmtiles: magic number not detected")
	ErrCompression = errors.New("pmtiles: compression not supported")
	ErrLeafDirs    = errors.New("pmtiles: leaf directories not supported")
)

// Header is the PMTiles v3 header.
type Header struct {
	SpecVersion         uint8
	RootOffset          uint64
	RootLength          uint64
	MetadataOffset      uint64
	MetadataLength      uint64
	LeafDirectoryOffset uint64
	LeafDirectoryLength uint64
	TileDataOffset      uint64
	TileDataLength      uint64
	AddressedTilesCount uint64
	TileEntriesCount    uint64
	TileContentsCount   uint64
	Clustered           bool
	InternalCompression Compression
	TileCompression     Compression
	TileType            TileType
	MinZoom             uint8
	MaxZoom             uint8
	MinLonE7            int32
	MinLatE7            int32
	MaxLonE7            int32
	MaxLatE7            int32
	CenterZoom          uint8
	CenterLonE7         int32
	CenterLatE7         int32
}

// Bytes encodes the header.
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderLen)
	copy(b[0:7], "PMTiles")
	b[7] = 3

	le := binary.LittleEndian
	for i, v := range []uint64{
		h.RootOffset, h.RootLength,
		h.MetadataOffset, h.MetadataLength,
		h.LeafDirectoryOffset, h.LeafDirectoryLength,
		h.TileDataOffset, h.TileDataLength,
		h.AddressedTilesCount, h.TileEntriesCount, h.TileContentsCount,
	} {
		le.PutUint64(b[8+i*8:], v)
	}
	if h.Clustered {
		b[96] = 0x1
	}
	b[97] = uint8(h.InternalCompression)
	b[98] = uint8(h.TileCompression)
	b[99] = uint8(h.TileType)
	b[100] = h.MinZoom
	b[101] = h.MaxZoom
	le.PutUint32(b[102:], uint32(h.MinLonE7))
	le.PutUint32(b[106:], uint32(h.MinLatE7))
	le.PutUint32(b[110:], uint32(h.MaxLonE7))
	le.PutUint32(b[114:], uint32(h.MaxLatE7))
	b[118] = h.CenterZoom
	le.PutUint32(b[119:], uint32(h.CenterLonE7))
	le.PutUint32(b[123:], uint32(h.CenterLatE7))
	return b
}

// ParseHeader decodes a binary header.
func ParseHeader(d []byte) (Header, error) {
	var h Header
	if len(d) < HeaderLen {
		return h, ErrShortHeader
	}
	if string(d[0:7]) != "PMTiles" {
		return h, ErrMagic
	}

	le := binary.LittleEndian
	u64 := func(off int) uint64 { return le.Uint64(d[off : off+8]) }
	i32 := func(off int) int32 { return int32(le.Uint32(d[off : off+4])) }

	h.SpecVersion = d[7]
	h.RootOffset = u64(8)
	h.RootLength = u64(16)
	h.MetadataOffset = u64(24)
	h.MetadataLength = u64(32)
	h.LeafDirectoryOffset = u64(40)
	h.LeafDirectoryLength = u64(48)
	h.TileDataOffset = u64(56)
	h.TileDataLength = u64(64)
	h.AddressedTilesCount = u64(72)
	h.TileEntriesCount = u64(80)
	h.TileContentsCount = u64(88)
	h.Clustered = d[96] == 0x1
	h.InternalCompression = Compression(d[97])
	h.TileCompression = Compression(d[98])
	h.TileType = TileType(d[99])
	h.MinZoom = d[100]
	h.MaxZoom = d[101]
	h.MinLonE7 = i32(102)
	h.MinLatE7 = i32(106)
	h.MaxLonE7 = i32(110)
	h.MaxLatE7 = i32(114)
	h.CenterZoom = d[118]
	h.CenterLonE7 = i32(119)
	h.CenterLatE7 = i32(123)
	return h, nil
}

// ZxyToID converts (Z,X,Y) tile coordinates to a Hilbert TileID.
func ZxyToID(z uint8, x uint32, y uint32) uint64 {
	var acc uint64 = (1<<(z*2) - 1) / 3
	n := uint32(z - 1)
	for s := uint32(1 << n); s > 0; s >>= 1 {
		rx := s & x
		ry := s & y
		acc += uint64((3*rx)^ry) << n
		x, y = rotate(s, x, y, rx, ry)
		n--
	}
	return acc
}

func rotate(n uint32, x uint32, y uint32, rx uint32, ry uint32) (uint32, uint32) {
	if ry == 0 {
		if rx != 0 {
			x = n - 1 - x
			y = n - 1 - y
		}
		return y, x
	}
	return x, y
}
