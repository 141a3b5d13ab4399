package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/chunk"
	"github.com/klauspost/compress/zstd"
)

// Формат снимка до сжатия (big-endian):
//
//	magic "BVC\x01", x int32, z int32, flags uint8 (бит 0: освещен)
//	24 секции: nonAir uint16, [4096]uint16 блоков (только если nonAir > 0),
//	           [2048]byte небесного света, [2048]byte света блоков
//	карты высот WorldSurfaceWG и MotionBlocking: по [256]int16
var chunkMagic = [4]byte{'B', 'V', 'C', 1}

const (
	flagLit = 1 << 0

	// верхняя граница распакованного снимка
	maxSnapshotSize = 4 + 8 + 1 + chunk.SectionCount*(2+chunk.SectionVolume*2+2*2048) + 2*256*2
)

var ErrCorruptChunk = errors.New("protocol: corrupt chunk snapshot")

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(0),
		zstd.WithDecoderMaxMemory(maxSnapshotSize),
	)
)

// EncodeChunk сериализует блоки, оба канала света и карты высот и сжимает zstd.
// Вызывающий отвечает за то, чтобы чанк не менялся во время кодирования.
func EncodeChunk(c *chunk.Chunk) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(64 << 10)

	buf.Write(chunkMagic[:])
	var flags uint8
	if c.Lit() {
		flags |= flagLit
	}
	if err := binary.Write(&buf, binary.BigEndian, struct {
		X, Z  int32
		Flags uint8
	}{int32(c.Coords.X), int32(c.Coords.Z), flags}); err != nil {
		return nil, err
	}

	for i := 0; i < chunk.SectionCount; i++ {
		sec := c.Section(i)
		nonAir := uint16(sec.NonAirCount())
		if err := binary.Write(&buf, binary.BigEndian, nonAir); err != nil {
			return nil, err
		}
		if nonAir > 0 {
			if err := binary.Write(&buf, binary.BigEndian, sec.Blocks()); err != nil {
				return nil, err
			}
		}
		buf.Write(sec.Light(chunk.Sky)[:])
		buf.Write(sec.Light(chunk.Block)[:])
	}

	for _, kind := range []chunk.HeightmapKind{chunk.WorldSurfaceWG, chunk.MotionBlocking} {
		for _, h := range c.Heightmap(kind).Heights() {
			if err := binary.Write(&buf, binary.BigEndian, int16(h)); err != nil {
				return nil, err
			}
		}
	}

	return encoder.EncodeAll(buf.Bytes(), nil), nil
}

// DecodeChunk восстанавливает чанк из EncodeChunk. Карты высот пересчитываются
// по блокам и сверяются с переданными.
func DecodeChunk(data []byte) (*chunk.Chunk, error) {
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptChunk, err)
	}
	r := bytes.NewReader(raw)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != chunkMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptChunk)
	}
	var head struct {
		X, Z  int32
		Flags uint8
	}
	if err := binary.Read(r, binary.BigEndian, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptChunk, err)
	}

	c := chunk.New(vec.Vec2{X: int(head.X), Z: int(head.Z)})
	blocks := make([]block.BlockID, chunk.SectionVolume)
	for i := 0; i < chunk.SectionCount; i++ {
		var nonAir uint16
		if err := binary.Read(r, binary.BigEndian, &nonAir); err != nil {
			return nil, fmt.Errorf("%w: section %d: %v", ErrCorruptChunk, i, err)
		}
		if int(nonAir) > chunk.SectionVolume {
			return nil, fmt.Errorf("%w: section %d: nonAir %d", ErrCorruptChunk, i, nonAir)
		}
		if nonAir > 0 {
			if err := binary.Read(r, binary.BigEndian, blocks); err != nil {
				return nil, fmt.Errorf("%w: section %d: %v", ErrCorruptChunk, i, err)
			}
			baseY := chunk.MinY + i*chunk.SectionHeight
			for idx, id := range blocks {
				if block.IsAir(id) {
					continue
				}
				if !block.IsValidBlockID(id) {
					return nil, fmt.Errorf("%w: unknown block %d", ErrCorruptChunk, id)
				}
				c.SetBlock(vec.Vec3{X: idx & 15, Y: baseY + idx>>8, Z: idx >> 4 & 15}, id)
			}
			if got := c.Section(i).NonAirCount(); got != int(nonAir) {
				return nil, fmt.Errorf("%w: section %d: nonAir %d, blocks %d", ErrCorruptChunk, i, nonAir, got)
			}
		}
		if _, err := io.ReadFull(r, c.Section(i).Light(chunk.Sky)[:]); err != nil {
			return nil, fmt.Errorf("%w: section %d sky light: %v", ErrCorruptChunk, i, err)
		}
		if _, err := io.ReadFull(r, c.Section(i).Light(chunk.Block)[:]); err != nil {
			return nil, fmt.Errorf("%w: section %d block light: %v", ErrCorruptChunk, i, err)
		}
	}

	heights := make([]int16, chunk.ChunkWidth*chunk.ChunkWidth)
	for _, kind := range []chunk.HeightmapKind{chunk.WorldSurfaceWG, chunk.MotionBlocking} {
		if err := binary.Read(r, binary.BigEndian, heights); err != nil {
			return nil, fmt.Errorf("%w: heightmap %s: %v", ErrCorruptChunk, kind, err)
		}
		for idx, h := range c.Heightmap(kind).Heights() {
			if int(heights[idx]) != h {
				return nil, fmt.Errorf("%w: heightmap %s mismatch at column %d", ErrCorruptChunk, kind, idx)
			}
		}
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptChunk, r.Len())
	}

	if head.Flags&flagLit != 0 {
		c.MarkLit()
	}
	return c, nil
}
