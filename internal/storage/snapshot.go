package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world"
)

// snapshotMagic открывает каждый снимок региона
var snapshotMagic = [4]byte{'V', 'X', 'M', '1'}

// ErrCorruptSnapshot возвращается для повреждённых данных
var ErrCorruptSnapshot = errors.New("повреждённый снимок региона")

const cellsPerSection = world.SectionSize * world.SectionSize * world.SectionSize

var (
	codecOnce  sync.Once
	encoder    *zstd.Encoder
	decoder    *zstd.Decoder
	codecError error
)

// initCodec создаёт общие кодировщики zstd. EncodeAll и DecodeAll
// безопасны для параллельного использования.
func initCodec() error {
	codecOnce.Do(func() {
		encoder, codecError = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecError != nil {
			return
		}
		decoder, codecError = zstd.NewReader(nil)
	})
	return codecError
}

// header: заголовок снимка перед сжатием
type header struct {
	Magic    [4]byte
	X, Z     int32
	MinY     int32
	MaxY     int32
	Sections uint16
}

// EncodeChunk упаковывает чанк: заголовок, битовая маска присутствующих
// секций и состояния ячеек (uint32 на ячейку), всё сжато zstd.
func EncodeChunk(c *world.Chunk) ([]byte, error) {
	if err := initCodec(); err != nil {
		return nil, fmt.Errorf("ошибка инициализации zstd: %w", err)
	}

	var buf bytes.Buffer
	h := header{
		Magic:    snapshotMagic,
		X:        int32(c.Coords.X),
		Z:        int32(c.Coords.Y),
		MinY:     int32(c.MinY),
		MaxY:     int32(c.MaxY),
		Sections: uint16(len(c.Sections)),
	}
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("ошибка записи заголовка: %w", err)
	}

	mask := make([]byte, (len(c.Sections)+7)/8)
	for i, s := range c.Sections {
		if s != nil {
			mask[i/8] |= 1 << (i % 8)
		}
	}
	buf.Write(mask)

	for _, s := range c.Sections {
		if s == nil {
			continue
		}
		if err := binary.Write(&buf, binary.LittleEndian, s.Packed()); err != nil {
			return nil, fmt.Errorf("ошибка записи секции: %w", err)
		}
	}

	return encoder.EncodeAll(buf.Bytes(), nil), nil
}

// DecodeChunk восстанавливает чанк из снимка
func DecodeChunk(data []byte) (*world.Chunk, error) {
	if err := initCodec(); err != nil {
		return nil, fmt.Errorf("ошибка инициализации zstd: %w", err)
	}

	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	r := bytes.NewReader(raw)
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: заголовок: %v", ErrCorruptSnapshot, err)
	}
	if h.Magic != snapshotMagic {
		return nil, fmt.Errorf("%w: неверная сигнатура", ErrCorruptSnapshot)
	}

	// Высота проверяется до выделения секций
	height := int64(h.MaxY) - int64(h.MinY)
	if height < 0 || (height+world.SectionSize-1)/world.SectionSize != int64(h.Sections) {
		return nil, fmt.Errorf("%w: высота %d..%d не соответствует %d секциям",
			ErrCorruptSnapshot, h.MinY, h.MaxY, h.Sections)
	}
	c := world.NewChunk(vec.Vec2{X: int(h.X), Y: int(h.Z)}, int(h.MinY), int(h.MaxY))

	mask := make([]byte, (int(h.Sections)+7)/8)
	if _, err := io.ReadFull(r, mask); err != nil {
		return nil, fmt.Errorf("%w: маска секций: %v", ErrCorruptSnapshot, err)
	}

	packed := make([]uint32, cellsPerSection)
	for i := range c.Sections {
		if mask[i/8]&(1<<(i%8)) == 0 {
			continue
		}
		if err := binary.Read(r, binary.LittleEndian, packed); err != nil {
			return nil, fmt.Errorf("%w: секция %d: %v", ErrCorruptSnapshot, i, err)
		}
		c.Sections[i] = world.SectionFromPacked(packed)
	}

	return c, nil
}
