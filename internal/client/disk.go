package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/annel0/voxelmem/internal/vec"
)

var (
	// ErrOutOfRange возвращается для записи за пределами диска
	ErrOutOfRange = errors.New("диапазон за пределами диска")
	// ErrNoCapacity возвращается, если в регионах нет места под данные
	ErrNoCapacity = errors.New("ёмкость региона равна нулю")
)

// DefaultParallel: сколько регионов диск читает или пишет одновременно
const DefaultParallel = 4

// Disk отображает линейное адресное пространство на регионы (x, 0), x = 0, 1, 2...
// Байт off лежит в регионе off / capacity со смещением off % capacity.
type Disk struct {
	client   *Client
	capacity int
	size     int64
	parallel int
}

var (
	_ io.ReaderAt = (*Disk)(nil)
	_ io.WriterAt = (*Disk)(nil)
)

// NewDisk создаёт диск размером size байтов. Ёмкость региона запрашивается
// у шлюза и считается одинаковой для всех регионов. size <= 0: один регион.
func NewDisk(ctx context.Context, c *Client, size int64) (*Disk, error) {
	capacity, err := c.Capacity(ctx, vec.Vec2{})
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса ёмкости: %w", err)
	}
	if capacity <= 0 {
		return nil, ErrNoCapacity
	}
	if size <= 0 {
		size = int64(capacity)
	}
	return &Disk{client: c, capacity: capacity, size: size, parallel: DefaultParallel}, nil
}

// Size возвращает размер диска в байтах
func (d *Disk) Size() int64 {
	return d.size
}

// RegionCapacity возвращает ёмкость одного региона
func (d *Disk) RegionCapacity() int {
	return d.capacity
}

// Regions возвращает число регионов, занятых диском
func (d *Disk) Regions() int {
	return int((d.size + int64(d.capacity) - 1) / int64(d.capacity))
}

// span: часть запроса, попадающая в один регион
type span struct {
	region vec.Vec2
	offset int // смещение внутри региона
	start  int // начало в буфере запроса
	end    int
}

func (d *Disk) spans(off int64, n int) []span {
	var out []span
	capacity := int64(d.capacity)
	for done := 0; done < n; {
		pos := off + int64(done)
		inRegion := int(pos % capacity)
		length := min(d.capacity-inRegion, n-done)
		out = append(out, span{
			region: vec.Vec2{X: int(pos / capacity)},
			offset: inRegion,
			start:  done,
			end:    done + length,
		})
		done += length
	}
	return out
}

// ReadAt реализует io.ReaderAt
func (d *Disk) ReadAt(p []byte, off int64) (int, error) {
	return d.ReadAtContext(context.Background(), p, off)
}

// ReadAtContext читает len(p) байтов со смещения off. На конце диска
// возвращает прочитанное и io.EOF.
func (d *Disk) ReadAtContext(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: отрицательное смещение %d", ErrOutOfRange, off)
	}
	if off >= d.size {
		return 0, io.EOF
	}
	n := int(min(int64(len(p)), d.size-off))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallel)
	for _, s := range d.spans(off, n) {
		g.Go(func() error {
			data, err := d.client.ReadChunk(gctx, s.region, s.offset, s.end-s.start)
			if err != nil {
				return fmt.Errorf("регион %d: %w", s.region.X, err)
			}
			copy(p[s.start:s.end], data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt реализует io.WriterAt
func (d *Disk) WriteAt(p []byte, off int64) (int, error) {
	return d.WriteAtContext(context.Background(), p, off)
}

// WriteAtContext записывает p со смещения off. Запись за конец диска
// отклоняется целиком.
func (d *Disk) WriteAtContext(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > d.size {
		return 0, fmt.Errorf("%w: %d байт со смещения %d, размер %d", ErrOutOfRange, len(p), off, d.size)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallel)
	for _, s := range d.spans(off, len(p)) {
		g.Go(func() error {
			if err := d.client.WriteChunk(gctx, s.region, s.offset, p[s.start:s.end]); err != nil {
				return fmt.Errorf("регион %d: %w", s.region.X, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Zero обнуляет n байтов со смещения off
func (d *Disk) Zero(ctx context.Context, off, n int64) error {
	if n <= 0 {
		return nil
	}
	_, err := d.WriteAtContext(ctx, make([]byte, n), off)
	return err
}
