// Package console: командная консоль оператора. Каждая строка разбирается
// как отдельный вызов cobra-команды и выполняется через сессию.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/annel0/voxelmem/internal/logging"
	"github.com/annel0/voxelmem/internal/memory"
	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world/block"
)

// ErrOutOfRange возвращается, если запись не помещается в регион
var ErrOutOfRange = errors.New("запись выходит за пределы региона")

// Backend: операции сессии, доступные консоли
type Backend interface {
	GenerateMemory(ctx context.Context, region vec.Vec2) (int, error)
	Capacity(ctx context.Context, region vec.Vec2) (int, error)
	ReadRegion(ctx context.Context, region vec.Vec2, offset, length int) ([]byte, error)
	WriteRegionAndWait(ctx context.Context, region vec.Vec2, offset int, payload []byte) (memory.WriteStats, error)
	GetVoxel(ctx context.Context, pos vec.Vec3) (block.State, error)
	SetVoxel(ctx context.Context, pos vec.Vec3, state block.State) error
}

// Console выполняет строки команд
type Console struct {
	mu      sync.Mutex
	backend Backend
	out     io.Writer
	root    *cobra.Command
	logger  *logging.Logger
}

// New создаёт консоль, печатающую результаты в out
func New(backend Backend, out io.Writer) *Console {
	c := &Console{
		backend: backend,
		out:     out,
		logger:  logging.GetConsoleLogger(),
	}
	c.root = c.newRootCommand()
	return c
}

func (c *Console) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "voxelmem",
		Short:         "Консоль памяти на сетке вокселей",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(c.out)
	root.SetErr(c.out)
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		c.command("generate_memory <chunkX> <chunkZ>", "Разместить структуру памяти в регионе", 2, c.runGenerateMemory),
		c.command("encode_chunk <chunkX> <chunkZ> <value> <offset>", "Записать текст в регион", 4, c.runEncodeChunk),
		c.command("decode_chunk <chunkX> <chunkZ> <length>", "Прочитать текст из региона", 3, c.runDecodeChunk),
		c.command("capacity <chunkX> <chunkZ>", "Ёмкость региона в байтах", 2, c.runCapacity),
		c.command("get_block <x> <y> <z>", "Показать состояние ячейки", 3, c.runGetBlock),
		c.command("set_block <x> <y> <z> <descriptor>", "Заменить ячейку", 4, c.runSetBlock),
	)
	return root
}

// command собирает подкоманду с фиксированным числом аргументов.
// Разбор флагов выключен, иначе отрицательные координаты читаются как флаги.
func (c *Console) command(use, short string, nargs int, run func(ctx context.Context, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:                use,
		Short:              short,
		Args:               cobra.ExactArgs(nargs),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args)
		},
	}
}

// Execute разбирает и выполняет одну строку
func (c *Console) Execute(ctx context.Context, line string) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.root.SetArgs(args)
	return c.root.ExecuteContext(ctx)
}

// Run читает команды построчно, пока не закончится ввод или ctx.
// Ошибки команд печатаются и не прерывают цикл.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		if err := c.Execute(ctx, line); err != nil {
			c.logger.Debug("Команда %q: %v", line, err)
			fmt.Fprintf(c.out, "Ошибка: %v\n", err)
		}
	}
	return scanner.Err()
}

func (c *Console) runGenerateMemory(ctx context.Context, args []string) error {
	region, err := parseRegion(args[0], args[1])
	if err != nil {
		return err
	}
	bits, err := c.backend.GenerateMemory(ctx, region)
	if err != nil {
		return err
	}
	c.logger.Info("Структура памяти размещена в регионе %v", region)
	fmt.Fprintf(c.out, "Created a block of %d bits (%d bytes) of memory.\n", bits, bits/8)
	return nil
}

func (c *Console) runEncodeChunk(ctx context.Context, args []string) error {
	region, err := parseRegion(args[0], args[1])
	if err != nil {
		return err
	}
	value := args[2]
	offset, err := parseInt("offset", args[3])
	if err != nil {
		return err
	}
	if offset < 0 {
		return fmt.Errorf("offset должен быть неотрицательным: %d", offset)
	}

	capacity, err := c.backend.Capacity(ctx, region)
	if err != nil {
		return err
	}
	if offset+len(value) > capacity {
		return fmt.Errorf("%w: %d байт со смещения %d, ёмкость %d", ErrOutOfRange, len(value), offset, capacity)
	}

	if _, err := c.backend.WriteRegionAndWait(ctx, region, offset, []byte(value)); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Written %s to %s @ an offset of %d bytes\n", value, formatRegion(region), offset)
	return nil
}

func (c *Console) runDecodeChunk(ctx context.Context, args []string) error {
	region, err := parseRegion(args[0], args[1])
	if err != nil {
		return err
	}
	length, err := parseInt("length", args[2])
	if err != nil {
		return err
	}
	if length < 1 {
		return fmt.Errorf("length должен быть положительным: %d", length)
	}

	data, err := c.backend.ReadRegion(ctx, region, 0, length)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, strings.ToValidUTF8(string(data), "�"))
	return nil
}

func (c *Console) runCapacity(ctx context.Context, args []string) error {
	region, err := parseRegion(args[0], args[1])
	if err != nil {
		return err
	}
	capacity, err := c.backend.Capacity(ctx, region)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: %d bytes\n", formatRegion(region), capacity)
	return nil
}

func (c *Console) runGetBlock(ctx context.Context, args []string) error {
	pos, err := parsePos(args)
	if err != nil {
		return err
	}
	state, err := c.backend.GetVoxel(ctx, pos)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, block.Serialize(state))
	return nil
}

func (c *Console) runSetBlock(ctx context.Context, args []string) error {
	pos, err := parsePos(args[:3])
	if err != nil {
		return err
	}
	state, err := block.Parse(args[3])
	if err != nil {
		return err
	}
	if err := c.backend.SetVoxel(ctx, pos, state); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Set %s to %s\n", pos, block.Serialize(state))
	return nil
}

func parseInt(name, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s должен быть целым числом: %q", name, s)
	}
	return v, nil
}

func parseRegion(xs, zs string) (vec.Vec2, error) {
	x, err := parseInt("chunkX", xs)
	if err != nil {
		return vec.Vec2{}, err
	}
	z, err := parseInt("chunkZ", zs)
	if err != nil {
		return vec.Vec2{}, err
	}
	return vec.Vec2{X: x, Y: z}, nil
}

func parsePos(args []string) (vec.Vec3, error) {
	var coords [3]int
	for i, name := range [3]string{"x", "y", "z"} {
		v, err := parseInt(name, args[i])
		if err != nil {
			return vec.Vec3{}, err
		}
		coords[i] = v
	}
	return vec.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

func formatRegion(region vec.Vec2) string {
	return fmt.Sprintf("[%d, %d]", region.X, region.Y)
}
