package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/annel0/voxelmem/internal/client"
	"github.com/annel0/voxelmem/internal/vec"
)

var (
	serverURL string
	token     string
	timeout   time.Duration
	wait      bool
)

var rootCmd = &cobra.Command{
	Use:          "memctl",
	Short:        "Клиент HTTP-шлюза voxelmem",
	SilenceUsage: true,
}

func newClient() *client.Client {
	return client.New(serverURL, client.WithToken(token), client.WithWait(wait))
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func parseInts(args []string, names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		v, err := strconv.Atoi(args[i])
		if err != nil {
			return nil, fmt.Errorf("%s должен быть целым числом: %q", name, args[i])
		}
		out[i] = v
	}
	return out, nil
}

var capacityCmd = &cobra.Command{
	Use:   "capacity <x> <z>",
	Short: "Ёмкость региона в байтах",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseInts(args, "x", "z")
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		capacity, err := newClient().Capacity(ctx, vec.Vec2{X: v[0], Y: v[1]})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), capacity)
		return nil
	},
}

var readLength int

var readCmd = &cobra.Command{
	Use:   "read <x> <z> <offset>",
	Short: "Прочитать байты региона в stdout",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseInts(args, "x", "z", "offset")
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		data, err := newClient().ReadChunk(ctx, vec.Vec2{X: v[0], Y: v[1]}, v[2], readLength)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <x> <z> <offset>",
	Short: "Записать stdin в регион",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseInts(args, "x", "z", "offset")
		if err != nil {
			return err
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		return newClient().WriteChunk(ctx, vec.Vec2{X: v[0], Y: v[1]}, v[2], data)
	},
}

var getBlockCmd = &cobra.Command{
	Use:   "get-block <x> <y> <z>",
	Short: "Показать состояние ячейки",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseInts(args, "x", "y", "z")
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		desc, err := newClient().GetBlock(ctx, vec.Vec3{X: v[0], Y: v[1], Z: v[2]})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), desc)
		return nil
	},
}

var setBlockCmd = &cobra.Command{
	Use:   "set-block <x> <y> <z> <descriptor>",
	Short: "Заменить ячейку, например lever[face=wall,facing=south,powered=true]",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseInts(args, "x", "y", "z")
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		desc, err := newClient().SetBlock(ctx, vec.Vec3{X: v[0], Y: v[1], Z: v[2]}, args[3])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), desc)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8394", "адрес шлюза")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("VOXELMEM_TOKEN"), "bearer-токен (или $VOXELMEM_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "предел времени на команду")
	rootCmd.PersistentFlags().BoolVar(&wait, "wait", false, "ждать применения записи")

	readCmd.Flags().IntVar(&readLength, "length", -1, "сколько байтов читать (по умолчанию до конца региона)")

	rootCmd.AddCommand(capacityCmd, readCmd, writeCmd, getBlockCmd, setBlockCmd, diskCmd, eventsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
