package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/annel0/voxelmem/internal/client"
)

var diskSize int64

var diskCmd = &cobra.Command{
	Use:   "disk",
	Short: "Линейный диск поверх регионов (x, 0), x = 0, 1, 2...",
}

func parseInt64s(args []string, names ...string) ([]int64, error) {
	out := make([]int64, len(names))
	for i, name := range names {
		v, err := strconv.ParseInt(args[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s должен быть целым числом: %q", name, args[i])
		}
		out[i] = v
	}
	return out, nil
}

func openDisk(cmd *cobra.Command) (*client.Disk, error) {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	return client.NewDisk(ctx, newClient(), diskSize)
}

var diskInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Размер диска и ёмкость региона",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		disk, err := openDisk(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "size=%d region_capacity=%d regions=%d\n",
			disk.Size(), disk.RegionCapacity(), disk.Regions())
		return nil
	},
}

var diskReadCmd = &cobra.Command{
	Use:   "read <offset> <length>",
	Short: "Прочитать байты диска в stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseInt64s(args, "offset", "length")
		if err != nil {
			return err
		}
		disk, err := openDisk(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		buf := make([]byte, v[1])
		n, err := disk.ReadAtContext(ctx, buf, v[0])
		if err != nil && err != io.EOF {
			return err
		}
		_, err = cmd.OutOrStdout().Write(buf[:n])
		return err
	},
}

var diskWriteCmd = &cobra.Command{
	Use:   "write <offset>",
	Short: "Записать stdin на диск",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseInt64s(args, "offset")
		if err != nil {
			return err
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		disk, err := openDisk(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		n, err := disk.WriteAtContext(ctx, data, v[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "записано %d байт\n", n)
		return nil
	},
}

var diskZeroCmd = &cobra.Command{
	Use:   "zero <offset> <length>",
	Short: "Обнулить диапазон диска",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseInt64s(args, "offset", "length")
		if err != nil {
			return err
		}
		disk, err := openDisk(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		return disk.Zero(ctx, v[0], v[1])
	},
}

func init() {
	diskCmd.PersistentFlags().Int64Var(&diskSize, "size", 0, "размер диска в байтах (по умолчанию один регион)")
	diskCmd.AddCommand(diskInfoCmd, diskReadCmd, diskWriteCmd, diskZeroCmd)
}
