package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	smp "github.com/zephyr-tools/mcumgr-client"
)

var (
	uploadSlot   int
	testConfirm  bool
	eraseSlot    uint32
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List image slots on the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *smp.Client) error {
			state, err := client.ImageState(ctx)
			if err != nil {
				return err
			}
			printImageState(state)
			return nil
		})
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a firmware image to the device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read firmware file: %w", err)
		}

		slot := smp.InferSlot(path)
		if cmd.Flags().Changed("slot") {
			slot = uint32(uploadSlot)
		}

		return withClient(func(ctx context.Context, client *smp.Client) error {
			bar := newProgressBar(int64(len(data)), "uploading")
			err := client.UploadImage(ctx, data, smp.UploadOptions{
				Slot: slot,
				Progress: func(offset, total uint64) {
					_ = bar.Set64(int64(offset))
				},
			})
			if err != nil {
				return err
			}
			_ = bar.Finish()
			fmt.Println("upload complete")
			return nil
		})
	},
}

var testCmd = &cobra.Command{
	Use:   "test <hash>",
	Short: "Mark an image for testing or confirm it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := hex.DecodeString(args[0])
		if err != nil {
			return &smp.ConfigError{Reason: fmt.Sprintf("invalid image hash %q: %v", args[0], err)}
		}

		var confirm *bool
		if cmd.Flags().Changed("confirm") {
			confirm = &testConfirm
		}

		return withClient(func(ctx context.Context, client *smp.Client) error {
			state, err := client.ImageTest(ctx, hash, confirm)
			if err != nil {
				return err
			}
			printImageState(state)
			return nil
		})
	},
}

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase an image slot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var slot *uint32
		if cmd.Flags().Changed("slot") {
			slot = &eraseSlot
		}

		return withClient(func(ctx context.Context, client *smp.Client) error {
			if err := client.ImageErase(ctx, slot); err != nil {
				return err
			}
			fmt.Println("erase complete")
			return nil
		})
	},
}

func init() {
	uploadCmd.Flags().IntVarP(&uploadSlot, "slot", "s", 0, "target slot number (default: inferred from the file name)")
	testCmd.Flags().BoolVarP(&testConfirm, "confirm", "c", false, "confirm the image permanently")
	eraseCmd.Flags().Uint32VarP(&eraseSlot, "slot", "s", 0, "slot number to erase")

	rootCmd.AddCommand(listCmd, uploadCmd, testCmd, eraseCmd)
}

func printImageState(state *smp.ImageStateResponse) {
	if len(state.Images) == 0 {
		fmt.Println("no images")
		return
	}

	table := newTable(os.Stdout, "Image", "Slot", "Version", "Hash", "Flags")
	for _, img := range state.Images {
		table.Append([]string{
			fmt.Sprintf("%d", img.Image),
			fmt.Sprintf("%d", img.Slot),
			img.Version,
			hex.EncodeToString(img.Hash),
			strings.Join(imageFlags(img), ","),
		})
	}
	table.Render()
}

func imageFlags(img smp.ImageStateEntry) []string {
	var flags []string
	if img.Bootable {
		flags = append(flags, "bootable")
	}
	if img.Pending {
		flags = append(flags, "pending")
	}
	if img.Confirmed {
		flags = append(flags, "confirmed")
	}
	if img.Active {
		flags = append(flags, "active")
	}
	if img.Permanent {
		flags = append(flags, "permanent")
	}
	return flags
}
