package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	smp "github.com/zephyr-tools/mcumgr-client"
)

var fsHashType string

var fsDownloadCmd = &cobra.Command{
	Use:   "fs-download <remote> <local>",
	Short: "Download a file from the device",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, local := args[0], args[1]

		return withClient(func(ctx context.Context, client *smp.Client) error {
			// the total size is only known from the first response
			var bar *progressbar.ProgressBar
			data, err := client.FSDownload(ctx, remote, func(offset, total uint64) {
				if bar == nil {
					bar = newProgressBar(int64(total), "downloading")
				}
				_ = bar.Set64(int64(offset))
			})
			if err != nil {
				return err
			}
			if bar != nil {
				_ = bar.Finish()
			}

			if err := os.WriteFile(local, data, 0o644); err != nil {
				return fmt.Errorf("write local file: %w", err)
			}
			fmt.Printf("downloaded %d bytes\n", len(data))
			return nil
		})
	},
}

var fsUploadCmd = &cobra.Command{
	Use:   "fs-upload <local> <remote>",
	Short: "Upload a file to the device",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		local, remote := args[0], args[1]

		data, err := os.ReadFile(local)
		if err != nil {
			return fmt.Errorf("read local file: %w", err)
		}

		return withClient(func(ctx context.Context, client *smp.Client) error {
			bar := newProgressBar(int64(len(data)), "uploading")
			err := client.FSUpload(ctx, remote, data, func(offset, total uint64) {
				_ = bar.Set64(int64(offset))
			})
			if err != nil {
				return err
			}
			_ = bar.Finish()
			fmt.Printf("uploaded %d bytes\n", len(data))
			return nil
		})
	},
}

var fsStatCmd = &cobra.Command{
	Use:   "fs-stat <remote>",
	Short: "Get file status (size) from the device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *smp.Client) error {
			rsp, err := client.FSStat(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("File: %s\n", args[0])
			fmt.Printf("  Size: %s (%d bytes)\n", formatBytes(uint64(rsp.Len)), rsp.Len)
			return nil
		})
	},
}

var fsHashCmd = &cobra.Command{
	Use:   "fs-hash <remote>",
	Short: "Calculate hash/checksum of a file on the device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *smp.Client) error {
			rsp, err := client.FSHash(ctx, args[0], fsHashType)
			if err != nil {
				return err
			}
			fmt.Printf("File: %s\n", args[0])
			fmt.Printf("  Type:   %s\n", rsp.Type)
			fmt.Printf("  Length: %d\n", rsp.Len)
			fmt.Printf("  Hash:   %s\n", hex.EncodeToString(rsp.Output))
			return nil
		})
	},
}

func init() {
	fsHashCmd.Flags().StringVar(&fsHashType, "hash-type", smp.HashTypeSHA256,
		"hash type (sha256 or crc32)")

	rootCmd.AddCommand(fsDownloadCmd, fsUploadCmd, fsStatCmd, fsHashCmd)
}
