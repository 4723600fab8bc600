package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	smp "github.com/zephyr-tools/mcumgr-client"
)

var shellCmd = &cobra.Command{
	Use:   "shell <command>...",
	Short: "Execute a shell command on the device",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Re-split so a quoted command line works the same as separate args.
		argv := strings.Fields(strings.Join(args, " "))

		return withClient(func(ctx context.Context, client *smp.Client) error {
			rsp, err := client.ShellExec(ctx, argv)
			if err != nil {
				return err
			}
			if rsp.O != "" {
				fmt.Print(rsp.O)
			}
			if rsp.Ret != 0 {
				fmt.Printf("Command exited with code: %d\n", rsp.Ret)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
