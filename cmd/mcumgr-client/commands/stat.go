package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	smp "github.com/zephyr-tools/mcumgr-client"
)

var statListCmd = &cobra.Command{
	Use:   "stat-list",
	Short: "List available statistics groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *smp.Client) error {
			rsp, err := client.StatList(ctx)
			if err != nil {
				return err
			}
			fmt.Println("Available statistics groups:")
			for _, name := range rsp.StatList {
				fmt.Printf("  %s\n", name)
			}
			return nil
		})
	},
}

var statReadCmd = &cobra.Command{
	Use:   "stat-read <group>",
	Short: "Read statistics from a specific group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *smp.Client) error {
			rsp, err := client.StatRead(ctx, args[0])
			if err != nil {
				return err
			}

			fields := make([]string, 0, len(rsp.Fields))
			for name := range rsp.Fields {
				fields = append(fields, name)
			}
			sort.Strings(fields)

			fmt.Printf("Statistics for '%s':\n", rsp.Name)
			for _, name := range fields {
				fmt.Printf("  %s: %d\n", name, rsp.Fields[name])
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statListCmd, statReadCmd)
}
