package commands

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	smp "github.com/zephyr-tools/mcumgr-client"
)

var (
	osInfoFormat    string
	bootloaderQuery string
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *smp.Client) error {
			if err := client.Reset(ctx); err != nil {
				return err
			}
			fmt.Println("reset complete")
			return nil
		})
	},
}

var echoCmd = &cobra.Command{
	Use:   "echo [message]",
	Short: "Send an echo request to the device",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg := "hello"
		if len(args) == 1 {
			msg = args[0]
		}

		return withClient(func(ctx context.Context, client *smp.Client) error {
			reply, err := client.Echo(ctx, msg)
			if err != nil {
				return err
			}
			fmt.Printf("Echo response: %s\n", reply)
			return nil
		})
	},
}

var taskstatCmd = &cobra.Command{
	Use:   "taskstat",
	Short: "Get task statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *smp.Client) error {
			stats, err := client.TaskStat(ctx)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(stats.Tasks))
			for name := range stats.Tasks {
				names = append(names, name)
			}
			sort.Strings(names)

			table := newTable(os.Stdout, "Task", "Prio", "State", "Stack Use", "Stack Size", "Runtime")
			for _, name := range names {
				info := stats.Tasks[name]
				table.Append([]string{
					name,
					fmt.Sprintf("%d", info.Prio),
					fmt.Sprintf("%d", info.State),
					fmt.Sprintf("%d", info.StkUse),
					fmt.Sprintf("%d", info.StkSiz),
					fmt.Sprintf("%d", info.Runtime),
				})
			}
			table.Render()
			return nil
		})
	},
}

var mcumgrParamsCmd = &cobra.Command{
	Use:   "mcumgr-params",
	Short: "Get MCUmgr parameters (buffer size, count)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *smp.Client) error {
			params, err := client.McumgrParams(ctx)
			if err != nil {
				return err
			}
			fmt.Println("MCUmgr Parameters:")
			fmt.Printf("  Buffer size:  %s\n", formatBytes(uint64(params.BufSize)))
			fmt.Printf("  Buffer count: %d\n", params.BufCount)
			return nil
		})
	},
}

var osInfoCmd = &cobra.Command{
	Use:   "os-info",
	Short: "Get OS/application information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *smp.Client) error {
			info, err := client.OSInfo(ctx, osInfoFormat)
			if err != nil {
				return err
			}
			fmt.Println("OS Information:")
			fmt.Println(info)
			return nil
		})
	},
}

var bootloaderInfoCmd = &cobra.Command{
	Use:   "bootloader-info",
	Short: "Get bootloader information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *smp.Client) error {
			info, err := client.BootloaderInfo(ctx, bootloaderQuery)
			if err != nil {
				return err
			}
			fmt.Println("Bootloader Information:")
			if info.Bootloader != "" {
				fmt.Printf("  Bootloader: %s\n", info.Bootloader)
			}
			if info.Mode != nil {
				fmt.Printf("  Mode: %d (%s)\n", *info.Mode, smp.MCUbootModeName(*info.Mode))
			}
			if info.NoDowngrade != nil {
				state := "Disabled"
				if *info.NoDowngrade {
					state = "Enabled"
				}
				fmt.Printf("  Downgrade Prevention: %s\n", state)
			}
			return nil
		})
	},
}

var hwidCmd = &cobra.Command{
	Use:   "hwid",
	Short: "Get chip hardware ID (custom os-info extension)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *smp.Client) error {
			id, err := client.HardwareID(ctx)
			if err != nil {
				return err
			}
			if id == "" {
				fmt.Println("Hardware ID: (not available - custom hook may not be present)")
				return nil
			}
			fmt.Printf("Hardware ID: %s\n", id)
			return nil
		})
	},
}

func init() {
	osInfoCmd.Flags().StringVarP(&osInfoFormat, "format", "f", "a",
		"format string (s=kernel, n=node, r=release, v=version, b=build, m=machine, p=processor, i=platform, o=os, a=all)")
	bootloaderInfoCmd.Flags().StringVarP(&bootloaderQuery, "query", "q", "",
		`query type (e.g. "mode" for the MCUboot mode)`)

	rootCmd.AddCommand(resetCmd, echoCmd, taskstatCmd, mcumgrParamsCmd, osInfoCmd, bootloaderInfoCmd, hwidCmd)
}
