package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	smp "github.com/zephyr-tools/mcumgr-client"
)

var settingsMaxSize uint32

var settingsReadCmd = &cobra.Command{
	Use:   "settings-read <name>",
	Short: "Read a settings value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var maxSize *uint32
		if cmd.Flags().Changed("max-size") {
			maxSize = &settingsMaxSize
		}

		return withClient(func(ctx context.Context, client *smp.Client) error {
			val, err := client.SettingsRead(ctx, args[0], maxSize)
			if err != nil {
				return err
			}
			fmt.Printf("Setting '%s': %s\n", args[0], hex.EncodeToString(val))
			if s := string(val); isPrintable(s) {
				fmt.Printf("  (as string): %s\n", s)
			}
			return nil
		})
	},
}

var settingsWriteCmd = &cobra.Command{
	Use:   "settings-write <name> <hex>",
	Short: "Write a settings value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		val, err := hex.DecodeString(args[1])
		if err != nil {
			return &smp.ConfigError{Reason: fmt.Sprintf("invalid hex value %q: %v", args[1], err)}
		}

		return withClient(func(ctx context.Context, client *smp.Client) error {
			if err := client.SettingsWrite(ctx, args[0], val); err != nil {
				return err
			}
			fmt.Printf("Setting '%s' written successfully\n", args[0])
			return nil
		})
	},
}

var settingsDeleteCmd = &cobra.Command{
	Use:   "settings-delete <name>",
	Short: "Delete a settings value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *smp.Client) error {
			if err := client.SettingsDelete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Setting '%s' deleted successfully\n", args[0])
			return nil
		})
	},
}

var settingsCommitCmd = &cobra.Command{
	Use:   "settings-commit",
	Short: "Commit settings to running state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *smp.Client) error {
			if err := client.SettingsCommit(ctx); err != nil {
				return err
			}
			fmt.Println("Settings committed successfully")
			return nil
		})
	},
}

var settingsLoadCmd = &cobra.Command{
	Use:   "settings-load",
	Short: "Load settings from persistent storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *smp.Client) error {
			if err := client.SettingsLoad(ctx); err != nil {
				return err
			}
			fmt.Println("Settings loaded successfully")
			return nil
		})
	},
}

var settingsSaveCmd = &cobra.Command{
	Use:   "settings-save",
	Short: "Save settings to persistent storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *smp.Client) error {
			if err := client.SettingsSave(ctx); err != nil {
				return err
			}
			fmt.Println("Settings saved successfully")
			return nil
		})
	},
}

func init() {
	settingsReadCmd.Flags().Uint32Var(&settingsMaxSize, "max-size", 0, "maximum size of value to read")

	rootCmd.AddCommand(settingsReadCmd, settingsWriteCmd, settingsDeleteCmd,
		settingsCommitCmd, settingsLoadCmd, settingsSaveCmd)
}

func isPrintable(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || (!unicode.IsGraphic(r) && !strings.ContainsRune(" \t\r\n", r)) {
			return false
		}
	}
	return true
}
