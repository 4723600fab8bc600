package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	smp "github.com/zephyr-tools/mcumgr-client"
)

// Version is set by main from the build-time version.
var Version = "dev"

var (
	device     string
	host       string
	port       int
	bleName    string
	bleAddress string

	initialTimeoutS     int
	subsequentTimeoutMS int
	nbRetry             int
	lineLength          int
	mtu                 int
	baudRate            int
	verbose             bool
)

var rootCmd = &cobra.Command{
	Use:           "mcumgr-client",
	Short:         "Manage MCUmgr (SMP) devices over serial, UDP or BLE",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&device, "device", "d", "", "serial device name (empty: use the sole connected port)")
	pf.StringVar(&host, "host", "", "UDP host (use instead of --device)")
	pf.IntVar(&port, "port", smp.DefaultUDPPort, "UDP port")
	pf.StringVar(&bleName, "ble-name", "", "BLE device name (use instead of --device)")
	pf.StringVar(&bleAddress, "ble-address", "", "BLE device address")
	pf.IntVarP(&initialTimeoutS, "initial_timeout", "t", 60, "initial timeout in seconds")
	pf.IntVarP(&subsequentTimeoutMS, "subsequent_timeout", "u", 200, "subsequent timeout in milliseconds")
	pf.IntVar(&nbRetry, "nb_retry", smp.DefaultNbRetry, "number of retries per packet")
	pf.IntVarP(&lineLength, "linelength", "l", smp.DefaultLineLength, "maximum length per line")
	pf.IntVarP(&mtu, "mtu", "m", smp.DefaultMTU, "maximum length per request")
	pf.IntVarP(&baudRate, "baudrate", "b", smp.DefaultBaudRate, "serial baudrate")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Execute runs the CLI and maps errors to exit codes: 2 for device-reported
// application errors, 1 for everything else.
func Execute() int {
	rootCmd.Version = Version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var devErr *smp.DeviceError
		if errors.As(err, &devErr) {
			return 2
		}
		return 1
	}
	return 0
}

// withClient opens the selected transport for the duration of one command.
func withClient(fn func(ctx context.Context, client *smp.Client) error) error {
	tr, err := openTransport()
	if err != nil {
		return err
	}
	defer tr.Close()

	client := smp.NewClient(tr, smp.ClientConfig{
		NbRetry:           nbRetry,
		SubsequentTimeout: time.Duration(subsequentTimeoutMS) * time.Millisecond,
	})
	return fn(context.Background(), client)
}

func openTransport() (smp.Transport, error) {
	initial := time.Duration(initialTimeoutS) * time.Second

	switch {
	case host != "":
		return smp.OpenUDP(smp.UDPConfig{
			Host:           host,
			Port:           port,
			MTU:            mtu,
			InitialTimeout: initial,
		})
	case bleName != "" || bleAddress != "":
		ctx, cancel := context.WithTimeout(context.Background(), initial)
		defer cancel()
		return smp.OpenBLE(ctx, smp.BLEConfig{
			Name:           bleName,
			Address:        bleAddress,
			InitialTimeout: initial,
		})
	default:
		return smp.OpenSerial(smp.SerialConfig{
			Device:         device,
			BaudRate:       baudRate,
			LineLength:     lineLength,
			MTU:            mtu,
			InitialTimeout: initial,
		})
	}
}

// newTable returns a borderless left-aligned table on w.
func newTable(w io.Writer, headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

func newProgressBar(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func formatBytes(size uint64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := uint64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGT"[exp])
}
