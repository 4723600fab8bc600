package smp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tinygo.org/x/bluetooth"
)

// The SMP GATT characteristic inside the SMP service.
var characteristicSMPUUID, _ = bluetooth.ParseUUID("da2e7828-fbce-4e01-ae9e-261174997c48")

// bleDefaultMTU is a conservative default for devices that do not negotiate
// a larger ATT MTU.
const bleDefaultMTU = 252

// BLEConfig describes an SMP-over-BLE connection. At least one of Name or
// Address must be set.
type BLEConfig struct {
	Name           string
	Address        string
	MTU            int
	InitialTimeout time.Duration
}

// BLETransport carries SMP packets over the MCUmgr GATT characteristic.
// Responses arrive as notifications and are queued for Recv.
type BLETransport struct {
	cfg BLEConfig

	adapter *bluetooth.Adapter
	device  bluetooth.Device

	smpCharacteristic bluetooth.DeviceCharacteristic

	rcv     chan []byte
	timeout time.Duration
}

var _ Transport = (*BLETransport)(nil)

// OpenBLE scans for the device by name or address, connects and subscribes
// to the SMP characteristic.
func OpenBLE(ctx context.Context, cfg BLEConfig) (*BLETransport, error) {
	if cfg.Name == "" && cfg.Address == "" {
		return nil, &ConfigError{Reason: "no BLE device name or address given"}
	}
	if cfg.MTU == 0 {
		cfg.MTU = bleDefaultMTU
	}
	if cfg.InitialTimeout == 0 {
		cfg.InitialTimeout = DefaultInitialTimeout
	}

	if err := bluetooth.DefaultAdapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable bluetooth adapter: %w", err)
	}

	t := &BLETransport{
		cfg:     cfg,
		adapter: bluetooth.DefaultAdapter,
		rcv:     make(chan []byte, 16),
		timeout: cfg.InitialTimeout,
	}
	if err := t.connect(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *BLETransport) connect(ctx context.Context) error {
	var found bool
	var deviceAddr bluetooth.Address

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := t.adapter.Scan(func(a *bluetooth.Adapter, sr bluetooth.ScanResult) {
		slog.Debug("found ble device", "name", sr.LocalName(), "addr", sr.Address)

		nameMatch := t.cfg.Name != "" && sr.LocalName() == t.cfg.Name
		addrMatch := t.cfg.Address != "" && sr.Address.String() == t.cfg.Address

		if !nameMatch && !addrMatch {
			return
		}

		deviceAddr = sr.Address
		found = true

		cancel()
		_ = t.adapter.StopScan()
	})
	if err != nil {
		return fmt.Errorf("start ble scan: %w", err)
	}

	slog.Info("started ble scan", "name", t.cfg.Name, "address", t.cfg.Address)

	<-ctx.Done()
	_ = t.adapter.StopScan()

	if !found {
		return &ConfigError{Reason: "ble device could not be found"}
	}

	dev, err := t.adapter.Connect(deviceAddr, bluetooth.ConnectionParams{
		ConnectionTimeout: bluetooth.NewDuration(10 * time.Second),
		Timeout:           bluetooth.NewDuration(10 * time.Second),
	})
	if err != nil {
		return fmt.Errorf("connect ble: %w", err)
	}
	t.device = dev

	if err := t.setSMPCharacteristic(); err != nil {
		return fmt.Errorf("discover smp: %w", err)
	}

	err = t.smpCharacteristic.EnableNotifications(func(buf []byte) {
		// The characteristic delivers whole SMP packets.
		packet := make([]byte, len(buf))
		copy(packet, buf)
		select {
		case t.rcv <- packet:
		default:
			slog.Debug("dropped ble notification, receive queue full")
		}
	})
	if err != nil {
		return fmt.Errorf("enable characteristic notifications: %w", err)
	}

	return nil
}

func (t *BLETransport) setSMPCharacteristic() error {
	services, err := t.device.DiscoverServices([]bluetooth.UUID{bluetooth.ServiceUUIDSMP})
	if err != nil {
		return fmt.Errorf("get services: %w", err)
	}
	if len(services) != 1 {
		return errors.New("got no matching services")
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{characteristicSMPUUID})
	if err != nil {
		return fmt.Errorf("get characteristics: %w", err)
	}
	if len(chars) == 0 {
		return errors.New("characteristic not found")
	}

	t.smpCharacteristic = chars[0]
	return nil
}

func (t *BLETransport) Send(ctx context.Context, packet []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.smpCharacteristic.WriteWithoutResponse(packet); err != nil {
		return fmt.Errorf("write ble characteristic: %w", err)
	}
	return nil
}

func (t *BLETransport) Recv(ctx context.Context) ([]byte, error) {
	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case packet := <-t.rcv:
		return packet, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *BLETransport) SetTimeout(d time.Duration) {
	t.timeout = d
}

// FramedSize is the packet length itself: GATT writes carry the packet raw.
func (t *BLETransport) FramedSize(packetLen int) int {
	return packetLen
}

func (t *BLETransport) MTU() int {
	return t.cfg.MTU
}

func (t *BLETransport) Close() error {
	if err := t.device.Disconnect(); err != nil {
		return fmt.Errorf("disconnect ble: %w", err)
	}
	return nil
}
