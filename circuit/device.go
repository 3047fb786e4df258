package circuit

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

// ErrDeviceConstraint is returned when an operation cannot run on a device.
var ErrDeviceConstraint = errors.New("device constraint violated")

// Device validates operations against hardware constraints.
type Device interface {
	ValidateOperation(op ScheduledOperation) error
}

type unconstrainedDevice struct{}

func (unconstrainedDevice) ValidateOperation(ScheduledOperation) error { return nil }

// UnconstrainedDevice accepts every operation.
var UnconstrainedDevice Device = unconstrainedDevice{}

// DeviceSetting describes a device loaded from TOML.
type DeviceSetting struct {
	DeviceName        string   `toml:"device_name"`
	MaxQubits         int      `toml:"max_qubits"`
	Gates             []string `toml:"gates"`
	MinGateDurationNs int64    `toml:"min_gate_duration_ns"`
}

// NewDeviceSetting returns a setting that allows every simulated gate on any
// number of qubits.
func NewDeviceSetting() *DeviceSetting {
	return &DeviceSetting{
		DeviceName: "default",
		Gates:      []string{"I", "H", "X", "Y", "Z", "S", "T", "RX", "RY", "RZ", "MEASURE"},
	}
}

// LoadDeviceSetting decodes a TOML device file on top of NewDeviceSetting.
func LoadDeviceSetting(path string) (*DeviceSetting, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read device setting: %w", err)
	}
	ds := NewDeviceSetting()
	if _, err := toml.Decode(string(blob), ds); err != nil {
		zap.L().Error("failed to decode device setting", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("decode device setting %s: %w", path, err)
	}
	zap.L().Debug("loaded device setting",
		zap.String("device", ds.DeviceName),
		zap.Int("max_qubits", ds.MaxQubits),
		zap.Strings("gates", ds.Gates))
	return ds, nil
}

// ValidateOperation rejects gates outside the allow list, qubits beyond
// MaxQubits (when set) and operations shorter than the minimum gate duration.
func (d *DeviceSetting) ValidateOperation(op ScheduledOperation) error {
	if !slices.Contains(d.Gates, op.Gate.Type) {
		return fmt.Errorf("%w: %s does not support gate %s", ErrDeviceConstraint, d.DeviceName, op.Gate.Type)
	}
	if d.MaxQubits > 0 && op.Gate.Target >= d.MaxQubits {
		return fmt.Errorf("%w: %s has %d qubits, operation targets q(%d)",
			ErrDeviceConstraint, d.DeviceName, d.MaxQubits, op.Gate.Target)
	}
	if minDur := time.Duration(d.MinGateDurationNs); op.Duration < minDur {
		return fmt.Errorf("%w: %s needs gates of at least %v, got %v",
			ErrDeviceConstraint, d.DeviceName, minDur, op.Duration)
	}
	return nil
}
