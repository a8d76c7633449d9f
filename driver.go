package tilehal

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/hupe1980/tilehal/membackend/sim"
)

// Driver opens and enumerates the devices of one backend family.
type Driver interface {
	// Devices lists the devices this driver can open.
	Devices() ([]DeviceInfo, error)

	// Open opens the device with the given ordinal.
	Open(ctx context.Context, deviceID int64, optFns ...Option) (Device, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

func init() {
	RegisterDriver("sim", simDriver{})
}

// RegisterDriver makes a driver available under name. Registering a nil
// driver or the same name twice is a programming error and panics.
func RegisterDriver(name string, drv Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if drv == nil {
		panic("tilehal: RegisterDriver called with nil driver")
	}

	if _, dup := drivers[name]; dup {
		panic(fmt.Sprintf("tilehal: %v: %q", ErrDriverExists, name))
	}

	drivers[name] = drv
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func lookupDriver(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()

	drv, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: driver %q", ErrNotFound, name)
	}

	return drv, nil
}

// OpenDevice opens device deviceID of the named driver.
//
//	dev, err := tilehal.OpenDevice(ctx, "sim", 0)
func OpenDevice(ctx context.Context, driverName string, deviceID int64, optFns ...Option) (Device, error) {
	drv, err := lookupDriver(driverName)
	if err != nil {
		return nil, err
	}

	return drv.Open(ctx, deviceID, optFns...)
}

// EnumerateDevices lists the devices of the named driver.
func EnumerateDevices(driverName string) ([]DeviceInfo, error) {
	drv, err := lookupDriver(driverName)
	if err != nil {
		return nil, err
	}

	return drv.Devices()
}

// DumpDeviceInfo writes a human-readable capability summary of one device:
// its name, compute core grid, and DRAM size. Diagnostics only.
func DumpDeviceInfo(ctx context.Context, w io.Writer, driverName string, deviceID int64) error {
	dev, err := OpenDevice(ctx, driverName, deviceID)
	if err != nil {
		return err
	}
	defer func() { _ = dev.Close(ctx) }()

	gridX, err := dev.QueryI64(PropertyCategoryDevice, PropertyKeyCoreCountX)
	if err != nil {
		return err
	}

	gridY, err := dev.QueryI64(PropertyCategoryDevice, PropertyKeyCoreCountY)
	if err != nil {
		return err
	}

	dramSize, err := dev.QueryI64(PropertyCategoryDevice, PropertyKeyDRAMSize)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Device %d (%s)\n", deviceID, driverName); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  Cores: %dx%d (%d total)\n", gridX, gridY, gridX*gridY); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  DRAM: %d MB\n", dramSize/(1024*1024)); err != nil {
		return err
	}

	return nil
}

// simDriver serves the built-in simulated backend. It reports a single
// device with ordinal 0.
type simDriver struct{}

var _ Driver = simDriver{}

// Devices implements Driver.
func (simDriver) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: 0, Name: "simulated tile device"}}, nil
}

// Open implements Driver.
func (simDriver) Open(ctx context.Context, deviceID int64, optFns ...Option) (Device, error) {
	if deviceID != 0 {
		return nil, fmt.Errorf("%w: simulated device %d", ErrNotFound, deviceID)
	}

	opts := applyOptions(optFns)

	backend, err := sim.New(opts.simOptions...)
	if err != nil {
		return nil, err
	}

	dev, err := NewDevice(ctx, "sim", deviceID, backend, optFns...)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	return dev, nil
}
