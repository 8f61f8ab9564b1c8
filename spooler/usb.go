package spooler

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/google/gousb"
)

// USB addresses printer-class USB devices directly, bypassing the OS queue.
// A fresh libusb context is opened for every call so device hot-plugging is honoured.
type USB struct{}

// NewUSB creates a direct USB spooler
func NewUSB() *USB {
	return &USB{}
}

// Printers returns every attached printer-class device
func (u *USB) Printers() ([]Printer, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devices, err := FindPrinters(ctx)
	if err != nil {
		return nil, err
	}

	printers := make([]Printer, 0, len(devices))
	for _, dev := range devices {
		printers = append(printers, &usbPrinter{name: DeviceName(dev)})
		dev.Close()
	}

	return printers, nil
}

// Lookup resolves a device by the name Printers reports for it
func (u *USB) Lookup(name string) (Printer, error) {
	printers, err := u.Printers()
	if err != nil {
		return nil, err
	}
	return find(printers, name)
}

// IsPrinter checks if a device exposes a printer class interface
func IsPrinter(dev *gousb.Device) bool {
	if dev == nil {
		return false
	}

	cfg, err := dev.ActiveConfigNum()
	if err != nil {
		return false
	}

	cfgDesc, err := dev.Config(cfg)
	if err != nil {
		return false
	}
	defer cfgDesc.Close()

	_, ok := printerInterface(cfgDesc.Desc)
	return ok
}

// FindPrinters opens and returns all USB printer devices. The caller closes them.
func FindPrinters(ctx *gousb.Context) ([]*gousb.Device, error) {
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true // Check all devices
	})
	// OpenDevices reports per-device open failures but still returns the ones it could open
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}

	printers := []*gousb.Device{}
	for _, dev := range devices {
		if IsPrinter(dev) {
			printers = append(printers, dev)
		} else {
			dev.Close()
		}
	}

	return printers, nil
}

// DeviceName returns the product string of dev, or VVVV:PPPP when the device has none
func DeviceName(dev *gousb.Device) string {
	if product, err := dev.Product(); err == nil && product != "" {
		return product
	}
	return formatID(uint16(dev.Desc.Vendor), uint16(dev.Desc.Product))
}

func formatID(vid, pid uint16) string {
	return fmt.Sprintf("%04X:%04X", vid, pid)
}

// printerInterface returns the number of the first interface with a printer alt setting
func printerInterface(desc gousb.ConfigDesc) (int, bool) {
	for _, iface := range desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == gousb.ClassPrinter {
				return iface.Number, true
			}
		}
	}
	return -1, false
}

type usbPrinter struct {
	name string
}

func (p *usbPrinter) Name() string {
	return p.name
}

// Print reopens the device, claims its printer interface and writes data to the bulk OUT endpoint.
// USB has no job concept so opts are ignored.
func (p *usbPrinter) Print(data []byte, _ JobOptions) error {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devices, err := FindPrinters(ctx)
	if err != nil {
		return err
	}

	var dev *gousb.Device
	for _, d := range devices {
		if dev == nil && DeviceName(d) == p.name {
			dev = d
			continue
		}
		d.Close()
	}
	if dev == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, p.name)
	}
	defer dev.Close()

	return writeDevice(dev, data)
}

func writeDevice(dev *gousb.Device, data []byte) error {
	// Set auto-detach kernel driver on Linux
	if runtime.GOOS == "linux" {
		dev.SetAutoDetach(true)
	}

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("failed to get active config: %w", err)
	}

	cfg, err := dev.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}
	defer cfg.Close()

	ifaceNum, ok := printerInterface(cfg.Desc)
	if !ok {
		return errors.New("no printer interface found")
	}

	iface, err := cfg.Interface(ifaceNum, 0)
	if err != nil {
		return fmt.Errorf("failed to claim interface: %w", err)
	}
	// interfaces must be released before the config closes
	defer iface.Close()

	var out *gousb.OutEndpoint
	for _, epDesc := range iface.Setting.Endpoints {
		if epDesc.Direction != gousb.EndpointDirectionOut {
			continue
		}
		if ep, err := iface.OutEndpoint(epDesc.Number); err == nil {
			out = ep
			break
		}
	}
	if out == nil {
		return errors.New("cannot find output endpoint from printer")
	}

	for written := 0; written < len(data); {
		n, err := out.Write(data[written:])
		if err != nil {
			return fmt.Errorf("write failed after %d of %d bytes: %w", written+n, len(data), err)
		}
		if n == 0 {
			return fmt.Errorf("write stalled after %d of %d bytes", written, len(data))
		}
		written += n
	}

	return nil
}
