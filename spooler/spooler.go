package spooler

import (
	"errors"
	"fmt"
)

// Backend names accepted by New
const (
	BackendCUPS = "cups"
	BackendUSB  = "usb"
)

var (
	// ErrNotFound is returned by Lookup when no printer with the given name is registered
	ErrNotFound = errors.New("printer not found")

	// ErrUnsupported is returned by backends that cannot run on this platform
	ErrUnsupported = errors.New("not supported on this platform")
)

// JobOptions carries per-job settings handed to the spooler
type JobOptions struct {
	// Title is the job name shown in the OS queue
	Title string

	// Options are backend specific key/value job attributes
	Options map[string]string
}

// DefaultJobOptions returns the empty option set used for every submitted job
func DefaultJobOptions() JobOptions {
	return JobOptions{}
}

// Printer is a printer registered with the OS print subsystem
type Printer interface {
	// Name returns the name the OS reports for the printer
	Name() string

	// Print submits data as a single job
	Print(data []byte, opts JobOptions) error
}

// Spooler enumerates printers and resolves them by name.
// Every call queries the OS afresh; nothing is cached between calls.
type Spooler interface {
	// Printers returns every registered printer in the order the OS reports them
	Printers() ([]Printer, error)

	// Lookup returns the printer registered under name, or ErrNotFound
	Lookup(name string) (Printer, error)
}

// New returns the spooler for the named backend
func New(backend string) (Spooler, error) {
	switch backend {
	case BackendCUPS, "":
		return NewCUPS(), nil
	case BackendUSB:
		return NewUSB(), nil
	default:
		return nil, fmt.Errorf("unknown spooler backend %q", backend)
	}
}

// Names returns the names of printers, preserving order
func Names(printers []Printer) []string {
	names := make([]string, 0, len(printers))
	for _, p := range printers {
		names = append(names, p.Name())
	}
	return names
}

// find returns the first printer in printers named name
func find(printers []Printer, name string) (Printer, error) {
	for _, p := range printers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}
