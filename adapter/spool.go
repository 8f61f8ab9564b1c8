package adapter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nixxel-company-limited/escpos-spool-bridge/spooler"
)

var (
	// ErrPrinterNotFound is returned by Flush when the printer is not registered with the OS
	ErrPrinterNotFound = errors.New("Printer not found")

	// ErrIO is returned by Flush when the spooler rejects the job
	ErrIO = errors.New("I/O error")
)

// SpoolAdapter buffers written bytes in memory and submits them as one OS print job on Flush.
// It is write-only: Read never reports data. The printer is resolved by name at Flush time,
// not at construction.
type SpoolAdapter struct {
	name    string
	spooler spooler.Spooler
	mu      sync.Mutex
	buf     []byte
}

// NewSpoolAdapter creates an adapter for the printer called name
func NewSpoolAdapter(name string, s spooler.Spooler) *SpoolAdapter {
	return &SpoolAdapter{
		name:    name,
		spooler: s,
	}
}

// Name returns the configured printer name
func (a *SpoolAdapter) Name() string {
	return a.name
}

// Write appends data to the buffer. Safe for concurrent use.
func (a *SpoolAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.buf = append(a.buf, data...)
	return len(data), nil
}

// Read always reports zero bytes; printer status is never read back
func (a *SpoolAdapter) Read(buf []byte) (int, error) {
	return 0, nil
}

// Flush looks up the printer and submits the whole buffer with default job options.
// The buffer is drained before submission, so it is empty afterwards even if the spooler fails.
// When the printer is missing nothing is submitted and the buffer is kept.
func (a *SpoolAdapter) Flush() error {
	printer, err := a.spooler.Lookup(a.name)
	if err != nil {
		if errors.Is(err, spooler.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrPrinterNotFound, a.name)
		}
		return fmt.Errorf("%w: %s (%v)", ErrPrinterNotFound, a.name, err)
	}

	a.mu.Lock()
	data := a.buf
	a.buf = nil
	a.mu.Unlock()

	if err := printer.Print(data, spooler.DefaultJobOptions()); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	return nil
}

// Len returns the number of buffered bytes
func (a *SpoolAdapter) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buf)
}
