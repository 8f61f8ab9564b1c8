//go:build windows

package spooler

// CUPS is not available on Windows
type CUPS struct{}

// NewCUPS creates a spooler that reports ErrUnsupported (no-op on Windows)
func NewCUPS() *CUPS {
	return &CUPS{}
}

// Printers returns ErrUnsupported on Windows
func (c *CUPS) Printers() ([]Printer, error) {
	return nil, ErrUnsupported
}

// Lookup returns ErrUnsupported on Windows
func (c *CUPS) Lookup(name string) (Printer, error) {
	return nil, ErrUnsupported
}
