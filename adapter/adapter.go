package adapter

// Driver defines the device contract an ESC/POS producer writes into
type Driver interface {
	// Name returns the name of the target printer
	Name() string

	// Write appends data destined for the printer
	Write(data []byte) (int, error)

	// Read reads status data from the printer
	Read(buf []byte) (int, error)

	// Flush delivers everything written so far as one print job
	Flush() error
}
