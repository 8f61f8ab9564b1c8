//go:build !windows

package spooler

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// runFunc executes an external command, feeding stdin when non-nil, and returns its stdout
type runFunc func(stdin []byte, name string, args ...string) ([]byte, error)

// CUPS talks to the CUPS scheduler through its command line clients
type CUPS struct {
	run runFunc
}

// NewCUPS creates a spooler backed by lpstat and lp
func NewCUPS() *CUPS {
	return &CUPS{run: execCommand}
}

// Printers lists destinations with `lpstat -e`
func (c *CUPS) Printers() ([]Printer, error) {
	out, err := c.run(nil, "lpstat", "-e")
	if err != nil {
		// lpstat exits non-zero when the scheduler has no destinations at all
		if strings.Contains(err.Error(), "No destinations added") {
			return []Printer{}, nil
		}
		return nil, fmt.Errorf("failed to query printers: %w", err)
	}

	printers := []Printer{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		printers = append(printers, &cupsPrinter{name: name, cups: c})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read printer list: %w", err)
	}

	return printers, nil
}

// Lookup resolves a destination by exact name
func (c *CUPS) Lookup(name string) (Printer, error) {
	printers, err := c.Printers()
	if err != nil {
		return nil, err
	}
	return find(printers, name)
}

type cupsPrinter struct {
	name string
	cups *CUPS
}

func (p *cupsPrinter) Name() string {
	return p.name
}

// Print submits data unfiltered with `lp -o raw`, the payload is already ESC/POS
func (p *cupsPrinter) Print(data []byte, opts JobOptions) error {
	args := []string{"-d", p.name, "-o", "raw"}
	if opts.Title != "" {
		args = append(args, "-t", opts.Title)
	}

	keys := make([]string, 0, len(opts.Options))
	for k := range opts.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-o", k+"="+opts.Options[k])
	}

	if _, err := p.cups.run(data, "lp", args...); err != nil {
		return fmt.Errorf("failed to submit job to %s: %w", p.name, err)
	}
	return nil
}

func execCommand(stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
