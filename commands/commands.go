// Package commands is the command surface the hosting application calls: list printers,
// print pre-encoded data and send a self-test page. Each call is independent and blocks until
// the spooler accepts or rejects the job.
package commands

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/nixxel-company-limited/escpos-spool-bridge/adapter"
	"github.com/nixxel-company-limited/escpos-spool-bridge/escpos"
	"github.com/nixxel-company-limited/escpos-spool-bridge/spooler"
)

// PrinterInfo describes an installed printer
type PrinterInfo struct {
	Name string `json:"name"`
}

// Service runs commands against a spooler
type Service struct {
	spooler spooler.Spooler
}

// New creates a command service
func New(s spooler.Spooler) *Service {
	return &Service{spooler: s}
}

// ListPrinters returns the installed printers in OS order
func (s *Service) ListPrinters() ([]PrinterInfo, error) {
	printers, err := s.spooler.Printers()
	if err != nil {
		return nil, fmt.Errorf("Failed to list printers: %w", err)
	}

	infos := make([]PrinterInfo, 0, len(printers))
	for _, name := range spooler.Names(printers) {
		infos = append(infos, PrinterInfo{Name: name})
	}
	return infos, nil
}

// Print decodes a standard base64 payload and prints it as one job.
// Malformed input fails before the spooler is touched.
func (s *Service) Print(printerName, templateBase64 string) (bool, error) {
	data, err := decodeBase64(templateBase64)
	if err != nil {
		return false, fmt.Errorf("Failed to print: invalid base64 payload: %w", err)
	}
	return s.PrintBytes(printerName, data)
}

// decodeBase64 accepts only canonical padded standard base64. Unlike the stdlib decoder it
// rejects embedded line breaks and non-zero trailing bits.
func decodeBase64(s string) ([]byte, error) {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return nil, base64.CorruptInputError(i)
	}
	return base64.StdEncoding.Strict().DecodeString(s)
}

// PrintBytes prints raw ESC/POS bytes as one job
func (s *Service) PrintBytes(printerName string, data []byte) (bool, error) {
	if err := send(adapter.NewSpoolAdapter(printerName, s.spooler), data); err != nil {
		return false, fmt.Errorf("Failed to print: %w", err)
	}
	return true, nil
}

// TestPrinter sends the fixed self-test page
func (s *Service) TestPrinter(printerName string) (bool, error) {
	if err := send(adapter.NewSpoolAdapter(printerName, s.spooler), escpos.TestPage()); err != nil {
		return false, fmt.Errorf("Failed to test printer: %w", err)
	}
	return true, nil
}

func send(d adapter.Driver, data []byte) error {
	if _, err := d.Write(data); err != nil {
		return err
	}
	return d.Flush()
}
