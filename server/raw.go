package server

import (
	"io"
	"net"

	"github.com/nixxel-company-limited/escpos-spool-bridge/adapter"
	"github.com/nixxel-company-limited/escpos-spool-bridge/spooler"
	"github.com/rs/zerolog"
)

// DefaultMaxJobBytes caps a single raw job
const DefaultMaxJobBytes = 16 << 20

// RawHandler accepts raw ESC/POS streams, the way port 9100 network printers do.
// Everything a client sends until it closes its write side becomes one job on Printer.
type RawHandler struct {
	Spooler spooler.Spooler
	Printer string
	Logger  zerolog.Logger

	// MaxBytes is the largest job accepted; larger streams are discarded unprinted
	MaxBytes int64
}

// NewRawHandler creates a passthrough handler for printer
func NewRawHandler(s spooler.Spooler, printer string, logger zerolog.Logger) *RawHandler {
	return &RawHandler{
		Spooler: s,
		Printer: printer,
		Logger:  logger.With().Str("printer", printer).Logger(),

		MaxBytes: DefaultMaxJobBytes,
	}
}

// ServeConn buffers the connection into a fresh adapter and flushes it once the client is done
func (h *RawHandler) ServeConn(conn net.Conn) {
	client := conn.RemoteAddr().String()
	a := adapter.NewSpoolAdapter(h.Printer, h.Spooler)

	limit := h.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxJobBytes
	}

	n, err := io.Copy(a, io.LimitReader(conn, limit+1))
	if err != nil {
		h.Logger.Error().Err(err).Str("client", client).Int64("bytes", n).Msg("error reading from client, job discarded")
		return
	}

	if n > limit {
		h.Logger.Error().Str("client", client).Int64("limit", limit).Msg("job exceeds size limit, discarded")
		return
	}

	if n == 0 {
		h.Logger.Debug().Str("client", client).Msg("client sent no data, nothing to print")
		return
	}

	if err := a.Flush(); err != nil {
		h.Logger.Error().Err(err).Str("client", client).Int64("bytes", n).Msg("failed to print")
		return
	}

	h.Logger.Info().Str("client", client).Int64("bytes", n).Msg("job submitted")
}
