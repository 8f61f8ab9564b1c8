package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/nixxel-company-limited/escpos-spool-bridge/commands"
	"github.com/rs/zerolog"
)

// Command names understood by Dispatcher
const (
	CommandListPrinters = "list_printers"
	CommandPrint        = "print"
	CommandTestPrinter  = "test_printer"
)

// Request is one line of the dispatch protocol
type Request struct {
	ID      json.RawMessage `json:"id,omitempty"`
	Command string          `json:"command"`
	Args    Args            `json:"args"`
}

// Args holds the arguments of every command; unused fields are ignored
type Args struct {
	PrinterName    string `json:"printer_name"`
	TemplateBase64 string `json:"template_base64"`
}

// Response answers a Request. Result is set when OK, Error otherwise.
type Response struct {
	ID     json.RawMessage `json:"id,omitempty"`
	OK     bool            `json:"ok"`
	Result any             `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// DefaultMaxRequestBytes caps a single request line, enough for a base64 encoded
// DefaultMaxJobBytes payload
const DefaultMaxRequestBytes = 24 << 20

// Dispatcher routes newline-delimited JSON requests to the command surface
type Dispatcher struct {
	commands *commands.Service
	logger   zerolog.Logger
	maxLine  int
}

// NewDispatcher creates a dispatcher for svc
func NewDispatcher(svc *commands.Service, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		commands: svc,
		logger:   logger,
		maxLine:  DefaultMaxRequestBytes,
	}
}

// Dispatch runs a single request
func (d *Dispatcher) Dispatch(req Request) Response {
	resp := Response{ID: req.ID}

	var (
		result any
		err    error
	)
	switch req.Command {
	case CommandListPrinters:
		result, err = d.commands.ListPrinters()
	case CommandPrint:
		result, err = d.commands.Print(req.Args.PrinterName, req.Args.TemplateBase64)
	case CommandTestPrinter:
		result, err = d.commands.TestPrinter(req.Args.PrinterName)
	default:
		err = fmt.Errorf("unknown command: %s", req.Command)
	}

	if err != nil {
		d.logger.Warn().Err(err).Str("command", req.Command).Msg("command failed")
		resp.Error = err.Error()
		return resp
	}

	d.logger.Debug().Str("command", req.Command).Str("printer", req.Args.PrinterName).Msg("command succeeded")
	resp.OK = true
	resp.Result = result
	return resp
}

// ServeConn answers requests line by line until the client disconnects.
// A malformed or oversized line gets an error response and the connection stays open.
func (d *Dispatcher) ServeConn(conn net.Conn) {
	reader := bufio.NewReader(conn)
	encoder := json.NewEncoder(conn)

	for {
		line, err := readLine(reader, d.maxLine)
		if errors.Is(err, errLineTooLong) {
			d.logger.Warn().Stringer("client", conn.RemoteAddr()).Int("limit", d.maxLine).Msg("request too large")
			if writeErr := encoder.Encode(Response{Error: fmt.Sprintf("invalid request: exceeds %d bytes", d.maxLine)}); writeErr != nil {
				d.logger.Error().Err(writeErr).Msg("error writing response")
				return
			}
			continue
		}

		if len(bytes.TrimSpace(line)) > 0 {
			var resp Response
			var req Request
			if jsonErr := json.Unmarshal(line, &req); jsonErr != nil {
				resp = Response{Error: fmt.Sprintf("invalid request: %v", jsonErr)}
			} else {
				resp = d.Dispatch(req)
			}

			if writeErr := encoder.Encode(resp); writeErr != nil {
				d.logger.Error().Err(writeErr).Msg("error writing response")
				return
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				d.logger.Error().Err(err).Stringer("client", conn.RemoteAddr()).Msg("error reading from client")
			}
			return
		}
	}
}

var errLineTooLong = errors.New("line too long")

// readLine reads up to and including the next newline. A line longer than limit bytes is read
// to its end and discarded, and errLineTooLong is returned so memory stays bounded.
func readLine(r *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(bytes.TrimRight(chunk, "\r\n"))+len(line) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if tooLong {
			if err != nil {
				return nil, err
			}
			return nil, errLineTooLong
		}
		return line, err
	}
}
