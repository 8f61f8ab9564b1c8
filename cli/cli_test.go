package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nixxel-company-limited/escpos-spool-bridge/commands"
	"github.com/nixxel-company-limited/escpos-spool-bridge/config"
	"github.com/nixxel-company-limited/escpos-spool-bridge/escpos"
	"github.com/nixxel-company-limited/escpos-spool-bridge/spooler"
	"github.com/nixxel-company-limited/escpos-spool-bridge/spooler/spoolertest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command against sp with an isolated HOME and environment
func run(t *testing.T, sp *spoolertest.Spooler, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"BACKEND", "PRINTER", "LISTEN_ADDRESS", "RAW_ADDRESS", "LOG_LEVEL"} {
		t.Setenv(config.EnvPrefix+"_"+key, "")
	}

	root := newRootCommand(func(string) (spooler.Spooler, error) {
		return sp, nil
	})

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestPrintersCommand(t *testing.T) {
	out, err := run(t, spoolertest.New("Receipt1", "Kitchen"), "printers")
	require.NoError(t, err)
	assert.Equal(t, "Receipt1\nKitchen\n", out)
}

func TestPrintersCommandJSON(t *testing.T) {
	out, err := run(t, spoolertest.New("Receipt1"), "printers", "--json", "--log-level", "error")
	require.NoError(t, err)

	var infos []commands.PrinterInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	assert.Equal(t, []commands.PrinterInfo{{Name: "Receipt1"}}, infos)
}

func TestPrintersCommandFailure(t *testing.T) {
	sp := spoolertest.New()
	sp.FailList(errors.New("scheduler is not running"))

	_, err := run(t, sp, "printers")
	require.Error(t, err)
	assert.Equal(t, "Failed to list printers: scheduler is not running", err.Error())
}

func TestPrintCommandData(t *testing.T) {
	sp := spoolertest.New("Receipt1")

	_, err := run(t, sp, "print", "--printer", "Receipt1", "--data", base64.StdEncoding.EncodeToString([]byte("hello")))
	require.NoError(t, err)

	jobs := sp.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, []byte("hello"), jobs[0].Data)
}

func TestPrintCommandFile(t *testing.T) {
	sp := spoolertest.New("Receipt1")
	path := filepath.Join(t.TempDir(), "receipt.bin")
	payload := []byte{0x1B, 0x40, 'o', 'k', 0x0A, 0x1D, 0x56, 0x01}
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	_, err := run(t, sp, "print", "-p", "Receipt1", "--file", path)
	require.NoError(t, err)
	require.Len(t, sp.Jobs(), 1)
	assert.Equal(t, payload, sp.Jobs()[0].Data)
}

func TestPrintCommandDefaultPrinterFromEnv(t *testing.T) {
	sp := spoolertest.New("Receipt1")

	t.Setenv("HOME", t.TempDir())
	t.Setenv("ESCPOS_PRINTER", "Receipt1")
	root := newRootCommand(func(string) (spooler.Spooler, error) { return sp, nil })
	root.SetArgs([]string{"print", "--data", base64.StdEncoding.EncodeToString([]byte("x"))})
	require.NoError(t, root.Execute())
	require.Len(t, sp.Jobs(), 1)
	assert.Equal(t, "Receipt1", sp.Jobs()[0].Printer)
}

func TestPrintCommandErrors(t *testing.T) {
	testCases := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{"NoPayload", []string{"print", "-p", "Receipt1"}, "exactly one of --data or --file"},
		{"BothPayloads", []string{"print", "-p", "Receipt1", "--data", "eA==", "--file", "x"}, "exactly one of --data or --file"},
		{"NoPrinter", []string{"print", "--data", "eA=="}, "no printer given"},
		{"BadBase64", []string{"print", "-p", "Receipt1", "--data", "%%%"}, "Failed to print"},
		{"UnknownPrinter", []string{"print", "-p", "NoSuchPrinter", "--data", "eA=="}, "Failed to print: Printer not found: NoSuchPrinter"},
		{"MissingFile", []string{"print", "-p", "Receipt1", "--file", "/nonexistent/receipt.bin"}, "Failed to print"},
		{"BadBackend", []string{"print", "-p", "Receipt1", "--data", "eA==", "--backend", "lpt"}, "invalid backend"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sp := spoolertest.New("Receipt1")
			_, err := run(t, sp, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
			assert.Empty(t, sp.Jobs())
		})
	}
}

func TestTestCommand(t *testing.T) {
	sp := spoolertest.New("Receipt1")

	_, err := run(t, sp, "test", "--printer", "Receipt1")
	require.NoError(t, err)
	require.Len(t, sp.Jobs(), 1)
	assert.Equal(t, escpos.TestPage(), sp.Jobs()[0].Data)

	_, err = run(t, sp, "test", "--printer", "Kitchen")
	require.Error(t, err)
	assert.Equal(t, "Failed to test printer: Printer not found: Kitchen", err.Error())
}

// freeAddress returns a loopback address with a port that was free a moment ago
func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func newTestApp(sp *spoolertest.Spooler, cfg config.Config) *app {
	return &app{
		cfg:        cfg,
		log:        zerolog.Nop(),
		newSpooler: func(string) (spooler.Spooler, error) { return sp, nil },
	}
}

func TestServe(t *testing.T) {
	sp := spoolertest.New("Receipt1")
	listen, raw := freeAddress(t), freeAddress(t)
	a := newTestApp(sp, config.Config{
		Backend:       spooler.BackendCUPS,
		Printer:       "Receipt1",
		ListenAddress: listen,
		RawAddress:    raw,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- a.serve(ctx) }()

	var conn net.Conn
	require.Eventually(t, func() bool {
		var err error
		conn, err = net.Dial("tcp", listen)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	_, err := conn.Write([]byte(`{"id":1,"command":"test_printer","args":{"printer_name":"Receipt1"}}` + "\n"))
	require.NoError(t, err)
	line := make([]byte, 256)
	n, err := conn.Read(line)
	require.NoError(t, err)
	assert.Contains(t, string(line[:n]), `"ok":true`)
	conn.Close()

	rawConn, err := net.Dial("tcp", raw)
	require.NoError(t, err)
	_, err = rawConn.Write([]byte("raw job"))
	require.NoError(t, err)
	require.NoError(t, rawConn.(*net.TCPConn).CloseWrite())
	require.Eventually(t, func() bool { return len(sp.Jobs()) == 2 }, 2*time.Second, 10*time.Millisecond)
	rawConn.Close()

	jobs := sp.Jobs()
	assert.Equal(t, escpos.TestPage(), jobs[0].Data)
	assert.Equal(t, []byte("raw job"), jobs[1].Data)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeStartFailure(t *testing.T) {
	sp := spoolertest.New("Receipt1")
	a := newTestApp(sp, config.Config{
		Backend:       spooler.BackendCUPS,
		Printer:       "Receipt1",
		ListenAddress: freeAddress(t),
		RawAddress:    "invalid:address:9100",
	})

	err := a.serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start server")
}

func TestServeRawDisabled(t *testing.T) {
	listen := freeAddress(t)
	a := newTestApp(spoolertest.New(), config.Config{
		Backend:       spooler.BackendCUPS,
		ListenAddress: listen,
		RawAddress:    "localhost:9100",
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- a.serve(ctx) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", listen)
		if err == nil {
			conn.Close()
		}
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestExecuteLogsFailure(t *testing.T) {
	sp := spoolertest.New()
	sp.FailList(errors.New("scheduler is not running"))

	t.Setenv("HOME", t.TempDir())
	root := newRootCommand(func(string) (spooler.Spooler, error) { return sp, nil })
	root.SetArgs([]string{"printers"})

	var logged bytes.Buffer
	err := execute(root, zerolog.New(&logged))
	require.Error(t, err)
	assert.Contains(t, logged.String(), `"level":"error"`)
	assert.Contains(t, logged.String(), "Failed to list printers: scheduler is not running")
}

func TestExecuteSuccess(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := newRootCommand(func(string) (spooler.Spooler, error) { return spoolertest.New("Receipt1"), nil })
	root.SetArgs([]string{"printers"})
	root.SetOut(&bytes.Buffer{})

	var logged bytes.Buffer
	require.NoError(t, execute(root, zerolog.New(&logged)))
	assert.Empty(t, logged.String())
}
