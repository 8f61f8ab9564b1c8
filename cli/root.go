// Package cli wires configuration, logging and the command surface into the escpos-bridge
// command line.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/nixxel-company-limited/escpos-spool-bridge/commands"
	"github.com/nixxel-company-limited/escpos-spool-bridge/config"
	"github.com/nixxel-company-limited/escpos-spool-bridge/spooler"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var exampleUsage = strings.TrimSpace(`
  escpos-bridge printers
  escpos-bridge print --printer "POS-80-Series (6)" --data G0BIZWxsbwoKCh1WAQ==
  escpos-bridge test --printer Receipt1
  escpos-bridge serve --config $HOME/.escpos-bridge/config.toml
`)

// spoolerFactory builds the spooler for a backend name
type spoolerFactory func(backend string) (spooler.Spooler, error)

type app struct {
	v          *viper.Viper
	cfgPath    string
	cfg        config.Config
	log        zerolog.Logger
	newSpooler spoolerFactory
}

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// Execute runs the command line and logs a failure
func Execute() error {
	return execute(newRootCommand(spooler.New), newLogger(zerolog.InfoLevel))
}

func execute(root *cobra.Command, log zerolog.Logger) error {
	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("escpos-bridge")
		return err
	}
	return nil
}

func newRootCommand(newSpooler spoolerFactory) *cobra.Command {
	a := &app{
		v:          viper.New(),
		log:        newLogger(zerolog.InfoLevel),
		newSpooler: newSpooler,
	}

	root := &cobra.Command{
		Use:           "escpos-bridge",
		Short:         "Send pre-encoded ESC/POS jobs to locally installed receipt printers",
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.cfgPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = newLogger(cfg.Level())
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.escpos-bridge/config.toml)")
	flags.String("backend", spooler.BackendCUPS, "spooler backend: cups or usb")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.StringP("printer", "p", "", "printer name (defaults to the configured printer)")
	if err := bindFlags(a.v, flags, "config"); err != nil {
		a.log.Warn().Err(err).Msg("failed to bind flags")
	}

	root.AddCommand(
		newPrintersCommand(a),
		newPrintCommand(a),
		newTestCommand(a),
		newServeCommand(a),
	)

	return root
}

// bindFlags binds every flag in fs to the viper key of the same name with dashes as underscores
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, skip ...string) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		for _, name := range skip {
			if f.Name == name {
				return
			}
		}
		if bindErr := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); bindErr != nil && err == nil {
			err = bindErr
		}
	})
	return err
}

func newLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

// service builds the command surface for the configured backend
func (a *app) service() (*commands.Service, spooler.Spooler, error) {
	s, err := a.newSpooler(a.cfg.Backend)
	if err != nil {
		return nil, nil, err
	}
	return commands.New(s), s, nil
}

// printer returns the printer chosen by --printer, ESCPOS_PRINTER or the config file
func (a *app) printer() (string, error) {
	if a.cfg.Printer == "" {
		return "", fmt.Errorf("no printer given: pass --printer or set %s_PRINTER", config.EnvPrefix)
	}
	return a.cfg.Printer, nil
}
