// Command csv2trip converts trip CSV files to trip JSON.
//
//	csv2trip italy.csv
//	csv2trip --pretty < garmin.csv
//	csv2trip --format-only *.csv
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/JonMunkholm/tripimport/internal/importer"
	"github.com/JonMunkholm/tripimport/internal/logging"
	"github.com/spf13/cobra"
)

type options struct {
	pretty     bool
	formatOnly bool
	maxSize    int64
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "csv2trip [file...]",
		Short: "Convert trip CSV files to trip JSON",
		Long: "Convert Furkot, Garmin, driving log or plain CSV exports to trip JSON.\n" +
			"With no file, or when file is -, the CSV is read from standard input.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.pretty, "pretty", false, "indent the JSON output")
	flags.BoolVar(&opts.formatOnly, "format-only", false, "print the detected format of each file instead of the trip")
	flags.Int64Var(&opts.maxSize, "max-size", 100<<20, "maximum input size in bytes, 0 for no limit")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	return cmd
}

func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string, opts *options) error {
	logger := logging.New(stderr, opts.logLevel, "text")

	svc := importer.NewService(importer.Options{MaxFileSize: opts.maxSize, MaxConcurrent: 1}, nil, nil)

	if len(args) == 0 {
		args = []string{"-"}
	}

	enc := json.NewEncoder(stdout)
	if opts.pretty {
		enc.SetIndent("", "  ")
	}

	for _, name := range args {
		res, err := convert(ctx, svc, stdin, name)
		if err != nil {
			msg := importer.MapError(err)
			logger.Error("conversion failed", "file", name, "error", err, "code", msg.Code)
			fmt.Fprintf(stderr, "%s: %s\n", name, importer.FormatUserError(err))
			return err
		}
		logger.Info("converted", "file", name, "format", res.Format.String(),
			"stops", len(res.Trip.Stops), "bytes", res.Bytes)

		if opts.formatOnly {
			fmt.Fprintf(stdout, "%s\t%s\n", name, res.Format)
			continue
		}
		if err := enc.Encode(res.Trip); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func convert(ctx context.Context, svc *importer.Service, stdin io.Reader, name string) (*importer.Result, error) {
	if name == "-" {
		return svc.Import(ctx, "stdin", stdin)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return svc.Import(ctx, filepath.Base(name), f)
}
