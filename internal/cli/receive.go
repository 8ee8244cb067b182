package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sfbtools/internal/receiver"
)

// ReceiveOptions holds flags for the receive command.
type ReceiveOptions struct {
	*RootOptions
	Listen string
	Path   string
	Out    string
}

// ReceiveResult is the output of the receive command after shutdown.
type ReceiveResult struct {
	Listen   string `json:"listen"`
	Output   string `json:"output"`
	Received int    `json:"received"`
	Rejected int    `json:"rejected"`
}

func (r ReceiveResult) String() string {
	return fmt.Sprintf("Received %d records on %s into %s (%d rejected)", r.Received, r.Listen, r.Output, r.Rejected)
}

// NewReceiveCommand creates the receive command.
func NewReceiveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReceiveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Run a mock SDN receiver",
		Long: `Run an HTTP endpoint that accepts LyncDiagnostics POSTs like an SDN receiver.

Every record is logged with its identifiers and appended to the output file
in extract format. An empty POST (the replay sender's connection probe) is
answered with 200 OK. The receiver runs until interrupted.

Examples:
  sfbtools receive --listen 127.0.0.1:8080 --out received.xml
  sfbtools receive --path /sdn -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReceive(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (default "+receiver.DefaultListen+")")
	cmd.Flags().StringVar(&opts.Path, "path", "", "URL path to accept records on (default "+receiver.DefaultPath+")")
	cmd.Flags().StringVar(&opts.Out, "out", "", "append records to this file (default stdout)")

	return cmd
}

func runReceive(opts *ReceiveOptions, cmd *cobra.Command) error {
	if err := opts.setup(cmd); err != nil {
		return err
	}
	listen := firstNonEmpty(opts.Listen, opts.Config.GetString(keyReceiverListen))
	path := firstNonEmpty(opts.Path, opts.Config.GetString(keyReceiverPath))
	outPath := firstNonEmpty(opts.Out, opts.Config.GetString(keyReceiverOut))

	var out io.Writer = cmd.OutOrStdout()
	outName := "stdout"
	if outPath != "" && outPath != "-" {
		f, err := os.OpenFile(outPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open output", err)
		}
		defer f.Close()
		out, outName = f, outPath
	}

	srv := receiver.New(out, receiver.Options{Path: path, Logger: opts.Logger})

	ctx, stop := signalContext(commandContext(cmd))
	defer stop()

	opts.Logger.Info("receiver listening", "listen", listen, "path", path, "output", outName)
	if err := srv.ListenAndServe(ctx, listen); err != nil {
		return WrapExitError(ExitCommandError, "receiver failed", err)
	}

	received, rejected := srv.Counts()
	opts.Logger.Info("receiver stopped", "received", received, "rejected", rejected)
	if outName == "stdout" {
		return nil
	}
	return opts.formatter(cmd).Success(ReceiveResult{
		Listen:   listen,
		Output:   outName,
		Received: received,
		Rejected: rejected,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
