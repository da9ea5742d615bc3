// Package cli implements the opcinspect command-line interface.
//
// Commands load one OPC package (a .docx, .xlsx, .pptx or any other
// ZIP-based Open Packaging Conventions file) and report on it:
//   - ls: list container entries
//   - rels: print the resolved relationship index
//   - cat: print the decoded text of an XML part
//   - refs: register relationship references and print them by target
//   - manifest: export a package manifest, optionally compressed
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/logicossoftware/go-opc"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// loadOptions are the package-reading flags shared by every command.
type loadOptions struct {
	workers    int
	noCRC      bool
	maxEntries int
}

func (o *loadOptions) readOptions(l *charmlog.Logger) []opc.ReadOption {
	opts := []opc.ReadOption{
		opc.WithLogger(slogger(l)),
		opc.WithVerifyCRC(!o.noCRC),
	}
	if o.workers > 0 {
		opts = append(opts, opc.WithWorkers(o.workers))
	}
	if o.maxEntries > 0 {
		opts = append(opts, opc.WithReadLimits(opc.Limits{MaxEntries: o.maxEntries}))
	}
	return opts
}

// NewRootCommand builds the command tree. Output goes to stdout and logs to
// stderr; both can be redirected with cobra's SetOut/SetErr before execution.
func NewRootCommand() *cobra.Command {
	var verbose bool
	lo := &loadOptions{}

	root := &cobra.Command{
		Use:           "opcinspect",
		Short:         "Inspect OPC packages (docx, xlsx, pptx)",
		Long:          `opcinspect reads an Open Packaging Conventions container, resolves its relationships and reports on its parts.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("opcinspect %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().IntVarP(&lo.workers, "workers", "w", 0, "parallel decompression workers (0 = GOMAXPROCS)")
	root.PersistentFlags().BoolVar(&lo.noCRC, "no-crc", false, "skip CRC-32 verification")
	root.PersistentFlags().IntVar(&lo.maxEntries, "max-entries", 0, "reject packages with more entries (0 = default limit)")

	root.AddCommand(newLsCmd(lo))
	root.AddCommand(newRelsCmd(lo))
	root.AddCommand(newCatCmd(lo))
	root.AddCommand(newRefsCmd(lo))
	root.AddCommand(newManifestCmd(lo))

	return root
}

// Execute runs the CLI with args against ctx.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// openError carries a load failure rendered the way users see it.
type openError struct {
	err error
}

func (e *openError) Error() string {
	return opc.UserMessage(e.err)
}

func (e *openError) Unwrap() error {
	return e.err
}

func loadPackage(cmd *cobra.Command, lo *loadOptions, path string) (*opc.PackageModel, error) {
	logger := loggerFromContext(cmd.Context())
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &openError{err: err}
	}
	prog := newProgress(logger)
	m, err := opc.Load(data, lo.readOptions(logger)...)
	if err != nil {
		return nil, &openError{err: err}
	}
	prog.done("loaded " + path)
	return m, nil
}
