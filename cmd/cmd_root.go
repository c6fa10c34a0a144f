package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/fleetrun/fleetrun/cmd/dispatch"
	"github.com/fleetrun/fleetrun/cmd/monitor"
	"github.com/fleetrun/fleetrun/cmd/scaffold"
	"github.com/fleetrun/fleetrun/cmd/targets"
	"github.com/fleetrun/fleetrun/cmd/update"
	"github.com/fleetrun/fleetrun/cmd/version"
	"github.com/fleetrun/fleetrun/internal/build_info"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var RootCmd = &cobra.Command{
	Use:   "fleetrun",
	Short: "A CLI tool for running commands across tagged EC2 fleets with SSM Run Command",
	Long:  "A CLI tool for dispatching, previewing and monitoring AWS SSM Run Command executions against tag-targeted EC2 instances. Docs: " + getDocURL(),
	// Stdout is reserved for pipeable output (the dispatch acknowledgment and rendered
	// markdown), so banners and logs go to stderr.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if build_info.Version == build_info.DefaultDevVersion {
			fmt.Fprintf(os.Stderr, "\n%s\n%s\n%s\n%s\n\n",
				color.RedString("┌─────────────────────────────────────────────────────────────────────────┐"),
				color.RedString("│ ⚠️  WARNING: This is a development build                                │"),
				color.RedString("│ Official releases: https://github.com/fleetrun/fleetrun/releases        │"),
				color.RedString("└─────────────────────────────────────────────────────────────────────────┘"))
		}

		fmt.Fprintf(os.Stderr, "%s %s %s %s\n",
			color.CyanString("Executing fleetrun with build"),
			color.GreenString("version=%s", build_info.Version),
			color.YellowString("commit=%s", build_info.Commit),
			color.BlueString("date=%s", build_info.Date))

		if err := checkWritePermissions(); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", color.RedString("Error: %v", err))
			os.Exit(1)
		}
	},
}

func init() {
	cobra.EnableTraverseRunHooks = true

	lumberjackLogger := &lumberjack.Logger{
		Filename: "fleetrun.log",
		MaxSize:  25,
		Compress: true,
	}
	opts := PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}
	handler := NewPrettyHandler(io.MultiWriter(lumberjackLogger, os.Stderr), opts)
	logger := slog.New(handler)

	slog.SetDefault(logger)

	RootCmd.AddCommand(
		dispatch.NewDispatchCmd(),
		targets.NewTargetsCmd(),
		monitor.NewMonitorCmd(),
		scaffold.NewScaffoldCmd(),
		version.NewVersionCmd(),
		update.NewUpdateCmd(),
	)
}

type PrettyHandlerOptions struct {
	SlogOpts slog.HandlerOptions
}

type PrettyHandler struct {
	slog.Handler
	l *log.Logger
}

func getDocURL() string {
	if build_info.Version == build_info.DefaultDevVersion {
		return "https://github.com/fleetrun/fleetrun/tree/latest/docs"
	}
	return "https://github.com/fleetrun/fleetrun/tree/v" + build_info.Version + "/docs"
}

func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	time := r.Time.Format("2006/01/02 15:04:05")
	level := r.Level.String()
	message := r.Message

	values := []string{}
	r.Attrs(func(a slog.Attr) bool {
		values = append(values, fmt.Sprintf("%s=%v", a.Key, a.Value.Any()))
		return true
	})

	h.l.Printf("%s %s %s %s", time, level, message, strings.Join(values, " "))

	return nil
}

func NewPrettyHandler(
	out io.Writer,
	opts PrettyHandlerOptions,
) *PrettyHandler {
	h := &PrettyHandler{
		Handler: slog.NewTextHandler(out, &opts.SlogOpts),
		l:       log.New(out, "", 0),
	}

	return h
}

func checkWritePermissions() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current working directory: %w", err)
	}

	testFile, err := os.CreateTemp(cwd, ".fleetrun-write-test-*")
	if err != nil {
		return fmt.Errorf("current working directory '%s' does not have write permissions for the current user", cwd)
	}

	// Defer works on a LIFO execution order.
	defer os.Remove(testFile.Name())
	defer testFile.Close()

	return nil
}
