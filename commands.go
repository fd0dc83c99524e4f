package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/surfdist/pkg/script"
)

// Version is set at build time.
var Version = "dev"

// CLI is the surfdist command tree.
type CLI struct {
	rootCmd *cobra.Command
	stderr  io.Writer

	logLevel string
}

// NewCLI builds the command tree.
func NewCLI() *CLI {
	rootCmd := &cobra.Command{
		Use:           "surfdist",
		Short:         "Bounded surface distances over mesh cages",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	c := &CLI{rootCmd: rootCmd, stderr: os.Stderr}
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(c.newEvalCmd())
	rootCmd.AddCommand(c.newVersionCmd())
	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
	c.stderr = err
}

func (c *CLI) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return nil, fmt.Errorf("log-level: %w", err)
	}
	return slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level})), nil
}

func (c *CLI) newEvalCmd() *cobra.Command {
	var (
		format  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "eval <file>",
		Short: "Evaluate a script and print its distance queries",
		Long: "Evaluate a surfdist script. Use - to read the script from stdin.\n" +
			"The document summary and every distance query are printed as YAML or JSON.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != FormatYAML && format != FormatJSON {
				return fmt.Errorf("unknown output format %q, expected yaml or json", format)
			}
			log, err := c.logger()
			if err != nil {
				return err
			}

			var src []byte
			if args[0] == "-" {
				src, err = io.ReadAll(cmd.InOrStdin())
			} else {
				src, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}

			app := NewApp(log, script.WithTimeout(timeout))
			result := app.Evaluate(cmd.Context(), string(src))
			result.Source = args[0]
			if err := Encode(cmd.OutOrStdout(), result, format); err != nil {
				return err
			}
			if n := len(result.Errors); n > 0 {
				return fmt.Errorf("%s: evaluation failed with %d error(s)", args[0], n)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", FormatYAML, "Output format (yaml or json)")
	cmd.Flags().DurationVar(&timeout, "timeout", script.EvalTimeout, "Evaluation time limit")
	return cmd
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "surfdist version %s\n", Version)
		},
	}
}
