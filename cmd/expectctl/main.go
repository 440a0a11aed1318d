// Command expectctl is a thin demonstration CLI over the session engine;
// the engine itself has no CLI of its own (§6) and is meant to be driven
// as a library — this just exercises it end to end.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/tassie-labs/expect/autoconfig"
	"github.com/tassie-labs/expect/pattern"
	"github.com/tassie-labs/expect/session"
)

func main() {
	root := &cobra.Command{
		Use:   "expectctl",
		Short: "expectctl — drive an interactive program from the command line",
		Long:  "A demonstration harness over the expect/session engine: spawn a program, wait for patterns, send input.",
	}

	root.AddCommand(runCmd(), expectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "run [command] [args...]",
		Short: "Spawn a command and stream its output until it exits",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b := autoconfig.QuickBuilder(args[0]).DefaultTimeout(timeout)
			if len(args) > 1 {
				b = b.Args(args[1:]...)
			}
			sess, err := b.Build()
			if err != nil {
				return fmt.Errorf("spawn: %w", err)
			}
			defer sess.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			ch, unsubscribe := sess.Subscribe()
			defer unsubscribe()
			for {
				select {
				case p, ok := <-ch:
					if !ok {
						return nil
					}
					os.Stdout.Write(p)
				case <-ctx.Done():
					return sess.Kill()
				}
				if sess.State() == session.Exited {
					return nil
				}
			}
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "default expect timeout")
	return cmd
}

func expectCmd() *cobra.Command {
	var timeout time.Duration
	var regex bool
	cmd := &cobra.Command{
		Use:   "expect [command] [pattern]",
		Short: "Spawn a command and block until pattern appears (or timeout)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := autoconfig.QuickBuilder(args[0]).DefaultTimeout(timeout).Build()
			if err != nil {
				return fmt.Errorf("spawn: %w", err)
			}
			defer sess.Close()

			var p pattern.Pattern
			if regex {
				p = pattern.NewRegex(args[1])
			} else {
				p = pattern.NewLiteral(args[1])
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			m, err := sess.Expect(ctx, p)
			if err != nil {
				return err
			}
			fmt.Printf("matched: %q\n", string(m.Matched))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "expect timeout")
	cmd.Flags().BoolVar(&regex, "regex", false, "treat pattern as a regular expression")
	return cmd
}
