package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/hook"
)

// errHandlersFailed reports that an asynchronous pass captured failures.
var errHandlersFailed = errors.New("handlers failed")

type runOptions struct {
	sync    bool
	timeout time.Duration
}

// runOutput is the JSON document printed after a pass.
type runOutput struct {
	Hook   string            `json:"hook"`
	Mode   string            `json:"mode"`
	Fields map[string]any    `json:"fields"`
	Errors map[string]string `json:"errors,omitempty"`
}

func newRunCmd(s *session) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <hook> [params...]",
		Short: "Dispatch a hook and print the resulting context",
		Long: `Dispatch a hook through every registered handler of the selected kind.

Params are passed to handlers as strings. The context fields left by the
handlers are printed as JSON. Asynchronous failures do not stop the pass;
each one is listed under "errors". A synchronous failure stops the pass.

Examples:
  hookctl run user.save alice              # Asynchronous pass
  hookctl run --sync user.validate alice   # Synchronous, fail-fast pass
  hookctl run --timeout 2s report.build    # Stop waiting after 2s`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHook(cmd.Context(), cmd.OutOrStdout(), s.hooks, args[0], args[1:], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.sync, "sync", false, "Run synchronous handlers (fail-fast)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Stop waiting for an asynchronous pass after this long (0 waits forever)")

	return cmd
}

func runHook(ctx context.Context, w io.Writer, hooks *hook.Hooks, name string, args []string, opts *runOptions) error {
	params := make([]any, len(args))
	for i, a := range args {
		params[i] = a
	}

	if opts.sync {
		hc, err := hooks.RunSync(ctx, name, params...)
		if hc == nil {
			return err
		}
		out := runOutput{Hook: name, Mode: hook.KindSync.String(), Fields: hc.Fields()}
		var herr *hook.HandlerError
		var perr *hook.PanicError
		switch {
		case errors.As(err, &herr):
			out.Errors = map[string]string{herr.HandlerID: herr.Err.Error()}
		case errors.As(err, &perr):
			out.Errors = map[string]string{perr.HandlerID: fmt.Sprint(perr.Value)}
		}
		if werr := writeJSON(w, out); werr != nil {
			return werr
		}
		return err
	}

	waitCtx := ctx
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	hc, errs, err := hooks.Go(ctx, name, params...).Wait(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("hook %q: still running after %s: %w", name, opts.timeout, err)
		}
		return err
	}

	out := runOutput{Hook: name, Mode: hook.KindAsync.String(), Fields: hc.Fields()}
	if !errs.Empty() {
		out.Errors = make(map[string]string, errs.Len())
		errs.Each(func(id string, failure error) {
			out.Errors[id] = failure.Error()
		})
	}
	if err := writeJSON(w, out); err != nil {
		return err
	}
	if !errs.Empty() {
		return fmt.Errorf("hook %q: %d %w", errs.Hook(), errs.Len(), errHandlersFailed)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
