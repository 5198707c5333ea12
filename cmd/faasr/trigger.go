package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dekkov/FaaSr-cli/internal/dispatch"
	"github.com/dekkov/FaaSr-cli/internal/logging"
	"github.com/dekkov/FaaSr-cli/internal/observability"
	"github.com/dekkov/FaaSr-cli/internal/workflow"
)

func triggerCmd() *cobra.Command {
	var (
		workflowFile string
		function     string
	)

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Trigger the workflow's FunctionInvoke on its FaaS backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := observability.Init(ctx, cfg.Telemetry); err != nil {
				logging.Op().Warn("tracing disabled", "error", err)
			}
			defer observability.Shutdown(context.Background())

			doc, fn, err := loadWorkflow(workflowFile, function)
			if err != nil {
				return err
			}

			recorder := logging.NewRecorder(cmd.OutOrStdout())
			if cfg.Log.File != "" {
				if err := recorder.SetOutput(cfg.Log.File); err != nil {
					return err
				}
			}
			defer recorder.Close()

			pm := newMetrics(cfg)
			d := newDispatcher(cfg, credentialSource(cfg),
				dispatch.WithRecorder(recorder),
				dispatch.WithMetrics(pm),
			)

			fmt.Fprintf(cmd.OutOrStdout(), "Triggering function '%s'...\n", fn)
			res, dispatchErr := d.Dispatch(ctx, doc, fn)

			if err := pm.Push(context.Background(), cfg.Metrics.Pushgateway, cfg.Metrics.Job); err != nil {
				logging.Op().Warn("metrics push failed", "error", err)
			}
			if dispatchErr != nil {
				return dispatchErr
			}

			printResult(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&workflowFile, "workflow-file", "w", "", "Path to the workflow file (JSON, YAML or TOML)")
	cmd.Flags().StringVarP(&function, "function", "f", "", "Function to trigger (overrides FunctionInvoke)")
	cmd.MarkFlagRequired("workflow-file")

	return cmd
}

func printResult(cmd *cobra.Command, res *dispatch.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Function triggered:\n")
	fmt.Fprintf(out, "  Dispatch:  %s\n", res.DispatchID)
	fmt.Fprintf(out, "  Function:  %s\n", res.Function)
	fmt.Fprintf(out, "  Server:    %s (%s)\n", res.Server, res.Backend)
	fmt.Fprintf(out, "  Status:    %d\n", res.StatusCode)
	if res.ActivationID != "" {
		fmt.Fprintf(out, "  Activation: %s\n", res.ActivationID)
	}
	if res.Backend == workflow.FaaSTypeLambda || res.Backend == workflow.FaaSTypeOpenWhisk {
		fmt.Fprintf(out, "  Note:      invocation accepted and running asynchronously; check the backend's logs for its outcome\n")
	}
}
