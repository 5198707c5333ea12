package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dekkov/FaaSr-cli/internal/dispatch"
	"github.com/dekkov/FaaSr-cli/internal/payload"
	"github.com/dekkov/FaaSr-cli/internal/workflow"
)

func payloadCmd() *cobra.Command {
	var (
		workflowFile string
		function     string
		mode         string
	)

	cmd := &cobra.Command{
		Use:   "payload",
		Short: "Print the payload a trigger would send, without sending it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			doc, fn, err := loadWorkflow(workflowFile, function)
			if err != nil {
				return err
			}
			creds := credentialSource(cfg)

			var (
				body   workflow.Document
				inject bool
			)
			switch mode {
			case "":
				var b dispatch.Backend
				body, b, err = newDispatcher(cfg, creds).Payload(doc, fn)
				if err != nil {
					return err
				}
				inject = b.Mode() == payload.Inject
			case "mask":
				body = payload.NewBuilder(creds, cfg.ObjectStore).Build(doc, payload.Mask)
			case "inject":
				body = payload.NewBuilder(creds, cfg.ObjectStore).Build(doc, payload.Inject)
				inject = true
			default:
				return fmt.Errorf("invalid mode: %s (valid: mask, inject)", mode)
			}
			if inject {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: output contains live credentials")
			}

			data, err := json.MarshalIndent(body, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal payload: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&workflowFile, "workflow-file", "w", "", "Path to the workflow file (JSON, YAML or TOML)")
	cmd.Flags().StringVarP(&function, "function", "f", "", "Function to resolve (overrides FunctionInvoke)")
	cmd.Flags().StringVar(&mode, "mode", "", "Payload mode (mask, inject); default is the backend's own mode")
	cmd.MarkFlagRequired("workflow-file")

	return cmd
}
