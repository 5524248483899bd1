package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swarmworks/responder/engine/llm/model"
	"github.com/swarmworks/responder/engine/llm/network"
	"github.com/swarmworks/responder/pkg/config"
)

func SelectModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select-model",
		Short: "Probe connectivity and print the model chosen for a response context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			contextPath, err := cmd.Flags().GetString("context")
			if err != nil {
				return fmt.Errorf("failed to get context flag: %w", err)
			}
			rc, err := loadResponseContext(contextPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			monitor := network.NewHTTPMonitor(&cfg.Network)
			state := monitor.Refresh(ctx)
			selector := model.NewSelector(
				monitor,
				model.NewStaticRegistry(model.DefaultModels()...),
				model.WithDefaults(&cfg.Model),
			)
			_, err = fmt.Fprintf(
				cmd.OutOrStdout(),
				"online=%t cloud=%t local=%t model=%s\n",
				state.IsOnline,
				state.CloudServicesReachable,
				state.LocalServicesReachable,
				selector.SelectModel(ctx, rc),
			)
			return err
		},
	}
	cmd.Flags().String("context", "", "YAML file holding the response context")
	_ = cmd.MarkFlagRequired("context")
	return cmd
}
