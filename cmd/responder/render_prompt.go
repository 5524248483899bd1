package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/swarmworks/responder/engine/llm/prompt"
	"github.com/swarmworks/responder/engine/swarm"
	"github.com/swarmworks/responder/pkg/config"
	"github.com/swarmworks/responder/pkg/logger"
)

func RenderPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render-prompt",
		Short: "Render the system message for a response context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			contextPath, err := cmd.Flags().GetString("context")
			if err != nil {
				return fmt.Errorf("failed to get context flag: %w", err)
			}
			templateID, err := cmd.Flags().GetString("template")
			if err != nil {
				return fmt.Errorf("failed to get template flag: %w", err)
			}
			out, err := renderPrompt(cmd.Context(), contextPath, templateID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().String("context", "", "YAML file holding the response context")
	cmd.Flags().String("template", "", "Template identifier relative to the template directory")
	_ = cmd.MarkFlagRequired("context")
	return cmd
}

func renderPrompt(ctx context.Context, contextPath, templateID string) (string, error) {
	cfg := config.FromContext(ctx)
	rc, err := loadResponseContext(contextPath)
	if err != nil {
		return "", err
	}
	templates, err := prompt.NewTemplateStoreFromConfig(&cfg.Prompt)
	if err != nil {
		return "", fmt.Errorf("failed to open templates: %w", err)
	}
	opts := []prompt.Option{}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password.Value(),
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		store := swarm.NewRedisStore(client, swarm.WithKeyPrefix(cfg.Redis.KeyPrefix), swarm.WithTTL(cfg.Redis.StateTTL))
		opts = append(opts, prompt.WithSwarmStore(store))
		logger.FromContext(ctx).Debug("Using redis swarm state", "addr", cfg.Redis.Addr)
	}
	builder, err := prompt.NewBuilder(templates, &cfg.Prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create prompt builder: %w", err)
	}
	return builder.BuildSystemMessage(ctx, prompt.PromptContext{Response: rc}, &prompt.BuildOptions{
		TemplateIdentifier: templateID,
	})
}
