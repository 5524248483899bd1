package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/swarmworks/responder/engine/conversation"
	"github.com/swarmworks/responder/pkg/config"
	"github.com/swarmworks/responder/pkg/logger"
)

const defaultConfigFile = "responder.yaml"

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "responder",
		Short:         "Agent response orchestration tools",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}
	root.PersistentFlags().String("config", defaultConfigFile, "Path to the configuration file")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error, disabled)")
	root.PersistentFlags().Bool("log-json", false, "Emit logs as JSON")
	root.PersistentFlags().Bool("log-source", false, "Include source location in logs")

	root.AddCommand(
		RenderPromptCmd(),
		SelectModelCmd(),
	)
	return root
}

// SetupGlobalConfig loads configuration from the YAML file, environment and
// flags, configures the default logger and stores both in the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	sources := []config.Source{}
	if path != "" {
		sources = append(sources, config.NewYAMLProvider(path))
	}
	overrides, err := flagOverrides(cmd)
	if err != nil {
		return err
	}
	sources = append(sources, config.NewCLIProvider(overrides))

	ctx := cmd.Context()
	cfg, err := config.NewService().Load(ctx, sources...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.SetupLogger(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Source)
	log := logger.GetDefault()
	log.Debug("Configuration loaded", "config_file", path)

	ctx = config.ContextWithConfig(ctx, cfg)
	ctx = logger.ContextWithLogger(ctx, log)
	cmd.SetContext(ctx)
	return nil
}

// flagOverrides collects explicitly set logging flags as config keys.
func flagOverrides(cmd *cobra.Command) (map[string]any, error) {
	out := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		level, err := flags.GetString("log-level")
		if err != nil {
			return nil, fmt.Errorf("failed to get log-level flag: %w", err)
		}
		out["log.level"] = level
	}
	if flags.Changed("log-json") {
		v, err := flags.GetBool("log-json")
		if err != nil {
			return nil, fmt.Errorf("failed to get log-json flag: %w", err)
		}
		out["log.json"] = v
	}
	if flags.Changed("log-source") {
		v, err := flags.GetBool("log-source")
		if err != nil {
			return nil, fmt.Errorf("failed to get log-source flag: %w", err)
		}
		out["log.source"] = v
	}
	return out, nil
}

func loadResponseContext(path string) (*conversation.ResponseContext, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}
	var rc conversation.ResponseContext
	if err := yaml.Unmarshal(raw, &rc); err != nil {
		return nil, fmt.Errorf("failed to parse context file %s: %w", path, err)
	}
	return &rc, nil
}
