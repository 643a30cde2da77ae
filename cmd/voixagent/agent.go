package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/voixagent/voixagent/config"
	"github.com/voixagent/voixagent/plugin"
	"github.com/voixagent/voixagent/plugin/builtin"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/resolver"
	"github.com/voixagent/voixagent/util"
)

// agentFiles opens the agent document and the layered source over it, with
// the document loaded once.
func agentFiles(flags *globalFlags) (*config.Store, *config.Layered, error) {
	cfg, err := flags.load()
	if err != nil {
		return nil, nil, err
	}
	env, err := config.FromEnv(os.LookupEnv)
	if err != nil {
		return nil, nil, err
	}
	layered := config.NewLayered(env)
	store := config.NewStore(cfg.AgentFile, config.WithDefaults(layered.Base()))
	doc, err := store.Load()
	if err != nil {
		return nil, nil, err
	}
	layered.SetDocument(doc)
	return store, layered, nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// --- config ---

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the agent configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective agent configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, layered, err := agentFiles(flags)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# document: %s\n", store.Path())
			return writeYAML(cmd.OutOrStdout(), layered.Current().Redacted())
		},
	})

	var out string
	template := &cobra.Command{
		Use:   "template",
		Short: "Write a starter agent document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return writeYAML(cmd.OutOrStdout(), config.Template())
			}
			if err := config.NewStore(out).Save(config.Template()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", out)
			return nil
		},
	}
	template.Flags().StringVar(&out, "out", "", "Write to this path instead of stdout")
	cmd.AddCommand(template)
	return cmd
}

// --- providers ---

func newProvidersCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List or select providers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered providers and the current selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, layered, err := agentFiles(flags)
			if err != nil {
				return err
			}
			agent := layered.Current()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CAPABILITY\tPROVIDER\tCREDENTIAL\tREADY\tSELECTED")
			for _, info := range resolver.DefaultCatalog().Describe(os.LookupEnv) {
				selected := ""
				if agent.Spec(info.Capability).Provider == info.Name {
					selected = "*"
				}
				cred := info.CredentialEnv
				if info.Builtin {
					cred = "(built-in)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", info.Capability.ConfigKey(), info.Name, cred, info.Ready, selected)
			}
			return tw.Flush()
		},
	})

	var (
		spec        provider.Spec
		temperature float64
	)
	set := &cobra.Command{
		Use:   "set <stt|llm|tts> <provider>",
		Short: "Select the provider for a capability",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			capability, err := provider.ParseCapability(args[0])
			if err != nil {
				return err
			}
			if !resolver.DefaultCatalog().Has(capability, args[1]) {
				return fmt.Errorf("unknown %s provider %q", capability.ConfigKey(), args[1])
			}
			store, _, err := agentFiles(flags)
			if err != nil {
				return err
			}
			spec.Provider = args[1]
			if cmd.Flags().Changed("temperature") {
				spec.Temperature = provider.Float64(temperature)
			}
			if err := store.SetProvider(capability, spec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s provider set to %s\n", capability.ConfigKey(), args[1])
			if spec.APIKey != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "api key stored as %s\n", util.MaskSecret(spec.APIKey, 4))
			}
			return nil
		},
	}
	set.Flags().StringVar(&spec.Model, "model", "", "Model name")
	set.Flags().StringVar(&spec.CredentialRef, "credential-ref", "", "Environment variable holding the API key")
	set.Flags().StringVar(&spec.APIKey, "api-key", "", "Literal API key stored in the document")
	set.Flags().StringVar(&spec.Voice, "voice", "", "Voice for synthesis")
	set.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature for generation")
	cmd.AddCommand(set)
	return cmd
}

// --- plugins ---

func newPluginsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Manage the plugin pipeline",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List bundled plugins and the configured pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, layered, err := agentFiles(flags)
			if err != nil {
				return err
			}
			reg, err := builtin.NewRegistry(builtin.Options{})
			if err != nil {
				return err
			}
			return printPlugins(cmd.OutOrStdout(), reg, layered.Current().Plugins)
		},
	})

	var pairs []string
	enable := &cobra.Command{
		Use:   "enable <name>",
		Short: "Enable a plugin, appending it to the pipeline when absent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pluginCfg, err := parseKeyValues(pairs)
			if err != nil {
				return err
			}
			store, _, err := agentFiles(flags)
			if err != nil {
				return err
			}
			if reg, err := builtin.NewRegistry(builtin.Options{}); err == nil && !reg.Has(args[0]) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %q is not a bundled plugin; sessions will skip it\n", args[0])
			}
			if err := store.EnablePlugin(args[0], pluginCfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plugin %s enabled\n", args[0])
			return nil
		},
	}
	enable.Flags().StringArrayVar(&pairs, "config", nil, "Plugin setting as key=value (repeatable)")
	cmd.AddCommand(enable)

	cmd.AddCommand(&cobra.Command{
		Use:   "disable <name>",
		Short: "Disable a plugin, keeping its settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := agentFiles(flags)
			if err != nil {
				return err
			}
			if err := store.DisablePlugin(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plugin %s disabled\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a plugin from the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := agentFiles(flags)
			if err != nil {
				return err
			}
			if err := store.RemovePlugin(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plugin %s removed\n", args[0])
			return nil
		},
	})
	return cmd
}

func printPlugins(w io.Writer, reg *plugin.Registry, entries []config.PluginEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLUGIN\tENABLED\tCONFIG")
	for i, e := range entries {
		name := e.Name
		if !reg.Has(name) {
			name += " (unknown)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%t\t%s\n", i+1, name, e.Enabled, formatPluginConfig(e.Config))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nAvailable:")
	for _, info := range reg.List() {
		line := fmt.Sprintf("  %-22s %s", info.Name, info.Description)
		if len(info.Aliases) > 0 {
			line += " (aliases: " + strings.Join(info.Aliases, ", ") + ")"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func formatPluginConfig(cfg map[string]any) string {
	if len(cfg) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(cfg))
	for _, k := range util.SortedKeys(cfg) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, cfg[k]))
	}
	return strings.Join(parts, " ")
}

// parseKeyValues turns key=value pairs into plugin settings. Values are
// decoded as YAML scalars or flow sequences, so "strict=true" is a bool and
// "words=[spam, scam]" a list.
func parseKeyValues(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --config %q, expected key=value", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		if value == nil {
			value = ""
		}
		out[key] = value
	}
	return out, nil
}
