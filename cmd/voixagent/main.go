// Command voixagent runs the voice agent server and edits its agent
// configuration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	envFile    string
	agentFile  string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   serviceName,
		Short: "Voice agent runtime with pluggable providers",
		Long: `voixagent runs voice conversations: each session transcribes what the
participant says, passes it through a plugin pipeline, generates a reply and
speaks it back. Providers and plugins are selected per session from a layered
agent configuration.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "Path to the service config file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Path to a .env file")
	root.PersistentFlags().StringVar(&flags.agentFile, "agent-config", "", "Path to the agent document (overrides agent_file)")

	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newChatCmd(flags))
	root.AddCommand(newConfigCmd(flags))
	root.AddCommand(newProvidersCmd(flags))
	root.AddCommand(newPluginsCmd(flags))
	root.AddCommand(newVersionCmd())
	return root
}

// load reads the service configuration and applies the agent file flag.
func (f *globalFlags) load() (*AppConfig, error) {
	cfg, err := loadAppConfig(f.configFile, f.envFile)
	if err != nil {
		return nil, err
	}
	if f.agentFile != "" {
		cfg.AgentFile = f.agentFile
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
