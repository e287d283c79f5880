package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rhuss/morpheus/pkg/config"
	"github.com/rhuss/morpheus/pkg/debug"
	"github.com/rhuss/morpheus/pkg/plugin"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	envFiles   []string
	system     string
	verbose    bool
	noColor    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "morpheus",
		Short: "Run Morpheus plugin capabilities from the command line",
		Long: `morpheus loads the Morpheus inference plugin as an agent runtime would and
invokes one capability per command: text generation, structured object
generation or text embedding.

Settings resolve from the environment first, then the config file
(--config, $MORPHEUS_CONFIG, or morpheus.yaml/morpheus.toml in the working
directory), then any --env-file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if g.noColor {
				color.NoColor = true
			}
			srcs, err := g.sources()
			if err != nil {
				return err
			}
			cfg := config.Load(append([]config.Source{g.runtime(), config.EnvSource()}, srcs...)...)
			debug.InitWriter(cmd.ErrOrStderr(), cfg.DebugCategories, cfg.LogLevel)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configFile, "config", "c", "", "YAML or TOML settings file")
	pf.StringSliceVar(&g.envFiles, "env-file", nil, "dotenv file with settings (repeatable)")
	pf.StringVar(&g.system, "system", "", "system prompt (default: plugin default)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging for all categories")
	pf.BoolVar(&g.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newCheckCmd(g),
		newTextCmd(g),
		newObjectCmd(g),
		newEmbedCmd(g),
		newVersionCmd(),
	)
	return root
}

// sources builds the extra setting sources selected by the flags.
func (g *globalFlags) sources() ([]config.Source, error) {
	var srcs []config.Source
	if path := config.DiscoverFile(g.configFile); path != "" {
		src, err := config.FileSource(path)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	if len(g.envFiles) > 0 {
		src, err := config.DotEnvSource(g.envFiles...)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}

// runtime is the host runtime the CLI hands to the plugin. --verbose is
// expressed as runtime settings so it outranks every other source.
func (g *globalFlags) runtime() plugin.StaticRuntime {
	rt := plugin.StaticRuntime{System: g.system}
	if g.verbose {
		rt.Settings = map[string]string{
			config.KeyLogLevel: "DEBUG",
			config.KeyDebug:    "all",
		}
	}
	return rt
}

// load creates and initializes the plugin the way a host would.
func (g *globalFlags) load(cmd *cobra.Command) (*plugin.Plugin, plugin.Runtime, error) {
	srcs, err := g.sources()
	if err != nil {
		return nil, nil, err
	}
	p := plugin.New(plugin.WithSources(srcs...))
	rt := g.runtime()
	if err := p.Init(cmd.Context(), nil, rt); err != nil {
		return nil, nil, err
	}
	return p, rt, nil
}

// promptArg joins the positional arguments, or reads stdin when there are none.
func promptArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("no input: pass it as arguments or on stdin")
	}
	return prompt, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "morpheus plugin %s\n", plugin.Version)
		},
	}
}
