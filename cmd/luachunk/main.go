package main

import (
	"strings"

	"github.com/deepnoodle-ai/luachunk"
	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
)

// app holds the state shared by all subcommands of one invocation.
type app struct {
	v   *viper.Viper
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zerolog.Nop()}

	root := &cobra.Command{
		Use:           "luachunk",
		Short:         "Inspect, verify and convert Lua 5.1 and 5.3 binary chunks",
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default is $HOME/.luachunk.yaml)")
	pf.Bool("no-color", false, "disable colored output")
	pf.String("log-level", "warn", "log level: trace, debug, info, warn or error")
	pf.Int("max-depth", 200, "maximum function nesting depth")

	root.AddCommand(
		a.infoCmd(),
		a.dumpCmd(),
		a.convertCmd(),
		a.verifyCmd(),
	)
	return root
}

// setup binds flags, environment and the config file into viper, then
// applies the global settings.
func (a *app) setup(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	a.v.SetEnvPrefix("LUACHUNK")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.readConfig(); err != nil {
		return err
	}
	if a.v.GetBool("no-color") {
		color.NoColor = true
	}

	level, err := zerolog.ParseLevel(a.v.GetString("log-level"))
	if err != nil {
		return err
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{
		Out:     cmd.ErrOrStderr(),
		NoColor: color.NoColor,
	}).Level(level).With().Timestamp().Logger()
	return nil
}

func (a *app) readConfig() error {
	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		return a.v.ReadInConfig()
	}
	home, err := homedir.Dir()
	if err != nil {
		// No home directory means no default config file.
		return nil
	}
	a.v.AddConfigPath(home)
	a.v.SetConfigName(".luachunk")
	a.v.SetConfigType("yaml")
	if err := a.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}
	a.log.Debug().Str("file", a.v.ConfigFileUsed()).Msg("loaded config")
	return nil
}

// options returns the codec options derived from the global flags.
func (a *app) options() []luachunk.Option {
	return []luachunk.Option{
		luachunk.WithLogger(a.log),
		luachunk.WithMaxDepth(a.v.GetInt("max-depth")),
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fatal(err)
	}
}
