package main

import (
	"github.com/urfave/cli/v3"
)

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the configuration file",
		Value:   "config.toml",
	}
}

func jsonFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Emit machine-readable JSON output",
	}
}

func prettyFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "pretty",
		Usage: "Indent JSON output",
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the configuration file and initialize the settings store",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Override the configured listen host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Override the configured listen port",
			},
		},
		Action: r.Serve,
	}
}

func providersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "providers",
		Usage: "Inspect and control the provider selection",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List registered providers and their capabilities",
				Flags:  []cli.Flag{jsonFlag(), prettyFlag()},
				Action: r.ProvidersList,
			},
			{
				Name:      "switch",
				Usage:     "Switch the active provider",
				ArgsUsage: "<provider-id>",
				Action:    r.ProvidersSwitch,
			},
			{
				Name:      "fallback",
				Usage:     "Set the fallback provider order",
				ArgsUsage: "<provider-id> [provider-id...]",
				Action:    r.ProvidersFallback,
			},
			{
				Name:   "selection",
				Usage:  "Show the provider selection currently in effect",
				Flags:  []cli.Flag{jsonFlag(), prettyFlag()},
				Action: r.ProvidersSelection,
			},
			{
				Name:   "apply",
				Usage:  "Resolve the stored configuration and activate it",
				Flags:  []cli.Flag{jsonFlag(), prettyFlag()},
				Action: r.ProvidersApply,
			},
		},
	}
}

func authCommand(r *Runner) *cli.Command {
	providerFlag := &cli.StringFlag{
		Name:    "provider",
		Aliases: []string{"p"},
		Usage:   "Provider ID, defaults to the active provider",
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Manage provider authentication",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the login status of a provider",
				Flags:  []cli.Flag{providerFlag, jsonFlag(), prettyFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:      "import",
				Usage:     "Import credentials from a cURL command file",
				ArgsUsage: "<curl-file>",
				Flags:     []cli.Flag{providerFlag},
				Action:    r.AuthImport,
			},
			{
				Name:   "logout",
				Usage:  "Clear the stored credentials of a provider",
				Flags:  []cli.Flag{providerFlag},
				Action: r.AuthLogout,
			},
		},
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search songs on the active provider",
		ArgsUsage: "<keyword>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "page", Value: 1, Usage: "Result page"},
			&cli.IntFlag{Name: "num", Value: 10, Usage: "Results per page"},
			jsonFlag(), prettyFlag(),
		},
		Action: r.Search,
	}
}

func playCommand(r *Runner) *cli.Command {
	nameFlag := &cli.StringFlag{
		Name:  "name",
		Usage: "Song name, enables cross-provider fallback",
	}
	singerFlag := &cli.StringFlag{
		Name:  "singer",
		Usage: "Singer name, improves fallback matching",
	}

	return &cli.Command{
		Name:  "play",
		Usage: "Resolve playable URLs and lyrics",
		Commands: []*cli.Command{
			{
				Name:      "url",
				Usage:     "Resolve a playable URL for a song",
				ArgsUsage: "<mid>",
				Flags: []cli.Flag{
					nameFlag, singerFlag,
					&cli.StringFlag{Name: "quality", Value: "auto", Usage: "Quality profile: auto, high, balanced or compat"},
					jsonFlag(), prettyFlag(),
				},
				Action: r.PlayURL,
			},
			{
				Name:      "lyric",
				Usage:     "Fetch lyrics for a song",
				ArgsUsage: "<mid>",
				Flags: []cli.Flag{
					nameFlag, singerFlag,
					&cli.BoolFlag{Name: "qrc", Usage: "Request word-level lyrics when available"},
					jsonFlag(), prettyFlag(),
				},
				Action: r.PlayLyric,
			},
		},
	}
}

func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Inspect the persisted frontend settings",
		Commands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "Print the stored frontend settings",
				Flags:  []cli.Flag{prettyFlag()},
				Action: r.SettingsGet,
			},
			{
				Name:   "clear",
				Usage:  "Delete the stored frontend settings",
				Action: r.SettingsClear,
			},
		},
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive terminal UI",
		Flags:  []cli.Flag{configFlag()},
		Action: r.TUI,
	}
}
