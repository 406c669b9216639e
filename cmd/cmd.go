// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// traceFlags are shared by every command that follows a trace.
func traceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "domain",
			Usage: "Host serving the trace websocket (default: server.domain from config)",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "Connect with ws:// instead of wss://",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Render progress in the terminal UI instead of log lines",
			Value: true,
		},
	}
}

// waitCommand follows an existing trace.
func waitCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "wait",
		Usage: "Wait for a trace to complete while showing its progress",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "pbar",
				Usage:    "Name of the progress bar",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "uid",
				Usage:    "Trace identifier",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "sub",
				Usage:    "Account identifier owning the progress bar",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "poll-url",
				Usage: "URL returning JSON with a \"status\" field, checked when the stream stays unreachable",
			},
		}, traceFlags()...),
		Action: r.Wait,
	}
}

// jobCommand creates an example job and follows it.
func jobCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "job",
		Usage: "Create an example job and wait for it",
		Flags: append([]cli.Flag{
			&cli.FloatFlag{
				Name:  "duration",
				Usage: "Expected job duration in seconds",
				Value: 10,
			},
			&cli.FloatFlag{
				Name:  "stdev",
				Usage: "Standard deviation of the actual duration in seconds",
				Value: 2,
			},
			&cli.IntFlag{
				Name:  "count",
				Usage: "Number of jobs to create and follow",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Jobs followed concurrently when --count is above 1",
				Value: 3,
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print the job result",
				Value: true,
			},
		}, traceFlags()...),
		Action: r.Job,
	}
}

// historyCommand lists recorded subscriptions.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "history",
		Aliases: []string{"ls"},
		Usage:   "List traces waited on from this machine",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of records to return",
				Value: 20,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: json, csv, markdown, txt",
				Value:   "txt",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only show records with this status (pending, complete, failed, closed)",
			},
			&cli.StringFlag{
				Name:  "pbar",
				Usage: "Only show records for this progress bar",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
		},
		Action: r.History,
	}
}

// serveCommand runs the local development server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a local trace and example job server for development",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: serve.host from config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default: serve.port from config)",
			},
			&cli.IntFlag{
				Name:  "drop-every",
				Usage: "Abnormally close every Nth trace connection to exercise reconnects",
			},
		},
		Action: r.Serve,
	}
}

// apiCommand handles direct job API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the example job API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints the response body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON responses",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON body to send",
						Value:   "{}",
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// setupCommand creates the config file and the history database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and run database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (default: $EZPBARS_CONFIG or config.toml)",
			},
			&cli.BoolFlag{
				Name:  "status",
				Usage: "Show applied and pending migrations",
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration instead of applying pending ones",
			},
		},
		Action: r.Setup,
	}
}
