package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	commands "github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &commands.Command{
		Name:  "rsverify",
		Usage: "Verify a MongoDB replica set running on Kubernetes",
		Flags: []commands.Flag{
			&commands.StringFlag{
				Name:  "config",
				Usage: "YAML configuration file",
			},
			&commands.StringFlag{
				Name:    "namespace",
				Aliases: []string{"n"},
				Usage:   "namespace of the replica set",
			},
			&commands.StringFlag{
				Name:  "app",
				Usage: "name of the MongoDBCommunity resource",
			},
			&commands.StringFlag{
				Name:  "kubeconfig",
				Usage: "kubeconfig file, defaults to ~/.kube/config",
			},
			&commands.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log at debug level",
			},
		},
		Commands: []*commands.Command{
			{
				Name:   "deploy",
				Usage:  "Deploy the replica set and check it comes up",
				Action: runScenarios("deploy"),
			},
			{
				Name:   "status",
				Usage:  "Show the members of the replica set",
				Action: showStatus,
			},
			{
				Name:  "scale",
				Usage: "Add or remove members and check the membership",
				Flags: []commands.Flag{
					&commands.IntFlag{
						Name:     "by",
						Usage:    "number of members to add, negative to remove",
						Required: true,
					},
				},
				Action: scaleBy,
			},
			{
				Name:   "reelect",
				Usage:  "Delete the primary's pod and check another member is elected",
				Action: runScenarios("reelection"),
			},
			{
				Name:  "isolate",
				Usage: "Cut the primary off the network and check another member is elected",
				Flags: []commands.Flag{
					&commands.DurationFlag{
						Name:  "dwell",
						Usage: "how long to keep the primary isolated, defaults to twice the median election time",
					},
				},
				Action: isolatePrimary,
			},
			{
				Name:   "consistency",
				Usage:  "Write through the primary and read back from every secondary",
				Action: runScenarios("consistency"),
			},
			{
				Name:   "metrics",
				Usage:  "Scrape the exporter of every unit",
				Action: checkMetrics,
			},
			{
				Name:      "run",
				Usage:     "Run scenarios in order, all of them when none is named",
				ArgsUsage: "[scenario...]",
				Action:    runNamedScenarios,
			},
			{
				Name:   "list",
				Usage:  "List the scenarios",
				Action: listScenarios,
			},
			{
				Name:  "chaos-mesh",
				Usage: "Install or remove chaos-mesh",
				Commands: []*commands.Command{
					{
						Name:   "install",
						Action: installChaosMesh,
					},
					{
						Name:   "uninstall",
						Action: uninstallChaosMesh,
					},
				},
			},
			{
				Name:   "destroy",
				Usage:  "Delete the replica set and its secrets",
				Action: destroy,
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, red("Error: ")+err.Error())
		os.Exit(1)
	}
}
