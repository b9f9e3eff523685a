package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	commands "github.com/urfave/cli/v3"

	"github.com/mongodb/mongodb-replicaset-verifier/pkg/chaos"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/config"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/helm"
	kubeclient "github.com/mongodb/mongodb-replicaset-verifier/pkg/kube/client"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/logging"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/orchestrator"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/replicaset"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/scenario"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// loadConfig layers the global flags over the file and environment configuration.
func loadConfig(cmd *commands.Command) (config.Config, error) {
	overrides := config.Config{
		Namespace:  cmd.String("namespace"),
		App:        cmd.String("app"),
		Kubeconfig: cmd.String("kubeconfig"),
	}
	return config.Load(cmd.String("config"), overrides)
}

type app struct {
	env scenario.Env
}

func setup(cmd *commands.Command) (app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return app{}, err
	}
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Verbose: cmd.Bool("verbose")})
	if err != nil {
		return app{}, err
	}
	restCfg, err := kubeclient.RestConfig(cfg.Kubeconfig, cfg.InCluster)
	if err != nil {
		return app{}, err
	}
	client, err := kubeclient.New(restCfg)
	if err != nil {
		return app{}, err
	}

	o := orchestrator.NewKubernetes(client, cfg, log)
	var injector chaos.Injector
	switch cfg.ChaosBackend {
	case config.Toxiproxy:
		injector = chaos.NewToxiproxyInjector(cfg.ToxiproxyURL, cfg.ToxiproxyPrefix, log)
	default:
		injector = chaos.NewNetworkChaosInjector(client, cfg.Namespace, cfg.PollInterval.Duration, cfg.InjectionTimeout.Duration, log)
	}

	return app{
		env: scenario.Env{
			Config:       cfg,
			Orchestrator: o,
			Connector:    scenario.MongoConnector{Orchestrator: o, Config: cfg},
			Injector:     injector,
			Log:          log,
		},
	}, nil
}

func (a app) chaosMesh() chaos.ChaosMesh {
	return chaos.ChaosMesh{
		Helm:    helm.New(helm.Exec),
		Chart:   a.env.Config.ChaosMeshChart,
		Version: a.env.Config.ChaosMeshChartVersion,
	}
}

func runScenarios(names ...string) commands.ActionFunc {
	return func(ctx context.Context, cmd *commands.Command) error {
		return run(ctx, cmd, names)
	}
}

func runNamedScenarios(ctx context.Context, cmd *commands.Command) error {
	return run(ctx, cmd, cmd.Args().Slice())
}

func run(ctx context.Context, cmd *commands.Command, names []string) error {
	scenarios, err := scenario.Lookup(names...)
	if err != nil {
		return err
	}
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.env.Log.Sync() }()

	reports := scenario.RunAll(ctx, a.env, scenarios)
	for _, r := range reports {
		printReport(r)
	}
	for _, r := range reports {
		if err := r.Err(); err != nil {
			return err
		}
	}
	return nil
}

func printReport(r scenario.Report) {
	fmt.Printf("%s %s\n", bold(r.Scenario), r.Duration.Round(time.Millisecond))
	for _, s := range r.Steps {
		switch {
		case s.Skipped:
			fmt.Printf("  %s %s\n", yellow("-"), s.Name)
		case s.Err != nil:
			fmt.Printf("  %s %s (%s)\n      %s\n", red("✗"), s.Name, s.Duration.Round(time.Millisecond), s.Err)
		default:
			fmt.Printf("  %s %s (%s)\n", green("✓"), s.Name, s.Duration.Round(time.Millisecond))
		}
	}
	fmt.Println()
}

func listScenarios(_ context.Context, _ *commands.Command) error {
	scenarios, err := scenario.Lookup(scenario.Names()...)
	if err != nil {
		return err
	}
	for _, s := range scenarios {
		fmt.Printf("%-12s %s\n", bold(s.Name), s.Description)
	}
	return nil
}

func showStatus(ctx context.Context, cmd *commands.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	status, err := a.env.Status(ctx)
	if err != nil {
		return err
	}
	primary, primaryErr := status.Primary()
	fmt.Printf("%s %s\n", bold("Replica set"), status.Set)
	for _, m := range status.Members {
		state := string(m.StateStr)
		switch {
		case m.StateStr == replicaset.Primary:
			state = green(state)
		case !m.IsHealthy():
			state = red(state)
		}
		lag, _ := status.Lag(m)
		fmt.Printf("  %-60s %-12s lag %s\n", m.Name, state, lag)
	}
	if primaryErr != nil {
		return primaryErr
	}
	a.env.Log.Debugf("Primary is %s", primary.Name)
	return nil
}

func scaleBy(ctx context.Context, cmd *commands.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	plan, err := a.env.ScaleBy(ctx, int(cmd.Int("by")))
	if err != nil {
		return err
	}
	fmt.Printf("%s scaled from %d to %d members\n", green("✓"), plan.Current, plan.Desired)
	return nil
}

func isolatePrimary(ctx context.Context, cmd *commands.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	dwell := cmd.Duration("dwell")
	if dwell == 0 {
		dwell = a.env.Config.ElectionWait()
	}
	oldPrimary, newPrimary, err := a.env.CutPrimary(ctx, dwell)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s replaced isolated %s as primary\n", green("✓"), newPrimary.Name, oldPrimary.Name)
	return nil
}

func checkMetrics(ctx context.Context, cmd *commands.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	reports, err := a.env.CheckMetrics(ctx)
	for _, r := range reports {
		mark := green("✓")
		if r.StatusCode != http.StatusOK || r.Occurrences <= a.env.Config.MetricsMinOccurrences {
			mark = red("✗")
		}
		fmt.Printf("  %s %s\n", mark, r)
	}
	return err
}

func installChaosMesh(ctx context.Context, cmd *commands.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	return a.chaosMesh().Deploy(ctx, a.env.Config.Namespace)
}

func uninstallChaosMesh(ctx context.Context, cmd *commands.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	return a.chaosMesh().Destroy(ctx, a.env.Config.Namespace)
}

func destroy(ctx context.Context, cmd *commands.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := a.env.Orchestrator.Destroy(ctx); err != nil {
		return errors.Wrap(err, "could not destroy the replica set")
	}
	fmt.Printf("%s destroyed %s/%s\n", green("✓"), a.env.Config.Namespace, a.env.Config.App)
	return nil
}
