package scenario

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/mongodb/mongodb-replicaset-verifier/pkg/orchestrator"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/replicaset"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/util/contains"
)

// scaleStep is how many members scale-up adds and scale-down removes.
const scaleStep = 2

func init() {
	register(Scenario{
		Name:        "deploy",
		Description: "deploy the replica set and check every member is up with a single primary",
		steps:       deploySteps,
	})
	register(Scenario{
		Name:        "scale-up",
		Description: fmt.Sprintf("add %d members and check the membership", scaleStep),
		steps: func(env Env) []Step {
			return []Step{scaleStepOf(env, scaleStep)}
		},
	})
	register(Scenario{
		Name:        "scale-down",
		Description: fmt.Sprintf("remove %d members and check the membership", scaleStep),
		steps: func(env Env) []Step {
			return []Step{scaleStepOf(env, -scaleStep)}
		},
	})
	register(Scenario{
		Name:        "reelection",
		Description: "delete the primary's pod and check another member is elected",
		steps:       reelectionSteps,
	})
	register(Scenario{
		Name:        "consistency",
		Description: "write through the primary and read the documents back from the secondaries",
		steps: func(env Env) []Step {
			return []Step{{
				Name: "secondaries replicate the test documents",
				Run: func(ctx context.Context) error {
					_, err := env.CheckConsistency(ctx)
					return err
				},
			}}
		},
	})
	register(Scenario{
		Name:        "metrics",
		Description: "scrape the exporter of every unit",
		steps: func(env Env) []Step {
			return []Step{metricsStep(env, "every exporter serves metrics")}
		},
	})
	register(Scenario{
		Name:        "network-cut",
		Description: "cut the primary off the network and check the set elects another one and heals",
		steps:       networkCutSteps,
	})
}

func deploySteps(env Env) []Step {
	units := env.Config.Units
	return []Step{
		{
			Name: "deploy the replica set",
			Run: func(ctx context.Context) error {
				return env.Orchestrator.Deploy(ctx, units)
			},
		},
		{
			Name: fmt.Sprintf("wait for %d active units", units),
			Run: func(ctx context.Context) error {
				return env.Orchestrator.WaitForActive(ctx, units, env.Config.DeployTimeout.Duration)
			},
		},
		{
			Name: "every unit answers ping",
			Run:  env.pingUnits,
		},
		{
			Name: "exactly one primary",
			Run: func(ctx context.Context) error {
				return env.withInspector(ctx, orchestrator.OperatorUser, func(inspector replicaset.Inspector) error {
					primary, err := inspector.WaitForSettledPrimary(ctx, env.interval(), env.Config.ElectionTimeout.Duration)
					if err != nil {
						return err
					}
					hello, err := inspector.Hello(ctx)
					if err != nil {
						return err
					}
					if advertised := hello.Get("primary").Str(); advertised != primary.Name {
						return errors.Errorf("hello advertises %q as primary, replica set status reports %s", advertised, primary.Name)
					}
					env.Log.Infof("Primary is %s", primary.Name)
					return nil
				})
			},
		},
		{
			Name: "server version is supported",
			Run: func(ctx context.Context) error {
				return env.withInspector(ctx, orchestrator.OperatorUser, func(inspector replicaset.Inspector) error {
					_, err := inspector.RequireMinimumVersion(ctx, env.Config.MinimumServerVersion)
					return err
				})
			},
		},
		{
			Name: "monitor user can read the replica set config",
			Run: func(ctx context.Context) error {
				return env.withInspector(ctx, orchestrator.MonitorUser, func(inspector replicaset.Inspector) error {
					cfg, err := inspector.Config(ctx)
					if err != nil {
						return err
					}
					expected := orchestrator.MemberHosts(env.Orchestrator, units)
					if len(cfg.Members) != units || !contains.Strings(cfg.Hosts(), expected) {
						return errors.Errorf("replica set config has members %v, expected %v", cfg.Hosts(), expected)
					}
					return nil
				})
			},
		},
	}
}

// pingUnits pings every active unit over a direct connection.
func (e Env) pingUnits(ctx context.Context) error {
	units, err := e.Orchestrator.Units(ctx)
	if err != nil {
		return err
	}
	var result *multierror.Error
	for _, u := range orchestrator.ActiveUnits(units) {
		if err := e.ping(ctx, u.Host); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "%s did not answer", u.Name))
			continue
		}
		e.Log.Debugf("%s answered ping", u.Name)
	}
	return result.ErrorOrNil()
}

func (e Env) ping(ctx context.Context, host string) error {
	session, err := e.Connector.Direct(ctx, orchestrator.OperatorUser, host)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close(ctx) }()
	return session.Ping(ctx)
}

func scaleStepOf(env Env, delta int) Step {
	verb := "add"
	n := delta
	if delta < 0 {
		verb, n = "remove", -delta
	}
	return Step{
		Name: fmt.Sprintf("%s %d members", verb, n),
		Run: func(ctx context.Context) error {
			_, err := env.ScaleBy(ctx, delta)
			return err
		},
	}
}

func metricsStep(env Env, name string) Step {
	return Step{
		Name: name,
		Run: func(ctx context.Context) error {
			_, err := env.CheckMetrics(ctx)
			return err
		},
	}
}

func reelectionSteps(env Env) []Step {
	var oldPrimary replicaset.Member
	var unit orchestrator.Unit
	var units int
	return []Step{
		{
			Name: "find the primary",
			Run: func(ctx context.Context) error {
				return env.withInspector(ctx, orchestrator.OperatorUser, func(inspector replicaset.Inspector) error {
					var err error
					oldPrimary, unit, err = env.primaryUnit(ctx, inspector)
					if err != nil {
						return err
					}
					all, err := env.Orchestrator.Units(ctx)
					units = len(all)
					return err
				})
			},
		},
		{
			Name: "delete the primary's unit",
			Run: func(ctx context.Context) error {
				return env.Orchestrator.DeleteUnit(ctx, unit.Name)
			},
		},
		{
			Name: "another member is elected",
			Run: func(ctx context.Context) error {
				return env.withInspector(ctx, orchestrator.OperatorUser, func(inspector replicaset.Inspector) error {
					primary, err := inspector.WaitForNewPrimary(ctx, oldPrimary.Name, env.interval(), env.Config.ElectionTimeout.Duration)
					if err != nil {
						return err
					}
					env.Log.Infof("%s replaced %s as primary", primary.Name, oldPrimary.Name)
					return nil
				})
			},
		},
		{
			Name: "deleted unit comes back",
			Run: func(ctx context.Context) error {
				return env.Orchestrator.WaitForActive(ctx, units, env.Config.DeployTimeout.Duration)
			},
		},
		{
			Name: "old primary rejoins as secondary",
			Run: func(ctx context.Context) error {
				return env.waitForSecondary(ctx, oldPrimary.Name)
			},
		},
	}
}

func networkCutSteps(env Env) []Step {
	var oldPrimary replicaset.Member
	return []Step{
		{
			Name: "isolate the primary until another member is elected",
			Run: func(ctx context.Context) error {
				old, elected, err := env.CutPrimary(ctx, env.Config.ElectionWait())
				oldPrimary = old
				if err != nil {
					return err
				}
				env.Log.Infof("%s replaced isolated %s as primary", elected.Name, old.Name)
				return nil
			},
		},
		{
			Name: "old primary rejoins as secondary",
			Run: func(ctx context.Context) error {
				return env.waitForSecondary(ctx, oldPrimary.Name)
			},
		},
		metricsStep(env, "exporters serve metrics after the cut"),
	}
}

func (e Env) waitForSecondary(ctx context.Context, host string) error {
	return e.withInspector(ctx, orchestrator.OperatorUser, func(inspector replicaset.Inspector) error {
		return inspector.WaitForMemberState(ctx, host, replicaset.Secondary, e.interval(), e.Config.ElectionTimeout.Duration)
	})
}
