package scenario

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/mongodb/mongodb-replicaset-verifier/pkg/chaos"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/config"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/consistency"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/metrics"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/mongoclient"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/orchestrator"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/replicaset"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/scale"
)

// Session is one open connection, to the set or to a single member.
type Session interface {
	replicaset.CommandRunner
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Connector opens connections to the replica set as one of the deployed users.
type Connector interface {
	ReplicaSet(ctx context.Context, user string) (Session, error)
	Direct(ctx context.Context, user, host string) (Session, error)
	Dialer(ctx context.Context, user string) (consistency.Dialer, error)
}

// Env is everything a scenario runs against.
type Env struct {
	Config       config.Config
	Orchestrator orchestrator.Orchestrator
	Connector    Connector
	Injector     chaos.Injector
	Log          *zap.SugaredLogger
}

func (e Env) interval() time.Duration {
	return e.Config.PollInterval.Duration
}

// withInspector runs fn with an inspector on a replica set connection as user.
func (e Env) withInspector(ctx context.Context, user string, fn func(replicaset.Inspector) error) error {
	session, err := e.Connector.ReplicaSet(ctx, user)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(ctx); err != nil {
			e.Log.Debugf("Error closing connection: %s", err)
		}
	}()
	return fn(replicaset.NewInspector(session, e.Log))
}

// Status returns the replica set status as seen through the primary.
func (e Env) Status(ctx context.Context) (replicaset.Status, error) {
	var status replicaset.Status
	err := e.withInspector(ctx, orchestrator.MonitorUser, func(inspector replicaset.Inspector) error {
		var err error
		status, err = inspector.Status(ctx)
		return err
	})
	return status, err
}

// ScaleBy adds or removes delta members and checks the membership that results.
func (e Env) ScaleBy(ctx context.Context, delta int) (scale.Plan, error) {
	var plan scale.Plan
	err := e.withInspector(ctx, orchestrator.OperatorUser, func(inspector replicaset.Inspector) error {
		controller := scale.NewController(e.Orchestrator, inspector, scale.Options{
			PollInterval: e.interval(),
			Timeout:      e.Config.ScaleTimeout.Duration,
		}, e.Log)
		var err error
		plan, err = controller.ScaleBy(ctx, delta)
		return err
	})
	return plan, err
}

// CutPrimary isolates the current primary for dwell and waits for another member to be
// elected while it is cut off. It returns the old and the new primary.
func (e Env) CutPrimary(ctx context.Context, dwell time.Duration) (replicaset.Member, replicaset.Member, error) {
	if e.Injector == nil {
		return replicaset.Member{}, replicaset.Member{}, errors.New("no fault injector configured")
	}
	var oldPrimary, newPrimary replicaset.Member
	err := e.withInspector(ctx, orchestrator.OperatorUser, func(inspector replicaset.Inspector) error {
		var unit orchestrator.Unit
		var err error
		oldPrimary, unit, err = e.primaryUnit(ctx, inspector)
		if err != nil {
			return err
		}
		target := chaos.Target{Unit: unit.Name, Host: oldPrimary.Name}
		return chaos.WhileIsolated(ctx, e.Injector, target, e.Log, func(ctx context.Context) error {
			if err := chaos.Dwell(ctx, dwell); err != nil {
				return err
			}
			newPrimary, err = inspector.WaitForNewPrimary(ctx, oldPrimary.Name, e.interval(), e.Config.ElectionTimeout.Duration)
			return err
		})
	})
	return oldPrimary, newPrimary, err
}

// primaryUnit finds the settled primary and the unit running it.
func (e Env) primaryUnit(ctx context.Context, inspector replicaset.Inspector) (replicaset.Member, orchestrator.Unit, error) {
	primary, err := inspector.WaitForSettledPrimary(ctx, e.interval(), e.Config.ElectionTimeout.Duration)
	if err != nil {
		return replicaset.Member{}, orchestrator.Unit{}, err
	}
	units, err := e.Orchestrator.Units(ctx)
	if err != nil {
		return replicaset.Member{}, orchestrator.Unit{}, err
	}
	for _, u := range units {
		if u.Host == primary.Name {
			return primary, u, nil
		}
	}
	return replicaset.Member{}, orchestrator.Unit{}, errors.Errorf("primary %s does not belong to any unit", primary.Name)
}

// MetricsChecker builds a checker for the exporters with the prometheus user's credentials.
func (e Env) MetricsChecker(ctx context.Context) (metrics.Checker, error) {
	password, err := e.Orchestrator.Password(ctx, orchestrator.PrometheusUser)
	if err != nil {
		return metrics.Checker{}, err
	}
	return metrics.NewChecker(metrics.Options{
		Port:           e.Config.ExporterPort,
		Path:           e.Config.MetricsPath,
		Substring:      e.Config.MetricsSubstring,
		MinOccurrences: e.Config.MetricsMinOccurrences,
		Username:       orchestrator.PrometheusUser,
		Password:       password,
		Timeout:        e.Config.ConnectTimeout.Duration,
	}, e.Log), nil
}

// CheckMetrics scrapes the exporter of every active unit.
func (e Env) CheckMetrics(ctx context.Context) ([]metrics.Report, error) {
	checker, err := e.MetricsChecker(ctx)
	if err != nil {
		return nil, err
	}
	units, err := e.Orchestrator.Units(ctx)
	if err != nil {
		return nil, err
	}
	return checker.CheckAll(ctx, orchestrator.ActiveUnits(units))
}

// CheckConsistency writes through the primary and reads back from the secondaries.
func (e Env) CheckConsistency(ctx context.Context) (consistency.Result, error) {
	dialer, err := e.Connector.Dialer(ctx, orchestrator.OperatorUser)
	if err != nil {
		return consistency.Result{}, err
	}
	var result consistency.Result
	err = e.withInspector(ctx, orchestrator.OperatorUser, func(inspector replicaset.Inspector) error {
		checker := consistency.NewChecker(dialer, inspector, consistency.Options{
			Database:    e.Config.TestDatabase,
			Margin:      e.Config.ReplicationMargin.Duration,
			ReadTimeout: e.Config.ElectionTimeout.Duration,
		}, e.Log)
		result, err = checker.Check(ctx)
		return err
	})
	return result, err
}

// MongoConnector connects with the mongo driver, seeding from the hosts of the current units.
type MongoConnector struct {
	Orchestrator orchestrator.Orchestrator
	Config       config.Config
}

func (m MongoConnector) appliers(ctx context.Context, user string) ([]mongoclient.OptionApplier, error) {
	password, err := m.Orchestrator.Password(ctx, user)
	if err != nil {
		return nil, err
	}
	hosts, err := m.seeds(ctx)
	if err != nil {
		return nil, err
	}
	return []mongoclient.OptionApplier{
		mongoclient.WithHosts(hosts),
		mongoclient.WithReplicaSet(m.Orchestrator.ReplicaSetName()),
		mongoclient.WithScram(user, password),
		mongoclient.WithTimeouts(m.Config.ConnectTimeout.Duration),
	}, nil
}

func (m MongoConnector) seeds(ctx context.Context) ([]string, error) {
	units, err := m.Orchestrator.Units(ctx)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return orchestrator.MemberHosts(m.Orchestrator, m.Config.Units), nil
	}
	hosts := make([]string, len(units))
	for i, u := range units {
		hosts[i] = u.Host
	}
	return hosts, nil
}

func (m MongoConnector) ReplicaSet(ctx context.Context, user string) (Session, error) {
	appliers, err := m.appliers(ctx, user)
	if err != nil {
		return nil, err
	}
	return m.connect(ctx, appliers...)
}

func (m MongoConnector) Direct(ctx context.Context, user, host string) (Session, error) {
	appliers, err := m.appliers(ctx, user)
	if err != nil {
		return nil, err
	}
	return m.connect(ctx, append(appliers, mongoclient.WithDirect(host))...)
}

func (m MongoConnector) connect(ctx context.Context, appliers ...mongoclient.OptionApplier) (Session, error) {
	client, err := mongoclient.Connect(ctx, appliers...)
	if err != nil {
		return nil, err
	}
	return mongoSession{client: client, retryFor: m.Config.ConnectTimeout.Duration}, nil
}

func (m MongoConnector) Dialer(ctx context.Context, user string) (consistency.Dialer, error) {
	password, err := m.Orchestrator.Password(ctx, user)
	if err != nil {
		return nil, err
	}
	hosts, err := m.seeds(ctx)
	if err != nil {
		return nil, err
	}
	return consistency.MongoDialer{
		Hosts:    hosts,
		SetName:  m.Orchestrator.ReplicaSetName(),
		Username: user,
		Password: password,
		Timeout:  m.Config.ConnectTimeout.Duration,
	}, nil
}

type mongoSession struct {
	client   *mongo.Client
	retryFor time.Duration
}

func (s mongoSession) RunCommand(ctx context.Context, db string, cmd interface{}) (bson.Raw, error) {
	return mongoclient.Runner{Client: s.client}.RunCommand(ctx, db, cmd)
}

func (s mongoSession) Ping(ctx context.Context) error {
	return mongoclient.PingWithRetry(ctx, s.client, mongoclient.DefaultBackOff(s.retryFor))
}

func (s mongoSession) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
