package replicaset

import (
	"context"
	"time"

	"github.com/blang/semver"
	"github.com/pkg/errors"
	"github.com/stretchr/objx"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/wait"
)

const adminDB = "admin"

// CommandRunner runs a database command and returns the raw reply.
type CommandRunner interface {
	RunCommand(ctx context.Context, db string, cmd interface{}) (bson.Raw, error)
}

// Inspector reads the topology of a replica set through whichever member runner talks to.
type Inspector struct {
	runner CommandRunner
	log    *zap.SugaredLogger
}

func NewInspector(runner CommandRunner, log *zap.SugaredLogger) Inspector {
	return Inspector{runner: runner, log: log}
}

// Status runs replSetGetStatus.
func (i Inspector) Status(ctx context.Context) (Status, error) {
	status := Status{}
	if err := i.run(ctx, bson.D{{Key: "replSetGetStatus", Value: 1}}, &status); err != nil {
		return Status{}, errors.Wrap(err, "could not get replica set status")
	}
	return status, nil
}

type ConfigMember struct {
	ID       int     `bson:"_id"`
	Host     string  `bson:"host"`
	Priority float64 `bson:"priority"`
	Votes    int     `bson:"votes"`
	Hidden   bool    `bson:"hidden"`
}

// Config is the replica set configuration as returned by replSetGetConfig.
type Config struct {
	ID      string         `bson:"_id"`
	Version int            `bson:"version"`
	Members []ConfigMember `bson:"members"`
}

func (c Config) Hosts() []string {
	hosts := make([]string, len(c.Members))
	for i, m := range c.Members {
		hosts[i] = m.Host
	}
	return hosts
}

// Config runs replSetGetConfig, which requires at least the clusterMonitor role.
func (i Inspector) Config(ctx context.Context) (Config, error) {
	reply := struct {
		Config Config `bson:"config"`
	}{}
	if err := i.run(ctx, bson.D{{Key: "replSetGetConfig", Value: 1}}, &reply); err != nil {
		return Config{}, errors.Wrap(err, "could not get replica set config")
	}
	return reply.Config, nil
}

// Hello runs the hello command. Fields are read with selectors such as "primary" or "setName".
func (i Inspector) Hello(ctx context.Context) (objx.Map, error) {
	result := bson.M{}
	if err := i.run(ctx, bson.D{{Key: "hello", Value: 1}}, &result); err != nil {
		return nil, errors.Wrap(err, "could not run hello")
	}
	return objx.New(bsonToMap(result)), nil
}

// ServerVersion returns the version reported by buildInfo.
func (i Inspector) ServerVersion(ctx context.Context) (semver.Version, error) {
	reply := struct {
		Version string `bson:"version"`
	}{}
	if err := i.run(ctx, bson.D{{Key: "buildInfo", Value: 1}}, &reply); err != nil {
		return semver.Version{}, errors.Wrap(err, "could not run buildInfo")
	}
	v, err := semver.ParseTolerant(reply.Version)
	if err != nil {
		return semver.Version{}, errors.Wrapf(err, "server reported unparsable version %q", reply.Version)
	}
	return v, nil
}

// RequireMinimumVersion fails when the server is older than minimum.
func (i Inspector) RequireMinimumVersion(ctx context.Context, minimum string) (semver.Version, error) {
	minVersion, err := semver.ParseTolerant(minimum)
	if err != nil {
		return semver.Version{}, errors.Wrapf(err, "invalid minimum version %q", minimum)
	}
	v, err := i.ServerVersion(ctx)
	if err != nil {
		return semver.Version{}, err
	}
	if v.LT(minVersion) {
		return v, errors.Errorf("server version %s is older than the supported minimum %s", v, minVersion)
	}
	return v, nil
}

func (i Inspector) run(ctx context.Context, cmd bson.D, out interface{}) error {
	raw, err := i.runner.RunCommand(ctx, adminDB, cmd)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

// WaitForSettledPrimary polls until exactly one member is PRIMARY. Errors while the set
// is electing are expected and only logged.
func (i Inspector) WaitForSettledPrimary(ctx context.Context, interval, timeout time.Duration) (Member, error) {
	var primary Member
	err := i.poll(ctx, interval, timeout, func(status Status) bool {
		p, err := status.Primary()
		if err != nil {
			i.log.Debugf("Primary not settled yet: %s", err)
			return false
		}
		primary = p
		return true
	})
	if err != nil {
		return Member{}, errors.Wrap(err, "replica set did not settle on a primary")
	}
	return primary, nil
}

// WaitForNewPrimary polls until a single primary other than oldPrimary is elected.
func (i Inspector) WaitForNewPrimary(ctx context.Context, oldPrimary string, interval, timeout time.Duration) (Member, error) {
	var primary Member
	err := i.poll(ctx, interval, timeout, func(status Status) bool {
		p, err := status.Primary()
		if err != nil {
			i.log.Debugf("Waiting for election: %s", err)
			return false
		}
		if p.Name == oldPrimary {
			i.log.Debugf("%s is still primary", oldPrimary)
			return false
		}
		primary = p
		return true
	})
	if err != nil {
		return Member{}, errors.Wrapf(err, "no primary other than %s was elected", oldPrimary)
	}
	return primary, nil
}

// WaitForMemberState polls until the member named host reports state.
func (i Inspector) WaitForMemberState(ctx context.Context, host string, state MemberState, interval, timeout time.Duration) error {
	err := i.poll(ctx, interval, timeout, func(status Status) bool {
		m, ok := status.Member(host)
		if !ok {
			i.log.Debugf("%s is not a member yet", host)
			return false
		}
		i.log.Debugf("%s is %s, waiting for %s", host, m.StateStr, state)
		return m.StateStr == state
	})
	if err != nil {
		return errors.Wrapf(err, "%s did not reach state %s", host, state)
	}
	return nil
}

// WaitForMembers polls until the reported membership equals expected. The last comparison
// is returned so callers can report what was missing.
func (i Inspector) WaitForMembers(ctx context.Context, expected []string, interval, timeout time.Duration) (Comparison, error) {
	var last Comparison
	err := i.poll(ctx, interval, timeout, func(status Status) bool {
		last = CompareMembers(expected, status)
		if !last.Equal() {
			i.log.Debugf("Membership not converged: %s", last)
		}
		return last.Equal()
	})
	return last, err
}

func (i Inspector) poll(ctx context.Context, interval, timeout time.Duration, done func(Status) bool) error {
	return wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		status, err := i.Status(ctx)
		if err != nil {
			i.log.Debugf("Could not read replica set status: %s", err)
			return false, nil
		}
		return done(status), nil
	})
}

// bsonToMap will convert a bson map to a regular map recursively.
// objx does not work when the nested objects are bson.M.
func bsonToMap(m bson.M) map[string]interface{} {
	out := make(map[string]interface{})
	for key, value := range m {
		if subMap, ok := value.(bson.M); ok {
			out[key] = bsonToMap(subMap)
		} else {
			out[key] = value
		}
	}
	return out
}
