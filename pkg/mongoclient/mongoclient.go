package mongoclient

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const adminDB = "admin"

// OptionApplier is an interface which is able to accept a list
// of options.ClientOptions, and return the final desired list
// making any modifications required
type OptionApplier interface {
	ApplyOption(opts ...*options.ClientOptions) []*options.ClientOptions
}

// clientOptionAdder is the standard implementation that simply adds a
// new options.ClientOption to the mongo client
type clientOptionAdder struct {
	option *options.ClientOptions
}

func (c clientOptionAdder) ApplyOption(opts ...*options.ClientOptions) []*options.ClientOptions {
	return append(opts, c.option)
}

// clientOptionRemover is used if a value from the client array of options should be removed.
// assigning a nil value will not take precedence over an existing value, so we need a mechanism
// to remove elements that are present
type clientOptionRemover struct {
	removalPredicate func(opt *options.ClientOptions) bool
}

func (c clientOptionRemover) ApplyOption(opts ...*options.ClientOptions) []*options.ClientOptions {
	newOpts := make([]*options.ClientOptions, 0)
	for _, opt := range opts {
		if !c.removalPredicate(opt) {
			newOpts = append(newOpts, opt)
		}
	}
	return newOpts
}

// WithScram authenticates as the given user against the admin database
func WithScram(username, password string) OptionApplier {
	return clientOptionAdder{
		option: &options.ClientOptions{
			Auth: &options.Credential{
				AuthMechanism: "SCRAM-SHA-256",
				AuthSource:    adminDB,
				Username:      username,
				Password:      password,
			},
		},
	}
}

// WithHosts configures the hosts of the deployment
func WithHosts(hosts []string) OptionApplier {
	return clientOptionAdder{
		option: options.Client().SetHosts(hosts),
	}
}

// WithReplicaSet makes the client discover the whole set named name from its seed hosts.
func WithReplicaSet(name string) OptionApplier {
	return clientOptionAdder{
		option: options.Client().SetReplicaSet(name),
	}
}

// WithReadPreference routes reads to the members selected by rp.
func WithReadPreference(rp *readpref.ReadPref) OptionApplier {
	return clientOptionAdder{
		option: options.Client().SetReadPreference(rp),
	}
}

// WithTimeouts bounds server selection and connection establishment.
func WithTimeouts(timeout time.Duration) OptionApplier {
	return clientOptionAdder{
		option: options.Client().
			SetServerSelectionTimeout(timeout).
			SetConnectTimeout(timeout),
	}
}

// WithDirect talks to exactly one member, whatever its state. Any replica set name
// or host list applied earlier is removed.
func WithDirect(host string) OptionApplier {
	return multiApplier{
		clientOptionRemover{removalPredicate: func(opt *options.ClientOptions) bool {
			return opt.ReplicaSet != nil || len(opt.Hosts) > 0
		}},
		clientOptionAdder{option: options.Client().
			SetHosts([]string{host}).
			SetDirect(true)},
		WithReadPreference(readpref.PrimaryPreferred()),
	}
}

type multiApplier []OptionApplier

func (m multiApplier) ApplyOption(opts ...*options.ClientOptions) []*options.ClientOptions {
	for _, applier := range m {
		opts = applier.ApplyOption(opts...)
	}
	return opts
}

// Apply runs every applier in order over an empty option list.
func Apply(appliers ...OptionApplier) []*options.ClientOptions {
	return multiApplier(appliers).ApplyOption()
}

// Connect opens a client with the options produced by appliers. The driver connects lazily,
// so this does not prove the deployment is reachable.
func Connect(ctx context.Context, appliers ...OptionApplier) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, Apply(appliers...)...)
	if err != nil {
		return nil, errors.Wrap(err, "could not create mongo client")
	}
	return client, nil
}

// DefaultBackOff is the retry policy for pings and reads against a member that may still
// be electing or catching up.
func DefaultBackOff(maxElapsed time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = maxElapsed
	return b
}

// Pinger is the part of *mongo.Client used by PingWithRetry.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// PingWithRetry pings until the server answers, the policy gives up or ctx is done.
func PingWithRetry(ctx context.Context, client Pinger, policy backoff.BackOff) error {
	return backoff.Retry(func() error {
		return client.Ping(ctx, nil)
	}, backoff.WithContext(policy, ctx))
}

// Runner issues database commands and returns the raw reply.
type Runner struct {
	Client *mongo.Client
}

func (r Runner) RunCommand(ctx context.Context, db string, cmd interface{}) (bson.Raw, error) {
	raw, err := r.Client.Database(db).RunCommand(ctx, cmd).DecodeBytes()
	if err != nil {
		return nil, errors.Wrapf(err, "command %v on %s failed", cmd, db)
	}
	return raw, nil
}
