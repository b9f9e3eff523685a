// Package consistency writes a batch of documents through the primary and checks that the
// secondaries catch up.
package consistency

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/mongodb/mongodb-replicaset-verifier/pkg/replicaset"
)

var ErrNoSecondaryConverged = errors.New("no secondary converged with the primary")

type TestDocument struct {
	ID    int    `bson:"_id"`
	Name  string `bson:"name"`
	Group string `bson:"group"`
	Score int    `bson:"score"`
}

// TestDocuments is the batch written on every run.
var TestDocuments = []TestDocument{
	{ID: 1, Name: "Ada", Group: "replication", Score: 42},
	{ID: 2, Name: "Grace", Group: "replication", Score: 7},
}

// NewCollectionID returns a collection name no earlier run has used.
func NewCollectionID() string {
	return "verify_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// StatusSource reports the replica set status. replicaset.Inspector is one.
type StatusSource interface {
	Status(ctx context.Context) (replicaset.Status, error)
}

type Options struct {
	Database string
	// Margin is added to a secondary's observed lag to get the time it is given to catch up.
	Margin time.Duration
	// ReadTimeout bounds the reads through the replica set connection.
	ReadTimeout time.Duration
}

type Result struct {
	Collection string
	Inserted   int
	// Synced lists the secondaries that returned the full batch.
	Synced []string
	Total  int
	// Failures holds one error per secondary that did not converge.
	Failures error
}

func (r Result) String() string {
	return fmt.Sprintf("%d/%d secondaries fully synced with primary.", len(r.Synced), r.Total)
}

type Checker struct {
	dialer Dialer
	status StatusSource
	opts   Options
	log    *zap.SugaredLogger
}

func NewChecker(dialer Dialer, status StatusSource, opts Options, log *zap.SugaredLogger) Checker {
	return Checker{dialer: dialer, status: status, opts: opts, log: log}
}

// Check inserts TestDocuments into a fresh collection through the primary, reads them back
// with primary and secondary read preference and then reads them from every secondary
// directly. It fails when no secondary returns the full batch.
func (c Checker) Check(ctx context.Context) (Result, error) {
	result := Result{Collection: NewCollectionID()}

	store, err := c.dialer.ReplicaSet(ctx)
	if err != nil {
		return result, errors.Wrap(err, "could not connect to the replica set")
	}
	defer c.close(ctx, store)

	if err := store.CreateCollection(ctx, c.opts.Database, result.Collection); err != nil {
		return result, err
	}
	inserted, err := store.InsertMany(ctx, c.opts.Database, result.Collection, TestDocuments)
	if err != nil {
		return result, err
	}
	result.Inserted = inserted
	if inserted != len(TestDocuments) {
		return result, errors.Errorf("primary acknowledged %d of %d documents", inserted, len(TestDocuments))
	}
	c.log.Infof("Inserted %d documents into %s.%s", inserted, c.opts.Database, result.Collection)

	reads := []struct {
		name string
		rp   *readpref.ReadPref
	}{
		{"primary", readpref.Primary()},
		{"secondary", readpref.Secondary()},
	}
	for _, read := range reads {
		if err := c.awaitDocuments(ctx, store, result.Collection, read.rp, c.opts.ReadTimeout); err != nil {
			return result, errors.Wrapf(err, "read with %s read preference", read.name)
		}
	}

	status, err := c.status.Status(ctx)
	if err != nil {
		return result, err
	}
	secondaries, err := status.SecondariesByLag()
	if err != nil {
		return result, err
	}
	result.Total = len(secondaries)

	var failures *multierror.Error
	for _, secondary := range secondaries {
		if err := c.checkSecondary(ctx, result.Collection, secondary); err != nil {
			c.log.Warnf("Secondary %s did not sync: %s", secondary.Name, err)
			failures = multierror.Append(failures, errors.Wrap(err, secondary.Name))
			continue
		}
		result.Synced = append(result.Synced, secondary.Name)
	}
	result.Failures = failures.ErrorOrNil()

	c.log.Info(result.String())
	if len(result.Synced) == 0 {
		return result, errors.Wrapf(ErrNoSecondaryConverged, "%d secondaries checked", result.Total)
	}
	return result, nil
}

func (c Checker) checkSecondary(ctx context.Context, collection string, secondary replicaset.LaggedMember) error {
	window := secondary.Lag + c.opts.Margin
	c.log.Debugf("Giving %s (lag %s) %s to sync", secondary.Name, secondary.Lag, window)

	store, err := c.dialer.Direct(ctx, secondary.Name)
	if err != nil {
		return err
	}
	defer c.close(ctx, store)
	return c.awaitDocuments(ctx, store, collection, readpref.PrimaryPreferred(), window)
}

// awaitDocuments reads until the full batch comes back or window has passed. A
// non-positive window gets a single read.
func (c Checker) awaitDocuments(ctx context.Context, store Store, collection string, rp *readpref.ReadPref, window time.Duration) error {
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if window > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = window / 10
		if exp.InitialInterval <= 0 {
			exp.InitialInterval = time.Millisecond
		}
		// A zero MaxElapsedTime would retry forever.
		exp.MaxElapsedTime = window
		policy = exp
	}

	return backoff.Retry(func() error {
		docs, err := store.Find(ctx, c.opts.Database, collection, rp)
		if err != nil {
			return err
		}
		if !reflect.DeepEqual(docs, TestDocuments) {
			return errors.Errorf("found %d of %d documents", len(docs), len(TestDocuments))
		}
		return nil
	}, backoff.WithContext(policy, ctx))
}

func (c Checker) close(ctx context.Context, store Store) {
	if err := store.Close(ctx); err != nil {
		c.log.Debugf("Error closing connection: %s", err)
	}
}
