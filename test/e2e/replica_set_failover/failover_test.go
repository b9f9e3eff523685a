package replica_set_failover

import (
	"testing"

	"sigs.k8s.io/e2e-framework/pkg/features"

	e2eutil "github.com/mongodb/mongodb-replicaset-verifier/test/e2e"
)

func TestFailover(t *testing.T) {
	e2eutil.SkipUnlessEnabled(t)

	failover := features.New("Failover").
		Assess("Deploy", e2eutil.Scenarios(namespace, "deploy")).
		Assess("PrimaryPodDeleted", e2eutil.Scenarios(namespace, "reelection")).
		Assess("PrimaryCutOff", e2eutil.Scenarios(namespace, "network-cut")).
		Assess("ConsistencyAfterFailover", e2eutil.Scenarios(namespace, "consistency")).
		WithTeardown("destroy", e2eutil.Destroy(namespace)).
		Feature()
	testenv.Test(t, failover)
}
