package replica_set

import (
	"testing"

	"sigs.k8s.io/e2e-framework/pkg/features"

	e2eutil "github.com/mongodb/mongodb-replicaset-verifier/test/e2e"
)

func TestReplicaSet(t *testing.T) {
	e2eutil.SkipUnlessEnabled(t)

	lifecycle := features.New("ReplicaSet").
		Assess("Deploy", e2eutil.Scenarios(namespace, "deploy")).
		Assess("ScaleUp", e2eutil.Scenarios(namespace, "scale-up")).
		Assess("Consistency", e2eutil.Scenarios(namespace, "consistency")).
		Assess("ScaleDown", e2eutil.Scenarios(namespace, "scale-down")).
		Assess("Metrics", e2eutil.Scenarios(namespace, "metrics")).
		WithTeardown("destroy", e2eutil.Destroy(namespace)).
		Feature()
	testenv.Test(t, lifecycle)
}
