package envvar

import (
	"os"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

func GetEnvOrDefault(envVar, defaultValue string) string {
	if val, ok := os.LookupEnv(envVar); ok {
		return val
	}
	return defaultValue
}

// ReadBool returns the boolean value of an envvar of the given name.
func ReadBool(envVarName string) bool {
	envVar := GetEnvOrDefault(envVarName, "false")
	return cast.ToBool(strings.TrimSpace(strings.ToLower(envVar)))
}

// WithPrefix returns every set environment variable starting with prefix, keyed by the
// remainder of its name in lower case. RSVERIFY_POLL_INTERVAL becomes poll_interval.
func WithPrefix(prefix string) map[string]string {
	vars := map[string]string{}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, prefix))
		if key == "" {
			continue
		}
		vars[key] = value
	}
	return vars
}

// Names returns the sorted keys of vars.
func Names(vars map[string]string) []string {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
