package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/hashicorp/go-multierror"
	"github.com/imdario/mergo"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"github.com/mongodb/mongodb-replicaset-verifier/pkg/util/envvar"
)

const (
	EnvPrefix  = "RSVERIFY_"
	ConfigFile = "RSVERIFY_CONFIG"
)

type HostForm string

const (
	// ShortHosts makes members known as <app>-<ordinal>.<service>:<port>
	ShortHosts HostForm = "short"
	// FQDNHosts makes members known as <app>-<ordinal>.<service>.<namespace>.svc.<cluster domain>:<port>
	FQDNHosts HostForm = "fqdn"
)

type ChaosBackend string

const (
	ChaosMesh ChaosBackend = "chaos-mesh"
	Toxiproxy ChaosBackend = "toxiproxy"
)

// Config holds every knob of a verification run. The zero value of a field means "unset"
// so that layers can be merged on top of each other.
type Config struct {
	Namespace            string   `json:"namespace,omitempty"`
	App                  string   `json:"app,omitempty"`
	Units                int      `json:"units,omitempty"`
	MongoDBVersion       string   `json:"mongodbVersion,omitempty"`
	MinimumServerVersion string   `json:"minimumServerVersion,omitempty"`
	Port                 int      `json:"port,omitempty"`
	ClusterDomain        string   `json:"clusterDomain,omitempty"`
	HostForm             HostForm `json:"hostForm,omitempty"`
	TestDatabase         string   `json:"testDatabase,omitempty"`

	Kubeconfig string `json:"kubeconfig,omitempty"`
	InCluster  bool   `json:"inCluster,omitempty"`

	ExporterPort          int    `json:"exporterPort,omitempty"`
	MetricsPath           string `json:"metricsPath,omitempty"`
	MetricsSubstring      string `json:"metricsSubstring,omitempty"`
	MetricsMinOccurrences int    `json:"metricsMinOccurrences,omitempty"`

	DeployTimeout      metav1.Duration `json:"deployTimeout,omitempty"`
	ScaleTimeout       metav1.Duration `json:"scaleTimeout,omitempty"`
	ElectionTimeout    metav1.Duration `json:"electionTimeout,omitempty"`
	ConnectTimeout     metav1.Duration `json:"connectTimeout,omitempty"`
	PollInterval       metav1.Duration `json:"pollInterval,omitempty"`
	MedianElectionTime metav1.Duration `json:"medianElectionTime,omitempty"`
	ReplicationMargin  metav1.Duration `json:"replicationMargin,omitempty"`
	InjectionTimeout   metav1.Duration `json:"injectionTimeout,omitempty"`

	ChaosBackend          ChaosBackend `json:"chaosBackend,omitempty"`
	ToxiproxyURL          string       `json:"toxiproxyUrl,omitempty"`
	ToxiproxyPrefix       string       `json:"toxiproxyPrefix,omitempty"`
	ChaosMeshChart        string       `json:"chaosMeshChart,omitempty"`
	ChaosMeshChartVersion string       `json:"chaosMeshChartVersion,omitempty"`

	LogFile  string `json:"logFile,omitempty"`
	LogLevel string `json:"logLevel,omitempty"`
}

func Defaults() Config {
	return Config{
		Namespace:             "mongodb-verify",
		App:                   "mongodb-k8s",
		Units:                 3,
		MongoDBVersion:        "6.0.5",
		MinimumServerVersion:  "5.0.0",
		Port:                  27017,
		ClusterDomain:         "cluster.local",
		HostForm:              FQDNHosts,
		TestDatabase:          "verify",
		ExporterPort:          9216,
		MetricsPath:           "/metrics",
		MetricsSubstring:      "mongo",
		MetricsMinOccurrences: 10,
		DeployTimeout:         metav1.Duration{Duration: 1000 * time.Second},
		ScaleTimeout:          metav1.Duration{Duration: 15 * time.Minute},
		ElectionTimeout:       metav1.Duration{Duration: 2 * time.Minute},
		ConnectTimeout:        metav1.Duration{Duration: 10 * time.Second},
		PollInterval:          metav1.Duration{Duration: 5 * time.Second},
		MedianElectionTime:    metav1.Duration{Duration: 12 * time.Second},
		ReplicationMargin:     metav1.Duration{Duration: 2 * time.Second},
		InjectionTimeout:      metav1.Duration{Duration: time.Minute},
		ChaosBackend:          ChaosMesh,
		ToxiproxyURL:          "http://localhost:8474",
		ToxiproxyPrefix:       "",
		ChaosMeshChart:        "chaos-mesh/chaos-mesh",
		ChaosMeshChartVersion: "2.6.2",
		LogLevel:              "info",
	}
}

// Load builds the configuration from defaults, the YAML file named by path (or by the
// RSVERIFY_CONFIG variable when path is empty), RSVERIFY_* environment variables and
// finally overrides, usually taken from command line flags. Later layers win. The file and
// the environment set exactly the keys they name, zero values included; an override only
// replaces fields it leaves non-zero.
func Load(path string, overrides Config) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = envvar.GetEnvOrDefault(ConfigFile, "")
	}
	if path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.ApplyEnv(envvar.WithPrefix(EnvPrefix)); err != nil {
		return Config{}, err
	}

	if err := mergo.Merge(&cfg, overrides, mergo.WithOverride); err != nil {
		return Config{}, errors.Wrap(err, "could not merge overrides")
	}

	return cfg, cfg.Validate()
}

// ApplyFile sets the fields named in a YAML configuration file.
func (c *Config) ApplyFile(path string) error {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "could not read configuration file %s", path)
	}
	if err := yaml.UnmarshalStrict(bytes, c); err != nil {
		return errors.Wrapf(err, "could not parse configuration file %s", path)
	}
	return nil
}

type setter func(cfg *Config, value string) error

func stringSetter(field func(*Config) *string) setter {
	return func(cfg *Config, value string) error {
		*field(cfg) = value
		return nil
	}
}

func intSetter(field func(*Config) *int) setter {
	return func(cfg *Config, value string) error {
		if value == "" {
			*field(cfg) = 0
			return nil
		}
		i, err := cast.ToIntE(value)
		if err != nil {
			return err
		}
		*field(cfg) = i
		return nil
	}
}

func durationSetter(field func(*Config) *metav1.Duration) setter {
	return func(cfg *Config, value string) error {
		if value == "" {
			field(cfg).Duration = 0
			return nil
		}
		d, err := cast.ToDurationE(value)
		if err != nil {
			return err
		}
		field(cfg).Duration = d
		return nil
	}
}

// envSetters maps the lower-cased variable name without prefix to the field it sets.
var envSetters = map[string]setter{
	"namespace":              stringSetter(func(c *Config) *string { return &c.Namespace }),
	"app":                    stringSetter(func(c *Config) *string { return &c.App }),
	"units":                  intSetter(func(c *Config) *int { return &c.Units }),
	"mongodb_version":        stringSetter(func(c *Config) *string { return &c.MongoDBVersion }),
	"minimum_server_version": stringSetter(func(c *Config) *string { return &c.MinimumServerVersion }),
	"port":                   intSetter(func(c *Config) *int { return &c.Port }),
	"cluster_domain":         stringSetter(func(c *Config) *string { return &c.ClusterDomain }),
	"host_form": func(c *Config, v string) error {
		c.HostForm = HostForm(strings.ToLower(v))
		return nil
	},
	"test_database": stringSetter(func(c *Config) *string { return &c.TestDatabase }),
	"kubeconfig":    stringSetter(func(c *Config) *string { return &c.Kubeconfig }),
	"in_cluster": func(c *Config, v string) error {
		if v == "" {
			c.InCluster = false
			return nil
		}
		b, err := cast.ToBoolE(v)
		c.InCluster = b
		return err
	},
	"exporter_port":           intSetter(func(c *Config) *int { return &c.ExporterPort }),
	"metrics_path":            stringSetter(func(c *Config) *string { return &c.MetricsPath }),
	"metrics_substring":       stringSetter(func(c *Config) *string { return &c.MetricsSubstring }),
	"metrics_min_occurrences": intSetter(func(c *Config) *int { return &c.MetricsMinOccurrences }),
	"deploy_timeout":          durationSetter(func(c *Config) *metav1.Duration { return &c.DeployTimeout }),
	"scale_timeout":           durationSetter(func(c *Config) *metav1.Duration { return &c.ScaleTimeout }),
	"election_timeout":        durationSetter(func(c *Config) *metav1.Duration { return &c.ElectionTimeout }),
	"connect_timeout":         durationSetter(func(c *Config) *metav1.Duration { return &c.ConnectTimeout }),
	"poll_interval":           durationSetter(func(c *Config) *metav1.Duration { return &c.PollInterval }),
	"median_election_time":    durationSetter(func(c *Config) *metav1.Duration { return &c.MedianElectionTime }),
	"replication_margin":      durationSetter(func(c *Config) *metav1.Duration { return &c.ReplicationMargin }),
	"injection_timeout":       durationSetter(func(c *Config) *metav1.Duration { return &c.InjectionTimeout }),
	"chaos_backend": func(c *Config, v string) error {
		c.ChaosBackend = ChaosBackend(strings.ToLower(v))
		return nil
	},
	"toxiproxy_url":            stringSetter(func(c *Config) *string { return &c.ToxiproxyURL }),
	"toxiproxy_prefix":         stringSetter(func(c *Config) *string { return &c.ToxiproxyPrefix }),
	"chaos_mesh_chart":         stringSetter(func(c *Config) *string { return &c.ChaosMeshChart }),
	"chaos_mesh_chart_version": stringSetter(func(c *Config) *string { return &c.ChaosMeshChartVersion }),
	"log_file":                 stringSetter(func(c *Config) *string { return &c.LogFile }),
	"log_level":                stringSetter(func(c *Config) *string { return &c.LogLevel }),
}

// ApplyEnv sets the field of every variable in vars, keyed as returned by envvar.WithPrefix.
// An empty value sets the field to its zero value. Unknown names are ignored; the config
// file variable itself is one of them.
func (c *Config) ApplyEnv(vars map[string]string) error {
	var result *multierror.Error
	for _, name := range envvar.Names(vars) {
		set, ok := envSetters[name]
		if !ok {
			continue
		}
		if err := set(c, vars[name]); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s%s: %w", EnvPrefix, strings.ToUpper(name), err))
		}
	}
	return result.ErrorOrNil()
}

// Validate rejects configurations that cannot describe a runnable verification.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.Namespace == "" {
		result = multierror.Append(result, errors.New("namespace must be set"))
	}
	if c.App == "" {
		result = multierror.Append(result, errors.New("app must be set"))
	}
	if c.Units < 1 {
		result = multierror.Append(result, errors.Errorf("units must be at least 1, got %d", c.Units))
	}
	if c.Port < 1 || c.Port > 65535 {
		result = multierror.Append(result, errors.Errorf("port %d is out of range", c.Port))
	}
	if c.ExporterPort < 1 || c.ExporterPort > 65535 {
		result = multierror.Append(result, errors.Errorf("exporter port %d is out of range", c.ExporterPort))
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		result = multierror.Append(result, errors.Errorf("metrics path %q must start with /", c.MetricsPath))
	}
	if c.MinimumServerVersion != "" {
		if _, err := semver.ParseTolerant(c.MinimumServerVersion); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "invalid minimum server version %q", c.MinimumServerVersion))
		}
	}
	switch c.HostForm {
	case ShortHosts, FQDNHosts:
	default:
		result = multierror.Append(result, errors.Errorf("unknown host form %q", c.HostForm))
	}
	switch c.ChaosBackend {
	case ChaosMesh, Toxiproxy:
	default:
		result = multierror.Append(result, errors.Errorf("unknown chaos backend %q", c.ChaosBackend))
	}
	for name, d := range map[string]time.Duration{
		"deploy timeout":       c.DeployTimeout.Duration,
		"scale timeout":        c.ScaleTimeout.Duration,
		"election timeout":     c.ElectionTimeout.Duration,
		"connect timeout":      c.ConnectTimeout.Duration,
		"poll interval":        c.PollInterval.Duration,
		"median election time": c.MedianElectionTime.Duration,
		"replication margin":   c.ReplicationMargin.Duration,
		"injection timeout":    c.InjectionTimeout.Duration,
	} {
		if d <= 0 {
			result = multierror.Append(result, errors.Errorf("%s must be positive", name))
		}
	}
	if c.PollInterval.Duration > c.DeployTimeout.Duration {
		result = multierror.Append(result, errors.New("poll interval must not exceed the deploy timeout"))
	}
	return result.ErrorOrNil()
}

// ElectionWait is how long a fault is held and the settling bound after it: two median election cycles.
func (c Config) ElectionWait() time.Duration {
	return 2 * c.MedianElectionTime.Duration
}
