// Package metrics checks the MongoDB exporter that runs next to every member.
package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/mongodb/mongodb-replicaset-verifier/pkg/orchestrator"
)

type Options struct {
	Port int
	Path string
	// Substring must occur more than MinOccurrences times in the response body.
	Substring      string
	MinOccurrences int
	// Username and Password are sent as basic auth when Password is set.
	Username string
	Password string
	Timeout  time.Duration
}

// Report is what one exporter returned.
type Report struct {
	Unit        string
	URL         string
	StatusCode  int
	Occurrences int
	// Families are the metric families whose name contains the substring.
	Families []string
}

func (r Report) String() string {
	return fmt.Sprintf("%s: HTTP %d, %d occurrences, %d families", r.Unit, r.StatusCode, r.Occurrences, len(r.Families))
}

type Checker struct {
	client *http.Client
	opts   Options
	log    *zap.SugaredLogger
}

func NewChecker(opts Options, log *zap.SugaredLogger) Checker {
	return Checker{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		log:    log,
	}
}

func (c Checker) url(unit orchestrator.Unit) string {
	path := c.opts.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("http://%s:%d%s", unit.Address, c.opts.Port, path)
}

// Check scrapes the exporter of unit once.
func (c Checker) Check(ctx context.Context, unit orchestrator.Unit) (Report, error) {
	report := Report{Unit: unit.Name, URL: c.url(unit)}
	if unit.Address == "" {
		return report, errors.Errorf("unit %s has no address", unit.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, report.URL, nil)
	if err != nil {
		return report, err
	}
	if c.opts.Password != "" {
		req.SetBasicAuth(c.opts.Username, c.opts.Password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return report, errors.Wrapf(err, "could not scrape %s", report.URL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return report, errors.Wrapf(err, "could not read response from %s", report.URL)
	}
	report.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		return report, errors.Errorf("%s returned HTTP %d", report.URL, resp.StatusCode)
	}

	report.Occurrences = strings.Count(string(body), c.opts.Substring)
	report.Families = c.families(string(body))
	if report.Occurrences <= c.opts.MinOccurrences {
		return report, errors.Errorf("%s mentions %q %d times, expected more than %d", report.URL, c.opts.Substring, report.Occurrences, c.opts.MinOccurrences)
	}
	c.log.Debugf("Scraped %s", report)
	return report, nil
}

// families parses body as text exposition format. A body that does not parse is not an
// error for the check, it only yields no families.
func (c Checker) families(body string) []string {
	var parser expfmt.TextParser
	parsed, err := parser.TextToMetricFamilies(strings.NewReader(body))
	if err != nil {
		c.log.Warnf("Could not parse metrics: %s", err)
		return nil
	}
	var names []string
	for name := range parsed {
		if strings.Contains(name, c.opts.Substring) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// CheckAll checks every unit and returns all reports together with every failure.
func (c Checker) CheckAll(ctx context.Context, units []orchestrator.Unit) ([]Report, error) {
	if len(units) == 0 {
		return nil, errors.New("no units to check")
	}
	var result *multierror.Error
	reports := make([]Report, 0, len(units))
	for _, unit := range units {
		report, err := c.Check(ctx, unit)
		reports = append(reports, report)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		c.log.Infof("Exporter of %s is serving %d %s metric families", unit.Name, len(report.Families), c.opts.Substring)
	}
	return reports, result.ErrorOrNil()
}
