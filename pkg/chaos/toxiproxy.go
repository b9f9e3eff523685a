package chaos

import (
	"context"
	"sync"

	toxiproxy "github.com/Shopify/toxiproxy/client"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ToxiproxyInjector isolates members that are reached through toxiproxy by disabling
// the proxy named <prefix><unit>. Disabled proxies drop existing and new connections.
type ToxiproxyInjector struct {
	client *toxiproxy.Client
	prefix string
	log    *zap.SugaredLogger

	mu       sync.Mutex
	disabled []*toxiproxy.Proxy
}

func NewToxiproxyInjector(endpoint, prefix string, log *zap.SugaredLogger) *ToxiproxyInjector {
	return &ToxiproxyInjector{client: toxiproxy.NewClient(endpoint), prefix: prefix, log: log}
}

func (t *ToxiproxyInjector) Isolate(_ context.Context, target Target) error {
	name := t.prefix + target.Unit
	proxy, err := t.client.Proxy(name)
	if err != nil {
		return errors.Wrapf(err, "could not get proxy %s", name)
	}
	if err := proxy.Disable(); err != nil {
		return errors.Wrapf(err, "could not disable proxy %s", name)
	}
	t.mu.Lock()
	t.disabled = append(t.disabled, proxy)
	t.mu.Unlock()
	t.log.Debugf("Disabled proxy %s", name)
	return nil
}

// Restore enables every proxy this injector disabled.
func (t *ToxiproxyInjector) Restore(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var result *multierror.Error
	var remaining []*toxiproxy.Proxy
	for _, proxy := range t.disabled {
		if err := proxy.Enable(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "could not enable proxy %s", proxy.Name))
			remaining = append(remaining, proxy)
			continue
		}
		t.log.Debugf("Enabled proxy %s", proxy.Name)
	}
	t.disabled = remaining
	return result.ErrorOrNil()
}
