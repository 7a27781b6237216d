package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
)

// Dispatcher is an Engine that tries its engines one after another,
// lightest first, and escalates when a fetch fails or the returned page
// does not look rendered (see LooksRendered). The engine that produced a
// healthy page is remembered per host and tried first next time.
//
// Engines are never raced: at most one request is in flight.
type Dispatcher struct {
	engines []Engine
	memory  *DomainMemory
	healthy func(*FetchResult) bool
}

// NewDispatcher creates a Dispatcher over engines in escalation order.
func NewDispatcher(engines []Engine, memory *DomainMemory) *Dispatcher {
	return &Dispatcher{
		engines: engines,
		memory:  memory,
		healthy: func(r *FetchResult) bool { return LooksRendered(r.HTML) },
	}
}

func (d *Dispatcher) Name() string { return "auto" }

// Fetch returns the first healthy result. When every engine answered but
// none looked rendered, the last answer is returned. When every engine
// failed, the last error is returned. A 4xx status is final: a browser would
// be served the same answer.
func (d *Dispatcher) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	host := extractDomain(req.URL)

	var lastErr error
	var fallback *FetchResult
	for _, eng := range d.order(host) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := eng.Fetch(ctx, req)
		if err != nil {
			if isClientError(err) {
				return nil, err
			}
			slog.Debug("engine failed", "engine", eng.Name(), "url", req.URL, "error", err)
			lastErr = err
			if d.memory.Get(host) == eng.Name() {
				d.memory.Delete(host)
			}
			continue
		}

		if !d.healthy(result) {
			slog.Info("page not rendered, escalating", "engine", eng.Name(), "url", req.URL)
			fallback = result
			continue
		}

		if d.memory.Get(host) != eng.Name() {
			slog.Info("engine selected", "engine", eng.Name(), "host", host)
		}
		d.memory.Set(host, eng.Name())
		return result, nil
	}

	if fallback != nil {
		return fallback, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("dispatcher: no engines for %s", req.URL)
	}
	return nil, lastErr
}

// order puts the remembered engine for host first, keeping the rest in
// escalation order.
func (d *Dispatcher) order(host string) []Engine {
	remembered := d.memory.Get(host)
	if remembered == "" {
		return d.engines
	}

	ordered := make([]Engine, 0, len(d.engines))
	for _, e := range d.engines {
		if e.Name() == remembered {
			ordered = append(ordered, e)
		}
	}
	for _, e := range d.engines {
		if e.Name() != remembered {
			ordered = append(ordered, e)
		}
	}
	return ordered
}

func isClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
