// Package crl implements the CRL Updater component (C5): discovers
// distribution points across verified certificates, fetches and parses
// their CRLs, and keeps the revocation list (C3) synchronized.
package crl

import (
	"context"
	"crypto/x509"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/readium/lcp-crypto-core/internal/domain"
	"github.com/readium/lcp-crypto-core/internal/revocation"
)

var tracer = otel.Tracer("github.com/readium/lcp-crypto-core/internal/crl")

// DefaultMinRefresh and DefaultMaxRefresh bound the refresh cadence
// derived from a CRL's own nextUpdate field, per spec.md §4.5.
const (
	DefaultMinRefresh = time.Hour
	DefaultMaxRefresh = 24 * time.Hour
)

// Updater fetches CRLs from the union of distribution points discovered
// across verified certificates and keeps a revocation.List synchronized.
type Updater struct {
	net  domain.NetProvider
	list *revocation.List

	minRefresh, maxRefresh time.Duration

	mu           sync.Mutex
	urls         map[string]struct{}
	nextInterval time.Duration

	cancelled atomic.Bool
}

// New constructs an Updater. min/max bound the refresh cadence computed
// from each CRL's nextUpdate − thisUpdate window; zero values fall back
// to DefaultMinRefresh/DefaultMaxRefresh.
func New(net domain.NetProvider, list *revocation.List, minRefresh, maxRefresh time.Duration) *Updater {
	if minRefresh <= 0 {
		minRefresh = DefaultMinRefresh
	}
	if maxRefresh <= 0 {
		maxRefresh = DefaultMaxRefresh
	}
	return &Updater{
		net:          net,
		list:         list,
		minRefresh:   minRefresh,
		maxRefresh:   maxRefresh,
		urls:         make(map[string]struct{}),
		nextInterval: minRefresh,
	}
}

// UpdateDistributionPoints merges urls into the known set, deduplicating.
func (u *Updater) UpdateDistributionPoints(urls []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, url := range urls {
		if url == "" {
			continue
		}
		u.urls[url] = struct{}{}
	}
}

// ContainsAnyURL reports whether any distribution point is known yet.
func (u *Updater) ContainsAnyURL() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.urls) > 0
}

// Cancel signals in-flight and future Update calls to stop doing work.
func (u *Updater) Cancel() {
	u.cancelled.Store(true)
}

// NextRefreshInterval returns the cadence computed by the most recent
// Update call: the shortest nextUpdate − thisUpdate window among the CRLs
// it merged, clamped to [minRefresh, maxRefresh], or maxRefresh if it
// merged none. Before the first Update it is minRefresh.
func (u *Updater) NextRefreshInterval() time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.nextInterval
}

// Update fetches every known distribution point's CRL, merging each one
// that parses and whose thisUpdate is newer than what is already held.
// A single URL's failure is logged and does not prevent the others from
// being processed; the first error encountered (if any) is returned so
// callers can apply their own hard/soft-fail policy.
func (u *Updater) Update(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "CRLUpdater.Update")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if u.cancelled.Load() {
		return nil
	}

	u.mu.Lock()
	urls := make([]string, 0, len(u.urls))
	for url := range u.urls {
		urls = append(urls, url)
	}
	u.mu.Unlock()

	span.SetAttributes(attribute.Int("crl.distribution_points", len(urls)))

	var firstErr error
	nextInterval := u.maxRefresh

	for _, url := range urls {
		if u.cancelled.Load() {
			break
		}

		data, err := u.net.Fetch(ctx, url)
		if err != nil {
			slog.Warn("crl fetch failed", "url", url, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		list, err := x509.ParseRevocationList(data)
		if err != nil {
			slog.Warn("crl parse failed", "url", url, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if prev, ok := u.list.LastUpdate(url); ok && !list.ThisUpdate.After(prev) {
			continue
		}

		serials := make([][]byte, 0, len(list.RevokedCertificateEntries))
		for _, entry := range list.RevokedCertificateEntries {
			serials = append(serials, entry.SerialNumber.Bytes())
		}
		u.list.ReplaceFromURL(url, serials, list.ThisUpdate)

		if interval := clamp(list.NextUpdate.Sub(list.ThisUpdate), u.minRefresh, u.maxRefresh); interval < nextInterval {
			nextInterval = interval
		}
	}

	u.mu.Lock()
	u.nextInterval = nextInterval
	u.mu.Unlock()

	return firstErr
}

func clamp(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
