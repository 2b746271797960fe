// Package updater implements the remote-mirror plug-point the original
// Nexus indexer calls IndexUpdater. spec.md §1 scopes the download path
// itself out of this repository's core, leaving only "the interface
// matters" — this package supplies that interface plus a minimal
// implementation used by the `identify` CLI surface: fetch a remote
// properties file over HTTP and decide, by chain-id comparison, whether
// a full or incremental fetch is required (spec.md §4.G: "a consumer
// whose stored chain id does not equal the published one MUST perform a
// full download").
package updater

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/packer"
)

// FetchPlan is the outcome of comparing a locally-held chain position
// against a remote mirror's published properties.
type FetchPlan int

const (
	// PlanUpToDate means the local copy already reflects the remote
	// chain position; no download is needed.
	PlanUpToDate FetchPlan = iota
	// PlanIncremental means the remote chain matches the local one and
	// has newer incremental chunks the local copy hasn't fetched yet.
	PlanIncremental
	// PlanFull means the remote chain id differs from the local one (or
	// there is no local chain yet): only a full snapshot download can
	// bring the local copy in sync.
	PlanFull
)

func (p FetchPlan) String() string {
	switch p {
	case PlanUpToDate:
		return "up-to-date"
	case PlanIncremental:
		return "incremental"
	case PlanFull:
		return "full"
	default:
		return "unknown"
	}
}

// Plan decides the fetch strategy for a consumer currently at
// (localChainID, localCounter) against a freshly fetched remote
// properties file.
func Plan(localChainID string, localCounter int, remote *packer.Properties) FetchPlan {
	if remote == nil {
		return PlanUpToDate
	}
	if localChainID == "" || localChainID != remote.ChainID {
		return PlanFull
	}
	if remote.LastIncremental <= localCounter {
		return PlanUpToDate
	}
	return PlanIncremental
}

// IndexUpdater fetches a remote repository's published index properties
// and decides how a consumer should catch up. Implementations must be
// safe for concurrent use.
type IndexUpdater interface {
	FetchRemoteProperties(ctx context.Context, baseURL string) (*packer.Properties, error)
}

const propertiesFile = "nexus-maven-repository-index.properties"

// HTTPUpdater is the minimal IndexUpdater implementation: a plain
// net/http client wrapped with the same CircuitBreaker/Retry helpers
// internal/errors already provides for exactly this kind of flaky,
// idempotent GET.
type HTTPUpdater struct {
	Client      *http.Client
	Breaker     *nxerrors.CircuitBreaker
	RetryConfig nxerrors.RetryConfig
}

// NewHTTPUpdater returns an HTTPUpdater with sensible defaults: a 30s
// client timeout, a circuit breaker that opens after 5 consecutive
// failures and probes again after 30s, and the package's default retry
// backoff.
func NewHTTPUpdater() *HTTPUpdater {
	return &HTTPUpdater{
		Client:      &http.Client{Timeout: 30 * time.Second},
		Breaker:     nxerrors.NewCircuitBreaker("index-updater", nxerrors.WithMaxFailures(5), nxerrors.WithResetTimeout(30*time.Second)),
		RetryConfig: nxerrors.DefaultRetryConfig(),
	}
}

// FetchRemoteProperties downloads and parses baseURL's
// nexus-maven-repository-index.properties.
func (u *HTTPUpdater) FetchRemoteProperties(ctx context.Context, baseURL string) (*packer.Properties, error) {
	url := strings.TrimRight(baseURL, "/") + "/" + propertiesFile

	open := func() ([]byte, error) {
		return nil, nxerrors.New(nxerrors.ErrCodeNetworkUnavailable, "circuit open for index-updater", nil)
	}
	body, err := nxerrors.RetryWithResult(ctx, u.RetryConfig, func() ([]byte, error) {
		return nxerrors.CircuitExecuteWithResult(u.Breaker, func() ([]byte, error) {
			return u.get(ctx, url)
		}, open)
	})
	if err != nil {
		return nil, nxerrors.New(nxerrors.ErrCodeNetworkUnavailable, "fetching remote index properties", err)
	}

	return packer.ParseProperties(strings.NewReader(string(body)))
}

func (u *HTTPUpdater) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nxerrors.New(nxerrors.ErrCodeNetworkUnavailable, "unexpected status fetching remote properties", nil).
			WithDetail("status", resp.Status).
			WithDetail("url", url)
	}
	return io.ReadAll(resp.Body)
}
