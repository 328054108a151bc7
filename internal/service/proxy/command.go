package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"botstrap/internal/config"
	"botstrap/internal/logger"
)

var (
	errBadHTTPStatus     = errors.New("unexpected http status")
	errNoWorkingProxies  = errors.New("no working proxies found")
	errUnsupportedScheme = errors.New("unsupported proxy scheme")
)

const (
	// DefaultCheckURL is requested through each candidate to prove it relays traffic.
	DefaultCheckURL = "http://httpbin.org/ip"

	// defaultConcurrency bounds parallel candidate checks.
	defaultConcurrency = 8

	// dialTimeout bounds the raw TCP reachability test.
	dialTimeout = 3 * time.Second
)

// Options are inputs accepted by the proxy checker entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// CheckURL overrides the relay test target.
	CheckURL string
	// Concurrency bounds parallel checks; zero selects the default.
	Concurrency int
	// Client overrides the HTTP client used to fetch provider lists.
	Client *http.Client
	// Candidates bypasses fetching when non-empty.
	Candidates []string
}

// Run fetches free proxy candidates and validates them concurrently,
// logging every working proxy. It fails when none relay traffic.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "proxies")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.ProbeTimeout}
	}

	checkURL := opts.CheckURL
	if checkURL == "" {
		checkURL = DefaultCheckURL
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	candidates := opts.Candidates
	if len(candidates) == 0 {
		candidates = Fetch(ctx, client, Sources())
	}

	logger.InfoKV(ctx, "Validating proxies", "candidates", len(candidates))

	working := Validate(ctx, candidates, checkURL, cfg.ProbeTimeout, concurrency)
	if len(working) == 0 {
		return errNoWorkingProxies
	}

	for _, proxy := range working {
		logger.InfoKV(ctx, "Working proxy", "proxy", proxy)
	}

	logger.InfoKV(ctx, "Validation finished",
		"working", len(working), "tested", len(candidates))

	return nil
}

// Validate checks candidates concurrently and returns the working ones.
// A candidate passes when its port accepts TCP and it relays an HTTP
// request to checkURL.
func Validate(ctx context.Context, candidates []string, checkURL string, timeout time.Duration, concurrency int) []string {
	var (
		mu      sync.Mutex
		working []string
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for _, candidate := range candidates {
		candidate := candidate
		group.Go(func() error {
			if err := checkProxy(groupCtx, candidate, checkURL, timeout); err != nil {
				logger.DebugKV(groupCtx, "Proxy rejected", "proxy", candidate, "error", err)
				return nil
			}

			mu.Lock()
			working = append(working, candidate)
			mu.Unlock()

			return nil
		})
	}

	// Workers never return errors; Wait only synchronizes completion.
	_ = group.Wait()

	return working
}

// checkProxy performs the TCP and HTTP relay tests for one candidate.
func checkProxy(ctx context.Context, candidate, checkURL string, timeout time.Duration) error {
	proxyURL, err := url.Parse(candidate)
	if err != nil {
		return err
	}

	if proxyURL.Scheme != "http" && proxyURL.Scheme != "https" {
		return errUnsupportedScheme
	}

	if isCloudflare(proxyURL.Hostname()) {
		return errors.New("cloudflare edge address")
	}

	// Cheap reachability test before the full HTTP round trip.
	conn, err := net.DialTimeout("tcp", proxyURL.Host, dialTimeout)
	if err != nil {
		return err
	}

	_ = conn.Close()

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checkURL, http.NoBody)
	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", "Mozilla/5.0")

	response, err := client.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return errBadHTTPStatus
	}

	return nil
}
