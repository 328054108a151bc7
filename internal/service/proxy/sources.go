package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"botstrap/internal/logger"
)

// Source is one public provider of free proxy addresses.
type Source struct {
	// Name identifies the provider in logs.
	Name string
	// URL is the provider endpoint.
	URL string
	// Limit caps how many addresses are taken from this provider.
	Limit int
	// Parse extracts "host:port" strings from the response body.
	Parse func(data []byte) []string
}

// Sources returns the built-in providers in fetch order.
func Sources() []Source {
	return []Source{
		{
			Name:  "proxyscrape",
			URL:   "https://api.proxyscrape.com/v2/?request=displayproxies&protocol=http&timeout=10000&country=all&ssl=all&anonymity=elite",
			Limit: 15,
			Parse: func(data []byte) []string {
				return parsePlainList(string(data), "\n")
			},
		},
		{
			Name:  "proxy-list.download",
			URL:   "https://www.proxy-list.download/api/v1/get?type=http&anon=elite",
			Limit: 10,
			Parse: func(data []byte) []string {
				return parsePlainList(string(data), "\r\n")
			},
		},
		{
			Name:  "geonode",
			URL:   "https://proxylist.geonode.com/api/proxy-list?limit=20&page=1&sort_by=lastChecked&sort_type=desc&protocols=http%2Chttps",
			Limit: 10,
			Parse: parseGeoNode,
		},
	}
}

// fallbackProxies is used when every provider fails.
//
//nolint:gochecknoglobals // Static fallback list.
var fallbackProxies = []string{
	"http://20.111.54.16:8123",
	"http://167.99.174.59:80",
	"http://104.248.90.212:80",
	"http://159.89.49.60:80",
	"http://159.65.221.25:80",
	"http://8.219.97.248:80",
	"http://47.88.3.19:8080",
	"http://47.91.45.235:80",
	"http://43.134.68.153:3128",
	"http://178.62.201.21:80",
	"http://185.162.230.55:80",
	"http://195.154.255.118:8080",
	"http://51.159.115.233:3128",
	"http://103.152.112.162:80",
	"http://194.67.91.153:80",
}

// cloudflarePrefixes are edge IP ranges that never act as usable proxies.
//
//nolint:gochecknoglobals // Static filter table.
var cloudflarePrefixes = []string{
	"104.16.", "104.17.", "104.18.", "104.19.", "104.20.", "104.21.",
	"104.22.", "104.23.", "104.24.", "104.25.", "104.26.", "104.27.",
	"172.64.", "172.65.", "172.66.", "172.67.", "172.68.", "172.69.",
	"108.162.", "141.101.", "162.159.", "185.193.",
}

// Fetch collects candidate proxy URLs from all providers, deduplicated and
// normalized to the "http://host:port" form. Provider failures are logged
// and skipped; when nothing was fetched the fallback list is returned.
func Fetch(ctx context.Context, client *http.Client, sources []Source) []string {
	var (
		proxies []string
		seen    = make(map[string]struct{})
	)

	for _, source := range sources {
		addresses, err := fetchSource(ctx, client, source)
		if err != nil {
			logger.WarnKV(ctx, "Proxy source failed", "source", source.Name, "error", err)
			continue
		}

		if len(addresses) > source.Limit {
			addresses = addresses[:source.Limit]
		}

		added := 0

		for _, address := range addresses {
			candidate := "http://" + address
			if _, ok := seen[candidate]; ok {
				continue
			}

			seen[candidate] = struct{}{}
			proxies = append(proxies, candidate)
			added++
		}

		logger.InfoKV(ctx, "Fetched proxies", "source", source.Name, "count", added)
	}

	if len(proxies) == 0 {
		logger.Warn(ctx, "All proxy sources failed, using the fallback list")
		return append([]string(nil), fallbackProxies...)
	}

	return proxies
}

// fetchSource downloads and parses one provider response.
func fetchSource(ctx context.Context, client *http.Client, source Source) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w", response.Status, errBadHTTPStatus)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	return source.Parse(data), nil
}

// parsePlainList extracts "host:port" entries from line-separated text.
func parsePlainList(data, separator string) []string {
	var addresses []string

	for _, line := range strings.Split(strings.TrimSpace(data), separator) {
		line = strings.TrimSpace(line)
		if line != "" && strings.Contains(line, ":") {
			addresses = append(addresses, line)
		}
	}

	return addresses
}

// parseGeoNode extracts "host:port" entries from the GeoNode JSON payload.
func parseGeoNode(data []byte) []string {
	var payload struct {
		Data []struct {
			IP   string `json:"ip"`
			Port string `json:"port"`
		} `json:"data"`
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}

	var addresses []string

	for _, entry := range payload.Data {
		if entry.IP != "" && entry.Port != "" {
			addresses = append(addresses, entry.IP+":"+entry.Port)
		}
	}

	return addresses
}

// isCloudflare reports whether the host sits in a known Cloudflare edge range.
func isCloudflare(host string) bool {
	for _, prefix := range cloudflarePrefixes {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}

	return false
}
