// Package proxy fetches free HTTP proxies from public providers and
// validates that they actually relay traffic. The bot can be pointed at a
// working proxy from the report.
package proxy
