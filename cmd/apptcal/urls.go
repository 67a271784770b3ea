package main

import (
	"net"
	"net/url"
)

// selfURL turns a listen address into a base URL reachable from this host.
// Wildcard hosts (":5000", "0.0.0.0:5000", "[::]:5000") map to loopback.
func selfURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// withBasicAuth embeds credentials into raw so the headless browser passes
// the service's Basic Auth.
func withBasicAuth(raw, user, pass string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.User = url.UserPassword(user, pass)
	return u.String()
}
