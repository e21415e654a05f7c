package httpapp

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// realIP replaces RemoteAddr with the forwarded client address, but only when
// the connecting peer is a trusted proxy. Otherwise the socket address stands
// and forwarding headers are ignored.
func (s *Server) realIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.proxies) > 0 {
			if peer, ok := parseAddr(r.RemoteAddr); ok && trusted(s.proxies, peer) {
				if ip, ok := forwardedClient(r.Header, s.proxies); ok {
					r.RemoteAddr = ip.String()
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// forwardedClient walks X-Forwarded-For from the nearest hop outwards and
// returns the first address that is not a trusted proxy. Entries further left
// were written by the client and are never consulted past that point.
func forwardedClient(h http.Header, proxies []netip.Prefix) (netip.Addr, bool) {
	var hops []string
	for _, v := range h.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(v, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		addr, ok := parseAddr(strings.TrimSpace(hops[i]))
		if !ok {
			return netip.Addr{}, false
		}
		if !trusted(proxies, addr) {
			return addr, true
		}
	}
	if len(hops) == 0 {
		return parseAddr(strings.TrimSpace(h.Get("X-Real-IP")))
	}
	return netip.Addr{}, false
}

func trusted(proxies []netip.Prefix, addr netip.Addr) bool {
	for _, p := range proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// parseAddr accepts "ip" or "ip:port".
func parseAddr(s string) (netip.Addr, bool) {
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func clientIP(r *http.Request) string {
	if addr, ok := parseAddr(r.RemoteAddr); ok {
		return addr.String()
	}
	return r.RemoteAddr
}
