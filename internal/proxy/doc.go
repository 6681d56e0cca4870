// Package proxy forwards matched requests to their upstream clusters.
//
// The proxy resolves the request path against the routing table, then
// relays the request to the route's cluster in a single blocking round
// trip. Method, headers, body and response travel unmodified; only the Host
// header and X-Forwarded-* headers are rewritten. There are no retries and
// no load balancing.
//
// Requests that match no route get a JSON 404. Upstream failures map to 502,
// timeouts to 504, and open circuit breakers to 503. WebSocket upgrade
// requests are relayed at the message level instead of round-tripped.
package proxy
