package proxy

import (
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/observability"
	"github.com/zerospeak/stranglergw/internal/router"
	"github.com/zerospeak/stranglergw/internal/util"
)

// websocketProxy relays WebSocket connections at the message level.
type websocketProxy struct {
	logger observability.Logger
}

// upgrader upgrades client connections to WebSocket.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin is validated by the CORS middleware.
	},
}

// serveWebSocket relays a WebSocket upgrade to the route's cluster. The
// per-request timeout does not apply; the relay lives as long as either
// side keeps the connection open.
func (p *Proxy) serveWebSocket(w http.ResponseWriter, r *http.Request, route *router.Route) {
	c := route.Cluster()

	sent, received, err := p.ws.relay(w, r, route)
	if err != nil {
		p.metrics.RecordUpstreamError(c.Name(), "websocket")
		p.logger.Error("websocket relay failed",
			observability.String("route", route.Name()),
			observability.String("cluster", c.Name()),
			observability.Error(err),
		)
		return
	}

	p.logger.Debug("websocket relay closed",
		observability.String("route", route.Name()),
		observability.String("cluster", c.Name()),
		observability.Int64("messages_to_client", sent),
		observability.Int64("messages_from_client", received),
	)
}

// relay upgrades the client connection, dials the cluster, and copies
// messages in both directions until one side closes. Returns the number of
// messages relayed to and from the client.
func (wp *websocketProxy) relay(
	w http.ResponseWriter,
	r *http.Request,
	route *router.Route,
) (sent int64, received int64, err error) {
	c := route.Cluster()
	backendURL := backendWSURL(c.Scheme(), c.Address(), r)

	dialer := websocket.Dialer{}
	if tlsConfig := c.TLSConfig(); tlsConfig != nil {
		dialer.TLSClientConfig = tlsConfig
	}

	requestHeader := relayRequestHeaders(r)

	backendConn, resp, dialErr := dialer.DialContext(r.Context(), backendURL, requestHeader)
	if dialErr != nil {
		wp.handleDialError(w, resp, dialErr)
		return 0, 0, dialErr
	}
	defer backendConn.Close()

	responseHeader := relayResponseHeaders(resp)
	clientConn, upgradeErr := upgrader.Upgrade(w, r, responseHeader)
	if upgradeErr != nil {
		return 0, 0, upgradeErr
	}
	defer clientConn.Close()

	sent, received = pump(clientConn, backendConn)
	return sent, received, nil
}

// handleDialError forwards the cluster's handshake rejection to the client,
// or answers 502 when the dial produced no response at all.
func (wp *websocketProxy) handleDialError(w http.ResponseWriter, resp *http.Response, dialErr error) {
	if resp != nil {
		defer resp.Body.Close()
		for k, vv := range resp.Header {
			for _, v := range vv {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(resp.StatusCode)
	} else {
		writeError(w, util.ErrUpstreamUnreachable)
	}
	wp.logger.Debug("websocket dial failed",
		observability.Error(dialErr),
	)
}

// pump copies messages between the client and cluster connections until one
// direction fails, then closes the other side cleanly. The counters are
// atomic because the surviving goroutine may still be relaying when the
// first one fails.
func pump(clientConn, backendConn *websocket.Conn) (sent int64, received int64) {
	errCh := make(chan error, 2)
	var sentCount, receivedCount atomic.Int64

	go func() {
		for {
			msgType, msg, readErr := backendConn.ReadMessage()
			if readErr != nil {
				_ = clientConn.WriteMessage(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				)
				errCh <- readErr
				return
			}
			sentCount.Add(1)
			if writeErr := clientConn.WriteMessage(msgType, msg); writeErr != nil {
				errCh <- writeErr
				return
			}
		}
	}()

	go func() {
		for {
			msgType, msg, readErr := clientConn.ReadMessage()
			if readErr != nil {
				_ = backendConn.WriteMessage(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				)
				errCh <- readErr
				return
			}
			receivedCount.Add(1)
			if writeErr := backendConn.WriteMessage(msgType, msg); writeErr != nil {
				errCh <- writeErr
				return
			}
		}
	}()

	<-errCh

	return sentCount.Load(), receivedCount.Load()
}

// backendWSURL builds the WebSocket URL for the cluster, carrying the
// request path and query through unchanged.
func backendWSURL(scheme, address string, r *http.Request) string {
	wsScheme := "ws"
	if scheme == config.SchemeHTTPS {
		wsScheme = "wss"
	}

	u := wsScheme + "://" + address + r.URL.Path
	if r.URL.RawQuery != "" {
		u += "?" + r.URL.RawQuery
	}
	return u
}

// relayRequestHeaders builds headers to forward to the cluster, excluding
// the WebSocket handshake headers gorilla manages itself.
func relayRequestHeaders(r *http.Request) http.Header {
	header := http.Header{}
	for k, vv := range r.Header {
		switch strings.ToLower(k) {
		case "upgrade", "connection", "sec-websocket-key",
			"sec-websocket-version", "sec-websocket-extensions",
			"sec-websocket-protocol":
			continue
		}
		for _, v := range vv {
			header.Add(k, v)
		}
	}
	return header
}

// relayResponseHeaders extracts handshake response headers to forward to
// the client, excluding the ones gorilla sets during Upgrade.
func relayResponseHeaders(resp *http.Response) http.Header {
	if resp == nil {
		return nil
	}
	header := http.Header{}
	for k, vv := range resp.Header {
		switch strings.ToLower(k) {
		case "upgrade", "connection", "sec-websocket-accept":
			continue
		}
		for _, v := range vv {
			header.Add(k, v)
		}
	}
	return header
}
