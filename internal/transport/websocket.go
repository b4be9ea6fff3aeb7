// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	applog "github.com/mrcool7387/BarScreenSaver/internal/log"
	"github.com/mrcool7387/BarScreenSaver/internal/viz"
)

// minSendInterval caps the broadcast rate so slow browser clients are
// not flooded faster than they can render.
const minSendInterval = 33 * time.Millisecond

// WebSocketTransport serves snapshots as JSON frames to any number of
// WebSocket clients on /frames.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan *viz.Snapshot
	done      chan struct{}
	server    *http.Server
	lastSend  time.Time
	sendMu    sync.Mutex
	closed    bool
}

// NewWebSocketTransport starts a WebSocket server on addr and returns
// the transport. The server runs until Close.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Local visualizer frontends connect from file:// and
				// arbitrary dev ports.
				return true
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan *viz.Snapshot, 64),
		done:      make(chan struct{}),
	}
	wst.start()
	return wst
}

func (wst *WebSocketTransport) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/frames", wst.handleFrames)

	wst.server = &http.Server{
		Addr:    wst.addr,
		Handler: mux,
	}

	go func() {
		applog.Infof("WebSocket: Serving snapshot frames on %s/frames", wst.addr)
		if err := wst.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("WebSocket: Server error: %v", err)
		}
	}()

	go wst.handleBroadcasts()
}

func (wst *WebSocketTransport) handleFrames(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocket: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("WebSocket: Client connected, total: %d", total)

	go func() {
		// Clients never send payloads; the read only detects close.
		_, _, err := conn.ReadMessage()
		if err != nil {
			wst.clientsMu.Lock()
			delete(wst.clients, conn)
			total := len(wst.clients)
			wst.clientsMu.Unlock()
			conn.Close()
			applog.Infof("WebSocket: Client disconnected, total: %d", total)
		}
	}()
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case snap := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				if err := client.WriteJSON(snap); err != nil {
					applog.Debugf("WebSocket: Dropping client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Send queues a snapshot for broadcast. Frames beyond the rate cap or
// a full queue are dropped; the next frame supersedes them anyway.
// Sending on a closed transport is a silent no-op.
func (wst *WebSocketTransport) Send(snap *viz.Snapshot) error {
	wst.sendMu.Lock()
	if wst.closed || time.Since(wst.lastSend) < minSendInterval {
		wst.sendMu.Unlock()
		return nil
	}
	wst.lastSend = time.Now()
	wst.sendMu.Unlock()

	select {
	case wst.broadcast <- snap:
	default:
	}
	return nil
}

// Close stops the broadcast goroutine, disconnects all clients and
// shuts the server down. Safe to call more than once.
func (wst *WebSocketTransport) Close() error {
	wst.sendMu.Lock()
	if wst.closed {
		wst.sendMu.Unlock()
		return nil
	}
	wst.closed = true
	close(wst.done)
	wst.sendMu.Unlock()

	applog.Infof("WebSocket: Closing server")

	wst.clientsMu.Lock()
	for client := range wst.clients {
		client.Close()
	}
	wst.clients = make(map[*websocket.Conn]bool)
	wst.clientsMu.Unlock()

	if wst.server != nil {
		return wst.server.Close()
	}
	return nil
}

var _ Transport = (*WebSocketTransport)(nil)
