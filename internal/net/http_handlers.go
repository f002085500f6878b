// Package net assembles the HTTP surface: health, diagnostics, the
// websocket endpoint, and static client hosting.
package net

import (
	"encoding/json"
	nethttp "net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	server "github.com/DanielSh-bit/tank-family-server"
	"github.com/DanielSh-bit/tank-family-server/internal/net/ws"
	"github.com/DanielSh-bit/tank-family-server/logging"
)

type HTTPHandlerConfig struct {
	ClientDir string
	Publisher logging.Publisher
}

func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gameState, numPlayers, tick := hub.DiagnosticsSnapshot()
		payload := struct {
			Status     string           `json:"status"`
			ServerTime int64            `json:"serverTime"`
			GameState  server.GameState `json:"gameState"`
			NumPlayers int              `json:"numPlayers"`
			Tick       uint64           `json:"tick"`
			TickRate   int              `json:"tickRate"`
			Telemetry  any              `json:"telemetry"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			GameState:  gameState,
			NumPlayers: numPlayers,
			Tick:       tick,
			TickRate:   server.TickRate(),
			Telemetry:  hub.TelemetrySnapshot(),
		}

		data, err := json.Marshal(payload)
		if err != nil {
			nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{Publisher: cfg.Publisher})
	mux.HandleFunc("/ws", wsHandler.Handle)

	if cfg.ClientDir != "" {
		mux.Handle("/", newClientHandler(cfg.ClientDir))
	}

	return mux
}

// newClientHandler serves the client bundle with no-cache headers so the
// service worker always revalidates, and the manifest content type browsers
// expect.
func newClientHandler(dir string) nethttp.Handler {
	fs := nethttp.FileServer(nethttp.Dir(dir))
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		if strings.HasSuffix(r.URL.Path, "manifest.json") {
			w.Header().Set("Content-Type", "application/manifest+json")
		}
		fs.ServeHTTP(w, r)
	})
}

// ResolveClientDir finds the client bundle relative to the working
// directory, falling back to the executable's directory.
func ResolveClientDir(base string) (string, bool) {
	candidates := []string{
		filepath.Join(base, "client"),
		filepath.Join(base, "..", "client"),
	}
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			return abs, true
		}
	}
	return "", false
}
