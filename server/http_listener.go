package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gocddb/core/cddb"
	"gocddb/logger"
)

// CGIPath is where CDDB clients expect the HTTP interface.
const CGIPath = "/~cddb/cddb.cgi"

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewRouter serves the CDDB HTTP interface, a websocket interface, metrics
// from gatherer and a health check.
func NewRouter(d *Dispatcher, gatherer prometheus.Gatherer) *mux.Router {
	router := mux.NewRouter()

	// CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	router.HandleFunc(CGIPath, cgiHandler(d)).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/ws", wsHandler(d)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return router
}

// httpWriter writes every response of a request into one HTTP body.
type httpWriter struct {
	w http.ResponseWriter
}

func (h httpWriter) Interface() string {
	return "http"
}

func (h httpWriter) Respond(resp *cddb.Response) error {
	_, err := resp.WriteTo(h.w)
	return err
}

// cgiHandler decodes the cmd, hello and proto parameters of a CGI request.
// A request missing any of them yields a syntax error.
func cgiHandler(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var commands []string
		if err := r.ParseForm(); err != nil {
			logger.Warn("failed to parse cgi form", logger.ErrorField(err))
		} else if r.Form.Has("cmd") && r.Form.Has("hello") && r.Form.Has("proto") {
			commands = []string{
				"cddb hello " + r.Form.Get("hello"),
				"proto " + r.Form.Get("proto"),
				r.Form.Get("cmd"),
			}
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := d.Handle(r.Context(), commands, httpWriter{w}); err != nil {
			logger.Warn("failed to answer http request", logger.ErrorField(err))
		}
	}
}

// wsWriter sends each response as one text message.
type wsWriter struct {
	conn *websocket.Conn
}

func (ws wsWriter) Interface() string {
	return "websocket"
}

func (ws wsWriter) Respond(resp *cddb.Response) error {
	ws.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return ws.conn.WriteMessage(websocket.TextMessage, []byte(resp.String()))
}

// wsHandler runs one command per text message until the client closes the
// connection or sends quit.
func wsHandler(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", logger.ErrorField(err))
			return
		}
		defer conn.Close()

		writer := wsWriter{conn}
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Debug("websocket closed", logger.ErrorField(err))
				}
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}

			command := strings.TrimSpace(string(data))
			if strings.EqualFold(command, "quit") {
				writer.Respond(cddb.NewResponse(cddb.StatusGoodbye, "Closing connection. Goodbye."))
				return
			}
			if err := d.Handle(r.Context(), []string{command}, writer); err != nil {
				logger.Warn("failed to answer websocket command", logger.ErrorField(err))
				return
			}
		}
	}
}
