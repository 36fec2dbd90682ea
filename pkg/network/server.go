package network

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/hotqc/node/pkg/consensus"
)

// Server is the browser/observer-facing HTTP+WebSocket surface: a health
// check, the WS upgrade endpoint, and nothing about consensus internals
// beyond what a fired certificate already reveals.
type Server struct {
	router *mux.Router
	hub    *Hub
}

func NewServer() *Server {
	s := &Server{
		router: mux.NewRouter(),
		hub:    NewHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	handler := c.Handler(s.router)

	log.Printf("[network] server starting on %s", addr)
	return http.ListenAndServe(addr, handler)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// Publish implements driver.CertSink: every fired certificate is pushed to
// connected observers over the WebSocket hub.
func (s *Server) Publish(view consensus.ViewNumber, cert consensus.AssembledSignature) error {
	s.hub.BroadcastCertificate(CertificateUpdate{
		Type:      "certificate",
		View:      uint64(view),
		Kind:      cert.Kind.String(),
		Timestamp: time.Now().UnixMilli(),
	})
	return nil
}
