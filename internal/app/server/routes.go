package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/netutil"
	"gorm.io/gorm"

	"analyst/internal/api/dto"
	"analyst/internal/auth"
	"analyst/internal/database"
	"analyst/internal/events"
	"analyst/internal/geolite"
	"analyst/internal/metrics"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Lookup is the GeoIP surface the handlers use. *geolite.Reader implements it.
type Lookup interface {
	ASN(ip string) (geolite.ASNRecord, error)
	City(ip string) (geolite.CityRecord, error)
	ASNBatch(ips []string) ([]geolite.ASNRecord, error)
	CityBatch(ips []string) ([]geolite.CityRecord, error)
}

type Deps struct {
	DB         *gorm.DB
	Geo        Lookup
	Events     events.Publisher
	Metrics    *metrics.Metrics
	APIVersion string
}

type Server struct {
	users      *database.UserRepository
	lists      *database.IPListRepository
	resolver   *auth.Resolver
	geo        Lookup
	events     events.Publisher
	metrics    *metrics.Metrics
	apiVersion string
	prefix     string
}

func New(deps Deps) *Server {
	users := database.NewUserRepository(deps.DB)

	publisher := deps.Events
	if publisher == nil {
		publisher = events.Nop{}
	}

	apiVersion := deps.APIVersion
	if apiVersion == "" {
		apiVersion = "v1"
	}

	return &Server{
		users:      users,
		lists:      database.NewIPListRepository(deps.DB),
		resolver:   auth.NewResolver(users),
		geo:        deps.Geo,
		events:     publisher,
		metrics:    deps.Metrics,
		apiVersion: apiVersion,
		prefix:     "/api/" + apiVersion,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, title, description string) {
	writeJSON(w, status, dto.Error{Title: title, Description: description})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler returns the full middleware chain around the API routes.
func (s *Server) Handler() http.Handler {
	p := s.prefix
	router := http.NewServeMux()

	router.HandleFunc("POST "+p+"/init", s.initApp)
	router.HandleFunc("GET "+p+"/version", s.getVersion)

	router.Handle("GET "+p+"/users", s.requireAuth(s.listUsers))
	router.Handle("POST "+p+"/users", s.requireAuth(s.createUser))
	router.Handle("GET "+p+"/users/{username}", s.requireAuth(s.getUser))
	router.Handle("PUT "+p+"/users/{username}", s.requireAuth(s.updateUser))
	router.Handle("DELETE "+p+"/users/{username}", s.requireAuth(s.deleteUser))

	router.Handle("GET "+p+"/tokens/{username}", s.requireAuth(s.getToken))
	router.Handle("PUT "+p+"/tokens/{username}", s.requireAuth(s.rotateToken))

	router.Handle("GET "+p+"/asn/{ip}", s.requireAuth(s.getASN))
	router.Handle("POST "+p+"/asn", s.requireAuth(s.batchASN))
	router.Handle("GET "+p+"/geo/{ip}", s.requireAuth(s.getGeo))
	router.Handle("POST "+p+"/geo", s.requireAuth(s.batchGeo))

	router.Handle("GET "+p+"/iplists", s.requireAuth(s.listIPLists))
	router.Handle("POST "+p+"/iplists", s.requireAuth(s.createIPList))
	router.Handle("GET "+p+"/iplists/{name}", s.requireAuth(s.getIPList))
	router.Handle("PUT "+p+"/iplists/{name}", s.requireAuth(s.updateIPList))
	router.Handle("DELETE "+p+"/iplists/{name}", s.requireAuth(s.deleteIPList))

	router.Handle("GET "+p+"/iplists/{name}/items", s.requireAuth(s.listItems))
	router.Handle("POST "+p+"/iplists/{name}/items", s.requireAuth(s.addItems))
	router.Handle("DELETE "+p+"/iplists/{name}/items", s.requireAuth(s.removeItems))

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found", "")
	})

	log.Debug("Routes opened", "prefix", p)

	return enableCORS(s.observe(requireJSON(router)))
}

// Serve listens on port until ctx is cancelled. maxConnections > 0 caps the
// number of simultaneously accepted connections.
func (s *Server) Serve(ctx context.Context, port, maxConnections int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("api server listen: %w", err)
	}
	if maxConnections > 0 {
		listener = netutil.LimitListener(listener, maxConnections)
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warn("api server shutdown", "error", err)
			}
		case <-stopped:
		}
	}()

	log.Infof("Starting analyst API on port :%d", port)
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

func (s *Server) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		log.Warn("Could not publish list event", "type", event.Type, "list", event.List, "error", err)
	}
}
