package internal

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"groupcode/internal/storage"
)

const (
	roomKeyLength    = 12
	createRoomLimit  = 10
	createRoomWindow = time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server is the HTTP surface of the relay: the websocket attach point plus
// the small REST sidecar for room reservations, existence probes, and metrics.
type Server struct {
	relay         *Relay
	registry      *Registry
	store         *storage.Store
	metrics       *Metrics
	roomTTL       time.Duration
	createLimiter *RateLimiter
	log           zerolog.Logger
	ctx           context.Context
}

// NewServer wires the registry, relay, and reservation store together. The
// context bounds the reservation expiry timers; cancel it on shutdown.
func NewServer(ctx context.Context, store *storage.Store, roomTTL time.Duration, log zerolog.Logger) *Server {
	registry := NewRegistry()
	metrics := NewMetrics()
	var reservations ReservationSource
	if store != nil {
		reservations = store
	}
	return &Server{
		relay:         NewRelay(registry, reservations, metrics, log),
		registry:      registry,
		store:         store,
		metrics:       metrics,
		roomTTL:       roomTTL,
		createLimiter: NewRateLimiter(createRoomLimit, createRoomWindow),
		log:           log,
		ctx:           ctx,
	}
}

// Registry exposes the session registry, mainly for wiring and tests.
func (s *Server) Registry() *Registry {
	return s.registry
}

// ServeWS upgrades the request and hands the connection to the relay. The
// connection joins a room by sending a join event, not via the URL.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.relay.Attach(conn)
}

type createRoomRequest struct {
	Passcode string `json:"passcode"`
}

type createRoomResponse struct {
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleCreateRoom reserves an unguessable room key, optionally protected by
// a passcode, and schedules the reservation's expiry.
func (s *Server) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if s.store == nil {
		http.Error(w, "room reservations are disabled", http.StatusServiceUnavailable)
		return
	}
	if !s.createLimiter.Allow(clientIP(r)) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	var req createRoomRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	var passcodeHash []byte
	if passcode := strings.TrimSpace(req.Passcode); passcode != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		passcodeHash = hash
	}

	expiresAt := time.Now().Add(s.roomTTL)
	var key string
	for attempt := 0; ; attempt++ {
		key = generateRoomKey(roomKeyLength)
		err := s.store.CreateReservation(r.Context(), key, passcodeHash, expiresAt)
		if err == nil {
			break
		}
		if errors.Is(err, storage.ErrRoomReserved) && attempt < 3 {
			continue
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.metrics.IncReserved()
	go s.expireReservation(key, time.Until(expiresAt))
	s.log.Info().Str("room", key).Time("expires", expiresAt).Bool("passcode", passcodeHash != nil).Msg("room reserved")
	writeJSON(w, http.StatusCreated, createRoomResponse{Key: key, ExpiresAt: expiresAt})
}

// HandleRoomExists reports whether a room key is usable: either live in the
// registry right now or reserved in the store.
func (s *Server) HandleRoomExists(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("room")
	if key == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}
	if s.registry.Exists(key) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	if s.store != nil {
		res, err := s.store.GetReservation(r.Context(), key)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if res != nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
	}
	http.Error(w, "not found", http.StatusNotFound)
}

// MetricsHandler serves the counter snapshot plus live registry gauges.
func (s *Server) MetricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		payload := s.metrics.Snapshot()
		rooms, participants := s.registry.Stats()
		payload["active_rooms"] = rooms
		payload["active_participants"] = participants
		payload["version"] = Version
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	})
}

// SweepReservations deletes reservations that expired while the server was
// down and re-arms expiry timers for the rest. Call once after Migrate.
func (s *Server) SweepReservations(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	reservations, err := s.store.ListReservations(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, res := range reservations {
		remaining := res.ExpiresAt.Sub(now)
		if remaining <= 0 {
			if err := s.store.DeleteReservation(ctx, res.Key); err != nil {
				s.log.Error().Str("room", res.Key).Err(err).Msg("failed to reap expired reservation")
				continue
			}
			s.log.Info().Str("room", res.Key).Msg("reaped expired reservation")
			continue
		}
		go s.expireReservation(res.Key, remaining)
	}
	return nil
}

// expireReservation deletes the reservation when its TTL lapses. Expiry only
// removes the reserved key; a live session keeps running until its last
// participant leaves.
func (s *Server) expireReservation(key string, after time.Duration) {
	timer := time.NewTimer(after)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-s.ctx.Done():
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.DeleteReservation(ctx, key); err != nil {
		s.log.Error().Str("room", key).Err(err).Msg("failed to expire reservation")
		return
	}
	s.log.Info().Str("room", key).Msg("reservation expired")
}

func generateRoomKey(length int) string {
	if length < 8 {
		length = 8
	}
	byteLen := (length * 5) / 8
	if (length*5)%8 != 0 {
		byteLen++
	}
	b := make([]byte, byteLen)
	_, _ = rand.Read(b)
	// RFC4648 base32 without padding, uppercase A-Z2-7
	enc := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
	if len(enc) >= length {
		return enc[:length]
	}
	return enc
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
