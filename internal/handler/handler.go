// Package handler implements the HTTP surface: the classify endpoint, the
// key-gated country endpoint, the canned legacy responses and the operational
// endpoints used by load balancers and deployment tooling.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"os"

	"github.com/mozilla/classify-client/internal/keys"
	"github.com/mozilla/classify-client/internal/logger"
	"github.com/mozilla/classify-client/internal/metrics"
	"github.com/mozilla/classify-client/internal/models"
	"github.com/mozilla/classify-client/internal/service"
	"github.com/mozilla/classify-client/internal/store"
	"github.com/mozilla/classify-client/internal/trust"
)

// classifyCacheControl forbids any caching of classifications: the payload
// depends on who is asking and when.
const classifyCacheControl = "max-age=0, no-cache, no-store, must-revalidate"

// Handler holds the dependencies of all HTTP handlers.
type Handler struct {
	classifier  *service.Classifier
	keys        *keys.Registry
	metrics     *metrics.Metrics
	log         *logger.Logger
	versionFile string
}

// New creates the handler set.
func New(classifier *service.Classifier, registry *keys.Registry, m *metrics.Metrics, log *logger.Logger, versionFile string) *Handler {
	if log == nil {
		log = logger.NewDefault()
	}

	return &Handler{
		classifier:  classifier,
		keys:        registry,
		metrics:     m,
		log:         log.WithComponent("handler"),
		versionFile: versionFile,
	}
}

// Classify serves the main classification payload.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	peer, forwarded, err := requestChain(r)
	if err != nil {
		h.log.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("unparseable peer address")
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	classification := h.classifier.Classify(peer, forwarded)

	w.Header().Set("Cache-Control", classifyCacheControl)
	writeJSON(w, http.StatusOK, classification)
}

// Country serves the full attribution of the calling client. Access requires
// an API key; the key check runs before any address resolution so
// unauthorized callers never reach the geolocation store.
func (h *Handler) Country(w http.ResponseWriter, r *http.Request) {
	if !h.keys.Authorized(r.URL.Query().Get("key")) {
		h.countCountryRequest("unauthorized")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Wrong key"))
		return
	}

	peer, forwarded, err := requestChain(r)
	if err != nil {
		h.log.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("unparseable peer address")
		h.countCountryRequest("error")
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	country, err := h.classifier.CountryFor(peer, forwarded)
	switch {
	case err == nil:
		h.countCountryRequest("ok")
		w.Header().Set("Cache-Control", classifyCacheControl)
		writeJSON(w, http.StatusOK, country)
	case errors.Is(err, store.ErrNotFound):
		h.countCountryRequest("not_found")
		writeJSON(w, http.StatusNotFound, models.NewCountryNotFound())
	default:
		h.log.Error().Err(err).Msg("attribution lookup failed")
		h.countCountryRequest("error")
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

// Forbidden serves the canned response for retired endpoints that must stay
// reachable but refused.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusForbidden)
}

// NotFound serves the canned response for retired endpoints that are gone.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}

// LBHeartbeat answers load balancer liveness probes. It succeeds whenever the
// process is serving, regardless of backend health.
func (h *Handler) LBHeartbeat(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Heartbeat answers deep health probes by exercising the geolocation store.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	healthy := h.classifier.Healthy()

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]bool{"geoip": healthy})
}

// Version serves the deployment version file.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	contents, err := os.ReadFile(h.versionFile)
	if err != nil {
		h.log.Error().Err(err).Str("path", h.versionFile).Msg("failed to read version file")
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(contents)
}

func (h *Handler) countCountryRequest(result string) {
	if h.metrics != nil {
		h.metrics.CountryRequestsTotal.WithLabelValues(result).Inc()
	}
}

// requestChain extracts the transport peer and forwarded chain of a request.
func requestChain(r *http.Request) (netip.Addr, []netip.Addr, error) {
	peer, err := trust.ParsePeerAddr(r.RemoteAddr)
	if err != nil {
		return netip.Addr{}, nil, err
	}

	return peer, trust.ParseForwardedChain(r.Header.Get("X-Forwarded-For")), nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
