// Package service holds the classification pipeline: resolve the true client
// address from the forwarded chain, attribute it to a country, assemble the
// response payload.
package service

import (
	"errors"
	"net/netip"
	"time"

	"github.com/mozilla/classify-client/internal/logger"
	"github.com/mozilla/classify-client/internal/metrics"
	"github.com/mozilla/classify-client/internal/models"
	"github.com/mozilla/classify-client/internal/store"
	"github.com/mozilla/classify-client/internal/trust"
)

// healthProbeAddr is a routable address guaranteed to be attributable in any
// real database. The heartbeat looks it up to verify the store end to end.
var healthProbeAddr = netip.MustParseAddr("1.2.3.4")

// Classifier ties the trust resolver and the geolocation store together.
type Classifier struct {
	store   store.Store
	trust   *trust.TrustSet
	metrics *metrics.Metrics
	log     *logger.Logger
}

// NewClassifier creates the classification service.
func NewClassifier(st store.Store, ts *trust.TrustSet, m *metrics.Metrics, log *logger.Logger) *Classifier {
	if log == nil {
		log = logger.NewDefault()
	}

	return &Classifier{
		store:   st,
		trust:   ts,
		metrics: m,
		log:     log.WithComponent("classifier"),
	}
}

// ResolveClient returns the true client address for the given transport peer
// and forwarded chain.
func (c *Classifier) ResolveClient(peer netip.Addr, forwarded []netip.Addr) netip.Addr {
	return c.trust.ResolveClient(peer, forwarded)
}

// Classify produces the classification payload for a request.
//
// Classification never fails: an address with no attribution, or a store
// error, yields a null country rather than an error response. The timestamp
// is taken here, in UTC, when the payload is assembled.
func (c *Classifier) Classify(peer netip.Addr, forwarded []netip.Addr) models.Classification {
	classification := models.Classification{
		RequestTime: time.Now().UTC(),
	}

	client := c.ResolveClient(peer, forwarded)

	country, err := c.lookup(client)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.log.Warn().
				Err(err).
				Str("client_addr", client.String()).
				Msg("attribution lookup failed")
		}
		c.countClassification("unknown")
		return classification
	}

	classification.Country = &country.Code
	c.countClassification(country.Code)

	return classification
}

// CountryFor resolves the client and returns its full attribution. A client
// with no attribution returns store.ErrNotFound.
func (c *Classifier) CountryFor(peer netip.Addr, forwarded []netip.Addr) (*models.Country, error) {
	return c.lookup(c.ResolveClient(peer, forwarded))
}

// Healthy reports whether the store can serve attributions end to end.
func (c *Classifier) Healthy() bool {
	_, err := c.store.FindCountry(healthProbeAddr)
	if err != nil {
		c.log.Error().Err(err).Msg("health probe lookup failed")
		return false
	}
	return true
}

func (c *Classifier) lookup(addr netip.Addr) (*models.Country, error) {
	country, err := c.store.FindCountry(addr)

	if c.metrics != nil {
		result := "hit"
		switch {
		case errors.Is(err, store.ErrNotFound):
			result = "miss"
		case err != nil:
			result = "error"
		}
		c.metrics.AttributionLookupsTotal.WithLabelValues(result).Inc()
	}

	return country, err
}

func (c *Classifier) countClassification(country string) {
	if c.metrics != nil {
		c.metrics.ClassificationsTotal.WithLabelValues(country).Inc()
	}
}
