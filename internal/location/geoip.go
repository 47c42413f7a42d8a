package location

import (
	"context"
	"errors"
	"net"

	"github.com/oschwald/geoip2-golang"

	"AlsitoQC/internal/models"
)

// ErrNoPosition means the lookup produced no usable coordinates.
var ErrNoPosition = errors.New("location: no position for address")

// GeoIP resolves positions from a MaxMind City database. It backs the
// automatic path when the caller is a remote client rather than a device.
type GeoIP struct {
	reader *geoip2.Reader
}

// OpenGeoIP opens the database at path.
func OpenGeoIP(path string) (*GeoIP, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoIP{reader: r}, nil
}

func (g *GeoIP) Close() error {
	if g == nil || g.reader == nil {
		return nil
	}
	return g.reader.Close()
}

// For returns a Provider locating ip. A nil GeoIP yields a provider whose
// services are reported disabled.
func (g *GeoIP) For(ip net.IP) Provider {
	return &geoIPProvider{db: g, ip: ip}
}

type geoIPProvider struct {
	db *GeoIP
	ip net.IP
}

func (p *geoIPProvider) ServicesEnabled(ctx context.Context) (bool, error) {
	return p.db != nil && p.db.reader != nil, nil
}

func (p *geoIPProvider) RequestPermission(ctx context.Context) (bool, error) {
	return p.ip != nil, nil
}

// An address lookup has no cached fix.
func (p *geoIPProvider) LastKnown(ctx context.Context) (*models.Coordinates, error) {
	return nil, nil
}

func (p *geoIPProvider) Current(ctx context.Context) (models.Coordinates, error) {
	rec, err := p.db.reader.City(p.ip)
	if err != nil {
		return models.Coordinates{}, err
	}
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return models.Coordinates{}, ErrNoPosition
	}
	return models.Coordinates{Latitude: rec.Location.Latitude, Longitude: rec.Location.Longitude}, nil
}

// NoSettings is used where there is no settings screen to open.
type NoSettings struct{}

func (NoSettings) OpenSettings(ctx context.Context) error { return nil }
