// Package enrichment resolves request metadata into the descriptive fields
// stored on activity records: IP geolocation against a local database and
// user-agent parsing. Everything here is a pure function over its inputs;
// failures degrade to empty values instead of propagating.
package enrichment

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Geo Source values.
const (
	GeoSourceLocal       = "local"
	GeoSourceUnavailable = "unavailable"
)

// Geo is the location attached to an activity record. On a lookup miss the
// descriptive fields stay empty and Source is "unavailable".
type Geo struct {
	City        string    `json:"city,omitempty"`
	Region      string    `json:"region,omitempty"`
	Country     string    `json:"country,omitempty"`
	Timezone    string    `json:"timezone,omitempty"`
	Coordinates []float64 `json:"coordinates,omitempty"`
	Source      string    `json:"source"`
}

func geoMiss() Geo { return Geo{Source: GeoSourceUnavailable} }

// Locator maps an IP address to geo data.
type Locator interface {
	Locate(ip string) Geo
}

// NoopLocator is used when no geo database is configured; every lookup
// misses.
type NoopLocator struct{}

func (NoopLocator) Locate(string) Geo { return geoMiss() }

// GeoIPLocator performs offline lookups against a local MaxMind mmdb file.
// Loopback and private addresses are valid inputs but yield no result.
type GeoIPLocator struct {
	reader *geoip2.Reader
}

// OpenGeoIP opens the database at path. The caller owns Close.
func OpenGeoIP(path string) (*GeoIPLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoIPLocator{reader: reader}, nil
}

func (l *GeoIPLocator) Close() error { return l.reader.Close() }

func (l *GeoIPLocator) Locate(ip string) Geo {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return geoMiss()
	}

	record, err := l.reader.City(parsed)
	if err != nil || record.Country.IsoCode == "" {
		return geoMiss()
	}

	geo := Geo{
		City:     record.City.Names["en"],
		Country:  record.Country.IsoCode,
		Timezone: record.Location.TimeZone,
		Source:   GeoSourceLocal,
	}
	if len(record.Subdivisions) > 0 {
		geo.Region = record.Subdivisions[0].IsoCode
	}
	if record.Location.Latitude != 0 || record.Location.Longitude != 0 {
		geo.Coordinates = []float64{record.Location.Latitude, record.Location.Longitude}
	}
	return geo
}
