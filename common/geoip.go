package common

import (
	"net"

	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
)

// GeoIP resolves country codes for discovered servers. A nil *GeoIP is
// valid and resolves nothing.
type GeoIP struct {
	reader *geoip2.Reader
}

func OpenGeoIP(path string) (*GeoIP, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoIP{reader: reader}, nil
}

func (g *GeoIP) Country(addr string) string {
	if g == nil || g.reader == nil {
		return ""
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return ""
	}
	country, err := g.reader.Country(ip)
	if err != nil {
		logger.Debug("GeoIP lookup failed", zap.String("addr", addr), zap.Error(err))
		return ""
	}
	return country.Country.IsoCode
}

func (g *GeoIP) Close() error {
	if g == nil || g.reader == nil {
		return nil
	}
	return g.reader.Close()
}
