package geolite

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/oschwald/geoip2-golang"
	"golang.org/x/sync/singleflight"

	"analyst/internal/domain"
)

const namesLocale = "en"

var (
	ErrUnavailable    = errors.New("geolite: database unavailable")
	ErrNoRecord       = errors.New("geolite: no record for address")
	ErrInvalidAddress = errors.New("geolite: invalid ip address")
)

// source is the subset of *geoip2.Reader the facade needs.
type source interface {
	ASN(ip net.IP) (*geoip2.ASN, error)
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

type opener func(path string) (source, error)

func openFile(path string) (source, error) {
	return geoip2.Open(path)
}

type ASNRecord struct {
	IP           string
	Number       uint
	Organization string
}

type CityRecord struct {
	IP        string
	City      string
	Continent string
	Country   string
	Latitude  float64
	Longitude float64
}

// Reader holds the ASN and City databases for the process lifetime. The
// databases are memory-mapped and safe for concurrent lookups.
type Reader struct {
	asnPath  string
	cityPath string
	open     opener

	mu   sync.RWMutex
	asn  source
	city source

	reloads singleflight.Group
}

// Open loads both databases. A database that fails to load is logged and
// reported as ErrUnavailable on lookup; the returned Reader is always usable.
func Open(asnPath, cityPath string) (*Reader, error) {
	return newReader(asnPath, cityPath, openFile)
}

func newReader(asnPath, cityPath string, open opener) (*Reader, error) {
	r := &Reader{asnPath: asnPath, cityPath: cityPath, open: open}
	err := r.Reload()
	return r, err
}

// Reload re-opens both files and swaps them in. Concurrent calls share one reload.
func (r *Reader) Reload() error {
	_, err, _ := r.reloads.Do("reload", func() (interface{}, error) {
		asn, asnErr := r.openPath("asn", r.asnPath)
		city, cityErr := r.openPath("city", r.cityPath)

		r.mu.Lock()
		oldASN, oldCity := r.asn, r.city
		if asn != nil {
			r.asn = asn
		}
		if city != nil {
			r.city = city
		}
		r.mu.Unlock()

		if asn != nil && oldASN != nil {
			_ = oldASN.Close()
		}
		if city != nil && oldCity != nil {
			_ = oldCity.Close()
		}

		return nil, errors.Join(asnErr, cityErr)
	})
	return err
}

func (r *Reader) openPath(kind, path string) (source, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%s: %w: no path configured", kind, ErrUnavailable)
	}
	db, err := r.open(path)
	if err != nil {
		log.Warn("GeoLite database could not be opened", "kind", kind, "path", path, "error", err)
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	log.Debug("GeoLite database loaded", "kind", kind, "path", path)
	return db, nil
}

func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.asn != nil {
		errs = append(errs, r.asn.Close())
		r.asn = nil
	}
	if r.city != nil {
		errs = append(errs, r.city.Close())
		r.city = nil
	}
	return errors.Join(errs...)
}

func parseIP(raw string) (string, net.IP, error) {
	normalized, err := domain.NormalizeIP(raw)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	return normalized, net.ParseIP(normalized), nil
}

func (r *Reader) ASN(raw string) (ASNRecord, error) {
	normalized, ip, err := parseIP(raw)
	if err != nil {
		return ASNRecord{}, err
	}

	r.mu.RLock()
	db := r.asn
	r.mu.RUnlock()
	if db == nil {
		return ASNRecord{}, ErrUnavailable
	}

	record, err := db.ASN(ip)
	if err != nil {
		return ASNRecord{}, fmt.Errorf("asn lookup %s: %w", normalized, err)
	}
	if record == nil || record.AutonomousSystemNumber == 0 {
		return ASNRecord{}, fmt.Errorf("%w: %s", ErrNoRecord, normalized)
	}

	return ASNRecord{
		IP:           normalized,
		Number:       record.AutonomousSystemNumber,
		Organization: record.AutonomousSystemOrganization,
	}, nil
}

func (r *Reader) City(raw string) (CityRecord, error) {
	normalized, ip, err := parseIP(raw)
	if err != nil {
		return CityRecord{}, err
	}

	r.mu.RLock()
	db := r.city
	r.mu.RUnlock()
	if db == nil {
		return CityRecord{}, ErrUnavailable
	}

	record, err := db.City(ip)
	if err != nil {
		return CityRecord{}, fmt.Errorf("city lookup %s: %w", normalized, err)
	}
	if record == nil || cityRecordEmpty(record) {
		return CityRecord{}, fmt.Errorf("%w: %s", ErrNoRecord, normalized)
	}

	return CityRecord{
		IP:        normalized,
		City:      record.City.Names[namesLocale],
		Continent: record.Continent.Names[namesLocale],
		Country:   record.Country.Names[namesLocale],
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
	}, nil
}

func cityRecordEmpty(record *geoip2.City) bool {
	return record.City.GeoNameID == 0 &&
		record.Country.GeoNameID == 0 &&
		record.Continent.GeoNameID == 0 &&
		record.Location.Latitude == 0 &&
		record.Location.Longitude == 0
}

// ASNBatch looks up every address in order. Any failure aborts the batch.
func (r *Reader) ASNBatch(ips []string) ([]ASNRecord, error) {
	out := make([]ASNRecord, 0, len(ips))
	for _, ip := range ips {
		record, err := r.ASN(ip)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

// CityBatch looks up every address in order. Any failure aborts the batch.
func (r *Reader) CityBatch(ips []string) ([]CityRecord, error) {
	out := make([]CityRecord, 0, len(ips))
	for _, ip := range ips {
		record, err := r.City(ip)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}
