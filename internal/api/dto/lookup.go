package dto

import "analyst/internal/geolite"

// LookupRequest is the batch body for /asn and /geo.
type LookupRequest struct {
	IPs []string `json:"ips"`
}

type ASN struct {
	IP           string `json:"ip"`
	Number       uint   `json:"asn_number"`
	Organization string `json:"asn_org"`
}

type Geo struct {
	City      string  `json:"city"`
	Continent string  `json:"continent"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

func FromASN(r geolite.ASNRecord) ASN {
	return ASN{IP: r.IP, Number: r.Number, Organization: r.Organization}
}

func FromCity(r geolite.CityRecord) Geo {
	return Geo{
		City:      r.City,
		Continent: r.Continent,
		Country:   r.Country,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
	}
}
