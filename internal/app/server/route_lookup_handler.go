package server

import (
	"net/http"

	"analyst/internal/api/dto"
	"analyst/internal/geolite"
)

func (s *Server) lookupBatch(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	var req dto.LookupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "Invalid request body.")
		return nil, false
	}
	if req.IPs == nil {
		writeBadRequest(w, "Operation requires ips.")
		return nil, false
	}
	if s.geo == nil {
		writeFailure(w, r, geolite.ErrUnavailable)
		return nil, false
	}
	return req.IPs, true
}

func (s *Server) getASN(w http.ResponseWriter, r *http.Request) {
	if s.geo == nil {
		writeFailure(w, r, geolite.ErrUnavailable)
		return
	}

	record, err := s.geo.ASN(r.PathValue("ip"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FromASN(record))
}

// batchASN fails the whole request when any address cannot be resolved.
func (s *Server) batchASN(w http.ResponseWriter, r *http.Request) {
	ips, ok := s.lookupBatch(w, r)
	if !ok {
		return
	}

	records, err := s.geo.ASNBatch(ips)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	out := make([]dto.ASN, 0, len(records))
	for _, record := range records {
		out = append(out, dto.FromASN(record))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getGeo(w http.ResponseWriter, r *http.Request) {
	if s.geo == nil {
		writeFailure(w, r, geolite.ErrUnavailable)
		return
	}

	record, err := s.geo.City(r.PathValue("ip"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FromCity(record))
}

func (s *Server) batchGeo(w http.ResponseWriter, r *http.Request) {
	ips, ok := s.lookupBatch(w, r)
	if !ok {
		return
	}

	records, err := s.geo.CityBatch(ips)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	out := make([]dto.Geo, 0, len(records))
	for _, record := range records {
		out = append(out, dto.FromCity(record))
	}
	writeJSON(w, http.StatusOK, out)
}
