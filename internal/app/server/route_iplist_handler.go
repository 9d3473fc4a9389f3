package server

import (
	"net/http"

	"analyst/internal/api/dto"
	"analyst/internal/auth"
	"analyst/internal/database"
	"analyst/internal/events"
)

const insufficientListPrivileges = "Insufficient privileges for function."

func (s *Server) listIPLists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.lists.List(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.IPListsResponse{IPLists: dto.FromIPLists(lists)})
}

func (s *Server) getIPList(w http.ResponseWriter, r *http.Request) {
	list, err := s.lists.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.IPListResponse{IPList: dto.FromIPList(list)})
}

func (s *Server) createIPList(w http.ResponseWriter, r *http.Request) {
	current := caller(r)
	if !auth.IsAdminOrManager(current) {
		writeForbidden(w, insufficientListPrivileges)
		return
	}

	var req dto.IPListCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "Invalid request body.")
		return
	}

	list, err := s.lists.Create(r.Context(), req.Name, req.Description, current)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	s.publish(r.Context(), events.Event{Type: events.TypeListCreated, List: list.Name, Actor: current.Username})
	writeJSON(w, http.StatusCreated, dto.Success("Successfully, created iplist."))
}

func (s *Server) updateIPList(w http.ResponseWriter, r *http.Request) {
	current := caller(r)
	if !auth.IsAdminOrManager(current) {
		writeForbidden(w, insufficientListPrivileges)
		return
	}

	var req dto.IPListUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "Invalid request body.")
		return
	}

	list, err := s.lists.Update(r.Context(), r.PathValue("name"), database.IPListPatch{
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	s.publish(r.Context(), events.Event{Type: events.TypeListUpdated, List: list.Name, Actor: current.Username})
	writeJSON(w, http.StatusOK, dto.IPListResponse{IPList: dto.FromIPList(list)})
}

func (s *Server) deleteIPList(w http.ResponseWriter, r *http.Request) {
	current := caller(r)
	if !auth.IsAdminOrManager(current) {
		writeForbidden(w, insufficientListPrivileges)
		return
	}

	name := r.PathValue("name")
	if err := s.lists.Delete(r.Context(), name); err != nil {
		writeFailure(w, r, err)
		return
	}

	s.publish(r.Context(), events.Event{Type: events.TypeListDeleted, List: name, Actor: current.Username})
	writeJSON(w, http.StatusOK, dto.Success("IP list deleted."))
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	list, members, err := s.lists.Items(r.Context(), r.PathValue("name"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListItemsResponse{
		IPList: dto.FromIPList(list),
		Items:  dto.FromMembers(members),
	})
}

// addItems answers 201 when anything was interned or linked and 200 when
// the request changed nothing.
func (s *Server) addItems(w http.ResponseWriter, r *http.Request) {
	current := caller(r)
	if !auth.IsAdminOrManager(current) {
		writeForbidden(w, insufficientListPrivileges)
		return
	}

	var req dto.ItemsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "Invalid request body.")
		return
	}
	if len(req.IPs) == 0 {
		writeBadRequest(w, "Operation requires ips.")
		return
	}

	name := r.PathValue("name")
	result, err := s.lists.AddItems(r.Context(), name, req.IPs, req.Note, current)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	if s.metrics != nil {
		s.metrics.ObserveMembership(len(result.Created), len(result.Linked))
	}

	status := http.StatusOK
	if result.Changed() {
		status = http.StatusCreated
		s.publish(r.Context(), events.Event{Type: events.TypeItemsAdded, List: name, IPs: result.Linked, Actor: current.Username})
	}
	writeJSON(w, status, dto.FromMembership(result))
}

func (s *Server) removeItems(w http.ResponseWriter, r *http.Request) {
	current := caller(r)
	if !auth.IsAdminOrManager(current) {
		writeForbidden(w, insufficientListPrivileges)
		return
	}

	var req dto.ItemsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "Invalid request body.")
		return
	}
	if req.IPs == nil {
		writeBadRequest(w, "Operation requires ips.")
		return
	}

	name := r.PathValue("name")
	removed, requested, err := s.lists.RemoveItems(r.Context(), name, req.IPs)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	if removed > 0 {
		if s.metrics != nil {
			s.metrics.ObserveRemoval(removed)
		}
		s.publish(r.Context(), events.Event{Type: events.TypeItemsRemoved, List: name, IPs: requested, Actor: current.Username})
	}
	writeJSON(w, http.StatusOK, dto.ItemsRemovedResponse{CountRemoved: removed, RequestedIPs: requested})
}
