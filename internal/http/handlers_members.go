package http

import (
	"net/http"

	"coloc/internal/core"
)

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.members.ListMembers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if members == nil {
		members = []core.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var m core.Member
	if err := decodeJSON(r, &m); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	added, err := s.members.AddMember(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReadCaches()
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var m core.Member
	if err := decodeJSON(r, &m); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	m.ID = r.PathValue("id")
	if err := s.members.UpdateMember(r.Context(), m); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReadCaches()
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := s.members.DeleteMember(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReadCaches()
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.members.GetSettings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings core.ReimbursementSettings
	if err := decodeJSON(r, &settings); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := s.members.SaveSettings(r.Context(), settings); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
