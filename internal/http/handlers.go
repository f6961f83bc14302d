package http

import (
	"net/http"

	"coloc/internal/core"
	"coloc/internal/export"
)

func (s *Server) handleListMonths(w http.ResponseWriter, r *http.Request) {
	months, err := s.months.ListMonths(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if months == nil {
		months = []core.Month{}
	}
	writeJSON(w, http.StatusOK, months)
}

func (s *Server) handleCreateMonth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Month string `json:"month"`
		Year  int    `json:"year"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	month, err := s.months.CreateMonth(r.Context(), req.Month, req.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReadCaches()
	writeJSON(w, http.StatusCreated, month)
}

func (s *Server) handleGetMonth(w http.ResponseWriter, r *http.Request) {
	month, err := s.months.GetMonth(r.Context(), r.PathValue("key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, month)
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if summary, ok := s.summaryCache.Get(key); ok {
		writeJSON(w, http.StatusOK, summary)
		return
	}
	summary, err := s.months.Summary(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeJSON(r, &t); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	added, err := s.months.AddTransaction(r.Context(), r.PathValue("key"), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReadCaches()
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeJSON(r, &t); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	t.ID = r.PathValue("id")
	if err := s.months.UpdateTransaction(r.Context(), r.PathValue("key"), t); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReadCaches()
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.months.DeleteTransaction(r.Context(), r.PathValue("key"), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReadCaches()
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handlePostContributions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date core.Date `json:"date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	posted, err := s.months.PostMonthlyContributions(r.Context(), r.PathValue("key"), req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if posted == nil {
		posted = []core.Transaction{}
	}
	s.invalidateReadCaches()
	writeJSON(w, http.StatusCreated, posted)
}

func (s *Server) handleSetRemarks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Remarks string `json:"remarks"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := s.months.SetRemarks(r.Context(), r.PathValue("key"), req.Remarks); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handlePrepareClosure(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lines []core.ReimbursementLine `json:"lines"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	draft, err := s.months.PrepareClosure(r.Context(), r.PathValue("key"), req.Lines)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleConfirmClosure(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lines      []core.ReimbursementLine `json:"lines"`
		Allocation core.ResidualAllocation  `json:"allocation"`
		Remarks    string                   `json:"remarks"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	month, err := s.months.ConfirmClosure(r.Context(), r.PathValue("key"), req.Lines, req.Allocation, req.Remarks)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReadCaches()
	writeJSON(w, http.StatusOK, month)
}

func (s *Server) handleReopen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	month, err := s.months.Reopen(r.Context(), r.PathValue("key"), req.Passphrase)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReadCaches()
	writeJSON(w, http.StatusOK, month)
}

func (s *Server) handleExportMonth(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no exporter configured"})
		return
	}
	key := r.PathValue("key")
	month, err := s.months.GetMonth(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.months.Summary(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := s.exporter.Export(r.Context(), export.BuildMonthReport(month, summary))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ref": ref})
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	exclude := r.URL.Query().Get("exclude")
	if credits, ok := s.creditsCache.Get(exclude); ok {
		writeJSON(w, http.StatusOK, credits)
		return
	}
	credits, err := s.months.Credits(r.Context(), exclude)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if credits == nil {
		credits = []core.MemberCredit{}
	}
	s.creditsCache.Set(exclude, credits)
	writeJSON(w, http.StatusOK, credits)
}
