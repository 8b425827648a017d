package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/licita/internal/fileid"
	"github.com/hyperjump/licita/internal/keyword"
	"github.com/hyperjump/licita/internal/models"
	"go.uber.org/zap"
)

const maxListLimit = 500

func (s *Server) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var sup models.Supplier
	if err := json.NewDecoder(r.Body).Decode(&sup); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := sup.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if sup.ID == "" {
		sup.ID = fileid.NewID()
	}
	if err := s.storage.UpsertSupplier(r.Context(), &sup); err != nil {
		s.logger.Error("store supplier failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.keyword != nil {
		if err := s.keyword.Index(r.Context(), &sup); err != nil {
			s.logger.Warn("index supplier failed", zap.String("id", sup.ID), zap.Error(err))
		}
	}
	s.triggerRebuild("supplier_saved")
	s.respondJSON(w, http.StatusCreated, &sup)
}

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	list, err := s.storage.ListSuppliers(r.Context(), activeOnly)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"suppliers": list, "total": len(list)})
}

func (s *Server) handleGetSupplier(w http.ResponseWriter, r *http.Request) {
	sup, err := s.storage.GetSupplier(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStorageError(w, err, "supplier not found")
		return
	}
	s.respondJSON(w, http.StatusOK, sup)
}

func (s *Server) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete supplier request", zap.String("id", id))
	if err := s.storage.DeleteSupplier(r.Context(), id); err != nil {
		s.respondStorageError(w, err, "supplier not found")
		return
	}
	if s.keyword != nil {
		if err := s.keyword.Delete(r.Context(), id); err != nil {
			s.logger.Warn("unindex supplier failed", zap.String("id", id), zap.Error(err))
		}
	}
	s.triggerRebuild("supplier_deleted")
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type supplierHit struct {
	*models.Supplier
	Score float64 `json:"score"`
}

func (s *Server) handleSearchSuppliers(w http.ResponseWriter, r *http.Request) {
	if s.keyword == nil {
		s.respondError(w, http.StatusNotImplemented, "supplier search not enabled")
		return
	}
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 10
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	fuzzy, _ := strconv.ParseBool(q.Get("fuzzy"))
	opts := &keyword.SearchOptions{NameBoost: 3, FuzzyEnabled: fuzzy, ActiveOnly: q.Get("active") != "false"}

	hits, err := s.keyword.Search(r.Context(), query, limit, opts)
	if err != nil {
		s.logger.Error("supplier search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	byID, err := s.storage.GetSuppliersByIDs(r.Context(), ids)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]supplierHit, 0, len(hits))
	for _, h := range hits {
		if sup, ok := byID[h.ID]; ok {
			out = append(out, supplierHit{Supplier: sup, Score: h.Score})
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"query": query, "results": out})
}

func (s *Server) handleCreateTender(w http.ResponseWriter, r *http.Request) {
	var t models.Tender
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := t.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if t.ID == "" {
		t.ID = fileid.NewID()
	}
	if err := s.storage.UpsertTender(r.Context(), &t); err != nil {
		s.logger.Error("store tender failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, &t)
}

func (s *Server) handleListTenders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxListLimit {
		limit = 100
	}
	list, err := s.storage.ListTenders(r.Context(), offset, limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"tenders": list, "offset": offset, "limit": limit})
}

func (s *Server) handleGetTender(w http.ResponseWriter, r *http.Request) {
	t, err := s.storage.GetTender(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStorageError(w, err, "tender not found")
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	tenderID := chi.URLParam(r, "id")
	if _, err := s.storage.GetTender(r.Context(), tenderID); err != nil {
		s.respondStorageError(w, err, "tender not found")
		return
	}
	var p models.Proposal
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p.TenderID = tenderID
	if err := p.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.storage.GetSupplier(r.Context(), p.SupplierID); err != nil {
		s.respondStorageError(w, err, "supplier not found")
		return
	}
	if p.ID == "" {
		p.ID = fileid.NewID()
	}
	if err := s.storage.CreateProposal(r.Context(), &p); err != nil {
		s.logger.Error("store proposal failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, &p)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	tenderID := chi.URLParam(r, "id")
	if _, err := s.storage.GetTender(r.Context(), tenderID); err != nil {
		s.respondStorageError(w, err, "tender not found")
		return
	}
	list, err := s.storage.ListProposalsByTender(r.Context(), tenderID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"tender_id": tenderID, "proposals": list})
}
