package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/licita/internal/corpus"
	"github.com/hyperjump/licita/internal/models"
	"github.com/hyperjump/licita/internal/recommend"
	"github.com/hyperjump/licita/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenderID := strings.TrimSpace(chi.URLParam(r, "tender_id"))
	topN, err := s.parseTopN(r.URL.Query().Get("top_n"))
	if err == nil && tenderID == "" {
		err = fmt.Errorf("%w: tender_id is required", recommend.ErrInvalidInput)
	}
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tender, err := s.storage.GetTender(ctx, tenderID)
	if err != nil {
		s.respondStorageError(w, err, "tender not found")
		return
	}
	suppliers, err := s.storage.ListSuppliers(ctx, false)
	if err != nil {
		s.logger.Error("recommend: list suppliers failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	start := time.Now()
	result, err := s.engine.Recommend(ctx, tender.Query(), models.Profiles(suppliers), topN)
	if err != nil {
		if errors.Is(err, recommend.ErrNotReady) {
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.logger.Error("recommend failed", zap.String("tender_id", tenderID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := recommend.Enrich(tender, result, suppliers, time.Since(start))
	s.respondJSON(w, http.StatusOK, resp)
}

// parseTopN returns the configured default for an empty value and rejects anything outside
// 1..max_top_n.
func (s *Server) parseTopN(raw string) (int, error) {
	if raw == "" {
		return s.config.Recommender.DefaultTopN, nil
	}
	limit := s.config.Recommender.MaxTopN
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > limit {
		return 0, fmt.Errorf("%w: top_n must be between 1 and %d", recommend.ErrInvalidInput, limit)
	}
	return n, nil
}

type trainResponse struct {
	Message   string `json:"message"`
	Status    string `json:"status"`
	Token     string `json:"token"`
	Coalesced bool   `json:"coalesced"`
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		w.Header().Set("Retry-After", "60")
		s.respondError(w, http.StatusTooManyRequests, "too many training requests")
		return
	}
	ticket, err := s.engine.Builder().Trigger("api")
	if err != nil {
		if errors.Is(err, corpus.ErrNoSource) {
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("train request accepted", zap.String("token", ticket.Token), zap.Bool("coalesced", ticket.Coalesced))
	s.respondJSON(w, http.StatusAccepted, trainResponse{
		Message:   "model training started",
		Status:    "processing",
		Token:     ticket.Token,
		Coalesced: ticket.Coalesced,
	})
}

func (s *Server) handleTrainJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.engine.Builder().Job(chi.URLParam(r, "token"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "training job not found")
		return
	}
	s.respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleRecommenderStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Builder().Status())
}

func (s *Server) handleScoreTender(w http.ResponseWriter, r *http.Request) {
	if s.scorer == nil {
		s.respondError(w, http.StatusNotImplemented, "scoring not enabled")
		return
	}
	tenderID := chi.URLParam(r, "id")
	if _, err := s.storage.GetTender(r.Context(), tenderID); err != nil {
		s.respondStorageError(w, err, "tender not found")
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		report, err := s.scorer.ScoreTender(s.bgCtx, tenderID)
		if err != nil {
			s.logger.Error("proposal scoring failed", zap.String("tender_id", tenderID), zap.Error(err))
			return
		}
		if s.metrics != nil {
			s.metrics.ProposalsScored.Add(float64(report.Processed))
		}
	}()
	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"message":   "score calculation started",
		"status":    "processing",
		"tender_id": tenderID,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := CollectStatus(r.Context(), s.storage, s.engine.Builder(), s.config)
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.metrics != nil {
		var disk int64
		if st.DiskUsageBytes != nil {
			disk = *st.DiskUsageBytes
		}
		s.metrics.UpdateCatalogStats(st.Tenders, st.Suppliers, st.Proposals, disk)
	}
	s.respondJSON(w, http.StatusOK, st)
}

// triggerRebuild requests a coalesced rebuild after a supplier change when configured to.
func (s *Server) triggerRebuild(source string) {
	if !s.config.Recommender.RebuildOnChangeOrDefault() {
		return
	}
	if _, err := s.engine.Builder().Trigger(source); err != nil && !errors.Is(err, corpus.ErrNoSource) {
		s.logger.Warn("rebuild trigger failed", zap.String("source", source), zap.Error(err))
	}
}

func (s *Server) respondStorageError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, notFoundMsg)
		return
	}
	s.logger.Error("storage error", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
