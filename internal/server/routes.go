package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dailydose/internal/engine"
	"dailydose/internal/library"
)

func (s *Server) handleListDoses(w http.ResponseWriter, r *http.Request) {
	doses, err := s.db.ListDoses()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if doses == nil {
		doses = []library.Dose{}
	}
	writeJSON(w, http.StatusOK, doses)
}

func (s *Server) handleGetDose(w http.ResponseWriter, r *http.Request) {
	dose, err := s.db.GetDose(chi.URLParam(r, "doseID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if dose == nil {
		writeError(w, http.StatusNotFound, "dose not found")
		return
	}
	writeJSON(w, http.StatusOK, dose)
}

func (s *Server) handleCreateDose(w http.ResponseWriter, r *http.Request) {
	var dose library.Dose
	if err := json.NewDecoder(r.Body).Decode(&dose); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if dose.ID == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}

	existing, err := s.db.GetDose(dose.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "dose with this id already exists")
		return
	}

	tag, err := s.db.GetTag(dose.Tag)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tag == nil {
		writeError(w, http.StatusBadRequest, "tag '"+dose.Tag+"' does not exist")
		return
	}

	// Run the library validation over just this dose so a bad frequency is
	// rejected here rather than at the next digest cycle.
	if _, err := library.New([]library.Dose{dose}, []library.Tag{*tag}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.db.CreateDose(dose); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, dose)
}

func (s *Server) handleDeleteDose(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.db.DeleteDose(chi.URLParam(r, "doseID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "dose not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleGetTracking(w http.ResponseWriter, r *http.Request) {
	doseID := chi.URLParam(r, "doseID")
	dose, err := s.db.GetDose(doseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if dose == nil {
		writeError(w, http.StatusNotFound, "dose not found")
		return
	}

	rec, err := s.db.GetTracking(doseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no tracking state yet")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dose_id":         rec.DoseID,
		"count_in_period": rec.CountInPeriod,
		"period_start":    rec.PeriodStart.Format(time.RFC3339),
		"last_shown_at":   rec.LastShownAt,
	})
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.db.ListTags()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tags == nil {
		tags = []library.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleGetTag(w http.ResponseWriter, r *http.Request) {
	tag, err := s.db.GetTag(chi.URLParam(r, "tagName"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tag == nil {
		writeError(w, http.StatusNotFound, "tag not found")
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var tag library.Tag
	if err := json.NewDecoder(r.Body).Decode(&tag); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if tag.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	if tag.Demand <= 0 {
		writeError(w, http.StatusBadRequest, "demand must be positive")
		return
	}

	existing, err := s.db.GetTag(tag.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "tag with this name already exists")
		return
	}

	if err := s.db.CreateTag(tag); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

func (s *Server) handleRunDigest(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "engine not configured")
		return
	}

	digest, err := s.engine.RunDigest(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if digest.Entries == nil {
		digest.Entries = []engine.Entry{}
	}
	writeJSON(w, http.StatusOK, digest)
}
