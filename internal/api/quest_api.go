package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wattquest/wattquest/internal/domain"
)

// ─── Quest Endpoints (/api/users/{userID}/quests) ───────────────────────────

func (s *Server) handleListQuests(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var (
		quests []domain.Quest
		err    error
	)
	switch r.URL.Query().Get("status") {
	case "available":
		quests, err = s.engine.AvailableQuests(userID)
	case "active", "":
		quests, err = s.engine.ActiveQuests(userID)
	default:
		writeError(w, http.StatusBadRequest, "status must be active or available")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if quests == nil {
		quests = []domain.Quest{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"quests": quests})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	created, err := s.engine.GenerateQuestsForUser(userID, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if created == nil {
		created = []domain.Quest{}
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"quests": created})
}

func (s *Server) handleGetQuest(w http.ResponseWriter, r *http.Request) {
	q, err := s.engine.Quest(chi.URLParam(r, "userID"), chi.URLParam(r, "questID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleStartQuest(w http.ResponseWriter, r *http.Request) {
	q, err := s.engine.StartQuest(chi.URLParam(r, "userID"), chi.URLParam(r, "questID"), time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleCompleteQuest(w http.ResponseWriter, r *http.Request) {
	q, err := s.engine.CompleteQuest(chi.URLParam(r, "userID"), chi.URLParam(r, "questID"), time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleAbandonQuest(w http.ResponseWriter, r *http.Request) {
	q, err := s.engine.AbandonQuest(chi.URLParam(r, "userID"), chi.URLParam(r, "questID"), time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// ─── Telemetry Endpoint ─────────────────────────────────────────────────────

func (s *Server) handleReading(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var reading domain.Reading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}
	if err := s.engine.RecordReading(userID, reading); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// ─── Profile & Actions ──────────────────────────────────────────────────────

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.Profile(chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type actionRequest struct {
	Action domain.ActionKind `json:"action"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}
	pts, err := s.engine.RecordAction(userID, req.Action, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"points": pts})
}

// ─── Notification Endpoints ─────────────────────────────────────────────────

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	notifs, err := s.notifier.Pending(chi.URLParam(r, "userID"), 20)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if notifs == nil {
		notifs = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": notifs})
}

func (s *Server) handleNotificationShown(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := s.notifier.MarkShown(id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
