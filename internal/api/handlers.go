package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pizoo-client/internal/service"
	"github.com/pizoo-client/internal/types"
	"github.com/pizoo-client/internal/worker"
)

type loginRequest struct {
	Token       string `json:"token"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}
	if req.Token == "" || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "token and user_id are required", nil)
		return
	}

	s.session.Login(req.Token, req.UserID, req.DisplayName)

	respondJSON(w, http.StatusOK, map[string]string{
		"session_id": s.session.ID(),
		"user_id":    req.UserID,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.engine.CloseAllChats(r.Context())
	s.session.Logout()
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) handleCurrentProfile(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.engine.Queue().Current()
	if !ok {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"exhausted": true,
			"remaining": 0,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"profile":   profile,
		"remaining": s.engine.Queue().Remaining(),
	})
}

func (s *Server) handleRefill(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RefillQueue(r.Context()); err != nil {
		respondCategorized(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"remaining": s.engine.Queue().Remaining()})
}

type swipeRequest struct {
	Action types.SwipeKind `json:"action"`
}

func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request) {
	var req swipeRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	result, err := s.engine.Swipe(r.Context(), req.Action)
	if err != nil {
		respondCategorized(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleActiveMatch(w http.ResponseWriter, r *http.Request) {
	overlay := s.engine.ActiveMatch()
	if overlay == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"active": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"active": true,
		"match":  overlay,
	})
}

func (s *Server) handleDismissMatch(w http.ResponseWriter, r *http.Request) {
	s.engine.DismissMatch()
	respondJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}

func (s *Server) handleLikesPrompt(w http.ResponseWriter, r *http.Request) {
	prompt, err := s.engine.CheckLikes(r.Context())
	if err != nil {
		respondCategorized(w, err)
		return
	}
	if prompt == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"prompt": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"prompt": true,
		"likes":  prompt,
	})
}

type likesDismissRequest struct {
	Count int `json:"count"`
}

func (s *Server) handleLikesDismiss(w http.ResponseWriter, r *http.Request) {
	var req likesDismissRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}
	if req.Count < 0 {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "count must be non-negative", nil)
		return
	}

	if err := s.engine.DismissLikes(r.Context(), req.Count); err != nil {
		respondCategorized(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}

func (s *Server) handleLikesSent(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.engine.LikesSent(r.Context())
	if err != nil {
		respondCategorized(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"profiles": profiles})
}

func (s *Server) handleOwnProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.engine.OwnProfile(r.Context())
	if err != nil {
		respondCategorized(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"profile": profile})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	// refresh best-effort: a stale cached list beats an error page
	if err := s.engine.Conversations().Refresh(r.Context()); err != nil {
		s.logger.WithError(err).Warn("Conversation refresh failed, serving cached list")
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": s.engine.Conversations().List(),
	})
}

func (s *Server) chatFromRequest(w http.ResponseWriter, r *http.Request) (*worker.ChatSession, bool) {
	matchID := mux.Vars(r)["matchID"]
	chat, ok := s.engine.Chat(matchID)
	if !ok {
		respondError(w, http.StatusNotFound, "CHAT_NOT_OPEN", "no open chat for this match", map[string]interface{}{
			"match_id": matchID,
		})
		return nil, false
	}
	return chat, true
}

func (s *Server) handleOpenChat(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchID"]

	chat, err := s.engine.OpenChat(r.Context(), matchID)
	if err != nil {
		respondCategorized(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"state":    chat.State(),
		"messages": chat.Messages(),
	})
}

func (s *Server) handleCloseChat(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchID"]
	if err := s.engine.CloseChat(r.Context(), matchID); err != nil {
		respondCategorized(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	chat, ok := s.chatFromRequest(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"state":    chat.State(),
		"messages": chat.Messages(),
	})
}

type sendRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	chat, ok := s.chatFromRequest(w, r)
	if !ok {
		return
	}

	var req sendRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	if err := chat.Send(r.Context(), req.Content); err != nil {
		respondCategorized(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "sent",
		"messages": chat.Messages(),
	})
}

func (s *Server) handleAcceptConsent(w http.ResponseWriter, r *http.Request) {
	chat, ok := s.chatFromRequest(w, r)
	if !ok {
		return
	}
	if err := chat.AcceptConsent(r.Context()); err != nil {
		respondCategorized(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (s *Server) handleDeclineConsent(w http.ResponseWriter, r *http.Request) {
	chat, ok := s.chatFromRequest(w, r)
	if !ok {
		return
	}
	chat.DeclineConsent()
	respondJSON(w, http.StatusOK, map[string]string{"status": "declined"})
}

func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.engine.Subscription().Fetch(r.Context())
	if err != nil {
		// fall back to the cached snapshot when the backend is away
		if cached := s.engine.Subscription().Current(); cached != nil {
			snapshot = cached
		} else {
			respondCategorized(w, err)
			return
		}
	}

	response := map[string]interface{}{
		"snapshot": snapshot,
	}
	if snapshot.Status == types.SubscriptionTrial {
		response["trial_progress_percent"] = service.TrialProgressPercent(snapshot.DaysRemaining)
	}
	respondJSON(w, http.StatusOK, response)
}
