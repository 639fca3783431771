package api

import (
	"encoding/json"
	"net/http"

	"whattodo/pkg/push"
)

// handlePushSubscribe stores the browser's push subscription for the
// owner, replacing any previous one. The body mirrors the
// PushSubscription JSON a service worker produces.
func (s *Server) handlePushSubscribe(w http.ResponseWriter, r *http.Request) {
	if s.subs == nil {
		writeError(w, 501, "push not configured")
		return
	}
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}

	var body struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	if body.Endpoint == "" || body.Keys.P256dh == "" || body.Keys.Auth == "" {
		writeError(w, 400, "endpoint and keys are required")
		return
	}

	err := s.subs.Upsert(r.Context(), &push.Subscription{
		OwnerID:  ownerID,
		Endpoint: body.Endpoint,
		P256dh:   body.Keys.P256dh,
		Auth:     body.Keys.Auth,
	})
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 201, map[string]string{"status": "subscribed"})
}

func (s *Server) handlePushUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if s.subs == nil {
		writeError(w, 501, "push not configured")
		return
	}
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	if err := s.subs.Delete(r.Context(), ownerID); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "unsubscribed"})
}
