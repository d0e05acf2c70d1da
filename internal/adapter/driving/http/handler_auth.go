package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/traintrack/internal/application"
	"github.com/ericfisherdev/traintrack/internal/domain/model"
	"github.com/ericfisherdev/traintrack/internal/domain/port/driven"
)

// AuthStatus reports the credential state for every provider.
func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	statuses := h.tokenSvc.AuthStatus(r.Context())
	resp := make([]ProviderStatusResponse, 0, len(statuses))
	for _, s := range statuses {
		resp = append(resp, toProviderStatusResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// StravaAuthURL returns the Strava consent URL.
func (h *Handler) StravaAuthURL(w http.ResponseWriter, r *http.Request) {
	if !h.strava.Configured() {
		writeError(w, http.StatusServiceUnavailable, "strava client credentials not configured")
		return
	}
	writeJSON(w, http.StatusOK, AuthURLResponse{
		Provider: string(model.ProviderStrava),
		AuthURL:  h.strava.AuthorizationURL(),
	})
}

// StravaCallback handles the Strava redirect, exchanging the code for tokens.
func (h *Handler) StravaCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		writeError(w, http.StatusBadRequest, "authorization denied: "+reason)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	grant, err := h.strava.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("strava code exchange failed", "error", err)
		writeProviderError(w, model.ProviderStrava, err)
		return
	}

	h.logger.Info("strava connected", "expires", grant.ExpiresAt)
	resp := ConnectResponse{
		Success:  true,
		Provider: string(model.ProviderStrava),
		Athlete:  toAthleteResponse(grant.Athlete),
	}
	if grant.ExpiresAt != nil {
		resp.ExpiresAt = grant.ExpiresAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// WhoopAuthURL returns the Whoop consent URL with a persisted anti-forgery
// state.
func (h *Handler) WhoopAuthURL(w http.ResponseWriter, r *http.Request) {
	if !h.whoop.Configured() {
		writeError(w, http.StatusServiceUnavailable, "whoop client credentials not configured")
		return
	}

	authURL, _, err := h.whoop.AuthorizationURL(r.Context())
	if err != nil {
		h.logger.Error("failed to create whoop auth url", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, AuthURLResponse{
		Provider: string(model.ProviderWhoop),
		AuthURL:  authURL,
	})
}

// WhoopCallback handles the Whoop redirect. The state parameter must match a
// previously issued one; a missing or replayed state is rejected.
func (h *Handler) WhoopCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		writeError(w, http.StatusBadRequest, "authorization denied: "+reason)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	if err := h.whoop.ValidateState(r.Context(), q.Get("state")); err != nil {
		if errors.Is(err, driven.ErrStateMismatch) {
			writeError(w, http.StatusBadRequest, "invalid or expired state parameter")
			return
		}
		h.logger.Error("whoop state validation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := h.whoop.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("whoop code exchange failed", "error", err)
		writeProviderError(w, model.ProviderWhoop, err)
		return
	}

	h.logger.Info("whoop connected")
	resp := ConnectResponse{
		Success:  true,
		Provider: string(model.ProviderWhoop),
	}
	if expiry := token.Expiry(); expiry != nil {
		resp.ExpiresAt = expiry.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Disconnect removes the stored credentials for a provider.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	provider, err := model.ParseProvider(r.PathValue("provider"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.tokenSvc.Disconnect(r.Context(), provider); err != nil {
		h.logger.Error("failed to disconnect provider", "provider", provider, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: string(provider) + " disconnected",
	})
}

// SaveStravaToken stores a manually supplied Strava token set.
func (h *Handler) SaveStravaToken(w http.ResponseWriter, r *http.Request) {
	h.saveManualToken(w, r, model.ProviderStrava)
}

// SaveWhoopToken stores a manually supplied Whoop token set.
func (h *Handler) SaveWhoopToken(w http.ResponseWriter, r *http.Request) {
	h.saveManualToken(w, r, model.ProviderWhoop)
}

func (h *Handler) saveManualToken(w http.ResponseWriter, r *http.Request, provider model.Provider) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.tokenSvc.SaveManualToken(r.Context(), provider, application.ManualToken{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ExpiresAt:    req.ExpiresAt,
		ExpiresIn:    req.ExpiresIn,
	})
	if err != nil {
		if req.AccessToken == "" {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to save manual token", "provider", provider, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: string(provider) + " token saved",
	})
}

// StravaStatus reports the Strava connection, including the athlete profile
// when a usable session exists.
func (h *Handler) StravaStatus(w http.ResponseWriter, r *http.Request) {
	status := toProviderStatusResponse(h.tokenSvc.Status(r.Context(), model.ProviderStrava))

	resp := struct {
		ProviderStatusResponse
		Athlete *AthleteResponse `json:"athlete,omitempty"`
	}{ProviderStatusResponse: status}

	if status.HasAccessToken {
		if client, err := h.strava.Connect(r.Context()); err == nil {
			if athlete, err := client.Athlete(r.Context()); err == nil {
				resp.Athlete = toAthleteResponse(athlete)
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// StravaActivities returns a windowed, paged activity listing.
func (h *Handler) StravaActivities(w http.ResponseWriter, r *http.Request) {
	client, err := h.strava.Connect(r.Context())
	if err != nil {
		writeProviderError(w, model.ProviderStrava, err)
		return
	}

	var query driven.ActivityQuery
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		query.Page, _ = strconv.Atoi(v)
	}
	if v := q.Get("per_page"); v != "" {
		query.PerPage, _ = strconv.Atoi(v)
	}
	if v := q.Get("after"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid after date")
			return
		}
		query.After = t
	}
	if v := q.Get("before"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid before date")
			return
		}
		query.Before = t
	}

	runs, err := client.Activities(r.Context(), query)
	if err != nil {
		h.logger.Error("failed to list strava activities", "error", err)
		writeProviderError(w, model.ProviderStrava, err)
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, resp)
}

// StravaToday returns today's runs.
func (h *Handler) StravaToday(w http.ResponseWriter, r *http.Request) {
	client, err := h.strava.Connect(r.Context())
	if err != nil {
		writeProviderError(w, model.ProviderStrava, err)
		return
	}

	runs, err := client.TodayRuns(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch today's runs", "error", err)
		writeProviderError(w, model.ProviderStrava, err)
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, resp)
}

// WhoopStatus reports the Whoop connection, distinguishing stored
// credentials from the environment fallback token.
func (h *Handler) WhoopStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toProviderStatusResponse(h.tokenSvc.Status(r.Context(), model.ProviderWhoop)))
}

// WhoopRecovery returns recovery data: the latest record by default, or a
// range when start and end dates are given.
func (h *Handler) WhoopRecovery(w http.ResponseWriter, r *http.Request) {
	client, err := h.whoop.Connect(r.Context())
	if err != nil {
		writeProviderError(w, model.ProviderWhoop, err)
		return
	}

	q := r.URL.Query()
	startStr, endStr := q.Get("start"), q.Get("end")
	if startStr != "" && endStr != "" {
		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date")
			return
		}
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date")
			return
		}

		records, err := client.RecoveryRange(r.Context(), start, end.Add(24*time.Hour-time.Millisecond))
		if err != nil {
			h.logger.Error("failed to fetch recovery range", "error", err)
			writeProviderError(w, model.ProviderWhoop, err)
			return
		}
		resp := make([]RecoveryResponse, 0, len(records))
		for i := range records {
			resp = append(resp, *toRecoveryResponse(&records[i]))
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	recovery, err := client.TodayRecovery(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch today's recovery", "error", err)
		writeProviderError(w, model.ProviderWhoop, err)
		return
	}
	if recovery == nil {
		writeError(w, http.StatusNotFound, "no recovery recorded yet")
		return
	}
	writeJSON(w, http.StatusOK, toRecoveryResponse(recovery))
}

// WhoopSleep returns the most recent sleep record.
func (h *Handler) WhoopSleep(w http.ResponseWriter, r *http.Request) {
	client, err := h.whoop.Connect(r.Context())
	if err != nil {
		writeProviderError(w, model.ProviderWhoop, err)
		return
	}

	sleep, err := client.TodaySleep(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch sleep", "error", err)
		writeProviderError(w, model.ProviderWhoop, err)
		return
	}
	if sleep == nil {
		writeError(w, http.StatusNotFound, "no sleep recorded yet")
		return
	}
	writeJSON(w, http.StatusOK, toSleepResponse(sleep))
}

// WhoopMetrics returns the parallel daily metrics bundle.
func (h *Handler) WhoopMetrics(w http.ResponseWriter, r *http.Request) {
	client, err := h.whoop.Connect(r.Context())
	if err != nil {
		writeProviderError(w, model.ProviderWhoop, err)
		return
	}

	metrics, err := client.DailyMetrics(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch daily metrics", "error", err)
		writeProviderError(w, model.ProviderWhoop, err)
		return
	}
	writeJSON(w, http.StatusOK, toDailyMetricsResponse(metrics))
}
