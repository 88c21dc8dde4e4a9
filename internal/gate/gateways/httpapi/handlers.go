package httpapi

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/haukened/sitegate/internal/gate/common/urlx"
	"github.com/haukened/sitegate/internal/gate/domain"
	"github.com/haukened/sitegate/internal/gate/repos/rules"
	"github.com/haukened/sitegate/internal/gate/services/vault"
)

// writeJSON sends a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError sends a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON parses the request body into v.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// originFromBody decodes a {url} payload and normalizes it. A decode or
// normalization failure has already been written to w when ok is false.
func (s *Server) originFromBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return "", false
	}
	origin, err := urlx.NormalizeOrigin(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid url")
		return "", false
	}
	return origin, true
}

// writeRuleError maps repository errors onto HTTP statuses. Storage
// failures stay generic; nothing internal leaks to the client.
func writeRuleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rules.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, rules.ErrScheduleNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "storage failure")
	}
}

// --- navigation ---

type navigateResponse struct {
	Allow    bool   `json:"allow"`
	Redirect string `json:"redirect,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// handleNavigate decides a navigation. Internal browser surfaces and the
// blocked page itself always pass, otherwise a redirect loop would pin
// the user on the blocked page.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if urlx.IsInternal(req.URL) || strings.HasPrefix(req.URL, s.blockedPage) {
		writeJSON(w, http.StatusOK, navigateResponse{Allow: true})
		return
	}

	origin, err := urlx.NormalizeOrigin(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid url")
		return
	}

	v := s.engine.Decide(origin)
	if !v.Blocked {
		writeJSON(w, http.StatusOK, navigateResponse{Allow: true})
		return
	}
	writeJSON(w, http.StatusOK, navigateResponse{
		Allow:    false,
		Redirect: s.blockedPage + "?origin=" + url.QueryEscape(origin),
		Reason:   v.Reason.String(),
	})
}

var blockedTmpl = template.Must(template.New("blocked").Parse(`<!doctype html>
<html>
<head><title>Site blocked</title></head>
<body>
<h1>This site is blocked</h1>
{{if .Origin}}<p>{{.Origin}} is currently blocked.</p>{{end}}
{{if .Reason}}<p>Reason: {{.Reason}} block.</p>{{end}}
</body>
</html>
`))

func (s *Server) handleBlockedPage(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Origin string
		Reason string
	}{Origin: r.URL.Query().Get("origin")}

	if origin, reason, ok := s.engine.LastBlocked(); ok && origin == data.Origin {
		data.Reason = reason.String()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = blockedTmpl.Execute(w, data)
}

// --- auth ---

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.auth.Signup(req.Password); err != nil {
		if errors.Is(err, vault.ErrWeakPassword) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	switch err := s.auth.Login(req.Password); {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, vault.ErrNoPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, vault.ErrIncorrectPassword):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "storage failure")
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.auth.Logout()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, _ *http.Request) {
	hasPassword, err := s.auth.HasPassword()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{
		"hasPassword": hasPassword,
		"loggedIn":    s.auth.LoggedIn(),
	})
}

// --- rules ---

type rulesResponse struct {
	Instant   []string                         `json:"instant"`
	Schedules map[string][]domain.ScheduleRule `json:"schedules"`
	Timers    map[string]domain.TimerRule      `json:"timers"`
}

func (s *Server) handleListRules(w http.ResponseWriter, _ *http.Request) {
	snap := s.rules.Snapshot()
	resp := rulesResponse{
		Instant:   make([]string, 0, len(snap.Instant)),
		Schedules: snap.Schedules,
		Timers:    snap.Timers,
	}
	for origin := range snap.Instant {
		resp.Instant = append(resp.Instant, origin)
	}
	sort.Strings(resp.Instant)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddInstant(w http.ResponseWriter, r *http.Request) {
	origin, ok := s.originFromBody(w, r)
	if !ok {
		return
	}
	if err := s.rules.AddInstant(origin); err != nil {
		writeRuleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"origin": origin})
}

func (s *Server) handleRemoveInstant(w http.ResponseWriter, r *http.Request) {
	origin, ok := s.originFromBody(w, r)
	if !ok {
		return
	}
	if err := s.rules.RemoveInstant(origin); err != nil {
		writeRuleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"origin": origin})
}

func (s *Server) handleAddSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL       string `json:"url"`
		Days      []int  `json:"days"`
		StartTime string `json:"startTime"`
		EndTime   string `json:"endTime"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	origin, err := urlx.NormalizeOrigin(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid url")
		return
	}

	rule := domain.ScheduleRule{}
	for _, d := range req.Days {
		if d < 0 || d > 6 {
			writeError(w, http.StatusBadRequest, "day out of range")
			return
		}
		rule.Days = append(rule.Days, time.Weekday(d))
	}
	if rule.Start, err = domain.ParseMinute(req.StartTime); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if rule.End, err = domain.ParseMinute(req.EndTime); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, err := s.rules.AddSchedule(origin, rule)
	if err != nil {
		writeRuleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleRemoveSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
		ID  int64  `json:"id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	origin, err := urlx.NormalizeOrigin(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid url")
		return
	}
	if err := s.rules.RemoveSchedule(origin, req.ID); err != nil {
		writeRuleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"origin": origin})
}

func (s *Server) handleSetTimer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL      string `json:"url"`
		Duration int    `json:"duration"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	origin, err := urlx.NormalizeOrigin(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid url")
		return
	}
	stored, err := s.rules.SetTimer(origin, req.Duration)
	if err != nil {
		writeRuleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleClearTimer(w http.ResponseWriter, r *http.Request) {
	origin, ok := s.originFromBody(w, r)
	if !ok {
		return
	}
	if err := s.rules.ClearTimer(origin); err != nil {
		writeRuleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"origin": origin})
}

func (s *Server) handleUnblockAll(w http.ResponseWriter, r *http.Request) {
	origin, ok := s.originFromBody(w, r)
	if !ok {
		return
	}
	if err := s.rules.UnblockAll(origin); err != nil {
		writeRuleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"origin": origin})
}

// --- transfer ---

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rules.Export(s.clk.Now()))
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var in domain.Export
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.rules.ImportMerge(in); err != nil {
		writeRuleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- status ---

type statusResponse struct {
	LastBlocked *blockedHint `json:"lastBlocked"`
	Cache       cacheStatus  `json:"cache"`
	Rules       ruleCounts   `json:"rules"`
	LoggedIn    bool         `json:"loggedIn"`
}

type blockedHint struct {
	Origin string `json:"origin"`
	Reason string `json:"reason"`
}

type cacheStatus struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Entries   int    `json:"entries"`
}

type ruleCounts struct {
	Instant   int `json:"instant"`
	Schedules int `json:"schedules"`
	Timers    int `json:"timers"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{LoggedIn: s.auth.LoggedIn()}

	if origin, reason, ok := s.engine.LastBlocked(); ok {
		resp.LastBlocked = &blockedHint{Origin: origin, Reason: reason.String()}
	}

	hits, misses, evictions := s.cache.Stats()
	resp.Cache = cacheStatus{
		Hits:      hits,
		Misses:    misses,
		Evictions: evictions,
		Entries:   s.cache.Len(),
	}

	st := s.rules.Stats()
	resp.Rules = ruleCounts{
		Instant:   st.InstantCount,
		Schedules: st.ScheduleCount,
		Timers:    st.TimerCount,
	}

	writeJSON(w, http.StatusOK, resp)
}
