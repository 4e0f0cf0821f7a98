package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/netguy204/ve/internal/frontmatter"
	"github.com/netguy204/ve/internal/statestore"
	"github.com/netguy204/ve/internal/types"
	"github.com/netguy204/ve/internal/verrors"
)

const indexPage = `<!doctype html>
<html><head><title>ve orchestrator</title></head>
<body>
<h1>ve orchestrator</h1>
<p>JSON endpoints:</p>
<ul>
<li>GET /status</li>
<li>GET /work-units?status=</li>
<li>POST /work-units</li>
<li>GET /work-units/{chunk}</li>
<li>PATCH /work-units/{chunk}</li>
<li>DELETE /work-units/{chunk}</li>
<li>GET /work-units/{chunk}/history</li>
<li>GET /attention</li>
<li>POST /work-units/{chunk}/answer</li>
<li>POST /work-units/{chunk}/resolve</li>
<li>WS /ws</li>
</ul>
</body></html>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexPage))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	started := s.startedAt
	state := types.OrchestratorState{
		Running:        true,
		PID:            pid(),
		UptimeSeconds:  time.Since(started).Seconds(),
		StartedAt:      &started,
		WorkUnitCounts: counts,
		Version:        Version,
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleWorkUnitsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listWorkUnits(w, r)
	case http.MethodPost:
		s.createWorkUnit(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listWorkUnits(w http.ResponseWriter, r *http.Request) {
	statusParam := r.URL.Query().Get("status")
	var filter statestore.WorkUnitFilter
	if statusParam != "" {
		want := types.WorkUnitStatus(statusParam)
		filter = func(st types.WorkUnitStatus) bool { return st == want }
	}
	units, err := s.store.ListWorkUnits(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}

type createWorkUnitBody struct {
	Chunk     string   `json:"chunk"`
	Phase     string   `json:"phase"`
	BlockedBy []string `json:"blocked_by"`
	Priority  int      `json:"priority"`
}

func (s *Server) createWorkUnit(w http.ResponseWriter, r *http.Request) {
	body, isForm, err := decodeBody[createWorkUnitBody](r)
	if err != nil {
		writeError(w, &verrors.ValidationFailure{Field: "body", Reason: err.Error()})
		return
	}
	if strings.TrimSpace(body.Chunk) == "" {
		writeError(w, &verrors.ValidationFailure{Field: "chunk", Reason: "required and must be nonempty"})
		return
	}
	phase := types.WorkUnitPhase(body.Phase)
	if phase == "" {
		phase = types.PhaseGoal
	}
	wu := &types.WorkUnit{
		Chunk:     body.Chunk,
		Phase:     phase,
		Status:    types.WUBlocked,
		BlockedBy: body.BlockedBy,
		Priority:  body.Priority,
	}
	if len(wu.BlockedBy) == 0 {
		wu.Status = types.WUReady
	}
	if err := s.store.CreateWorkUnit(r.Context(), wu); err != nil {
		writeError(w, err)
		return
	}
	s.broadcastWorkUnitUpdate(*wu)
	if isForm {
		http.Redirect(w, r, "/work-units/"+url.PathEscape(wu.Chunk), http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, wu)
}

// handleWorkUnitItem dispatches /work-units/{chunk}[/history|/answer|/resolve].
func (s *Server) handleWorkUnitItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/work-units/")
	parts := strings.SplitN(rest, "/", 2)
	chunk := parts[0]
	if chunk == "" {
		http.NotFound(w, r)
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "history":
			s.handleHistory(w, r, chunk)
		case "answer":
			s.handleAnswer(w, r, chunk)
		case "resolve":
			s.handleResolve(w, r, chunk)
		default:
			http.NotFound(w, r)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getWorkUnit(w, r, chunk)
	case http.MethodPatch:
		s.patchWorkUnit(w, r, chunk)
	case http.MethodDelete:
		s.deleteWorkUnit(w, r, chunk)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) getWorkUnit(w http.ResponseWriter, r *http.Request, chunk string) {
	wu, err := s.store.GetWorkUnit(r.Context(), chunk)
	if err != nil {
		writeError(w, err)
		return
	}
	if wu == nil {
		writeError(w, &verrors.NotFound{Kind: "work_unit", Name: chunk})
		return
	}
	writeJSON(w, http.StatusOK, wu)
}

type patchWorkUnitBody struct {
	Phase     *string   `json:"phase"`
	Status    *string   `json:"status"`
	BlockedBy *[]string `json:"blocked_by"`
	Worktree  *string   `json:"worktree"`
}

func (s *Server) patchWorkUnit(w http.ResponseWriter, r *http.Request, chunk string) {
	body, isForm, err := decodeBody[patchWorkUnitBody](r)
	if err != nil {
		writeError(w, &verrors.ValidationFailure{Field: "body", Reason: err.Error()})
		return
	}
	var updated types.WorkUnit
	err = s.store.UpdateWorkUnit(r.Context(), chunk, func(wu *types.WorkUnit) {
		if body.Phase != nil {
			wu.Phase = types.WorkUnitPhase(*body.Phase)
		}
		if body.Status != nil {
			wu.Status = types.WorkUnitStatus(*body.Status)
		}
		if body.BlockedBy != nil {
			wu.BlockedBy = *body.BlockedBy
		}
		if body.Worktree != nil {
			wu.Worktree = *body.Worktree
		}
		updated = *wu
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.broadcastWorkUnitUpdate(updated)
	if isForm {
		http.Redirect(w, r, "/work-units/"+url.PathEscape(chunk), http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteWorkUnit(w http.ResponseWriter, r *http.Request, chunk string) {
	if err := s.store.DeleteWorkUnit(r.Context(), chunk); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, chunk string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entries, err := s.store.StatusLog(r.Context(), chunk)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAttention(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	items, err := s.store.AttentionQueue(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type answerBody struct {
	Answer string `json:"answer"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request, chunk string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, isForm, err := decodeBody[answerBody](r)
	if err != nil {
		writeError(w, &verrors.ValidationFailure{Field: "body", Reason: err.Error()})
		return
	}
	if err := s.scheduler.Answer(r.Context(), chunk, body.Answer); err != nil {
		writeError(w, err)
		return
	}
	wu, _ := s.store.GetWorkUnit(r.Context(), chunk)
	if wu != nil {
		s.broadcastWorkUnitUpdate(*wu)
	}
	if isForm {
		http.Redirect(w, r, "/work-units/"+url.PathEscape(chunk), http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, wu)
}

// resolveBody is the overlap-resolution verdict payload: `other_chunk`
// names the overlapping artifact, `verdict` decides whether the two
// proceed in parallel or are serialized via created_after.
type resolveBody struct {
	OtherChunk string `json:"other_chunk"`
	Verdict    string `json:"verdict"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request, chunk string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, isForm, err := decodeBody[resolveBody](r)
	if err != nil {
		writeError(w, &verrors.ValidationFailure{Field: "body", Reason: err.Error()})
		return
	}
	if body.Verdict != "parallelize" && body.Verdict != "serialize" {
		writeError(w, &verrors.ValidationFailure{Field: "verdict", Reason: "must be parallelize or serialize"})
		return
	}
	wu, err := s.store.GetWorkUnit(r.Context(), chunk)
	if err != nil || wu == nil {
		writeError(w, &verrors.NotFound{Kind: "work_unit", Name: chunk})
		return
	}
	if body.Verdict == "serialize" {
		if err := s.serializeAfter(chunk, body.OtherChunk); err != nil {
			writeError(w, err)
			return
		}
	}
	err = s.store.UpdateWorkUnit(r.Context(), chunk, func(w *types.WorkUnit) {
		w.Status = types.WUReady
		w.AttentionReason = ""
	})
	if err != nil {
		writeError(w, err)
		return
	}
	updated, _ := s.store.GetWorkUnit(r.Context(), chunk)
	if updated != nil {
		s.broadcastWorkUnitUpdate(*updated)
	}
	if isForm {
		http.Redirect(w, r, "/work-units/"+url.PathEscape(chunk), http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// serializeAfter rewrites chunk's GOAL.md frontmatter so other appears in
// created_after, establishing the causal order an operator chose when
// resolving an overlap. A no-op if other is already listed.
func (s *Server) serializeAfter(chunk, other string) error {
	path := filepath.Join(s.projectDir, "docs", types.KindChunk.DirName(), chunk, types.KindChunk.MainFile())
	doc, err := frontmatter.Read(path)
	if err != nil {
		return err
	}
	if doc == nil {
		return &verrors.NotFound{Kind: "chunk", Name: chunk}
	}
	var createdAfter []string
	if _, err := doc.GetField("created_after", &createdAfter); err != nil {
		return err
	}
	for _, c := range createdAfter {
		if c == other {
			return nil
		}
	}
	createdAfter = append(createdAfter, other)
	if err := doc.SetField("created_after", createdAfter); err != nil {
		return err
	}
	return doc.Write(path)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps the named error taxonomy to a 4xx response: 404 for
// NotFound, 400 for every other error.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.As(err, new(*verrors.NotFound)):
		status = http.StatusNotFound
	case errors.As(err, new(*verrors.IllegalTransition)),
		errors.As(err, new(*verrors.ValidationFailure)),
		errors.As(err, new(*verrors.CollisionDetected)),
		errors.As(err, new(*verrors.CycleInKind)):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// decodeBody accepts either JSON or x-www-form-urlencoded submissions: form
// submissions redirect with 303, JSON responses return 200. The caller
// distinguishes by the returned isForm flag.
func decodeBody[T any](r *http.Request) (T, bool, error) {
	var body T
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return body, true, err
		}
		if err := formToStruct(r.Form, &body); err != nil {
			return body, true, err
		}
		return body, true, nil
	}
	if r.ContentLength == 0 {
		return body, false, nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		return body, false, err
	}
	return body, false, nil
}

// formToStruct is a minimal form-to-JSON bridge: marshal url.Values' single
// string fields into the target via JSON re-encoding, sufficient for this
// API's flat request bodies (no nested objects in any POST/PATCH shape).
func formToStruct(form url.Values, out interface{}) error {
	flat := map[string]interface{}{}
	for k, v := range form {
		if len(v) == 1 {
			flat[k] = v[0]
		} else {
			flat[k] = v
		}
	}
	b, err := json.Marshal(flat)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func pid() int {
	return os.Getpid()
}
