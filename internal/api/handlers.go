package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/datadetective/academy/internal/catalog"
	"github.com/datadetective/academy/internal/gateway"
	"github.com/datadetective/academy/internal/session"
	"github.com/datadetective/academy/pkg/core"
)

// challengeView is a challenge without its solution or hint texts.
type challengeView struct {
	catalog.Challenge
	HintCount int  `json:"hint_count"`
	Checkable bool `json:"checkable"`
}

func newChallengeView(ch catalog.Challenge) challengeView {
	return challengeView{Challenge: ch, HintCount: len(ch.Hints), Checkable: ch.HasReference()}
}

type unitView struct {
	ID         int             `json:"unit_id"`
	Title      string          `json:"title"`
	Challenges []challengeView `json:"challenges"`
}

// sessionView is the state of the browser's open challenge.
type sessionView struct {
	Challenge *challengeView `json:"challenge,omitempty"`
	State     session.State  `json:"state"`
	Hints     []string       `json:"hints"`
	CanSubmit bool           `json:"can_submit"`
}

type openRequest struct {
	UnitID      int `json:"unit_id"`
	ChallengeID int `json:"challenge_id"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type runResponse struct {
	Outcome core.Outcome `json:"outcome"`
	Session sessionView  `json:"session"`
}

type checkResponse struct {
	Verdict core.Verdict `json:"verdict"`
	Session sessionView  `json:"session"`
}

type submitResponse struct {
	Award   gateway.Award `json:"award"`
	Session sessionView   `json:"session"`
}

type hintResponse struct {
	Level   int         `json:"level"`
	Hint    string      `json:"hint"`
	Session sessionView `json:"session"`
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &badRequest{err: fmt.Errorf("invalid request body: %w", err)}
	}
	return nil
}

func (s *Server) view(c *session.Controller) sessionView {
	st := c.State()
	v := sessionView{State: st, Hints: c.Hints(), CanSubmit: st.CanSubmit()}
	if ch, err := s.app.Catalog().Challenge(st.Key); err == nil {
		cv := newChallengeView(ch)
		v.Challenge = &cv
	}
	return v
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"online":   s.app.Online(),
		"sessions": s.browsers.count(),
	})
}

func (s *Server) listChallenges(w http.ResponseWriter, _ *http.Request) {
	units := s.app.Catalog().Units()
	out := make([]unitView, 0, len(units))
	for _, u := range units {
		uv := unitView{ID: u.ID, Title: u.Title, Challenges: make([]challengeView, 0, len(u.Challenges))}
		for _, ch := range u.Challenges {
			uv.Challenges = append(uv.Challenges, newChallengeView(ch))
		}
		out = append(out, uv)
	}
	writeJSON(w, http.StatusOK, map[string]any{"units": out})
}

func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	report, err := s.app.Progress(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.browsers.id(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	key := core.ChallengeKey{UnitID: req.UnitID, ChallengeID: req.ChallengeID}
	c, err := s.browsers.replace(r.Context(), id, key, func(ctx context.Context, key core.ChallengeKey) (*session.Controller, error) {
		return s.app.OpenChallenge(ctx, key, nil)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("challenge opened", "challenge", key, "browser", id)
	writeJSON(w, http.StatusOK, s.view(c))
}

// withSession resolves the browser's session before calling fn.
func (s *Server) withSession(fn func(w http.ResponseWriter, r *http.Request, c *session.Controller)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.browsers.current(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		fn(w, r, c)
	}
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, _ *http.Request, c *session.Controller) {
		writeJSON(w, http.StatusOK, s.view(c))
	})(w, r)
}

func (s *Server) setQuery(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Controller) {
		var req queryRequest
		if err := decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := c.SetQuery(r.Context(), req.Query); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.view(c))
	})(w, r)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Controller) {
		out, err := c.Run(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, runResponse{Outcome: out, Session: s.view(c)})
	})(w, r)
}

func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Controller) {
		verdict, err := c.CheckAnswer(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, checkResponse{Verdict: verdict, Session: s.view(c)})
	})(w, r)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Controller) {
		award, err := c.Submit(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, submitResponse{Award: award, Session: s.view(c)})
	})(w, r)
}

func (s *Server) unlockHint(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Controller) {
		level, err := c.UnlockHint(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp := hintResponse{Level: level, Session: s.view(c)}
		if level <= len(resp.Session.Hints) {
			resp.Hint = resp.Session.Hints[level-1]
		}
		writeJSON(w, http.StatusOK, resp)
	})(w, r)
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Controller) {
		if err := c.Clear(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.view(c))
	})(w, r)
}

func (s *Server) dismiss(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, _ *http.Request, c *session.Controller) {
		c.DismissError()
		writeJSON(w, http.StatusOK, s.view(c))
	})(w, r)
}

// catalogSignals is pushed to event subscribers after each catalog reload.
type catalogSignals struct {
	Catalog struct {
		Name    string `json:"name"`
		Count   int    `json:"count"`
		Version int    `json:"version"`
	} `json:"catalog"`
}

// events streams catalog changes as Datastar signal patches.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	ch := s.notifier.subscribe()
	defer s.notifier.unsubscribe(ch)

	sse := datastar.NewSSE(w, r)
	send := func() error {
		var sig catalogSignals
		sig.Catalog.Name = s.app.Catalog().Name()
		sig.Catalog.Count = s.app.Catalog().Count()
		sig.Catalog.Version = s.notifier.currentVersion()
		return sse.MarshalAndPatchSignals(sig)
	}

	if err := send(); err != nil {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ch:
			if err := send(); err != nil {
				s.logger.Debug("event stream closed", "error", err)
				return
			}
		}
	}
}
