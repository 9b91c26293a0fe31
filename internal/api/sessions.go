package api

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/datadetective/academy/internal/session"
	"github.com/datadetective/academy/pkg/core"
)

const (
	cookieName = "detective"
	browserKey = "browser_id"
)

// opener opens a challenge session.
type opener func(ctx context.Context, key core.ChallengeKey) (*session.Controller, error)

// browsers maps each browser to its open challenge session. A browser has
// at most one session; opening another closes the previous one.
type browsers struct {
	mu      sync.Mutex
	cookies sessions.Store
	open    map[string]*session.Controller
}

func newBrowsers(cookies sessions.Store) *browsers {
	return &browsers{cookies: cookies, open: make(map[string]*session.Controller)}
}

// id returns the browser id from the cookie, issuing one when absent.
func (b *browsers) id(w http.ResponseWriter, r *http.Request) (string, error) {
	sess, _ := b.cookies.Get(r, cookieName)
	if id, ok := sess.Values[browserKey].(string); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	sess.Values[browserKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", err
	}
	return id, nil
}

// current returns the browser's open session.
func (b *browsers) current(r *http.Request) (*session.Controller, error) {
	sess, _ := b.cookies.Get(r, cookieName)
	id, _ := sess.Values[browserKey].(string)

	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.open[id]
	if !ok || id == "" {
		return nil, errNoSession
	}
	return c, nil
}

// replace opens key for the browser and closes its previous session.
func (b *browsers) replace(ctx context.Context, id string, key core.ChallengeKey, open opener) (*session.Controller, error) {
	c, err := open(ctx, key)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	prev := b.open[id]
	b.open[id] = c
	b.mu.Unlock()

	if prev != nil {
		_ = prev.Close(ctx)
	}
	return c, nil
}

// closeAll closes every open session.
func (b *browsers) closeAll(ctx context.Context) error {
	b.mu.Lock()
	open := b.open
	b.open = make(map[string]*session.Controller)
	b.mu.Unlock()

	var errs []error
	for _, c := range open {
		errs = append(errs, c.Close(ctx))
	}
	return errors.Join(errs...)
}

func (b *browsers) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.open)
}
