// Package session drives one student's work on one challenge: editing,
// running and checking a query, unlocking hints and submitting.
//
// State transitions are computed by Reduce, a pure function of the current
// state and an event. The Controller owns the session's resources, feeds
// events to Reduce and performs the effects it returns: executing SQL,
// validating, submitting and saving drafts. The state lock is never held
// across an engine or remote call; validation completions carry the text
// they validated and are discarded if the text changed meanwhile.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/datadetective/academy/internal/checker"
	"github.com/datadetective/academy/internal/drafts"
	"github.com/datadetective/academy/internal/gateway"
	"github.com/datadetective/academy/internal/hints"
	"github.com/datadetective/academy/internal/sandbox"
	"github.com/datadetective/academy/pkg/core"
)

// Options configures a session.
type Options struct {
	// Key identifies the challenge. The zero key opens a free practice
	// session that cannot be submitted.
	Key core.ChallengeKey
	// Reference is the query whose result the student must reproduce.
	// Empty disables checking.
	Reference string
	// Hints are the challenge's ordered hints.
	Hints []string
	// InitialHints is the number of hints already unlocked.
	InitialHints int

	// Engine, Params, Dataset and QueryTimeout configure both databases.
	Engine       string
	Params       map[string]any
	Dataset      sandbox.Dataset
	QueryTimeout time.Duration

	// Drafts auto-saves the query text (optional).
	Drafts *drafts.Cache
	// HintRecorder records hint accesses (optional).
	HintRecorder hints.Recorder
	// Gateway submits solutions (optional, required for Submit).
	Gateway *gateway.Gateway
	// OnOutcome is called after every Run.
	OnOutcome func(core.Outcome)

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// executor runs queries against one database.
type executor interface {
	Execute(ctx context.Context, query string) core.Outcome
	Tables(ctx context.Context) ([]string, error)
	Describe(ctx context.Context, table string) (*core.TableMetadata, error)
	Close() error
}

// Controller runs a session.
type Controller struct {
	mu     sync.Mutex
	state  State
	closed bool

	student   executor
	reference executor
	refQuery  string
	hintTexts []string
	machine   *hints.Machine
	drafts    *drafts.Cache
	gateway   *gateway.Gateway
	onOutcome func(core.Outcome)
	logger    *slog.Logger
}

// Open initializes the session's databases and restores its draft.
// The student query runs in its own database; the reference query runs in
// a second one the student cannot modify.
func Open(ctx context.Context, opts Options) (*Controller, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("challenge", opts.Key)

	cfg := sandbox.Config{
		Engine:       opts.Engine,
		Params:       opts.Params,
		Dataset:      opts.Dataset,
		QueryTimeout: opts.QueryTimeout,
		Logger:       logger,
	}

	student, err := sandbox.Initialize(ctx, cfg)
	if err != nil {
		return nil, err
	}

	hasReference := strings.TrimSpace(opts.Reference) != ""
	var reference *sandbox.Handle
	if hasReference {
		reference, err = sandbox.Initialize(ctx, cfg)
		if err != nil {
			_ = student.Close()
			return nil, err
		}
	}

	c := &Controller{
		student:   student,
		refQuery:  opts.Reference,
		hintTexts: opts.Hints,
		drafts:    opts.Drafts,
		gateway:   opts.Gateway,
		onOutcome: opts.OnOutcome,
		logger:    logger,
	}

	if reference != nil {
		c.reference = reference
	}

	c.machine = hints.New(opts.Key, opts.InitialHints, opts.HintRecorder, logger)
	c.machine.OnChange(func(n int) {
		_, _ = c.dispatch(HintsChanged{Count: n})
	})

	c.state = State{
		Key:          opts.Key,
		HintsUsed:    c.machine.Unlocked(),
		HasReference: hasReference,
		CanSubmitTo:  opts.Gateway != nil,
	}

	if c.drafts != nil && !opts.Key.IsZero() {
		text, ok, err := c.drafts.Load(ctx, opts.Key)
		switch {
		case err != nil:
			logger.Warn("failed to load draft", "error", err)
		case ok:
			c.state.QueryText = text
		}
	}

	logger.Debug("session opened", "engine", student.Engine(), "has_reference", hasReference)
	return c, nil
}

// dispatch applies ev to the state under the lock.
func (c *Controller) dispatch(ev Event) ([]Effect, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	next, effects, err := Reduce(c.state, ev)
	c.state = next
	return effects, err
}

// handle dispatches ev and performs the resulting effects, feeding their
// completions back. It returns the completion events.
func (c *Controller) handle(ctx context.Context, ev Event) ([]Event, error) {
	effects, err := c.dispatch(ev)
	if err != nil {
		return nil, err
	}

	var completions []Event
	for _, eff := range effects {
		done := c.perform(ctx, eff)
		if done == nil {
			continue
		}
		completions = append(completions, done)
		if _, err := c.dispatch(done); err != nil {
			return completions, err
		}
	}
	return completions, nil
}

// perform runs one effect and returns its completion event, if any.
func (c *Controller) perform(ctx context.Context, eff Effect) Event {
	switch eff := eff.(type) {
	case ExecuteEffect:
		out := c.student.Execute(ctx, eff.Text)
		if c.onOutcome != nil {
			c.onOutcome(out)
		}
		return RunFinished{Outcome: out}

	case ValidateEffect:
		return c.validate(ctx, eff)

	case SubmitEffect:
		award, err := c.gateway.Submit(ctx, eff.Submission)
		return SubmitFinished{Award: award, Err: err}

	case SaveDraftEffect:
		if c.drafts != nil && !eff.Key.IsZero() {
			c.drafts.Put(eff.Key, eff.Text)
		}
		return nil

	case ClearDraftEffect:
		if c.drafts != nil && !eff.Key.IsZero() {
			if err := c.drafts.Clear(ctx, eff.Key); err != nil {
				c.logger.Warn("failed to clear draft", "error", err)
			}
		}
		return nil

	default:
		c.logger.Error("unknown effect", "effect", fmt.Sprintf("%T", eff))
		return nil
	}
}

// validate runs the snapshot, then the reference query, and compares them.
// The reference query only runs when the snapshot succeeded.
func (c *Controller) validate(ctx context.Context, eff ValidateEffect) CheckFinished {
	done := CheckFinished{Snapshot: eff.Snapshot, Generation: eff.Generation}

	student := c.student.Execute(ctx, eff.Snapshot)
	done.Outcome = &student
	if !student.OK() {
		done.Err = &ValidationAbortedError{Source: SourceStudent, EngineMessage: student.Message}
		return done
	}

	expected := c.reference.Execute(ctx, c.refQuery)
	if !expected.OK() {
		c.logger.Error("reference query failed", "error", expected.Message)
		done.Err = &ValidationAbortedError{Source: SourceReference, EngineMessage: expected.Message}
		return done
	}

	verdict := checker.Compare(*student.Result, *expected.Result)
	c.logger.Debug("query checked", "valid", verdict.IsValid, "message", verdict.Message)
	done.Verdict = &verdict
	return done
}

// State returns a snapshot of the session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetQuery replaces the query text.
func (c *Controller) SetQuery(ctx context.Context, text string) error {
	_, err := c.handle(ctx, Edited{Text: text})
	return err
}

// Run executes the current text. An engine error is a normal outcome, not
// an error; the returned error reports a refused run.
func (c *Controller) Run(ctx context.Context) (core.Outcome, error) {
	done, err := c.handle(ctx, RunRequested{})
	if err != nil {
		return core.Outcome{}, err
	}
	for _, ev := range done {
		if rf, ok := ev.(RunFinished); ok {
			return rf.Outcome, nil
		}
	}
	return core.Outcome{}, errors.New("run produced no outcome")
}

// CheckAnswer validates the current text against the reference query. A
// failing comparison is a verdict with IsValid false; errors report checks
// that could not produce a verdict.
func (c *Controller) CheckAnswer(ctx context.Context) (core.Verdict, error) {
	done, err := c.handle(ctx, CheckRequested{})
	if err != nil {
		return core.Verdict{}, err
	}
	for _, ev := range done {
		if cf, ok := ev.(CheckFinished); ok && cf.Verdict != nil {
			return *cf.Verdict, nil
		}
	}
	return core.Verdict{}, errors.New("check produced no verdict")
}

// Submit sends the current text, which must have passed CheckAnswer
// unchanged, to the gateway.
func (c *Controller) Submit(ctx context.Context) (gateway.Award, error) {
	done, err := c.handle(ctx, SubmitRequested{})
	if err != nil {
		return gateway.Award{}, err
	}
	for _, ev := range done {
		if sf, ok := ev.(SubmitFinished); ok {
			return sf.Award, nil
		}
	}
	return gateway.Award{}, errors.New("submission produced no award")
}

// UnlockHint reveals the next hint and returns its level.
// hints.ErrAllHintsRevealed is returned once every hint is revealed.
func (c *Controller) UnlockHint(ctx context.Context) (int, error) {
	if c.isClosed() {
		return 0, ErrClosed
	}
	level, err := c.machine.UnlockNext(ctx)
	if err != nil {
		var recErr *hints.RecordingError
		if errors.As(err, &recErr) {
			_, _ = c.dispatch(HintUnlockFailed{Err: err})
		}
		return 0, err
	}
	return level, nil
}

// Hints returns the revealed hints.
func (c *Controller) Hints() []string {
	return c.machine.Revealed(c.hintTexts)
}

// Clear empties the editor and forgets the last run and check. Hints stay
// unlocked.
func (c *Controller) Clear(ctx context.Context) error {
	_, err := c.handle(ctx, Cleared{})
	return err
}

// DismissError hides the last error.
func (c *Controller) DismissError() {
	_, _ = c.dispatch(ErrorDismissed{})
}

// Tables lists the tables in the student's database.
func (c *Controller) Tables(ctx context.Context) ([]string, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	return c.student.Tables(ctx)
}

// Describe returns the columns of a table in the student's database.
func (c *Controller) Describe(ctx context.Context, table string) (*core.TableMetadata, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	return c.student.Describe(ctx, table)
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close flushes pending drafts and releases both databases. Close is
// idempotent.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	var errs []error
	if c.drafts != nil {
		if err := c.drafts.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush drafts: %w", err))
		}
	}
	if err := c.student.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.reference != nil {
		if err := c.reference.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.logger.Debug("session closed")
	return errors.Join(errs...)
}
