package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gemduel/gemduel-backend/internal/board"
)

type State string

const (
	StateIdle      State = "idle"
	StateSelected  State = "selected"
	StateSwapping  State = "swapping"
	StateResolving State = "resolving"
	StateCascading State = "cascading"
	StateEnded     State = "ended"
)

type Config struct {
	Rows                 int
	Cols                 int
	RoundSeconds         int
	PointsPerCombination int
	Seed                 int64 // 0 means seed from the clock
}

func DefaultConfig() Config {
	return Config{
		Rows:                 board.DefaultRows,
		Cols:                 board.DefaultCols,
		RoundSeconds:         20,
		PointsPerCombination: 10,
	}
}

// Hooks receive the session's outward-facing side effects. OnScore fires
// once per resolving pass with the running total; OnEnd fires exactly once
// with the final score when the countdown reaches zero. Hooks are invoked
// outside the session lock but must not call back into the session.
type Hooks struct {
	OnScore func(score int)
	OnEnd   func(final int)
}

// Session is one player's local board: selection, swap validation, match
// resolution, cascades, scoring and the round countdown. The server never
// simulates any of this; only scores leave the session, via Hooks.
type Session struct {
	mu    sync.Mutex
	cfg   Config
	rng   *rand.Rand
	anim  Animator
	hooks Hooks
	log   *zap.Logger

	b        *board.Board
	state    State
	score    int
	selected *board.Field
	disabled bool
	timeLeft int

	// refill hook; tests override it for deterministic cascades
	newTile func() *board.Tile

	runCtx      context.Context
	timerCancel context.CancelFunc
}

func New(cfg Config, anim Animator, hooks Hooks, log *zap.Logger) *Session {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Session{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(seed)),
		anim:     anim,
		hooks:    hooks,
		log:      log,
		state:    StateIdle,
		timeLeft: cfg.RoundSeconds,
	}
	s.newTile = func() *board.Tile { return s.b.RandomTile() }
	s.b = board.New(cfg.Rows, cfg.Cols, s.rng)
	s.clearStartMatches()
	return s
}

// Start arms the 1 Hz countdown. Restart re-arms it against the same
// parent context.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runCtx = ctx
	s.startTimerLocked()
}

func (s *Session) startTimerLocked() {
	if s.timerCancel != nil {
		s.timerCancel()
	}
	ctx, cancel := context.WithCancel(s.runCtx)
	s.timerCancel = cancel
	go s.countdown(ctx)
}

func (s *Session) countdown(ctx context.Context) {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if s.tickOnce() {
				return
			}
		}
	}
}

// tickOnce decrements the clock and reports whether the round ended.
func (s *Session) tickOnce() bool {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return true
	}
	s.timeLeft--
	if s.timeLeft > 0 {
		s.mu.Unlock()
		return false
	}
	s.timeLeft = 0
	s.state = StateEnded
	s.disabled = true
	s.selected = nil
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}
	final := s.score
	s.mu.Unlock()

	s.log.Info("round ended", zap.Int("final_score", final))
	if s.hooks.OnEnd != nil {
		s.hooks.OnEnd(final)
	}
	return true
}

// Stop cancels the countdown. Required on teardown so a stale timer never
// fires into a dead session.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}
}

// Restart resets score, clock, board and selection state for a rematch,
// reusing the session object.
func (s *Session) Restart() {
	s.mu.Lock()
	s.score = 0
	s.timeLeft = s.cfg.RoundSeconds
	s.b = board.New(s.cfg.Rows, s.cfg.Cols, s.rng)
	s.clearStartMatches()
	s.selected = nil
	s.disabled = false
	s.state = StateIdle
	if s.runCtx != nil {
		s.startTimerLocked()
	}
	s.mu.Unlock()

	// let the opponent see the reset straight away
	if s.hooks.OnScore != nil {
		s.hooks.OnScore(0)
	}
}

func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

func (s *Session) TimeLeft() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeLeft
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Board() *board.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b
}

// Tap handles a click on (row, col). Input is silently ignored while a
// resolution is in flight or after the round has ended; a malformed tap
// is not an error.
func (s *Session) Tap(ctx context.Context, row, col int) {
	s.mu.Lock()

	if s.disabled || s.state == StateEnded {
		s.mu.Unlock()
		return
	}
	f := s.b.Field(row, col)
	if f == nil || f.Tile == nil {
		s.mu.Unlock()
		return
	}

	if s.selected == nil {
		s.selected = f
		s.state = StateSelected
		s.mu.Unlock()
		return
	}
	if !s.selected.IsNeighbour(f) {
		// drop the old selection, keep the new one
		s.selected = f
		s.mu.Unlock()
		return
	}

	a, b := s.selected, f
	s.selected = nil
	s.disabled = true
	s.state = StateSwapping
	scores := s.swapAndResolve(ctx, a, b)
	s.mu.Unlock()

	if s.hooks.OnScore != nil {
		for _, sc := range scores {
			s.hooks.OnScore(sc)
		}
	}
}

// swapAndResolve runs the optimistic swap and, when it matches, the full
// resolve/cascade loop. Called with the lock held; returns the running
// total after each resolving pass so hooks can fire outside the lock.
func (s *Session) swapAndResolve(ctx context.Context, a, b *board.Field) []int {
	_ = s.anim.Swap(ctx, a, b)
	s.b.Swap(a, b)

	combos := board.FindCombinations(s.b)
	if len(combos) == 0 {
		// revert; the reverse swap is non-evaluating so it can never loop
		_ = s.anim.Swap(ctx, b, a)
		s.b.Swap(b, a)
		s.state = StateIdle
		s.disabled = false
		return nil
	}

	var scores []int
	for len(combos) > 0 {
		s.state = StateResolving
		s.removeMatches(ctx, combos)
		scores = append(scores, s.score)

		s.state = StateCascading
		s.applyGravity(ctx)
		s.refill(ctx)

		combos = board.FindCombinations(s.b)
	}
	s.state = StateIdle
	s.disabled = false
	return scores
}

// removeMatches clears every tile reported across combos exactly once.
// Scoring is per combination, not per tile: overlapping runs each count.
func (s *Session) removeMatches(ctx context.Context, combos []board.Combination) {
	removed := uniqueFields(combos)
	s.score += s.cfg.PointsPerCombination * len(combos)
	_ = s.anim.Remove(ctx, removed)
	for _, f := range removed {
		s.b.RemoveTile(f)
	}
}

// uniqueFields flattens combos into the set of matched fields, keeping a
// field present in overlapping runs exactly once.
func uniqueFields(combos []board.Combination) []*board.Field {
	seen := map[*board.Field]struct{}{}
	var out []*board.Field
	for _, combo := range combos {
		for _, f := range combo.Fields {
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// applyGravity sweeps rows bottom-up and columns right-to-left so a hole
// never leapfrogs a tile that is still due to fall, then joins one fall
// animation per landed tile.
func (s *Session) applyGravity(ctx context.Context) {
	var landed []*board.Field
	for row := s.b.Rows() - 1; row >= 0; row-- {
		for col := s.b.Cols() - 1; col >= 0; col-- {
			f := s.b.Field(row, col)
			if f.Tile == nil && s.b.DropInto(f) {
				landed = append(landed, f)
			}
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range landed {
		f := f
		g.Go(func() error { return s.anim.Fall(gctx, f) })
	}
	_ = g.Wait()
}

// refill creates a fresh tile for every remaining hole and joins the
// spawn animations before the caller re-evaluates combinations.
func (s *Session) refill(ctx context.Context) {
	empty := s.b.EmptyFields()
	for _, f := range empty {
		f.Tile = s.newTile()
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range empty {
		f := f
		g.Go(func() error { return s.anim.Spawn(gctx, f) })
	}
	_ = g.Wait()
}

// clearStartMatches purges accidental combinations from a fresh board so
// a round never starts with free points. No scoring, and the animator is
// bypassed entirely: the pre-pass happens before anything is on screen.
func (s *Session) clearStartMatches() {
	for {
		combos := board.FindCombinations(s.b)
		if len(combos) == 0 {
			return
		}
		for _, f := range uniqueFields(combos) {
			s.b.RemoveTile(f)
		}
		for _, f := range s.b.EmptyFields() {
			f.Tile = s.newTile()
		}
	}
}
