package engine

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gemduel/gemduel-backend/internal/board"
)

const (
	B board.Color = "blue"
	G board.Color = "green"
	O board.Color = "orange"
	R board.Color = "red"
	P board.Color = "pink"
	Y board.Color = "yellow"
)

// newTestSession builds a session over a fixed layout with a scripted
// refill sequence, so cascades are fully deterministic.
func newTestSession(layout [][]board.Color, refill []board.Color, hooks Hooks) *Session {
	s := &Session{
		cfg: Config{
			Rows:                 len(layout),
			Cols:                 len(layout[0]),
			RoundSeconds:         20,
			PointsPerCombination: 10,
		},
		rng:      rand.New(rand.NewSource(1)),
		anim:     NoopAnimator{},
		hooks:    hooks,
		log:      zap.NewNop(),
		state:    StateIdle,
		timeLeft: 20,
	}
	s.b = board.NewFromLayout(layout, s.rng)
	i := 0
	s.newTile = func() *board.Tile {
		t := &board.Tile{Color: refill[i%len(refill)]}
		i++
		return t
	}
	return s
}

func colorAt(b *board.Board, row, col int) board.Color {
	f := b.Field(row, col)
	if f.Tile == nil {
		return ""
	}
	return f.Tile.Color
}

func TestFreshBoardsHaveNoStartingMatches(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		cfg := DefaultConfig()
		cfg.Seed = seed
		s := New(cfg, NoopAnimator{}, Hooks{}, zap.NewNop())
		assert.Empty(t, board.FindCombinations(s.Board()), "seed %d", seed)
		assert.Empty(t, s.Board().EmptyFields(), "seed %d", seed)
		assert.Equal(t, 0, s.Score(), "starting-match purge must not award points")
	}
}

func TestTapSelectsAndReselects(t *testing.T) {
	s := newTestSession([][]board.Color{
		{G, R, B},
		{R, G, O},
		{R, Y, G},
	}, []board.Color{P}, Hooks{})

	ctx := context.Background()
	s.Tap(ctx, 0, 0)
	assert.Equal(t, StateSelected, s.State())
	assert.Same(t, s.b.Field(0, 0), s.selected)

	// a non-adjacent second tap drops the old selection
	s.Tap(ctx, 2, 2)
	assert.Equal(t, StateSelected, s.State())
	assert.Same(t, s.b.Field(2, 2), s.selected)
}

func TestSwapWithoutMatchReverts(t *testing.T) {
	layout := [][]board.Color{
		{G, R, B},
		{R, G, O},
		{R, Y, G},
	}
	s := newTestSession(layout, []board.Color{P}, Hooks{})

	ctx := context.Background()
	s.Tap(ctx, 0, 1)
	s.Tap(ctx, 0, 2) // adjacent, produces nothing

	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, 0, s.Score())
	assert.False(t, s.disabled)
	for r, row := range layout {
		for c, want := range row {
			assert.Equal(t, want, colorAt(s.b, r, c), "field (%d,%d)", r, c)
		}
	}
}

func TestSwapResolvesAndScoresPerCombination(t *testing.T) {
	var scores []int
	s := newTestSession([][]board.Color{
		{G, R, B},
		{R, G, O},
		{R, Y, G},
	}, []board.Color{Y, B, P}, Hooks{
		OnScore: func(sc int) { scores = append(scores, sc) },
	})

	ctx := context.Background()
	// swapping (0,0) and (0,1) lines up red down column 0
	s.Tap(ctx, 0, 0)
	s.Tap(ctx, 0, 1)

	assert.Equal(t, 10, s.Score(), "one combination, 10 points")
	assert.Equal(t, []int{10}, scores, "one live update per resolving pass")
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.b.EmptyFields(), "cascade must leave no holes")
	assert.Empty(t, board.FindCombinations(s.b))
}

func TestOverlappingRunsScoreTwiceRemoveOnce(t *testing.T) {
	s := newTestSession([][]board.Color{
		{R, G, B, Y},
		{G, R, R, B},
		{R, B, G, Y},
		{R, Y, B, G},
	}, []board.Color{P, O, Y, P, O}, Hooks{})

	ctx := context.Background()
	// swapping (0,0) and (1,0) completes a horizontal run on row 1 and
	// a vertical run on column 0 sharing the corner tile
	s.Tap(ctx, 0, 0)
	s.Tap(ctx, 1, 0)

	assert.Equal(t, 20, s.Score(), "two overlapping combinations score separately")
	assert.Empty(t, s.b.EmptyFields(), "the shared tile is removed exactly once")
	assert.Equal(t, StateIdle, s.State())
}

func TestCountdownEndsRoundExactlyOnce(t *testing.T) {
	var ends atomic.Int32
	var final atomic.Int32
	s := newTestSession([][]board.Color{
		{G, R, B},
		{R, G, O},
		{R, Y, G},
	}, []board.Color{P}, Hooks{
		OnEnd: func(f int) {
			ends.Add(1)
			final.Store(int32(f))
		},
	})
	s.cfg.RoundSeconds = 1
	s.timeLeft = 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool { return s.State() == StateEnded },
		3*time.Second, 50*time.Millisecond)

	// input is permanently disabled after the round
	s.Tap(ctx, 0, 0)
	assert.Equal(t, StateEnded, s.State())
	assert.Nil(t, s.selected)

	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, int32(1), ends.Load(), "final score emitted exactly once")
	assert.Equal(t, int32(0), final.Load())
}

// recordingAnimator counts the waits the engine suspends on. Fall and
// Spawn run on the cascade barrier's goroutines, so the counters are
// atomic.
type recordingAnimator struct {
	swaps   atomic.Int32
	removes atomic.Int32
	falls   atomic.Int32
	spawns  atomic.Int32
}

func (a *recordingAnimator) Swap(context.Context, *board.Field, *board.Field) error {
	a.swaps.Add(1)
	return nil
}

func (a *recordingAnimator) Remove(context.Context, []*board.Field) error {
	a.removes.Add(1)
	return nil
}

func (a *recordingAnimator) Fall(context.Context, *board.Field) error {
	a.falls.Add(1)
	return nil
}

func (a *recordingAnimator) Spawn(context.Context, *board.Field) error {
	a.spawns.Add(1)
	return nil
}

func TestRevertedSwapAnimatesBothDirections(t *testing.T) {
	rec := &recordingAnimator{}
	s := newTestSession([][]board.Color{
		{G, R, B},
		{R, G, O},
		{R, Y, G},
	}, []board.Color{P}, Hooks{})
	s.anim = rec

	ctx := context.Background()
	s.Tap(ctx, 0, 1)
	s.Tap(ctx, 0, 2) // adjacent, produces nothing

	assert.Equal(t, int32(2), rec.swaps.Load(), "swap out, then the revert")
	assert.Equal(t, int32(0), rec.removes.Load())
	assert.Equal(t, int32(0), rec.falls.Load())
	assert.Equal(t, int32(0), rec.spawns.Load())
}

func TestResolveWaitsOnAnimatorBarriers(t *testing.T) {
	rec := &recordingAnimator{}
	s := newTestSession([][]board.Color{
		{R, G, B, Y},
		{G, R, R, B},
		{R, B, G, Y},
		{R, Y, B, G},
	}, []board.Color{P, O, Y, P, O}, Hooks{})
	s.anim = rec

	ctx := context.Background()
	s.Tap(ctx, 0, 0)
	s.Tap(ctx, 1, 0)

	require.Equal(t, StateIdle, s.State())
	assert.Equal(t, int32(1), rec.swaps.Load())
	assert.Equal(t, int32(1), rec.removes.Load(), "one removal wait per resolving pass")
	assert.Equal(t, int32(3), rec.falls.Load(), "one fall wait per landed tile")
	assert.Equal(t, int32(5), rec.spawns.Load(), "one spawn wait per refilled hole")
}

func TestStartingMatchPurgeBypassesAnimator(t *testing.T) {
	rec := &recordingAnimator{}
	s := newTestSession([][]board.Color{
		{R, R, R, G},
		{G, B, Y, B},
		{B, Y, G, Y},
	}, []board.Color{P, O, Y}, Hooks{})
	s.anim = rec

	s.clearStartMatches()

	assert.Empty(t, board.FindCombinations(s.b))
	assert.Empty(t, s.b.EmptyFields())
	assert.Equal(t, 0, s.score, "the purge never awards points")
	assert.Equal(t, int32(0), rec.removes.Load(), "nothing is on screen yet")
	assert.Equal(t, int32(0), rec.falls.Load())
	assert.Equal(t, int32(0), rec.spawns.Load())
}

func TestRestartYieldsFreshRound(t *testing.T) {
	var scores []int
	s := newTestSession([][]board.Color{
		{G, R, B},
		{R, G, O},
		{R, Y, G},
	}, []board.Color{Y, B, P, O, G, R}, Hooks{
		OnScore: func(sc int) { scores = append(scores, sc) },
	})

	ctx := context.Background()
	s.Tap(ctx, 0, 0)
	s.Tap(ctx, 0, 1)
	require.Equal(t, 10, s.Score())

	s.Restart()

	assert.Equal(t, 0, s.Score())
	assert.Equal(t, 20, s.TimeLeft())
	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.selected)
	assert.False(t, s.disabled)
	assert.Empty(t, board.FindCombinations(s.b), "rebuilt board starts clean")
	assert.Empty(t, s.b.EmptyFields())
	assert.Equal(t, []int{10, 0}, scores, "restart announces the reset score")
}
