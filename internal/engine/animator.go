package engine

import (
	"context"

	"github.com/gemduel/gemduel-backend/internal/board"
)

// Animator is the visual layer's seam. Every method blocks until the
// corresponding animation has settled; the engine treats each call as a
// suspension point and keeps input disabled until it returns.
type Animator interface {
	// Swap animates two tiles exchanging places (also used for the revert).
	Swap(ctx context.Context, a, b *board.Field) error
	// Remove animates matched tiles disappearing.
	Remove(ctx context.Context, fields []*board.Field) error
	// Fall animates a tile settling into its new field after gravity.
	Fall(ctx context.Context, f *board.Field) error
	// Spawn animates a freshly created tile dropping into an empty field.
	Spawn(ctx context.Context, f *board.Field) error
}

// NoopAnimator completes every animation immediately. Used by headless
// clients and tests.
type NoopAnimator struct{}

func (NoopAnimator) Swap(context.Context, *board.Field, *board.Field) error { return nil }
func (NoopAnimator) Remove(context.Context, []*board.Field) error           { return nil }
func (NoopAnimator) Fall(context.Context, *board.Field) error               { return nil }
func (NoopAnimator) Spawn(context.Context, *board.Field) error              { return nil }
