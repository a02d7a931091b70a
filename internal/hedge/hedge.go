// Package hedge implements the hedged-request racer: a primary future
// raced against a staggered-launch secondary, used to mask slow fetch
// tails without doubling load on every request.
package hedge

import (
	"context"
	"time"
)

// Config controls hedge behavior.
type Config struct {
	Enabled   bool
	Delay     time.Duration
	MaxHedges int
}

// Result pairs a value with the index of the attempt that produced it: 0
// for the primary, 1+ for hedges in launch order.
type Result[T any] struct {
	Value      T
	WonByIndex int
}

// Attempt is a unit of work the racer can launch. ctx is cancelled when
// the attempt loses the race. Releasing a loser's resource (tab, session)
// is RaceWithCleanup's job; Attempt itself carries no cleanup.
type Attempt[T any] func(ctx context.Context) (T, error)

// Race runs primary, and — if it hasn't completed within cfg.Delay —
// launches hedges (up to cfg.MaxHedges, each staggered by cfg.Delay after
// the previous) racing against it. The first attempt to return a non-error
// result wins; every other in-flight attempt's context is cancelled.
//
// Polling is biased: primary is always checked before the delay timer, and
// before any hedge, so a primary that is already ready when the timer or a
// hedge becomes ready always wins the tie. If cfg.Enabled is false or
// len(hedges) == 0, Race simply awaits primary and never polls any hedge
// future.
func Race[T any](ctx context.Context, primary Attempt[T], hedges []Attempt[T], cfg Config) (Result[T], error) {
	if !cfg.Enabled || len(hedges) == 0 {
		v, err := primary(ctx)
		return Result[T]{Value: v, WonByIndex: 0}, err
	}

	maxHedges := cfg.MaxHedges
	if maxHedges <= 0 || maxHedges > len(hedges) {
		maxHedges = len(hedges)
	}
	hedges = hedges[:maxHedges]

	primaryCtx, cancelPrimary := context.WithCancel(ctx)
	defer cancelPrimary()

	type outcome struct {
		idx int
		v   T
		err error
	}
	primaryDone := make(chan outcome, 1)
	go func() {
		v, err := primary(primaryCtx)
		primaryDone <- outcome{idx: 0, v: v, err: err}
	}()

	// Biased check: if the primary is already done, return immediately
	// without ever starting the delay timer or any hedge.
	select {
	case o := <-primaryDone:
		return Result[T]{Value: o.v, WonByIndex: o.idx}, o.err
	default:
	}

	timer := time.NewTimer(cfg.Delay)
	defer timer.Stop()

	select {
	case o := <-primaryDone:
		return Result[T]{Value: o.v, WonByIndex: o.idx}, o.err
	case <-timer.C:
		select {
		case o := <-primaryDone:
			return Result[T]{Value: o.v, WonByIndex: o.idx}, o.err
		default:
		}
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	}

	// Primary didn't finish within Delay: launch hedges one at a time,
	// staggered by Delay, racing each newly launched one against the
	// still-pending primary (and any earlier hedges already in flight).
	done := make(chan outcome, len(hedges)+1)
	hedgeCancels := make([]context.CancelFunc, 0, len(hedges))
	launchHedge := func(i int) {
		hctx, cancel := context.WithCancel(ctx)
		hedgeCancels = append(hedgeCancels, cancel)
		go func() {
			v, err := hedges[i](hctx)
			done <- outcome{idx: i + 1, v: v, err: err}
		}()
	}

	cancelAllExcept := func(winner int) {
		if winner != 0 {
			cancelPrimary()
		}
		for i, cancel := range hedgeCancels {
			if i+1 != winner {
				cancel()
			}
		}
	}

	launchHedge(0)
	nextHedge := 1
	launched := 2 // primary + first hedge
	failed := 0
	stagger := time.NewTimer(cfg.Delay)
	defer stagger.Stop()

	var lastErr error

	for {
		select {
		case o := <-primaryDone:
			if o.err == nil {
				cancelAllExcept(0)
				return Result[T]{Value: o.v, WonByIndex: 0}, nil
			}
			lastErr = o.err
			failed++
			if failed >= launched && nextHedge >= len(hedges) {
				return Result[T]{}, lastErr
			}
		case o := <-done:
			if o.err == nil {
				select {
				case p := <-primaryDone:
					if p.err == nil {
						cancelAllExcept(0)
						return Result[T]{Value: p.v, WonByIndex: 0}, nil
					}
				default:
				}
				cancelAllExcept(o.idx)
				return Result[T]{Value: o.v, WonByIndex: o.idx}, nil
			}
			lastErr = o.err
			failed++
			if failed >= launched && nextHedge >= len(hedges) {
				return Result[T]{}, lastErr
			}
		case <-stagger.C:
			if nextHedge < len(hedges) {
				launchHedge(nextHedge)
				nextHedge++
				launched++
				stagger.Reset(cfg.Delay)
			}
		case <-ctx.Done():
			cancelAllExcept(-1)
			return Result[T]{}, ctx.Err()
		}
	}
}

// RaceWithCleanup is Race plus a cleanup hook: once a hedge attempt's
// context is done, cleanup(attemptIndex) is called to release that
// hedge's resource. On a hedge win,
// cleanup is never called for the primary, since its resource was never
// observed and is dropped without explicit release, matching the
// reference contract.
func RaceWithCleanup[T any](
	ctx context.Context,
	primary Attempt[T],
	hedges []Attempt[T],
	cfg Config,
	cleanup func(attemptIndex int),
) (Result[T], error) {
	wrap := func(idx int, a Attempt[T]) Attempt[T] {
		return func(ctx context.Context) (T, error) {
			v, err := a(ctx)
			go func() {
				<-ctx.Done()
				if idx != 0 && cleanup != nil {
					cleanup(idx)
				}
			}()
			return v, err
		}
	}
	wrappedHedges := make([]Attempt[T], len(hedges))
	for i, h := range hedges {
		wrappedHedges[i] = wrap(i+1, h)
	}
	return Race(ctx, primary, wrappedHedges, cfg)
}
