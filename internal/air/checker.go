// checker.go - Concrete evaluation of the AIR over Goldilocks values.
//
// The checker is the debugging backend: it evaluates Eval on every row pair of
// a generated trace and reports which constraint classes fail on which rows.

package air

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/consensys/gnark-crypto/field/goldilocks"
	"golang.org/x/sync/errgroup"

	"sealedbid/internal/columns"
)

// ErrUnsatisfied is matched by every *ViolationError.
var ErrUnsatisfied = errors.New("air: constraints not satisfied")

// Trace is read access to a trace matrix.
type Trace interface {
	Height() int
	View(i int) columns.Row[goldilocks.Element]
}

// Violation names a constraint that evaluated to non-zero on a row.
type Violation struct {
	Row        int
	Constraint string
}

// ViolationError lists the violations found by Check, ordered by row.
type ViolationError struct {
	Violations []Violation
	Truncated  bool
}

func (e *ViolationError) Error() string {
	first := e.Violations[0]
	more := ""
	if e.Truncated {
		more = "+"
	}
	return fmt.Sprintf("air: %d%s constraint violation(s), first %s at row %d",
		len(e.Violations), more, first.Constraint, first.Row)
}

func (e *ViolationError) Unwrap() error { return ErrUnsatisfied }

// Checker evaluates the AIR on concrete traces.
type Checker struct {
	// Workers bounds the number of goroutines; zero means GOMAXPROCS.
	Workers int
	// MaxViolations caps the report; zero means 64.
	MaxViolations int
}

// Check evaluates every row i against row (i+1) mod height, with transition
// constraints disabled on the last row. It returns nil when the trace
// satisfies the AIR and a *ViolationError otherwise.
func (c *Checker) Check(ctx context.Context, t Trace, pub *columns.PublicValues[goldilocks.Element]) error {
	height := t.Height()
	if height == 0 {
		return errors.New("air: empty trace")
	}
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > height {
		workers = height
	}
	limit := c.MaxViolations
	if limit <= 0 {
		limit = 64
	}

	chunk := (height + workers - 1) / workers
	found := make([][]Violation, workers)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start, end := w*chunk, min((w+1)*chunk, height)
		g.Go(func() error {
			vb := &valueBuilder{public: *pub, limit: limit + 1}
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				vb.reset(t, i, height)
				Eval[goldilocks.Element](vb)
				if len(vb.violations) > limit {
					break
				}
			}
			found[w] = vb.violations
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var all []Violation
	for _, v := range found {
		all = append(all, v...)
	}
	if len(all) == 0 {
		return nil
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Row < all[j].Row })
	verr := &ViolationError{Violations: all}
	if len(all) > limit {
		verr.Violations, verr.Truncated = all[:limit], true
	}
	return verr
}

// valueBuilder evaluates constraints on concrete field elements.
type valueBuilder struct {
	local, next             columns.Row[goldilocks.Element]
	public                  columns.PublicValues[goldilocks.Element]
	first, last, transition goldilocks.Element
	row                     int
	seen                    map[string]bool
	violations              []Violation
	limit                   int
}

func (v *valueBuilder) reset(t Trace, i, height int) {
	v.row = i
	v.local = t.View(i)
	v.next = t.View((i + 1) % height)
	v.first = flag(i == 0)
	v.last = flag(i == height-1)
	v.transition = flag(i != height-1)
	v.seen = make(map[string]bool)
}

func flag(b bool) goldilocks.Element {
	var e goldilocks.Element
	if b {
		e.SetOne()
	}
	return e
}

func (v *valueBuilder) Add(a, b goldilocks.Element) goldilocks.Element {
	var r goldilocks.Element
	r.Add(&a, &b)
	return r
}

func (v *valueBuilder) Sub(a, b goldilocks.Element) goldilocks.Element {
	var r goldilocks.Element
	r.Sub(&a, &b)
	return r
}

func (v *valueBuilder) Mul(a, b goldilocks.Element) goldilocks.Element {
	var r goldilocks.Element
	r.Mul(&a, &b)
	return r
}

func (v *valueBuilder) Const(x uint64) goldilocks.Element {
	return goldilocks.NewElement(x)
}

func (v *valueBuilder) Local() *columns.Row[goldilocks.Element] { return &v.local }
func (v *valueBuilder) Next() *columns.Row[goldilocks.Element]  { return &v.next }

func (v *valueBuilder) Public() *columns.PublicValues[goldilocks.Element] { return &v.public }

func (v *valueBuilder) IsFirstRow() goldilocks.Element   { return v.first }
func (v *valueBuilder) IsLastRow() goldilocks.Element    { return v.last }
func (v *valueBuilder) IsTransition() goldilocks.Element { return v.transition }

func (v *valueBuilder) AssertZero(name string, e goldilocks.Element) {
	if e.IsZero() || v.seen[name] || len(v.violations) >= v.limit {
		return
	}
	v.seen[name] = true
	v.violations = append(v.violations, Violation{Row: v.row, Constraint: name})
}
