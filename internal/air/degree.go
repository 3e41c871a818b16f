package air

import "sealedbid/internal/columns"

// Stats describes the shape of the constraint system.
type Stats struct {
	Constraints int
	MaxDegree   int
}

// Degree evaluates the AIR symbolically, tracking only the polynomial degree of
// each assertion in the trace columns and row selectors. Public values and
// constants have degree zero.
func Degree() Stats {
	one := func(int) int { return 1 }
	db := &degreeBuilder{}
	db.local = columns.Map(&db.local, one)
	db.next = columns.Map(&db.next, one)
	Eval[int](db)
	return db.stats
}

type degreeBuilder struct {
	local, next columns.Row[int]
	public      columns.PublicValues[int]
	stats       Stats
}

func (d *degreeBuilder) Add(a, b int) int  { return max(a, b) }
func (d *degreeBuilder) Sub(a, b int) int  { return max(a, b) }
func (d *degreeBuilder) Mul(a, b int) int  { return a + b }
func (d *degreeBuilder) Const(uint64) int  { return 0 }
func (d *degreeBuilder) IsFirstRow() int   { return 1 }
func (d *degreeBuilder) IsLastRow() int    { return 1 }
func (d *degreeBuilder) IsTransition() int { return 1 }
func (d *degreeBuilder) AssertZero(_ string, e int) {
	d.stats.Constraints++
	d.stats.MaxDegree = max(d.stats.MaxDegree, e)
}

func (d *degreeBuilder) Local() *columns.Row[int]           { return &d.local }
func (d *degreeBuilder) Next() *columns.Row[int]            { return &d.next }
func (d *degreeBuilder) Public() *columns.PublicValues[int] { return &d.public }
