package smt

// Context is a backtracking scope stack. All speculative solver state lives
// in context-dependent structures registered with a Context; Push opens a new
// decision level and Pop atomically reverts every registered structure to its
// state at the matching Push. Popping is the only sanctioned way to discard
// speculative work.
//
// Push and Pop are O(1) per registered structure: structures record a
// checkpoint (level, size-or-value) only when first modified within a level,
// so restoring a level undoes at most the modifications made in it.
type Context struct {
	level int
	objs  []contextual
}

// contextual is implemented by context-dependent structures. restore reverts
// every checkpoint taken at or above the given level.
type contextual interface {
	restore(level int)
}

// NewContext creates a context at level 0.
func NewContext() *Context {
	return &Context{}
}

// Level returns the current decision level.
func (c *Context) Level() int { return c.level }

// Push opens a new decision level.
func (c *Context) Push() { c.level++ }

// Pop closes the current decision level, reverting every registered
// structure. Popping level 0 is an internal misuse and panics.
func (c *Context) Pop() {
	if c.level == 0 {
		panic("smt: Pop on context at level 0")
	}
	for _, o := range c.objs {
		o.restore(c.level)
	}
	c.level--
}

func (c *Context) register(o contextual) {
	c.objs = append(c.objs, o)
}

type listSave struct {
	level int
	size  int
}

// CDList is a context-dependent append-only list. Elements appended at a
// level are dropped when that level is popped.
type CDList[T any] struct {
	ctx   *Context
	data  []T
	saves []listSave
}

// NewCDList creates a list scoped to ctx.
func NewCDList[T any](ctx *Context) *CDList[T] {
	l := &CDList[T]{ctx: ctx}
	ctx.register(l)
	return l
}

// Append adds v at the current level.
func (l *CDList[T]) Append(v T) {
	if n := len(l.saves); n == 0 || l.saves[n-1].level < l.ctx.level {
		l.saves = append(l.saves, listSave{level: l.ctx.level, size: len(l.data)})
	}
	l.data = append(l.data, v)
}

// Size returns the current number of elements.
func (l *CDList[T]) Size() int { return len(l.data) }

// Get returns the i-th element.
func (l *CDList[T]) Get(i int) T { return l.data[i] }

// Slice returns a copy of the current contents.
func (l *CDList[T]) Slice() []T {
	return append([]T(nil), l.data...)
}

func (l *CDList[T]) restore(level int) {
	for n := len(l.saves); n > 0 && l.saves[n-1].level >= level; n = len(l.saves) {
		l.data = l.data[:l.saves[n-1].size]
		l.saves = l.saves[:n-1]
	}
}

type valSave[T any] struct {
	level int
	val   T
}

// CDVal is a context-dependent value. Assignments made at a level are undone
// when that level is popped.
type CDVal[T any] struct {
	ctx   *Context
	cur   T
	saves []valSave[T]
}

// NewCDVal creates a value scoped to ctx with the given initial value.
func NewCDVal[T any](ctx *Context, initial T) *CDVal[T] {
	v := &CDVal[T]{ctx: ctx, cur: initial}
	ctx.register(v)
	return v
}

// Get returns the current value.
func (v *CDVal[T]) Get() T { return v.cur }

// Set assigns the value at the current level.
func (v *CDVal[T]) Set(val T) {
	if n := len(v.saves); n == 0 || v.saves[n-1].level < v.ctx.level {
		v.saves = append(v.saves, valSave[T]{level: v.ctx.level, val: v.cur})
	}
	v.cur = val
}

func (v *CDVal[T]) restore(level int) {
	for n := len(v.saves); n > 0 && v.saves[n-1].level >= level; n = len(v.saves) {
		v.cur = v.saves[n-1].val
		v.saves = v.saves[:n-1]
	}
}
