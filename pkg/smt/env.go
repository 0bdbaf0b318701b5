package smt

import "go.uber.org/zap"

// Env bundles the collaborators shared by every component of one solver
// instance: the node and skolem managers, the rewriter, the options, the
// backtracking contexts and the resource manager.
//
// Two contexts exist, mirroring the two lifetimes of solver state: the SAT
// context follows the search, pushed and popped as assignments are tried; the
// user context follows user-level push/pop, scoping declarations and
// assertions. Subsolvers get a fresh Env sharing only the node manager, the
// options copy and the parent's resource manager.
type Env struct {
	nm   *NodeManager
	sm   *SkolemManager
	rw   *Rewriter
	opts *Options
	ctx  *Context // SAT context
	uctx *Context // user context
	rm   *ResourceManager
	log  *zap.Logger
}

// NewEnv creates an environment with fresh contexts over the given node
// manager and options.
func NewEnv(nm *NodeManager, opts *Options) *Env {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Env{
		nm:   nm,
		sm:   NewSkolemManager(nm),
		rw:   NewRewriter(nm),
		opts: opts,
		ctx:  NewContext(),
		uctx: NewContext(),
		rm:   NewResourceManager(opts.ResourceLimit),
		log:  log,
	}
}

// NodeManager returns the term manager.
func (e *Env) NodeManager() *NodeManager { return e.nm }

// SkolemManager returns the skolem manager.
func (e *Env) SkolemManager() *SkolemManager { return e.sm }

// Rewrite normalizes n through the environment's rewriter.
func (e *Env) Rewrite(n *Node) *Node { return e.rw.Rewrite(n) }

// Options returns the configuration. Callers must not modify it.
func (e *Env) Options() *Options { return e.opts }

// Context returns the SAT context.
func (e *Env) Context() *Context { return e.ctx }

// UserContext returns the user context.
func (e *Env) UserContext() *Context { return e.uctx }

// ResourceManager returns the resource accounting object.
func (e *Env) ResourceManager() *ResourceManager { return e.rm }

// Logger returns a named trace logger, in the spirit of per-tag trace
// streams.
func (e *Env) Logger(name string) *zap.Logger {
	return e.log.Named(name)
}

// forSubsolver derives the environment of a nested solver instance: fresh
// contexts and managers, copied options, shared resource manager.
func (e *Env) forSubsolver() *Env {
	sub := NewEnv(e.nm, e.opts.clone())
	sub.rm = e.rm
	sub.log = e.log
	return sub
}
