package smt

import "fmt"

// SkolemID names the purpose for which a skolem is introduced. Skolems are
// cached per (purpose, cache key), so asking twice for the same purpose and
// key yields the same symbol.
type SkolemID int

const (
	// SkolemBagsCount is the value variable introduced for a registered
	// (bag.count elem bag) term.
	SkolemBagsCount SkolemID = iota
	// SkolemBagsChoose is the per-element-type choice function used to
	// eliminate bag.choose.
	SkolemBagsChoose
	// SkolemBagsCard is the value variable introduced for a bag.card term.
	SkolemBagsCard
	// SkolemPurify is a purification variable standing for a whole term.
	SkolemPurify
	// SkolemOpaqueFun replaces a function to synthesize during solution
	// checking.
	SkolemOpaqueFun
)

var skolemPrefixes = map[SkolemID]string{
	SkolemBagsCount:  "bags.count",
	SkolemBagsChoose: "bags.choose",
	SkolemBagsCard:   "bags.card",
	SkolemPurify:     "purify",
	SkolemOpaqueFun:  "opaque",
}

// SkolemManager mints fresh uninterpreted symbols. A skolem is unique per
// (purpose, cache key) pair; distinct keys always yield distinct symbols.
type SkolemManager struct {
	nm    *NodeManager
	cache map[skolemKey]*Node
	count int
}

type skolemKey struct {
	id  SkolemID
	key *Node
}

// NewSkolemManager creates a skolem manager over the given node manager.
func NewSkolemManager(nm *NodeManager) *SkolemManager {
	return &SkolemManager{nm: nm, cache: make(map[skolemKey]*Node)}
}

// MkSkolemFunction returns the skolem of the given purpose and type, cached
// on the cache-key node. The key typically encodes the term or type the
// skolem stands for.
func (sm *SkolemManager) MkSkolemFunction(id SkolemID, typ *Type, key *Node) *Node {
	k := skolemKey{id: id, key: key}
	if s, ok := sm.cache[k]; ok {
		return s
	}
	name := fmt.Sprintf("@%s.%d", skolemPrefixes[id], sm.count)
	sm.count++
	s := sm.nm.mkSkolem(name, typ)
	sm.cache[k] = s
	return s
}

// MkPurifySkolem returns the purification skolem standing for the term n.
func (sm *SkolemManager) MkPurifySkolem(n *Node) *Node {
	return sm.MkSkolemFunction(SkolemPurify, n.Type(), n)
}
