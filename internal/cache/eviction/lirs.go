package eviction

// lirsNode is a node tracked by [LIRSPolicy]. It may belong to the stack S,
// the queue Q, both, or neither (a just-created node belongs to at least
// one). State transitions are asserted in setState.
type lirsNode[K comparable] struct {
	tok   Token[K]
	state RecencyState

	sPrev, sNext *lirsNode[K]
	inS          bool

	qPrev, qNext *lirsNode[K]
	inQ          bool
}

// RecencyState is the LIRS recency class of a tracked entry, per spec §4.1.
type RecencyState int

const (
	// HIRResident is the initial state for a newly admitted cold entry.
	HIRResident RecencyState = iota
	// LIRResident marks a hot entry that is never evicted while it holds
	// this state.
	LIRResident
	// HIRNonResident marks a ghost: the entry's value has been evicted from
	// the segment, but LIRS still remembers it was recently cold-resident
	// so a re-reference can promote it directly to LIR.
	HIRNonResident
)

// String implements fmt.Stringer.
func (s RecencyState) String() string {
	switch s {
	case HIRResident:
		return "HIR_RESIDENT"
	case LIRResident:
		return "LIR_RESIDENT"
	case HIRNonResident:
		return "HIR_NONRESIDENT"
	default:
		return "unknown"
	}
}

// LIRSPolicy implements the LIRS algorithm (Jiang & Zhang, 2002) with a
// bounded resident HIR set, per spec §4.1: an ordered stack S of (hash,key)
// identities pruned to keep an LIR entry at its bottom, plus a FIFO queue Q
// of HIR-resident entries.
type LIRSPolicy[K comparable] struct {
	BatchPolicy

	nodes map[Token[K]]*lirsNode[K]

	sHead, sTail *lirsNode[K] // S: top = sHead.sNext, bottom = sTail.sPrev
	qHead, qTail *lirsNode[K] // Q: front = qHead.qNext, back = qTail.qPrev

	lirBudget, hirBudget int
	lirCount, qLen        int
}

// NewLIRS constructs a LIRS policy sized for capacity resident entries: an
// LIR budget of approximately 90% of capacity and an HIR budget of the
// remainder, never less than 2 (per spec §4.1 — the two budgets may sum to
// slightly more than capacity at small sizes, which is intentional).
func NewLIRS[K comparable](capacity int) *LIRSPolicy[K] {
	lirBudget := int(0.9 * float64(capacity))
	if lirBudget < 1 {
		lirBudget = 1
	}
	hirBudget := capacity - lirBudget
	if hirBudget < 2 {
		hirBudget = 2
	}

	sHead, sTail := &lirsNode[K]{}, &lirsNode[K]{}
	sHead.sNext, sTail.sPrev = sTail, sHead
	qHead, qTail := &lirsNode[K]{}, &lirsNode[K]{}
	qHead.qNext, qTail.qPrev = qTail, qHead

	return &LIRSPolicy[K]{
		nodes:     make(map[Token[K]]*lirsNode[K]),
		sHead:     sHead,
		sTail:     sTail,
		qHead:     qHead,
		qTail:     qTail,
		lirBudget: lirBudget,
		hirBudget: hirBudget,
	}
}

// StateOf reports the tracked recency state of t, for tests and diagnostics.
func (p *LIRSPolicy[K]) StateOf(t Token[K]) (RecencyState, bool) {
	n, ok := p.nodes[t]
	if !ok {
		return 0, false
	}
	return n.state, true
}

// InS reports whether t currently holds S membership, for tests exercising
// the hit-to-LIR open question of spec §9.
func (p *LIRSPolicy[K]) InS(t Token[K]) bool {
	n, ok := p.nodes[t]
	return ok && n.inS
}

// QFront returns the token at the front of Q (the next HIR-resident entry
// that would be evicted under admission pressure), for tests.
func (p *LIRSPolicy[K]) QFront() (Token[K], bool) {
	front := p.qHead.qNext
	if front == p.qTail {
		var zero Token[K]
		return zero, false
	}
	return front.tok, true
}

// Strategy identifies this policy as LIRS.
func (p *LIRSPolicy[K]) Strategy() Strategy { return LIRS }

// OnMiss admits a newly created entry e, following spec §4.1's Miss rule:
//
//	while LIR count below budget, add e as LIR to S.
//	Otherwise, if Q not full, append e to Q.
//	Otherwise, remove the head of Q, transition it HIR_RESIDENT->HIR_NONRESIDENT
//	and evict from the segment; push e to top of S; if e was previously
//	non-resident in S, promote to LIR and demote the bottommost LIR;
//	otherwise append e to Q.
func (p *LIRSPolicy[K]) OnMiss(t Token[K], remove Remover[K]) {
	n, tracked := p.nodes[t]
	wasNonResident := tracked && n.state == HIRNonResident

	if p.lirCount < p.lirBudget {
		if n == nil {
			n = &lirsNode[K]{tok: t}
			p.nodes[t] = n
		} else if n.inS {
			p.unlinkS(n)
		}
		n.state = LIRResident
		p.pushSTop(n)
		p.lirCount++
		return
	}

	if p.qLen < p.hirBudget {
		if n == nil {
			n = &lirsNode[K]{tok: t}
			p.nodes[t] = n
		}
		n.state = HIRResident
		if !n.inS {
			p.pushSTop(n)
		}
		p.pushQBack(n)
		return
	}

	if head := p.qHead.qNext; head != p.qTail {
		p.unlinkQ(head)
		p.setState(head, HIRResident, HIRNonResident)
		remove(head.tok)
	}

	if n == nil {
		n = &lirsNode[K]{tok: t}
		p.nodes[t] = n
	} else if n.inS {
		p.unlinkS(n)
	}
	p.pushSTop(n)

	if wasNonResident {
		n.state = LIRResident
		p.lirCount++
		p.demoteBottomLIRAndPrune()
	} else {
		n.state = HIRResident
		p.pushQBack(n)
	}
}

// OnRemove forgets t entirely: unlinked from both S and Q and dropped from
// the tracking map. Idempotent.
func (p *LIRSPolicy[K]) OnRemove(t Token[K]) {
	n, ok := p.nodes[t]
	if !ok {
		return
	}
	if n.inS {
		p.unlinkS(n)
	}
	if n.inQ {
		p.unlinkQ(n)
	}
	if n.state == LIRResident {
		p.lirCount--
	}
	delete(p.nodes, t)
}

// Drain applies buffered hits to S and Q in buffer order, per spec §4.1.
func (p *LIRSPolicy[K]) Drain(hits []Token[K], remove Remover[K]) {
	for _, t := range hits {
		n, ok := p.nodes[t]
		if !ok {
			continue
		}
		switch n.state {
		case LIRResident:
			p.hitLIR(n)
		case HIRResident:
			p.hitHIR(n)
		case HIRNonResident:
			// A buffered hit for a ghost means the entry was evicted after
			// the hit was recorded and has not been re-admitted (OnMiss
			// would have made it resident again); there is nothing to update.
		}
	}
}

// hitLIR implements: "move e to the top of S; then from the bottom of S
// evict any non-LIR entries, stopping at the first LIR."
func (p *LIRSPolicy[K]) hitLIR(n *lirsNode[K]) {
	if n.inS {
		p.unlinkS(n)
	}
	p.pushSTop(n)
	p.pruneNonLIRFromBottom()
}

// hitHIR implements the HIR-resident hit rule of spec §4.1, including the
// open question noted in spec §9: e is removed from Q unconditionally before
// S membership is tested. When e was in S it is promoted to LIR; when it was
// not, it is pushed back onto S's top and re-appended at Q's tail, so the net
// effect is to move e to the back of Q. This is implemented literally.
func (p *LIRSPolicy[K]) hitHIR(n *lirsNode[K]) {
	inS := n.inS
	if n.inQ {
		p.unlinkQ(n)
	}
	if inS {
		p.unlinkS(n)
		p.setState(n, HIRResident, LIRResident)
		p.lirCount++
		p.pushSTop(n)
		p.demoteBottomLIRAndPrune()
		return
	}
	p.pushSTop(n)
	p.pushQBack(n)
}

// demoteBottomLIRAndPrune implements bottom-LIR demotion: the bottommost LIR
// entry in S becomes HIR_RESIDENT and is appended to Q, then S is pruned at
// the bottom until the next LIR entry.
func (p *LIRSPolicy[K]) demoteBottomLIRAndPrune() {
	bottom := p.sBottom()
	if bottom == nil || bottom.state != LIRResident {
		return
	}
	p.setState(bottom, LIRResident, HIRResident)
	p.lirCount--
	p.pushQBack(bottom)
	p.pruneNonLIRFromBottom()
}

// pruneNonLIRFromBottom removes consecutive non-LIR entries from the bottom
// of S, stopping at (and keeping) the first LIR-resident entry. Ghosts
// (HIR_NONRESIDENT) pruned this way are forgotten entirely; HIR_RESIDENT
// entries pruned this way simply lose their S membership — they remain
// resident and tracked via Q.
func (p *LIRSPolicy[K]) pruneNonLIRFromBottom() {
	for {
		bottom := p.sBottom()
		if bottom == nil || bottom.state == LIRResident {
			return
		}
		p.unlinkS(bottom)
		if bottom.state == HIRNonResident {
			delete(p.nodes, bottom.tok)
		}
	}
}

func (p *LIRSPolicy[K]) setState(n *lirsNode[K], from, to RecencyState) {
	if n.state != from {
		panic(invariantViolation(n.tok, from, to, n.state))
	}
	n.state = to
}

func (p *LIRSPolicy[K]) sBottom() *lirsNode[K] {
	if p.sTail.sPrev == p.sHead {
		return nil
	}
	return p.sTail.sPrev
}

func (p *LIRSPolicy[K]) pushSTop(n *lirsNode[K]) {
	n.sPrev = p.sHead
	n.sNext = p.sHead.sNext
	p.sHead.sNext.sPrev = n
	p.sHead.sNext = n
	n.inS = true
}

func (p *LIRSPolicy[K]) unlinkS(n *lirsNode[K]) {
	n.sPrev.sNext = n.sNext
	n.sNext.sPrev = n.sPrev
	n.sPrev, n.sNext = nil, nil
	n.inS = false
}

func (p *LIRSPolicy[K]) pushQBack(n *lirsNode[K]) {
	n.qNext = p.qTail
	n.qPrev = p.qTail.qPrev
	p.qTail.qPrev.qNext = n
	p.qTail.qPrev = n
	if !n.inQ {
		p.qLen++
	}
	n.inQ = true
}

func (p *LIRSPolicy[K]) unlinkQ(n *lirsNode[K]) {
	n.qPrev.qNext = n.qNext
	n.qNext.qPrev = n.qPrev
	n.qPrev, n.qNext = nil, nil
	n.inQ = false
	p.qLen--
}
