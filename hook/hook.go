// Package hook implements per-round narrowing of the candidate definitions
// the assembler may use. Builders register hook functions during a round;
// the engine applies them in registration order to the declared candidate
// names before assembling the model input. Hooks can only narrow: names a
// hook returns that were not among its input are dropped, and the surviving
// names keep their declaration order.
package hook

// Candidates holds the definition names eligible for assembly, grouped by
// aspect. A nil slice returned from a hook keeps every candidate of that
// aspect; an empty non-nil slice removes them all.
type Candidates struct {
	Systems   []string
	Variables []string
	Tools     []string
}

// Input is what each hook receives: the round index and the candidates as
// narrowed by the hooks before it.
type Input struct {
	Round int
	Candidates
}

// Func inspects the current candidates and returns the subset to keep.
type Func func(in Input) Candidates

// Pipeline accumulates the hooks of one round.
type Pipeline struct {
	fns []Func
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Reset drops all registered hooks. The engine calls this at the start of
// every round; hooks do not persist.
func (p *Pipeline) Reset() {
	p.fns = p.fns[:0]
}

// Register appends a hook to the pipeline.
func (p *Pipeline) Register(fn Func) {
	if fn == nil {
		return
	}
	p.fns = append(p.fns, fn)
}

// Len reports the number of registered hooks.
func (p *Pipeline) Len() int { return len(p.fns) }

// Apply runs the hooks in registration order. Each hook sees the candidates
// as narrowed by its predecessors.
func (p *Pipeline) Apply(round int, c Candidates) Candidates {
	for _, fn := range p.fns {
		keep := fn(Input{Round: round, Candidates: c})
		c = Candidates{
			Systems:   narrow(c.Systems, keep.Systems),
			Variables: narrow(c.Variables, keep.Variables),
			Tools:     narrow(c.Tools, keep.Tools),
		}
	}
	return c
}

// narrow filters cur to the names present in keep, preserving cur's order.
// A nil keep leaves cur untouched.
func narrow(cur, keep []string) []string {
	if keep == nil {
		return cur
	}
	set := make(map[string]struct{}, len(keep))
	for _, n := range keep {
		set[n] = struct{}{}
	}
	var out []string
	for _, n := range cur {
		if _, ok := set[n]; ok {
			out = append(out, n)
		}
	}
	return out
}
