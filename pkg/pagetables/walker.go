// Copyright 2024 The Pagewalk Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pagetables

// cursor is one suspended ancestor position: a table, the level it
// sits at, and the next entry index to examine.
type cursor struct {
	table uintptr
	level uint
	index uint
}

// walkerState is the suspended traversal proper: the ancestor chain
// from the root down to the current table, plus the virtual address
// the walk has reached. Its size is fixed by maxLevels.
type walkerState struct {
	active bool
	depth  int
	vaddr  uint64
	stack  [maxLevels]cursor
}

// TraverseContext carries one ranged traversal. The caller owns it,
// fills the public fields, and passes it to BeginTraversal; the
// engine keeps all scratch state inside it, so concurrent traversals
// need nothing more than separate contexts.
type TraverseContext struct {
	// Root is the root table of the walk.
	Root uintptr

	// Start and End bound the walk to virtual addresses in
	// [Start, End). Mappings straddling Start are reported with their
	// full extent.
	Start uint64
	End   uint64

	// CollectEmpty asks the walk to report tables found to contain no
	// valid descriptors. A table is checked once, when the walk
	// leaves it; the root is never reported.
	CollectEmpty bool

	// EmptyTables receives collected empty tables, up to its length.
	// NumEmpty is how many were stored.
	EmptyTables []uintptr
	NumEmpty    int

	// Done is set once the walk has passed End or exhausted the root
	// table. HasError is additionally set if the walk stopped on a
	// corrupted descriptor.
	Done     bool
	HasError bool

	walker walkerState
}

// BeginTraversal starts a ranged traversal over [ctx.Start, ctx.End).
// The context must not already carry an active traversal.
func (g *Geometry) BeginTraversal(ctx *TraverseContext) {
	w := &ctx.walker
	if w.active {
		panic("pagetables: BeginTraversal on an active context")
	}
	ctx.NumEmpty = 0
	ctx.Done = false
	ctx.HasError = false

	w.active = true
	w.depth = 0
	w.vaddr = ctx.Start
	w.stack[0] = cursor{
		table: ctx.Root,
		level: 0,
		index: g.IndexOf(ctx.Start, 0),
	}
	if ctx.Start >= ctx.End || !g.IsCanonical(ctx.Start) {
		ctx.Done = true
	}
}

// NextMapping resumes the traversal and returns the next mapped
// region, in ascending virtual-address order. It returns false once
// the range is exhausted or the walk stopped on an error; check
// ctx.HasError to tell the two apart. No memory is allocated; the
// walk position persists in ctx between calls.
func (g *Geometry) NextMapping(ctx *TraverseContext) (VMMap, bool) {
	w := &ctx.walker
	if !w.active {
		panic("pagetables: NextMapping without BeginTraversal")
	}

	for !ctx.Done {
		cur := &w.stack[w.depth]

		// Leaving an exhausted table. Empty-table collection happens
		// here and only here: a table is fully known only once every
		// entry has been examined.
		if cur.index >= g.entries[cur.level] {
			if w.depth == 0 {
				ctx.Done = true
				break
			}
			if ctx.CollectEmpty {
				g.collectIfEmpty(ctx, cur.table, cur.level)
			}
			w.depth--
			w.stack[w.depth].index++
			continue
		}

		if w.vaddr >= ctx.End {
			ctx.Done = true
			break
		}

		raw := entryStorage(cur.table, cur.index).Get()
		typ, err := g.Classify(raw, cur.level)
		if err != nil {
			ctx.Done = true
			ctx.HasError = true
			break
		}

		switch typ {
		case DescriptorInvalid:
			w.vaddr = g.moveRight(w.vaddr, cur.level)
			cur.index++

		case DescriptorTable:
			if w.depth+1 >= int(g.numLevels) {
				ctx.Done = true
				ctx.HasError = true
				break
			}
			next := g.NextTable(raw)
			w.depth++
			w.stack[w.depth] = cursor{
				table: next,
				level: cur.level + 1,
				index: g.IndexOf(w.vaddr, cur.level+1),
			}

		default:
			m := g.vmMap(raw, cur.level, w.vaddr, entryPointer(cur.table, cur.index))
			w.vaddr = g.moveRight(w.vaddr, cur.level)
			cur.index++
			return m, true
		}
	}
	return VMMap{}, false
}

// EndTraversal finishes a traversal and clears the context's scratch
// state. It may be called before the walk is exhausted.
func (g *Geometry) EndTraversal(ctx *TraverseContext) {
	w := &ctx.walker
	if !w.active {
		panic("pagetables: EndTraversal without BeginTraversal")
	}
	*w = walkerState{}
	ctx.Done = true
}

// collectIfEmpty scans a just-exhausted table and records it if no
// entry is valid. The scan rereads the table; descriptors may have
// changed since the walk passed them, and only the current contents
// decide emptiness.
func (g *Geometry) collectIfEmpty(ctx *TraverseContext, table uintptr, level uint) {
	for i := uint(0); i < g.entries[level]; i++ {
		if descValid.Extract(entryStorage(table, i).Get()) != 0 {
			return
		}
	}
	if ctx.NumEmpty < len(ctx.EmptyTables) {
		ctx.EmptyTables[ctx.NumEmpty] = table
		ctx.NumEmpty++
	}
}
