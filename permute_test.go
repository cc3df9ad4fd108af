/*
 * Copyright 2026 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package jitlink

import (
	`fmt`
	`sort`
	`testing`

	`github.com/brianvoe/gofakeit/v6`
	`github.com/davecgh/go-spew/spew`
	`github.com/stretchr/testify/assert`
	`github.com/stretchr/testify/require`
	`gonum.org/v1/gonum/graph`
	`gonum.org/v1/gonum/graph/simple`
	`gonum.org/v1/gonum/graph/topo`
	`gonum.org/v1/gonum/stat/combin`

	`github.com/cloudwego/jitlink/internal/trampoline`
)

const (
	_CallSize = 5
)

type callGraph struct {
	*simple.DirectedGraph
	names []string
}

// newCallGraph builds a random acyclic call graph of n functions, where
// function i only calls functions with a larger index.
func newCallGraph(faker *gofakeit.Faker, n int) *callGraph {
	g := &callGraph{DirectedGraph: simple.NewDirectedGraph()}
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
		g.names = append(g.names, fmt.Sprintf("%s_%d", faker.Noun(), i))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if faker.Bool() {
				g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
			}
		}
	}
	return g
}

func (self *callGraph) callees(i int) []int {
	var ret []int
	for _, n := range graph.NodesOf(self.From(int64(i))) {
		ret = append(ret, int(n.ID()))
	}
	sort.Ints(ret)
	return ret
}

// object emits a function that calls every callee in turn, then returns.
func (self *callGraph) object(i int) Object {
	callees := self.callees(i)
	obj := Object{Name: self.names[i], Kind: Function}
	for k, j := range callees {
		obj.Bytes = append(obj.Bytes, 0xe8, 0, 0, 0, 0)
		obj.Relocs = append(obj.Relocs, Reference {
			Offset : k*_CallSize + 1,
			Target : self.names[j],
			Kind   : X86CallPCRel4,
			Addend : -4,
		})
	}
	obj.Bytes = append(obj.Bytes, 0xc3)
	return obj
}

// landing follows a call at site and, if it lands on a trampoline, the cell
// of that trampoline.
func landing(t *testing.T, mem *SimulatedMemory, site uintptr) uintptr {
	buf, err := mem.Load(site, 4)
	require.NoError(t, err)
	dst := X86CallPCRel4.Decode(buf, site, -4)
	if stub, err := mem.Load(dst, trampoline.StubSize); err == nil && trampoline.AMD64.Matches(stub) {
		return trampoline.AMD64.Target(stub)
	}
	return dst
}

func testDefinitionOrders(t *testing.T, direct bool) {
	const n = 5
	g := newCallGraph(gofakeit.New(42), n)
	_, err := topo.Sort(g)
	require.NoError(t, err, "call graph must be acyclic")

	/* every order of definition links the same graph */
	for _, perm := range combin.Permutations(n, n) {
		mem := NewSimulatedMemory()
		mod := New(WithMemory(mem), WithMinRegionSize(4096), WithDirectPatch(direct))
		unit, err := mod.OpenBuildUnit()
		require.NoError(t, err)
		for _, i := range perm {
			_, err = unit.DefineObject(g.object(i))
			require.NoError(t, err, "order %v", perm)
		}
		addrs, err := unit.Finalize()
		require.NoError(t, err, "order %v", perm)

		/* every call site reaches its callee */
		for i := 0; i < n; i++ {
			for k, j := range g.callees(i) {
				site := addrs[g.names[i]] + uintptr(k*_CallSize+1)
				assert.Equal(t, addrs[g.names[j]], landing(t, mem, site), "order %v, %s -> %s\n%s", perm, g.names[i], g.names[j], spew.Sdump(addrs))
			}
		}
		require.NoError(t, mod.Close())
		assert.Zero(t, mem.Live())
	}
}

func TestLink_DefinitionOrderDoesNotMatter(t *testing.T) {
	t.Run("direct", func(t *testing.T) { testDefinitionOrders(t, true) })
	t.Run("trampoline", func(t *testing.T) { testDefinitionOrders(t, false) })
}

func TestLink_MutualRecursion(t *testing.T) {
	mod, mem := newTestModule(t, WithDirectPatch(false))
	unit, err := mod.OpenBuildUnit()
	require.NoError(t, err)
	define(t, unit, "even", Function, mainCode, callTo("odd"))
	define(t, unit, "odd", Function, mainCode, callTo("even"))
	addrs, err := unit.Finalize()
	require.NoError(t, err)
	assert.Equal(t, addrs["odd"], landing(t, mem, addrs["even"]+1))
	assert.Equal(t, addrs["even"], landing(t, mem, addrs["odd"]+1))
}
