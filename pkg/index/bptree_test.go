package index

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// leafChain walks the tree to the leftmost leaf, then forward through the
// leaf links, returning every key in chain order.
func leafChain(t *BPlusTree) []float64 {
	node := t.root
	for !node.isLeaf {
		node = node.children[0]
	}

	keys := make([]float64, 0)
	for ; node != nil; node = node.nextLeaf {
		keys = append(keys, node.keys...)
	}
	return keys
}

func leavesAtEqualDepth(node *bptNode, depth int, depths map[int]bool) {
	if node.isLeaf {
		depths[depth] = true
		return
	}
	for _, child := range node.children {
		leavesAtEqualDepth(child, depth+1, depths)
	}
}

func TestBPlusTreeLeafChainStaysSorted(t *testing.T) {
	insertions := [][]float64{
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		{12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1},
		{5, 1, 9, 3, 7, 2, 8, 4, 6, 10, 0, 11, 13, 12, 15, 14},
	}

	for _, keys := range insertions {
		tree := NewBPlusTree()
		for i, k := range keys {
			tree.Insert(k, i)
		}

		chain := leafChain(tree)
		require.Len(t, chain, len(keys))
		assert.True(t, sort.Float64sAreSorted(chain), "leaf chain out of order: %v", chain)
	}
}

func TestBPlusTreeLeavesAtEqualDepth(t *testing.T) {
	tree := NewBPlusTree()
	for i := 0; i < 64; i++ {
		tree.Insert(float64(i*7%64), i)
	}

	depths := make(map[int]bool)
	leavesAtEqualDepth(tree.root, 0, depths)
	assert.Len(t, depths, 1, "leaves at unequal depths: %v", depths)
}

func TestBPlusTreeFind(t *testing.T) {
	tree := NewBPlusTree()
	for i := 0; i < 32; i++ {
		tree.Insert(float64(i), i*100)
	}

	for i := 0; i < 32; i++ {
		v, ok := tree.Find(float64(i))
		require.Truef(t, ok, "key %d not found", i)
		assert.Equal(t, i*100, v)
	}

	_, ok := tree.Find(99)
	assert.False(t, ok)
}

func TestBPlusTreeRange(t *testing.T) {
	tree := NewBPlusTree()
	for i := 0; i < 50; i++ {
		tree.Insert(float64(i), i)
	}

	got := tree.Range(10, 20)
	sort.Ints(got)
	want := make([]int, 0, 11)
	for i := 10; i <= 20; i++ {
		want = append(want, i)
	}
	assert.Equal(t, want, got)

	assert.Empty(t, tree.Range(100, 200))
	assert.Len(t, tree.Range(-10, 1000), 50)
}

func TestBPlusTreeRangeAgainstBruteForce(t *testing.T) {
	keys := []float64{42, 7, 19, 3, 88, 19, 42, 56, 1, 77, 23, 8, 64, 42, 90, 15}
	tree := NewBPlusTree()
	for i, k := range keys {
		tree.Insert(k, i)
	}

	bounds := []struct{ lo, hi float64 }{
		{0, 100}, {19, 42}, {20, 21}, {42, 42}, {90, 0},
	}
	for _, b := range bounds {
		want := make([]int, 0)
		for i, k := range keys {
			if k >= b.lo && k <= b.hi {
				want = append(want, i)
			}
		}
		got := tree.Range(b.lo, b.hi)
		sort.Ints(got)
		sort.Ints(want)
		assert.Equalf(t, want, got, "range [%v,%v]", b.lo, b.hi)
	}
}

func TestBPlusTreeDuplicateKeys(t *testing.T) {
	tree := NewBPlusTree()
	for i := 0; i < 10; i++ {
		tree.Insert(5, i)
	}

	got := tree.Range(5, 5)
	assert.Len(t, got, 10, "all duplicate entries must be kept")
}

func TestBPlusTreeClear(t *testing.T) {
	tree := NewBPlusTree()
	for i := 0; i < 20; i++ {
		tree.Insert(float64(i), i)
	}
	tree.Clear()

	assert.Empty(t, tree.Range(-100, 100))
	_, ok := tree.Find(1)
	assert.False(t, ok)
}
