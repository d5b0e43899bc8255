/*
 * // Copyright (c) 2021. Scott Cagno. All rights reserved.
 * // The license can be found in the root of this project; see LICENSE.
 */

// Package bptree implements an in-memory B+Tree ordered map: leaves hold
// the key value pairs and are chained left to right for range scans,
// internal nodes hold routing keys. Inserting an already present key is
// rejected with ErrDuplicateKey; deleting keys is not supported. The tree
// is not safe for concurrent use, a split touches the leaf and possibly
// several ancestors, so callers sharing one across goroutines must wrap
// it with their own lock.
package bptree

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/scottcagno/memindex/pkg/generic/omap"
)

var ErrDuplicateKey = fmt.Errorf("bptree: duplicate key")

// Ordered is the constraint met by any key type the tree can route on
type Ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64 | ~string
}

func compare[K Ordered](a, b K) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

const (
	defaultOrder = orderSize8
	orderSize4   = 4
	orderSize8   = 8
	orderSize16  = 16
	orderSize32  = 32
	orderSize64  = 64
)

// bpNode represents a bpNode of the BPTree. A leaf keeps *entry values in
// its pointer slots and reserves the last slot for the sibling chain; an
// internal bpNode keeps child *bpNode references.
type bpNode[K Ordered, V any] struct {
	numKeys  int
	keys     [defaultOrder - 1]K
	pointers [defaultOrder]unsafe.Pointer
	parent   *bpNode[K, V]
	isLeaf   bool
}

func (n *bpNode[K, V]) hasKey(key K) bool {
	if n.isLeaf {
		for i := 0; i < n.numKeys; i++ {
			if compare(key, n.keys[i]) == 0 {
				return true
			}
		}
	}
	return false
}

// entry represents an entry pointed to by a leaf bpNode
type entry[K Ordered, V any] struct {
	key K
	val V
}

// Entry is an exported key value pair, used for snapshots
type Entry[K Ordered, V any] struct {
	Key K
	Val V
}

// BPTree represents the root of a b+tree
type BPTree[K Ordered, V any] struct {
	root     *bpNode[K, V]
	accesses int
}

// NewBPTree creates and returns a new tree
func NewBPTree[K Ordered, V any]() *BPTree[K, V] {
	return new(BPTree[K, V])
}

// Has returns a boolean indicating weather or not
// the provided key and associated record exists.
func (t *BPTree[K, V]) Has(key K) bool {
	return t.findEntry(key) != nil
}

// Put inserts a new record using the provided key. The key must not
// already exist in the tree; if it does the tree is left unchanged and
// ErrDuplicateKey is returned.
func (t *BPTree[K, V]) Put(key K, value V) error {
	// If the tree is empty, start a new one and return.
	if t.root == nil {
		t.root = startNewTree(key, &entry[K, V]{key, value})
		return nil
	}
	// Find the leaf that would hold the key and make sure
	// the key is not already present.
	leaf := t.findLeaf(key)
	if leaf.hasKey(key) {
		return ErrDuplicateKey
	}
	// Leaf has room for the key, insert into the leaf and return.
	if leaf.numKeys < defaultOrder-1 {
		insertIntoLeaf(leaf, key, &entry[K, V]{key, value})
		return nil
	}
	// Otherwise, insert, split and balance returning the updated root.
	t.root = insertIntoLeafAfterSplitting(t.root, leaf, key, &entry[K, V]{key, value})
	return nil
}

// Get returns the value for a given key if it exists
func (t *BPTree[K, V]) Get(key K) (V, bool) {
	e := t.findEntry(key)
	if e == nil {
		return *new(V), false
	}
	return e.val, true
}

// Min returns the leftmost key and value in the tree
func (t *BPTree[K, V]) Min() (K, V, bool) {
	c := t.findFirstLeaf()
	if c == nil {
		return *new(K), *new(V), false
	}
	e := (*entry[K, V])(c.pointers[0])
	return e.key, e.val, true
}

// Max returns the rightmost key and value in the tree
func (t *BPTree[K, V]) Max() (K, V, bool) {
	c := t.findLastLeaf()
	if c == nil {
		return *new(K), *new(V), false
	}
	e := (*entry[K, V])(c.pointers[c.numKeys-1])
	return e.key, e.val, true
}

// FirstKey returns the smallest key in the tree
func (t *BPTree[K, V]) FirstKey() (K, bool) {
	k, _, ok := t.Min()
	return k, ok
}

// LastKey returns the largest key in the tree
func (t *BPTree[K, V]) LastKey() (K, bool) {
	k, _, ok := t.Max()
	return k, ok
}

// Range takes an iterator function and walks the leaf chain left to
// right, so in ascending key order, as long as the iterator function
// continues to be true. Range is not safe to perform an insert while
// ranging!
func (t *BPTree[K, V]) Range(iter func(key K, value V) bool) {
	for c := t.findFirstLeaf(); c != nil; c = c.nextLeaf() {
		t.accesses++
		for i := 0; i < c.numKeys; i++ {
			e := (*entry[K, V])(c.pointers[i])
			if !iter(e.key, e.val) {
				return
			}
		}
	}
}

// HeadMap returns an ordered snapshot of the portion of the tree whose
// keys are strictly less than toKey
func (t *BPTree[K, V]) HeadMap(toKey K) *omap.OrderedMap[K, V] {
	view := omap.NewOrderedMap[K, V]()
	t.Range(func(key K, value V) bool {
		if compare(key, toKey) >= 0 {
			return false
		}
		view.Set(key, value)
		return true
	})
	return view
}

// TailMap returns an ordered snapshot of the portion of the tree whose
// keys are greater than or equal to fromKey
func (t *BPTree[K, V]) TailMap(fromKey K) *omap.OrderedMap[K, V] {
	view := omap.NewOrderedMap[K, V]()
	t.Range(func(key K, value V) bool {
		if compare(key, fromKey) >= 0 {
			view.Set(key, value)
		}
		return true
	})
	return view
}

// SubMap returns an ordered snapshot of the portion of the tree whose
// keys are in the range fromKey <= key < toKey
func (t *BPTree[K, V]) SubMap(fromKey, toKey K) *omap.OrderedMap[K, V] {
	view := omap.NewOrderedMap[K, V]()
	t.Range(func(key K, value V) bool {
		if compare(key, toKey) >= 0 {
			return false
		}
		if compare(key, fromKey) >= 0 {
			view.Set(key, value)
		}
		return true
	})
	return view
}

// Entries returns an ordered snapshot of all the entries in the tree
func (t *BPTree[K, V]) Entries() []Entry[K, V] {
	entries := make([]Entry[K, V], 0, t.Len())
	t.Range(func(key K, value V) bool {
		entries = append(entries, Entry[K, V]{Key: key, Val: value})
		return true
	})
	return entries
}

// Len returns the number of entries currently in the BPTree
func (t *BPTree[K, V]) Len() int {
	var count int
	for n := t.findFirstLeaf(); n != nil; n = n.nextLeaf() {
		count += n.numKeys
	}
	return count
}

// Accesses returns the number of nodes visited so far across all
// operations. It is only here for performance testing.
func (t *BPTree[K, V]) Accesses() int {
	return t.accesses
}

// String renders the tree as an indented pre-order dump for manual inspection
func (t *BPTree[K, V]) String() string {
	var sb strings.Builder
	sb.WriteString("BPTree\n")
	dumpNode(&sb, t.root, 0)
	return sb.String()
}

func dumpNode[K Ordered, V any](sb *strings.Builder, n *bpNode[K, V], level int) {
	if n == nil {
		return
	}
	sb.WriteString(strings.Repeat("\t", level))
	sb.WriteString("[ .")
	for i := 0; i < n.numKeys; i++ {
		fmt.Fprintf(sb, " %v .", n.keys[i])
	}
	sb.WriteString(" ]\n")
	if !n.isLeaf {
		for i := 0; i <= n.numKeys; i++ {
			dumpNode(sb, (*bpNode[K, V])(n.pointers[i]), level+1)
		}
	}
}

// Close closes and frees the current tree. Calling any method on the
// BPTree after this will most likely result in a panic
func (t *BPTree[K, V]) Close() {
	t.root = nil
}

// startNewTree first insertion case: starts a new tree
func startNewTree[K Ordered, V any](key K, pointer *entry[K, V]) *bpNode[K, V] {
	root := &bpNode[K, V]{isLeaf: true}
	root.keys[0] = key
	root.pointers[0] = unsafe.Pointer(pointer)
	root.numKeys++
	return root
}

// insertIntoNewRoot creates a new root for two subtrees and inserts the
// appropriate key into the new root. This is the only path that makes
// the tree taller.
func insertIntoNewRoot[K Ordered, V any](left *bpNode[K, V], key K, right *bpNode[K, V]) *bpNode[K, V] {
	root := &bpNode[K, V]{}
	root.keys[0] = key
	root.pointers[0] = unsafe.Pointer(left)
	root.pointers[1] = unsafe.Pointer(right)
	root.numKeys++
	left.parent = root
	right.parent = root
	return root
}

// insertIntoParent inserts a new bpNode (leaf or internal bpNode) into the
// tree and returns the root of the tree after insertion is complete
func insertIntoParent[K Ordered, V any](root, left *bpNode[K, V], key K, right *bpNode[K, V]) *bpNode[K, V] {
	// Case: the split reached the top, grow a new root
	if left.parent == nil {
		return insertIntoNewRoot(left, key, right)
	}
	// Find the parents pointer to the left bpNode
	leftIndex := getLeftIndex(left.parent, left)
	// Simple case: the new key fits into the bpNode
	if left.parent.numKeys < defaultOrder-1 {
		return insertIntoNode(root, left.parent, leftIndex, key, right)
	}
	// Harder case: split a bpNode in order to preserve the B+Tree properties
	return insertIntoNodeAfterSplitting(root, left.parent, leftIndex, key, right)
}

// getLeftIndex is a helper function used in insertIntoParent to find the
// index of the parents pointer to the bpNode to the left of the key to
// be inserted
func getLeftIndex[K Ordered, V any](parent, left *bpNode[K, V]) int {
	var leftIndex int
	for leftIndex <= parent.numKeys && (*bpNode[K, V])(parent.pointers[leftIndex]) != left {
		leftIndex++
	}
	return leftIndex
}

// insertIntoNode wedges a new key and child pointer into a bpNode into
// which these can fit without violating the tree's properties
func insertIntoNode[K Ordered, V any](root, n *bpNode[K, V], leftIndex int, key K, right *bpNode[K, V]) *bpNode[K, V] {
	copy(n.pointers[leftIndex+2:], n.pointers[leftIndex+1:])
	copy(n.keys[leftIndex+1:], n.keys[leftIndex:])
	n.pointers[leftIndex+1] = unsafe.Pointer(right)
	n.keys[leftIndex] = key
	n.numKeys++
	return root
}

// insertIntoNodeAfterSplitting inserts a new key and pointer to a bpNode
// into a bpNode, causing the nodes size to exceed the order, and causing
// the bpNode to split
func insertIntoNodeAfterSplitting[K Ordered, V any](root, oldNode *bpNode[K, V], leftIndex int, key K, right *bpNode[K, V]) *bpNode[K, V] {

	// First create a temp set of keys and pointers to hold everything in
	// order, including the new key and pointer, inserted in their correct
	// places--then create a new bpNode and copy half of the keys and
	// pointers to the old bpNode and the other half to the new
	var i, j int
	var tempKeys [defaultOrder]K
	var tempPointers [defaultOrder + 1]unsafe.Pointer

	for i, j = 0, 0; i < oldNode.numKeys+1; i, j = i+1, j+1 {
		if j == leftIndex+1 {
			j++
		}
		tempPointers[j] = oldNode.pointers[i]
	}

	for i, j = 0, 0; i < oldNode.numKeys; i, j = i+1, j+1 {
		if j == leftIndex {
			j++
		}
		tempKeys[j] = oldNode.keys[i]
	}

	tempPointers[leftIndex+1] = unsafe.Pointer(right)
	tempKeys[leftIndex] = key

	// copy half the keys and pointers to the old bpNode...
	split := cut(defaultOrder)
	oldNode.numKeys = 0
	for i = 0; i < split-1; i++ {
		oldNode.pointers[i] = tempPointers[i]
		oldNode.keys[i] = tempKeys[i]
		oldNode.numKeys++
	}
	oldNode.pointers[i] = tempPointers[i]
	kPrime := tempKeys[split-1]

	// ...create the new bpNode and copy the other half the keys and pointers
	newNode := &bpNode[K, V]{}
	for i, j = i+1, 0; i < defaultOrder; i, j = i+1, j+1 {
		newNode.pointers[j] = tempPointers[i]
		newNode.keys[j] = tempKeys[i]
		newNode.numKeys++
	}
	newNode.pointers[j] = tempPointers[i]
	newNode.parent = oldNode.parent

	// the moved children must now point up to the new bpNode
	var child *bpNode[K, V]
	for i = 0; i <= newNode.numKeys; i++ {
		child = (*bpNode[K, V])(newNode.pointers[i])
		child.parent = newNode
	}

	// Insert a new key into the parent of the two nodes resulting from
	// the split, with the old bpNode to the left and the new to the right
	return insertIntoParent(root, oldNode, kPrime, newNode)
}

// insertIntoLeaf wedges a new entry pointer and its corresponding key
// into sorted position within a leaf, shifting later entries right
func insertIntoLeaf[K Ordered, V any](leaf *bpNode[K, V], key K, pointer *entry[K, V]) {
	var i, insertionPoint int
	for insertionPoint < leaf.numKeys && compare(leaf.keys[insertionPoint], key) == -1 {
		insertionPoint++
	}
	for i = leaf.numKeys; i > insertionPoint; i-- {
		leaf.keys[i] = leaf.keys[i-1]
		leaf.pointers[i] = leaf.pointers[i-1]
	}
	leaf.keys[insertionPoint] = key
	leaf.pointers[insertionPoint] = unsafe.Pointer(pointer)
	leaf.numKeys++
}

// insertIntoLeafAfterSplitting inserts a new key and entry pointer into
// a leaf so as to exceed the tree's order, causing the leaf to be split
// in half. The leaf sibling chain is re-threaded through the last
// pointer slot so ordered leaf traversal stays possible.
func insertIntoLeafAfterSplitting[K Ordered, V any](root, leaf *bpNode[K, V], key K, pointer *entry[K, V]) *bpNode[K, V] {

	// perform linear search to find index to insert new record
	var insertionIndex int
	for insertionIndex < defaultOrder-1 && compare(leaf.keys[insertionIndex], key) == -1 {
		insertionIndex++
	}

	// copy leaf keys and pointers to temp sets, reserving space at the
	// insertion index for the new record
	var i, j int
	var tempKeys [defaultOrder]K
	var tempPointers [defaultOrder]unsafe.Pointer
	for i, j = 0, 0; i < leaf.numKeys; i, j = i+1, j+1 {
		if j == insertionIndex {
			j++
		}
		tempKeys[j] = leaf.keys[i]
		tempPointers[j] = leaf.pointers[i]
	}
	tempKeys[insertionIndex] = key
	tempPointers[insertionIndex] = unsafe.Pointer(pointer)

	leaf.numKeys = 0

	// find pivot index where to split leaf
	split := cut(defaultOrder - 1)

	// overwrite original leaf up to the split point
	for i = 0; i < split; i++ {
		leaf.keys[i] = tempKeys[i]
		leaf.pointers[i] = tempPointers[i]
		leaf.numKeys++
	}

	// create new leaf and write to it from the split point to the end of
	// the original leaf pre split
	newLeaf := &bpNode[K, V]{isLeaf: true}
	for i, j = split, 0; i < defaultOrder; i, j = i+1, j+1 {
		newLeaf.keys[j] = tempKeys[i]
		newLeaf.pointers[j] = tempPointers[i]
		newLeaf.numKeys++
	}

	// thread the new leaf into the sibling chain
	newLeaf.pointers[defaultOrder-1] = leaf.pointers[defaultOrder-1]
	leaf.pointers[defaultOrder-1] = unsafe.Pointer(newLeaf)

	for i = leaf.numKeys; i < defaultOrder-1; i++ {
		leaf.pointers[i] = nil
	}
	for i = newLeaf.numKeys; i < defaultOrder-1; i++ {
		newLeaf.pointers[i] = nil
	}

	newLeaf.parent = leaf.parent
	newKey := newLeaf.keys[0]

	return insertIntoParent(root, leaf, newKey, newLeaf)
}

// findEntry finds and returns the entry to which a key refers
func (t *BPTree[K, V]) findEntry(key K) *entry[K, V] {
	leaf := t.findLeaf(key)
	if leaf == nil {
		return nil
	}
	// If root/leaf != nil, the leaf holds the range of keys that would
	// include the desired key, even if it does not contain it
	var i int
	for i = 0; i < leaf.numKeys; i++ {
		if compare(leaf.keys[i], key) == 0 {
			break
		}
	}
	if i == leaf.numKeys {
		return nil
	}
	return (*entry[K, V])(leaf.pointers[i])
}

// findLeaf traces the path from the root to a leaf, searching by key.
// Equal routing keys send the descent to the right hand child.
func (t *BPTree[K, V]) findLeaf(key K) *bpNode[K, V] {
	if t.root == nil {
		return nil
	}
	i, c := 0, t.root
	for !c.isLeaf {
		t.accesses++
		i = 0
		for i < c.numKeys {
			if compare(key, c.keys[i]) >= 0 {
				i++
			} else {
				break
			}
		}
		c = (*bpNode[K, V])(c.pointers[i])
	}
	t.accesses++
	// c is the found leaf bpNode
	return c
}

// findFirstLeaf traces the path from the root to the leftmost leaf in the tree
func (t *BPTree[K, V]) findFirstLeaf() *bpNode[K, V] {
	if t.root == nil {
		return nil
	}
	c := t.root
	for !c.isLeaf {
		t.accesses++
		c = (*bpNode[K, V])(c.pointers[0])
	}
	t.accesses++
	return c
}

// findLastLeaf traces the path from the root to the rightmost leaf in the tree
func (t *BPTree[K, V]) findLastLeaf() *bpNode[K, V] {
	if t.root == nil {
		return nil
	}
	c := t.root
	for !c.isLeaf {
		t.accesses++
		c = (*bpNode[K, V])(c.pointers[c.numKeys])
	}
	t.accesses++
	return c
}

// nextLeaf returns the next non-nil leaf in the chain (to the right) of
// the current leaf
func (n *bpNode[K, V]) nextLeaf() *bpNode[K, V] {
	if p := (*bpNode[K, V])(n.pointers[defaultOrder-1]); p != nil && p.isLeaf {
		return p
	}
	return nil
}

// cut finds the appropriate place to split a bpNode that is too big
func cut(length int) int {
	if length%2 == 0 {
		return length / 2
	}
	return length/2 + 1
}
