// Package linear implements an in-memory hash map built on the linear
// hashing algorithm: the bucket table grows one chain at a time, driven
// by a split pointer and a pair of round moduli, instead of doubling the
// whole table at once. The map is not safe for concurrent use; callers
// sharing one across goroutines must wrap it with their own lock.
// Deleting keys is not supported.
package linear

import (
	"fmt"
	"strings"

	"github.com/scottcagno/memindex/pkg/hash/xxhash"
)

const (
	// slotsPerBucket is the number of key value slots each bucket holds
	// before it chains an overflow bucket.
	slotsPerBucket = 4

	// defaultInitSize is the number of home bucket chains a zero sized
	// map starts with.
	defaultInitSize = 4
)

// Entry is a key value pair held in the table
type Entry[K comparable, V any] struct {
	Key K
	Val V
}

// bucket is a fixed set of key value slots plus a link to one
// overflow bucket, forming a singly linked chain per table index
type bucket[K comparable, V any] struct {
	nKeys int
	keys  [slotsPerBucket]K
	vals  [slotsPerBucket]V
	next  *bucket[K, V]
}

// hashFunc is a type definition for what a hash function should look like
type hashFunc[K comparable] func(key K) uint32

// defaultHashFunc is the default hashFunc used. It renders the key with
// fmt and runs the bytes through xxhash
func defaultHashFunc[K comparable](key K) uint32 {
	return xxhash.Sum32([]byte(fmt.Sprintf("%v", key)))
}

// LinHashMap represents a linear hashing hashtable implementation
type LinHashMap[K comparable, V any] struct {
	hash     hashFunc[K]
	table    []*bucket[K, V]
	mod1     int // modulus for the current generation
	mod2     int // modulus for the next generation, always 2*mod1
	split    int // index of the next chain scheduled to split
	numKeys  int
	accesses int
}

// NewLinHashMap returns a new LinHashMap instantiated with the specified
// number of home bucket chains, or the defaultInitSize if zero
func NewLinHashMap[K comparable, V any](initSize uint) *LinHashMap[K, V] {
	return newLinHashMap[K, V](initSize, defaultHashFunc[K])
}

// newLinHashMap is the internal variant of the previous function
// and is mainly used internally
func newLinHashMap[K comparable, V any](initSize uint, hash hashFunc[K]) *LinHashMap[K, V] {
	if initSize == 0 {
		initSize = defaultInitSize
	}
	if hash == nil {
		hash = defaultHashFunc[K]
	}
	m := &LinHashMap[K, V]{
		hash:  hash,
		table: make([]*bucket[K, V], 0, 2*initSize),
		mod1:  int(initSize),
		mod2:  int(2 * initSize),
	}
	return m
}

// homeIndex returns the chain index a hashkey currently belongs to.
// Chains below the split pointer have already been divided this
// generation and resolve through the next generation modulus.
func (m *LinHashMap[K, V]) homeIndex(hashkey uint32) int {
	i := int(hashkey % uint32(m.mod1))
	if i < m.split {
		i = int(hashkey % uint32(m.mod2))
	}
	return i
}

// ensureChain extends the table with empty chain heads until index i exists
func (m *LinHashMap[K, V]) ensureChain(i int) {
	for len(m.table) <= i {
		m.table = append(m.table, &bucket[K, V]{})
	}
}

// Get returns the value for a given key, or returns false if none could be found
// Get can be considered the exported version of the lookup call
func (m *LinHashMap[K, V]) Get(key K) (V, bool) {
	return m.lookup(m.hash(key), key)
}

// lookup returns a value for a given key, or returns false if none could be found
func (m *LinHashMap[K, V]) lookup(hashkey uint32, key K) (V, bool) {
	i := m.homeIndex(hashkey)
	if i >= len(m.table) {
		// chain was never created, so the key cannot be present
		return *new(V), false
	}
	for b := m.table[i]; b != nil; b = b.next {
		m.accesses++
		for j := 0; j < b.nKeys; j++ {
			// match on key equality, never on hash equality; two
			// distinct keys may share a hash
			if b.keys[j] == key {
				return b.vals[j], true
			}
		}
	}
	return *new(V), false
}

// Put inserts a key value entry and returns the previous value along with a
// boolean reporting if the key already existed
// Put can be considered the exported version of the insert call
func (m *LinHashMap[K, V]) Put(key K, value V) (V, bool) {
	return m.insert(m.hash(key), key, value)
}

// insert inserts a key value entry and returns the previous value, or false
func (m *LinHashMap[K, V]) insert(hashkey uint32, key K, value V) (V, bool) {
	i := m.homeIndex(hashkey)
	m.ensureChain(i)
	// overwrite in place if the key is already in the chain
	for b := m.table[i]; b != nil; b = b.next {
		m.accesses++
		for j := 0; j < b.nKeys; j++ {
			if b.keys[j] == key {
				old := b.vals[j]
				b.vals[j] = value
				return old, true
			}
		}
	}
	grew := m.writeToChain(i, key, value)
	m.numKeys++
	if grew {
		// the chain took on an overflow bucket, grow the table
		m.splitNext()
	}
	return *new(V), false
}

// writeToChain writes a pair into the first free slot at the tail of
// chain i, chaining a new overflow bucket when the tail is full. It
// reports whether an overflow bucket had to be added.
func (m *LinHashMap[K, V]) writeToChain(i int, key K, value V) bool {
	last := m.table[i]
	m.accesses++
	for last.next != nil {
		last = last.next
		m.accesses++
	}
	var grew bool
	if last.nKeys == slotsPerBucket {
		last.next = &bucket[K, V]{}
		last = last.next
		m.accesses++
		grew = true
	}
	last.keys[last.nKeys] = key
	last.vals[last.nKeys] = value
	last.nKeys++
	return grew
}

// splitNext divides the chain at the split pointer; the chain that
// overflowed keeps its overflow buckets until the pointer reaches it.
// The pointer advances before the pairs re-home, so the dual modulus
// rule resolves the divided chain through the next generation modulus
// and the table never holds a key its own lookup rule cannot reach.
// When the pointer wraps, the generation rolls over: mod1 takes mod2,
// mod2 doubles, and the table is extended with empty chain heads.
func (m *LinHashMap[K, V]) splitNext() {
	s := m.split
	m.ensureChain(s)
	old := m.table[s]
	m.table[s] = &bucket[K, V]{}
	m.split++
	if m.split == m.mod1 {
		m.mod1 = m.mod2
		m.mod2 *= 2
		for len(m.table) < m.mod2 {
			m.table = append(m.table, &bucket[K, V]{})
		}
		m.split = 0
	}
	for b := old; b != nil; b = b.next {
		for j := 0; j < b.nKeys; j++ {
			m.reinsert(m.hash(b.keys[j]), b.keys[j], b.vals[j])
		}
	}
}

// reinsert re-homes a pair detached by splitNext. The keys being moved
// are distinct and already counted, so there is no overwrite scan and
// no key count bump. A re-home may grow an overflow bucket but never
// triggers another split; a cascade here could detach and refill the
// same chain without end when every pair re-homes to one index. The
// next regular insert splits the next chain in line instead.
func (m *LinHashMap[K, V]) reinsert(hashkey uint32, key K, value V) {
	i := m.homeIndex(hashkey)
	m.ensureChain(i)
	m.writeToChain(i, key, value)
}

// Range takes an iterator function and ranges the LinHashMap in no
// particular order as long as the iterator function continues to be
// true. Range is not safe to perform an insert while ranging!
func (m *LinHashMap[K, V]) Range(iter func(key K, value V) bool) {
	for i := 0; i < len(m.table); i++ {
		for b := m.table[i]; b != nil; b = b.next {
			for j := 0; j < b.nKeys; j++ {
				if !iter(b.keys[j], b.vals[j]) {
					return
				}
			}
		}
	}
}

// Entries returns an unordered snapshot of all the entries in the table
func (m *LinHashMap[K, V]) Entries() []Entry[K, V] {
	entries := make([]Entry[K, V], 0, m.numKeys)
	m.Range(func(key K, value V) bool {
		entries = append(entries, Entry[K, V]{Key: key, Val: value})
		return true
	})
	return entries
}

// Len returns the number of entries currently in the LinHashMap
func (m *LinHashMap[K, V]) Len() int {
	return m.numKeys
}

// Size returns the theoretical slot capacity of the current generation,
// slotsPerBucket * (mod1 + split). It is a capacity figure, not an
// occupancy count; use Len for the number of keys actually stored.
func (m *LinHashMap[K, V]) Size() int {
	return slotsPerBucket * (m.mod1 + m.split)
}

// Accesses returns the number of buckets visited so far across all
// operations. It is only here for performance testing.
func (m *LinHashMap[K, V]) Accesses() int {
	return m.accesses
}

// String renders every bucket chain for manual inspection
func (m *LinHashMap[K, V]) String() string {
	var sb strings.Builder
	sb.WriteString("Hash Table (Linear Hashing)\n")
	fmt.Fprintf(&sb, "mod1=%d, mod2=%d, split=%d\n", m.mod1, m.mod2, m.split)
	for i := 0; i < len(m.table); i++ {
		fmt.Fprintf(&sb, "bucket[%d]:", i)
		for b := m.table[i]; b != nil; b = b.next {
			sb.WriteString(" |")
			for j := 0; j < b.nKeys; j++ {
				fmt.Fprintf(&sb, " %v=%v", b.keys[j], b.vals[j])
			}
			sb.WriteString(" |")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Close closes and frees the current LinHashMap. Calling any method
// on the LinHashMap after this will most likely result in a panic
func (m *LinHashMap[K, V]) Close() {
	m.table = nil
	m.numKeys = 0
}
