package linear

import (
	"fmt"
	"strings"
	"testing"

	"github.com/scottcagno/memindex/pkg/util"
)

func makeKey(i int) string {
	return fmt.Sprintf("key-%.6d", i)
}

func makeVal(i int) string {
	return fmt.Sprintf("val-%.6d", i)
}

func TestNewLinHashMap(t *testing.T) {
	m := NewLinHashMap[string, string](16)
	util.AssertNotNil(t, m)
	util.AssertLen(t, 0, m.Len())
	util.AssertEqual(t, slotsPerBucket*16, m.Size())
	m.Close()
}

func TestNewLinHashMap_ZeroSize(t *testing.T) {
	m := NewLinHashMap[string, string](0)
	util.AssertEqual(t, slotsPerBucket*defaultInitSize, m.Size())
	m.Put("a", "1")
	v, ok := m.Get("a")
	util.AssertTrue(t, ok)
	util.AssertEqual(t, "1", v)
	m.Close()
}

func TestLinHashMap_PutGet(t *testing.T) {
	m := NewLinHashMap[string, string](4)
	for i := 0; i < 1000; i++ {
		_, existing := m.Put(makeKey(i), makeVal(i))
		if existing {
			t.Errorf("putting: %v", existing)
		}
	}
	util.AssertLen(t, 1000, m.Len())
	for i := 0; i < 1000; i++ {
		val, ok := m.Get(makeKey(i))
		if !ok {
			t.Errorf("getting: %v", ok)
		}
		util.AssertEqual(t, makeVal(i), val)
	}
	m.Close()
}

func TestLinHashMap_PutReturnsPrevious(t *testing.T) {
	m := NewLinHashMap[string, string](4)
	old, existing := m.Put("a", "1")
	util.AssertFalse(t, existing)
	util.AssertEqual(t, "", old)
	old, existing = m.Put("a", "2")
	util.AssertTrue(t, existing)
	util.AssertEqual(t, "1", old)
	util.AssertLen(t, 1, m.Len())
	val, ok := m.Get("a")
	util.AssertTrue(t, ok)
	util.AssertEqual(t, "2", val)
	m.Close()
}

func TestLinHashMap_GetMissing(t *testing.T) {
	m := NewLinHashMap[string, int](4)
	_, ok := m.Get("nope")
	util.AssertFalse(t, ok)
	m.Put("a", 1)
	_, ok = m.Get("nope")
	util.AssertFalse(t, ok)
	m.Close()
}

func TestLinHashMap_OddSquareKeys(t *testing.T) {
	m := NewLinHashMap[int, int](11)
	for i := 1; i < 30; i += 2 {
		m.Put(i, i*i)
	}
	util.AssertLen(t, 15, m.Len())
	val, ok := m.Get(15)
	util.AssertTrue(t, ok)
	util.AssertEqual(t, 225, val)
	_, ok = m.Get(2)
	util.AssertFalse(t, ok)
	for i := 1; i < 30; i += 2 {
		val, ok = m.Get(i)
		util.AssertTrue(t, ok)
		util.AssertEqual(t, i*i, val)
	}
	m.Close()
}

// splitting must never lose or duplicate a key, whatever the hash
// distribution looks like, so drive the map through many generations
// with an identity hash and check every key afterwards
func TestLinHashMap_SplitKeepsKeys(t *testing.T) {
	m := newLinHashMap[int, int](4, func(key int) uint32 { return uint32(key) })
	const keys = 10000
	for i := 0; i < keys; i++ {
		m.Put(i, i)
	}
	util.AssertLen(t, keys, m.Len())
	for i := 0; i < keys; i++ {
		val, ok := m.Get(i)
		if !ok {
			t.Fatalf("lost key after split: %d", i)
		}
		util.AssertEqual(t, i, val)
	}
	var count int
	m.Range(func(key, value int) bool {
		count++
		return true
	})
	util.AssertEqual(t, keys, count)
	m.Close()
}

func Test_homeIndex(t *testing.T) {
	m := newLinHashMap[int, int](4, func(key int) uint32 { return uint32(key) })
	// nothing split yet, the current generation modulus decides
	util.AssertEqual(t, 1, m.homeIndex(5))
	util.AssertEqual(t, 0, m.homeIndex(8))
	// chain 0 split, keys homing below the split pointer re-resolve
	// through the next generation modulus
	m.split = 1
	util.AssertEqual(t, 1, m.homeIndex(5))
	util.AssertEqual(t, 0, m.homeIndex(8))
	util.AssertEqual(t, 4, m.homeIndex(4))
	m.Close()
}

func Test_bucket_overflowChain(t *testing.T) {
	m := newLinHashMap[int, int](2, func(key int) uint32 { return 0 })
	// every key homes to chain 0, forcing overflow buckets and splits
	for i := 0; i < 20; i++ {
		m.Put(i, i)
	}
	util.AssertLen(t, 20, m.Len())
	for i := 0; i < 20; i++ {
		val, ok := m.Get(i)
		util.AssertTrue(t, ok)
		util.AssertEqual(t, i, val)
	}
	m.Close()
}

func TestLinHashMap_Size(t *testing.T) {
	m := NewLinHashMap[string, string](8)
	util.AssertEqual(t, slotsPerBucket*8, m.Size())
	for i := 0; i < 1000; i++ {
		m.Put(makeKey(i), makeVal(i))
	}
	util.AssertEqual(t, slotsPerBucket*(m.mod1+m.split), m.Size())
	util.AssertTrue(t, m.Size() > slotsPerBucket*8)
	m.Close()
}

func TestLinHashMap_Entries(t *testing.T) {
	m := NewLinHashMap[string, string](4)
	for i := 0; i < 100; i++ {
		m.Put(makeKey(i), makeVal(i))
	}
	entries := m.Entries()
	util.AssertLen(t, 100, len(entries))
	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		seen[e.Key] = e.Val
	}
	for i := 0; i < 100; i++ {
		util.AssertEqual(t, makeVal(i), seen[makeKey(i)])
	}
	m.Close()
}

func TestLinHashMap_Accesses(t *testing.T) {
	m := NewLinHashMap[string, string](4)
	util.AssertEqual(t, 0, m.Accesses())
	for i := 0; i < 100; i++ {
		m.Put(makeKey(i), makeVal(i))
	}
	m.Get(makeKey(50))
	util.AssertTrue(t, m.Accesses() > 0)
	m.Close()
}

func TestLinHashMap_String(t *testing.T) {
	m := NewLinHashMap[int, int](4)
	for i := 1; i < 10; i += 2 {
		m.Put(i, i*i)
	}
	s := m.String()
	util.AssertTrue(t, strings.Contains(s, "Hash Table (Linear Hashing)"))
	util.AssertTrue(t, strings.Contains(s, "9=81"))
	m.Close()
}

func TestLinHashMap_Close(t *testing.T) {
	m := NewLinHashMap[string, string](4)
	m.Put("a", "1")
	m.Close()
	util.AssertLen(t, 0, m.Len())
}
