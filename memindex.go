package memindex

import (
	"github.com/scottcagno/memindex/pkg/hashmap/linear"
	"github.com/scottcagno/memindex/pkg/index/bptree"
)

// Map is an interface for this package. Both of the index
// structures in pkg satisfy it.
type Map[K comparable, V any] interface {
	Get(key K) (V, bool)
	Len() int
	Accesses() int
	Close()
}

var (
	_ Map[string, string] = (*linear.LinHashMap[string, string])(nil)
	_ Map[string, string] = (*bptree.BPTree[string, string])(nil)
)
