package omap

// OrderedMap is a map that remembers the order the keys were
// first set in. It is the view type returned by the range query
// methods on the b+tree index, which set keys in ascending key
// order, so ranging one of those views visits sorted keys.
type OrderedMap[K comparable, V any] struct {
	data map[K]V
	keys []K
}

// NewOrderedMap returns a new empty OrderedMap
func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		data: make(map[K]V),
		keys: make([]K, 0),
	}
}

// Set inserts or overwrites the value for key and returns the
// previous value along with a boolean reporting if there was one.
// A key keeps its original position on overwrite.
func (m *OrderedMap[K, V]) Set(key K, value V) (V, bool) {
	old, ok := m.data[key]
	if !ok {
		m.keys = append(m.keys, key)
	}
	m.data[key] = value
	return old, ok
}

// Get returns the value for key, or false if none could be found
func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.data[key]
	return v, ok
}

// Has tests and returns a boolean value if the provided key exists
func (m *OrderedMap[K, V]) Has(key K) bool {
	_, ok := m.data[key]
	return ok
}

// Keys returns the keys in the order they were first set
func (m *OrderedMap[K, V]) Keys() []K {
	keys := make([]K, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Len returns the number of entries currently in the OrderedMap
func (m *OrderedMap[K, V]) Len() int {
	return len(m.keys)
}

// Range ranges the OrderedMap in key-set order as long as the
// iterator function continues to be true
func (m *OrderedMap[K, V]) Range(iter func(key K, value V) bool) {
	for _, k := range m.keys {
		if !iter(k, m.data[k]) {
			return
		}
	}
}
