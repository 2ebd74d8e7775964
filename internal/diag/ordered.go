package diag

// OrderedMap is a string-keyed map that remembers first insertion order.
// The zero value is ready to use.
type OrderedMap[V any] struct {
	keys   []string
	values []V
	index  map[string]int
}

// Put stores v under key if key is not present yet and reports whether it did.
// An existing key keeps its first value.
func (m *OrderedMap[V]) Put(key string, v V) bool {
	if _, ok := m.index[key]; ok {
		return false
	}
	if m.index == nil {
		m.index = make(map[string]int)
	}
	m.index[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.values = append(m.values, v)
	return true
}

// Get returns the value stored under key.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	i, ok := m.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return m.values[i], true
}

// Update replaces the value under key, inserting it at the end if absent.
func (m *OrderedMap[V]) Update(key string, fn func(old V) V) {
	if i, ok := m.index[key]; ok {
		m.values[i] = fn(m.values[i])
		return
	}
	var zero V
	m.Put(key, fn(zero))
}

// Keys returns the keys in first-insertion order. Callers must not modify it.
func (m *OrderedMap[V]) Keys() []string {
	return m.keys
}

func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}
