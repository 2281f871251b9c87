package maps

type orderedMap[K comparable, V any] struct {
	keys []K
	m    map[K]V
}

// NewOrderedMap creates an empty Map.
func NewOrderedMap[K comparable, V any]() Map[K, V] {
	return &orderedMap[K, V]{
		keys: []K{},
		m:    map[K]V{},
	}
}

func (m *orderedMap[K, V]) Set(k K, v V) {
	if _, ok := m.m[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.m[k] = v
}

func (m *orderedMap[K, V]) Get(k K) (V, bool) {
	v, ok := m.m[k]
	return v, ok
}

func (m *orderedMap[K, V]) Keys() []K {
	return append([]K{}, m.keys...)
}

func (m *orderedMap[K, V]) Len() int {
	return len(m.keys)
}

func (m *orderedMap[K, V]) Iter() func(yield func(k K, v V) bool) {
	return func(yield func(k K, v V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.m[k]) {
				return
			}
		}
	}
}
