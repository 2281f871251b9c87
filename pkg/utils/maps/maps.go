// Package maps provides a map which remembers insertion order of keys.
package maps

// Map is a map which remembers the order of keys.
type Map[K comparable, V any] interface {
	// Set puts value for key.
	//
	// If the key is known, its position is kept and only the value is replaced.
	Set(K, V)
	Get(K) (V, bool)

	// Keys in insertion order.
	Keys() []K

	Len() int

	// Iter yields pairs in insertion order. Use it with range.
	Iter() func(yield func(k K, v V) bool)
}
