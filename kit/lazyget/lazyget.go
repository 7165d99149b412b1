// Package lazyget computes a value on first use and returns the same value
// to every later caller.
package lazyget

import "sync"

type Cache[T any] struct {
	val  T
	err  error
	once sync.Once
}

func (v *Cache[T]) Get(initFunc func() T) T {
	v.once.Do(func() { v.val = initFunc() })
	return v.val
}

// GetErr is Get for fallible initializers. A failed first call is cached
// like a successful one; the initializer never runs twice.
func (v *Cache[T]) GetErr(initFunc func() (T, error)) (T, error) {
	v.once.Do(func() { v.val, v.err = initFunc() })
	return v.val, v.err
}

func New[T any](fn func() T) func() T {
	var v Cache[T]
	return func() T { return v.Get(fn) }
}

func NewErr[T any](fn func() (T, error)) func() (T, error) {
	var v Cache[T]
	return func() (T, error) { return v.GetErr(fn) }
}
