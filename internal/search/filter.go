// Package search implements the predicate filtering shared by peer search,
// resource search and student discovery.
package search

import "strings"

// Predicate is a single filter condition over an item.
type Predicate[T any] func(T) bool

// Text builds a case-insensitive substring predicate over the values
// returned by fields. An empty query matches everything.
func Text[T any](query string, fields func(T) []string) Predicate[T] {
	query = strings.ToLower(strings.TrimSpace(query))
	return func(item T) bool {
		if query == "" {
			return true
		}
		for _, value := range fields(item) {
			if strings.Contains(strings.ToLower(value), query) {
				return true
			}
		}
		return false
	}
}

// Attr builds an exact-equality predicate. An empty want value matches
// everything.
func Attr[T any](want string, field func(T) string) Predicate[T] {
	want = strings.TrimSpace(want)
	return func(item T) bool {
		if want == "" {
			return true
		}
		return strings.EqualFold(field(item), want)
	}
}

// AttrInt is Attr for integer attributes; zero matches everything.
func AttrInt[T any](want int, field func(T) int) Predicate[T] {
	return func(item T) bool {
		if want == 0 {
			return true
		}
		return field(item) == want
	}
}

// Filter returns the items satisfying every predicate, preserving input
// order. Predicates are conjunctive.
func Filter[T any](items []T, predicates ...Predicate[T]) []T {
	matched := make([]T, 0, len(items))
	for _, item := range items {
		ok := true
		for _, predicate := range predicates {
			if !predicate(item) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, item)
		}
	}
	return matched
}
