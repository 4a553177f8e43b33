// Package pagination walks cursor-paginated listings as a lazy,
// forward-only sequence of pages.
package pagination

import (
	"context"
	"errors"
)

// ErrExhausted is returned by Next once the last page has been yielded.
var ErrExhausted = errors.New("pagination: no more pages")

// FetchPage loads one page. cursor is empty for the first page; next is
// the opaque server-issued cursor, empty on the last page. Cursors are
// passed back verbatim, never inspected.
type FetchPage[T any] func(ctx context.Context, cursor string) (items []T, next string, err error)

// Walker advances through pages one Next call at a time. It is
// restartable only by constructing a new Walker. Concurrent Next calls
// on one Walker are not supported; callers serialize their own
// advancement.
type Walker[T any] struct {
	fetch  FetchPage[T]
	cursor string
	pages  int
	done   bool
}

// NewWalker returns a Walker positioned before the first page.
func NewWalker[T any](fetch FetchPage[T]) *Walker[T] {
	return &Walker[T]{fetch: fetch}
}

// Next fetches the next page. On error the walker's position is
// unchanged, so the caller may retry the same page. After the last page
// it returns ErrExhausted.
func (w *Walker[T]) Next(ctx context.Context) ([]T, error) {
	if w.done {
		return nil, ErrExhausted
	}
	items, next, err := w.fetch(ctx, w.cursor)
	if err != nil {
		return nil, err
	}
	w.cursor = next
	w.pages++
	if next == "" {
		w.done = true
	}
	return items, nil
}

// Done reports whether the last page has been yielded.
func (w *Walker[T]) Done() bool { return w.done }

// Pages reports how many pages have been yielded so far.
func (w *Walker[T]) Pages() int { return w.pages }

// Collect walks the remaining pages and merges their items into one
// append-only slice, the way an infinite-scroll consumer accumulates
// results. maxPages <= 0 means no bound.
func (w *Walker[T]) Collect(ctx context.Context, maxPages int) ([]T, error) {
	var all []T
	for !w.done {
		if maxPages > 0 && w.pages >= maxPages {
			break
		}
		items, err := w.Next(ctx)
		if err != nil {
			return all, err
		}
		all = append(all, items...)
	}
	return all, nil
}
