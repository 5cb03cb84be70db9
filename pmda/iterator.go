package pmda

import (
	"context"

	"github.com/kbukum/pmdakit/model"
)

// fetchFunc loads the page starting at offset start.
type fetchFunc func(ctx context.Context, start int) ([]*model.Model, error)

// Iterator walks the resources of a list call, requesting pages lazily.
// It is not safe for concurrent use and cannot be restarted; call the
// client again for a fresh pass.
type Iterator struct {
	fetch    fetchFunc
	pageSize int

	buf    []*model.Model
	start  int
	done   bool
	closed bool
	err    error
}

func newIterator(pageSize int, fetch fetchFunc) *Iterator {
	return &Iterator{fetch: fetch, pageSize: pageSize}
}

// failedIterator reports err on the first call to Next.
func failedIterator(err error) *Iterator {
	return &Iterator{err: err, done: true}
}

// Next returns the next resource. ok is false once the iterator is
// exhausted, closed or failed; a failure is returned again on every call.
func (it *Iterator) Next(ctx context.Context) (m *model.Model, ok bool, err error) {
	if it.err != nil {
		return nil, false, it.err
	}
	if it.closed {
		return nil, false, nil
	}
	for len(it.buf) == 0 {
		if it.done {
			return nil, false, nil
		}
		page, err := it.fetch(ctx, it.start)
		if err != nil {
			it.err = err
			return nil, false, err
		}
		it.start += len(page)
		if it.pageSize <= 0 || len(page) < it.pageSize {
			it.done = true
		}
		it.buf = page
	}
	m = it.buf[0]
	it.buf[0] = nil
	it.buf = it.buf[1:]
	return m, true, nil
}

// HasMore reports whether Next may still return a resource. It does not
// fetch, so it can be true right before the last page turns out empty.
func (it *Iterator) HasMore() bool {
	return !it.closed && it.err == nil && (len(it.buf) > 0 || !it.done)
}

// Err returns the error that stopped the iterator, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Close releases buffered resources. Further calls to Next report
// exhaustion.
func (it *Iterator) Close() error {
	it.closed = true
	it.buf = nil
	return nil
}

// Collect drains the iterator into a slice and closes it.
func (it *Iterator) Collect(ctx context.Context) ([]*model.Model, error) {
	defer func() { _ = it.Close() }()
	var out []*model.Model
	for {
		m, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, m)
	}
}
