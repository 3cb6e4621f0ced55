package congressapi

import "context"

// fetchPage returns the items at an offset plus the total count the
// upstream reports in its pagination object.
type fetchPage[T any] func(ctx context.Context, offset, limit int) ([]T, int, error)

// Stream lazily walks a paginated upstream listing, flattening pages so the
// caller sees one record at a time. It is finite (ends when pagination is
// exhausted) and not restartable; once Next reports done or an error, the
// stream yields nothing further.
type Stream[T any] struct {
	fetch  fetchPage[T]
	limit  int
	offset int
	total  int
	buffer []T
	done   bool
	err    error
}

const defaultPageLimit = 250

func newStream[T any](fetch fetchPage[T]) *Stream[T] {
	return &Stream[T]{
		fetch: fetch,
		limit: defaultPageLimit,
		total: -1,
	}
}

// Next returns the next record in upstream order. ok is false when the
// stream is exhausted or failed; a failed stream reports its error on every
// subsequent call.
func (s *Stream[T]) Next(ctx context.Context) (record T, ok bool, err error) {
	var zero T
	if s.err != nil {
		return zero, false, s.err
	}

	for len(s.buffer) == 0 {
		if s.done {
			return zero, false, nil
		}

		items, total, err := s.fetch(ctx, s.offset, s.limit)
		if err != nil {
			s.err = err
			return zero, false, err
		}

		s.total = total
		s.offset += s.limit
		if s.offset >= total || len(items) == 0 {
			s.done = true
		}
		s.buffer = items
		if len(s.buffer) == 0 {
			return zero, false, nil
		}
	}

	record = s.buffer[0]
	s.buffer = s.buffer[1:]
	return record, true, nil
}

// concatStreams chains streams end to end, used for listings the upstream
// splits by chamber.
type concatStream[T any] struct {
	streams []Source[T]
}

func (c *concatStream[T]) Next(ctx context.Context) (record T, ok bool, err error) {
	var zero T
	for len(c.streams) > 0 {
		record, ok, err := c.streams[0].Next(ctx)
		if err != nil {
			return zero, false, err
		}
		if ok {
			return record, true, nil
		}
		c.streams = c.streams[1:]
	}
	return zero, false, nil
}

// Source is the lazy sequence every adapter hands the orchestrator.
type Source[T any] interface {
	Next(ctx context.Context) (record T, ok bool, err error)
}
