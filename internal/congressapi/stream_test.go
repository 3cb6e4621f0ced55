package congressapi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func collect[T any](t *testing.T, src Source[T]) []T {
	t.Helper()
	var out []T
	for {
		record, ok, err := src.Next(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			return out
		}
		out = append(out, record)
	}
}

func TestStreamWalksPages(t *testing.T) {
	total := defaultPageLimit*2 + 17
	var fetches int

	stream := newStream(func(ctx context.Context, offset, limit int) ([]int, int, error) {
		fetches++
		var page []int
		for i := offset; i < offset+limit && i < total; i++ {
			page = append(page, i)
		}
		return page, total, nil
	})

	records := collect[int](t, stream)
	require.Len(t, records, total)
	require.Equal(t, 0, records[0])
	require.Equal(t, total-1, records[total-1])
	require.Equal(t, 3, fetches)
}

func TestStreamLatchesErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	stream := newStream(func(ctx context.Context, offset, limit int) ([]int, int, error) {
		calls++
		if offset >= defaultPageLimit {
			return nil, 0, boom
		}
		page := make([]int, limit)
		return page, defaultPageLimit * 2, nil
	})

	seen := 0
	var streamErr error
	for {
		_, ok, err := stream.Next(context.Background())
		if err != nil {
			streamErr = err
			break
		}
		if !ok {
			break
		}
		seen++
	}

	require.Equal(t, defaultPageLimit, seen)
	require.ErrorIs(t, streamErr, boom)

	// the error is sticky and no further fetches happen
	_, ok, err := stream.Next(context.Background())
	require.False(t, ok)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, calls)
}

func TestConcatStreamChains(t *testing.T) {
	single := func(values ...int) *Stream[int] {
		return newStream(func(ctx context.Context, offset, limit int) ([]int, int, error) {
			return values, len(values), nil
		})
	}

	concat := &concatStream[int]{streams: []Source[int]{
		single(1, 2),
		single(),
		single(3),
	}}

	records := collect[int](t, concat)
	require.Equal(t, []int{1, 2, 3}, records)
}

func TestParentsFirstSpansPageBoundaries(t *testing.T) {
	roster := []CommitteeRecord{
		{Name: "Subcommittee on Antitrust", Chamber: "Senate", IsSubcommittee: true, ParentName: "Committee on the Judiciary"},
		{Name: "Committee on Finance", Chamber: "Senate"},
		{Name: "Committee on the Judiciary", Chamber: "Senate"},
	}

	stream := newStream(func(ctx context.Context, offset, limit int) ([]CommitteeRecord, int, error) {
		end := offset + limit
		if end > len(roster) {
			end = len(roster)
		}
		return roster[offset:end], len(roster), nil
	})
	stream.limit = 2 // force the parent onto a second page

	records := collect[CommitteeRecord](t, &parentsFirst{src: stream})

	require.Len(t, records, 3)
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	require.Equal(t, []string{
		"Committee on Finance",
		"Committee on the Judiciary",
		"Subcommittee on Antitrust",
	}, names)
}

func TestParentsFirstLatchesStreamErrors(t *testing.T) {
	boom := errors.New("boom")
	stream := newStream(func(ctx context.Context, offset, limit int) ([]CommitteeRecord, int, error) {
		return nil, 0, boom
	})

	src := &parentsFirst{src: stream}
	_, _, err := src.Next(context.Background())
	require.ErrorIs(t, err, boom)
	_, _, err = src.Next(context.Background())
	require.ErrorIs(t, err, boom)
}
