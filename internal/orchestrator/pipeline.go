package orchestrator

import (
	"context"
	"sync"

	"congresshub-backend/internal/congressapi"
	"congresshub-backend/internal/normalize"
)

const (
	// pipelineBuffer bounds the raw-record channel so a fast fetcher can
	// never balloon memory while normalizers lag.
	pipelineBuffer = 64
	// normalizeWorkers is fixed; normalization is cheap compared to the
	// rate-limited fetch so a small pool is plenty.
	normalizeWorkers = 4
)

type indexed[T any] struct {
	i int
	v T
}

type normalized[E any] struct {
	i       int
	entity  E
	anomaly *normalize.Anomaly
}

// drain pulls a source dry through a bounded normalizer pool. Output order
// matches source order regardless of worker interleaving. On a stream
// error the records fetched so far are still normalized and returned, with
// the error alongside, so a partial sweep can still create and update.
func drain[R any, E any](
	ctx context.Context,
	src congressapi.Source[R],
	fn func(R) (E, *normalize.Anomaly),
) (entities []E, anomalies []normalize.Anomaly, err error) {
	raw := make(chan indexed[R], pipelineBuffer)
	results := make(chan normalized[E], pipelineBuffer)

	var streamErr error
	go func() {
		defer close(raw)
		for i := 0; ; i++ {
			record, ok, nextErr := src.Next(ctx)
			if nextErr != nil {
				streamErr = nextErr
				return
			}
			if !ok {
				return
			}
			select {
			case raw <- indexed[R]{i: i, v: record}:
			case <-ctx.Done():
				streamErr = ctx.Err()
				return
			}
		}
	}()

	var workers sync.WaitGroup
	for w := 0; w < normalizeWorkers; w++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for item := range raw {
				entity, anomaly := fn(item.v)
				results <- normalized[E]{i: item.i, entity: entity, anomaly: anomaly}
			}
		}()
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	byIndex := map[int]normalized[E]{}
	for r := range results {
		byIndex[r.i] = r
	}

	for i := 0; i < len(byIndex); i++ {
		r, ok := byIndex[i]
		if !ok {
			// producer stopped mid-stream, later indexes were never sent
			break
		}
		if r.anomaly != nil {
			anomalies = append(anomalies, *r.anomaly)
			continue
		}
		entities = append(entities, r.entity)
	}

	// the producer goroutine has exited once results is closed, so the
	// streamErr read is ordered after its last write
	return entities, anomalies, streamErr
}
