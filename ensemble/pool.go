package ensemble

import "sync"

// runBounded fans work out across at most maxWorkers goroutines and
// collects results in the same order as the input slice. Sized down
// from the teacher's orchestration worker-pool pattern to the single
// fixed shape this package needs: N independent, order-preserving
// jobs with no shared mutable state between them.
func runBounded[T any, R any](items []T, maxWorkers int, work func(T) R) []R {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	results := make([]R, len(items))
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = work(item)
		}(i, item)
	}

	wg.Wait()
	return results
}
