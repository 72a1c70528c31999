package mediactrl

import (
	"context"
	"sync"

	"github.com/svanichkin/asciiplay/codec"
)

type prefetchJob struct {
	ctx   context.Context
	gen   uint64
	src   FrameSource
	index int
}

type prefetchResult struct {
	gen   uint64
	index int
	frame codec.Frame
	err   error
}

// prefetcher decodes ahead on one goroutine. It never touches the cache; results
// go back to the owner over a channel.
type prefetcher struct {
	jobs    chan prefetchJob
	results chan prefetchResult
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func newPrefetcher(depth int) *prefetcher {
	if depth < 1 {
		depth = 1
	}
	p := &prefetcher{
		jobs:    make(chan prefetchJob, depth),
		results: make(chan prefetchResult, depth),
		done:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *prefetcher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case job := <-p.jobs:
			if job.ctx.Err() != nil {
				continue
			}
			frame, err := job.src.Frame(job.ctx, job.index)
			if job.ctx.Err() != nil {
				continue
			}
			select {
			case p.results <- prefetchResult{gen: job.gen, index: job.index, frame: frame, err: err}:
			case <-p.done:
				return
			}
		}
	}
}

// submit queues a job without blocking. It reports false when the queue is full.
func (p *prefetcher) submit(job prefetchJob) bool {
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

func (p *prefetcher) stop() {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
}
