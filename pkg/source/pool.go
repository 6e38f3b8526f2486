package source

import "sync"

// pool is a bounded worker pool. Tasks are submitted up front and run by a
// fixed number of goroutines; wait blocks until every submitted task is done
// and the workers have exited.
type pool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

func newPool(workers int) *pool {
	if workers < 1 {
		workers = 1
	}
	p := &pool{tasks: make(chan func())}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

func (p *pool) submit(task func()) {
	p.tasks <- task
}

// wait closes the task channel and blocks until all workers drain it.
func (p *pool) wait() {
	close(p.tasks)
	p.wg.Wait()
}
