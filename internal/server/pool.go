package server

import (
	"net"
	"sync"
)

// workerPool bounds the number of connections handled concurrently to n,
// adapted from the chat-server example's fire-and-forget persistence pool
// (other_examples/..._chat-server__chat-go-internal-server-server.go) into
// a synchronous dispatch pool: here every job must produce a response, so
// submit blocks (rather than dropping) once all workers are busy, letting
// the accept loop's backlog absorb the burst instead of losing requests.
type workerPool struct {
	jobs chan net.Conn
	wg   sync.WaitGroup
}

func newWorkerPool(n int, handle func(net.Conn)) *workerPool {
	p := &workerPool{jobs: make(chan net.Conn)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for conn := range p.jobs {
				handle(conn)
			}
		}()
	}
	return p
}

// submit blocks until a worker is free to accept conn.
func (p *workerPool) submit(conn net.Conn) {
	p.jobs <- conn
}

// stop closes the job queue and waits for in-flight handlers to finish.
func (p *workerPool) stop() {
	close(p.jobs)
	p.wg.Wait()
}
