package gateway

import "sync"

type fanoutJob struct {
	conns   []*Conn
	payload []byte
}

// Fanout is a small worker pool pushing one payload to many connections.
// Delivery per recipient is independent: a slow or dead client is skipped,
// never blocking the rest of the channel.
type Fanout struct {
	jobs      chan fanoutJob
	closeOnce sync.Once
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 1024
	}
	f := &Fanout{jobs: make(chan fanoutJob, queue)}
	for i := 0; i < workers; i++ {
		go func() {
			for job := range f.jobs {
				for _, c := range job.conns {
					if c.Closed() {
						continue
					}
					select {
					case c.Send <- job.payload:
					default:
						// slow client: drop for this recipient only
					}
				}
			}
		}()
	}
	return f
}

func (f *Fanout) Broadcast(conns []*Conn, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	f.jobs <- fanoutJob{conns: conns, payload: payload}
}

func (f *Fanout) Close() {
	f.closeOnce.Do(func() { close(f.jobs) })
}
