package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// dispatcher runs messages from the same sender one at a time, in arrival
// order. Different senders are handled concurrently. A sender's worker exits
// once its queue is empty.
type dispatcher struct {
	handle func(*tgbotapi.Message)

	mu     sync.Mutex
	queues map[int64]*senderQueue
	wg     sync.WaitGroup
}

type senderQueue struct {
	pending []*tgbotapi.Message
}

func newDispatcher(handle func(*tgbotapi.Message)) *dispatcher {
	return &dispatcher{
		handle: handle,
		queues: make(map[int64]*senderQueue),
	}
}

func senderKey(message *tgbotapi.Message) int64 {
	if message.From != nil {
		return message.From.ID
	}
	if message.Chat != nil {
		return message.Chat.ID
	}
	return 0
}

// dispatch never blocks on handling.
func (d *dispatcher) dispatch(message *tgbotapi.Message) {
	key := senderKey(message)

	d.mu.Lock()
	defer d.mu.Unlock()

	q, running := d.queues[key]
	if !running {
		q = &senderQueue{}
		d.queues[key] = q
		d.wg.Add(1)
		go d.drain(key, q)
	}
	q.pending = append(q.pending, message)
}

func (d *dispatcher) drain(key int64, q *senderQueue) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(q.pending) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		d.mu.Unlock()

		d.handle(next)
	}
}

// wait blocks until every queued message has been handled.
func (d *dispatcher) wait() {
	d.wg.Wait()
}
