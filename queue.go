package redis_go

// pendingCallback is the continuation of one sent command. gen identifies the
// connection the command was sent on.
type pendingCallback struct {
	gen uint64
	fn  ReplyCallback
}

// callbackQueue is a FIFO of pending callbacks. Entries are appended with
// non-decreasing generations. It is not safe for concurrent use.
type callbackQueue struct {
	items []pendingCallback
	head  int
}

func (q *callbackQueue) len() int {
	return len(q.items) - q.head
}

func (q *callbackQueue) push(gen uint64, fn ReplyCallback) {
	q.items = append(q.items, pendingCallback{gen: gen, fn: fn})
}

// pop removes the head entry if it belongs to gen. Entries of older
// generations in front of it are dropped on the way and counted in stale.
func (q *callbackQueue) pop(gen uint64) (fn ReplyCallback, ok bool, stale int) {
	for q.len() > 0 && q.items[q.head].gen < gen {
		q.drop()
		stale++
	}
	if q.len() == 0 || q.items[q.head].gen != gen {
		return nil, false, stale
	}
	fn = q.items[q.head].fn
	q.drop()
	return fn, true, stale
}

// discard drops every entry of generation gen or older and returns how many.
func (q *callbackQueue) discard(gen uint64) int {
	n := 0
	for q.len() > 0 && q.items[q.head].gen <= gen {
		q.drop()
		n++
	}
	return n
}

func (q *callbackQueue) drop() {
	q.items[q.head] = pendingCallback{}
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head > 64 && q.head*2 > len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
}
