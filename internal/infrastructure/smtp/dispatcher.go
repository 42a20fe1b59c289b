package smtp

import "log/slog"

type message struct {
	to      string
	subject string
	body    string
}

// Dispatcher delivers mail off the request path. Enqueue returns
// immediately; a single background worker performs delivery and failures
// are logged, never reported to the enqueuer.
type Dispatcher struct {
	mailer Mailer
	queue  chan message
	done   chan struct{}
}

func NewDispatcher(mailer Mailer) *Dispatcher {
	d := &Dispatcher{
		mailer: mailer,
		queue:  make(chan message, 64),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	for m := range d.queue {
		if err := d.mailer.SendEmail(m.to, m.subject, m.body); err != nil {
			slog.Error("email delivery failed", "to", m.to, "subject", m.subject, "err", err)
		}
	}
	close(d.done)
}

// Enqueue hands a message to the worker. If the queue is full the message
// is dropped; delivery is best-effort.
func (d *Dispatcher) Enqueue(to, subject, body string) {
	select {
	case d.queue <- message{to: to, subject: subject, body: body}:
	default:
		slog.Warn("mail queue full, dropping message", "to", to, "subject", subject)
	}
}

// Close stops accepting new messages and waits for the worker to drain
// the queue.
func (d *Dispatcher) Close() {
	close(d.queue)
	<-d.done
}
