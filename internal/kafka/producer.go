package kafka

import (
	"context"
	"sync"
	"time"

	"markethub-be/internal/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer buffers messages in memory and writes them from a single
// goroutine. Enqueueing never blocks the request path longer than the
// buffer allows, and after shutdown begins it drops messages instead
// of panicking, so in-flight HTTP requests can still call Publish
// while the server drains.
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	quit    chan struct{}
	closeCh chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox:   make(chan kafka.Message, buf),
		quit:    make(chan struct{}),
		closeCh: make(chan struct{}),
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				p.shutdown()
				return
			case <-p.quit:
				p.shutdown()
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

// shutdown flushes whatever is buffered and releases WaitClosed. The
// inbox channel is never closed; Enqueue checks the closed flag and a
// straggler that slips a message in after the drain just loses it.
func (p *Producer) shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			_ = p.w.Close()
			close(p.closeCh)
			return
		}
	}
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		logger.L().Error("kafka write failed",
			zap.String("topic", p.w.Topic),
			zap.ByteString("key", m.Key),
			zap.Error(err),
		)
	}
}

func (p *Producer) Enqueue(key, value []byte, headers ...kafka.Header) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		p.drop(key)
		return
	}

	m := kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
	select {
	case p.inbox <- m:
	case <-p.closeCh:
		p.drop(key)
	}
}

func (p *Producer) drop(key []byte) {
	logger.L().Warn("producer closed, message dropped",
		zap.String("topic", p.w.Topic),
		zap.ByteString("key", key),
	)
}

// Close stops accepting messages; the flush loop drains the buffer
// before exiting. Safe to call more than once.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.quit)
}

// WaitClosed blocks until the flush loop has exited.
func (p *Producer) WaitClosed() { <-p.closeCh }
