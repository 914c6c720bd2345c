package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/infra/config"
)

// Producer publishes event envelopes on an async sarama producer.
type Producer struct {
	producer sarama.AsyncProducer
	logger   *zap.Logger
	cfg      config.KafkaSettings
	drained  chan struct{}
}

// NewProducer connects to the configured brokers.
func NewProducer(cfg config.KafkaSettings, logger *zap.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("create kafka producer: no brokers configured")
	}

	async, err := sarama.NewAsyncProducer(cfg.Brokers, producerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logger.Info("Kafka producer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic_prefix", cfg.TopicPrefix),
		zap.Bool("async", cfg.Async),
	)

	return newProducer(async, cfg, logger), nil
}

func newProducer(async sarama.AsyncProducer, cfg config.KafkaSettings, logger *zap.Logger) *Producer {
	p := &Producer{
		producer: async,
		logger:   logger,
		cfg:      cfg,
		drained:  make(chan struct{}),
	}
	go p.logErrors()
	return p
}

// producerConfig favours throughput when Async is set. Otherwise every write
// waits for all in-sync replicas and the producer is idempotent.
func producerConfig(cfg config.KafkaSettings) *sarama.Config {
	c := sarama.NewConfig()
	c.Version = sarama.V3_5_0_0

	// Events for one entity share a key; hash partitioning keeps them ordered.
	c.Producer.Partitioner = sarama.NewHashPartitioner
	c.Producer.Return.Successes = false
	c.Producer.Return.Errors = true
	c.Metadata.Retry.Max = 3
	c.Metadata.Retry.Backoff = 250 * time.Millisecond

	if cfg.Async {
		c.Producer.RequiredAcks = sarama.WaitForLocal
		c.Producer.Compression = sarama.CompressionSnappy
		c.Producer.Flush.Frequency = 100 * time.Millisecond
		c.Producer.Flush.Messages = 100
		c.Producer.Retry.Max = 3
		return c
	}

	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Idempotent = true
	c.Producer.Retry.Max = 5
	c.Net.MaxOpenRequests = 1
	return c
}

// logErrors runs until sarama closes the error channel during shutdown.
func (p *Producer) logErrors() {
	defer close(p.drained)
	for perr := range p.producer.Errors() {
		fields := []zap.Field{zap.Error(perr.Err)}
		if perr.Msg != nil {
			fields = append(fields,
				zap.String("topic", perr.Msg.Topic),
				zap.Int32("partition", perr.Msg.Partition),
			)
		}
		p.logger.Error("Kafka producer error", fields...)
	}
}

// Producer returns the underlying Sarama AsyncProducer
func (p *Producer) Producer() sarama.AsyncProducer {
	return p.producer
}

// Close flushes buffered messages and waits for outstanding errors to be logged.
func (p *Producer) Close() error {
	p.logger.Info("Closing Kafka producer")
	p.producer.AsyncClose()
	<-p.drained
	return nil
}

// TopicName maps an event type onto its topic, e.g. "PurchaseRequestSubmitted"
// becomes "books.purchase_request_submitted" and "order.paid" becomes "books.order.paid".
func (p *Producer) TopicName(eventType string) string {
	name := snakeCase(eventType)
	if p.cfg.TopicPrefix == "" {
		return name
	}

	prefix := p.cfg.TopicPrefix + "."
	if strings.HasPrefix(name, prefix) {
		return name
	}
	return prefix + name
}

func snakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '.' && s[i-1] != '_' {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
