package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

type Config struct {
	// Addrs is empty when the lending journal is disabled.
	Addrs   []string      `yaml:"addrs" envconfig:"KAFKA_ADDRS"`
	Topic   string        `yaml:"topic" envconfig:"KAFKA_TOPIC" default:"bookshelf.books"`
	Timeout time.Duration `yaml:"timeout" envconfig:"KAFKA_TIMEOUT" default:"2s"`
}

func (c Config) Enabled() bool {
	return len(c.Addrs) > 0
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true
	defaultCfg.Producer.Timeout = cfg.Timeout
	defaultCfg.Net.DialTimeout = cfg.Timeout
	// keyed by book id so one book's events stay ordered
	defaultCfg.Producer.Partitioner = sarama.NewHashPartitioner

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}
