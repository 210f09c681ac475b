package xconsume

import (
	"fmt"
	"slices"
	"time"
)

// TopicSpec 描述一个主 Topic。
// Partitions 非空时手动分配这些分区，否则按名称订阅由 Broker 分配。
type TopicSpec struct {
	Name       string  `koanf:"name"`
	Partitions []int32 `koanf:"partitions"`
}

// Config 消费引擎配置。
type Config struct {
	// Topics 主 Topic 列表，至少一个。
	Topics []TopicSpec `koanf:"topics"`

	// RetryTopic 重试 Topic，为空时失败消息只记录错误并提交，不转交。
	RetryTopic string `koanf:"retry_topic"`

	// DeadLetterTopic 死信 Topic，为空时只记录日志。
	DeadLetterTopic string `koanf:"dead_letter_topic"`

	// RetryLimit 最大重试次数（转交重试 Topic 的总次数）。
	RetryLimit int `koanf:"retry_limit"`

	// RetryDelay 每次转交时写入的 not-before 偏移。
	RetryDelay time.Duration `koanf:"retry_delay"`

	// EndOfPartitionDelay 读到分区末尾后的等待时间，0 表示不等待。
	EndOfPartitionDelay time.Duration `koanf:"end_of_partition_delay"`

	// MaxConcurrentMessages 在途消息上限，<= 1 表示逐条处理。
	MaxConcurrentMessages int `koanf:"max_concurrent_messages"`

	// AutoCommit 为 true 时不显式提交 offset，由客户端自动提交。
	AutoCommit bool `koanf:"auto_commit"`

	// RetryTopicConsumption 是否同时运行重试 Topic 消费循环。
	RetryTopicConsumption bool `koanf:"retry_topic_consumption"`

	// RetryPollDelay 重试消息未到期时，Seek 回退前的等待时间。
	RetryPollDelay time.Duration `koanf:"retry_poll_delay"`

	// MaxLoopAttempts 消费循环连续失败的上限，<= 0 表示无限。
	MaxLoopAttempts int `koanf:"max_loop_attempts"`
}

// DefaultConfig 返回默认配置（不含 Topic）。
func DefaultConfig() Config {
	return Config{
		RetryLimit:            3,
		MaxConcurrentMessages: 1,
		RetryPollDelay:        time.Second,
		MaxLoopAttempts:       10,
	}
}

// Validate 校验配置。
func (c Config) Validate() error {
	if len(c.Topics) == 0 {
		return ErrNoTopics
	}
	names := c.TopicNames()
	for i, t := range c.Topics {
		if t.Name == "" {
			return fmt.Errorf("%w: topics[%d]", ErrEmptyTopicName, i)
		}
	}
	if c.RetryTopic != "" {
		if slices.Contains(names, c.RetryTopic) {
			return fmt.Errorf("%w: retry topic %q is also a primary topic", ErrTopicConflict, c.RetryTopic)
		}
		if c.RetryTopic == c.DeadLetterTopic {
			return fmt.Errorf("%w: retry topic %q is also the dead letter topic", ErrTopicConflict, c.RetryTopic)
		}
	}
	if c.DeadLetterTopic != "" && slices.Contains(names, c.DeadLetterTopic) {
		return fmt.Errorf("%w: dead letter topic %q is also a primary topic", ErrTopicConflict, c.DeadLetterTopic)
	}
	if c.RetryLimit < 0 {
		return fmt.Errorf("%w: retry_limit %d < 0", ErrInvalidConfig, c.RetryLimit)
	}
	if c.RetryDelay < 0 || c.EndOfPartitionDelay < 0 || c.RetryPollDelay < 0 {
		return fmt.Errorf("%w: negative delay", ErrInvalidConfig)
	}
	if c.RetryTopicConsumption && c.RetryTopic == "" {
		return ErrRetryTopicRequired
	}
	return nil
}

// TopicNames 返回全部主 Topic 名称。
func (c Config) TopicNames() []string {
	names := make([]string, 0, len(c.Topics))
	for _, t := range c.Topics {
		names = append(names, t.Name)
	}
	return names
}
