package xbus

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xbus/pkg/config/xconf"
	"github.com/omeyang/xbus/pkg/mq/xconsume"
	"github.com/omeyang/xbus/pkg/mq/xpublish"
	"github.com/omeyang/xbus/pkg/observability/xlog"
)

// ConfigDelim 加载配置使用的路径分隔符。
const ConfigDelim = "/"

// Config 总线配置。
type Config struct {
	// Kafka 消费者与生产者共用的 librdkafka 参数。
	Kafka map[string]any `koanf:"kafka"`

	Consumer  ConsumerConfig  `koanf:"consumer"`
	Publisher PublisherConfig `koanf:"publisher"`
	Log       LogConfig       `koanf:"log"`
}

// ConsumerConfig 消费侧配置。
type ConsumerConfig struct {
	xconsume.Config `koanf:",squash"`

	// PollTimeout 单次 Poll 的等待上限，0 使用 xkafka 默认值。
	PollTimeout time.Duration `koanf:"poll_timeout"`

	// Kafka 仅消费者使用的 librdkafka 参数，覆盖公共参数。
	Kafka map[string]any `koanf:"kafka"`
}

// PublisherConfig 发布侧配置。
type PublisherConfig struct {
	xpublish.Config `koanf:",squash"`

	// Kafka 仅生产者使用的 librdkafka 参数，覆盖公共参数。
	Kafka map[string]any `koanf:"kafka"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig 发布熔断配置。关闭时不创建熔断器。
type BreakerConfig struct {
	Enabled bool `koanf:"enabled"`
	// ConsecutiveFailures 连续失败多少次后打开熔断，默认 5。
	ConsecutiveFailures uint32 `koanf:"consecutive_failures"`
	// MaxRequests 半开状态允许通过的请求数。
	MaxRequests uint32 `koanf:"max_requests"`
	// Interval 关闭状态下清零计数的周期，0 表示不清零。
	Interval time.Duration `koanf:"interval"`
	// Timeout 打开状态持续多久后进入半开。
	Timeout time.Duration `koanf:"timeout"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level     string              `koanf:"level"`
	Format    string              `koanf:"format"`
	AddSource bool                `koanf:"add_source"`
	File      string              `koanf:"file"`
	Rotation  xlog.RotationConfig `koanf:"rotation"`
}

// DefaultConfig 返回默认配置，Kafka 参数为空。
func DefaultConfig() Config {
	return Config{
		Consumer:  ConsumerConfig{Config: xconsume.DefaultConfig()},
		Publisher: PublisherConfig{Config: xpublish.DefaultConfig()},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig 从 YAML 或 JSON 文件加载配置，未出现的字段保留默认值。
func LoadConfig(path string) (Config, *xconf.Source, error) {
	src, err := xconf.Load(path, xconf.WithDelim(ConfigDelim))
	if err != nil {
		return Config{}, nil, err
	}
	cfg, err := Decode(src)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, src, nil
}

// Decode 从已加载的配置源解出 Config，供热加载回调复用。
func Decode(src *xconf.Source) (Config, error) {
	cfg := DefaultConfig()
	if err := src.Unmarshal("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 校验消费侧配置与必需的 librdkafka 参数。
func (c Config) Validate() error {
	if err := c.Consumer.Validate(); err != nil {
		return err
	}
	cm, err := c.ConsumerKafka()
	if err != nil {
		return err
	}
	if _, ok := cm["group.id"]; !ok {
		return ErrMissingGroupID
	}
	_, err = c.ProducerKafka()
	return err
}

// ConsumerKafka 返回消费者使用的 librdkafka 参数。
// enable.auto.commit 始终跟随 Consumer.AutoCommit，手动提交模式下由引擎逐条提交。
func (c Config) ConsumerKafka() (kafka.ConfigMap, error) {
	cm, err := mergeKafka(c.Kafka, c.Consumer.Kafka)
	if err != nil {
		return nil, err
	}
	cm["enable.auto.commit"] = c.Consumer.AutoCommit
	return cm, nil
}

// ProducerKafka 返回生产者使用的 librdkafka 参数。
func (c Config) ProducerKafka() (kafka.ConfigMap, error) {
	return mergeKafka(c.Kafka, c.Publisher.Kafka)
}

// retryProducerKafka 伴随生产者的参数：公共参数即可，不继承发布侧的事务 ID，
// 否则与发布生产者争用同一个 transactional.id。
func (c Config) retryProducerKafka() (kafka.ConfigMap, error) {
	cm, err := mergeKafka(c.Kafka, c.Publisher.Kafka)
	if err != nil {
		return nil, err
	}
	delete(cm, "transactional.id")
	return cm, nil
}

// BreakerSettings 转换为 gobreaker 配置，未启用时 ok 为 false。
func (b BreakerConfig) BreakerSettings(name string) (settings gobreaker.Settings, ok bool) {
	if !b.Enabled {
		return gobreaker.Settings{}, false
	}
	threshold := b.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: b.MaxRequests,
		Interval:    b.Interval,
		Timeout:     b.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}, true
}

// mergeKafka 依次合并参数表，后者覆盖前者，并把值规整为 librdkafka 接受的类型。
func mergeKafka(layers ...map[string]any) (kafka.ConfigMap, error) {
	cm := kafka.ConfigMap{}
	for _, layer := range layers {
		for k, v := range layer {
			value, err := kafkaValue(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidKafkaValue, k, err)
			}
			cm[k] = value
		}
	}
	if _, ok := cm["bootstrap.servers"]; !ok {
		return nil, ErrMissingBootstrap
	}
	return cm, nil
}

// kafkaValue librdkafka 只接受 string、bool、int。
// YAML 解出 int 或 int64，JSON 解出 float64，这里统一收敛。
func kafkaValue(v any) (kafka.ConfigValue, error) {
	switch x := v.(type) {
	case string, bool, int:
		return x, nil
	case int64:
		if x > math.MaxInt || x < math.MinInt {
			return nil, fmt.Errorf("integer %d out of range", x)
		}
		return int(x), nil
	case uint64:
		if x > math.MaxInt {
			return nil, fmt.Errorf("integer %d out of range", x)
		}
		return int(x), nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) <= math.MaxInt32 {
			return int(x), nil
		}
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case []any:
		// bootstrap.servers 等列表参数允许写成 YAML 数组
		parts := make([]string, 0, len(x))
		for _, item := range x {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list element %T", item)
			}
			parts = append(parts, str)
		}
		return strings.Join(parts, ","), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
