package xconsume

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   error
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "no topics", modify: func(c *Config) { c.Topics = nil }, want: ErrNoTopics},
		{name: "empty topic name", modify: func(c *Config) { c.Topics = append(c.Topics, TopicSpec{}) }, want: ErrEmptyTopicName},
		{name: "retry equals primary", modify: func(c *Config) { c.RetryTopic = "orders" }, want: ErrTopicConflict},
		{name: "retry equals dead letter", modify: func(c *Config) { c.DeadLetterTopic = c.RetryTopic }, want: ErrTopicConflict},
		{name: "dead letter equals primary", modify: func(c *Config) { c.DeadLetterTopic = "orders" }, want: ErrTopicConflict},
		{name: "negative limit", modify: func(c *Config) { c.RetryLimit = -1 }, want: ErrInvalidConfig},
		{name: "negative delay", modify: func(c *Config) { c.EndOfPartitionDelay = -time.Second }, want: ErrInvalidConfig},
		{
			name: "retry consumption without retry topic",
			modify: func(c *Config) {
				c.RetryTopic = ""
				c.RetryTopicConsumption = true
			},
			want: ErrRetryTopicRequired,
		},
		{name: "no retry and no dead letter", modify: func(c *Config) { c.RetryTopic, c.DeadLetterTopic = "", "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.RetryLimit)
	assert.Equal(t, 1, cfg.MaxConcurrentMessages)
	assert.Equal(t, time.Second, cfg.RetryPollDelay)
	assert.Equal(t, 10, cfg.MaxLoopAttempts)
	require.ErrorIs(t, cfg.Validate(), ErrNoTopics)
}
