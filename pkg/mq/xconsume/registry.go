package xconsume

import (
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// partitionKey 在途登记表的键。
type partitionKey struct {
	topic     string
	partition int32
}

func keyOf(tp kafka.TopicPartition) partitionKey {
	k := partitionKey{partition: tp.Partition}
	if tp.Topic != nil {
		k.topic = *tp.Topic
	}
	return k
}

// op 一次消息处理，done 在处理结束后关闭。
type op struct {
	done chan struct{}
}

// registry 记录每个分区最近一次派发且仍在运行的处理。
//
// 设计决策: 条目在 done 关闭之前移除，且只移除仍是自己的条目。
// 这样等待者从 done 醒来时登记表已经不含该处理，drain 返回即为空表。
type registry struct {
	mu  sync.Mutex
	ops map[partitionKey]*op
}

func newRegistry() *registry {
	return &registry{ops: make(map[partitionKey]*op)}
}

// start 登记一个新处理并返回。
func (r *registry) start(key partitionKey) *op {
	o := &op{done: make(chan struct{})}
	r.mu.Lock()
	r.ops[key] = o
	r.mu.Unlock()
	return o
}

// finish 移除 o 并唤醒等待者。
func (r *registry) finish(key partitionKey, o *op) {
	r.mu.Lock()
	if r.ops[key] == o {
		delete(r.ops, key)
	}
	r.mu.Unlock()
	close(o.done)
}

// wait 阻塞直到 key 当前登记的处理结束。
func (r *registry) wait(key partitionKey) {
	r.mu.Lock()
	o := r.ops[key]
	r.mu.Unlock()
	if o != nil {
		<-o.done
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

// drain 等待全部在途处理结束，返回时登记表为空。
func (r *registry) drain() {
	for {
		r.mu.Lock()
		pending := make([]*op, 0, len(r.ops))
		for _, o := range r.ops {
			pending = append(pending, o)
		}
		r.mu.Unlock()
		if len(pending) == 0 {
			return
		}
		for _, o := range pending {
			<-o.done
		}
	}
}
