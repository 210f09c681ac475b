// Package xbus 把消费、发布与配置组装成一个可直接运行的消息总线。
//
// 一份配置文件描述全部内容：
//
//	kafka:                      # 消费者与生产者共用的 librdkafka 参数
//	  bootstrap.servers: localhost:9092
//	consumer:
//	  topics: [{name: orders}]
//	  retry_topic: orders.retry
//	  dead_letter_topic: orders.dlq
//	  retry_limit: 3
//	  retry_delay: 30s
//	  kafka:                    # 仅消费者使用
//	    group.id: orders-svc
//	publisher:
//	  flush_timeout: 10s
//	  kafka:                    # 仅生产者使用
//	    transactional.id: orders-svc-tx
//	log:
//	  level: info
//
// 配置了 transactional.id 的发布器只能使用 PublishAtomic，其余发布方式
// 需要不带事务 ID 的配置。
//
// librdkafka 参数名本身带点，配置按 "/" 分隔路径加载，点号键保持原样。
//
// Bus 为每个消费引擎创建独立的消费者与伴随生产者，发布侧另用一个生产者；
// 三者共享 kafka 段参数，各自的 kafka 段覆盖同名键。
package xbus
