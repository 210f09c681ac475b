// Package e2e 包含依赖真实 Kafka 的端到端测试，需 Docker 环境：
//
//	go test -tags integration ./internal/e2e/...
package e2e
