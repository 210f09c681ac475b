package main

import (
	"errors"
	"fmt"
	"strings"
)

// exitError 命令已完成输出，只需设置非零退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// usageError 参数或配置错误，退出码 2。
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func usage(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// cliUsageMarkers urfave/cli 参数错误消息中的特征片段，它没有导出错误类型。
var cliUsageMarkers = []string{
	"Required flag",
	"flag provided but not defined",
	"invalid value",
	"No help topic",
}

// isCLIUsageError 识别 CLI 框架产生的参数错误。
func isCLIUsageError(err error) bool {
	var ue *usageError
	if errors.As(err, &ue) {
		return true
	}
	msg := err.Error()
	for _, marker := range cliUsageMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
