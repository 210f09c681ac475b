// xbusctl 是 xbus 消息总线的命令行工具。
//
// 用法:
//
//	xbusctl -c <配置文件> <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config     配置文件路径（YAML 或 JSON，必需）
//	-l, --log-level  覆盖配置中的日志级别
//
// 命令:
//
//	consume          按配置消费主 Topic（可选同时消费重试 Topic）
//	publish          向指定 Topic 发布一批消息
//	check            校验配置并打印生效的 librdkafka 参数
//
// 退出码:
//
//	0: 成功
//	1: 运行失败（连接失败、批量发布存在失败、事务中止等）
//	2: 参数或配置错误
//
// 示例:
//
//	xbusctl -c xbus.yaml check
//	xbusctl -c xbus.yaml consume --watch --stats-interval 30s
//	xbusctl -c xbus.yaml consume --fail-every 3
//	xbusctl -c xbus.yaml publish -t orders -n 100 --mode sync
//	xbusctl -c xbus.yaml publish -t orders -n 10 --mode atomic
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout))
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xbusctl",
		Usage:   "xbus 消息总线命令行工具",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "配置文件路径（YAML 或 JSON）",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "覆盖配置中的日志级别 (debug/info/warn/error)",
			},
		},
		Commands: []*cli.Command{
			createConsumeCommand(),
			createPublishCommand(),
			createCheckCommand(),
		},
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一映射退出码。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	app := createApp()
	app.Writer = stdout
	if err := app.Run(ctx, args); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		if isCLIUsageError(err) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", err)
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}
