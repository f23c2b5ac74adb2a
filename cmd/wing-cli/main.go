package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"wing-analyzer/internal/cli"
	"wing-analyzer/internal/config"
)

const Prompt = "wing> "

// App 应用程序主结构
type App struct {
	client   *cli.Client
	registry *cli.CommandRegistry
}

// NewApp 创建新的应用程序实例
func NewApp(serverURL, token string) (*App, error) {
	client := cli.NewClient(serverURL, token)
	registry := cli.NewCommandRegistry()

	if err := cli.RegisterDefaults(registry, client); err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}

	return &App{
		client:   client,
		registry: registry,
	}, nil
}

// runInteractive 运行交互式模式
func (a *App) runInteractive() {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Wing CLI - Wing 销量分析中继命令行客户端")
	fmt.Printf("中继地址: %s\n", a.client.ServerURL())
	fmt.Println("输入 'help' 查看帮助，输入 'exit' 或 'quit' 退出")
	fmt.Println()

	ctx := context.Background()

	for {
		fmt.Print(Prompt)

		if !scanner.Scan() {
			break
		}

		commandName, args := cli.ParseCommand(scanner.Text())
		if commandName == "" {
			continue
		}

		cmd, ok := a.registry.Get(commandName)
		if !ok {
			fmt.Printf("未知命令: %s\n", commandName)
			fmt.Println("输入 'help' 查看帮助")
			continue
		}

		if err := cmd.Execute(ctx, args); err != nil {
			if errors.Is(err, cli.ErrExit) {
				return
			}
			fmt.Printf("错误: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Printf("读取输入时出错: %v\n", err)
	}
}

// runCommand 运行单个命令（非交互式模式）
func (a *App) runCommand(commandName string, args []string) error {
	cmd, ok := a.registry.Get(commandName)
	if !ok {
		return fmt.Errorf("未知命令: %s\n输入 'wing-cli help' 查看帮助", commandName)
	}

	err := cmd.Execute(context.Background(), args)
	if errors.Is(err, cli.ErrExit) {
		return nil
	}
	return err
}

// getServerURL 获取中继地址与内部接口令牌
func getServerURL() (string, string) {
	var token string

	cfg, err := config.Load("")
	if err == nil {
		token = cfg.Server.InternalToken
	}

	if serverURL := os.Getenv("WING_RELAY_URL"); serverURL != "" {
		return serverURL, token
	}

	if err == nil && cfg.Server.Enabled {
		return fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port), token
	}

	return cli.DefaultServerURL, token
}

func main() {
	serverURL, token := getServerURL()
	app, err := NewApp(serverURL, token)
	if err != nil {
		fmt.Printf("错误: %v\n", err)
		os.Exit(1)
	}

	// 带参数时执行单个命令
	if len(os.Args) > 1 {
		commandName := strings.ToLower(os.Args[1])
		args := os.Args[2:]

		if commandName == "--help" || commandName == "-h" {
			if len(args) > 0 {
				fmt.Println(app.registry.HelpForCommand(args[0]))
			} else {
				fmt.Println(app.registry.Help())
			}
			return
		}

		if err := app.runCommand(commandName, args); err != nil {
			fmt.Printf("错误: %v\n", err)
			os.Exit(1)
		}
		return
	}

	app.runInteractive()
}
