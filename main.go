package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/appkit/appkit/internal/config"
	"github.com/appkit/appkit/internal/logging"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	showHelp    bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showHelp {
		return 0
	}
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(*cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		for key, value := range cfg.LogFields() {
			fields[key] = value
		}
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	if err := serve(cfg, logger, opts.configPath); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务运行失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合 APPKIT_CONFIG 环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	var (
		opts    cliOptions
		invoked bool
	)

	cmd := &cobra.Command{
		Use:           "appkit",
		Short:         "Serve the Simple Todos API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			invoked = true
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdOut)
	cmd.SetErr(io.Discard)

	var configFlag string
	flags := cmd.Flags()
	flags.StringVar(&configFlag, "config", "", "配置文件路径（可被 APPKIT_CONFIG 提供，缺省仅使用默认值与环境变量）")
	flags.BoolVar(&opts.checkOnly, "check-config", false, "仅校验配置后退出")
	flags.BoolVar(&opts.showVersion, "version", false, "显示版本信息")

	if err := cmd.Execute(); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if !invoked {
		// --help 已输出帮助信息
		opts.showHelp = true
		return opts, nil
	}

	opts.configPath = os.Getenv("APPKIT_CONFIG")
	if configFlag != "" {
		opts.configPath = configFlag
	}
	if opts.checkOnly && opts.showVersion {
		return cliOptions{}, errors.New("解析参数失败: --check-config 与 --version 不能同时使用")
	}
	return opts, nil
}
