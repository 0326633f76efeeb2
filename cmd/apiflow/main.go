// =============================================================================
// apiflow 主入口
// =============================================================================
// 将 OpenAPI 3.x 文档编译为工具，并通过 MCP stdio 或命令行调用
//
// 使用方法:
//
//	apiflow serve --spec ./openapi.yaml           # 启动 MCP stdio 服务
//	apiflow serve --config apiflow.yaml           # 指定配置文件
//	apiflow list --spec https://example.com/api   # 打印工具目录
//	apiflow call getPet '{"petId":"1"}'           # 调用单个工具
//	apiflow version                               # 显示版本信息
// =============================================================================

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BaSui01/apiflow/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootFlags 是所有子命令共享的参数
type rootFlags struct {
	configPath string
	spec       string
	baseURL    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "apiflow",
		Short:         "Expose an OpenAPI 3.x API as callable tools",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file (YAML)")
	cmd.PersistentFlags().StringVar(&flags.spec, "spec", "", "OpenAPI document path or URL (overrides spec.source)")
	cmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "Upstream base URL (overrides spec.base_url)")

	cmd.AddCommand(
		newServeCmd(flags),
		newListCmd(flags),
		newCallCmd(flags),
		newVersionCmd(),
	)
	return cmd
}

// load 加载并校验配置，命令行参数优先于文件与环境变量
func (f *rootFlags) load() (*config.Config, error) {
	loader := config.NewLoader()
	if f.configPath != "" {
		loader = loader.WithConfigPath(f.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if f.spec != "" {
		cfg.Spec.Source = f.spec
	}
	if f.baseURL != "" {
		cfg.Spec.BaseURL = f.baseURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
