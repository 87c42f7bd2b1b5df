package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stargate/backend/config"
	"stargate/backend/pkg/database"
	applogger "stargate/backend/pkg/logger"
)

// env 子命令共享的数据库连接
type env struct {
	db     *sql.DB
	logger *zap.Logger
}

func open(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	gdb, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return &env{db: sqlDB, logger: logger}, nil
}

func (e *env) close() {
	e.db.Close()
	_ = e.logger.Sync()
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "stargate-migrate",
		Short:        "Stargate 数据库迁移工具",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径")

	cmd.AddCommand(
		newUpCmd(&configPath),
		newDownCmd(&configPath),
		newVersionCmd(&configPath),
	)
	return cmd
}

func newUpCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "应用全部未执行的迁移",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := open(*configPath)
			if err != nil {
				return err
			}
			defer e.close()
			return database.RunMigrations(e.db, e.logger)
		},
	}
}

func newDownCmd(configPath *string) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "回滚迁移",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := open(*configPath)
			if err != nil {
				return err
			}
			defer e.close()
			return database.RollbackMigrations(e.db, steps, e.logger)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "回滚步数")
	return cmd
}

func newVersionCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示当前迁移版本",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := open(*configPath)
			if err != nil {
				return err
			}
			defer e.close()

			version, dirty, err := database.MigrationVersion(e.db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
