package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sales_engine/api"
	"sales_engine/internal/config"
	"sales_engine/internal/logger"
	"sales_engine/internal/sales"
	"sales_engine/internal/sales/redispub"
	"sales_engine/internal/sales/sqlstore"
	"sales_engine/internal/tracing"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sales",
		Short:         "Sales order lifecycle service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCommand(), newMigrateCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	var addr, driver string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if driver != "" {
				cfg.DBDriver = driver
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides SALES_ADDR)")
	cmd.Flags().StringVar(&driver, "driver", "", "storage driver: memory, sqlite or postgres (overrides SALES_DB_DRIVER)")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the sales tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DBDriver == "memory" {
				return fmt.Errorf("migrate needs SALES_DB_DRIVER=sqlite or postgres")
			}
			log, err := logger.New(cfg.LogMode)
			if err != nil {
				return err
			}
			defer log.Sync()

			store, err := sqlstore.Open(cfg.DBDriver, cfg.DBDSN, log)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Migrate(cmd.Context())
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	shutdown, err := tracing.Init(log, cfg.TraceStdout)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	storage, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()

	publisher, closePublisher, err := openPublisher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	numberer, err := sales.NewSnowflakeNumberer(cfg.NodeID)
	if err != nil {
		return err
	}

	salesService := sales.NewService(storage, publisher, numberer, log)

	r := gin.Default()
	api.InitRoutes(r, salesService, log)

	log.Info("listening", zap.String("addr", cfg.Addr), zap.String("driver", cfg.DBDriver))
	if err := r.Run(cfg.Addr); err != nil {
		return fmt.Errorf("error trying to start server: %w", err)
	}
	return nil
}

func openStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (sales.Storage, func() error, error) {
	if cfg.DBDriver == "memory" {
		return sales.NewLocalStorage(), func() error { return nil }, nil
	}
	store, err := sqlstore.Open(cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, store.Close, nil
}

func openPublisher(ctx context.Context, cfg config.Config, log *zap.Logger) (sales.Publisher, func() error, error) {
	logPub := sales.NewLogPublisher(log)
	if cfg.RedisAddr == "" {
		return logPub, func() error { return nil }, nil
	}
	redisPub, rdb, err := redispub.Dial(ctx, cfg.RedisAddr, cfg.RedisChannel)
	if err != nil {
		return nil, nil, err
	}
	return sales.MultiPublisher{logPub, redisPub}, rdb.Close, nil
}
