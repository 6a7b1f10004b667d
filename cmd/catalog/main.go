package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/DRSN-tech/finsmart-search/internal/app"
	config "github.com/DRSN-tech/finsmart-search/internal/cfg"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:           "catalog",
		Short:         "Загрузка каталога товаров в векторный индекс",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newIngestCmd(log), newResetCmd(log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Errorf(err, "catalog command failed")
		_ = log.Sync()
		stop()
		os.Exit(1)
	}
	_ = log.Sync()
}

func newIngestCmd(log logger.Logger) *cobra.Command {
	var (
		source string
		path   string
		reset  bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Векторизовать CSV каталога и записать товары в индекс",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			catalog, err := openCatalog(ctx, log, !reset)
			if err != nil {
				return err
			}
			defer catalog.Close()

			src, err := catalog.Source(ctx, source, path)
			if err != nil {
				return err
			}

			if reset {
				if err := catalog.UC.ResetIndex(ctx); err != nil {
					return err
				}
				log.Infof("index reset before ingestion")
			}

			report, err := catalog.UC.Ingest(ctx, src)
			if report != nil {
				fmt.Fprintf(cmd.OutOrStdout(),
					"run %s: files=%d rows=%d skipped=%d written=%d lost=%d failed_batches=%d\n",
					report.RunID, report.Files, report.RowsRead, report.RowsSkipped,
					report.PointsWritten, report.PointsLost, report.BatchesFailed,
				)
			}

			return err
		},
	}

	cmd.Flags().StringVar(&source, "source", app.SourceDir, "источник CSV: dir или minio")
	cmd.Flags().StringVar(&path, "path", "", "директория (dir) или префикс объектов (minio); по умолчанию из окружения")
	cmd.Flags().BoolVar(&reset, "reset", false, "пересоздать коллекцию перед загрузкой")

	return cmd
}

func newResetCmd(log logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Удалить коллекцию со всеми товарами и создать пустую",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			catalog, err := openCatalog(ctx, log, false)
			if err != nil {
				return err
			}
			defer catalog.Close()

			if err := catalog.UC.ResetIndex(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "collection recreated")
			return nil
		},
	}
}

func openCatalog(ctx context.Context, log logger.Logger, ensureCollection bool) (*app.Catalog, error) {
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}

	return app.NewCatalog(ctx, cfg, log, ensureCollection)
}
