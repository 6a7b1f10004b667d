package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/finsmart-search/internal/cfg"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	applicationName = "finsmart-search"
	pingTimeout     = 5 * time.Second
)

// PgDatabase — пул соединений с PostgreSQL для журнала загрузок каталога и outbox.
type PgDatabase struct {
	Pool *pgxpool.Pool
	Dsn  string
}

// Connect открывает пул с application_name сервиса и проверяет соединение.
func Connect(ctx context.Context, cfg *cfg.PGDBCfg) (*PgDatabase, error) {
	const op = "PgDatabase.Connect"
	dsn := cfg.DSN()

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	db := &PgDatabase{Pool: pool, Dsn: dsn}
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, e.Wrap(op, err)
	}

	return db, nil
}

func (db *PgDatabase) Ping(ctx context.Context) error {
	const op = "PgDatabase.Ping"
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// Close корректно закрывает пул соединений к базе данных.
func (db *PgDatabase) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// RunMigrations поднимает схему до последней миграции из dir (по умолчанию db/migrations).
// Грязная схема после упавшей миграции требует ручного вмешательства и не чинится автоматически.
func (db *PgDatabase) RunMigrations(log logger.Logger, dir string) error {
	const op = "PgDatabase.RunMigrations"

	if dir == "" {
		dir = "db/migrations"
	}

	sqlDB, err := sql.Open("pgx", db.Dsn)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer sqlDB.Close()

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: "schema_migrations"})
	if err != nil {
		return e.Wrap(op, err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return e.Wrap(op, err)
	}

	if version, dirty, err := m.Version(); err == nil && dirty {
		return e.Wrap(op, fmt.Errorf("schema version %d is dirty", version))
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		log.Debugf("schema is up to date")
		return nil
	case err != nil:
		return e.Wrap(op, err)
	}

	version, _, _ := m.Version()
	log.Infof("schema migrated to version %d", version)
	return nil
}
