// cmd/migrate/main.go
package main

import (
	"boost-wallet/internal/config"
	"boost-wallet/internal/logger"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	dir := flag.String("dir", "", "каталог миграций (по умолчанию ./migrations)")
	flag.Parse()

	cfg := config.MustLoad()
	slog.SetDefault(logger.New(cfg.LogLevel))

	// up, down, status, version ... как в goose CLI
	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	db, err := sql.Open("pgx", cfg.DBConn)
	if err != nil {
		slog.Error("Не удалось открыть БД", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	migrationsDir := *dir
	if migrationsDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			slog.Error("Не удалось получить рабочую директорию", "error", err)
			os.Exit(1)
		}
		migrationsDir = filepath.Join(wd, "migrations")
	}

	if err := goose.SetDialect("postgres"); err != nil {
		slog.Error("Неизвестный диалект", "error", err)
		os.Exit(1)
	}

	slog.Info("Применяем миграции", "dir", migrationsDir, "command", command)

	if err := goose.Run(command, db, migrationsDir, flag.Args()[min(1, flag.NArg()):]...); err != nil {
		slog.Error("Миграции завершились с ошибкой", "error", err)
		os.Exit(1)
	}

	slog.Info("✅ Миграции применены")
}
