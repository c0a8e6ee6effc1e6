package storage

import (
	"context"
	"database/sql"

	"github.com/charmbracelet/log"
	_ "github.com/lib/pq"

	"HoldemSync/config"
)

// InitPostgres 打开连接池并等待数据库可用
func InitPostgres(ctx context.Context, dsn string, r config.Retry, logger *log.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	err = withRetry(ctx, "postgres", r, logger.WithPrefix("storage"), db.PingContext)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
