package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// BatchDB is the handle batch jobs use. With tracing on, every statement is
// recorded as an X-Ray subsegment.
type BatchDB struct {
	*sqlx.DB
}

// OpenBatchDB connects through lib/pq, wrapped by X-Ray when tracing is on.
func OpenBatchDB(ctx context.Context, cfg Config, tracing bool) (*BatchDB, error) {
	var (
		db  *sql.DB
		err error
	)
	if tracing {
		db, err = xray.SQLContext("postgres", cfg.DSN())
	} else {
		db, err = sql.Open("postgres", cfg.DSN())
	}
	if err != nil {
		return nil, fmt.Errorf("open batch db: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping batch db: %w", err)
	}
	return &BatchDB{sqlx.NewDb(db, "postgres")}, nil
}

// BeginTxx starts a transaction traced as its own subsegment.
func (db *BatchDB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BatchDB.BeginTx")
	if seg != nil {
		defer seg.Close(nil)
	}
	return db.DB.BeginTxx(ctx, opts)
}

// SelectContext runs a query and scans every row into dest.
func (db *BatchDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	ctx, seg := xray.BeginSubsegment(ctx, "BatchDB.Select")
	if seg == nil {
		return db.DB.SelectContext(ctx, dest, query, args...)
	}
	if err := seg.AddMetadata("query", query); err != nil {
		log.Printf("add query metadata: %v", err)
	}
	err := db.DB.SelectContext(ctx, dest, query, args...)
	seg.Close(err)
	return err
}

// ExecContext runs a statement.
func (db *BatchDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BatchDB.Exec")
	if seg == nil {
		return db.DB.ExecContext(ctx, query, args...)
	}
	if err := seg.AddMetadata("query", query); err != nil {
		log.Printf("add query metadata: %v", err)
	}
	res, err := db.DB.ExecContext(ctx, query, args...)
	seg.Close(err)
	return res, err
}
