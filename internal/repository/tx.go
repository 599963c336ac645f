package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

// Transactor runs fn inside a single database transaction. Repositories called with
// the ctx passed to fn join that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	SetDB(db *gorm.DB)
}

type txKey struct{}

type gormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.db == nil {
		return ErrDBNotReady
	}
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (t *gormTransactor) SetDB(db *gorm.DB) {
	t.db = db
}

// conn returns the transaction bound to ctx, or db when there is none.
func conn(ctx context.Context, db *gorm.DB) (*gorm.DB, error) {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx), nil
	}
	if db == nil {
		return nil, ErrDBNotReady
	}
	return db.WithContext(ctx), nil
}
