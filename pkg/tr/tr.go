// Package tr передаёт транзакцию PostgreSQL через context между usecase и репозиториями.
package tr

import (
	"context"

	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/jackc/pgx/v5"
)

type txKey struct{}

// WithTx кладёт открытую транзакцию в контекст. Репозитории, получившие такой контекст, пишут в неё.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromCtx извлекает транзакцию из контекста. Без неё возвращает e.ErrTransactionNotFound.
func TxFromCtx(ctx context.Context) (pgx.Tx, error) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok || tx == nil {
		return nil, e.ErrTransactionNotFound
	}

	return tx, nil
}
