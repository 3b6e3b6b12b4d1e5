package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/scheduleme/backend/core"
)

type baseRepository struct {
	exec core.DBExecutor
}

func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps sql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// orderBy builds an ORDER BY clause from API field names. Fields missing from columns are
// dropped; fallback is used when nothing is left.
func orderBy(ordering []core.DBOrdering, columns map[string]string, fallback string) string {
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if col, ok := columns[ord.Field]; ok {
			orderList = append(orderList, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(orderList) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}

func sqlxSelect(ctx context.Context, exe core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, exe, dest, query, args...)
}

func sqlxGet(ctx context.Context, exe core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, exe, dest, query, args...)
}

// deleteByID returns notFound when no row was deleted.
func deleteByID(ctx context.Context, exe core.DBExecutor, table, id string, notFound error) error {
	res, err := exe.ExecContext(ctx, exe.Rebind("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
