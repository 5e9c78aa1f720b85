// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gorse-io/decomp/backend"
	"github.com/gorse-io/decomp/common/util"
	"github.com/juju/errors"
	"github.com/samber/lo"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens a SQLite database file. ":memory:" opens a private
// in-memory database.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if path == ":memory:" {
		// every connection would see its own empty database
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// LoadSQLite reads columns of a table ordered by rowid, one sample per row.
// All columns are read when columns is empty. Values may be numbers or
// text; complex values are stored as text.
func LoadSQLite[T backend.Scalar](ctx context.Context, db *sql.DB, tableName string, columns []string, device backend.Device) (*backend.Array[T], *backend.Array[float64], error) {
	selected := "*"
	if len(columns) > 0 {
		selected = strings.Join(lo.Map(columns, func(c string, _ int) string { return quote(c) }), ", ")
	}
	rs, err := db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", selected, quote(tableName)))
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	defer rs.Close()
	names, err := rs.Columns()
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	t := table[T]{cols: len(names)}
	cells := make([]any, len(names))
	pointers := lo.Map(cells, func(_ any, i int) any { return &cells[i] })
	for rs.Next() {
		if err = rs.Scan(pointers...); err != nil {
			return nil, nil, errors.Trace(err)
		}
		for j, cell := range cells {
			v, missing, err := convert[T](cell)
			if err != nil {
				return nil, nil, errors.Annotatef(err, "row %d column %s", t.rows(), names[j])
			}
			t.append(v, missing)
		}
	}
	if err = rs.Err(); err != nil {
		return nil, nil, errors.Trace(err)
	}
	return t.build(device)
}

func convert[T backend.Scalar](cell any) (T, bool, error) {
	var zero T
	switch v := cell.(type) {
	case nil:
		return zero, true, nil
	case int64:
		return fromFloat[T](float64(v)), false, nil
	case float64:
		return fromFloat[T](v), false, nil
	case string:
		parsed, err := util.ParseScalar[T](v)
		return parsed, false, errors.Trace(err)
	case []byte:
		parsed, err := util.ParseScalar[T](string(v))
		return parsed, false, errors.Trace(err)
	default:
		return zero, false, errors.NotSupportedf("SQL value of type %T", cell)
	}
}

func fromFloat[T backend.Scalar](v float64) T {
	var zero T
	if _, ok := any(zero).(complex128); ok {
		return any(complex(v, 0)).(T)
	}
	return any(v).(T)
}

// SaveSQLite replaces a table with the matrix view of a. Columns are named
// c0, c1 and so on. Real matrices are stored as REAL, complex matrices as
// TEXT.
func SaveSQLite[T backend.Scalar](ctx context.Context, db *sql.DB, tableName string, a *backend.Array[T]) error {
	m := a.Matrix()
	columnType := "REAL"
	var zero T
	if _, ok := any(zero).(complex128); ok {
		columnType = "TEXT"
	}
	names := lo.Times(m.Cols, func(j int) string { return fmt.Sprintf("c%d", j) })
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(tableName)); err != nil {
		return errors.Trace(err)
	}
	definitions := lo.Map(names, func(name string, _ int) string { return name + " " + columnType })
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quote(tableName), strings.Join(definitions, ", "))); err != nil {
		return errors.Trace(err)
	}
	statement, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(tableName), strings.Join(names, ", "), strings.Join(lo.Times(m.Cols, func(int) string { return "?" }), ", ")))
	if err != nil {
		return errors.Trace(err)
	}
	defer statement.Close()
	args := make([]any, m.Cols)
	for i := 0; i < m.Rows; i++ {
		for j, v := range m.Row(i) {
			switch v := any(v).(type) {
			case complex128:
				args[j] = util.FormatScalar(v)
			default:
				args[j] = v
			}
		}
		if _, err = statement.ExecContext(ctx, args...); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(tx.Commit())
}
