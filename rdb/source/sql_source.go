package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/hatlonely/harvest/cfg/validator"
	"github.com/hatlonely/harvest/rdb/query"
	"github.com/hatlonely/harvest/rdb/record"
)

type SQLSourceOptions struct {
	Driver   string `cfg:"driver" def:"mysql" validate:"oneof=mysql sqlite3"`
	DSN      string `cfg:"dsn"`
	Host     string `cfg:"host" def:"localhost"`
	Port     string `cfg:"port" def:"3306"`
	Database string `cfg:"database"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`
	Charset  string `cfg:"charset" def:"utf8mb4"`
	MaxConns int    `cfg:"maxConns" def:"10"`
	MaxIdle  int    `cfg:"maxIdle" def:"5"`

	Tables Tables `cfg:"tables"`
}

// SQLSource 基于 database/sql 的数据源，过滤条件通过 Query.ToSQL 下推
type SQLSource struct {
	db     *sql.DB
	driver string
	tables Tables
}

func NewSQLSourceWithOptions(options *SQLSourceOptions) (*SQLSource, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if err := validator.ValidateStruct(options); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}

	dsn := options.DSN
	if dsn == "" {
		switch options.Driver {
		case "mysql":
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
				options.Username, options.Password, options.Host, options.Port, options.Database, options.Charset)
		case "sqlite3":
			dsn = options.Database
		default:
			return nil, errors.Errorf("unsupported driver: %s", options.Driver)
		}
	}

	db, err := sql.Open(options.Driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sql.Open failed")
	}
	if options.MaxConns > 0 {
		db.SetMaxOpenConns(options.MaxConns)
	}
	if options.MaxIdle > 0 {
		db.SetMaxIdleConns(options.MaxIdle)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "db.Ping failed")
	}

	return NewSQLSource(db, options.Driver, options.Tables), nil
}

func NewSQLSource(db *sql.DB, driver string, tables Tables) *SQLSource {
	return &SQLSource{db: db, driver: driver, tables: tables}
}

// buildSelect 生成查询语句，表名和排序字段只允许标识符
func buildSelect(driver string, table string, q query.Query, options *FetchOptions) (string, []any, error) {
	if err := query.CheckField(table); err != nil {
		return "", nil, errors.Wrap(err, "invalid table")
	}

	var sb strings.Builder
	var args []any
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(table)

	if q != nil {
		where, whereArgs, err := q.ToSQL()
		if err != nil {
			return "", nil, errors.WithMessage(err, "query.ToSQL failed")
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
		args = whereArgs
	}

	if options.OrderBy != "" {
		if err := query.CheckField(options.OrderBy); err != nil {
			return "", nil, errors.Wrap(err, "invalid order by")
		}
		direction := "ASC"
		if options.OrderDesc {
			direction = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", options.OrderBy, direction)
	}

	switch {
	case options.Limit > 0:
		fmt.Fprintf(&sb, " LIMIT %d", options.Limit)
	case options.Offset > 0 && driver == "sqlite3":
		sb.WriteString(" LIMIT -1")
	case options.Offset > 0:
		sb.WriteString(" LIMIT 18446744073709551615")
	}
	if options.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", options.Offset)
	}

	return sb.String(), args, nil
}

func (s *SQLSource) FetchAll(ctx context.Context, entity record.Entity, q query.Query, opts ...FetchOption) ([]record.Record, error) {
	table, err := s.tables.Resolve(entity)
	if err != nil {
		return nil, err
	}

	sqlStr, args, err := buildSelect(s.driver, table, q, NewFetchOptions(opts...))
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s failed", table)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "rows.Columns failed")
	}

	records := []record.Record{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "rows.Scan failed")
		}

		r := make(record.Record, len(columns))
		for i, col := range columns {
			// mysql 的文本列返回 []byte
			if b, ok := values[i].([]byte); ok {
				r[col] = string(b)
				continue
			}
			r[col] = values[i]
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows.Err")
	}
	return records, nil
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}
