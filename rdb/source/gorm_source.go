package source

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hatlonely/harvest/cfg/validator"
	"github.com/hatlonely/harvest/rdb/query"
	"github.com/hatlonely/harvest/rdb/record"
)

type GormSourceOptions struct {
	// Driver 数据库驱动：sqlite, mysql
	Driver string `cfg:"driver" def:"mysql" validate:"oneof=mysql sqlite"`
	DSN    string `cfg:"dsn" validate:"required"`

	// LogLevel gorm 日志级别：silent, error, warn, info
	LogLevel string `cfg:"logLevel" def:"silent"`

	Tables Tables `cfg:"tables"`
}

// GormSource 基于 gorm 的数据源，结果直接扫描成 map
type GormSource struct {
	db     *gorm.DB
	tables Tables
}

func NewGormSourceWithOptions(options *GormSourceOptions) (*GormSource, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if err := validator.ValidateStruct(options); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}

	config := &gorm.Config{Logger: gormlogger.Default.LogMode(gormLogLevel(options.LogLevel))}

	var dialector gorm.Dialector
	switch options.Driver {
	case "sqlite":
		dialector = sqlite.Open(options.DSN)
	case "mysql":
		dialector = mysql.Open(options.DSN)
	default:
		return nil, errors.Errorf("unsupported driver: %s", options.Driver)
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, errors.Wrap(err, "gorm.Open failed")
	}
	return NewGormSource(db, options.Tables), nil
}

func NewGormSource(db *gorm.DB, tables Tables) *GormSource {
	return &GormSource{db: db, tables: tables}
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "info":
		return gormlogger.Info
	}
	return gormlogger.Silent
}

func (s *GormSource) FetchAll(ctx context.Context, entity record.Entity, q query.Query, opts ...FetchOption) ([]record.Record, error) {
	table, err := s.tables.Resolve(entity)
	if err != nil {
		return nil, err
	}
	options := NewFetchOptions(opts...)

	tx := s.db.WithContext(ctx).Table(table)
	if q != nil {
		where, args, err := q.ToSQL()
		if err != nil {
			return nil, errors.WithMessage(err, "query.ToSQL failed")
		}
		tx = tx.Where(where, args...)
	}
	if options.OrderBy != "" {
		if err := query.CheckField(options.OrderBy); err != nil {
			return nil, errors.Wrap(err, "invalid order by")
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: options.OrderBy}, Desc: options.OrderDesc})
	}
	if options.Limit > 0 {
		tx = tx.Limit(options.Limit)
	}
	if options.Offset > 0 {
		tx = tx.Offset(options.Offset)
	}

	var rows []map[string]any
	if err := tx.Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "query %s failed", table)
	}

	records := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		r := record.Record(row)
		for k, v := range r {
			if b, ok := v.([]byte); ok {
				r[k] = string(b)
			}
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *GormSource) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "db.DB failed")
	}
	return sqlDB.Close()
}
