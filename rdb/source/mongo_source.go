package source

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hatlonely/harvest/cfg/validator"
	"github.com/hatlonely/harvest/rdb/query"
	"github.com/hatlonely/harvest/rdb/record"
)

type MongoSourceOptions struct {
	URI         string        `cfg:"uri"`
	Host        string        `cfg:"host" def:"localhost"`
	Port        int           `cfg:"port" def:"27017"`
	Database    string        `cfg:"database" validate:"required"`
	Username    string        `cfg:"username"`
	Password    string        `cfg:"password"`
	AuthSource  string        `cfg:"authSource" def:"admin"`
	Timeout     time.Duration `cfg:"timeout" def:"30s"`
	MaxPoolSize uint64        `cfg:"maxPoolSize" def:"100"`
	MinPoolSize uint64        `cfg:"minPoolSize" def:"0"`

	Tables Tables `cfg:"tables"`
}

// MongoSource 基于 mongo 的数据源，ObjectID 转成十六进制字符串，DateTime 转成 time.Time
type MongoSource struct {
	client   *mongo.Client
	database *mongo.Database
	tables   Tables
}

func NewMongoSourceWithOptions(opts *MongoSourceOptions) (*MongoSource, error) {
	if opts == nil {
		return nil, errors.New("options is nil")
	}
	if err := validator.ValidateStruct(opts); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}

	uri := opts.URI
	if uri == "" {
		if opts.Username != "" && opts.Password != "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s:%d/%s?authSource=%s",
				opts.Username, opts.Password, opts.Host, opts.Port, opts.Database, opts.AuthSource)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%d/%s", opts.Host, opts.Port, opts.Database)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	if opts.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(opts.MaxPoolSize)
	}
	clientOptions.SetMinPoolSize(opts.MinPoolSize)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "mongo.Connect failed")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "client.Ping failed")
	}

	s := NewMongoSource(client.Database(opts.Database), opts.Tables)
	s.client = client
	return s, nil
}

// NewMongoSource 使用已有的 database，Close 不会断开连接
func NewMongoSource(database *mongo.Database, tables Tables) *MongoSource {
	return &MongoSource{database: database, tables: tables}
}

func buildFind(q query.Query, fetch *FetchOptions) (any, *options.FindOptions, error) {
	var filter any = bson.M{}
	if q != nil {
		m, err := q.ToMongo()
		if err != nil {
			return nil, nil, errors.WithMessage(err, "query.ToMongo failed")
		}
		filter = m
	}

	findOptions := options.Find()
	if fetch.OrderBy != "" {
		direction := 1
		if fetch.OrderDesc {
			direction = -1
		}
		findOptions.SetSort(bson.D{{Key: fetch.OrderBy, Value: direction}})
	}
	if fetch.Limit > 0 {
		findOptions.SetLimit(int64(fetch.Limit))
	}
	if fetch.Offset > 0 {
		findOptions.SetSkip(int64(fetch.Offset))
	}
	return filter, findOptions, nil
}

func (s *MongoSource) FetchAll(ctx context.Context, entity record.Entity, q query.Query, opts ...FetchOption) ([]record.Record, error) {
	table, err := s.tables.Resolve(entity)
	if err != nil {
		return nil, err
	}

	filter, findOptions, err := buildFind(q, NewFetchOptions(opts...))
	if err != nil {
		return nil, err
	}

	cursor, err := s.database.Collection(table).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s failed", table)
	}
	defer cursor.Close(ctx)

	records := []record.Record{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "cursor.Decode failed")
		}
		records = append(records, fromBSON(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(err, "cursor.Err")
	}
	return records, nil
}

func (s *MongoSource) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// fromBSON 把文档转换成记录，没有 id 字段时使用 _id
func fromBSON(doc bson.M) record.Record {
	r := make(record.Record, len(doc)+1)
	for k, v := range doc {
		r[k] = normalizeBSON(v)
	}
	if _, ok := r["id"]; !ok {
		if id, ok := r["_id"]; ok {
			r["id"] = id
		}
	}
	return r
}

func normalizeBSON(v any) any {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(val.T), 0).UTC()
	case primitive.Decimal128:
		return val.String()
	case primitive.Null, primitive.Undefined:
		return nil
	case bson.M:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			out[k] = normalizeBSON(sub)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, sub := range val {
			out[i] = normalizeBSON(sub)
		}
		return out
	}
	return v
}
