package source

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/pkg/errors"

	"github.com/hatlonely/harvest/rdb/query"
	"github.com/hatlonely/harvest/rdb/record"
)

type ESSourceOptions struct {
	Addresses  []string      `cfg:"addresses" def:"http://localhost:9200"`
	Username   string        `cfg:"username"`
	Password   string        `cfg:"password"`
	APIKey     string        `cfg:"apiKey"`
	Timeout    time.Duration `cfg:"timeout" def:"30s"`
	MaxRetries int           `cfg:"maxRetries" def:"3"`

	// Size 未指定 limit 时每次查询返回的最大文档数
	Size int `cfg:"size" def:"10000"`

	Tables Tables `cfg:"tables"`
}

// ESSource 基于 elasticsearch 的数据源，_source 中没有 id 时使用文档 _id
type ESSource struct {
	client *elasticsearch.Client
	size   int
	tables Tables
}

func NewESSourceWithOptions(opts *ESSourceOptions) (*ESSource, error) {
	if opts == nil {
		return nil, errors.New("options is nil")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: opts.Addresses,
		Username:  opts.Username,
		Password:  opts.Password,
		APIKey:    opts.APIKey,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: opts.Timeout,
		},
		MaxRetries: opts.MaxRetries,
	})
	if err != nil {
		return nil, errors.Wrap(err, "elasticsearch.NewClient failed")
	}

	res, err := client.Info()
	if err != nil {
		return nil, errors.Wrap(err, "client.Info failed")
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, errors.Errorf("elasticsearch connection error: %s", res.String())
	}

	return NewESSource(client, opts.Size, opts.Tables), nil
}

func NewESSource(client *elasticsearch.Client, size int, tables Tables) *ESSource {
	if size <= 0 {
		size = 10000
	}
	return &ESSource{client: client, size: size, tables: tables}
}

func (s *ESSource) searchBody(q query.Query, options *FetchOptions) map[string]any {
	body := map[string]any{}
	if q != nil {
		body["query"] = q.ToES()
	} else {
		body["query"] = map[string]any{"match_all": map[string]any{}}
	}

	body["size"] = s.size
	if options.Limit > 0 {
		body["size"] = options.Limit
	}
	if options.Offset > 0 {
		body["from"] = options.Offset
	}
	if options.OrderBy != "" {
		order := "asc"
		if options.OrderDesc {
			order = "desc"
		}
		body["sort"] = []map[string]any{
			{options.OrderBy: map[string]any{"order": order}},
		}
	}
	return body
}

type searchResult struct {
	Hits struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ESSource) FetchAll(ctx context.Context, entity record.Entity, q query.Query, opts ...FetchOption) ([]record.Record, error) {
	index, err := s.tables.Resolve(entity)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(s.searchBody(q, NewFetchOptions(opts...)))
	if err != nil {
		return nil, errors.Wrap(err, "marshal search body failed")
	}

	req := esapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, errors.Wrapf(err, "search %s failed", index)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, errors.Errorf("search %s error: %s", index, res.String())
	}

	var result searchResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "decode search result failed")
	}

	records := make([]record.Record, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		r := record.Record(hit.Source)
		if r == nil {
			r = record.Record{}
		}
		if _, ok := r["id"]; !ok {
			r["id"] = hit.ID
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *ESSource) Close() error {
	return nil
}
