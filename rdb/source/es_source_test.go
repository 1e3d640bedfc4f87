package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/harvest/rdb/query"
	"github.com/hatlonely/harvest/rdb/record"
)

// fakeTransport 记录请求并返回固定的响应
type fakeTransport struct {
	status int
	body   string
	path   string
	req    map[string]any
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.path = req.URL.Path
	f.req = nil
	if req.Body != nil {
		buf, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(buf, &f.req)
	}
	header := http.Header{}
	header.Set("X-Elastic-Product", "Elasticsearch")
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: f.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Request:    req,
	}, nil
}

func newFakeES(t *testing.T, tr *fakeTransport) *ESSource {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://localhost:9200"},
		Transport: tr,
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewESSource(client, 0, Tables{"website_feedback": "feedback-v2"})
}

func TestESSource(t *testing.T) {
	Convey("ESSource", t, func() {
		ctx := context.Background()
		tr := &fakeTransport{status: http.StatusOK, body: `{
			"hits": {"hits": [
				{"_id": "a1", "_source": {"overall_rating": 4, "sentiment_label": "positive"}},
				{"_id": "a2", "_source": {"id": 9, "overall_rating": 2, "sentiment_label": "negative"}}
			]}
		}`}
		s := newFakeES(t, tr)

		Convey("_id 作为主键", func() {
			rows, err := s.FetchAll(ctx, record.EntityFeedback, nil)
			So(err, ShouldBeNil)
			So(ids(rows), ShouldResemble, []string{"a1", "9"})
			So(tr.path, ShouldEqual, "/feedback-v2/_search")
			So(tr.req["query"], ShouldResemble, map[string]any{"match_all": map[string]any{}})
			So(tr.req["size"], ShouldEqual, float64(10000))
		})

		Convey("查询条件和分页", func() {
			_, err := s.FetchAll(ctx, record.EntityFeedback, query.Term("sentiment_label", "positive"),
				WithLimit(5), WithOffset(10), WithOrderBy("created_at", true))
			So(err, ShouldBeNil)
			So(tr.req["query"], ShouldResemble, map[string]any{"term": map[string]any{"sentiment_label": "positive"}})
			So(tr.req["size"], ShouldEqual, float64(5))
			So(tr.req["from"], ShouldEqual, float64(10))
			So(tr.req["sort"], ShouldResemble, []any{map[string]any{"created_at": map[string]any{"order": "desc"}}})
		})

		Convey("空结果", func() {
			tr.body = `{"hits": {"hits": []}}`
			rows, err := s.FetchAll(ctx, record.EntityFeedback, nil)
			So(err, ShouldBeNil)
			So(rows, ShouldNotBeNil)
			So(rows, ShouldBeEmpty)
		})

		Convey("错误响应", func() {
			tr.status = http.StatusNotFound
			tr.body = `{"error": {"type": "index_not_found_exception"}}`
			_, err := s.FetchAll(ctx, record.EntityFeedback, nil)
			So(err, ShouldNotBeNil)
		})
	})
}
