package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hatlonely/harvest/ref"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

type snapshot struct {
	Generation  int64
	GeneratedAt time.Time
	Counts      map[string]int
}

func newStores(t *testing.T) map[string]Store[string, snapshot] {
	dir := t.TempDir()
	mr := miniredis.RunT(t)

	fc, err := NewFreeCacheStoreWithOptions[string, snapshot](&FreeCacheStoreOptions{Size: 1024 * 1024})
	if err != nil {
		t.Fatal(err)
	}
	rs, err := NewRedisStore[string, snapshot](redis.NewClient(&redis.Options{Addr: mr.Addr()}), &RedisStoreOptions{Prefix: "report:"})
	if err != nil {
		t.Fatal(err)
	}
	bs, err := NewBoltDBStoreWithOptions[string, snapshot](&BoltDBStoreOptions{DBPath: filepath.Join(dir, "bolt", "db")})
	if err != nil {
		t.Fatal(err)
	}
	ls, err := NewLevelDBStoreWithOptions[string, snapshot](&LevelDBStoreOptions{DBPath: filepath.Join(dir, "leveldb")})
	if err != nil {
		t.Fatal(err)
	}
	ps, err := NewPebbleStoreWithOptions[string, snapshot](&PebbleStoreOptions{DBPath: filepath.Join(dir, "pebble")})
	if err != nil {
		t.Fatal(err)
	}

	return map[string]Store[string, snapshot]{
		"MapStore":       NewMapStoreWithOptions[string, snapshot](nil),
		"FreeCacheStore": fc,
		"RedisStore":     rs,
		"BoltDBStore":    bs,
		"LevelDBStore":   ls,
		"PebbleStore":    ps,
	}
}

func TestStores(t *testing.T) {
	Convey("Store", t, func() {
		ctx := context.Background()
		at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		value := snapshot{Generation: 3, GeneratedAt: at, Counts: map[string]int{"approved": 2}}

		for name, s := range newStores(t) {
			Convey(name, func() {
				defer s.Close()

				_, err := s.Get(ctx, "global")
				So(err, ShouldEqual, ErrKeyNotFound)

				So(s.Set(ctx, "global", value), ShouldBeNil)
				got, err := s.Get(ctx, "global")
				So(err, ShouldBeNil)
				So(got.Generation, ShouldEqual, 3)
				So(got.GeneratedAt.Equal(at), ShouldBeTrue)
				So(got.Counts, ShouldResemble, map[string]int{"approved": 2})

				So(s.Set(ctx, "global", snapshot{Generation: 4}, WithIfNotExist()), ShouldEqual, ErrConditionFailed)
				So(s.Set(ctx, "farmer", snapshot{Generation: 4}, WithIfNotExist()), ShouldBeNil)

				So(s.Del(ctx, "global"), ShouldBeNil)
				So(s.Del(ctx, "global"), ShouldBeNil)
				_, err = s.Get(ctx, "global")
				So(err, ShouldEqual, ErrKeyNotFound)
			})
		}
	})
}

func TestExpiration(t *testing.T) {
	Convey("过期时间", t, func() {
		ctx := context.Background()
		dir := t.TempDir()

		ms := NewMapStoreWithOptions[string, int](nil)
		bs, err := NewBoltDBStoreWithOptions[string, int](&BoltDBStoreOptions{DBPath: filepath.Join(dir, "db")})
		So(err, ShouldBeNil)
		defer bs.Close()

		for _, s := range []Store[string, int]{ms, bs} {
			So(s.Set(ctx, "k", 1, WithExpiration(20*time.Millisecond)), ShouldBeNil)
			v, err := s.Get(ctx, "k")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 1)

			time.Sleep(40 * time.Millisecond)
			_, err = s.Get(ctx, "k")
			So(err, ShouldEqual, ErrKeyNotFound)

			So(s.Set(ctx, "k", 2, WithIfNotExist()), ShouldBeNil)
		}
	})

	Convey("redis 过期时间", t, func() {
		ctx := context.Background()
		mr := miniredis.RunT(t)
		s, err := NewRedisStore[string, int](redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
		So(err, ShouldBeNil)

		So(s.Set(ctx, "k", 1, WithExpiration(time.Minute)), ShouldBeNil)
		mr.FastForward(2 * time.Minute)
		_, err = s.Get(ctx, "k")
		So(err, ShouldEqual, ErrKeyNotFound)
	})
}

func TestNewStoreWithOptions(t *testing.T) {
	Convey("NewStoreWithOptions", t, func() {
		ctx := context.Background()

		Convey("默认 MapStore", func() {
			s, err := NewStoreWithOptions[string, int](nil)
			So(err, ShouldBeNil)
			So(s, ShouldHaveSameTypeAs, &MapStore[string, int]{})
		})

		Convey("简写类型名", func() {
			mr := miniredis.RunT(t)
			s, err := NewStoreWithOptions[string, []string](&ref.TypeOptions{
				Type:    "RedisStore",
				Options: &RedisStoreOptions{Endpoint: mr.Addr(), ValSerializer: &ref.TypeOptions{Type: "JSONSerializer"}},
			})
			So(err, ShouldBeNil)
			defer s.Close()

			So(s.Set(ctx, "entities", []string{"users", "orders"}), ShouldBeNil)
			raw, err := mr.Get("entities")
			So(err, ShouldBeNil)
			So(raw, ShouldEqual, `["users","orders"]`)
		})

		Convey("未知类型", func() {
			_, err := NewStoreWithOptions[string, int](&ref.TypeOptions{Type: "UnknownStore"})
			So(err, ShouldNotBeNil)
		})
	})
}
