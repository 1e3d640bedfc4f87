package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type reportOptions struct {
	WindowMonths int           `cfg:"windowMonths" def:"6" validate:"min=1,max=24"`
	TopK         int           `cfg:"topK" def:"5"`
	FetchTimeout time.Duration `cfg:"fetchTimeout" def:"3s"`
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestNewConfig(t *testing.T) {
	Convey("NewConfig", t, func() {
		dir := t.TempDir()

		Convey("yaml 文件", func() {
			path := filepath.Join(dir, "app.yaml")
			writeFile(t, path, "report:\n  windowMonths: 12\n  fetchTimeout: 1s\n")

			c, err := NewConfig(path)
			So(err, ShouldBeNil)
			defer c.Close()

			var opts reportOptions
			So(c.Sub("report").ConvertTo(&opts), ShouldBeNil)
			So(opts, ShouldResemble, reportOptions{WindowMonths: 12, TopK: 5, FetchTimeout: time.Second})
		})

		Convey("环境变量覆盖", func() {
			path := filepath.Join(dir, "app.json")
			writeFile(t, path, `{"report":{"windowMonths":12}}`)
			t.Setenv("HARVEST_REPORT_WINDOWMONTHS", "3")

			c, err := NewConfig(path, "harvest")
			So(err, ShouldBeNil)
			defer c.Close()

			var opts reportOptions
			So(c.Sub("report").ConvertTo(&opts), ShouldBeNil)
			So(opts.WindowMonths, ShouldEqual, 3)
		})

		Convey("校验失败", func() {
			path := filepath.Join(dir, "app.toml")
			writeFile(t, path, "[report]\nwindowMonths = 30\n")

			c, err := NewConfig(path)
			So(err, ShouldBeNil)
			defer c.Close()

			var opts reportOptions
			So(c.Sub("report").ConvertTo(&opts), ShouldNotBeNil)
		})

		Convey("不支持的后缀", func() {
			_, err := NewConfig(filepath.Join(dir, "app.xml"))
			So(err, ShouldNotBeNil)
		})

		Convey("文件不存在", func() {
			_, err := NewConfig(filepath.Join(dir, "missing.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestConfigWatch(t *testing.T) {
	Convey("Watch", t, func() {
		path := filepath.Join(t.TempDir(), "app.yaml")
		writeFile(t, path, "report:\n  windowMonths: 6\nlog:\n  level: info\n")

		c, err := NewConfig(path)
		So(err, ShouldBeNil)
		defer c.Close()

		reportChanged := make(chan int, 4)
		logChanged := make(chan struct{}, 4)
		c.Sub("report").OnChange(func(sub *Config) error {
			var opts reportOptions
			if err := sub.ConvertTo(&opts); err != nil {
				return err
			}
			reportChanged <- opts.WindowMonths
			return nil
		})
		c.Sub("log").OnChange(func(*Config) error {
			logChanged <- struct{}{}
			return nil
		})
		So(c.Watch(), ShouldBeNil)

		writeFile(t, path, "report:\n  windowMonths: 9\nlog:\n  level: info\n")

		got := 0
		timeout := time.After(3 * time.Second)
		for got != 9 {
			select {
			case got = <-reportChanged:
			case <-timeout:
				So("timeout", ShouldBeEmpty)
				return
			}
		}
		So(got, ShouldEqual, 9)
		So(len(logChanged), ShouldEqual, 0)

		So(c.Close(), ShouldBeNil)
		So(c.Close(), ShouldBeNil)
	})
}
