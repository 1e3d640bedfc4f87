package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hatlonely/harvest/log/logger"
	"github.com/hatlonely/harvest/log/writer"
	"github.com/hatlonely/harvest/ref"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewLoggerWithOptions(t *testing.T) {
	Convey("NewLoggerWithOptions", t, func() {
		Convey("nil 返回默认日志", func() {
			l, err := NewLoggerWithOptions(nil)
			So(err, ShouldBeNil)
			So(l, ShouldEqual, Default())
		})

		Convey("通过 ref 创建文件日志", func() {
			path := filepath.Join(t.TempDir(), "app.log")
			l, err := NewLoggerWithOptions(&ref.TypeOptions{
				Options: &logger.SLogOptions{
					Level:  "debug",
					Format: "json",
					Output: &ref.TypeOptions{
						Namespace: "github.com/hatlonely/harvest/log/writer",
						Type:      "FileWriter",
						Options:   &writer.FileWriterOptions{Path: path},
					},
				},
			})
			So(err, ShouldBeNil)
			l.Info("report ready", "generation", 1)
			So(l.(*logger.SLog).Close(), ShouldBeNil)

			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"msg":"report ready"`)
		})

		Convey("只写类型名", func() {
			l, err := NewLoggerWithOptions(&ref.TypeOptions{Type: "SLog"})
			So(err, ShouldBeNil)
			So(l, ShouldHaveSameTypeAs, &logger.SLog{})

			l, err = NewLoggerWithOptions(&ref.TypeOptions{
				Type:    "SLog",
				Options: &logger.SLogOptions{Level: "warn", Format: "json"},
			})
			So(err, ShouldBeNil)
			So(l, ShouldNotBeNil)

			path := filepath.Join(t.TempDir(), "short.log")
			l, err = NewLoggerWithOptions(&ref.TypeOptions{
				Type: "SLog",
				Options: &logger.SLogOptions{
					Format: "json",
					Output: &ref.TypeOptions{Type: "FileWriter", Options: &writer.FileWriterOptions{Path: path}},
				},
			})
			So(err, ShouldBeNil)
			l.Info("short names")
			So(l.(*logger.SLog).Close(), ShouldBeNil)
			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"msg":"short names"`)

			_, err = NewLoggerWithOptions(&ref.TypeOptions{Type: "ZapLogger"})
			So(err, ShouldNotBeNil)
		})

		Convey("未注册的类型", func() {
			_, err := NewLoggerWithOptions(&ref.TypeOptions{Namespace: "unknown", Type: "Logger"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSetDefault(t *testing.T) {
	Convey("SetDefault", t, func() {
		old := Default()
		defer SetDefault(old)

		d := NewDiscard()
		SetDefault(d)
		So(Default(), ShouldEqual, d)
	})
}
