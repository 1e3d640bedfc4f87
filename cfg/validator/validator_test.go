package validator

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type reportOptions struct {
	WindowMonths int           `validate:"min=1,max=24"`
	TopK         int           `validate:"gte=0"`
	FetchTimeout time.Duration `validate:"gt=0"`
	Scope        string        `validate:"omitempty,oneof=global contributor farmer"`
}

func TestValidateStruct(t *testing.T) {
	Convey("ValidateStruct", t, func() {
		So(ValidateStruct(&reportOptions{WindowMonths: 6, TopK: 5, FetchTimeout: time.Second}), ShouldBeNil)
		So(ValidateStruct(&reportOptions{WindowMonths: 0, FetchTimeout: time.Second}), ShouldNotBeNil)
		So(ValidateStruct(&reportOptions{WindowMonths: 6, FetchTimeout: time.Second, Scope: "state"}), ShouldNotBeNil)

		var nilPtr *reportOptions
		So(ValidateStruct(nilPtr), ShouldBeNil)
		So(ValidateStruct(nil), ShouldBeNil)
		So(ValidateStruct(3), ShouldBeNil)
	})
}
