package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/boxskill/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Storage, convey.ShouldEqual, "box")
			convey.So(cfg.Keywords, convey.ShouldBeTrue)
			convey.So(cfg.Concepts, convey.ShouldBeTrue)
			convey.So(cfg.KeywordLimit, convey.ShouldEqual, 10)
			convey.So(cfg.ConceptLimit, convey.ShouldEqual, 10)
			convey.So(cfg.NLUVersion, convey.ShouldEqual, "2019-05-16")
			convey.So(cfg.BoxAPIURL, convey.ShouldEqual, config.DefaultBoxAPIURL)
			convey.So(cfg.IAMURL, convey.ShouldEqual, config.DefaultIAMURL)
			convey.So(cfg.HTTPTimeout, convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.RetryAttempts, convey.ShouldEqual, 1)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
		})

		convey.Convey("Then it should fail validation without NLU credentials", func() {
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "NLUIAMKey")
			convey.So(err.Error(), convey.ShouldContainSubstring, "URL")
		})
	})

	convey.Convey("Given a complete config", t, func() {
		cfg := config.New()
		cfg.NLUIAMKey = "key"
		cfg.URL = "https://api.us-south.natural-language-understanding.watson.cloud.ibm.com/instances/abc"

		convey.Convey("Then it validates", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When a limit is negative", func() {
			cfg.KeywordLimit = -1
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When retry attempts is zero", func() {
			cfg.RetryAttempts = 0
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the HTTP timeout is not positive", func() {
			cfg.HTTPTimeout = 0
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the log level is unknown", func() {
			cfg.LogLevel = "chatty"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When an unsupported storage backend is configured", func() {
			cfg.Storage = "dropbox"
			convey.Convey("Then validation still passes; the backend is rejected at download time", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
