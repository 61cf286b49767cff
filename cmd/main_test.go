package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/yapmint/yapmint/internal/adapters/http/api"
	"github.com/yapmint/yapmint/internal/adapters/http/swagger"
	"github.com/yapmint/yapmint/internal/adapters/ledger"
	"github.com/yapmint/yapmint/internal/adapters/wallet"
	app "github.com/yapmint/yapmint/internal/app"
	"github.com/yapmint/yapmint/internal/config"
	"github.com/yapmint/yapmint/internal/domain/model"
	"github.com/yapmint/yapmint/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	m.Run()
}

type staticScores struct{}

func (staticScores) FetchScore(_ context.Context, handle string) (model.ScoreRecord, error) {
	return model.ScoreRecord{Handle: handle, RawScore: 1023, Transport: "static", FetchedAt: time.Now()}, nil
}

func (staticScores) Transports() []string { return []string{"static"} }

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			// Test with environment variables
			_ = os.Setenv("YAPMINT_ADDR", ":8080")
			_ = os.Setenv("YAPMINT_COOLDOWN_SECONDS", "3600")
			_ = os.Setenv("YAPMINT_BASE_RATE", "5")
			defer func() {
				_ = os.Unsetenv("YAPMINT_ADDR")
				_ = os.Unsetenv("YAPMINT_COOLDOWN_SECONDS")
				_ = os.Unsetenv("YAPMINT_BASE_RATE")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.CooldownSeconds, convey.ShouldEqual, 3600)
				convey.So(cfg.BaseRate, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When testing service creation", func() {
			wp := wallet.NewStaticProvider(wallet.WithAvailableAccounts([]string{"acct-1"}))

			convey.Convey("Then service should be creatable with default options", func() {
				svc := app.New(staticScores{}, ledger.NewMemoryClient(), wp)
				convey.So(svc, convey.ShouldNotBeNil)
			})

			convey.Convey("And service should be creatable with custom options", func() {
				svc := app.New(staticScores{}, ledger.NewMemoryClient(), wp,
					app.WithCooldown(time.Hour),
					app.WithBaseRate(5),
					app.WithAuditQueueSize(128),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing HTTP server creation", func() {
			wp := wallet.NewStaticProvider(wallet.WithAvailableAccounts([]string{"acct-1"}))
			svc := app.New(staticScores{}, ledger.NewMemoryClient(), wp)
			ctx := context.Background()
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			mux := http.NewServeMux()
			swagger.Register(ctx, mux)
			apiServer := api.NewServer(svc, svc)
			apiServer.Register(ctx, mux)

			convey.Convey("Then the mux should resolve registered routes", func() {
				for _, path := range []string{"/healthz", "/stats", "/score", "/issuances", "/api-docs"} {
					req, err := http.NewRequest(http.MethodGet, path, http.NoBody)
					convey.So(err, convey.ShouldBeNil)
					_, pattern := mux.Handler(req)
					convey.So(pattern, convey.ShouldNotBeEmpty)
				}
			})
		})
	})
}
