package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/yapmint/yapmint/internal/adapters/ledger"
	"github.com/yapmint/yapmint/internal/domain/model"
)

func TestHTTPClient(t *testing.T) {
	Convey("Given a ledger service answering JSON-RPC", t, func() {
		ctx := context.Background()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req ledger.Request
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			resp := ledger.Response{JSONRPC: "2.0", ID: req.ID}
			switch req.Method {
			case ledger.MethodBalance:
				resp.Result, _ = json.Marshal(ledger.BalanceResult{Balance: "1250"})
			case ledger.MethodLastIssuance:
				resp.Result, _ = json.Marshal(ledger.LastIssuanceResult{Timestamp: 1_700_000_000})
			case ledger.MethodSubmit:
				var params ledger.SubmitParams
				_ = json.Unmarshal(req.Params, &params)
				if params.Account == "0xblocked" {
					resp.Error = &ledger.RPCError{Code: ledger.CodeRejected, Message: "cooldown active"}
					break
				}
				resp.Result, _ = json.Marshal(ledger.SubmitResult{
					SettlementRef: "0xdeadbeef",
					Amount:        122,
					Timestamp:     1_700_000_100,
				})
			default:
				resp.Error = &ledger.RPCError{Code: ledger.CodeUnknownMethod, Message: "unknown method"}
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := ledger.NewHTTPClient(server.URL, ledger.WithTimeout(2*time.Second))

		Convey("When querying a balance", func() {
			balance, err := client.Balance(ctx, "0xabc")

			Convey("Then the decimal string is returned", func() {
				So(err, ShouldBeNil)
				So(balance, ShouldEqual, "1250")
			})
		})

		Convey("When querying the last issuance time", func() {
			ts, err := client.LastIssuanceTime(ctx, "0xabc")

			Convey("Then the timestamp is returned", func() {
				So(err, ShouldBeNil)
				So(ts, ShouldEqual, 1_700_000_000)
			})
		})

		Convey("When submitting an issuance", func() {
			receipt, err := client.Submit(ctx, model.IssuanceRequest{Handle: "alice", RawScore: 5000}, "0xabc")

			Convey("Then the settlement reference is returned", func() {
				So(err, ShouldBeNil)
				So(receipt.SettlementRef, ShouldEqual, "0xdeadbeef")
			})
		})

		Convey("When the ledger refuses a submission", func() {
			_, err := client.Submit(ctx, model.IssuanceRequest{Handle: "alice", RawScore: 5000}, "0xblocked")

			Convey("Then the error is ErrRejected", func() {
				So(errors.Is(err, ledger.ErrRejected), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unreachable ledger endpoint", t, func() {
		client := ledger.NewHTTPClient("http://127.0.0.1:1", ledger.WithTimeout(500*time.Millisecond))

		Convey("When calling any RPC", func() {
			_, err := client.Balance(context.Background(), "0xabc")

			Convey("Then the error is ErrUnavailable", func() {
				So(errors.Is(err, ledger.ErrUnavailable), ShouldBeTrue)
			})
		})
	})

	Convey("Given a ledger answering garbage", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer server.Close()

		client := ledger.NewHTTPClient(server.URL)

		Convey("When calling any RPC", func() {
			_, err := client.LastIssuanceTime(context.Background(), "0xabc")

			Convey("Then the error is ErrUnavailable", func() {
				So(errors.Is(err, ledger.ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestMemoryClient(t *testing.T) {
	Convey("Given an in-memory ledger with a 1h cooldown", t, func() {
		ctx := context.Background()
		now := time.Now()
		client := ledger.NewMemoryClient(
			ledger.WithMemoryCooldown(time.Hour),
			ledger.WithMemoryClock(func() time.Time { return now }),
		)

		Convey("When an account has never been issued", func() {
			balance, err := client.Balance(ctx, "0xabc")
			So(err, ShouldBeNil)
			ts, err2 := client.LastIssuanceTime(ctx, "0xabc")
			So(err2, ShouldBeNil)

			Convey("Then balance is zero and timestamp is zero", func() {
				So(balance, ShouldEqual, "0")
				So(ts, ShouldEqual, 0)
			})
		})

		Convey("When submitting a first issuance", func() {
			receipt, err := client.Submit(ctx, model.IssuanceRequest{Handle: "alice", RawScore: 1023}, "0xabc")

			Convey("Then it settles and credits the curve amount", func() {
				So(err, ShouldBeNil)
				So(receipt.SettlementRef, ShouldNotBeEmpty)

				balance, _ := client.Balance(ctx, "0xabc")
				So(balance, ShouldEqual, "100")

				ts, _ := client.LastIssuanceTime(ctx, "0xabc")
				So(ts, ShouldEqual, now.Unix())
			})

			Convey("And a second submission inside the window is rejected", func() {
				So(err, ShouldBeNil)
				_, err2 := client.Submit(ctx, model.IssuanceRequest{Handle: "alice", RawScore: 1023}, "0xabc")
				So(errors.Is(err2, ledger.ErrRejected), ShouldBeTrue)

				Convey("But the balance is untouched by the rejection", func() {
					balance, _ := client.Balance(ctx, "0xabc")
					So(balance, ShouldEqual, "100")
				})
			})
		})

		Convey("When submitting with an empty handle", func() {
			_, err := client.Submit(ctx, model.IssuanceRequest{Handle: "  "}, "0xabc")

			Convey("Then the submission is rejected", func() {
				So(errors.Is(err, ledger.ErrRejected), ShouldBeTrue)
			})
		})
	})
}
