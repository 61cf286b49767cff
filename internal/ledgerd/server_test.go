package ledgerd_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/yapmint/yapmint/internal/adapters/ledger"
	"github.com/yapmint/yapmint/internal/domain/model"
	"github.com/yapmint/yapmint/internal/ledgerd"
	"github.com/yapmint/yapmint/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func jsonBody(s string) io.Reader { return strings.NewReader(s) }

// failingStore errors on every call, standing in for a lost backend.
type failingStore struct{}

func (failingStore) Account(context.Context, string) (ledgerd.Account, error) {
	return ledgerd.Account{}, errors.New("backend gone")
}

func (failingStore) Apply(context.Context, ledgerd.Issuance) error {
	return errors.New("backend gone")
}

func (failingStore) Close() error { return nil }

func decodeJSON(r io.Reader, v any) error { return json.NewDecoder(r).Decode(v) }

func TestMemoryStore(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		ctx := context.Background()
		store := ledgerd.NewMemoryStore()
		defer store.Close()

		Convey("When reading an unknown account", func() {
			acct, err := store.Account(ctx, "acct-1")

			Convey("Then it reads as zero state, not an error", func() {
				So(err, ShouldBeNil)
				So(acct.Balance, ShouldEqual, 0)
				So(acct.LastIssuanceUnix, ShouldEqual, 0)
			})
		})

		Convey("When applying issuances", func() {
			So(store.Apply(ctx, ledgerd.Issuance{
				AccountID: "acct-1", Amount: 122, SettlementRef: "ref-1", IssuedAtUnix: 100,
			}), ShouldBeNil)
			So(store.Apply(ctx, ledgerd.Issuance{
				AccountID: "acct-1", Amount: 100, SettlementRef: "ref-2", IssuedAtUnix: 200,
			}), ShouldBeNil)

			Convey("Then the balance accumulates and the issuance time advances", func() {
				acct, err := store.Account(ctx, "acct-1")
				So(err, ShouldBeNil)
				So(acct.Balance, ShouldEqual, 222)
				So(acct.LastIssuanceUnix, ShouldEqual, 200)
			})

			Convey("And replaying a settlement reference is refused", func() {
				err := store.Apply(ctx, ledgerd.Issuance{
					AccountID: "acct-1", Amount: 122, SettlementRef: "ref-1", IssuedAtUnix: 300,
				})
				So(err, ShouldWrap, ledgerd.ErrDuplicateRef)
			})
		})
	})
}

func TestServerRPC(t *testing.T) {
	Convey("Given a ledger server over a fresh store", t, func() {
		now := time.Now()
		clock := func() time.Time { return now }
		srv := ledgerd.NewServer(ledgerd.NewMemoryStore(),
			ledgerd.WithCooldown(24*time.Hour),
			ledgerd.WithClock(clock),
		)
		ts := httptest.NewServer(srv)
		defer ts.Close()

		client := ledger.NewHTTPClient(ts.URL)
		ctx := context.Background()

		Convey("When reading a fresh account", func() {
			balance, err := client.Balance(ctx, "acct-1")
			So(err, ShouldBeNil)
			last, err := client.LastIssuanceTime(ctx, "acct-1")
			So(err, ShouldBeNil)

			Convey("Then the account is empty and never issued", func() {
				So(balance, ShouldEqual, "0")
				So(last, ShouldEqual, 0)
			})
		})

		Convey("When submitting an issuance", func() {
			receipt, err := client.Submit(ctx, model.IssuanceRequest{Handle: "alice", RawScore: 5000}, "acct-1")

			Convey("Then it settles with the computed reward", func() {
				So(err, ShouldBeNil)
				So(receipt.SettlementRef, ShouldNotBeEmpty)

				balance, err := client.Balance(ctx, "acct-1")
				So(err, ShouldBeNil)
				So(balance, ShouldEqual, "122")

				last, err := client.LastIssuanceTime(ctx, "acct-1")
				So(err, ShouldBeNil)
				So(last, ShouldEqual, now.Unix())
			})

			Convey("And a second submit inside the cooldown is rejected", func() {
				_, err := client.Submit(ctx, model.IssuanceRequest{Handle: "alice", RawScore: 5000}, "acct-1")
				So(err, ShouldWrap, ledger.ErrRejected)
			})

			Convey("And a submit after the cooldown settles again", func() {
				now = now.Add(25 * time.Hour)
				_, err := client.Submit(ctx, model.IssuanceRequest{Handle: "alice", RawScore: 1023}, "acct-1")
				So(err, ShouldBeNil)

				balance, err := client.Balance(ctx, "acct-1")
				So(err, ShouldBeNil)
				So(balance, ShouldEqual, "222")
			})
		})

		Convey("When the store fails", func() {
			broken := httptest.NewServer(ledgerd.NewServer(&failingStore{}))
			defer broken.Close()
			brokenClient := ledger.NewHTTPClient(broken.URL)

			Convey("Then reads and submits surface as unavailability, not refusal", func() {
				_, err := brokenClient.Balance(ctx, "acct-1")
				So(err, ShouldWrap, ledger.ErrUnavailable)
				So(errors.Is(err, ledger.ErrRejected), ShouldBeFalse)

				_, err = brokenClient.LastIssuanceTime(ctx, "acct-1")
				So(err, ShouldWrap, ledger.ErrUnavailable)

				_, err = brokenClient.Submit(ctx, model.IssuanceRequest{Handle: "alice", RawScore: 5000}, "acct-1")
				So(err, ShouldWrap, ledger.ErrUnavailable)
			})
		})

		Convey("When calling an unknown method", func() {
			resp, err := ts.Client().Post(ts.URL, "application/json",
				jsonBody(`{"jsonrpc":"2.0","id":1,"method":"yap_unknown"}`))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the RPC error names the method", func() {
				var rpcResp ledger.Response
				So(decodeJSON(resp.Body, &rpcResp), ShouldBeNil)
				So(rpcResp.Error, ShouldNotBeNil)
				So(rpcResp.Error.Code, ShouldEqual, ledger.CodeUnknownMethod)
			})
		})

		Convey("When submit params are incomplete", func() {
			resp, err := ts.Client().Post(ts.URL, "application/json",
				jsonBody(`{"jsonrpc":"2.0","id":2,"method":"yap_submit","params":{"handle":"alice"}}`))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the request is refused as invalid", func() {
				var rpcResp ledger.Response
				So(decodeJSON(resp.Body, &rpcResp), ShouldBeNil)
				So(rpcResp.Error, ShouldNotBeNil)
				So(rpcResp.Error.Code, ShouldEqual, ledger.CodeInvalidParams)
			})
		})
	})
}
