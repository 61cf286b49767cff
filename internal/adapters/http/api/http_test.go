package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/yapmint/yapmint/internal/adapters/http/api"
	"github.com/yapmint/yapmint/internal/adapters/provider"
	service "github.com/yapmint/yapmint/internal/app"
	"github.com/yapmint/yapmint/internal/domain/eligibility"
	"github.com/yapmint/yapmint/internal/domain/model"
)

// Mock implementations for testing
type mockDependencies struct {
	seen map[string]bool

	score    model.ScoreRecord
	preview  uint64
	scoreErr error

	accounts   []string
	connectErr error

	state    model.AccountState
	stateErr error

	status    eligibility.Status
	statusErr error

	settlement model.Settlement
	issueErr   error
	issued     int

	tracker *eligibility.Tracker
}

func (m *mockDependencies) SeenAndRecord(_ context.Context, id string) bool {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDependencies) Unrecord(_ context.Context, id string) {
	if m.seen != nil {
		delete(m.seen, id)
	}
}

func (m *mockDependencies) Connect(_ context.Context) ([]string, error) {
	return m.accounts, m.connectErr
}

func (m *mockDependencies) Account(_ context.Context) (model.AccountState, error) {
	return m.state, m.stateErr
}

func (m *mockDependencies) FetchScore(_ context.Context, handle string) (model.ScoreRecord, uint64, error) {
	if m.scoreErr != nil {
		return model.ScoreRecord{}, 0, m.scoreErr
	}
	record := m.score
	record.Handle = handle
	return record, m.preview, nil
}

func (m *mockDependencies) Eligibility(_ context.Context) (eligibility.Status, error) {
	return m.status, m.statusErr
}

func (m *mockDependencies) StartCountdown(ctx context.Context) (*eligibility.Countdown, error) {
	if m.stateErr != nil {
		return nil, m.stateErr
	}
	if m.tracker == nil {
		m.tracker = eligibility.NewTracker(
			eligibility.WithCooldown(time.Hour),
			eligibility.WithTickInterval(10*time.Millisecond),
		)
	}
	return m.tracker.StartCountdown(ctx, m.state), nil
}

func (m *mockDependencies) Issue(_ context.Context, handle string) (model.Settlement, error) {
	if m.issueErr != nil {
		return model.Settlement{}, m.issueErr
	}
	m.issued++
	s := m.settlement
	s.Handle = handle
	return s, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newTestServer(deps *mockDependencies) *httptest.Server {
	mux := http.NewServeMux()
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}})
	server.Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestScoreEndpoint(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		rank := uint64(42)
		deps := &mockDependencies{
			score:   model.ScoreRecord{RawScore: 5000, Rank: &rank, Transport: "direct", FetchedAt: time.Now()},
			preview: 122,
		}
		ts := newTestServer(deps)
		defer ts.Close()

		Convey("When fetching a score for a handle", func() {
			resp, err := http.Get(ts.URL + "/score?handle=alice")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the record and reward preview come back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["handle"], ShouldEqual, "alice")
				So(body["raw_score"], ShouldEqual, 5000)
				So(body["rank"], ShouldEqual, 42)
				So(body["transport"], ShouldEqual, "direct")
				So(body["reward_preview"], ShouldEqual, 122)
			})
		})

		Convey("When the handle parameter is missing", func() {
			resp, err := http.Get(ts.URL + "/score")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When every transport is exhausted", func() {
			deps.scoreErr = fmt.Errorf("score fetch: %w", provider.ErrDataUnavailable)
			resp, err := http.Get(ts.URL + "/score?handle=alice")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the outage is reported, not masked", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
				var body map[string]any
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["code"], ShouldEqual, "score_unavailable")
			})
		})
	})
}

func TestConnectAndAccountEndpoints(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{
			accounts: []string{"acct-1", "acct-2"},
			state:    model.AccountState{AccountID: "acct-1", Balance: "122", LastIssuanceUnix: 1_700_000_000},
		}
		ts := newTestServer(deps)
		defer ts.Close()

		Convey("When connecting the wallet", func() {
			resp, err := http.Post(ts.URL+"/connect", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the connected accounts are returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var body map[string][]string
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["accounts"], ShouldResemble, []string{"acct-1", "acct-2"})
			})
		})

		Convey("When reading account state", func() {
			resp, err := http.Get(ts.URL + "/account")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the ledger view is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["account_id"], ShouldEqual, "acct-1")
				So(body["balance"], ShouldEqual, "122")
			})
		})

		Convey("When no account is connected", func() {
			deps.stateErr = service.ErrNotConnected
			resp, err := http.Get(ts.URL + "/account")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the conflict is reported", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})
		})
	})
}

func TestEligibilityEndpoint(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{
			status: eligibility.Status{Eligible: false, SecondsRemaining: 1800},
		}
		ts := newTestServer(deps)
		defer ts.Close()

		Convey("When reading the eligibility snapshot", func() {
			resp, err := http.Get(ts.URL + "/eligibility")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the cooldown view is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var status eligibility.Status
				So(json.NewDecoder(resp.Body).Decode(&status), ShouldBeNil)
				So(status.Eligible, ShouldBeFalse)
				So(status.SecondsRemaining, ShouldEqual, 1800)
			})
		})
	})
}

func TestIssuanceEndpoint(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{
			settlement: model.Settlement{
				AccountID:     "acct-1",
				RawScore:      5000,
				Amount:        122,
				SettlementRef: "ref-1",
				Balance:       "122",
			},
		}
		ts := newTestServer(deps)
		defer ts.Close()

		post := func(body string) *http.Response {
			resp, err := http.Post(ts.URL+"/issuances", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			return resp
		}

		Convey("When submitting a fresh issuance", func() {
			resp := post(`{"request_id":"req-1","handle":"alice"}`)
			defer resp.Body.Close()

			Convey("Then it settles and returns the reference", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				var body map[string]any
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["status"], ShouldEqual, "settled")
				So(body["settlement_ref"], ShouldEqual, "ref-1")
				So(body["amount"], ShouldEqual, 122)
				So(body["balance"], ShouldEqual, "122")
			})
		})

		Convey("When replaying the same request id", func() {
			first := post(`{"request_id":"req-1","handle":"alice"}`)
			first.Body.Close()
			resp := post(`{"request_id":"req-1","handle":"alice"}`)
			defer resp.Body.Close()

			Convey("Then the replay is acknowledged without reissuing", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["duplicate"], ShouldEqual, true)
				So(deps.issued, ShouldEqual, 1)
			})
		})

		Convey("When the request body is malformed", func() {
			resp := post(`{"request_id":`)
			defer resp.Body.Close()

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When required fields are missing", func() {
			resp := post(`{"handle":"alice"}`)
			defer resp.Body.Close()

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the cooldown blocks the issuance", func() {
			deps.issueErr = fmt.Errorf("%w: 1800s remaining", service.ErrCooldownActive)
			resp := post(`{"request_id":"req-2","handle":"alice"}`)
			defer resp.Body.Close()

			Convey("Then the block maps to too-many-requests", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)
			})

			Convey("And the request id is freed for a retry", func() {
				So(deps.seen["req-2"], ShouldBeFalse)
			})
		})

		Convey("When an issuance is already in flight", func() {
			deps.issueErr = service.ErrIssuanceInFlight
			resp := post(`{"request_id":"req-3","handle":"alice"}`)
			defer resp.Body.Close()

			Convey("Then the conflict surfaces", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})
		})
	})
}

func TestEligibilityStream(t *testing.T) {
	Convey("Given a registered API server with an active cooldown", t, func() {
		deps := &mockDependencies{
			state: model.AccountState{AccountID: "acct-1", LastIssuanceUnix: time.Now().Unix()},
		}
		ts := newTestServer(deps)
		defer ts.Close()

		Convey("When a client subscribes to the countdown stream", func() {
			wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/eligibility/stream"
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			defer conn.Close()

			Convey("Then countdown updates arrive as JSON", func() {
				var status eligibility.Status
				So(conn.SetReadDeadline(time.Now().Add(2*time.Second)), ShouldBeNil)
				So(conn.ReadJSON(&status), ShouldBeNil)
				So(status.Eligible, ShouldBeFalse)
				So(status.SecondsRemaining, ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		ts := newTestServer(&mockDependencies{})
		defer ts.Close()

		Convey("When reading stats", func() {
			resp, err := http.Get(ts.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the service stats come back as JSON", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["started"], ShouldEqual, true)
			})
		})
	})
}
