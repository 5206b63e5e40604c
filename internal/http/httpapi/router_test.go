package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bountyledger/internal/adapter/sqlitestore"
	"bountyledger/internal/domain"
	"bountyledger/internal/http/handlers"
	"bountyledger/internal/infra"
	"bountyledger/internal/ledger"
	"bountyledger/internal/middleware"
)

const testSecret = "router-secret"

type testServer struct {
	handler http.Handler
	store   *sqlitestore.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	svc := ledger.NewService(store)
	app := handlers.NewApp(svc, nil, store, zerolog.Nop())
	cfg := &infra.Config{JWTSecret: testSecret, RateLimitPerMin: 1000}
	return &testServer{handler: NewRouter(app, cfg, zerolog.Nop()), store: store}
}

func (s *testServer) report(t *testing.T) string {
	t.Helper()
	id := uuid.NewString()
	if err := s.store.InsertReport(context.Background(), &domain.Report{ID: id, OwnerID: "owner"}); err != nil {
		t.Fatalf("insert report: %v", err)
	}
	return id
}

func (s *testServer) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		token, err := middleware.SignJWT(testSecret, middleware.TokenClaims{
			Name:             strings.ToUpper(user[:1]) + user[1:],
			RegisteredClaims: jwt.RegisteredClaims{Subject: user},
		})
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func TestContributeAndTransfer(t *testing.T) {
	s := newTestServer(t)
	r1, r2 := s.report(t), s.report(t)

	rr := s.do(t, http.MethodPost, "/v1/reports/"+r1+"/contributions", "alice", `{"amount":"100"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", rr.Code, rr.Body.String())
	}
	var created struct {
		ID              string `json:"id"`
		ContributorName string `json:"contributor_name"`
	}
	decode(t, rr, &created)
	if created.ContributorName != "Alice" {
		t.Fatalf("contributor name = %q", created.ContributorName)
	}

	rr = s.do(t, http.MethodPost, "/v1/contributions/"+created.ID+"/transfers", "alice", `{"target_report_id":"`+r2+`","amount":"80"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("transfer: %d %s", rr.Code, rr.Body.String())
	}

	rr = s.do(t, http.MethodPost, "/v1/contributions/"+created.ID+"/transfers", "alice", `{"target_report_id":"`+r2+`","amount":"19"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("over-transfer: %d %s", rr.Code, rr.Body.String())
	}

	for id, want := range map[string]string{r1: "20", r2: "80"} {
		rr = s.do(t, http.MethodGet, "/v1/reports/"+id, "", "")
		var report struct {
			BountyAmount string `json:"bounty_amount"`
		}
		decode(t, rr, &report)
		if report.BountyAmount != want {
			t.Fatalf("report %s bounty = %q, want %q", id, report.BountyAmount, want)
		}
	}

	rr = s.do(t, http.MethodGet, "/v1/reports/"+r2+"/contributions", "", "")
	var list struct {
		Items []struct {
			ID                string  `json:"id"`
			TransferredFromID *string `json:"transferred_from_id"`
		} `json:"items"`
	}
	decode(t, rr, &list)
	if len(list.Items) != 1 || list.Items[0].TransferredFromID == nil || *list.Items[0].TransferredFromID != created.ID {
		t.Fatalf("unexpected destination list %+v", list.Items)
	}

	rr = s.do(t, http.MethodGet, "/v1/contributions/"+list.Items[0].ID+"/lineage", "", "")
	var lineage struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	decode(t, rr, &lineage)
	if len(lineage.Items) != 2 || lineage.Items[0].ID != created.ID {
		t.Fatalf("unexpected lineage %+v", lineage.Items)
	}
}

func TestReplayedSignatureConflicts(t *testing.T) {
	s := newTestServer(t)
	r1, r2 := s.report(t), s.report(t)
	body := `{"amount":"1000","transaction_signature":"2ZE7Rz1bZmL3TZAoEEdTQkWxB2tzbJrX1oFWh9ZsVYvYfUPMuXYyEUS6QNFJs1DLaWdD4WWKoVEJe7S6KdmhHFrb"}`

	if rr := s.do(t, http.MethodPost, "/v1/reports/"+r1+"/contributions", "alice", body); rr.Code != http.StatusCreated {
		t.Fatalf("first add: %d %s", rr.Code, rr.Body.String())
	}
	rr := s.do(t, http.MethodPost, "/v1/reports/"+r2+"/contributions", "mallory", body)
	if rr.Code != http.StatusConflict {
		t.Fatalf("replayed add: %d %s", rr.Code, rr.Body.String())
	}

	rr = s.do(t, http.MethodGet, "/v1/reports/"+r2, "", "")
	var report struct {
		BountyAmount string `json:"bounty_amount"`
	}
	decode(t, rr, &report)
	if report.BountyAmount != "0" {
		t.Fatalf("bounty after replay = %q, want 0", report.BountyAmount)
	}
}

func TestMutationsRequireAuth(t *testing.T) {
	s := newTestServer(t)
	r1 := s.report(t)

	rr := s.do(t, http.MethodPost, "/v1/reports/"+r1+"/contributions", "", `{"amount":"1"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
	rr = s.do(t, http.MethodPost, "/v1/reports/"+r1+"/recompute", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestTransferByOtherUserIsForbidden(t *testing.T) {
	s := newTestServer(t)
	r1, r2 := s.report(t), s.report(t)

	rr := s.do(t, http.MethodPost, "/v1/reports/"+r1+"/contributions", "alice", `{"amount":"10"}`)
	var created struct {
		ID string `json:"id"`
	}
	decode(t, rr, &created)

	rr = s.do(t, http.MethodPost, "/v1/contributions/"+created.ID+"/transfers", "mallory", `{"target_report_id":"`+r2+`","amount":"1"}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d %s", rr.Code, rr.Body.String())
	}
}

func TestUnknownReport(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/v1/reports/"+uuid.NewString(), "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	rr = s.do(t, http.MethodGet, "/v1/reports/not-a-uuid", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	if rr := s.do(t, http.MethodGet, "/v1/healthz", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rr.Code)
	}
	if rr := s.do(t, http.MethodGet, "/metrics", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rr.Code)
	}

	_ = s.store.Close()
	if rr := s.do(t, http.MethodGet, "/v1/healthz", "", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz after close = %d", rr.Code)
	}
}
