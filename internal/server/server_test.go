package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	accountservice "github.com/pointagehq/pointage/internal/account/service"
	"github.com/pointagehq/pointage/internal/auth/password"
	"github.com/pointagehq/pointage/internal/authorization"
	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
	badgerepository "github.com/pointagehq/pointage/internal/badge/repository"
	badgeservice "github.com/pointagehq/pointage/internal/badge/service"
	"github.com/pointagehq/pointage/internal/clock"
	"github.com/pointagehq/pointage/internal/config"
	"github.com/pointagehq/pointage/internal/events"
	organizationdomain "github.com/pointagehq/pointage/internal/organization/domain"
	organizationrepository "github.com/pointagehq/pointage/internal/organization/repository"
	organizationservice "github.com/pointagehq/pointage/internal/organization/service"
	"github.com/pointagehq/pointage/internal/payment/adapters/stripe"
	paymentdomain "github.com/pointagehq/pointage/internal/payment/domain"
	paymentrepository "github.com/pointagehq/pointage/internal/payment/repository"
	paymentservice "github.com/pointagehq/pointage/internal/payment/service"
	pointageservice "github.com/pointagehq/pointage/internal/pointage/service"
	topodomain "github.com/pointagehq/pointage/internal/topology/domain"
	toporepository "github.com/pointagehq/pointage/internal/topology/repository"
	toposervice "github.com/pointagehq/pointage/internal/topology/service"
	worktimeservice "github.com/pointagehq/pointage/internal/worktime/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var serverSeq int

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	router *gin.Engine

	org    organizationdomain.Organisation
	admin  organizationdomain.User
	member organizationdomain.User
	badge  badgedomain.Badge

	adminToken  string
	memberToken string
	deviceKey   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	serverSeq++
	dsn := fmt.Sprintf("file:pointage_server_%d?mode=memory&cache=shared", serverSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&organizationdomain.Organisation{},
		&organizationdomain.User{},
		&organizationdomain.UserToken{},
		&badgedomain.Badge{},
		&badgedomain.BadgeAssignment{},
		&badgedomain.BadgeEvent{},
		&topodomain.Zone{},
		&topodomain.Reader{},
		&topodomain.ReaderZone{},
		&topodomain.AccessGrant{},
		&topodomain.ReaderAPIKey{},
		&paymentdomain.CoffeePayment{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Exec(`CREATE TABLE pointage_events (
		id INTEGER PRIMARY KEY,
		org_id INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT,
		dedupe_key TEXT,
		published BOOLEAN NOT NULL DEFAULT false,
		created_at DATETIME NOT NULL
	)`).Error; err != nil {
		t.Fatalf("create outbox table: %v", err)
	}
	if err := db.Exec(`CREATE UNIQUE INDEX ux_pointage_events_dedupe ON pointage_events (org_id, dedupe_key)`).Error; err != nil {
		t.Fatalf("create outbox index: %v", err)
	}

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	log := zap.NewNop()
	clk := clock.SystemClock{}
	cfg := config.Config{
		Environment:       "test",
		ReportingTimezone: "Europe/Paris",
		CooldownWindow:    2 * time.Minute,
		CooldownGrace:     30 * time.Second,
		CooldownPolicy:    config.CooldownPolicyReject,
	}

	outbox := events.NewOutbox(db, node)
	badgeRepo := badgerepository.Provide(db)
	badgeEvents := badgerepository.ProvideEvents(db)
	topoRepo := toporepository.Provide(db)
	orgRepo := organizationrepository.Provide(db)

	topoSvc := toposervice.NewService(toposervice.Params{Log: log, GenID: node, Clock: clk, Repo: topoRepo})
	worktimeSvc := worktimeservice.NewService(worktimeservice.Params{
		Log: log, Clock: clk, Cfg: cfg,
		EventRepo: badgeEvents, TopoRepo: topoRepo, UserRepo: orgRepo,
	})
	pointageSvc := pointageservice.NewService(pointageservice.Params{
		Log: log, Clock: clk, Cfg: cfg, DB: db, GenID: node,
		Badges: badgeRepo, Events: badgeEvents, Topology: topoSvc,
		Orgs: orgRepo, Worktime: worktimeSvc, Outbox: outbox,
	})
	badgeSvc := badgeservice.NewService(badgeservice.Params{Log: log, GenID: node, Clock: clk, Repo: badgeRepo})
	orgSvc := organizationservice.NewService(organizationservice.Params{Log: log, GenID: node, Clock: clk, Repo: orgRepo})
	accountSvc := accountservice.NewService(accountservice.Params{
		Log: log, Clock: clk, Orgs: orgRepo, Badges: badgeRepo, Events: badgeEvents, Outbox: outbox,
	})
	paymentSvc := paymentservice.NewService(paymentservice.Params{
		Log: log, Clock: clk, GenID: node,
		Repo: paymentrepository.Provide(db), Provider: stripe.New(cfg), Outbox: outbox,
	})
	authzSvc := authorization.NewService(authorization.Params{DB: db, Log: log})

	srv := NewServer(Params{
		Cfg: cfg, Log: log, DB: db,
		PointageSvc: pointageSvc, WorktimeSvc: worktimeSvc,
		BadgeSvc: badgeSvc, TopologySvc: topoSvc, OrgSvc: orgSvc,
		AccountSvc: accountSvc, PaymentSvc: paymentSvc, AuthzSvc: authzSvc,
	})

	f := &fixture{db: db, node: node, router: srv.Router()}
	f.seed(t)
	return f
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	now := time.Now().UTC()
	past := now.Add(-24 * time.Hour)

	adminHash, err := password.Hash("admin-password-1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	memberHash, err := password.Hash("member-password-1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	f.org = organizationdomain.Organisation{ID: f.node.Generate(), Name: "Acme", Slug: "acme", TimezoneName: "Europe/Paris"}
	f.admin = organizationdomain.User{ID: f.node.Generate(), OrgID: f.org.ID, Email: "rh@acme.test", DisplayName: "Claire", Role: organizationdomain.RoleAdmin, PasswordHash: &adminHash}
	f.member = organizationdomain.User{ID: f.node.Generate(), OrgID: f.org.ID, Email: "marie@acme.test", DisplayName: "Marie", Role: organizationdomain.RoleMember, PasswordHash: &memberHash}
	f.badge = badgedomain.Badge{ID: f.node.Generate(), OrgID: f.org.ID, Serial: "BDG-0001"}

	zone := topodomain.Zone{ID: f.node.Generate(), OrgID: f.org.ID, Name: "Site principal", IsPrincipal: true}
	reader := topodomain.Reader{ID: f.node.Generate(), OrgID: f.org.ID, Reference: "RDR-MAIN", InstalledAt: past}

	f.adminToken = "pt_admin_test"
	f.memberToken = "pt_member_test"
	f.deviceKey = "dk_device_test"

	for _, row := range []any{
		&f.org, &f.admin, &f.member, &f.badge, &zone, &reader,
		&badgedomain.BadgeAssignment{ID: f.node.Generate(), OrgID: f.org.ID, BadgeID: f.badge.ID, UserID: f.member.ID, StartsAt: past},
		&topodomain.ReaderZone{ID: f.node.Generate(), ReaderID: reader.ID, ZoneID: zone.ID},
		&topodomain.AccessGrant{ID: f.node.Generate(), OrgID: f.org.ID, UserID: f.member.ID, ZoneID: zone.ID, StartsAt: past},
		&topodomain.ReaderAPIKey{ID: f.node.Generate(), OrgID: f.org.ID, ReaderID: reader.ID, KeyHash: topodomain.HashAPIKey(f.deviceKey), IsActive: true},
		&organizationdomain.UserToken{ID: f.node.Generate(), UserID: f.admin.ID, TokenHash: organizationdomain.HashToken(f.adminToken)},
		&organizationdomain.UserToken{ID: f.node.Generate(), UserID: f.member.ID, TokenHash: organizationdomain.HashToken(f.memberToken)},
	} {
		if err := f.db.Create(row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestLoginIssuesUsableToken(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/auth/login", gin.H{
		"email":    "marie@acme.test",
		"password": "member-password-1",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("login must return a token")
	}

	status := f.do(t, http.MethodGet, "/v1/me/status", nil, bearer(resp.Token))
	if status.Code != http.StatusOK {
		t.Fatalf("status with fresh token: expected 200, got %d (%s)", status.Code, status.Body.String())
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/auth/login", gin.H{
		"email":    "marie@acme.test",
		"password": "wrong",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestMeEndpointsRequireToken(t *testing.T) {
	f := newFixture(t)

	if w := f.do(t, http.MethodGet, "/v1/me/status", nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/v1/me/status", nil, bearer("pt_nope")); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", w.Code)
	}
}

func TestDevicePointageRecordsEntry(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/device/pointage", gin.H{"badge_serial": "BDG-0001"}, map[string]string{
		HeaderDeviceKey: f.deviceKey,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}

	var resp struct {
		Event struct {
			Type string `json:"type"`
		} `json:"event"`
		NewStatus struct {
			Status string `json:"status"`
		} `json:"new_status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Event.Type != "entry" {
		t.Fatalf("expected entry, got %q", resp.Event.Type)
	}
	if resp.NewStatus.Status != "present" {
		t.Fatalf("expected present, got %q", resp.NewStatus.Status)
	}
}

func TestDevicePointageRequiresDeviceKey(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/device/pointage", gin.H{"badge_serial": "BDG-0001"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestDevicePointageUnknownSerialIs404(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/device/pointage", gin.H{"badge_serial": "BDG-NOPE"}, map[string]string{
		HeaderDeviceKey: f.deviceKey,
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestDevicePointageValidatesSerial(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/device/pointage", gin.H{"badge_serial": "  "}, map[string]string{
		HeaderDeviceKey: f.deviceKey,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAdminSurfaceRejectsMembers(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/admin/users", nil, bearer(f.memberToken))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for member, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestAdminListsUsers(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/admin/users", nil, bearer(f.adminToken))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var resp struct {
		Users []organizationdomain.User `json:"users"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(resp.Users))
	}
}

func TestAdminIssuesReaderKeyOnce(t *testing.T) {
	f := newFixture(t)

	create := f.do(t, http.MethodPost, "/v1/admin/readers", gin.H{"reference": "RDR-NEW"}, bearer(f.adminToken))
	if create.Code != http.StatusCreated {
		t.Fatalf("create reader: expected 201, got %d (%s)", create.Code, create.Body.String())
	}
	var reader topodomain.Reader
	if err := json.Unmarshal(create.Body.Bytes(), &reader); err != nil {
		t.Fatalf("decode reader: %v", err)
	}

	issue := f.do(t, http.MethodPost, fmt.Sprintf("/v1/admin/readers/%s/keys", reader.ID), nil, bearer(f.adminToken))
	if issue.Code != http.StatusCreated {
		t.Fatalf("issue key: expected 201, got %d (%s)", issue.Code, issue.Body.String())
	}
	var resp struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(issue.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode key: %v", err)
	}
	if resp.Key == "" {
		t.Fatalf("raw key must be returned on issuance")
	}

	var stored topodomain.ReaderAPIKey
	if err := f.db.Where("reader_id = ?", reader.ID).First(&stored).Error; err != nil {
		t.Fatalf("stored key: %v", err)
	}
	if stored.KeyHash != topodomain.HashAPIKey(resp.Key) {
		t.Fatalf("stored hash must match the raw key")
	}
	if stored.KeyHash == resp.Key {
		t.Fatalf("raw key must never be stored")
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestDeactivatedUserTokenRejected(t *testing.T) {
	f := newFixture(t)
	if err := f.db.Model(&organizationdomain.User{}).Where("id = ?", f.member.ID).Update("deactivated_at", time.Now().UTC()).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	w := f.do(t, http.MethodGet, "/v1/me/status", nil, bearer(f.memberToken))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deactivated account, got %d", w.Code)
	}
}
