package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vigia-app/vigia/internal/api"
	"github.com/vigia-app/vigia/internal/config"
	"github.com/vigia-app/vigia/internal/feed"
	"github.com/vigia-app/vigia/internal/ledger"
	"github.com/vigia-app/vigia/internal/models"
	"github.com/vigia-app/vigia/internal/report"
	"github.com/vigia-app/vigia/internal/vigiadb"
	"github.com/vigia-app/vigia/internal/wallet"
)

// testProvider answers the minimal EIP-1193 surface the handlers exercise.
// It reports the target chain so reconciliation takes the fast path.
type testProvider struct {
	flags      wallet.Flags
	rejectConn bool
}

func (p *testProvider) Flags() wallet.Flags { return p.flags }

func (p *testProvider) Request(_ context.Context, method string, _ ...any) (json.RawMessage, error) {
	switch method {
	case "eth_requestAccounts":
		if p.rejectConn {
			return nil, &wallet.RPCError{Code: config.CodeUserRejected, Message: "User rejected the request"}
		}
		return json.Marshal([]string{"0xAbCd000000000000000000000000000000000001"})
	case "eth_chainId":
		return json.Marshal(config.HardhatNetwork().ChainIDHex())
	default:
		return json.Marshal(nil)
	}
}

// testSubmitter is a ledger write stub.
type testSubmitter struct {
	txHash string
	err    error
	calls  int
}

func (s *testSubmitter) SubmitReport(context.Context, *wallet.Session, models.ReportInput) (string, error) {
	s.calls++
	return s.txHash, s.err
}

func (s *testSubmitter) ConfirmReport(context.Context, *wallet.Session, uint64) (string, error) {
	s.calls++
	return s.txHash, s.err
}

// testCaller scripts read-only contract calls.
type testCaller struct {
	result []byte
	err    error
}

func (c *testCaller) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return c.result, c.err
}

func (c *testCaller) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

type testLister struct{ reports []models.Report }

func (l *testLister) ListReports(context.Context) ([]models.Report, error) {
	return l.reports, nil
}

type testDeps struct {
	db        *vigiadb.DB
	sessions  *wallet.Manager
	submitter *testSubmitter
	caller    *testCaller
	router    http.Handler
}

func setupTestDeps(t *testing.T) *testDeps {
	t.Helper()

	db, err := vigiadb.New(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	caller := &testCaller{}
	gateway, err := ledger.NewGateway(caller, config.HardhatContractAddress)
	if err != nil {
		t.Fatalf("failed to create gateway: %v", err)
	}

	seeds, err := db.ListSeedReports()
	if err != nil {
		t.Fatalf("failed to load seeds: %v", err)
	}

	sessions := wallet.NewManager()
	submitter := &testSubmitter{txHash: "0xfeed"}
	pipeline := report.NewPipeline(sessions, nil, submitter, db, config.HardhatNetwork())

	deps := &api.Dependencies{
		Config:   &config.Config{Network: config.NetworkHardhat, Port: 8080},
		DB:       db,
		Host:     wallet.NewStaticHost(&testProvider{flags: wallet.Flags{MetaMask: true}}),
		Sessions: sessions,
		Gateway:  gateway,
		Pipeline: pipeline,
		Feed:     feed.NewReadModel(&testLister{}, seeds, time.Minute),
	}

	return &testDeps{
		db:        db,
		sessions:  sessions,
		submitter: submitter,
		caller:    caller,
		router:    api.NewRouter(deps),
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func connect(t *testing.T, d *testDeps) {
	t.Helper()
	if w := doJSON(t, d.router, http.MethodPost, "/api/wallet/connect", map[string]int{"provider_index": 0}); w.Code != http.StatusOK {
		t.Fatalf("connect status = %d: %s", w.Code, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	d := setupTestDeps(t)

	w := doJSON(t, d.router, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data["status"] != "ok" {
		t.Errorf("status field = %v", resp.Data["status"])
	}
	if resp.Data["connected"] != false {
		t.Errorf("connected = %v before any session", resp.Data["connected"])
	}
}

func TestListProviders(t *testing.T) {
	d := setupTestDeps(t)

	w := doJSON(t, d.router, http.MethodGet, "/api/wallet/providers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Data []struct {
			Label string `json:"label"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Label != "MetaMask" {
		t.Errorf("providers = %+v", resp.Data)
	}
}

func TestConnectAndSession(t *testing.T) {
	d := setupTestDeps(t)
	connect(t, d)

	w := doJSON(t, d.router, http.MethodGet, "/api/wallet/session", nil)
	var resp struct {
		Data struct {
			Connected bool   `json:"connected"`
			Address   string `json:"address"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Data.Connected {
		t.Error("session not connected after connect")
	}
	if resp.Data.Address != "0xabcd000000000000000000000000000000000001" {
		t.Errorf("address = %q, want lowercase", resp.Data.Address)
	}

	if w := doJSON(t, d.router, http.MethodPost, "/api/wallet/disconnect", nil); w.Code != http.StatusOK {
		t.Fatalf("disconnect status = %d", w.Code)
	}
	if d.sessions.Active() != nil {
		t.Error("session still active after disconnect")
	}
}

func TestConnectBadIndex(t *testing.T) {
	d := setupTestDeps(t)

	w := doJSON(t, d.router, http.MethodPost, "/api/wallet/connect", map[string]int{"provider_index": 5})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestConnectUserRejected(t *testing.T) {
	d := setupTestDeps(t)
	sessions := wallet.NewManager()
	deps := &api.Dependencies{
		Config:   &config.Config{Network: config.NetworkHardhat},
		DB:       d.db,
		Host:     wallet.NewStaticHost(&testProvider{rejectConn: true}),
		Sessions: sessions,
		Feed:     feed.NewReadModel(&testLister{}, nil, time.Minute),
	}
	router := api.NewRouter(deps)

	w := doJSON(t, router, http.MethodPost, "/api/wallet/connect", map[string]int{"provider_index": 0})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
	if sessions.Active() != nil {
		t.Error("rejected connect left a session")
	}
}

func TestListReportsServesSnapshot(t *testing.T) {
	d := setupTestDeps(t)

	w := doJSON(t, d.router, http.MethodGet, "/api/reports", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Data []models.DisplayReport `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 3 {
		t.Errorf("got %d reports, want the 3 seed fixtures", len(resp.Data))
	}
	for _, r := range resp.Data {
		if !r.Seed {
			t.Errorf("report %d not marked as seed", r.ID)
		}
	}
}

func TestCountReports(t *testing.T) {
	d := setupTestDeps(t)
	d.caller.result = common.LeftPadBytes(big.NewInt(42).Bytes(), 32)

	w := doJSON(t, d.router, http.MethodGet, "/api/reports/count", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data map[string]uint64 `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data["total"] != 42 {
		t.Errorf("total = %d, want 42", resp.Data["total"])
	}
}

func TestGetReportBadID(t *testing.T) {
	d := setupTestDeps(t)

	if w := doJSON(t, d.router, http.MethodGet, "/api/reports/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetReportNotFound(t *testing.T) {
	d := setupTestDeps(t)
	d.caller.err = errors.New("execution reverted")

	if w := doJSON(t, d.router, http.MethodGet, "/api/reports/99", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSubmitReport(t *testing.T) {
	d := setupTestDeps(t)
	connect(t, d)

	w := doJSON(t, d.router, http.MethodPost, "/api/reports", map[string]string{
		"latitude":    "19.4",
		"longitude":   "-99.1",
		"description": "Bache profundo",
		"category":    "Bache",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if d.submitter.calls != 1 {
		t.Errorf("submit calls = %d, want 1", d.submitter.calls)
	}

	// The audit trail recorded the run.
	subs, err := d.db.ListSubmissions(context.Background(), "")
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(subs) != 1 || subs[0].Status != models.SubmissionConfirmed {
		t.Errorf("audit trail = %+v", subs)
	}
}

func TestSubmitReportValidation(t *testing.T) {
	d := setupTestDeps(t)
	connect(t, d)

	w := doJSON(t, d.router, http.MethodPost, "/api/reports", map[string]string{
		"latitude":    "19.4",
		"longitude":   "-99.1",
		"description": "",
		"category":    "Bache",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if d.submitter.calls != 0 {
		t.Errorf("submit calls = %d for invalid input, want 0", d.submitter.calls)
	}
}

func TestSubmitReportOversizeBodyRejected(t *testing.T) {
	d := setupTestDeps(t)
	connect(t, d)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("latitude", "19.4")
	mw.WriteField("longitude", "-99.1")
	mw.WriteField("description", "Bache profundo")
	mw.WriteField("category", "Bache")
	part, err := mw.CreateFormFile("image", "big.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	// Past the handler's body bound, not just the publisher's image cap.
	if _, err := part.Write(make([]byte, config.MaxUploadBytes+2*1024*1024)); err != nil {
		t.Fatalf("write image part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/reports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if d.submitter.calls != 0 {
		t.Errorf("submit calls = %d for oversize body, want 0", d.submitter.calls)
	}
}

func TestSubmitReportWithoutSession(t *testing.T) {
	d := setupTestDeps(t)

	w := doJSON(t, d.router, http.MethodPost, "/api/reports", map[string]string{
		"latitude":    "19.4",
		"longitude":   "-99.1",
		"description": "Bache profundo",
		"category":    "Bache",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestConfirmReport(t *testing.T) {
	d := setupTestDeps(t)
	connect(t, d)

	w := doJSON(t, d.router, http.MethodPost, "/api/reports/7/confirm", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data["tx_hash"] != "0xfeed" {
		t.Errorf("tx_hash = %q", resp.Data["tx_hash"])
	}
}

func TestListSubmissionsEmpty(t *testing.T) {
	d := setupTestDeps(t)

	w := doJSON(t, d.router, http.MethodGet, "/api/submissions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
