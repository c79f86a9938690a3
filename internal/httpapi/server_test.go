package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"bot_license_panel/internal/auth"
	"bot_license_panel/internal/domain"
)

const testAdminID = "admin-1"

type fakeBotStore struct {
	records map[string]domain.BotRecord
	order   []string
	err     error
}

func newFakeBotStore() *fakeBotStore {
	return &fakeBotStore{records: map[string]domain.BotRecord{}}
}

func (f *fakeBotStore) Create(_ context.Context, record domain.BotRecord) (domain.BotRecord, error) {
	if f.err != nil {
		return domain.BotRecord{}, f.err
	}
	if _, ok := f.records[record.Token]; ok {
		return domain.BotRecord{}, domain.ErrDuplicateToken
	}

	record.Approved = false
	record.PasswordEnabled = false
	record.ForceRestart = false
	f.records[record.Token] = record
	f.order = append(f.order, record.Token)
	return record, nil
}

func (f *fakeBotStore) GetByToken(_ context.Context, token string) (domain.BotRecord, error) {
	if f.err != nil {
		return domain.BotRecord{}, f.err
	}
	record, ok := f.records[token]
	if !ok {
		return domain.BotRecord{}, domain.ErrNotFound
	}
	return record, nil
}

func (f *fakeBotStore) List(_ context.Context) ([]domain.BotRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	records := make([]domain.BotRecord, 0, len(f.order))
	for _, token := range f.order {
		records = append(records, f.records[token])
	}
	return records, nil
}

func (f *fakeBotStore) ReplaceServers(_ context.Context, token string, servers []domain.HostedServer) error {
	return f.update(token, func(record *domain.BotRecord) {
		record.Servers = servers
	})
}

func (f *fakeBotStore) SetApproved(_ context.Context, token string, approved bool) error {
	return f.update(token, func(record *domain.BotRecord) {
		record.Approved = approved
	})
}

func (f *fakeBotStore) SetPassword(_ context.Context, token string, enabled bool, password string) error {
	return f.update(token, func(record *domain.BotRecord) {
		record.PasswordEnabled = enabled
		record.ForceRestart = true
		if enabled && password != "" {
			record.Password = password
		}
	})
}

func (f *fakeBotStore) ClearForceRestart(_ context.Context, token string) error {
	return f.update(token, func(record *domain.BotRecord) {
		record.ForceRestart = false
	})
}

func (f *fakeBotStore) update(token string, mutate func(*domain.BotRecord)) error {
	if f.err != nil {
		return f.err
	}
	record, ok := f.records[token]
	if !ok {
		return domain.ErrNotFound
	}
	mutate(&record)
	f.records[token] = record
	return nil
}

type fakeNotifier struct {
	calls []string
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, callbackURL string) error {
	f.calls = append(f.calls, callbackURL)
	return f.err
}

type fakeAlerter struct {
	registered []string
	stopped    []string
}

func (f *fakeAlerter) BotRegistered(_ context.Context, clientName, _ string) {
	f.registered = append(f.registered, clientName)
}

func (f *fakeAlerter) StopRequested(_ context.Context, clientName, _ string) {
	f.stopped = append(f.stopped, clientName)
}

func nullEntry() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logger.WithField("service", "test")
}

func newTestServer(t *testing.T, bots BotStore, notifier Notifier, alerts Alerter) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	entry := nullEntry()
	srv := &Server{
		bots:     bots,
		notifier: notifier,
		alerts:   alerts,
		gate:     auth.NewGate(testAdminID, nil, entry),
		logger:   entry,
	}

	return srv.Router()
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var decoded map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response body %q: %v", recorder.Body.String(), err)
	}
	return decoded
}

func TestNewServerRequiresCollaborators(t *testing.T) {
	entry := nullEntry()
	gate := auth.NewGate(testAdminID, nil, entry)

	if _, err := NewServer(3000, nil, &fakeNotifier{}, gate, nil, entry); err == nil {
		t.Fatal("expected error for nil bot store")
	}
	if _, err := NewServer(3000, newFakeBotStore(), nil, gate, nil, entry); err == nil {
		t.Fatal("expected error for nil notifier")
	}
	if _, err := NewServer(3000, newFakeBotStore(), &fakeNotifier{}, nil, nil, entry); err == nil {
		t.Fatal("expected error for nil gate")
	}

	srv, err := NewServer(3000, newFakeBotStore(), &fakeNotifier{}, gate, nil, entry, WithAlerter(&fakeAlerter{}))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if srv.alerts == nil {
		t.Fatal("expected alerter to be attached")
	}
	if srv.server.Addr != ":3000" {
		t.Fatalf("server addr = %q, want %q", srv.server.Addr, ":3000")
	}
}

func TestShutdownNilServer(t *testing.T) {
	var srv *Server
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() on nil server error = %v", err)
	}
}
