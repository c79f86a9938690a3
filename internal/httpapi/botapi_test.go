package httpapi

import (
	"net/http"
	"testing"

	"bot_license_panel/internal/domain"
)

func TestHandleRegisterCreatesPendingBot(t *testing.T) {
	store := newFakeBotStore()
	alerts := &fakeAlerter{}
	handler := newTestServer(t, store, &fakeNotifier{}, alerts)

	recorder := doJSON(t, handler, http.MethodPost, "/api/register-bot", map[string]any{
		"token":       "tok-1",
		"client_name": "alpha",
		"callbackURL": "http://bot.example:4000",
		"servers": []map[string]any{
			{"id": "g1", "name": "guild one", "hasElevatedPermission": true},
		},
	})

	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", recorder.Code, http.StatusCreated, recorder.Body.String())
	}

	record, ok := store.records["tok-1"]
	if !ok {
		t.Fatal("expected bot record to be created")
	}
	if record.Approved || record.PasswordEnabled || record.ForceRestart {
		t.Fatalf("new bot must start with all flags off, got %+v", record)
	}
	if record.ClientName != "alpha" || record.CallbackURL != "http://bot.example:4000" {
		t.Fatalf("unexpected record fields: %+v", record)
	}
	if len(record.Servers) != 1 || record.Servers[0].ID != "g1" || !record.Servers[0].HasElevatedPermission {
		t.Fatalf("unexpected servers: %+v", record.Servers)
	}
	if len(alerts.registered) != 1 || alerts.registered[0] != "alpha" {
		t.Fatalf("expected registration alert for alpha, got %v", alerts.registered)
	}
}

func TestHandleRegisterDuplicateToken(t *testing.T) {
	store := newFakeBotStore()
	handler := newTestServer(t, store, &fakeNotifier{}, nil)

	first := doJSON(t, handler, http.MethodPost, "/api/register-bot", map[string]any{
		"token": "tok-1", "client_name": "alpha",
	})
	if first.Code != http.StatusCreated {
		t.Fatalf("first registration status = %d", first.Code)
	}

	second := doJSON(t, handler, http.MethodPost, "/api/register-bot", map[string]any{
		"token": "tok-1", "client_name": "impostor",
	})
	if second.Code != http.StatusBadRequest {
		t.Fatalf("duplicate registration status = %d, want %d", second.Code, http.StatusBadRequest)
	}
	if got := decodeBody(t, second)["error"]; got != "bot already registered" {
		t.Fatalf("error = %v", got)
	}
	if store.records["tok-1"].ClientName != "alpha" {
		t.Fatal("duplicate registration must not overwrite the original record")
	}
}

func TestHandleRegisterInvalidBody(t *testing.T) {
	handler := newTestServer(t, newFakeBotStore(), &fakeNotifier{}, nil)

	recorder := doJSON(t, handler, http.MethodPost, "/api/register-bot", map[string]any{
		"client_name": "missing token",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusBadRequest)
	}
}

func TestHandleReportServersReplacesList(t *testing.T) {
	store := newFakeBotStore()
	store.records["tok-1"] = domain.BotRecord{
		Token: "tok-1",
		Servers: []domain.HostedServer{
			{ID: "old-1"}, {ID: "old-2"},
		},
	}
	store.order = []string{"tok-1"}
	handler := newTestServer(t, store, &fakeNotifier{}, nil)

	recorder := doJSON(t, handler, http.MethodPost, "/api/update-servers", map[string]any{
		"token": "tok-1",
		"servers": []map[string]any{
			{"id": "new-1", "name": "renamed"},
		},
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", recorder.Code, recorder.Body.String())
	}

	servers := store.records["tok-1"].Servers
	if len(servers) != 1 || servers[0].ID != "new-1" {
		t.Fatalf("expected full replacement, got %+v", servers)
	}
}

func TestHandleReportServersUnknownToken(t *testing.T) {
	handler := newTestServer(t, newFakeBotStore(), &fakeNotifier{}, nil)

	recorder := doJSON(t, handler, http.MethodPost, "/api/update-servers", map[string]any{
		"token": "ghost", "servers": []map[string]any{},
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusBadRequest)
	}
	if got := decodeBody(t, recorder)["error"]; got != "bot not registered" {
		t.Fatalf("error = %v", got)
	}
}

func TestHandlePollActivationUnknownIndistinguishable(t *testing.T) {
	store := newFakeBotStore()
	store.records["tok-1"] = domain.BotRecord{Token: "tok-1"}
	store.order = []string{"tok-1"}
	handler := newTestServer(t, store, &fakeNotifier{}, nil)

	unknown := doJSON(t, handler, http.MethodGet, "/api/check-activation?token=ghost", nil)
	pending := doJSON(t, handler, http.MethodGet, "/api/check-activation?token=tok-1", nil)
	missing := doJSON(t, handler, http.MethodGet, "/api/check-activation", nil)

	for name, recorder := range map[string]int{"unknown": unknown.Code, "pending": pending.Code, "missing": missing.Code} {
		if recorder != http.StatusOK {
			t.Fatalf("%s poll status = %d, want %d", name, recorder, http.StatusOK)
		}
	}

	if unknown.Body.String() != pending.Body.String() {
		t.Fatalf("unknown token body %q must match unapproved body %q", unknown.Body.String(), pending.Body.String())
	}
	if unknown.Body.String() != `{"approved":false}` {
		t.Fatalf("poll body = %q, want %q", unknown.Body.String(), `{"approved":false}`)
	}
}

func TestHandlePollActivationApprovedWithPolicy(t *testing.T) {
	store := newFakeBotStore()
	store.records["tok-1"] = domain.BotRecord{
		Token:           "tok-1",
		Approved:        true,
		PasswordEnabled: true,
		Password:        "swordfish",
		ForceRestart:    true,
	}
	store.order = []string{"tok-1"}
	handler := newTestServer(t, store, &fakeNotifier{}, nil)

	recorder := doJSON(t, handler, http.MethodGet, "/api/check-activation?token=tok-1", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}

	body := decodeBody(t, recorder)
	if body["approved"] != true || body["passwordEnabled"] != true || body["forceRestart"] != true {
		t.Fatalf("unexpected poll body: %v", body)
	}
	if body["password"] != "swordfish" {
		t.Fatalf("password = %v", body["password"])
	}
}

func TestHandleAcknowledgeRestartClearsFlag(t *testing.T) {
	store := newFakeBotStore()
	store.records["tok-1"] = domain.BotRecord{Token: "tok-1", Approved: true, ForceRestart: true}
	store.order = []string{"tok-1"}
	handler := newTestServer(t, store, &fakeNotifier{}, nil)

	recorder := doJSON(t, handler, http.MethodPost, "/api/check-activation-reset", map[string]any{"token": "tok-1"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", recorder.Code, recorder.Body.String())
	}
	if store.records["tok-1"].ForceRestart {
		t.Fatal("expected force restart to be cleared")
	}
	if !store.records["tok-1"].Approved {
		t.Fatal("acknowledge must not touch the approval flag")
	}

	// Idempotent: the second acknowledge is a no-op, not an error.
	again := doJSON(t, handler, http.MethodPost, "/api/check-activation-reset", map[string]any{"token": "tok-1"})
	if again.Code != http.StatusOK {
		t.Fatalf("repeat acknowledge status = %d", again.Code)
	}
}

func TestHandleAcknowledgeRestartUnknownToken(t *testing.T) {
	handler := newTestServer(t, newFakeBotStore(), &fakeNotifier{}, nil)

	recorder := doJSON(t, handler, http.MethodPost, "/api/check-activation-reset", map[string]any{"token": "ghost"})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusNotFound)
	}
}
