package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelanceos/internal/handler"
	"freelanceos/internal/model"
	"freelanceos/internal/repository"
	"freelanceos/internal/service/assistant"
	"freelanceos/internal/service/auth"
	"freelanceos/internal/service/entity"
	"freelanceos/internal/service/inbox"
	"freelanceos/internal/service/report"
	"freelanceos/internal/service/task"
	"freelanceos/internal/service/upload"
	"freelanceos/internal/service/wizard"
	"freelanceos/pkg/llm"
	"freelanceos/pkg/outbox"
	"freelanceos/pkg/rbac"
	"freelanceos/pkg/trace"
	"freelanceos/pkg/util"
)

const testSecret = "test-secret"

type fakeReplayer struct {
	replayed []int64
}

func (f *fakeReplayer) ReplayEvent(_ context.Context, id int64) error {
	if id == 404 {
		return outbox.ErrEventNotFound
	}
	f.replayed = append(f.replayed, id)
	return nil
}

func (f *fakeReplayer) ReplayFailedEvents(context.Context, int) (int, error) { return 3, nil }

func (f *fakeReplayer) FailedEvents(context.Context, int) ([]*outbox.Event, error) {
	return []*outbox.Event{}, nil
}

type testServer struct {
	router   *Router
	stores   *repository.MemoryStores
	llm      *llm.Mock
	replayer *fakeReplayer
}

func newTestServer(t *testing.T, ready map[string]ReadinessCheck) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	stores := repository.NewMemoryStores()
	mock := llm.NewMock()
	replayer := &fakeReplayer{}

	h := Handlers{
		Auth:   handler.NewAuthHandler(auth.NewService(repository.NewMemoryUsers(), testSecret, time.Hour, log), log),
		Entity: handler.NewEntityHandler(entity.Resources(stores.Stores), log),
		Wizard: handler.NewWizardHandler(wizard.NewService(wizard.NewMemoryDraftStore(), stores.Projects, stores.Log, mock, log), log),
		Task:   handler.NewTaskHandler(task.NewService(stores.Tasks, mock, log), log),
		Inbox:  handler.NewInboxHandler(inbox.NewService(stores.Messages, stores.Clients, stores.Projects, mock, log), log),
		Report: handler.NewReportHandler(report.NewService(stores.Stores, log), log),
		Assistant: handler.NewAssistantHandler(
			assistant.NewService(stores.Conversations, assistant.NewMemoryBroker(), mock, assistant.Config{WhatsAppNumber: "+1 555 0100"}, log), log),
		Integration: handler.NewIntegrationHandler(mock, upload.NewService(t.TempDir(), "/files", 1<<20, log), log),
		Admin:       handler.NewAdminHandler(replayer, log),
	}
	r := NewRouter(h, Options{JWTSecret: testSecret, Ready: ready, Logger: log})
	return &testServer{router: r, stores: stores, llm: mock, replayer: replayer}
}

func token(t *testing.T, userID, role, clientID string) string {
	t.Helper()
	tok, err := util.GenerateJWT(userID, role, clientID, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return tok
}

func (s *testServer) do(method, path, tok string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestHealthAndTraceHeader(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(trace.HeaderName(), "abc123")
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get(trace.HeaderName()); got != "abc123" {
		t.Errorf("expected trace id to be echoed, got %q", got)
	}
}

func TestReadyzReportsFailingCheck(t *testing.T) {
	s := newTestServer(t, map[string]ReadinessCheck{
		"db": func(context.Context) error { return errors.New("down") },
	})
	w := s.do(http.MethodGet, "/readyz", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var body map[string]string
	decode(t, w, &body)
	if body["status"] != "db_not_ready" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, nil)
	if w := s.do(http.MethodGet, "/api/tasks", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/tasks", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/auth/me", token(t, "u1", "superuser", ""), nil); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a role outside admin/client, got %d", w.Code)
	}
}

func TestRegisterLoginMe(t *testing.T) {
	s := newTestServer(t, nil)
	creds := map[string]string{"email": "me@example.com", "password": "long-enough-pw"}

	if w := s.do(http.MethodPost, "/api/auth/register", "", creds); w.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	w := s.do(http.MethodPost, "/api/auth/login", "", creds)
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	var sess auth.Session
	decode(t, w, &sess)

	w = s.do(http.MethodGet, "/api/auth/me", sess.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}
	var me model.User
	decode(t, w, &me)
	if me.Email != "me@example.com" {
		t.Errorf("unexpected user: %+v", me)
	}

	if w := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "me@example.com", "password": "nope-nope"}); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", w.Code)
	}
}

func TestEntityCRUD(t *testing.T) {
	s := newTestServer(t, nil)
	admin := token(t, "u1", rbac.RoleAdmin, "")

	w := s.do(http.MethodPost, "/api/entities/Client", admin, map[string]any{"company_name": "Acme", "tier": "A"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var created model.Client
	decode(t, w, &created)
	if created.ID == "" || created.CreatedBy != "u1" {
		t.Fatalf("unexpected client: %+v", created)
	}

	w = s.do(http.MethodPatch, "/api/entities/Client/"+created.ID, admin, map[string]any{"notes": "vip"})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodPost, "/api/entities/Client", admin, map[string]any{"tier": "Z"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid client, got %d", w.Code)
	}

	if w := s.do(http.MethodDelete, "/api/entities/Client/"+created.ID, admin, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/entities/Client/"+created.ID, admin, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestClientRoleIsScoped(t *testing.T) {
	s := newTestServer(t, nil)
	s.stores.Projects.Seed(
		model.Project{Title: "mine", ClientID: "c1", Status: model.ProjectActive},
		model.Project{Title: "theirs", ClientID: "c2", Status: model.ProjectActive},
	)
	client := token(t, "portal-user", rbac.RoleClient, "c1")

	w := s.do(http.MethodGet, "/api/entities/Project", client, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	var projects []model.Project
	decode(t, w, &projects)
	if len(projects) != 1 || projects[0].Title != "mine" {
		t.Errorf("client must only see own projects, got %+v", projects)
	}

	for _, path := range []string{"/api/entities/Client", "/api/reports/dashboard", "/api/admin/outbox/failed"} {
		if w := s.do(http.MethodGet, path, client, nil); w.Code != http.StatusForbidden {
			t.Errorf("GET %s: expected 403, got %d", path, w.Code)
		}
	}
	if w := s.do(http.MethodPost, "/api/inbox/m1/archive", client, nil); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for inbox triage, got %d", w.Code)
	}
}

func TestTaskViews(t *testing.T) {
	s := newTestServer(t, nil)
	admin := token(t, "u1", rbac.RoleAdmin, "")
	s.stores.Tasks.Seed(
		model.Task{Title: "a", Status: model.TaskTodo, Priority: model.PriorityHigh, StartDate: "2030-01-02", DueDate: "2030-01-05"},
		model.Task{Title: "b", Status: model.TaskReview, Priority: model.PriorityLow},
	)

	w := s.do(http.MethodGet, "/api/tasks?view=board", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("board: %d %s", w.Code, w.Body.String())
	}
	var board struct {
		Columns []task.Column `json:"columns"`
	}
	decode(t, w, &board)
	if len(board.Columns) != len(model.TaskStatuses) {
		t.Errorf("expected one column per status, got %d", len(board.Columns))
	}

	w = s.do(http.MethodGet, "/api/tasks?view=timeline&from=2030-01-01&to=2030-01-31", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("timeline: %d %s", w.Code, w.Body.String())
	}
	var tl struct {
		Bars []task.Bar `json:"bars"`
	}
	decode(t, w, &tl)
	if len(tl.Bars) != 1 || tl.Bars[0].OffsetDays != 1 {
		t.Errorf("unexpected bars: %+v", tl.Bars)
	}

	if w := s.do(http.MethodGet, "/api/tasks?view=gantt", admin, nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown view, got %d", w.Code)
	}
}

func TestAdminReplay(t *testing.T) {
	s := newTestServer(t, nil)
	admin := token(t, "u1", rbac.RoleAdmin, "")

	if w := s.do(http.MethodPost, "/api/admin/outbox/replay?id=7", admin, nil); w.Code != http.StatusOK {
		t.Fatalf("replay: %d %s", w.Code, w.Body.String())
	}
	if len(s.replayer.replayed) != 1 || s.replayer.replayed[0] != 7 {
		t.Errorf("unexpected replays: %v", s.replayer.replayed)
	}
	if w := s.do(http.MethodPost, "/api/admin/outbox/replay?id=404", admin, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown event, got %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/admin/outbox/replay?id=x", admin, nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", w.Code)
	}

	w := s.do(http.MethodPost, "/api/admin/outbox/replay-failed", admin, nil)
	var body map[string]any
	decode(t, w, &body)
	if body["success_count"] != float64(3) || body["limit"] != float64(100) {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestLLMInvokeUnavailable(t *testing.T) {
	s := newTestServer(t, nil)
	admin := token(t, "u1", rbac.RoleAdmin, "")
	s.llm.PushError(llm.ErrUnavailable)

	w := s.do(http.MethodPost, "/api/llm/invoke", admin, map[string]any{"prompt": "hi"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodPost, "/api/llm/invoke", admin, map[string]any{}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without prompt, got %d", w.Code)
	}
}

func TestPortalRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	s.stores.Invoices.Seed(
		model.Invoice{InvoiceNumber: "INV-1", ClientID: "c1", Status: model.InvoiceSent, Amount: 100},
		model.Invoice{InvoiceNumber: "INV-2", ClientID: "c2", Status: model.InvoiceSent, Amount: 200},
	)
	client := token(t, "portal-user", rbac.RoleClient, "c1")

	w := s.do(http.MethodGet, "/portal/invoices", client, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("invoices: %d %s", w.Code, w.Body.String())
	}
	var invoices []model.Invoice
	decode(t, w, &invoices)
	if len(invoices) != 1 || invoices[0].InvoiceNumber != "INV-1" {
		t.Errorf("unexpected invoices: %+v", invoices)
	}

	w = s.do(http.MethodPost, "/portal/messages", client, map[string]any{
		"subject": "Question", "content": "When is the next milestone?", "client_id": "c2",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a message naming another client, got %d %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodPost, "/portal/messages", client, map[string]any{
		"subject": "Question", "content": "When is the next milestone?", "channel": "portal",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("send message: %d %s", w.Code, w.Body.String())
	}
	var msg model.Message
	decode(t, w, &msg)
	if msg.ClientID != "c1" {
		t.Errorf("portal messages must be pinned to the caller's client, got %q", msg.ClientID)
	}

	admin := token(t, "u1", rbac.RoleAdmin, "")
	if w := s.do(http.MethodGet, "/portal/invoices", admin, nil); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for admin on portal, got %d", w.Code)
	}
}

func TestConversationMessages(t *testing.T) {
	s := newTestServer(t, nil)
	owner := token(t, "u1", rbac.RoleAdmin, "")

	w := s.do(http.MethodPost, "/api/conversations", owner, map[string]any{"agent_name": "business_assistant"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create conversation: %d %s", w.Code, w.Body.String())
	}
	var conv model.Conversation
	decode(t, w, &conv)

	s.llm.PushText("Two invoices are overdue.")
	gets := s.stores.Conversations.Calls("get")
	w = s.do(http.MethodPost, "/api/conversations/"+conv.ID+"/messages", owner, map[string]any{"content": "Anything overdue?"})
	if w.Code != http.StatusOK {
		t.Fatalf("add message: %d %s", w.Code, w.Body.String())
	}
	decode(t, w, &conv)
	if len(conv.Messages) != 2 || conv.Messages[1].Role != model.RoleAssistant {
		t.Errorf("expected user turn and reply, got %+v", conv.Messages)
	}
	if n := s.stores.Conversations.Calls("get") - gets; n != 1 {
		t.Errorf("expected a single conversation read per message, got %d", n)
	}

	intruder := token(t, "u2", rbac.RoleAdmin, "")
	w = s.do(http.MethodPost, "/api/conversations/"+conv.ID+"/messages", intruder, map[string]any{"content": "hi"})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for another user's conversation, got %d", w.Code)
	}
}
