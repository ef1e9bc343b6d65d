package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"todo_collab/internal/app/service"
	"todo_collab/internal/common/security"
	"todo_collab/internal/domain/model"
	"todo_collab/internal/domain/repository"
	"todo_collab/internal/domain/repository/memstore"

	"github.com/charmbracelet/log"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"
)

type testServer struct {
	store   *memstore.Store
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithRevocations(t, nil)
}

// newTestServerWithRevocations swaps in revocations for the store's own
// deny-list when it is not nil.
func newTestServerWithRevocations(t *testing.T, revocations repository.RevocationRepository) *testServer {
	t.Helper()
	security.InitJWT([]byte("router-test-secret"), time.Hour)

	s := memstore.New()
	hashed, err := security.HashPassword("pw")
	if err != nil {
		t.Fatal(err)
	}
	s.PutUser(model.User{ID: 1, FirstName: "A", LastName: "One", Email: "a@example.com", HashedPassword: hashed, Role: model.RoleUser})
	s.PutUser(model.User{ID: 2, FirstName: "B", LastName: "Two", Email: "b@example.com", HashedPassword: hashed, Role: model.RoleUser})
	s.PutUser(model.User{ID: 3, FirstName: "C", LastName: "Three", Email: "c@example.com", HashedPassword: hashed, Role: model.RoleUser})
	s.PutUser(model.User{ID: 5, FirstName: "E", LastName: "Five", Email: "e@example.com", HashedPassword: hashed, Role: model.RoleUser})
	s.PutUser(model.User{ID: 99, FirstName: "Root", LastName: "Admin", Email: "admin@example.com", HashedPassword: hashed, Role: model.RoleAdmin})
	s.PutState(model.State{ID: 50, Name: model.DefaultStateName})
	s.PutState(model.State{ID: 51, Name: "Done"})
	s.PutToDo(model.ToDo{ID: 10, Title: "groceries", OwnerID: 1})
	s.PutToDo(model.ToDo{ID: 11, Title: "trip", OwnerID: 2, Collaborators: model.NewCollaboratorSet(3)})
	s.PutTask(model.Task{ID: 20, Name: "milk", Priority: model.PriorityLow, TodoID: 10, StateID: 50})
	s.PutTask(model.Task{ID: 21, Name: "tickets", Priority: model.PriorityHigh, TodoID: 11, StateID: 50})
	s.ResetCalls()

	if revocations == nil {
		revocations = s.Revocations()
	}
	svc := Services{
		Auth:     service.NewAuthService(s.Users(), revocations),
		Users:    service.NewUserService(s.Users()),
		ToDos:    service.NewToDoService(s.ToDos(), s.Tasks(), s.Users(), nil),
		Tasks:    service.NewTaskService(s.Tasks(), s.ToDos(), s.States()),
		States:   service.NewStateService(s.States()),
		Security: service.NewSecurityService(s.ToDos(), s.Tasks()),
	}
	return &testServer{store: s, handler: NewRouter(log.New(io.Discard), svc, false)}
}

func tokenFor(t *testing.T, id int64, role model.Role) string {
	t.Helper()
	issued, err := security.GenerateToken(id, role)
	if err != nil {
		t.Fatal(err)
	}
	return issued.Token
}

func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d (body %s)", rec.Code, http.StatusSeeOther, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != want {
		t.Errorf("Location: got %q, want %q", got, want)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: got %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do("GET", "/health", "", "")
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "OK" {
		t.Errorf("body: got %q, want %q", rec.Body.String(), "OK")
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	expectStatus(t, ts.do("GET", "/states/all", "", ""), http.StatusUnauthorized)
	expectStatus(t, ts.do("GET", "/states/all", "not-a-token", ""), http.StatusUnauthorized)
}

func TestLoginSetsCookie(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do("POST", "/login", "", `{"email":"a@example.com","password":"pw"}`)
	expectStatus(t, rec, http.StatusOK)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "jwt" {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("jwt cookie: got %+v", cookie)
	}

	req := httptest.NewRequest("GET", "/states/all", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: cookie.Value})
	next := httptest.NewRecorder()
	ts.handler.ServeHTTP(next, req)
	expectStatus(t, next, http.StatusOK)

	expectStatus(t, ts.do("POST", "/login", "", `{"email":"a@example.com","password":"bad"}`), http.StatusUnauthorized)
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := newTestServer(t)
	token := tokenFor(t, 1, model.RoleUser)

	expectRedirect(t, ts.do("POST", "/logout", token, ""), "/login")
	expectStatus(t, ts.do("GET", "/states/all", token, ""), http.StatusUnauthorized)
}

func TestAdminDeletesOtherUser(t *testing.T) {
	ts := newTestServer(t)
	token := tokenFor(t, 99, model.RoleAdmin)

	expectRedirect(t, ts.do("POST", "/users/5/delete", token, ""), "/users/all")
	if _, err := ts.store.Users().FindByID(context.Background(), 5); err == nil {
		t.Errorf("user 5 still stored")
	}
	expectStatus(t, ts.do("GET", "/users/all", token, ""), http.StatusOK)
}

func TestAdminDeletesSelf(t *testing.T) {
	ts := newTestServer(t)
	token := tokenFor(t, 99, model.RoleAdmin)

	rec := ts.do("POST", "/users/99/delete", token, "")
	expectRedirect(t, rec, "/login")

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "jwt" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Errorf("jwt cookie was not cleared")
	}
	expectStatus(t, ts.do("GET", "/states/all", token, ""), http.StatusUnauthorized)
}

func TestUserCannotDeleteOthers(t *testing.T) {
	ts := newTestServer(t)
	expectStatus(t, ts.do("POST", "/users/5/delete", tokenFor(t, 1, model.RoleUser), ""), http.StatusForbidden)
	if ts.store.Calls("users.Delete") != 0 {
		t.Errorf("delete reached the store")
	}
}

func TestAdminOnlyRoutes(t *testing.T) {
	ts := newTestServer(t)
	user := tokenFor(t, 1, model.RoleUser)
	admin := tokenFor(t, 99, model.RoleAdmin)

	expectStatus(t, ts.do("GET", "/users/all", user, ""), http.StatusForbidden)
	expectStatus(t, ts.do("POST", "/states/create", user, `{"name":"Blocked"}`), http.StatusForbidden)

	expectRedirect(t, ts.do("POST", "/states/create", admin, `{"name":"Blocked"}`), "/states/all")
	rec := ts.do("POST", "/users/create", admin, `{"first_name":"N","last_name":"U","email":"n@example.com","password":"pw"}`)
	if rec.Code != http.StatusSeeOther || !strings.HasPrefix(rec.Header().Get("Location"), "/todos/all/users/") {
		t.Errorf("create user: got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestRoleClaimIsNotTrusted(t *testing.T) {
	ts := newTestServer(t)
	forged := tokenFor(t, 1, model.RoleAdmin)
	expectStatus(t, ts.do("GET", "/users/all", forged, ""), http.StatusForbidden)
}

func TestReadToDo(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do("GET", "/todos/10/read", tokenFor(t, 1, model.RoleUser), "")
	expectStatus(t, rec, http.StatusOK)

	var view struct {
		ToDo  model.ToDo   `json:"todo"`
		Tasks []model.Task `json:"tasks"`
		Users []model.User `json:"users"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.ToDo.ID != 10 || len(view.Tasks) != 1 || view.Tasks[0].ID != 20 {
		t.Errorf("view: got todo %d with %d tasks", view.ToDo.ID, len(view.Tasks))
	}
	var candidates []int64
	for _, u := range view.Users {
		candidates = append(candidates, u.ID)
	}
	if diffs := deep.Equal(candidates, []int64{2, 3, 5, 99}); len(diffs) != 0 {
		spew.Dump(diffs)
		t.Error("unexpected candidate collaborators")
	}
}

func TestReadToDoDeniedBeforeTaskListing(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do("GET", "/todos/10/read", tokenFor(t, 3, model.RoleUser), "")
	expectStatus(t, rec, http.StatusForbidden)
	if got := ts.store.Calls("tasks.ListByToDo"); got != 0 {
		t.Errorf("tasks.ListByToDo calls: got %d, want 0", got)
	}
}

func TestReadMissingToDo(t *testing.T) {
	ts := newTestServer(t)
	expectStatus(t, ts.do("GET", "/todos/404/read", tokenFor(t, 1, model.RoleUser), ""), http.StatusNotFound)
	expectStatus(t, ts.do("GET", "/todos/abc/read", tokenFor(t, 1, model.RoleUser), ""), http.StatusBadRequest)
}

func TestCollaboratorFlow(t *testing.T) {
	ts := newTestServer(t)
	owner := tokenFor(t, 1, model.RoleUser)
	other := tokenFor(t, 2, model.RoleUser)

	expectStatus(t, ts.do("GET", "/todos/10/read", other, ""), http.StatusForbidden)
	expectStatus(t, ts.do("POST", "/todos/10/add?user_id=2", other, ""), http.StatusForbidden)

	expectRedirect(t, ts.do("POST", "/todos/10/add?user_id=2", owner, ""), "/todos/10/read")
	expectStatus(t, ts.do("GET", "/todos/10/read", other, ""), http.StatusOK)

	expectStatus(t, ts.do("POST", "/todos/10/add?user_id=1", owner, ""), http.StatusBadRequest)
	expectStatus(t, ts.do("POST", "/todos/10/add?user_id=404", owner, ""), http.StatusNotFound)

	expectRedirect(t, ts.do("POST", "/todos/10/remove?user_id=2", owner, ""), "/todos/10/read")
	expectStatus(t, ts.do("GET", "/todos/10/read", other, ""), http.StatusForbidden)
}

func TestToDoOwnerRoutes(t *testing.T) {
	ts := newTestServer(t)
	owner := tokenFor(t, 1, model.RoleUser)
	collaborator := tokenFor(t, 3, model.RoleUser)

	expectRedirect(t, ts.do("POST", "/todos/create/users/1", owner, `{"title":"Errands"}`), "/todos/all/users/1")
	expectStatus(t, ts.do("POST", "/todos/create/users/2", owner, `{"title":"Errands"}`), http.StatusForbidden)

	// A collaborator naming themself as owner is still not the todo owner.
	expectStatus(t, ts.do("POST", "/todos/11/update/users/3", collaborator, `{"title":"x"}`), http.StatusForbidden)
	expectStatus(t, ts.do("POST", "/todos/11/delete/users/3", collaborator, ""), http.StatusForbidden)
	if ts.store.Calls("todos.Update")+ts.store.Calls("todos.Delete") != 0 {
		t.Errorf("denied mutation reached the store")
	}

	expectRedirect(t, ts.do("POST", "/todos/10/update/users/1", owner, `{"title":"Groceries"}`), "/todos/all/users/1")
	expectRedirect(t, ts.do("POST", "/todos/10/delete/users/1", owner, ""), "/todos/all/users/1")
}

func TestListOwnToDos(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do("GET", "/todos/all/users/3", tokenFor(t, 3, model.RoleUser), "")
	expectStatus(t, rec, http.StatusOK)

	var view struct {
		User  model.User   `json:"user"`
		ToDos []model.ToDo `json:"todos"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.User.ID != 3 || len(view.ToDos) != 1 || view.ToDos[0].ID != 11 {
		t.Errorf("got user %d with %d todos", view.User.ID, len(view.ToDos))
	}

	expectStatus(t, ts.do("GET", "/todos/all/users/1", tokenFor(t, 3, model.RoleUser), ""), http.StatusForbidden)
}

func TestTaskRoutes(t *testing.T) {
	ts := newTestServer(t)
	collaborator := tokenFor(t, 3, model.RoleUser)
	stranger := tokenFor(t, 1, model.RoleUser)

	expectStatus(t, ts.do("GET", "/tasks/create/todos/11", collaborator, ""), http.StatusOK)
	expectRedirect(t, ts.do("POST", "/tasks/create/todos/11", collaborator, `{"name":"hotel","priority":"MEDIUM"}`), "/todos/11/read")
	expectStatus(t, ts.do("POST", "/tasks/create/todos/11", stranger, `{"name":"hotel","priority":"MEDIUM"}`), http.StatusForbidden)

	rec := ts.do("GET", "/tasks/21/update/todos/11", collaborator, "")
	expectStatus(t, rec, http.StatusOK)
	var view struct {
		Task       model.Task           `json:"task"`
		Priorities []model.TaskPriority `json:"priorities"`
		States     []model.State        `json:"states"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.Task.ID != 21 || len(view.Priorities) != 3 || len(view.States) != 2 {
		t.Errorf("edit view: got %+v", view)
	}

	expectRedirect(t, ts.do("POST", "/tasks/21/update/todos/11", collaborator, `{"name":"tickets","priority":"LOW","state_id":51}`), "/todos/11/read")
	expectStatus(t, ts.do("POST", "/tasks/21/delete/todos/11", stranger, ""), http.StatusForbidden)
	expectRedirect(t, ts.do("POST", "/tasks/21/delete/todos/11", collaborator, ""), "/todos/11/read")
}

func TestTaskFromAnotherToDo(t *testing.T) {
	ts := newTestServer(t)
	owner := tokenFor(t, 2, model.RoleUser)

	expectStatus(t, ts.do("POST", "/tasks/21/update/todos/10", owner, `{"name":"x","priority":"LOW","state_id":50}`), http.StatusNotFound)
	if ts.store.Calls("tasks.Update") != 0 {
		t.Errorf("update reached the store")
	}
}

func TestChangePasswordRedirects(t *testing.T) {
	ts := newTestServer(t)

	expectRedirect(t,
		ts.do("POST", "/users/change-password", tokenFor(t, 1, model.RoleUser), `{"old_password":"bad","new_password":"n"}`),
		"/users/change-password?error=true")
	expectRedirect(t,
		ts.do("POST", "/users/change-password", tokenFor(t, 1, model.RoleUser), `{"old_password":"pw","new_password":"n"}`),
		"/todos/all/users/1?success=true")
	expectRedirect(t,
		ts.do("POST", "/users/change-password", tokenFor(t, 99, model.RoleAdmin), `{"old_password":"pw","new_password":"n"}`),
		"/users/all?success=true")
}

func TestUserSelfService(t *testing.T) {
	ts := newTestServer(t)
	token := tokenFor(t, 2, model.RoleUser)

	expectStatus(t, ts.do("GET", "/users/2/read", token, ""), http.StatusOK)
	expectStatus(t, ts.do("GET", "/users/1/read", token, ""), http.StatusForbidden)
	expectRedirect(t,
		ts.do("POST", "/users/2/update", token, `{"first_name":"Bea","last_name":"Two","email":"bea@example.com"}`),
		"/users/2/read")
	expectStatus(t,
		ts.do("POST", "/users/2/update", token, `{"first_name":"Bea","last_name":"Two","email":"bea@example.com","role":"ADMIN"}`),
		http.StatusForbidden)
}

// failingRevocations accepts every token but cannot revoke any.
type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string, time.Time) error {
	return errors.New("redis unavailable")
}

func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, nil
}

func TestSelfDeleteKeepsAccountWhenRevocationFails(t *testing.T) {
	ts := newTestServerWithRevocations(t, failingRevocations{})
	token := tokenFor(t, 2, model.RoleUser)

	expectStatus(t, ts.do("POST", "/users/2/delete", token, ""), http.StatusInternalServerError)
	if ts.store.Calls("users.Delete") != 0 {
		t.Errorf("account deleted although the token could not be revoked")
	}
	if _, err := ts.store.Users().FindByID(context.Background(), 2); err != nil {
		t.Errorf("user 2: %v", err)
	}
}

func TestRedirectTargetsServeGet(t *testing.T) {
	user := tokenFor(t, 1, model.RoleUser)
	collaborator := tokenFor(t, 3, model.RoleUser)
	admin := tokenFor(t, 99, model.RoleAdmin)

	tests := []struct {
		name   string
		token  string
		method string
		path   string
		body   string
		follow string // token sent on the followed GET
	}{
		{"logout", user, "POST", "/logout", "", ""},
		{"self delete", tokenFor(t, 2, model.RoleUser), "POST", "/users/2/delete", "", ""},
		{"admin delete", admin, "POST", "/users/5/delete", "", admin},
		{"wrong old password", user, "POST", "/users/change-password", `{"old_password":"bad","new_password":"n"}`, user},
		{"password changed", user, "POST", "/users/change-password", `{"old_password":"pw","new_password":"n"}`, user},
		{"admin password changed", admin, "POST", "/users/change-password", `{"old_password":"pw","new_password":"n"}`, admin},
		{"user updated", user, "POST", "/users/1/update", `{"first_name":"Al","last_name":"One","email":"al@example.com"}`, user},
		{"todo created", user, "POST", "/todos/create/users/1", `{"title":"Errands"}`, user},
		{"todo updated", user, "POST", "/todos/10/update/users/1", `{"title":"Groceries"}`, user},
		{"collaborator added", user, "POST", "/todos/10/add?user_id=2", "", user},
		{"task created", collaborator, "POST", "/tasks/create/todos/11", `{"name":"hotel","priority":"MEDIUM"}`, collaborator},
		{"state created", admin, "POST", "/states/create", `{"name":"Blocked"}`, admin},
		{"todo deleted", user, "POST", "/todos/10/delete/users/1", "", user},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.do(tt.method, tt.path, tt.token, tt.body)
			expectStatus(t, rec, http.StatusSeeOther)
			location := rec.Header().Get("Location")
			expectStatus(t, ts.do("GET", location, tt.follow, ""), http.StatusOK)
		})
	}
}

func TestCreatedUserRedirectRouteExists(t *testing.T) {
	ts := newTestServer(t)
	admin := tokenFor(t, 99, model.RoleAdmin)

	rec := ts.do("POST", "/users/create", admin, `{"first_name":"N","last_name":"U","email":"n@example.com","password":"pw"}`)
	expectStatus(t, rec, http.StatusSeeOther)
	// The list belongs to the new user, so the admin is routed but denied.
	expectStatus(t, ts.do("GET", rec.Header().Get("Location"), admin, ""), http.StatusForbidden)
}

func TestLoginForm(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do("GET", "/login?error=true", "", "")
	expectStatus(t, rec, http.StatusOK)

	var view struct {
		Fields []string `json:"fields"`
		Error  bool     `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if diffs := deep.Equal(view.Fields, []string{"email", "password"}); len(diffs) != 0 || !view.Error {
		spew.Dump(view)
		t.Error("unexpected login view")
	}
}

func TestUserFormViews(t *testing.T) {
	ts := newTestServer(t)
	user := tokenFor(t, 2, model.RoleUser)
	admin := tokenFor(t, 99, model.RoleAdmin)

	expectStatus(t, ts.do("GET", "/users/create", user, ""), http.StatusForbidden)
	expectStatus(t, ts.do("GET", "/users/create", admin, ""), http.StatusOK)

	expectStatus(t, ts.do("GET", "/users/1/update", user, ""), http.StatusForbidden)
	for _, token := range []string{user, admin} {
		rec := ts.do("GET", "/users/2/update", token, "")
		expectStatus(t, rec, http.StatusOK)
		var view struct {
			User  model.User   `json:"user"`
			Roles []model.Role `json:"roles"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatal(err)
		}
		if view.User.ID != 2 {
			t.Errorf("update view user: got %d, want 2", view.User.ID)
		}
		if diffs := deep.Equal(view.Roles, model.Roles()); len(diffs) != 0 {
			spew.Dump(diffs)
			t.Error("unexpected roles")
		}
	}

	rec := ts.do("GET", "/users/change-password?success=true", user, "")
	expectStatus(t, rec, http.StatusOK)
	var view struct {
		User    model.User `json:"user"`
		Error   bool       `json:"error"`
		Success bool       `json:"success"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.User.ID != 2 || view.Error || !view.Success {
		t.Errorf("change-password view: got %+v", view)
	}
	expectStatus(t, ts.do("GET", "/users/change-password", "", ""), http.StatusUnauthorized)
}

func TestToDoFormViews(t *testing.T) {
	ts := newTestServer(t)
	owner := tokenFor(t, 2, model.RoleUser)
	collaborator := tokenFor(t, 3, model.RoleUser)

	expectStatus(t, ts.do("GET", "/todos/create/users/2", owner, ""), http.StatusOK)
	expectStatus(t, ts.do("GET", "/todos/create/users/3", owner, ""), http.StatusForbidden)

	rec := ts.do("GET", "/todos/11/update/users/2", owner, "")
	expectStatus(t, rec, http.StatusOK)
	var view struct {
		ToDo  model.ToDo `json:"todo"`
		Owner model.User `json:"owner"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.ToDo.ID != 11 || view.Owner.ID != 2 {
		t.Errorf("update view: got todo %d owner %d", view.ToDo.ID, view.Owner.ID)
	}

	// A collaborator naming themself as owner is still not the todo owner.
	expectStatus(t, ts.do("GET", "/todos/11/update/users/3", collaborator, ""), http.StatusForbidden)
	expectStatus(t, ts.do("GET", "/todos/11/update/users/2", collaborator, ""), http.StatusForbidden)
}
