// Package memstore is an in-memory implementation of the repository
// interfaces. It mirrors the Postgres constraints (unique email and state
// name, cascading deletes, idempotent collaborator rows) and counts calls
// so tests can assert which lookups a request performed.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"todo_collab/internal/common"
	"todo_collab/internal/domain/model"
	"todo_collab/internal/domain/repository"

	"github.com/thejerf/abtime"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	calls  map[string]int
	clock  abtime.AbstractTime

	users   map[int64]model.User
	todos   map[int64]model.ToDo
	tasks   map[int64]model.Task
	states  map[int64]model.State
	revoked map[string]time.Time
}

func New() *Store {
	return NewWithClock(abtime.NewRealTime())
}

// NewWithClock stamps created_at/updated_at from clock.
func NewWithClock(clock abtime.AbstractTime) *Store {
	return &Store{
		clock:   clock,
		calls:   make(map[string]int),
		users:   make(map[int64]model.User),
		todos:   make(map[int64]model.ToDo),
		tasks:   make(map[int64]model.Task),
		states:  make(map[int64]model.State),
		revoked: make(map[string]time.Time),
	}
}

func (s *Store) Users() repository.UserRepository             { return userRepo{s} }
func (s *Store) ToDos() repository.ToDoRepository             { return todoRepo{s} }
func (s *Store) Tasks() repository.TaskRepository             { return taskRepo{s} }
func (s *Store) States() repository.StateRepository           { return stateRepo{s} }
func (s *Store) Revocations() repository.RevocationRepository { return revocationRepo{s} }

// Calls returns how often the named method ran, e.g. "tasks.ListByToDo".
func (s *Store) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// ResetCalls clears the call counters, typically after fixture setup.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[string]int)
}

// enter locks the store and records the call; callers defer s.mu.Unlock.
func (s *Store) enter(name string) {
	s.mu.Lock()
	s.calls[name]++
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func notFound(kind string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", kind, id, common.ErrNotFound)
}

func cloneToDo(t model.ToDo) model.ToDo {
	t.Collaborators = model.NewCollaboratorSet(t.Collaborators.IDs()...)
	t.Tasks = nil
	return t
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *model.User) error {
	r.s.enter("users.Create")
	defer r.s.mu.Unlock()
	if r.s.emailTaken(user.Email, 0) {
		return fmt.Errorf("user with email %s already exists: %w", user.Email, common.ErrConflict)
	}
	now := r.s.clock.Now()
	user.ID = r.s.id()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = *user
	return nil
}

func (s *Store) emailTaken(email string, except int64) bool {
	for id, u := range s.users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r userRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	r.s.enter("users.FindByID")
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (r userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.enter("users.FindByEmail")
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r userRepo) List(ctx context.Context) ([]model.User, error) {
	r.s.enter("users.List")
	defer r.s.mu.Unlock()
	users := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r userRepo) Update(ctx context.Context, user *model.User) error {
	r.s.enter("users.Update")
	defer r.s.mu.Unlock()
	old, ok := r.s.users[user.ID]
	if !ok {
		return notFound("user", user.ID)
	}
	if r.s.emailTaken(user.Email, user.ID) {
		return fmt.Errorf("user with email %s already exists: %w", user.Email, common.ErrConflict)
	}
	user.CreatedAt = old.CreatedAt
	user.UpdatedAt = r.s.clock.Now()
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) Delete(ctx context.Context, id int64) error {
	r.s.enter("users.Delete")
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return notFound("user", id)
	}
	delete(r.s.users, id)
	for todoID, t := range r.s.todos {
		if t.OwnerID == id {
			r.s.deleteToDo(todoID)
			continue
		}
		delete(t.Collaborators, id)
	}
	return nil
}

type todoRepo struct{ s *Store }

func (r todoRepo) Create(ctx context.Context, todo *model.ToDo) error {
	r.s.enter("todos.Create")
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[todo.OwnerID]; !ok {
		return notFound("user", todo.OwnerID)
	}
	todo.ID = r.s.id()
	if todo.Collaborators == nil {
		todo.Collaborators = model.NewCollaboratorSet()
	}
	r.s.todos[todo.ID] = cloneToDo(*todo)
	return nil
}

func (r todoRepo) FindByID(ctx context.Context, id int64) (*model.ToDo, error) {
	r.s.enter("todos.FindByID")
	defer r.s.mu.Unlock()
	t, ok := r.s.todos[id]
	if !ok {
		return nil, notFound("todo", id)
	}
	t = cloneToDo(t)
	return &t, nil
}

func (r todoRepo) ListByUser(ctx context.Context, userID int64) ([]model.ToDo, error) {
	r.s.enter("todos.ListByUser")
	defer r.s.mu.Unlock()
	var todos []model.ToDo
	for _, t := range r.s.todos {
		if t.OwnerID == userID || t.Collaborators.Has(userID) {
			todos = append(todos, cloneToDo(t))
		}
	}
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID < todos[j].ID })
	return todos, nil
}

func (r todoRepo) Update(ctx context.Context, todo *model.ToDo) error {
	r.s.enter("todos.Update")
	defer r.s.mu.Unlock()
	old, ok := r.s.todos[todo.ID]
	if !ok {
		return notFound("todo", todo.ID)
	}
	old.Title = todo.Title
	old.Slug = todo.Slug
	r.s.todos[todo.ID] = old
	return nil
}

func (r todoRepo) Delete(ctx context.Context, id int64) error {
	r.s.enter("todos.Delete")
	defer r.s.mu.Unlock()
	if _, ok := r.s.todos[id]; !ok {
		return notFound("todo", id)
	}
	r.s.deleteToDo(id)
	return nil
}

func (s *Store) deleteToDo(id int64) {
	delete(s.todos, id)
	for taskID, t := range s.tasks {
		if t.TodoID == id {
			delete(s.tasks, taskID)
		}
	}
}

func (r todoRepo) AddCollaborator(ctx context.Context, todoID, userID int64) error {
	r.s.enter("todos.AddCollaborator")
	defer r.s.mu.Unlock()
	t, ok := r.s.todos[todoID]
	if !ok {
		return notFound("todo", todoID)
	}
	if _, ok := r.s.users[userID]; !ok {
		return notFound("user", userID)
	}
	if t.OwnerID == userID {
		return nil
	}
	t.Collaborators[userID] = struct{}{}
	return nil
}

func (r todoRepo) RemoveCollaborator(ctx context.Context, todoID, userID int64) error {
	r.s.enter("todos.RemoveCollaborator")
	defer r.s.mu.Unlock()
	if t, ok := r.s.todos[todoID]; ok {
		delete(t.Collaborators, userID)
	}
	return nil
}

type taskRepo struct{ s *Store }

func (r taskRepo) withState(t model.Task) model.Task {
	if st, ok := r.s.states[t.StateID]; ok {
		t.State = &st
	}
	return t
}

func (r taskRepo) Create(ctx context.Context, task *model.Task) error {
	r.s.enter("tasks.Create")
	defer r.s.mu.Unlock()
	if _, ok := r.s.todos[task.TodoID]; !ok {
		return notFound("todo", task.TodoID)
	}
	if _, ok := r.s.states[task.StateID]; !ok {
		return notFound("state", task.StateID)
	}
	task.ID = r.s.id()
	stored := *task
	stored.State = nil
	r.s.tasks[task.ID] = stored
	return nil
}

func (r taskRepo) FindByID(ctx context.Context, id int64) (*model.Task, error) {
	r.s.enter("tasks.FindByID")
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, notFound("task", id)
	}
	t = r.withState(t)
	return &t, nil
}

func (r taskRepo) ListByToDo(ctx context.Context, todoID int64) ([]model.Task, error) {
	r.s.enter("tasks.ListByToDo")
	defer r.s.mu.Unlock()
	var tasks []model.Task
	for _, t := range r.s.tasks {
		if t.TodoID == todoID {
			tasks = append(tasks, r.withState(t))
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (r taskRepo) Update(ctx context.Context, task *model.Task) error {
	r.s.enter("tasks.Update")
	defer r.s.mu.Unlock()
	old, ok := r.s.tasks[task.ID]
	if !ok {
		return notFound("task", task.ID)
	}
	if _, ok := r.s.states[task.StateID]; !ok {
		return notFound("state", task.StateID)
	}
	old.Name = task.Name
	old.Priority = task.Priority
	old.StateID = task.StateID
	r.s.tasks[task.ID] = old
	return nil
}

func (r taskRepo) Delete(ctx context.Context, id int64) error {
	r.s.enter("tasks.Delete")
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[id]; !ok {
		return notFound("task", id)
	}
	delete(r.s.tasks, id)
	return nil
}

type stateRepo struct{ s *Store }

func (s *Store) stateNameTaken(name string, except int64) bool {
	for id, st := range s.states {
		if id != except && st.Name == name {
			return true
		}
	}
	return false
}

func (r stateRepo) Create(ctx context.Context, state *model.State) error {
	r.s.enter("states.Create")
	defer r.s.mu.Unlock()
	if r.s.stateNameTaken(state.Name, 0) {
		return fmt.Errorf("state %q already exists: %w", state.Name, common.ErrConflict)
	}
	state.ID = r.s.id()
	r.s.states[state.ID] = *state
	return nil
}

func (r stateRepo) FindByID(ctx context.Context, id int64) (*model.State, error) {
	r.s.enter("states.FindByID")
	defer r.s.mu.Unlock()
	st, ok := r.s.states[id]
	if !ok {
		return nil, notFound("state", id)
	}
	return &st, nil
}

func (r stateRepo) FindByName(ctx context.Context, name string) (*model.State, error) {
	r.s.enter("states.FindByName")
	defer r.s.mu.Unlock()
	for _, st := range r.s.states {
		if st.Name == name {
			return &st, nil
		}
	}
	return nil, notFound("state", name)
}

func (r stateRepo) List(ctx context.Context) ([]model.State, error) {
	r.s.enter("states.List")
	defer r.s.mu.Unlock()
	states := make([]model.State, 0, len(r.s.states))
	for _, st := range r.s.states {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states, nil
}

func (r stateRepo) Update(ctx context.Context, state *model.State) error {
	r.s.enter("states.Update")
	defer r.s.mu.Unlock()
	if _, ok := r.s.states[state.ID]; !ok {
		return notFound("state", state.ID)
	}
	if r.s.stateNameTaken(state.Name, state.ID) {
		return fmt.Errorf("state %q already exists: %w", state.Name, common.ErrConflict)
	}
	r.s.states[state.ID] = *state
	return nil
}

func (r stateRepo) Delete(ctx context.Context, id int64) error {
	r.s.enter("states.Delete")
	defer r.s.mu.Unlock()
	if _, ok := r.s.states[id]; !ok {
		return notFound("state", id)
	}
	for _, t := range r.s.tasks {
		if t.StateID == id {
			return fmt.Errorf("state %d is still in use: %w", id, common.ErrConflict)
		}
	}
	delete(r.s.states, id)
	return nil
}

type revocationRepo struct{ s *Store }

func (r revocationRepo) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	r.s.enter("revocations.Revoke")
	defer r.s.mu.Unlock()
	r.s.revoked[tokenID] = until
	return nil
}

func (r revocationRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	r.s.enter("revocations.IsRevoked")
	defer r.s.mu.Unlock()
	_, ok := r.s.revoked[tokenID]
	return ok, nil
}

// PutUser stores u under its own id, replacing any existing row. Ids
// handed out afterwards stay above every seeded id.
func (s *Store) PutUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bump(u.ID)
	s.users[u.ID] = u
}

// PutToDo stores t under its own id. The owner is never kept in the
// collaborator set.
func (s *Store) PutToDo(t model.ToDo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bump(t.ID)
	t = cloneToDo(t)
	delete(t.Collaborators, t.OwnerID)
	s.todos[t.ID] = t
}

func (s *Store) PutTask(t model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bump(t.ID)
	t.State = nil
	s.tasks[t.ID] = t
}

func (s *Store) PutState(st model.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bump(st.ID)
	s.states[st.ID] = st
}

func (s *Store) bump(id int64) {
	if id > s.nextID {
		s.nextID = id
	}
}
