package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"
	"todo_collab/internal/domain/model"
	"todo_collab/internal/platform/database"

	"github.com/go-test/deep"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// openTestDB connects to TEST_DATABASE_URL and applies the schema. Tests
// that need Postgres are skipped when it is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("pgx", url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	database.DB = db
	if err := database.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, users UserRepository) *model.User {
	t.Helper()
	user := &model.User{
		FirstName:      "Pg",
		LastName:       "Test",
		Email:          uuid.NewString() + "@example.com",
		HashedPassword: "x",
		Role:           model.RoleUser,
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	// Owned todos and collaborator rows cascade.
	t.Cleanup(func() { users.Delete(context.Background(), user.ID) })
	return user
}

func collaboratorRows(t *testing.T, db *sql.DB, todoID int64) []int64 {
	t.Helper()
	rows, err := db.Query(`SELECT user_id FROM todo_collaborators WHERE todo_id = $1 ORDER BY user_id`, todoID)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	return ids
}

func TestPgAddCollaborator(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewPgUserRepository(db)
	todos := NewPgToDoRepository(db)

	owner := createTestUser(t, users)
	other := createTestUser(t, users)
	todo := &model.ToDo{Title: "pg", Slug: "pg", CreatedAt: time.Now().UTC(), OwnerID: owner.ID}
	if err := todos.Create(ctx, todo); err != nil {
		t.Fatal(err)
	}

	if err := todos.AddCollaborator(ctx, todo.ID, owner.ID); err != nil {
		t.Fatalf("add owner: %v", err)
	}
	if got := collaboratorRows(t, db, todo.ID); len(got) != 0 {
		t.Errorf("owner stored as collaborator: %v", got)
	}

	for i := 0; i < 2; i++ {
		if err := todos.AddCollaborator(ctx, todo.ID, other.ID); err != nil {
			t.Fatalf("add #%d: %v", i+1, err)
		}
	}
	if diffs := deep.Equal(collaboratorRows(t, db, todo.ID), []int64{other.ID}); len(diffs) != 0 {
		t.Error(diffs)
	}

	if err := todos.RemoveCollaborator(ctx, todo.ID, other.ID); err != nil {
		t.Fatal(err)
	}
	if got := collaboratorRows(t, db, todo.ID); len(got) != 0 {
		t.Errorf("collaborator kept after remove: %v", got)
	}
}

func TestPgListByUser(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewPgUserRepository(db)
	todos := NewPgToDoRepository(db)

	owner := createTestUser(t, users)
	collaborator := createTestUser(t, users)
	stranger := createTestUser(t, users)

	created := time.Now().UTC().Truncate(time.Second)
	shared := &model.ToDo{Title: "shared", Slug: "shared", CreatedAt: created, OwnerID: owner.ID}
	private := &model.ToDo{Title: "private", Slug: "private", CreatedAt: created.Add(time.Second), OwnerID: owner.ID}
	own := &model.ToDo{Title: "own", Slug: "own", CreatedAt: created, OwnerID: collaborator.ID}
	for _, todo := range []*model.ToDo{shared, private, own} {
		if err := todos.Create(ctx, todo); err != nil {
			t.Fatal(err)
		}
	}
	if err := todos.AddCollaborator(ctx, shared.ID, collaborator.ID); err != nil {
		t.Fatal(err)
	}

	ids := func(userID int64) []int64 {
		t.Helper()
		list, err := todos.ListByUser(ctx, userID)
		if err != nil {
			t.Fatal(err)
		}
		var out []int64
		for _, todo := range list {
			out = append(out, todo.ID)
			if todo.ID == shared.ID && !todo.Collaborators.Has(collaborator.ID) {
				t.Errorf("todo %d: collaborators not loaded", todo.ID)
			}
		}
		return out
	}

	if diffs := deep.Equal(ids(owner.ID), []int64{shared.ID, private.ID}); len(diffs) != 0 {
		t.Errorf("owner: %v", diffs)
	}
	// shared and own tie on created_at, so id breaks the tie.
	if diffs := deep.Equal(ids(collaborator.ID), []int64{shared.ID, own.ID}); len(diffs) != 0 {
		t.Errorf("collaborator: %v", diffs)
	}
	if got := ids(stranger.ID); len(got) != 0 {
		t.Errorf("stranger: got %v", got)
	}
}
