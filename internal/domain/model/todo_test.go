package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestAddCollaborator(t *testing.T) {
	todo := &ToDo{ID: 10, OwnerID: 1}

	if changed, err := todo.AddCollaborator(2); err != nil || !changed {
		t.Fatalf("first add: changed=%v err=%v", changed, err)
	}
	if changed, err := todo.AddCollaborator(2); err != nil || changed {
		t.Errorf("repeat add: changed=%v err=%v, want no change", changed, err)
	}
	if len(todo.Collaborators) != 1 {
		t.Errorf("size: got %d, want 1", len(todo.Collaborators))
	}

	if _, err := todo.AddCollaborator(1); !errors.Is(err, ErrOwnerAsCollaborator) {
		t.Errorf("owner add: got %v, want ErrOwnerAsCollaborator", err)
	}
	if todo.IsCollaborator(1) {
		t.Errorf("owner ended up in collaborators")
	}
}

func TestRemoveCollaborator(t *testing.T) {
	todo := &ToDo{OwnerID: 1, Collaborators: NewCollaboratorSet(2, 3)}

	if todo.RemoveCollaborator(4) {
		t.Errorf("removing a non-member reported a change")
	}
	if !todo.RemoveCollaborator(2) {
		t.Errorf("removing a member reported no change")
	}
	if todo.IsCollaborator(2) || !todo.IsCollaborator(3) {
		t.Errorf("got %v, want [3]", todo.Collaborators.IDs())
	}

	var empty ToDo
	if empty.RemoveCollaborator(1) {
		t.Errorf("remove on nil set reported a change")
	}
}

func TestCollaboratorSetJSON(t *testing.T) {
	data, err := json.Marshal(NewCollaboratorSet(9, 2, 5))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), "[2,5,9]"; got != want {
		t.Errorf("marshal: got %s, want %s", got, want)
	}

	var s CollaboratorSet
	if err := json.Unmarshal([]byte("[4,4,1]"), &s); err != nil {
		t.Fatal(err)
	}
	if len(s) != 2 || !s.Has(4) || !s.Has(1) {
		t.Errorf("unmarshal: got %v", s.IDs())
	}
}

func TestParseEnums(t *testing.T) {
	if r, err := ParseRole(" admin "); err != nil || r != RoleAdmin {
		t.Errorf("ParseRole: got %q (%v)", r, err)
	}
	if _, err := ParseRole("owner"); err == nil {
		t.Errorf("ParseRole accepted %q", "owner")
	}
	if p, err := ParsePriority("high"); err != nil || p != PriorityHigh {
		t.Errorf("ParsePriority: got %q (%v)", p, err)
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Errorf("ParsePriority accepted %q", "urgent")
	}
}
