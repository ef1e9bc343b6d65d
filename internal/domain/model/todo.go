package model

import (
	"encoding/json"
	"errors"
	"sort"
	"time"
)

// ErrOwnerAsCollaborator is returned when an owner is added to their own ToDo.
var ErrOwnerAsCollaborator = errors.New("owner cannot be a collaborator on their own todo")

// CollaboratorSet holds collaborator user ids. Membership is by id only.
type CollaboratorSet map[int64]struct{}

func NewCollaboratorSet(ids ...int64) CollaboratorSet {
	s := make(CollaboratorSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s CollaboratorSet) Has(userID int64) bool {
	_, ok := s[userID]
	return ok
}

// IDs returns the members in ascending order.
func (s CollaboratorSet) IDs() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s CollaboratorSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *CollaboratorSet) UnmarshalJSON(data []byte) error {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewCollaboratorSet(ids...)
	return nil
}

type ToDo struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Slug          string          `json:"slug"`
	CreatedAt     time.Time       `json:"created_at"`
	OwnerID       int64           `json:"owner_id"`
	Collaborators CollaboratorSet `json:"collaborators"`
	Tasks         []Task          `json:"tasks,omitempty"`
}

func (t *ToDo) IsOwner(userID int64) bool {
	return t.OwnerID == userID
}

func (t *ToDo) IsCollaborator(userID int64) bool {
	return t.Collaborators.Has(userID)
}

// AddCollaborator adds userID to the collaborator set. It reports whether
// the set changed; adding the owner is rejected.
func (t *ToDo) AddCollaborator(userID int64) (bool, error) {
	if t.IsOwner(userID) {
		return false, ErrOwnerAsCollaborator
	}
	if t.Collaborators == nil {
		t.Collaborators = NewCollaboratorSet()
	}
	if t.Collaborators.Has(userID) {
		return false, nil
	}
	t.Collaborators[userID] = struct{}{}
	return true, nil
}

// RemoveCollaborator reports whether userID was a member.
func (t *ToDo) RemoveCollaborator(userID int64) bool {
	if !t.Collaborators.Has(userID) {
		return false
	}
	delete(t.Collaborators, userID)
	return true
}
