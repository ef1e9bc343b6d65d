package model

// DefaultStateName is assigned to tasks created without an explicit state.
const DefaultStateName = "New"

type State struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
