package model

import (
	"fmt"
	"strings"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

func Priorities() []TaskPriority {
	return []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh}
}

func ParsePriority(s string) (TaskPriority, error) {
	switch p := TaskPriority(strings.ToUpper(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

type Task struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	Priority TaskPriority `json:"priority"`
	StateID  int64        `json:"state_id"`
	TodoID   int64        `json:"todo_id"`
	State    *State       `json:"state,omitempty"` // For display
}
