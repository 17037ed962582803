package tui

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
)

type ActionKind string

const (
	ActionRun     ActionKind = "run"
	ActionReset   ActionKind = "reset"
	ActionRefresh ActionKind = "refresh"
)

type ActionRequest struct {
	Kind  ActionKind `json:"kind"`
	At    time.Time  `json:"at"`
	Scope []string   `json:"scope,omitempty"` // categories for ActionRun; empty means all
}

func PublishAction(pub message.Publisher, req ActionRequest) error {
	if req.Kind == "" {
		return errors.New("missing action kind")
	}
	if req.At.IsZero() {
		req.At = time.Now()
	}
	return Publish(pub, TopicUIActions, UITypeActionRequest, req)
}
