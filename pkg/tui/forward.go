package tui

import (
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
)

// Sender is the part of *tea.Program the forwarder needs.
type Sender interface {
	Send(msg tea.Msg)
}

func RegisterUIForwarder(bus *Bus, p Sender) {
	bus.AddHandler("trendctl-ui-forward", TopicUIMessages, func(msg *message.Message) error {
		defer msg.Ack()

		env, err := decodeEnvelope(msg.Payload)
		if err != nil {
			return errors.Wrap(err, "ui envelope")
		}

		switch env.Type {
		case UITypeRunUpdated:
			var ev RunUpdated
			if err := env.Decode(&ev); err != nil {
				return err
			}
			p.Send(RunUpdatedMsg{Output: ev.Output})
		case UITypeRunStep:
			var ev RunStep
			if err := env.Decode(&ev); err != nil {
				return err
			}
			p.Send(RunStepMsg{Transition: ev.Transition})
		case UITypeDashboardSnapshot:
			var snap DashboardSnapshot
			if err := env.Decode(&snap); err != nil {
				return err
			}
			p.Send(DashboardSnapshotMsg{Snapshot: snap})
		case UITypeEventAppend:
			var entry EventLogEntry
			if err := env.Decode(&entry); err != nil {
				return err
			}
			p.Send(EventLogAppendMsg{Entry: entry})
		}
		return nil
	})
}
