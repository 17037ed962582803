package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/trendctl/pkg/controller"
	"github.com/go-go-golems/trendctl/pkg/runstate"
	"github.com/pkg/errors"
)

func RegisterDomainToUITransformer(bus *Bus) {
	bus.AddHandler("trendctl-domain-to-ui", TopicRunEvents, func(msg *message.Message) error {
		defer msg.Ack()

		env, err := decodeEnvelope(msg.Payload)
		if err != nil {
			return errors.Wrap(err, "domain envelope")
		}

		publishUI := func(uiType string, payload any) error {
			return Publish(bus.Publisher, TopicUIMessages, uiType, payload)
		}
		publishEvent := func(at time.Time, source string, level LogLevel, text string) error {
			return publishUI(UITypeEventAppend, EventLogEntry{At: at, Source: source, Level: level, Text: text})
		}

		switch env.Type {
		case DomainTypeRunUpdated:
			var ev RunUpdated
			if err := env.Decode(&ev); err != nil {
				return err
			}
			if err := publishUI(UITypeRunUpdated, ev); err != nil {
				return err
			}
			level, text, ok := describeUpdate(ev.Output)
			if !ok {
				return nil
			}
			return publishEvent(ev.At, "run", level, text)
		case DomainTypeRunStep:
			var ev RunStep
			if err := env.Decode(&ev); err != nil {
				return err
			}
			if err := publishUI(UITypeRunStep, ev); err != nil {
				return err
			}
			level, text := describeStep(ev.Transition)
			return publishEvent(ev.At, "pipeline", level, text)
		case DomainTypeRunRefresh:
			var ev RunRefresh
			if err := env.Decode(&ev); err != nil {
				return err
			}
			return publishEvent(ev.At, "dashboard", LogLevelDebug, "refreshing after completed run")
		case DomainTypeDashboardSnapshot:
			var snap DashboardSnapshot
			if err := env.Decode(&snap); err != nil {
				return err
			}
			if err := publishUI(UITypeDashboardSnapshot, snap); err != nil {
				return err
			}
			if snap.Ok() {
				return nil
			}
			return publishEvent(snap.At, "dashboard", LogLevelWarn, describeSnapshotErrors(snap))
		case DomainTypeActionLog:
			var ev ActionLog
			if err := env.Decode(&ev); err != nil {
				return err
			}
			level := ev.Level
			if level == "" {
				level = LogLevelInfo
			}
			return publishEvent(ev.At, "action", level, ev.Text)
		default:
			return nil
		}
	})
}

// describeUpdate turns a controller output into an event log line. Plain
// progress updates while polling produce nothing; steps are logged separately.
func describeUpdate(out controller.Output) (LogLevel, string, bool) {
	if out.Clearing {
		return LogLevelInfo, "clearing data", true
	}
	switch out.Phase {
	case controller.PhaseStarting:
		return LogLevelInfo, fmt.Sprintf("starting run (%s)", out.Scope.String()), true
	case controller.PhasePolling:
		if out.Run == nil && out.ConsecutiveFailures == 0 {
			return LogLevelInfo, fmt.Sprintf("run %s: %s", out.RunID(), out.Message), true
		}
		if out.ConsecutiveFailures > 0 {
			return LogLevelDebug, fmt.Sprintf("status check failed (%d in a row); retrying", out.ConsecutiveFailures), true
		}
		return "", "", false
	case controller.PhaseCompleted:
		return LogLevelInfo, fmt.Sprintf("run %s: %s", out.RunID(), out.Message), true
	case controller.PhaseFailed:
		return LogLevelError, fmt.Sprintf("run %s failed: %s", out.RunID(), out.Error), true
	case controller.PhaseIdle:
		if out.Error != "" {
			return LogLevelError, out.Error, true
		}
		if out.Message != "" {
			return LogLevelInfo, out.Message, true
		}
	}
	return "", "", false
}

func describeStep(tr runstate.StepTransition) (LogLevel, string) {
	level := LogLevelInfo
	switch tr.To {
	case runstate.StepFailure:
		level = LogLevelError
	case runstate.StepPending:
		level = LogLevelDebug
	}
	if tr.From == "" {
		return level, fmt.Sprintf("%s: %s", tr.Name, tr.To)
	}
	return level, fmt.Sprintf("%s: %s -> %s", tr.Name, tr.From, tr.To)
}

func describeSnapshotErrors(snap DashboardSnapshot) string {
	keys := make([]string, 0, len(snap.Errors))
	for k := range snap.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, snap.Errors[k]))
	}
	return "load failed: " + strings.Join(parts, "; ")
}
