package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/go-go-golems/trendctl/pkg/controller"
	"github.com/go-go-golems/trendctl/pkg/runstate"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// RunController is the part of *controller.Controller the action runner drives.
type RunController interface {
	Start(ctx context.Context, scope runstate.Scope) error
	ClearData(ctx context.Context) (api.ClearResult, error)
}

var _ RunController = (*controller.Controller)(nil)

type Refresher interface {
	Trigger()
}

type ActionDeps struct {
	Controller RunController
	Dashboard  Refresher
	Timeout    time.Duration
}

func RegisterUIActionRunner(bus *Bus, deps ActionDeps) {
	bus.AddHandler("trendctl-ui-actions", TopicUIActions, func(msg *message.Message) error {
		defer msg.Ack()

		env, err := decodeEnvelope(msg.Payload)
		if err != nil {
			_ = publishActionLog(bus.Publisher, LogLevelWarn, "action: bad envelope (unmarshal failed)")
			return nil
		}
		if env.Type != UITypeActionRequest {
			return nil
		}

		var req ActionRequest
		if err := env.Decode(&req); err != nil {
			_ = publishActionLog(bus.Publisher, LogLevelWarn, "action: bad request (unmarshal failed)")
			return nil
		}
		if req.Kind == "" {
			return nil
		}

		ctx := msg.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if deps.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, deps.Timeout)
			defer cancel()
		}

		level, text := runAction(ctx, deps, req)
		_ = publishActionLog(bus.Publisher, level, text)
		return nil
	})
}

func runAction(ctx context.Context, deps ActionDeps, req ActionRequest) (LogLevel, string) {
	var err error
	text := "action ok: " + string(req.Kind)

	switch req.Kind {
	case ActionRun:
		if deps.Controller == nil {
			err = errors.New("no run controller")
			break
		}
		scope := runstate.NewScope(req.Scope...)
		err = deps.Controller.Start(ctx, scope)
		text = fmt.Sprintf("action ok: run (%s)", scope.String())
	case ActionReset:
		if deps.Controller == nil {
			err = errors.New("no run controller")
			break
		}
		var res api.ClearResult
		res, err = deps.Controller.ClearData(ctx)
		text = fmt.Sprintf("action ok: reset (%d deleted)", res.Deleted)
	case ActionRefresh:
		if deps.Dashboard == nil {
			err = errors.New("no dashboard watcher")
			break
		}
		deps.Dashboard.Trigger()
	default:
		err = errors.Errorf("unknown action: %s", req.Kind)
	}

	if err == nil {
		return LogLevelInfo, text
	}
	if errors.Is(err, controller.ErrRunInFlight) || errors.Is(err, controller.ErrClearInFlight) {
		log.Debug().Str("action", string(req.Kind)).Err(err).Msg("action rejected")
		return LogLevelWarn, "action rejected: " + string(req.Kind) + ": " + err.Error()
	}
	log.Warn().Str("action", string(req.Kind)).Err(err).Msg("action failed")
	return LogLevelError, "action failed: " + string(req.Kind) + ": " + err.Error()
}

func publishActionLog(pub message.Publisher, level LogLevel, text string) error {
	return Publish(pub, TopicRunEvents, DomainTypeActionLog, ActionLog{At: time.Now(), Level: level, Text: text})
}
