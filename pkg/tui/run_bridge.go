package tui

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/trendctl/pkg/controller"
	"github.com/go-go-golems/trendctl/pkg/runstate"
	"github.com/rs/zerolog/log"
)

// RunHooks returns controller hooks that publish run events on the bus.
// onRefresh, if set, runs after the refresh event is published.
func RunHooks(pub message.Publisher, onRefresh func()) controller.Hooks {
	return controller.Hooks{
		OnUpdate: func(out controller.Output) {
			if err := Publish(pub, TopicRunEvents, DomainTypeRunUpdated, RunUpdated{At: time.Now(), Output: out}); err != nil {
				log.Warn().Err(err).Msg("publish run update")
			}
		},
		OnStep: func(tr runstate.StepTransition) {
			if err := Publish(pub, TopicRunEvents, DomainTypeRunStep, RunStep{At: time.Now(), Transition: tr}); err != nil {
				log.Warn().Err(err).Msg("publish run step")
			}
		},
		OnRefresh: func() {
			if err := Publish(pub, TopicRunEvents, DomainTypeRunRefresh, RunRefresh{At: time.Now()}); err != nil {
				log.Warn().Err(err).Msg("publish run refresh")
			}
			if onRefresh != nil {
				onRefresh()
			}
		},
	}
}
