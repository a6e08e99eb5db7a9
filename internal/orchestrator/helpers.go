package orchestrator

import (
	"context"
	"strings"

	"github.com/web3guy0/polybot/internal/domain"
	"github.com/web3guy0/polybot/internal/gameio"
)

// awaitContainer blocks until a container whose title contains want opens,
// ctx is cancelled, or the subscription channel closes. This is the
// generic suspension point every multi-step Window Protocol uses to wait
// for its next GUI window (spec.md §5 "suspension points").
func (o *Orchestrator) awaitContainer(ctx context.Context, opens <-chan gameio.ContainerOpenEvent, want string) (domain.ContainerSnapshot, bool) {
	for {
		select {
		case <-ctx.Done():
			return domain.ContainerSnapshot{}, false
		case ev, ok := <-opens:
			if !ok {
				return domain.ContainerSnapshot{}, false
			}
			if want == "" || strings.Contains(ev.Title, want) {
				return ev.ContainerSnapshot, true
			}
		}
	}
}
