package tracing

import (
	"github.com/rs/xid"
	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/parser"
	"github.com/sarchlab/alpidesim/readoutunit"
	"github.com/sarchlab/alpidesim/sim"
)

// NamedHookable represent something both have a name and can be hooked
type NamedHookable interface {
	sim.Named
	sim.Hookable
}

// CollectBusy lets the tracer collect the busy intervals of a chip, a
// parser, or a Readout Unit.
func CollectBusy(domain NamedHookable, tracer Tracer) {
	h := &busyHook{
		where: domain.Name(),
		t:     tracer,
		open:  make(map[string]Interval),
	}

	domain.AcceptHook(h)
}

type busyHook struct {
	where string
	t     Tracer
	open  map[string]Interval
}

// Func turns busy changes into intervals.
func (h *busyHook) Func(ctx sim.HookCtx) {
	kind, busy, ok := busyChange(ctx)
	if !ok {
		return
	}

	i, running := h.open[kind]

	switch {
	case busy && !running:
		i = Interval{
			ID:    xid.New().String(),
			Kind:  kind,
			Where: h.where,
			Start: ctx.Now,
		}
		h.open[kind] = i
		h.t.StartInterval(i)
	case !busy && running:
		i.End = ctx.Now
		delete(h.open, kind)
		h.t.EndInterval(i)
	}
}

func busyChange(ctx sim.HookCtx) (kind string, busy bool, ok bool) {
	switch ctx.Pos {
	case alpide.HookPosBusyChange:
		busy, ok = ctx.Item.(bool)
		return KindChipBusy, busy, ok
	case parser.HookPosBusyChange:
		evt, isEvent := ctx.Item.(parser.BusyEvent)
		return KindLinkBusy, evt.Open, isEvent
	case readoutunit.HookPosLocalBusy:
		busy, ok = ctx.Item.(bool)
		return KindRULocalBusy, busy, ok
	case readoutunit.HookPosGlobalBusy:
		busy, ok = ctx.Item.(bool)
		return KindRUGlobalBusy, busy, ok
	}

	return "", false, false
}
