package room

import (
	"context"
	"log/slog"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
)

// request is one unit of work for a room goroutine. A nil cmd only reads the
// current state.
type request struct {
	sender string
	cmd    domain.Command
	// onApplied runs inside the room goroutine after cmd is accepted and
	// before anything is broadcast.
	onApplied func(domain.RoomState)
	reply     chan result
}

type result struct {
	state   domain.RoomState
	changed bool
	err     error
}

// actor serializes every command of one room through a single goroutine.
type actor struct {
	s         *service
	room      *domain.Room
	inputCh   chan request
	tickCh    chan *heartbeat
	done      chan struct{}
	heartbeat *heartbeat
	lastState []byte
	ctx       context.Context
}

func (s *service) newActor(roomID string) *actor {
	return &actor{
		s:       s,
		room:    domain.NewRoom(roomID, s.membersLimit, s.clock.Now()),
		inputCh: make(chan request),
		tickCh:  make(chan *heartbeat),
		done:    make(chan struct{}),
		ctx:     ctxlogger.AppendCtx(context.Background(), slog.String("room_id", roomID)),
	}
}

// submit hands req to the room goroutine and waits for the outcome. Once a
// request is accepted it runs to completion even if ctx ends, so the caller
// always learns the result.
func (a *actor) submit(ctx context.Context, req request) (result, error) {
	req.reply = make(chan result, 1)

	select {
	case a.inputCh <- req:
	case <-a.done:
		return result{}, ErrRoomClosed
	case <-ctx.Done():
		return result{}, ctx.Err()
	}

	return <-req.reply, nil
}

func (a *actor) run(ctx context.Context) {
	defer close(a.done)
	defer a.stopHeartbeat()

	a.s.logger.DebugContext(a.ctx, "room created")
	for {
		select {
		case <-ctx.Done():
			a.s.registry.remove(a.room.ID(), a)
			return
		case req := <-a.inputCh:
			req.reply <- a.handle(req)

			if a.room.IsEmpty() {
				a.s.registry.remove(a.room.ID(), a)
				a.s.removeMirror(a.ctx, a.room.ID())
				a.s.logger.DebugContext(a.ctx, "room removed")
				return
			}
		case hb := <-a.tickCh:
			if hb != a.heartbeat {
				continue
			}

			a.repeat()
		}
	}
}

func (a *actor) handle(req request) result {
	if req.cmd == nil {
		return result{state: a.room.State()}
	}

	changed, err := a.room.Apply(req.sender, req.cmd, a.s.clock.Now())
	if err != nil {
		a.s.logger.DebugContext(a.ctx, "command rejected", "command", req.cmd.Name(), "connection_id", req.sender, "error", err)
		return result{err: err}
	}

	state := a.room.State()
	if req.onApplied != nil {
		req.onApplied(state)
	}

	if !changed {
		return result{state: state}
	}

	a.syncHeartbeat(req.cmd)

	var except string
	if _, ok := req.cmd.(domain.Join); ok {
		except = req.sender
	}
	a.broadcast(state, except)
	a.s.mirrorState(a.ctx, state)

	return result{state: state, changed: true}
}
