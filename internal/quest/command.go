package quest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/questrig/questrig/geometry"
	"github.com/questrig/questrig/internal/quest/pb"
	"github.com/questrig/questrig/internal/timeutil"
)

// DefaultCommandTTL is how old a pose-reset command may be before the
// executor refuses to apply it. A reset built against a pose estimate
// older than this would seat the headset at a place the robot has already
// left.
const DefaultCommandTTL = 50 * time.Millisecond

// ErrCommandExpired reports a command rejected by the TTL gate.
var ErrCommandExpired = errors.New("command expired")

// Pending describes an issued command awaiting its response.
type Pending struct {
	ID       int32
	IssuedAt time.Time
}

// CommandQueue implements both halves of the pose-reset protocol: issuing
// commands with monotonically increasing IDs and matching their responses,
// and accepting inbound commands with the staleness gate applied before
// any pose math runs.
type CommandQueue struct {
	clock timeutil.Clock
	ttl   time.Duration

	mu      sync.Mutex
	nextID  int32
	pending map[int32]Pending
	stale   int64
}

// NewCommandQueue creates a queue with the given TTL. A non-positive TTL
// selects DefaultCommandTTL.
func NewCommandQueue(ttl time.Duration, clock timeutil.Clock) *CommandQueue {
	if ttl <= 0 {
		ttl = DefaultCommandTTL
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &CommandQueue{
		clock:   clock,
		ttl:     ttl,
		pending: make(map[int32]Pending),
	}
}

// TTL returns the configured time-to-live.
func (q *CommandQueue) TTL() time.Duration {
	return q.ttl
}

// IssuePoseReset encodes a pose-reset command for the given field-frame
// target. The target is converted to the engine frame here so the headset
// applies it directly. The command is recorded as pending until its
// response arrives.
func (q *CommandQueue) IssuePoseReset(target geometry.Pose3d) *pb.Command {
	q.mu.Lock()
	q.nextID++
	id := q.nextID
	q.pending[id] = Pending{ID: id, IssuedAt: q.clock.Now()}
	q.mu.Unlock()

	engine := geometry.FrcToUnityPose(target)
	return &pb.Command{
		Type:      pb.CommandTypePoseReset,
		CommandID: id,
		PoseResetPayload: &pb.PoseResetPayload{
			TargetPose: engine.ToProto(),
		},
	}
}

// Accept validates an inbound command and returns its target pose in the
// field frame. The staleness check runs first: a command issued more than
// TTL ago is counted and rejected with ErrCommandExpired before the
// payload is touched.
func (q *CommandQueue) Accept(cmd *pb.Command, issuedAt time.Time) (geometry.Pose3d, error) {
	if cmd == nil {
		return geometry.Pose3d{}, errors.New("nil command")
	}

	if age := q.clock.Since(issuedAt); age > q.ttl {
		q.mu.Lock()
		q.stale++
		q.mu.Unlock()
		return geometry.Pose3d{}, fmt.Errorf("%w: issued %s ago, ttl %s", ErrCommandExpired, age, q.ttl)
	}

	if cmd.Type != pb.CommandTypePoseReset {
		return geometry.Pose3d{}, fmt.Errorf("unsupported command type %s", cmd.Type)
	}
	if cmd.PoseResetPayload == nil {
		return geometry.Pose3d{}, errors.New("pose reset command without payload")
	}

	engine := geometry.NewPose3dFromProto(cmd.PoseResetPayload.TargetPose)
	return geometry.UnityToFrcPose(engine), nil
}

// Resolve matches a response to its pending command. It returns the round
// trip age and whether the ID was pending at all; duplicate or unknown
// responses report false.
func (q *CommandQueue) Resolve(resp *pb.CommandResponse) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.pending[resp.CommandID]
	if !ok {
		return 0, false
	}
	delete(q.pending, resp.CommandID)
	return q.clock.Since(p.IssuedAt), true
}

// PendingCount returns how many issued commands still await responses.
func (q *CommandQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// StaleCount returns how many inbound commands the TTL gate has rejected.
func (q *CommandQueue) StaleCount() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stale
}

// NewResponse builds the response for an executed or rejected command.
func NewResponse(commandID int32, err error) *pb.CommandResponse {
	resp := &pb.CommandResponse{CommandID: commandID, Success: err == nil}
	if err != nil {
		resp.ErrorMessage = err.Error()
	}
	return resp
}
