package services

import (
	"sync"
	"time"

	"github.com/clduab11/vibestack-backend/pkg/logger"
)

// Broadcast event types.
const (
	EventLeaderboardUpdate   = "leaderboard_update"
	EventParticipantJoined   = "participant_joined"
	EventParticipantLeft     = "participant_left"
	EventAchievementUnlocked = "achievement_unlocked"
	EventNotification        = "notification"
)

// BroadcastEvent carries a per-channel monotonically increasing sequence
// number. Delivery is at-least-once; subscribers deduplicate by sequence and
// treat a gap as a cue to refetch the snapshot.
type BroadcastEvent struct {
	Channel string      `json:"channel"`
	Type    string      `json:"type"`
	Seq     uint64      `json:"seq"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

// EmitFunc is the transport hook: the socket layer registers how a fully
// formed event reaches a room's subscribers.
type EmitFunc func(room, event string, data interface{})

const broadcastQueueSize = 1024

var (
	seqMu       sync.Mutex
	channelSeqs = make(map[string]uint64)

	broadcastQueue = make(chan BroadcastEvent, broadcastQueueSize)

	broadcasterOnce sync.Once

	emitMu  sync.RWMutex
	emitter EmitFunc
)

// SetBroadcastEmitter wires the socket transport in. Until one is registered
// (e.g. in unit tests) events are sequenced and queued but go nowhere.
func SetBroadcastEmitter(fn EmitFunc) {
	emitMu.Lock()
	defer emitMu.Unlock()
	emitter = fn
}

// StartBroadcaster launches the fan-out loop. Delivery happens here, never on
// the goroutine that applied the write. Repeated calls are no-ops.
func StartBroadcaster() {
	broadcasterOnce.Do(func() {
		go func() {
			for ev := range broadcastQueue {
				emitMu.RLock()
				fn := emitter
				emitMu.RUnlock()
				if fn != nil {
					fn(ev.Channel, ev.Type, ev)
				}
			}
		}()
	})
}

// Publish stamps the next sequence number for the challenge's channel and
// enqueues the event. It never blocks the caller: when the queue is saturated
// delivery spills to a goroutine that waits for space, so every stamped
// sequence is eventually delivered.
func Publish(challengeID, eventType string, payload interface{}) uint64 {
	return publishToChannel("challenge:"+challengeID, eventType, payload)
}

// PublishToUser targets one user's personal channel (achievement unlocks,
// invites).
func PublishToUser(userID, eventType string, payload interface{}) uint64 {
	return publishToChannel("user:"+userID, eventType, payload)
}

func publishToChannel(channel, eventType string, payload interface{}) uint64 {
	seqMu.Lock()
	channelSeqs[channel]++
	seq := channelSeqs[channel]
	seqMu.Unlock()

	ev := BroadcastEvent{
		Channel: channel,
		Type:    eventType,
		Seq:     seq,
		Payload: payload,
		At:      time.Now(),
	}

	select {
	case broadcastQueue <- ev:
	default:
		logger.Warn().
			Str("channel", channel).
			Str("type", eventType).
			Uint64("seq", seq).
			Msg("Broadcast queue saturated, delivering out of band")
		go func() { broadcastQueue <- ev }()
	}

	return seq
}

// ChannelSequence reports the last sequence number issued for a challenge
// channel. New subscribers use it as the floor for gap detection.
func ChannelSequence(challengeID string) uint64 {
	seqMu.Lock()
	defer seqMu.Unlock()
	return channelSeqs["challenge:"+challengeID]
}
