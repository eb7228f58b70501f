package room

import (
	"time"

	"github.com/wfunc/stemarena/models"
)

// Broadcaster defines how a room reaches its players.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	SendToPlayer(playerID string, msgID uint16, v any) error
	BroadcastToPlayers(playerIDs []string, msgID uint16, v any) error
}

// Scheduler is the timer service a room arms its phase clock on.
// *timer.TimerManager satisfies it.
type Scheduler interface {
	AddTimer(delay time.Duration, interval time.Duration, callback func()) int64
	RemoveTimer(timerId int64) bool
}

// Observer receives room lifecycle events. Calls come from room
// goroutines and must not block.
type Observer interface {
	RoomOpened()
	RoomClosed(reason string)
	PhaseStarted(phase models.Phase)
	SubmissionResolved(phase models.Phase, success bool)
	GameFinished(reason string)
}

type nopObserver struct{}

func (nopObserver) RoomOpened() {}
func (nopObserver) RoomClosed(string) {}
func (nopObserver) PhaseStarted(models.Phase) {}
func (nopObserver) SubmissionResolved(models.Phase, bool) {}
func (nopObserver) GameFinished(string) {}
