package coordinator

import "github.com/oshokin/alert-relay/internal/domain/alert"

// event is anything the Run goroutine processes.
type event interface {
	isEvent()
}

type (
	raiseRequest struct {
		reply chan error
	}

	raiseResult struct {
		err error
	}

	stopRequest struct {
		reply chan error
	}

	stopResult struct {
		entry      alert.HistoryEntry
		writeErr   error
		historyErr error
	}

	muteRequest struct {
		reply chan error
	}

	silentRequest struct {
		enabled bool
		reply   chan error
	}

	reconcileEvent struct {
		remote *alert.RemoteState
	}

	connectionEvent struct {
		status alert.ConnectionStatus
	}

	// guardRelease lowers the stop guard armed by the stop with the same version.
	guardRelease struct {
		version uint64
	}

	snapshotRequest struct {
		reply chan alert.LocalState
	}
)

// stopJob is the remote half of a stop: clear the document, then record history.
type stopJob struct {
	entry alert.HistoryEntry
}

func (raiseRequest) isEvent()    {}
func (raiseResult) isEvent()     {}
func (stopRequest) isEvent()     {}
func (stopResult) isEvent()      {}
func (muteRequest) isEvent()     {}
func (silentRequest) isEvent()   {}
func (reconcileEvent) isEvent()  {}
func (connectionEvent) isEvent() {}
func (guardRelease) isEvent()    {}
func (snapshotRequest) isEvent() {}
