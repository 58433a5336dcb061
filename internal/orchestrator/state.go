package orchestrator

// State is the orchestrator's position in the download workflow.
type State string

const (
	// StateIdle means nothing has been analyzed yet
	StateIdle State = "idle"

	// StateLoadingInfo means media info is being fetched
	StateLoadingInfo State = "loading-info"

	// StateReady means media info is loaded and a format can be downloaded
	StateReady State = "ready"

	// StateDownloading means a download is in progress
	StateDownloading State = "downloading"

	// StateDone means the last download finished
	StateDone State = "done"

	// StateError means the last analyze or download failed
	StateError State = "error"
)

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// IsBusy returns true while a network operation owns the orchestrator
func (s State) IsBusy() bool {
	return s == StateLoadingInfo || s == StateDownloading
}

// Action is an event that moves the orchestrator between states.
type Action string

const (
	ActionAnalyze    Action = "analyze"
	ActionInfoLoaded Action = "info-loaded"
	ActionInfoFailed Action = "info-failed"
	ActionSelect     Action = "select"
	ActionDownload   Action = "download"
	ActionComplete   Action = "complete"
	ActionFail       Action = "fail"
	ActionClear      Action = "clear"
)

// transitions lists every allowed move. Anything missing is rejected.
var transitions = map[State]map[Action]State{
	StateIdle: {
		ActionAnalyze: StateLoadingInfo,
		ActionClear:   StateIdle,
	},
	StateLoadingInfo: {
		ActionInfoLoaded: StateReady,
		ActionInfoFailed: StateError,
	},
	StateReady: {
		ActionAnalyze:  StateLoadingInfo,
		ActionSelect:   StateReady,
		ActionDownload: StateDownloading,
		ActionFail:     StateError,
		ActionClear:    StateIdle,
	},
	StateDownloading: {
		ActionComplete: StateDone,
		ActionFail:     StateError,
	},
	StateDone: {
		ActionAnalyze:  StateLoadingInfo,
		ActionSelect:   StateReady,
		ActionDownload: StateDownloading,
		ActionClear:    StateIdle,
	},
	StateError: {
		ActionAnalyze:  StateLoadingInfo,
		ActionSelect:   StateReady,
		ActionDownload: StateDownloading,
		ActionClear:    StateIdle,
	},
}

// nextState returns the state reached by applying action in from.
func nextState(from State, action Action) (State, bool) {
	to, ok := transitions[from][action]
	return to, ok
}
