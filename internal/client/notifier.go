package client

import "time"

// Notifier is how the controller surfaces session events to the UI.
// All methods are called from the controller's goroutines; the UI is
// responsible for marshaling onto its own thread.
type Notifier interface {
	// ConnectingStarted shows the blocking "connecting" indicator.
	ConnectingStarted()
	// ConnectingFinished dismisses it, on success or failure.
	ConnectingFinished()
	// Notice shows a transient notification (connection failure,
	// refused action, server error).
	Notice(message string)
	// Kicked is called before session state is torn down.
	Kicked()
	// SessionEnded reports the server-supplied reason.
	SessionEnded(reason string)
	// RosterChanged fires after any change to the member mirror.
	RosterChanged()
	// ChatReceived delivers one chat line.
	ChatReceived(memberName, memberColor, message string, at time.Time)
}

// NopNotifier ignores every event; useful for tests and headless use.
type NopNotifier struct{}

func (NopNotifier) ConnectingStarted()                             {}
func (NopNotifier) ConnectingFinished()                            {}
func (NopNotifier) Notice(string)                                  {}
func (NopNotifier) Kicked()                                        {}
func (NopNotifier) SessionEnded(string)                            {}
func (NopNotifier) RosterChanged()                                 {}
func (NopNotifier) ChatReceived(string, string, string, time.Time) {}
