// Copyright 2024 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

// Package session implements the update-session state machine: the
// automaton that sequences discovery, mounting, bundle search, install, and
// cleanup across the block-device, installer, and reboot adapters.
package session

// State is one of the thirteen automaton states of the update session.
type State int

const (
	StateInit State = iota
	StateIdle
	StateSearching
	StateMounting
	StateMounted
	StateNoUpdateFound
	StateUpdateFound
	StateSkip
	StateUnmounting
	StateUnmounted
	StateUpdating
	StateUpdated
	StateDone
)

var stateNames = map[State]string{
	StateInit:          "init",
	StateIdle:          "idle",
	StateSearching:     "searching",
	StateMounting:      "mounting",
	StateMounted:       "mounted",
	StateNoUpdateFound: "noupdatefound",
	StateUpdateFound:   "updatefound",
	StateSkip:          "skip",
	StateUnmounting:    "unmounting",
	StateUnmounted:     "unmounted",
	StateUpdating:      "updating",
	StateUpdated:       "updated",
	StateDone:          "done",
}

func (s State) String() string {
	return stateNames[s]
}

// trigger names the event driving a transition, used only to select among
// the table entries below; it is never observed outside this package.
type trigger int

const (
	triggerStartupComplete trigger = iota
	triggerSearch
	triggerEnumerated
	triggerNoDevices
	triggerMounted
	triggerNoMounts
	triggerCandidateSelected
	triggerNoCandidate
	triggerInstallSkip
	triggerInstallRequested
	triggerUnconditional
	triggerInstallSucceeded
	triggerInstallFailed
	triggerUnmountComplete
	triggerRebootDue
	triggerNoRebootDue
)

// transitions is the explicit table backing spec section 4.6.1; every
// (state, trigger) pair not present here is a state violation.
var transitions = map[State]map[trigger]State{
	StateInit: {
		triggerStartupComplete: StateIdle,
	},
	StateIdle: {
		triggerSearch: StateSearching,
	},
	StateSearching: {
		triggerEnumerated: StateMounting,
		triggerNoDevices:  StateNoUpdateFound,
	},
	StateMounting: {
		triggerMounted:  StateMounted,
		triggerNoMounts: StateNoUpdateFound,
	},
	StateMounted: {
		triggerCandidateSelected: StateUpdateFound,
		triggerNoCandidate:       StateNoUpdateFound,
	},
	StateUpdateFound: {
		triggerInstallSkip:      StateSkip,
		triggerInstallRequested: StateUpdating,
	},
	StateNoUpdateFound: {
		triggerUnconditional: StateUnmounting,
	},
	StateSkip: {
		triggerUnconditional: StateUnmounting,
	},
	StateUpdating: {
		triggerInstallSucceeded: StateUpdated,
		triggerInstallFailed:    StateUnmounting,
	},
	StateUpdated: {
		triggerUnconditional: StateUnmounting,
	},
	StateUnmounting: {
		triggerUnmountComplete: StateUnmounted,
	},
	StateUnmounted: {
		triggerRebootDue:   StateDone,
		triggerNoRebootDue: StateIdle,
	},
	// StateDone is terminal: no outgoing transitions.
}

// next looks up the table entry for (from, t), returning ErrStateViolation
// if none exists.
func next(from State, t trigger) (State, error) {
	byTrigger, ok := transitions[from]
	if !ok {
		return from, ErrStateViolation
	}
	to, ok := byTrigger[t]
	if !ok {
		return from, ErrStateViolation
	}
	return to, nil
}
