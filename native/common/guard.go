// Package common carries the plumbing shared by the lending and auction
// engines.
package common

import (
	"errors"
	"fmt"
)

// ErrModulePaused is returned by Guard when the operator has paused the
// module. Callers match it with errors.Is; the wrapped message names the
// paused module.
var ErrModulePaused = errors.New("module paused")

// PauseView reports the operator pause switches. Module names are the
// engines' own ("lending", "auction").
type PauseView interface {
	IsPaused(module string) bool
}

// StaticPauses is a fixed PauseView over a module set, for configuration
// snapshots and tests.
type StaticPauses map[string]bool

func (s StaticPauses) IsPaused(module string) bool { return s[module] }

// Guard rejects a mutating operation while its module is paused. A nil view
// means pauses are not wired and every operation runs.
func Guard(view PauseView, module string) error {
	if view == nil || module == "" {
		return nil
	}
	if view.IsPaused(module) {
		return fmt.Errorf("%s: %w", module, ErrModulePaused)
	}
	return nil
}
