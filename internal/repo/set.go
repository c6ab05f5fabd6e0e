package repo

import (
	"github.com/go-ports/flowlet/internal/remote"
	"github.com/go-ports/flowlet/internal/store"
)

// Set bundles one repository per entity over a shared store and client.
type Set struct {
	Commands  *Commands
	Tasks     *Tasks
	Projects  *Projects
	Variables *Variables
	Auths     *Auths
}

// NewSet builds every repository over s and rc. A nil rc runs offline.
func NewSet(s store.Store, rc *remote.Client) *Set {
	return &Set{
		Commands:  NewCommands(s, rc),
		Tasks:     NewTasks(s, rc),
		Projects:  NewProjects(s, rc),
		Variables: NewVariables(s, rc),
		Auths:     NewAuths(s, rc),
	}
}
