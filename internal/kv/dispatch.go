package kv

import (
	"context"
	"fmt"

	"github.com/maxiofs/kvctl/internal/scan"
)

// Command names accepted by Dispatch.
const (
	CommandGet  = "get"
	CommandPut  = "put"
	CommandSet  = "set"
	CommandDel  = "del"
	CommandList = "list"
)

// Invocation is a parsed and validated command.
type Invocation struct {
	Command string
	Key     string
	Value   string

	// Pattern makes del treat Key as a pattern.
	Pattern bool

	// Query is used by list; nil lists with defaults.
	Query *scan.Query
}

// Outcome carries whatever the command produced.
type Outcome struct {
	Command string
	Value   string
	Deleted int
	Result  *scan.Result
}

// IsWriteCommand reports whether name may create a missing store.
func IsWriteCommand(name string) bool {
	return name == CommandPut || name == CommandSet
}

// Dispatch runs inv against m.
func Dispatch(ctx context.Context, m *Manager, inv Invocation) (*Outcome, error) {
	out := &Outcome{Command: inv.Command}

	switch inv.Command {
	case CommandGet:
		v, err := m.Get(ctx, inv.Key)
		if err != nil {
			return nil, err
		}
		out.Value = v
	case CommandPut, CommandSet:
		if err := m.Put(ctx, inv.Key, inv.Value); err != nil {
			return nil, err
		}
	case CommandDel:
		if inv.Pattern {
			n, err := m.DeleteByPattern(ctx, inv.Key)
			if err != nil {
				return nil, err
			}
			out.Deleted = n
			break
		}
		if err := m.Delete(ctx, inv.Key); err != nil {
			return nil, err
		}
		out.Deleted = 1
	case CommandList:
		res, err := m.List(ctx, inv.Query)
		if err != nil {
			return nil, err
		}
		out.Result = res
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, inv.Command)
	}
	return out, nil
}
