// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session maintains the index of streamable-HTTP MCP sessions
// (spec.md §4.2/§4.9, C9): admission against a capacity ceiling, creation
// at the initialize handshake, idle eviction, and graceful close-and-drain
// shutdown.
package session

import (
	"sync"
	"time"

	"github.com/mcpland/gitlab-mcp/pkg/gitlabauth"
)

// State is a session's position in its lifecycle. Only Active sessions
// accept non-initialize requests.
type State string

const (
	StatePending State = "pending"
	StateActive  State = "active"
	StateClosing State = "closing"
	StateClosed  State = "closed"
)

// Kind distinguishes the transport a session was admitted for, which
// feeds the streamable+pending+sse capacity invariant (P7).
type Kind string

const (
	KindStreamable Kind = "streamable"
	KindSSE        Kind = "sse"
)

// Session is one MCP client's bound server + transport pairing. ID and
// CreatedAt never change after construction; State, LastTouchedAt, and
// Auth are mutated under Mu by the owning Manager.
type Session struct {
	Mu sync.Mutex

	id        string
	createdAt time.Time

	state         State
	lastTouchedAt time.Time
	auth          *gitlabauth.AuthContext

	// TransportHandle and MCPServer are opaque to the manager: it only
	// needs to close them down, not inspect them. They are declared as
	// `any` because their concrete types (the streamable transport, the
	// bound *server.MCPServer) live in pkg/mcpserver and pkg/httpfront,
	// which would otherwise import this package and create a cycle.
	TransportHandle any
	MCPServer       any

	admitDone func()
}

// ID returns the server-minted opaque session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the time the session was constructed.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the last time the session was touched by a request
// or admitted. Manager's idle-eviction scan reads the same timestamp.
func (s *Session) UpdatedAt() time.Time {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.lastTouchedAt
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.state
}

// Auth returns the AuthContext bound at initialize, or nil if none was
// supplied (stdio mode, or HTTP mode with REMOTE_AUTHORIZATION disabled).
func (s *Session) Auth() *gitlabauth.AuthContext {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.auth
}

// touch records activity and, per the lifecycle invariant, promotes a
// pending session to active on its first successful request.
func (s *Session) touch(now time.Time) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.lastTouchedAt = now
	if s.state == StatePending {
		s.state = StateActive
	}
}
