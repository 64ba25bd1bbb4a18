// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"sync"
	"time"

	mcperrors "github.com/mcpland/gitlab-mcp/pkg/errors"
	"github.com/mcpland/gitlab-mcp/pkg/gitlabauth"
	"github.com/mcpland/gitlab-mcp/pkg/logger"
)

// gcInterval is how often the background loop scans for idle sessions.
const gcInterval = 30 * time.Second

// Manager owns the sessionId -> *Session index plus the streamable+
// pending+sse counters the capacity invariant (P7) is checked against.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	counts      map[Kind]int
	ttl         time.Duration
	maxSessions int

	admission *admissionQueue

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewManager constructs a Manager with the given idle timeout and
// capacity ceiling, and starts its background idle-eviction loop.
func NewManager(ttl time.Duration, maxSessions int) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		counts:      make(map[Kind]int),
		ttl:         ttl,
		maxSessions: maxSessions,
		admission:   newAdmissionQueue(),
		stopCh:      make(chan struct{}),
	}
	go m.gcLoop()
	return m
}

// Admit reserves a capacity slot for kind without creating a session. The
// returned done must be called exactly once, whether or not the caller
// goes on to create a session, to release the slot. Admit fails, with a
// nil done, once the manager is shutting down or streamable+pending+sse
// has reached maxSessions; in both cases the index is left untouched, per
// P7.
func (m *Manager) Admit(kind Kind) (admitted bool, done func()) {
	ok, release := m.admission.TryAdmit()
	if !ok {
		return false, nil
	}

	m.mu.Lock()
	if m.totalLocked() >= m.maxSessions {
		m.mu.Unlock()
		release()
		return false, nil
	}
	m.counts[kind]++
	m.mu.Unlock()

	var once sync.Once
	return true, func() {
		once.Do(func() {
			m.mu.Lock()
			m.counts[kind]--
			m.mu.Unlock()
			release()
		})
	}
}

func (m *Manager) totalLocked() int {
	total := 0
	for _, c := range m.counts {
		total += c
	}
	return total
}

// AddWithID registers a new pending session under id. Returns an error
// containing "already exists" if id is already present.
func (m *Manager) AddWithID(id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("session %q already exists", id)
	}

	now := time.Now()
	sess := &Session{
		id:            id,
		createdAt:     now,
		lastTouchedAt: now,
		state:         StatePending,
	}
	m.sessions[id] = sess
	return sess, nil
}

// CreateSession admits a capacity slot for kind and, on success, mints a
// new session under the id produced by mintID. On any failure the
// capacity slot is released and no session is left registered. The slot
// is released automatically when the session is later closed.
func (m *Manager) CreateSession(kind Kind, mintID func() string) (*Session, error) {
	admitted, release := m.Admit(kind)
	if !admitted {
		return nil, mcperrors.ErrCapacityExceeded
	}

	sess, err := m.RegisterAdmitted(mintID(), release)
	if err != nil {
		release()
		return nil, err
	}
	return sess, nil
}

// RegisterAdmitted registers a session under id whose capacity slot was
// already reserved by a prior call to Admit, binding release so it fires
// automatically when the session is later closed. Used by the HTTP front
// when the underlying MCP transport — not this package — mints the
// session id during the initialize handshake, so admission and id
// minting happen in two steps instead of one.
func (m *Manager) RegisterAdmitted(id string, release func()) (*Session, error) {
	sess, err := m.AddWithID(id)
	if err != nil {
		return nil, err
	}
	sess.Mu.Lock()
	sess.admitDone = release
	sess.Mu.Unlock()
	return sess, nil
}

// Bind attaches the opaque transport/server handles to an existing
// session, once they have been constructed for it. Mirrors the teacher's
// replace-in-place upsert: the session's identity and lifecycle state are
// untouched, only its bound handles change.
func (m *Manager) Bind(id string, transportHandle, mcpServer any) error {
	sess, ok := m.Get(id)
	if !ok {
		return mcperrors.ErrSessionNotFound
	}
	sess.Mu.Lock()
	sess.TransportHandle = transportHandle
	sess.MCPServer = mcpServer
	sess.Mu.Unlock()
	return nil
}

// BindAuth attaches the AuthContext parsed off the initialize request's
// headers. It is parsed from headers exactly once, here; every later
// request on the same session reuses this stored value (see the
// httpfront WithHTTPContextFunc that reads it back via Session.Auth) rather
// than re-extracting headers from each subsequent call.
func (m *Manager) BindAuth(id string, auth *gitlabauth.AuthContext) error {
	sess, ok := m.Get(id)
	if !ok {
		return mcperrors.ErrSessionNotFound
	}
	sess.Mu.Lock()
	sess.auth = auth
	sess.Mu.Unlock()
	return nil
}

// Get looks up a session by id. A successful lookup counts as activity:
// it updates the session's lastTouchedAt and, if the session was pending,
// promotes it to active.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	sess.touch(time.Now())
	return sess, true
}

// Delete closes and removes the session identified by id, releasing its
// capacity slot. Returns ErrSessionNotFound if no such session exists.
func (m *Manager) Delete(id string) error {
	return m.closeSession(id, "")
}

// Close transitions a session through closing -> closed and removes it
// from the index, releasing its capacity slot. reason is logged, not
// surfaced to callers.
func (m *Manager) Close(id, reason string) error {
	return m.closeSession(id, reason)
}

func (m *Manager) closeSession(id, reason string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return mcperrors.ErrSessionNotFound
	}

	sess.Mu.Lock()
	sess.state = StateClosing
	release := sess.admitDone
	sess.state = StateClosed
	sess.Mu.Unlock()

	if release != nil {
		release()
	}
	if reason != "" {
		logger.Debugf("session %s closed: %s", id, reason)
	}
	return nil
}

// Stop permanently disables the background idle-eviction loop. Safe to
// call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Shutdown stops admitting new sessions, closes every remaining session
// (releasing the capacity slots they hold), then waits for every other
// in-flight holder of a capacity slot to release it. It does not return
// until the drain completes.
func (m *Manager) Shutdown() {
	m.Stop()

	m.admission.mu.Lock()
	m.admission.closed = true
	m.admission.mu.Unlock()

	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		_ = m.Close(id, "shutdown")
	}

	m.admission.wg.Wait()
}

// ActiveCount reports the number of sessions currently tracked, for the
// /healthz activeSessions field.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// MaxSessions reports the configured capacity ceiling.
func (m *Manager) MaxSessions() int { return m.maxSessions }

func (m *Manager) gcLoop() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case now := <-ticker.C:
			m.cleanupExpiredOnce(now)
		}
	}
}

// cleanupExpiredOnce closes every session idle for longer than ttl. It is
// unexported so tests can trigger a scan deterministically instead of
// waiting on the real ticker.
func (m *Manager) cleanupExpiredOnce(now time.Time) {
	if m.ttl <= 0 {
		return
	}

	m.mu.Lock()
	var expired []string
	for id, sess := range m.sessions {
		sess.Mu.Lock()
		idle := now.Sub(sess.lastTouchedAt) > m.ttl
		sess.Mu.Unlock()
		if idle {
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		_ = m.Close(id, "idle")
	}
}
