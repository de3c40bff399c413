package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/hms-project/hmsctl/internal/domain"
	"github.com/hms-project/hmsctl/internal/ports"
)

const (
	KeyToken         = "token"
	KeySubjectID     = "subjectId"
	KeyRole          = "role"
	KeyHeadNurseFlag = "headNurseFlag"

	headNurseFlagValue = "1"
)

// TokenDecoder extracts claims from a bearer token without verifying it. ok is false for malformed tokens.
type TokenDecoder func(rawToken string) (claims domain.TokenClaims, ok bool)

type SessionManager struct {
	store  ports.KeyValueStore
	decode TokenDecoder
	logger *slog.Logger

	mu      sync.RWMutex
	session domain.Session
}

func NewSessionManager(store ports.KeyValueStore, decode TokenDecoder, logger *slog.Logger) *SessionManager {
	if decode == nil {
		decode = func(string) (domain.TokenClaims, bool) { return domain.TokenClaims{}, false }
	}

	return &SessionManager{
		store:  store,
		decode: decode,
		logger: loggerOrDiscard(logger),
	}
}

// Initialize loads the persisted session. Missing or unreadable keys leave their field empty.
func (m *SessionManager) Initialize(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, _ := m.read(ctx, KeyToken)
	subjectID, _ := m.read(ctx, KeySubjectID)
	role, _ := m.read(ctx, KeyRole)
	_, headNurse := m.read(ctx, KeyHeadNurseFlag)

	m.session = domain.Session{
		Token:     token,
		SubjectID: subjectID,
		Role:      domain.Role(role),
		HeadNurse: headNurse,
	}
}

// EstablishSession replaces the session with one derived from rawToken. A token that cannot be decoded
// still completes the login: the fallback subject and the previously held role are used.
func (m *SessionManager) EstablishSession(ctx context.Context, rawToken, fallbackSubjectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subjectID := fallbackSubjectID
	role := m.session.Role

	claims, ok := m.decode(rawToken)
	if !ok {
		m.logger.Warn("decode session token failed, using fallback identity", "subject", fallbackSubjectID)
	} else {
		if claims.Subject != "" {
			subjectID = claims.Subject
		}
		if claims.Role != "" {
			role = claims.Role
		}
	}

	next := m.session
	next.Token = rawToken
	next.SubjectID = subjectID
	m.session = next.WithRole(role)

	m.persist(ctx, "establish session", withHeadNurseFlag(ports.Mutation{
		Set: map[string]string{
			KeyToken:     m.session.Token,
			KeySubjectID: m.session.SubjectID,
			KeyRole:      string(m.session.Role),
		},
	}, m.session.HeadNurse))
}

func (m *SessionManager) SetRole(ctx context.Context, role domain.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = m.session.WithRole(role)

	m.persist(ctx, "set role", withHeadNurseFlag(ports.Mutation{
		Set: map[string]string{KeyRole: string(role)},
	}, m.session.HeadNurse))
}

// SetHeadNurseFlag only sticks while the current role is nurse.
func (m *SessionManager) SetHeadNurseFlag(ctx context.Context, flag bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session.HeadNurse = flag && m.session.Role == domain.RoleNurse

	m.persist(ctx, "set head nurse flag", withHeadNurseFlag(ports.Mutation{}, m.session.HeadNurse))
}

// TerminateSession clears the session and its persisted keys. Calling it without a session is a no-op.
func (m *SessionManager) TerminateSession(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = domain.Session{}

	m.persist(ctx, "terminate session", ports.Mutation{
		Remove: []string{KeyToken, KeySubjectID, KeyRole, KeyHeadNurseFlag},
	})
}

func (m *SessionManager) Snapshot() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

func (m *SessionManager) IsAuthenticated() bool {
	return m.Snapshot().IsAuthenticated()
}

func (m *SessionManager) CurrentRole() domain.Role {
	return m.Snapshot().Role
}

func (m *SessionManager) IsHeadNurse() bool {
	return m.Snapshot().IsHeadNurse()
}

func (m *SessionManager) Token() string {
	return m.Snapshot().Token
}

func (m *SessionManager) SubjectID() string {
	return m.Snapshot().SubjectID
}

func (m *SessionManager) read(ctx context.Context, key string) (string, bool) {
	value, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			m.logger.Warn("read session key failed", "key", key, "error", err)
		}
		return "", false
	}

	return value, true
}

func (m *SessionManager) persist(ctx context.Context, op string, mutation ports.Mutation) {
	if err := applyMutation(ctx, m.store, mutation); err != nil {
		m.logger.Warn("persist session failed", "op", op, "error", err)
	}
}

// withHeadNurseFlag stores the flag as key presence; false is never written.
func withHeadNurseFlag(mutation ports.Mutation, flag bool) ports.Mutation {
	if !flag {
		mutation.Remove = append(mutation.Remove, KeyHeadNurseFlag)
		return mutation
	}

	if mutation.Set == nil {
		mutation.Set = map[string]string{}
	}
	mutation.Set[KeyHeadNurseFlag] = headNurseFlagValue
	return mutation
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
