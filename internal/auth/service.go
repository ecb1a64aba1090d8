package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"FleetStock/internal/mirror"
	"FleetStock/internal/model"
	"FleetStock/internal/sheets"
	"FleetStock/internal/store"
)

// lockoutLadder maps the consecutive-failure count to the mandatory wait
// before the next attempt is accepted. Failure n waits ladder[n-1]; counts
// past the end stay at the last rung.
var lockoutLadder = []time.Duration{
	0, 0, 0, 0, 0,
	time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	time.Hour,
}

// lockoutKey is where the failure state lives in the local store, so the
// ladder survives process restarts.
const lockoutKey = "lockout_state"

var pinPattern = regexp.MustCompile(`^\d{4}$`)

var (
	// ErrMalformedPIN rejects input that is not exactly four digits. It is
	// checked before the remote lookup and does not advance the ladder.
	ErrMalformedPIN = errors.New("PIN must be exactly 4 digits")
	// ErrWrongPIN is a failed lookup against the remote user table.
	ErrWrongPIN = errors.New("unknown PIN")
	// ErrPermissionDenied rejects operations the actor may not perform.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrDuplicatePIN rejects a new PIN already held by another user.
	ErrDuplicatePIN = errors.New("PIN already in use")
)

// LockedOutError reports that login is refused until the given time.
type LockedOutError struct {
	Until time.Time
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("too many failed attempts, locked until %s", e.Until.Format(time.RFC3339))
}

// lockoutState is the persisted ladder position.
type lockoutState struct {
	Attempts    int   `json:"attempts"`
	LockedUntil int64 `json:"lockedUntilMs"`
}

// Service authenticates technicians by PIN against the remote user table and
// enforces the escalating lockout ladder. PINs are row keys of the remote
// table, so every login does a fresh fetch; the mirror copy is only updated
// as a side effect.
type Service struct {
	client *sheets.Client
	mirror *mirror.Mirror
	store  *store.Store
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewService(client *sheets.Client, m *mirror.Mirror, s *store.Store, log *zap.SugaredLogger) *Service {
	return &Service{client: client, mirror: m, store: s, log: log, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Login checks the PIN against a freshly fetched user table. Wrong PINs
// advance the ladder; transport failures do not. A success resets the ladder
// and fires a best-effort login audit record.
func (s *Service) Login(ctx context.Context, pin string) (model.User, error) {
	if !pinPattern.MatchString(pin) {
		return model.User{}, ErrMalformedPIN
	}

	state, err := s.loadState()
	if err != nil {
		return model.User{}, err
	}
	if state.LockedUntil != 0 {
		if until := time.UnixMilli(state.LockedUntil); s.now().Before(until) {
			return model.User{}, &LockedOutError{Until: until}
		}
		// отсиженный локаут обнуляет лестницу: следующий промах снова первый
		state = lockoutState{}
		if err := s.saveState(state); err != nil {
			return model.User{}, err
		}
	}

	table, err := s.client.Query(ctx, sheets.QueryUsers)
	if err != nil {
		return model.User{}, fmt.Errorf("user lookup failed: %w", err)
	}
	users := sheets.DecodeUsers(table)
	s.mirror.SetUsers(users)

	user, ok := users[pin]
	if !ok {
		return model.User{}, s.recordFailure(state)
	}

	if err := s.store.Delete(lockoutKey); err != nil {
		s.log.Warnw("failed to reset lockout state", "error", err)
	}
	s.logLogin(user)
	return user, nil
}

// recordFailure advances the ladder, persists it and returns the error the
// caller should surface.
func (s *Service) recordFailure(state lockoutState) error {
	state.Attempts++
	idx := state.Attempts - 1
	if idx >= len(lockoutLadder) {
		idx = len(lockoutLadder) - 1
	}
	delay := lockoutLadder[idx]
	if delay > 0 {
		state.LockedUntil = s.now().Add(delay).UnixMilli()
	}
	if err := s.saveState(state); err != nil {
		return err
	}
	if delay > 0 {
		return &LockedOutError{Until: time.UnixMilli(state.LockedUntil)}
	}
	return ErrWrongPIN
}

// logLogin appends the login audit record. Fire-and-forget: a failure here
// must never block a valid login.
func (s *Service) logLogin(user model.User) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.client.Command(ctx, sheets.CmdLogLogin, map[string]any{
			"tech":      user.Name,
			"timestamp": s.now().Format("1/2/2006, 3:04:05 PM"),
		})
		if err != nil {
			s.log.Warnw("login audit record failed", "tech", user.Name, "error", err)
		}
	}()
}

// ChangePIN rotates a PIN. Owners may rotate anyone's; everyone else needs
// the edit-PIN flag and may only rotate their own.
func (s *Service) ChangePIN(ctx context.Context, actor model.User, oldPIN, newPIN string) error {
	if !actor.IsOwner {
		if !actor.CanEditPIN || oldPIN != actor.PIN {
			return ErrPermissionDenied
		}
	}
	if !pinPattern.MatchString(newPIN) {
		return ErrMalformedPIN
	}
	users, err := s.fetchUsers(ctx)
	if err != nil {
		return err
	}
	if _, ok := users[oldPIN]; !ok {
		return ErrWrongPIN
	}
	if _, taken := users[newPIN]; taken {
		return ErrDuplicatePIN
	}
	return s.client.Command(ctx, sheets.CmdChangePIN, map[string]any{
		"oldPin": oldPIN,
		"newPin": newPIN,
	})
}

// Users lists every account, owner only.
func (s *Service) Users(ctx context.Context, actor model.User) ([]model.User, error) {
	if !actor.IsOwner {
		return nil, ErrPermissionDenied
	}
	users, err := s.fetchUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		out = append(out, u)
	}
	return out, nil
}

// SaveUser creates or updates an account, owner only. A new account's PIN
// must not collide with an existing one.
func (s *Service) SaveUser(ctx context.Context, actor model.User, u model.User, isNew bool) error {
	if !actor.IsOwner {
		return ErrPermissionDenied
	}
	if !pinPattern.MatchString(u.PIN) {
		return ErrMalformedPIN
	}
	if isNew {
		users, err := s.fetchUsers(ctx)
		if err != nil {
			return err
		}
		if _, taken := users[u.PIN]; taken {
			return ErrDuplicatePIN
		}
	}
	return s.client.Command(ctx, sheets.CmdSaveUser, map[string]any{
		"pin":        u.PIN,
		"name":       u.Name,
		"truck":      u.TruckID,
		"isOwner":    u.IsOwner,
		"canEditPin": u.CanEditPIN,
	})
}

// DeleteUser removes an account, owner only. Owners cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, actor model.User, pin string) error {
	if !actor.IsOwner {
		return ErrPermissionDenied
	}
	if pin == actor.PIN {
		return ErrPermissionDenied
	}
	return s.client.Command(ctx, sheets.CmdDeleteUser, map[string]any{"pin": pin})
}

func (s *Service) fetchUsers(ctx context.Context) (map[string]model.User, error) {
	table, err := s.client.Query(ctx, sheets.QueryUsers)
	if err != nil {
		return nil, err
	}
	users := sheets.DecodeUsers(table)
	s.mirror.SetUsers(users)
	return users, nil
}

func (s *Service) loadState() (lockoutState, error) {
	raw, _, ok, err := s.store.Get(lockoutKey)
	if err != nil || !ok {
		return lockoutState{}, err
	}
	var state lockoutState
	if err := json.Unmarshal(raw, &state); err != nil {
		// нечитаемое состояние трактуем как чистое
		s.log.Warnw("corrupt lockout state dropped", "error", err)
		return lockoutState{}, nil
	}
	return state, nil
}

func (s *Service) saveState(state lockoutState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.store.Put(lockoutKey, raw, s.now().UnixMilli())
}
