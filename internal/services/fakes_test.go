package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HammerMeetNail/cotravels/internal/events"
	"github.com/HammerMeetNail/cotravels/internal/models"
)

type fakeCommandTag struct {
	rowsAffected int64
}

func (f fakeCommandTag) RowsAffected() int64 {
	return f.rowsAffected
}

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (f fakeRow) Scan(dest ...any) error {
	return f.scanFunc(dest...)
}

// rowFromValues builds a Row that assigns values to the scan targets in
// order, the way pgx would.
func rowFromValues(values ...any) Row {
	return fakeRow{scanFunc: func(dest ...any) error {
		return assignValues(dest, values)
	}}
}

func errRow(err error) Row {
	return fakeRow{scanFunc: func(dest ...any) error { return err }}
}

func assignValues(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i := range dest {
		if err := assignValue(dest[i], values[i]); err != nil {
			return fmt.Errorf("scan column %d: %w", i, err)
		}
	}
	return nil
}

func assignValue(dest, value any) error {
	target := reflect.ValueOf(dest)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return errors.New("destination is not a pointer")
	}
	elem := target.Elem()

	if value == nil {
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	}

	v := reflect.ValueOf(value)
	switch {
	case v.Type().AssignableTo(elem.Type()):
		elem.Set(v)
	case v.Kind() == elem.Kind() && v.Type().ConvertibleTo(elem.Type()):
		elem.Set(v.Convert(elem.Type()))
	case elem.Kind() == reflect.Pointer && v.Type().AssignableTo(elem.Type().Elem()):
		p := reflect.New(elem.Type().Elem())
		p.Elem().Set(v)
		elem.Set(p)
	default:
		return fmt.Errorf("cannot assign %T to %s", value, elem.Type())
	}
	return nil
}

type fakeRows struct {
	rows   [][]any
	idx    int
	err    error
	closed bool
}

func (f *fakeRows) Next() bool {
	if f.closed || f.idx >= len(f.rows) {
		return false
	}
	f.idx++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	if f.idx == 0 || f.idx > len(f.rows) {
		return errors.New("scan called without a current row")
	}
	return assignValues(dest, f.rows[f.idx-1])
}

func (f *fakeRows) Close() {
	f.closed = true
}

func (f *fakeRows) Err() error {
	return f.err
}

type fakeDB struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	BeginFunc    func(ctx context.Context) (Tx, error)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if f.ExecFunc == nil {
		return nil, errors.New("unexpected Exec: " + sql)
	}
	return f.ExecFunc(ctx, sql, args...)
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc == nil {
		return nil, errors.New("unexpected Query: " + sql)
	}
	return f.QueryFunc(ctx, sql, args...)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc == nil {
		return errRow(errors.New("unexpected QueryRow: " + sql))
	}
	return f.QueryRowFunc(ctx, sql, args...)
}

func (f *fakeDB) Begin(ctx context.Context) (Tx, error) {
	if f.BeginFunc == nil {
		return nil, errors.New("unexpected Begin")
	}
	return f.BeginFunc(ctx)
}

type fakeTx struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if f.ExecFunc == nil {
		return nil, errors.New("unexpected tx Exec: " + sql)
	}
	return f.ExecFunc(ctx, sql, args...)
}

func (f *fakeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc == nil {
		return nil, errors.New("unexpected tx Query: " + sql)
	}
	return f.QueryFunc(ctx, sql, args...)
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc == nil {
		return errRow(errors.New("unexpected tx QueryRow: " + sql))
	}
	return f.QueryRowFunc(ctx, sql, args...)
}

func (f *fakeTx) Commit(ctx context.Context) error {
	if f.CommitFunc == nil {
		return nil
	}
	return f.CommitFunc(ctx)
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if f.RollbackFunc == nil {
		return nil
	}
	return f.RollbackFunc(ctx)
}

// txDB returns a DB whose Begin always hands out tx.
func txDB(tx *fakeTx) *fakeDB {
	return &fakeDB{
		BeginFunc: func(ctx context.Context) (Tx, error) {
			return tx, nil
		},
	}
}

type fakeRedis struct {
	mu        sync.Mutex
	keys      map[string]time.Duration
	setErr    error
	existsErr error
	setCalls  int
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	if f.keys == nil {
		f.keys = map[string]time.Duration{}
	}
	f.keys[key] = expiration
	return nil
}

func (f *fakeRedis) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.keys[key]
	return ok, nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.keys, k)
	}
	return nil
}

type fakeBlobStore struct {
	stored      map[string][]byte
	deleted     []string
	storeErr    error
	deleteErr   error
	contentType string
	next        string
}

func (f *fakeBlobStore) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	if f.storeErr != nil {
		return "", f.storeErr
	}
	if f.stored == nil {
		f.stored = map[string][]byte{}
	}
	name := f.next
	if name == "" {
		name = fmt.Sprintf("blob-%d", len(f.stored)+1)
	}
	f.stored[name] = data
	f.contentType = contentType
	return name, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return f.deleteErr
}

type fakePublisher struct {
	mu        sync.Mutex
	published []events.NotificationEvent
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, event events.NotificationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, event)
	return nil
}

func (f *fakePublisher) Close() error {
	return nil
}

func (f *fakePublisher) events() []events.NotificationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.NotificationEvent(nil), f.published...)
}

// syncNotifications returns a NotificationService that publishes inline.
func syncNotifications(db DB, pub events.Publisher) *NotificationService {
	svc := NewNotificationService(db, pub)
	svc.SetAsync(func(fn func()) { fn() })
	return svc
}

// userRowValues lists u in userColumns order.
func userRowValues(u *models.User) []any {
	return []any{
		u.ID, u.Name, u.Username, u.Email, u.PasswordHash, u.PhoneNumber, u.ProfilePicture,
		u.DateOfBirth, u.Gender, u.City, u.State, u.Country, u.Bio, u.TravelPreferences,
		u.LanguagesSpoken, u.VerificationStatus, u.FriendsListPrivacy, u.FriendRequestsPrivacy,
		u.IsDeleted, u.CreatedAt, u.UpdatedAt,
	}
}

func notificationRowValues(n *models.Notification) []any {
	return []any{n.ID, n.UserID, n.Type, n.Content, n.IsRead, n.CreatedAt}
}

// memStore is a stateful DB for multi-step tests. It recognises the
// statements the services issue by SQL fragment and keeps each table in a
// map. Begin snapshots the tables and Rollback restores the snapshot.
type memStore struct {
	mu     sync.Mutex
	tables memTables
}

type memToken struct {
	userID    uuid.UUID
	issuedAt  time.Time
	expiresAt time.Time
}

// memPair is a directed (first, second) edge.
type memPair [2]uuid.UUID

type memTables struct {
	users         map[uuid.UUID]models.User
	sessions      map[string]memToken
	refresh       map[string]memToken
	blacklist     map[string]time.Time
	requests      map[uuid.UUID]models.FriendRequest
	friends       map[memPair]time.Time
	blocks        map[memPair]time.Time
	notifications []models.Notification
}

func (t memTables) clone() memTables {
	return memTables{
		users:         maps.Clone(t.users),
		sessions:      maps.Clone(t.sessions),
		refresh:       maps.Clone(t.refresh),
		blacklist:     maps.Clone(t.blacklist),
		requests:      maps.Clone(t.requests),
		friends:       maps.Clone(t.friends),
		blocks:        maps.Clone(t.blocks),
		notifications: append([]models.Notification(nil), t.notifications...),
	}
}

func newMemStore() *memStore {
	return &memStore{tables: memTables{
		users:     map[uuid.UUID]models.User{},
		sessions:  map[string]memToken{},
		refresh:   map[string]memToken{},
		blacklist: map[string]time.Time{},
		requests:  map[uuid.UUID]models.FriendRequest{},
		friends:   map[memPair]time.Time{},
		blocks:    map[memPair]time.Time{},
	}}
}

func (m *memStore) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exec(sql, args)
}

func (m *memStore) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query(sql, args)
}

func (m *memStore) QueryRow(ctx context.Context, sql string, args ...any) Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryRow(sql, args)
}

func (m *memStore) Begin(ctx context.Context) (Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &memTx{store: m, snapshot: m.tables.clone()}, nil
}

type memTx struct {
	store    *memStore
	snapshot memTables
	done     bool
}

func (t *memTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return t.store.Exec(ctx, sql, args...)
}

func (t *memTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return t.store.Query(ctx, sql, args...)
}

func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return t.store.QueryRow(ctx, sql, args...)
}

func (t *memTx) Commit(ctx context.Context) error {
	t.done = true
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Lock()
	t.store.tables = t.snapshot
	t.store.mu.Unlock()
	return nil
}

func sqlHas(sql string, fragments ...string) bool {
	for _, f := range fragments {
		if !strings.Contains(sql, f) {
			return false
		}
	}
	return true
}

func uuidArgs(args []any) (uuid.UUID, uuid.UUID) {
	return args[0].(uuid.UUID), args[1].(uuid.UUID)
}

func between(r models.FriendRequest, a, b uuid.UUID) bool {
	return (r.SenderID == a && r.ReceiverID == b) || (r.SenderID == b && r.ReceiverID == a)
}

func uniqueErr(constraint string) error {
	return &pgconn.PgError{Code: uniqueViolation, ConstraintName: constraint}
}

func (m *memStore) exec(sql string, args []any) (CommandTag, error) {
	t := &m.tables
	affected := func(n int) (CommandTag, error) {
		return fakeCommandTag{rowsAffected: int64(n)}, nil
	}

	switch {
	case sqlHas(sql, "INSERT INTO jwt_sessions"):
		t.sessions[args[1].(string)] = memToken{
			userID: args[0].(uuid.UUID), issuedAt: args[2].(time.Time), expiresAt: args[3].(time.Time),
		}
		return affected(1)
	case sqlHas(sql, "INSERT INTO refresh_tokens"):
		t.refresh[args[1].(string)] = memToken{
			userID: args[0].(uuid.UUID), issuedAt: args[2].(time.Time), expiresAt: args[3].(time.Time),
		}
		return affected(1)
	case sqlHas(sql, "INSERT INTO token_blacklist"):
		hash := args[0].(string)
		if _, ok := t.blacklist[hash]; ok {
			return affected(0)
		}
		t.blacklist[hash] = args[1].(time.Time)
		return affected(1)
	case sqlHas(sql, "DELETE FROM refresh_tokens WHERE user_id"):
		n := 0
		for hash, rt := range t.refresh {
			if rt.userID == args[0].(uuid.UUID) {
				delete(t.refresh, hash)
				n++
			}
		}
		return affected(n)
	case sqlHas(sql, "DELETE FROM refresh_tokens WHERE token_hash"):
		hash := args[0].(string)
		if rt, ok := t.refresh[hash]; ok && rt.userID == args[1].(uuid.UUID) {
			delete(t.refresh, hash)
			return affected(1)
		}
		return affected(0)
	case sqlHas(sql, "UPDATE users SET is_deleted = TRUE"):
		u, ok := t.users[args[0].(uuid.UUID)]
		if !ok || u.IsDeleted {
			return affected(0)
		}
		u.IsDeleted = true
		t.users[u.ID] = u
		return affected(1)
	case sqlHas(sql, "UPDATE users SET password_hash"):
		u, ok := t.users[args[0].(uuid.UUID)]
		if !ok || u.IsDeleted {
			return affected(0)
		}
		u.PasswordHash = args[1].(string)
		t.users[u.ID] = u
		return affected(1)
	case sqlHas(sql, "INSERT INTO friends"):
		a, b := uuidArgs(args)
		_, ab := t.friends[memPair{a, b}]
		_, ba := t.friends[memPair{b, a}]
		if ab || ba {
			return nil, uniqueErr("friends_pkey")
		}
		now := time.Now()
		t.friends[memPair{a, b}] = now
		t.friends[memPair{b, a}] = now
		return affected(2)
	case sqlHas(sql, "DELETE FROM friends"):
		a, b := uuidArgs(args)
		n := 0
		for _, p := range []memPair{{a, b}, {b, a}} {
			if _, ok := t.friends[p]; ok {
				delete(t.friends, p)
				n++
			}
		}
		return affected(n)
	case sqlHas(sql, "INSERT INTO user_blocks"):
		a, b := uuidArgs(args)
		p := memPair{a, b}
		if _, ok := t.blocks[p]; ok {
			return affected(0)
		}
		t.blocks[p] = time.Now()
		return affected(1)
	case sqlHas(sql, "DELETE FROM user_blocks"):
		a, b := uuidArgs(args)
		p := memPair{a, b}
		if _, ok := t.blocks[p]; !ok {
			return affected(0)
		}
		delete(t.blocks, p)
		return affected(1)
	case sqlHas(sql, "DELETE FROM friend_requests"):
		a, b := uuidArgs(args)
		n := 0
		for id, r := range t.requests {
			if between(r, a, b) {
				delete(t.requests, id)
				n++
			}
		}
		return affected(n)
	}
	return nil, errors.New("memStore: unsupported Exec: " + sql)
}

func (m *memStore) query(sql string, args []any) (Rows, error) {
	t := &m.tables

	switch {
	case sqlHas(sql, "FROM users WHERE email = $1 OR username = $2"):
		var rows [][]any
		for _, u := range t.users {
			if u.Email == args[0].(string) || u.Username == args[1].(string) {
				rows = append(rows, userRowValues(&u))
			}
		}
		return &fakeRows{rows: rows}, nil
	case sqlHas(sql, "INSERT INTO token_blacklist", "FROM jwt_sessions"):
		var rows [][]any
		for hash, s := range t.sessions {
			if s.userID != args[0].(uuid.UUID) {
				continue
			}
			if _, ok := t.blacklist[hash]; ok {
				continue
			}
			t.blacklist[hash] = s.expiresAt
			rows = append(rows, []any{hash, s.expiresAt})
		}
		return &fakeRows{rows: rows}, nil
	case sqlHas(sql, "JOIN users u ON u.id = f.friend_id"):
		var friends []models.User
		since := map[uuid.UUID]time.Time{}
		for p, created := range t.friends {
			if p[0] != args[0].(uuid.UUID) {
				continue
			}
			if u, ok := t.users[p[1]]; ok && !u.IsDeleted {
				friends = append(friends, u)
				since[u.ID] = created
			}
		}
		sort.Slice(friends, func(i, j int) bool { return friends[i].Username < friends[j].Username })
		rows := make([][]any, 0, len(friends))
		for _, u := range friends {
			rows = append(rows, []any{u.ID, u.Username, u.Name, u.ProfilePicture, u.City, u.Country, since[u.ID]})
		}
		return &fakeRows{rows: rows}, nil
	case sqlHas(sql, "FROM friend_requests r"):
		received := sqlHas(sql, "r.receiver_id = $1")
		var rows [][]any
		for _, r := range t.requests {
			if r.Status != models.FriendRequestPending {
				continue
			}
			self, other := r.SenderID, r.ReceiverID
			if received {
				self, other = r.ReceiverID, r.SenderID
			}
			u, ok := t.users[other]
			if self != args[0].(uuid.UUID) || !ok || u.IsDeleted {
				continue
			}
			rows = append(rows, []any{
				r.ID, r.SenderID, r.ReceiverID, r.Status, r.SentAt, r.RespondedAt,
				u.ID, u.Username, u.Name, u.ProfilePicture, u.City, u.Country,
			})
		}
		return &fakeRows{rows: rows}, nil
	}
	return nil, errors.New("memStore: unsupported Query: " + sql)
}

func (m *memStore) queryRow(sql string, args []any) Row {
	t := &m.tables
	active := func(id uuid.UUID) (models.User, bool) {
		u, ok := t.users[id]
		return u, ok && !u.IsDeleted
	}
	noRows := errRow(pgx.ErrNoRows)

	switch {
	case sqlHas(sql, "INSERT INTO users"):
		for _, u := range t.users {
			if u.Username == args[1].(string) {
				return errRow(uniqueErr("users_username_key"))
			}
			if u.Email == args[2].(string) {
				return errRow(uniqueErr("users_email_key"))
			}
		}
		now := time.Now()
		u := models.User{
			ID:                    uuid.New(),
			Name:                  args[0].(string),
			Username:              args[1].(string),
			Email:                 args[2].(string),
			PasswordHash:          args[3].(string),
			PhoneNumber:           args[4].(string),
			DateOfBirth:           args[5].(*time.Time),
			Gender:                args[6].(string),
			City:                  args[7].(string),
			State:                 args[8].(string),
			Country:               args[9].(string),
			Bio:                   args[10].(string),
			TravelPreferences:     []string{},
			LanguagesSpoken:       []string{},
			VerificationStatus:    "unverified",
			FriendsListPrivacy:    models.FriendsListPublic,
			FriendRequestsPrivacy: models.FriendRequestsEveryone,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		t.users[u.ID] = u
		return rowFromValues(userRowValues(&u)...)
	case sqlHas(sql, "is_deleted = FALSE"):
		u, ok := t.users[args[0].(uuid.UUID)]
		if !ok || !u.IsDeleted {
			return noRows
		}
		u.Name, u.Username, u.Email = args[1].(string), args[2].(string), args[3].(string)
		u.PasswordHash, u.PhoneNumber = args[4].(string), args[5].(string)
		u.DateOfBirth = args[6].(*time.Time)
		u.Gender, u.City, u.State = args[7].(string), args[8].(string), args[9].(string)
		u.Country, u.Bio = args[10].(string), args[11].(string)
		u.ProfilePicture = nil
		u.FriendsListPrivacy = models.FriendsListPublic
		u.FriendRequestsPrivacy = models.FriendRequestsEveryone
		u.IsDeleted = false
		u.UpdatedAt = time.Now()
		t.users[u.ID] = u
		return rowFromValues(userRowValues(&u)...)
	case sqlHas(sql, "UPDATE users SET friends_list_privacy"):
		u, ok := active(args[0].(uuid.UUID))
		if !ok {
			return noRows
		}
		u.FriendsListPrivacy = args[1].(models.FriendsListPrivacy)
		u.FriendRequestsPrivacy = args[2].(models.FriendRequestsPrivacy)
		t.users[u.ID] = u
		return rowFromValues(u.FriendsListPrivacy, u.FriendRequestsPrivacy)
	case sqlHas(sql, "SELECT friend_requests_privacy FROM users"):
		u, ok := active(args[0].(uuid.UUID))
		if !ok {
			return noRows
		}
		return rowFromValues(u.FriendRequestsPrivacy)
	case sqlHas(sql, "SELECT friends_list_privacy FROM users"):
		u, ok := active(args[0].(uuid.UUID))
		if !ok {
			return noRows
		}
		return rowFromValues(u.FriendsListPrivacy)
	case sqlHas(sql, "SELECT username FROM users"):
		u, ok := t.users[args[0].(uuid.UUID)]
		if !ok {
			return noRows
		}
		return rowFromValues(u.Username)
	case sqlHas(sql, "WHERE username = $1 OR email = $2"):
		for _, u := range t.users {
			if u.Username == args[0].(string) || u.Email == args[1].(string) {
				return rowFromValues(userRowValues(&u)...)
			}
		}
		return noRows
	case sqlHas(sql, "SELECT EXISTS(SELECT 1 FROM users WHERE id"):
		_, ok := active(args[0].(uuid.UUID))
		return rowFromValues(ok)
	case sqlHas(sql, "FROM users WHERE id = $1 AND NOT is_deleted"):
		u, ok := active(args[0].(uuid.UUID))
		if !ok {
			return noRows
		}
		return rowFromValues(userRowValues(&u)...)
	case sqlHas(sql, "FROM token_blacklist WHERE token_hash"):
		_, ok := t.blacklist[args[0].(string)]
		return rowFromValues(ok)
	case sqlHas(sql, "FROM refresh_tokens"):
		hash := args[0].(string)
		rt, ok := t.refresh[hash]
		if !ok || rt.userID != args[1].(uuid.UUID) {
			return noRows
		}
		return rowFromValues(rt.userID, hash, rt.issuedAt, rt.expiresAt)
	case sqlHas(sql, "JOIN friends fb"):
		a, b := uuidArgs(args)
		for p := range t.friends {
			if p[0] != a {
				continue
			}
			if _, ok := t.friends[memPair{b, p[1]}]; ok {
				return rowFromValues(true)
			}
		}
		return rowFromValues(false)
	case sqlHas(sql, "FROM user_blocks"):
		a, b := uuidArgs(args)
		_, ab := t.blocks[memPair{a, b}]
		_, ba := t.blocks[memPair{b, a}]
		return rowFromValues(ab || ba)
	case sqlHas(sql, "INSERT INTO friend_requests"):
		a, b := uuidArgs(args)
		for _, r := range t.requests {
			if between(r, a, b) && r.Status == models.FriendRequestPending {
				return errRow(uniqueErr("friend_requests_pending_pair_key"))
			}
		}
		r := models.FriendRequest{
			ID: uuid.New(), SenderID: a, ReceiverID: b,
			Status: models.FriendRequestPending, SentAt: time.Now(),
		}
		t.requests[r.ID] = r
		return rowFromValues(r.ID, r.SenderID, r.ReceiverID, r.Status, r.SentAt, r.RespondedAt)
	case sqlHas(sql, "UPDATE friend_requests SET status"):
		r, ok := t.requests[args[0].(uuid.UUID)]
		if !ok {
			return noRows
		}
		now := time.Now()
		r.Status = args[1].(models.FriendRequestStatus)
		r.RespondedAt = &now
		t.requests[r.ID] = r
		return rowFromValues(now)
	case sqlHas(sql, "FROM friend_requests WHERE id = $1 AND receiver_id = $2"):
		r, ok := t.requests[args[0].(uuid.UUID)]
		if !ok || r.ReceiverID != args[1].(uuid.UUID) {
			return noRows
		}
		return rowFromValues(r.ID, r.SenderID, r.ReceiverID, r.Status, r.SentAt, r.RespondedAt)
	case sqlHas(sql, "FROM friend_requests"):
		a, b := uuidArgs(args)
		pendingOnly := sqlHas(sql, "'pending'")
		for _, r := range t.requests {
			if between(r, a, b) && (!pendingOnly || r.Status == models.FriendRequestPending) {
				return rowFromValues(true)
			}
		}
		return rowFromValues(false)
	case sqlHas(sql, "FROM friends"):
		a, b := uuidArgs(args)
		_, ab := t.friends[memPair{a, b}]
		_, ba := t.friends[memPair{b, a}]
		either := sqlHas(sql, "OR (user_id = $2 AND friend_id = $1)")
		return rowFromValues(ab || (either && ba))
	case sqlHas(sql, "INSERT INTO notifications"):
		n := models.Notification{
			ID:        uuid.New(),
			UserID:    args[0].(uuid.UUID),
			Type:      args[1].(models.NotificationType),
			Content:   args[2].(string),
			CreatedAt: time.Now(),
		}
		t.notifications = append(t.notifications, n)
		return rowFromValues(notificationRowValues(&n)...)
	}
	return errRow(errors.New("memStore: unsupported QueryRow: " + sql))
}

// addUser seeds an active account with default privacy settings.
func (m *memStore) addUser(username string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	u := models.User{
		ID:                    uuid.New(),
		Name:                  strings.ToUpper(username[:1]) + username[1:],
		Username:              username,
		Email:                 username + "@example.com",
		TravelPreferences:     []string{},
		LanguagesSpoken:       []string{},
		VerificationStatus:    "unverified",
		FriendsListPrivacy:    models.FriendsListPublic,
		FriendRequestsPrivacy: models.FriendRequestsEveryone,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	m.tables.users[u.ID] = u
	return &u
}

// addFriendRow writes a single directed friendship row.
func (m *memStore) addFriendRow(userID, friendID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables.friends[memPair{userID, friendID}] = time.Now()
}

// friendRows counts the friendship rows between a and b in both directions.
func (m *memStore) friendRows(a, b uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range []memPair{{a, b}, {b, a}} {
		if _, ok := m.tables.friends[p]; ok {
			n++
		}
	}
	return n
}

func (m *memStore) requestsBetween(a, b uuid.UUID) []models.FriendRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.FriendRequest
	for _, r := range m.tables.requests {
		if between(r, a, b) {
			out = append(out, r)
		}
	}
	return out
}

func (m *memStore) notificationsFor(userID uuid.UUID) []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.tables.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
