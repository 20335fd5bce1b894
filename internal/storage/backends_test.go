package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mediocregopher/radix.v2/redis"
	"github.com/stretchr/testify/require"
)

// fakeRedis answers GET and SET from a map.
type fakeRedis struct {
	mu      sync.Mutex
	data    map[string][]byte
	err     error
	emptied bool
}

func (f *fakeRedis) Cmd(cmd string, args ...interface{}) *redis.Resp {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewRespIOErr(f.err)
	}
	key := args[0].(string)
	switch cmd {
	case "GET":
		v, ok := f.data[key]
		if !ok {
			return redis.NewResp(nil)
		}
		return redis.NewResp(v)
	case "SET":
		f.data[key] = append([]byte(nil), args[1].([]byte)...)
		return redis.NewResp("OK")
	}
	return redis.NewResp(errors.New("ERR unknown command"))
}

func (f *fakeRedis) Empty() { f.emptied = true }

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{data: map[string][]byte{}}
	s := &RedisStore{Pool: fake}

	_, err := s.Load(ctx, "stocks")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "stocks", []byte(`{"version":"1.1"}`)))
	got, err := s.Load(ctx, "stocks")
	require.NoError(t, err)
	require.Equal(t, `{"version":"1.1"}`, string(got))

	fake.err = errors.New("connection refused")
	_, err = s.Load(ctx, "stocks")
	require.ErrorContains(t, err, "connection refused")
	require.NotErrorIs(t, err, ErrNotFound)
	require.Error(t, s.Save(ctx, "stocks", []byte("x")))

	s.Close()
	require.True(t, fake.emptied)
}

func TestRedisStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &RedisStore{Pool: &fakeRedis{data: map[string][]byte{}}}

	_, err := s.Load(ctx, "stocks")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, s.Save(ctx, "stocks", nil), context.Canceled)
}

// fakePG emulates the kv_store table for the statements the store issues.
type fakePG struct {
	rows    map[string][]byte
	execErr error
	sql     []string
	closed  bool
}

type fakeRow struct {
	value []byte
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.value
	return nil
}

func (f *fakePG) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	if strings.Contains(sql, "INSERT INTO kv_store") {
		f.rows[args[0].(string)] = args[1].([]byte)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakePG) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	v, ok := f.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: v}
}

func (f *fakePG) Close() { f.closed = true }

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	db := &fakePG{rows: map[string][]byte{}}

	s, err := newPostgresStore(ctx, db)
	require.NoError(t, err)
	require.Contains(t, db.sql[0], "CREATE TABLE IF NOT EXISTS kv_store")

	_, err = s.Load(ctx, "stocks")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "stocks", []byte("v1")))
	require.NoError(t, s.Save(ctx, "stocks", []byte("v2")))
	require.Contains(t, db.sql[len(db.sql)-1], "ON CONFLICT (key) DO UPDATE")

	got, err := s.Load(ctx, "stocks")
	require.NoError(t, err)
	require.Equal(t, "v2", string(got))

	db.execErr = errors.New("read-only transaction")
	require.ErrorContains(t, s.Save(ctx, "stocks", []byte("v3")), "read-only transaction")

	s.Close()
	require.True(t, db.closed)
}

func TestPostgresStore_CreateTableFails(t *testing.T) {
	db := &fakePG{rows: map[string][]byte{}, execErr: errors.New("permission denied")}
	_, err := newPostgresStore(context.Background(), db)
	require.ErrorContains(t, err, "create kv_store")
	require.True(t, db.closed)
}
