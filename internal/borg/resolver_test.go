package borg

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"borgcache-go/internal/storage"
)

// scriptedDB 按预置脚本依次回应SelectOne调用
type scriptedDB struct {
	t     *testing.T
	steps []dbStep
	calls []string // 记录每次调用用的是select还是insert语句
}

type dbStep struct {
	id    int32
	found bool
	err   error
}

func (db *scriptedDB) Select(ctx context.Context, dest any, query string, args ...any) error {
	db.t.Fatal("unexpected Select call")
	return nil
}

func (db *scriptedDB) SelectOne(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	require.NotEmpty(db.t, db.steps, "script exhausted")
	step := db.steps[0]
	db.steps = db.steps[1:]
	db.calls = append(db.calls, query)
	if step.err != nil {
		return false, step.err
	}
	if step.found {
		*dest.(*int32) = step.id
	}
	return step.found, nil
}

func (db *scriptedDB) Exec(ctx context.Context, query string, args ...any) error {
	db.t.Fatal("unexpected Exec call")
	return nil
}

var errDup = errors.New(`ERROR: duplicate key value violates unique constraint "habitats_name_key" (SQLSTATE 23505)`)

const (
	selHabitat = "SELECT id FROM habitats WHERE name = ?"
	insHabitat = "INSERT INTO habitats (name) VALUES (?) RETURNING id"
)

// TestResolveExistingRow 已有记录直接命中select
func TestResolveExistingRow(t *testing.T) {
	db := &scriptedDB{t: t, steps: []dbStep{
		{id: 7, found: true},
	}}

	id, err := ResolveStringID[int32](context.Background(), db, "reef", selHabitat, insHabitat)
	require.NoError(t, err)
	assert.Equal(t, int32(7), id)
	assert.Equal(t, []string{selHabitat}, db.calls)
}

// TestResolveInsertsNewRow select未命中后插入并拿到新键
func TestResolveInsertsNewRow(t *testing.T) {
	db := &scriptedDB{t: t, steps: []dbStep{
		{found: false},         // select miss
		{id: 11, found: true},  // insert returns the new key
	}}

	id, err := ResolveStringID[int32](context.Background(), db, "tundra", selHabitat, insHabitat)
	require.NoError(t, err)
	assert.Equal(t, int32(11), id)
	assert.Equal(t, []string{selHabitat, insHabitat}, db.calls)
}

// TestResolveRetriesOnDuplicate 并发输家撞上唯一约束后重试, 下一轮select命中
func TestResolveRetriesOnDuplicate(t *testing.T) {
	db := &scriptedDB{t: t, steps: []dbStep{
		{found: false},        // select miss
		{err: errDup},         // insert loses the race
		{id: 42, found: true}, // retry: select now hits the winner's row
	}}

	id, err := ResolveStringID[int32](context.Background(), db, "reef", selHabitat, insHabitat)
	require.NoError(t, err)
	assert.Equal(t, int32(42), id)
	assert.Empty(t, db.steps)
}

// TestResolveInsertReturnsNoRow 插入成功却没有返回行是契约违反
func TestResolveInsertReturnsNoRow(t *testing.T) {
	db := &scriptedDB{t: t, steps: []dbStep{
		{found: false},
		{found: false}, // insert "succeeds" without a RETURNING row
	}}

	_, err := ResolveStringID[int32](context.Background(), db, "reef", selHabitat, insHabitat)
	require.Error(t, err)
	assert.True(t, storage.IsMissingRow(err))
}

// TestResolveNonDuplicateErrorPropagates 非唯一约束的插入错误不重试
func TestResolveNonDuplicateErrorPropagates(t *testing.T) {
	dbErr := errors.New("connection reset by peer")
	db := &scriptedDB{t: t, steps: []dbStep{
		{found: false},
		{err: dbErr},
	}}

	_, err := ResolveStringID[int32](context.Background(), db, "reef", selHabitat, insHabitat)
	assert.ErrorIs(t, err, dbErr)
	assert.Len(t, db.calls, 2)
}

// TestResolveExhaustsAttempts 每一轮都输掉竞争时带着末次错误放弃
func TestResolveExhaustsAttempts(t *testing.T) {
	if testing.Short() {
		t.Skip("带退避的耗尽场景在short模式下跳过")
	}
	var steps []dbStep
	for i := 0; i < 5; i++ {
		steps = append(steps, dbStep{found: false}, dbStep{err: errDup})
	}
	db := &scriptedDB{t: t, steps: steps}

	_, err := ResolveStringID[int32](context.Background(), db, "reef", selHabitat, insHabitat)
	require.Error(t, err)
	assert.ErrorIs(t, err, errDup)
	assert.True(t, strings.Contains(err.Error(), "5"))
	assert.Empty(t, db.steps)
}

// TestResolveAbortsOnContextCancel 退避等待期间ctx取消立即返回
func TestResolveAbortsOnContextCancel(t *testing.T) {
	db := &scriptedDB{t: t, steps: []dbStep{
		{found: false},
		{err: errDup},
	}}

	// 首次退避至少50ms, 10ms的deadline一定在挂起中到期
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := ResolveStringID[int32](ctx, db, "reef", selHabitat, insHabitat)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestJitterStaysBounded 抖动后的等待时间落在[d/2, 3d/2)内
func TestJitterStaysBounded(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 1000; i++ {
		got := jitter(d)
		require.GreaterOrEqual(t, got, d/2)
		require.Less(t, got, 3*d/2)
	}
}
