package borg

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCache 内存版缓存，带操作计数，用于验证访问顺序和去重集合行为
type fakeCache struct {
	values map[string][]byte
	sets   map[string]map[string]struct{}
	ops    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string][]byte{}, sets: map[string]map[string]struct{}{}}
}

func (c *fakeCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	c.ops++
	payload, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(payload, dest)
}

func (c *fakeCache) SetJSONEx(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.ops++
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = payload
	return nil
}

func (c *fakeCache) SAdd(ctx context.Context, key string, member string) error {
	c.ops++
	if c.sets[key] == nil {
		c.sets[key] = map[string]struct{}{}
	}
	c.sets[key][member] = struct{}{}
	return nil
}

func (c *fakeCache) SIsMember(ctx context.Context, key string, member string) (bool, error) {
	c.ops++
	_, ok := c.sets[key][member]
	return ok, nil
}

func (c *fakeCache) SCard(ctx context.Context, key string) (int64, error) {
	c.ops++
	return int64(len(c.sets[key])), nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.ops++
	delete(c.values, key)
	delete(c.sets, key)
	return nil
}

// 测试用的构建类型: 从(borrowed base, owned input)构建widget
type base struct {
	ID   int32
	Name string
}

type input struct {
	Key     string
	Payload string
}

type widget struct {
	Identity string
	BaseName string
	Body     string
}

// widgetBlueprint 可脚本化的蓝图实现，记录各阶段的调用
type widgetBlueprint struct {
	Defaults[base, input, widget]

	calls             []string
	intermediateCalls int
	firstSights       int

	maxMembers int64
	failAt     string // 在哪个阶段注入失败
}

var errInjected = errors.New("injected failure")

func (bp *widgetBlueprint) Prefix() string { return "widget" }

func (bp *widgetBlueprint) Suffix(b *base, o *input) string { return o.Key }

func (bp *widgetBlueprint) MaxDedupMembers() int64 {
	if bp.maxMembers > 0 {
		return bp.maxMembers
	}
	return bp.Defaults.MaxDedupMembers()
}

func (bp *widgetBlueprint) Intermediate(ctx context.Context, deps *Deps, b *base, o *input) (string, error) {
	bp.calls = append(bp.calls, "intermediate")
	bp.intermediateCalls++
	if bp.failAt == "intermediate" {
		return "", errInjected
	}
	return "r:" + o.Key, nil
}

func (bp *widgetBlueprint) Generate(ctx context.Context, deps *Deps, b *base, o input, r string) (string, error) {
	bp.calls = append(bp.calls, "generate")
	if bp.failAt == "generate" {
		return "", errInjected
	}
	return r + "|" + o.Payload, nil
}

func (bp *widgetBlueprint) Instantiate(b *base, g string) (widget, error) {
	bp.calls = append(bp.calls, "instantiate")
	if bp.failAt == "instantiate" {
		return widget{}, errInjected
	}
	return widget{Identity: g, BaseName: b.Name, Body: g}, nil
}

func (bp *widgetBlueprint) DedupMember(t *widget) string { return t.Identity }

func (bp *widgetBlueprint) OnInvocation(ctx context.Context, deps *Deps, b *base, o *input) error {
	bp.calls = append(bp.calls, "on_invocation")
	if bp.failAt == "on_invocation" {
		return errInjected
	}
	return nil
}

func (bp *widgetBlueprint) OnFirstSight(ctx context.Context, deps *Deps, b *base, t *widget) error {
	bp.calls = append(bp.calls, "on_first_sight")
	bp.firstSights++
	if bp.failAt == "on_first_sight" {
		return errInjected
	}
	return nil
}

func (bp *widgetBlueprint) OnComplete(ctx context.Context, deps *Deps, t *widget) error {
	bp.calls = append(bp.calls, "on_complete")
	if bp.failAt == "on_complete" {
		return errInjected
	}
	return nil
}

// TestBuildFreshObject 全新身份的完整流程和阶段顺序
func TestBuildFreshObject(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	deps := &Deps{Cache: cache}
	bp := &widgetBlueprint{}

	w, err := Build(ctx, deps, bp, &base{ID: 1, Name: "alpha"}, input{Key: "k1", Payload: "p1"})
	require.NoError(t, err)

	assert.Equal(t, "alpha", w.BaseName)
	assert.Equal(t, "r:k1|p1", w.Identity)
	assert.Equal(t,
		[]string{"on_invocation", "intermediate", "generate", "instantiate", "on_first_sight", "on_complete"},
		bp.calls)

	// 中间值落入 r_widget_k1, 身份串进了 pks_widget
	assert.Contains(t, cache.values, "r_widget_k1")
	assert.Contains(t, cache.sets["pks_widget"], "r:k1|p1")
}

// TestBuildUsesCachedIntermediate 同一后缀的第二次构建不再计算中间值
func TestBuildUsesCachedIntermediate(t *testing.T) {
	ctx := context.Background()
	deps := &Deps{Cache: newFakeCache()}
	bp := &widgetBlueprint{}

	_, err := Build(ctx, deps, bp, &base{Name: "alpha"}, input{Key: "k1", Payload: "p1"})
	require.NoError(t, err)
	_, err = Build(ctx, deps, bp, &base{Name: "alpha"}, input{Key: "k1", Payload: "p2"})
	require.NoError(t, err)

	assert.Equal(t, 1, bp.intermediateCalls)
}

// TestBuildFirstSightOnlyOnce 同一去重身份的两次构建只触发一次OnFirstSight
func TestBuildFirstSightOnlyOnce(t *testing.T) {
	ctx := context.Background()
	deps := &Deps{Cache: newFakeCache()}
	bp := &widgetBlueprint{}

	b := &base{Name: "alpha"}
	o := input{Key: "k1", Payload: "p1"}
	_, err := Build(ctx, deps, bp, b, o)
	require.NoError(t, err)
	_, err = Build(ctx, deps, bp, b, o)
	require.NoError(t, err)

	assert.Equal(t, 1, bp.firstSights)
}

// TestBuildDedupSetEviction 集合基数超限后整体清空, 新成员成为唯一成员
func TestBuildDedupSetEviction(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	deps := &Deps{Cache: cache}
	bp := &widgetBlueprint{maxMembers: 3}

	b := &base{Name: "alpha"}
	for _, key := range []string{"k1", "k2", "k3", "k4"} {
		_, err := Build(ctx, deps, bp, b, input{Key: key, Payload: "p"})
		require.NoError(t, err)
	}
	// 4个成员, 超过上限3
	require.Len(t, cache.sets["pks_widget"], 4)

	_, err := Build(ctx, deps, bp, b, input{Key: "k5", Payload: "p"})
	require.NoError(t, err)

	// 清空后只剩下新成员
	assert.Len(t, cache.sets["pks_widget"], 1)
	assert.Contains(t, cache.sets["pks_widget"], "r:k5|p")
}

// TestBuildInvocationFailureAbortsEarly OnInvocation失败时还没有碰过缓存
func TestBuildInvocationFailureAbortsEarly(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	deps := &Deps{Cache: cache}
	bp := &widgetBlueprint{failAt: "on_invocation"}

	_, err := Build(ctx, deps, bp, &base{}, input{Key: "k1"})
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, 0, cache.ops)
	assert.Equal(t, []string{"on_invocation"}, bp.calls)
}

// TestBuildGenerateFailureKeepsCache 后续步骤失败不回滚已写入的中间值缓存
func TestBuildGenerateFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	deps := &Deps{Cache: cache}
	bp := &widgetBlueprint{failAt: "generate"}

	_, err := Build(ctx, deps, bp, &base{}, input{Key: "k1", Payload: "p"})
	assert.ErrorIs(t, err, errInjected)

	// 中间值留在缓存里(尽力而为, 下次读取自愈), 但去重和收尾钩子都没执行
	assert.Contains(t, cache.values, "r_widget_k1")
	assert.Equal(t, 0, bp.firstSights)
	assert.NotContains(t, bp.calls, "on_complete")
}

// TestBuildFirstSightFailureAborts OnFirstSight失败时身份串不会进集合
func TestBuildFirstSightFailureAborts(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	deps := &Deps{Cache: cache}
	bp := &widgetBlueprint{failAt: "on_first_sight"}

	_, err := Build(ctx, deps, bp, &base{}, input{Key: "k1", Payload: "p"})
	assert.ErrorIs(t, err, errInjected)
	assert.Empty(t, cache.sets["pks_widget"])
}

// TestBuildDefaultsProvideNoopHooks 只实现必需方法的蓝图也能正常构建
func TestBuildDefaultsProvideNoopHooks(t *testing.T) {
	ctx := context.Background()
	deps := &Deps{Cache: newFakeCache()}
	bp := &minimalBlueprint{}

	got, err := Build(ctx, deps, bp, &base{Name: "beta"}, input{Key: "k", Payload: "p"})
	require.NoError(t, err)
	assert.Equal(t, "beta", got.BaseName)
}

// minimalBlueprint 只实现必需方法, 其余全部来自Defaults
type minimalBlueprint struct {
	Defaults[base, input, widget]
}

func (bp *minimalBlueprint) Prefix() string                  { return "minimal" }
func (bp *minimalBlueprint) Suffix(b *base, o *input) string { return o.Key }

func (bp *minimalBlueprint) Intermediate(ctx context.Context, deps *Deps, b *base, o *input) (string, error) {
	return "r", nil
}

func (bp *minimalBlueprint) Generate(ctx context.Context, deps *Deps, b *base, o input, r string) (string, error) {
	return r + "|" + o.Payload, nil
}

func (bp *minimalBlueprint) Instantiate(b *base, g string) (widget, error) {
	return widget{Identity: g, BaseName: b.Name}, nil
}

func (bp *minimalBlueprint) DedupMember(t *widget) string { return t.Identity }
