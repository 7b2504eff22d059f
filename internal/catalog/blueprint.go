package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"borgcache-go/internal/borg"
	"borgcache-go/internal/logger"
)

// Report 外部递交的一次观测上报。ReportID可以为空, 生成阶段会补一个。
type Report struct {
	ReportID  string    `json:"report_id"`
	Habitat   string    `json:"habitat"`
	Notes     string    `json:"notes"`
	SightedAt time.Time `json:"sighted_at"`
}

// sightingDraft 生成阶段的中间产物: 上报内容加上已解析的栖息地键
type sightingDraft struct {
	ReportID  string
	HabitatID int32
	Notes     string
	SightedAt time.Time
}

const (
	selectHabitatByName = `SELECT id FROM habitats WHERE name = ?`
	insertHabitat       = `INSERT INTO habitats (name) VALUES (?) RETURNING id`
	insertSighting      = `INSERT INTO sightings (report_id, animal_id, habitat_id, notes, sighted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (report_id) DO NOTHING`
)

// SightingBlueprint 观测记录的构建蓝图:
// 借用动物主数据、消费一份上报, 产出一条Sighting。
// 中间值是栖息地主键——同一栖息地的上报共享这次解析, 缓存由协调器管。
// 首见的report_id落库, 重复上报只重建内存对象不再写库。
type SightingBlueprint struct {
	borg.Defaults[Animal, Report, Sighting]
}

func (SightingBlueprint) Prefix() string {
	return "sighting"
}

// Suffix 栖息地名决定中间值, 小写化避免同名不同写法打散缓存
func (SightingBlueprint) Suffix(b *Animal, o *Report) string {
	return strings.ToLower(o.Habitat)
}

func (SightingBlueprint) Intermediate(ctx context.Context, deps *borg.Deps, b *Animal, o *Report) (int32, error) {
	return borg.ResolveStringID[int32](ctx, deps.DB, o.Habitat, selectHabitatByName, insertHabitat)
}

func (SightingBlueprint) Generate(ctx context.Context, deps *borg.Deps, b *Animal, o Report, habitatID int32) (sightingDraft, error) {
	if o.ReportID == "" {
		o.ReportID = uuid.NewString()
	}
	if o.SightedAt.IsZero() {
		o.SightedAt = time.Now().UTC()
	}
	return sightingDraft{
		ReportID:  o.ReportID,
		HabitatID: habitatID,
		Notes:     o.Notes,
		SightedAt: o.SightedAt,
	}, nil
}

func (SightingBlueprint) Instantiate(b *Animal, g sightingDraft) (Sighting, error) {
	return Sighting{
		ReportID:   g.ReportID,
		AnimalID:   b.ID,
		AnimalName: b.Name,
		HabitatID:  g.HabitatID,
		Notes:      g.Notes,
		SightedAt:  g.SightedAt,
	}, nil
}

func (SightingBlueprint) DedupMember(t *Sighting) string {
	return t.ReportID
}

// OnFirstSight 首次见到这个report_id时落库。
// 去重检查和落库之间没有原子性, 靠ON CONFLICT兜住并发下的重复插入。
func (SightingBlueprint) OnFirstSight(ctx context.Context, deps *borg.Deps, b *Animal, t *Sighting) error {
	return deps.DB.Exec(ctx, insertSighting,
		t.ReportID, t.AnimalID, t.HabitatID, t.Notes, t.SightedAt)
}

func (SightingBlueprint) OnComplete(ctx context.Context, deps *borg.Deps, t *Sighting) error {
	logger.Debug().
		Str("report_id", t.ReportID).
		Int32("animal_id", t.AnimalID).
		Int32("habitat_id", t.HabitatID).
		Msg("观测记录构建完成")
	return nil
}
