package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"borgcache-go/internal/borg"
	"borgcache-go/internal/cache"
	"borgcache-go/internal/catalog"
	"borgcache-go/internal/config"
	"borgcache-go/internal/logger"
	"borgcache-go/internal/search"
	"borgcache-go/internal/storage"
)

// CatalogHandler 处理目录域的全部HTTP请求: 自动补全、全文检索、
// 主数据点查和观测上报。
type CatalogHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	deps    *borg.Deps
}

// NewCatalogHandler 创建一个新的 CatalogHandler 实例。
func NewCatalogHandler(cfg *config.Config, storage *storage.Storage) *CatalogHandler {
	return &CatalogHandler{
		cfg:     cfg,
		storage: storage,
		deps:    &borg.Deps{Cache: storage.Redis, DB: storage.Postgres},
	}
}

// HandleAutocomplete 处理自动补全请求。
// GET /api/v1/autocomp?data_type=animal&q=fo
func (h *CatalogHandler) HandleAutocomplete(ctx context.Context, c *app.RequestContext) {
	phrase := c.Query("q")
	if phrase == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "q 不能为空"})
		return
	}

	switch c.Query("data_type") {
	case "animal":
		hits, err := cache.Lookup[int32](ctx, h.storage.Redis, h.storage.Postgres, catalog.AnimalCompleter{}, phrase)
		h.writeHits(c, hits, err)
	case "food":
		hits, err := cache.Lookup[string](ctx, h.storage.Redis, h.storage.Postgres, catalog.FoodCompleter{}, phrase)
		h.writeHits(c, hits, err)
	default:
		c.JSON(consts.StatusBadRequest, utils.H{"error": "data_type 必须是 animal 或 food"})
	}
}

func (h *CatalogHandler) writeHits(c *app.RequestContext, hits any, err error) {
	if err != nil {
		logger.Error().Err(err).Msg("自动补全查询失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, utils.H{"hits": hits})
}

// HandleFullTextSearch 处理全文检索请求。
// GET /api/v1/search?data_type=animal&q=nocturnal+hunter
func (h *CatalogHandler) HandleFullTextSearch(ctx context.Context, c *app.RequestContext) {
	phrase := c.Query("q")
	if phrase == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "q 不能为空"})
		return
	}

	switch c.Query("data_type") {
	case "animal":
		rows, err := search.Query[catalog.Animal](ctx, h.storage.Postgres, phrase)
		h.writeRows(c, rows, err)
	case "food":
		rows, err := search.Query[catalog.Food](ctx, h.storage.Postgres, phrase)
		h.writeRows(c, rows, err)
	default:
		c.JSON(consts.StatusBadRequest, utils.H{"error": "data_type 必须是 animal 或 food"})
	}
}

func (h *CatalogHandler) writeRows(c *app.RequestContext, rows any, err error) {
	if err != nil {
		logger.Error().Err(err).Msg("全文检索失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, utils.H{"results": rows})
}

// HandleGetAnimal 按主键取动物。
// GET /api/v1/animals/:id
func (h *CatalogHandler) HandleGetAnimal(ctx context.Context, c *app.RequestContext) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "id 必须是整数"})
		return
	}

	animal, err := catalog.AnimalByID(ctx, h.storage.Redis, h.storage.Postgres, int32(id))
	if err != nil {
		if storage.IsMissingRow(err) {
			c.JSON(consts.StatusNotFound, utils.H{"error": "动物不存在"})
			return
		}
		logger.Error().Err(err).Int64("id", id).Msg("查询动物失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, animal)
}

// sightingRequest POST /api/v1/sightings 的请求体
type sightingRequest struct {
	AnimalID  int32     `json:"animal_id"`
	ReportID  string    `json:"report_id"`
	Habitat   string    `json:"habitat"`
	Notes     string    `json:"notes"`
	SightedAt time.Time `json:"sighted_at"`
}

// HandleCreateSighting 递交一次观测上报并返回构建出的观测记录。
// POST /api/v1/sightings
func (h *CatalogHandler) HandleCreateSighting(ctx context.Context, c *app.RequestContext) {
	var req sightingRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是合法的JSON"})
		return
	}
	if req.Habitat == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "habitat 不能为空"})
		return
	}

	animal, err := catalog.AnimalByID(ctx, h.storage.Redis, h.storage.Postgres, req.AnimalID)
	if err != nil {
		if storage.IsMissingRow(err) {
			c.JSON(consts.StatusNotFound, utils.H{"error": "animal_id 对应的动物不存在"})
			return
		}
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}

	sighting, err := borg.Build(ctx, h.deps, catalog.SightingBlueprint{}, animal, catalog.Report{
		ReportID:  req.ReportID,
		Habitat:   req.Habitat,
		Notes:     req.Notes,
		SightedAt: req.SightedAt,
	})
	if err != nil {
		logger.Error().Err(err).Int32("animal_id", req.AnimalID).Msg("构建观测记录失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, sighting)
}
