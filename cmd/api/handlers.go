package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/cms"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/database"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/embed"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/timeline"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type recordRequest struct {
	Kind models.RecordKind `json:"kind"`
	Name string            `json:"name"`
	Data json.RawMessage   `json:"data"`
}

type patchRequest struct {
	StartTime *float64                   `json:"startTime"`
	Set       map[string]json.RawMessage `json:"set"`
	Unset     []string                   `json:"unset"`
}

type mutedRequest struct {
	Muted *bool `json:"muted" binding:"required"`
}

// respondError maps engine and storage errors onto HTTP statuses
func (api *API) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, database.ErrRecordNotFound), errors.Is(err, timeline.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, timeline.ErrInvalidRegion),
		errors.Is(err, cms.ErrUnknownKind),
		errors.Is(err, cms.ErrInvalidRecord),
		errors.Is(err, embed.ErrUnsupportedKind):
		status = http.StatusBadRequest
	case errors.Is(err, cms.ErrBusy):
		status = http.StatusConflict
	default:
		api.logger.ErrorWithErr("request failed", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func queryFloat(c *gin.Context, key string) (float64, bool) {
	raw, ok := c.GetQuery(key)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": key + " is required"})
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return v, true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// Create record endpoint
func (api *API) createRecord(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := api.records.Create(c.Request.Context(), &models.Record{
		Kind: req.Kind,
		Name: req.Name,
		Data: req.Data,
	})
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// Get record endpoint
func (api *API) getRecord(c *gin.Context) {
	record, err := api.records.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// List records endpoint
func (api *API) listRecords(c *gin.Context) {
	limit := queryInt(c, "limit", defaultPageSize)
	if limit == 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(c, "offset", 0)

	records, err := api.records.List(c.Request.Context(), models.RecordKind(c.Query("kind")), limit, offset)
	if err != nil {
		api.respondError(c, err)
		return
	}
	if records == nil {
		records = []*models.Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"limit":   limit,
		"offset":  offset,
	})
}

// Update record endpoint
func (api *API) updateRecord(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := api.records.Update(c.Request.Context(), &models.Record{
		ID:   c.Param("id"),
		Name: req.Name,
		Data: req.Data,
	})
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// Delete record endpoint
func (api *API) deleteRecord(c *gin.Context) {
	recordID := c.Param("id")
	if err := api.records.Delete(c.Request.Context(), recordID); err != nil {
		api.respondError(c, err)
		return
	}

	// the record is gone either way; stale artefacts are only logged
	if err := api.objects.BatchDelete(c.Request.Context(), embed.ArtefactKeys(recordID)); err != nil {
		api.logger.WithRecordID(recordID).WarnWithErr("failed to delete published artefacts", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Record deleted successfully", "record_id": recordID})
}

// List regions endpoint
func (api *API) listRegions(c *gin.Context) {
	regions, err := api.records.Regions(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	// ids are listed separately since transient ids are not serialized
	ids := make([]models.RegionID, 0, len(regions))
	for _, r := range regions {
		ids = append(ids, r.ID)
	}

	c.JSON(http.StatusOK, gin.H{"regions": regions, "ids": ids})
}

// Insert region endpoint
func (api *API) insertRegion(c *gin.Context) {
	var region models.Region
	if err := c.ShouldBindJSON(&region); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inserted, err := api.records.InsertRegion(c.Request.Context(), c.Param("id"), region)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, inserted)
}

// Patch region endpoint
func (api *API) patchRegion(c *gin.Context) {
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patched, err := api.records.PatchRegion(c.Request.Context(), c.Param("id"), models.RegionID(c.Param("regionId")), timeline.Patch{
		StartTime: req.StartTime,
		Set:       req.Set,
		Unset:     req.Unset,
	})
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, patched)
}

// Remove region endpoint
func (api *API) removeRegion(c *gin.Context) {
	regionID := c.Param("regionId")
	if err := api.records.RemoveRegion(c.Request.Context(), c.Param("id"), models.RegionID(regionID)); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Region removed successfully", "region_id": regionID})
}

// Resolve active region endpoint
func (api *API) resolve(c *gin.Context) {
	t, ok := queryFloat(c, "t")
	if !ok {
		return
	}

	res, err := api.records.Resolve(c.Request.Context(), c.Param("id"), t)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Map progress endpoint
func (api *API) mapProgress(c *gin.Context) {
	progress, ok := queryFloat(c, "progress")
	if !ok {
		return
	}

	target, err := api.records.Map(c.Request.Context(), c.Param("id"), progress)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress, "time": target})
}

// Get embed payload endpoint
func (api *API) getEmbed(c *gin.Context) {
	payload, err := api.records.Embed(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payload)
}

// Get published embed URL endpoint
func (api *API) getEmbedURL(c *gin.Context) {
	recordID := c.Param("id")
	if _, err := api.records.Get(c.Request.Context(), recordID); err != nil {
		api.respondError(c, err)
		return
	}

	url, err := api.objects.GetURL(c.Request.Context(), embed.EmbedKey(recordID))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"record_id": recordID, "url": url})
}

// Get muted flag endpoint
func (api *API) getMuted(c *gin.Context) {
	sessionID := c.Param("id")
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"muted":      api.records.Muted(c.Request.Context(), sessionID),
	})
}

// Set muted flag endpoint
func (api *API) setMuted(c *gin.Context) {
	var req mutedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := c.Param("id")
	if err := api.records.SetMuted(c.Request.Context(), sessionID, *req.Muted); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "muted": *req.Muted})
}
