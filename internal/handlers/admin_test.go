package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"bandroom/internal/lookup"
	"bandroom/internal/models"
	"bandroom/internal/testutil"
)

func newAdminHelper(t *testing.T, repo *testutil.MockCacheEntryRepository) *testutil.HTTPTestHelper {
	svc := lookup.NewLookupService(lookup.NewResultCache(repo, nil), nil, nil, nil, nil, nil)

	helper := testutil.NewHTTPTestHelper(t)
	RegisterRoutes(helper.Router(), NewSongHandler(svc), NewAdminHandler(svc))
	return helper
}

func TestSweepEndpoint(t *testing.T) {
	repo := new(testutil.MockCacheEntryRepository)
	repo.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(3), nil)
	helper := newAdminHelper(t, repo)

	recorder := helper.PostJSON("/api/v1/admin/cache/sweep", nil)

	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	helper.AssertJSONResponse(recorder, http.StatusOK, &resp)
	assert.Equal(t, int64(3), resp.Deleted)
}

func TestSweepEndpoint_BadMaxAge(t *testing.T) {
	helper := newAdminHelper(t, new(testutil.MockCacheEntryRepository))

	recorder := helper.PostJSON("/api/v1/admin/cache/sweep?max_age_hours=soon", nil)
	helper.AssertErrorResponse(recorder, http.StatusBadRequest, "max_age_hours")
}

func TestSweepEndpoint_StorageErrorSurfaces(t *testing.T) {
	repo := new(testutil.MockCacheEntryRepository)
	repo.On("DeleteOlderThan", mock.Anything, mock.Anything).
		Return(int64(0), errors.New("connection reset"))
	helper := newAdminHelper(t, repo)

	recorder := helper.PostJSON("/api/v1/admin/cache/sweep", nil)
	helper.AssertErrorResponse(recorder, http.StatusBadGateway, "Cache sweep failed")
}

func TestStatsEndpoint(t *testing.T) {
	repo := new(testutil.MockCacheEntryRepository)
	repo.On("Count", mock.Anything).Return(int64(12), nil)
	repo.On("CountByKind", mock.Anything).Return(map[models.OperationKind]int64{
		models.KindMetadataLookup: 9,
		models.KindAIFallback:     3,
	}, nil)
	repo.On("SampleEntrySize", mock.Anything).Return(int64(2048), nil)
	helper := newAdminHelper(t, repo)

	recorder := helper.GetJSON("/api/v1/admin/cache/stats")

	var stats lookup.CacheStats
	helper.AssertJSONResponse(recorder, http.StatusOK, &stats)
	assert.Equal(t, int64(12), stats.TotalEntries)
	assert.Equal(t, int64(9), stats.CountsByKind[models.KindMetadataLookup])
	assert.Greater(t, stats.EstimatedSizeMB, 0.0)
}

func TestStatsEndpoint_StorageErrorSurfaces(t *testing.T) {
	repo := new(testutil.MockCacheEntryRepository)
	repo.On("Count", mock.Anything).Return(int64(0), errors.New("connection reset"))
	helper := newAdminHelper(t, repo)

	recorder := helper.GetJSON("/api/v1/admin/cache/stats")
	helper.AssertErrorResponse(recorder, http.StatusBadGateway, "Failed to collect cache statistics")
}