package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/itam/backend/internal/application/event"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/interfaces/http/dto"
	"github.com/itam/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOutboxAdmin struct {
	mock.Mock
}

func (m *MockOutboxAdmin) GetStats(ctx context.Context) (*event.OutboxStatsDTO, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxStatsDTO), args.Error(1)
}

func (m *MockOutboxAdmin) GetDeadLetterEntries(ctx context.Context, filter event.OutboxFilter) (*event.OutboxListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxListResult), args.Error(1)
}

func (m *MockOutboxAdmin) GetEntry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxEntryDTO), args.Error(1)
}

func (m *MockOutboxAdmin) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxEntryDTO), args.Error(1)
}

func (m *MockOutboxAdmin) RetryAllDeadEntries(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

const outboxPath = "/api/v1/system/outbox"

func newOutboxRouter(admin OutboxAdmin) *gin.Engine {
	h := NewOutboxHandler(admin)
	router := gin.New()
	router.Use(middleware.RequestID())
	g := router.Group(outboxPath)
	g.GET("/stats", h.GetStats)
	g.GET("/dead", h.GetDeadLetterEntries)
	g.GET("/:id", h.GetEntry)
	g.POST("/dead/:id/retry", h.RetryDeadEntry)
	g.POST("/dead/retry-all", h.RetryAllDeadEntries)
	return router
}

func serveOutbox(router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func deadEntry() event.OutboxEntryDTO {
	return event.OutboxEntryDTO{
		ID:         uuid.New(),
		EventID:    uuid.New(),
		EventType:  "AssetsTransitioned",
		Status:     "DEAD",
		RetryCount: 5,
		MaxRetries: 5,
		LastError:  "disk full",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func TestOutboxHandler_GetStats(t *testing.T) {
	admin := new(MockOutboxAdmin)
	admin.On("GetStats", mock.Anything).Return(&event.OutboxStatsDTO{Pending: 2, Dead: 1, Total: 3}, nil)

	w := serveOutbox(newOutboxRouter(admin), http.MethodGet, outboxPath+"/stats")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data event.OutboxStatsDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, event.OutboxStatsDTO{Pending: 2, Dead: 1, Total: 3}, resp.Data)
}

func TestOutboxHandler_GetDeadLetterEntries(t *testing.T) {
	t.Run("returns a page with meta", func(t *testing.T) {
		admin := new(MockOutboxAdmin)
		entry := deadEntry()
		admin.On("GetDeadLetterEntries", mock.Anything, event.OutboxFilter{Page: 2, PageSize: 10}).
			Return(&event.OutboxListResult{Entries: []event.OutboxEntryDTO{entry}, Total: 11, Page: 2, PageSize: 10, TotalPages: 2}, nil)

		w := serveOutbox(newOutboxRouter(admin), http.MethodGet, outboxPath+"/dead?page=2&page_size=10")

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data []event.OutboxEntryDTO `json:"data"`
			Meta dto.Meta               `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, entry.ID, resp.Data[0].ID)
		assert.Equal(t, dto.Meta{Total: 11, Page: 2, PageSize: 10, TotalPages: 2}, resp.Meta)
	})

	t.Run("rejects a page size over the limit", func(t *testing.T) {
		admin := new(MockOutboxAdmin)

		w := serveOutbox(newOutboxRouter(admin), http.MethodGet, outboxPath+"/dead?page_size=500")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		admin.AssertNotCalled(t, "GetDeadLetterEntries", mock.Anything, mock.Anything)
	})
}

func TestOutboxHandler_GetEntry(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		admin := new(MockOutboxAdmin)
		entry := deadEntry()
		entry.Payload = json.RawMessage(`{"run_id":"r1"}`)
		admin.On("GetEntry", mock.Anything, entry.ID).Return(&entry, nil)

		w := serveOutbox(newOutboxRouter(admin), http.MethodGet, outboxPath+"/"+entry.ID.String())

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"payload":{"run_id":"r1"}`)
	})

	t.Run("not found", func(t *testing.T) {
		admin := new(MockOutboxAdmin)
		id := uuid.New()
		admin.On("GetEntry", mock.Anything, id).Return(nil, shared.NewDomainError("NOT_FOUND", "Outbox entry not found"))

		w := serveOutbox(newOutboxRouter(admin), http.MethodGet, outboxPath+"/"+id.String())

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := serveOutbox(newOutboxRouter(new(MockOutboxAdmin)), http.MethodGet, outboxPath+"/not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOutboxHandler_RetryDeadEntry(t *testing.T) {
	t.Run("requeues", func(t *testing.T) {
		admin := new(MockOutboxAdmin)
		entry := deadEntry()
		entry.Status = "PENDING"
		admin.On("RetryDeadEntry", mock.Anything, entry.ID).Return(&entry, nil)

		w := serveOutbox(newOutboxRouter(admin), http.MethodPost, outboxPath+"/dead/"+entry.ID.String()+"/retry")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"PENDING"`)
	})

	t.Run("entry is not dead", func(t *testing.T) {
		admin := new(MockOutboxAdmin)
		id := uuid.New()
		admin.On("RetryDeadEntry", mock.Anything, id).
			Return(nil, shared.NewDomainError("INVALID_STATE", "Only dead letter entries can be retried"))

		w := serveOutbox(newOutboxRouter(admin), http.MethodPost, outboxPath+"/dead/"+id.String()+"/retry")

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestOutboxHandler_RetryAllDeadEntries(t *testing.T) {
	admin := new(MockOutboxAdmin)
	admin.On("RetryAllDeadEntries", mock.Anything).Return(int64(4), nil)

	w := serveOutbox(newOutboxRouter(admin), http.MethodPost, outboxPath+"/dead/retry-all")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data RetryAllResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(4), resp.Data.Count)
}
