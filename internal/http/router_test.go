package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/clients/predictor"
	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
	httpH "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/http/handlers"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/modules/allocation"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/services"
)

type mockService struct{ mock.Mock }

func (m *mockService) RunBatchAllocation(ctx context.Context, batchID, trigger string) (allocation.BatchResult, error) {
	args := m.Called(ctx, batchID, trigger)
	return args.Get(0).(allocation.BatchResult), args.Error(1)
}

func (m *mockService) HandleDropout(ctx context.Context, in services.DropoutInput) (allocation.ReallocationResult, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(allocation.ReallocationResult), args.Error(1)
}

func (m *mockService) HandleSlotFreed(ctx context.Context, id uuid.UUID, reason string, initiator placement.Initiator) (allocation.ReallocationResult, error) {
	args := m.Called(ctx, id, reason, initiator)
	return args.Get(0).(allocation.ReallocationResult), args.Error(1)
}

func (m *mockService) RejectAllocation(ctx context.Context, in services.DropoutInput) (allocation.ReallocationResult, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(allocation.ReallocationResult), args.Error(1)
}

func (m *mockService) AcceptAllocation(ctx context.Context, id uuid.UUID) (*placement.Allocation, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*placement.Allocation)
	return a, args.Error(1)
}

func (m *mockService) CalculateScore(ctx context.Context, candidateID, positionID uuid.UUID) (allocation.ScoreResult, error) {
	args := m.Called(ctx, candidateID, positionID)
	return args.Get(0).(allocation.ScoreResult), args.Error(1)
}

func (m *mockService) GetBatchResults(ctx context.Context, batchID string) ([]*placement.Allocation, error) {
	args := m.Called(ctx, batchID)
	out, _ := args.Get(0).([]*placement.Allocation)
	return out, args.Error(1)
}

func (m *mockService) MLStatus(ctx context.Context) predictor.Status {
	return m.Called(ctx).Get(0).(predictor.Status)
}

func newTestRouter(svc services.AllocationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{
		AllocationHandler: httpH.NewAllocationHandler(svc),
		ScoreHandler:      httpH.NewScoreHandler(svc),
		HealthHandler:     httpH.NewHealthHandler(),
	})
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code, env.Error.Message
}

func TestHealthcheck(t *testing.T) {
	rec := do(t, newTestRouter(new(mockService)), http.MethodGet, "/healthcheck", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRunBatch(t *testing.T) {
	svc := new(mockService)
	svc.On("RunBatchAllocation", mock.Anything, "batch-7", services.TriggerAPI).
		Return(allocation.BatchResult{BatchID: "batch-7", CandidatesProcessed: 3, MatchesGenerated: 2, WaitlistedCount: 1}, nil).Once()

	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/allocations/run", map[string]string{"batchId": " batch-7 "})
	require.Equal(t, http.StatusOK, rec.Code)

	var got allocation.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "batch-7", got.BatchID)
	assert.Equal(t, 2, got.MatchesGenerated)
	svc.AssertExpectations(t)
}

func TestRunBatchWithoutBody(t *testing.T) {
	svc := new(mockService)
	svc.On("RunBatchAllocation", mock.Anything, "", services.TriggerAPI).
		Return(allocation.BatchResult{BatchID: "MATCH-1"}, nil).Once()

	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/allocations/run", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestRunBatchCapacityRaceIsUnavailable(t *testing.T) {
	svc := new(mockService)
	svc.On("RunBatchAllocation", mock.Anything, mock.Anything, mock.Anything).
		Return(allocation.BatchResult{}, domainagg.NewError(domainagg.CodeRetryable, "Engine.RunBatch", "capacity race", nil)).Once()

	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/allocations/run", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, string(domainagg.CodeRetryable), code)
}

func TestInternalErrorsDoNotLeak(t *testing.T) {
	svc := new(mockService)
	svc.On("GetBatchResults", mock.Anything, "b1").
		Return(nil, domainagg.NewError(domainagg.CodeInternal, "Placement.ListBatch", "pq: password authentication failed", nil)).Once()

	rec := do(t, newTestRouter(svc), http.MethodGet, "/api/allocations/batches/b1", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	_, msg := decodeError(t, rec)
	assert.Equal(t, "internal error", msg)
}

func TestGetBatch(t *testing.T) {
	svc := new(mockService)
	a := &placement.Allocation{ID: uuid.New(), BatchID: "b2", Status: placement.AllocationProposed}
	svc.On("GetBatchResults", mock.Anything, "b2").Return([]*placement.Allocation{a}, nil).Once()

	rec := do(t, newTestRouter(svc), http.MethodGet, "/api/allocations/batches/b2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		BatchID     string                  `json:"batch_id"`
		Allocations []*placement.Allocation `json:"allocations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Allocations, 1)
	assert.Equal(t, a.ID, got.Allocations[0].ID)
}

func TestDropout(t *testing.T) {
	id := uuid.New()
	newID := uuid.New()
	svc := new(mockService)
	svc.On("HandleDropout", mock.Anything, services.DropoutInput{AllocationID: id, Reason: "relocating", InitiatedBy: "STUDENT"}).
		Return(allocation.ReallocationResult{Success: true, Action: allocation.ActionReplaced, OldAllocationID: id, NewAllocationID: &newID}, nil).Once()

	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/allocations/dropout", map[string]string{
		"allocationId": id.String(),
		"reason":       "relocating",
		"initiatedBy":  "STUDENT",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var got allocation.ReallocationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, allocation.ActionReplaced, got.Action)
	require.NotNil(t, got.NewAllocationID)
	assert.Equal(t, newID, *got.NewAllocationID)
}

func TestDropoutErrors(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", domainagg.NewError(domainagg.CodeNotFound, "op", "missing", nil), http.StatusNotFound},
		{"already released", domainagg.NewError(domainagg.CodeInvariantViolation, "op", "already DROPPED", nil), http.StatusConflict},
		{"bad initiator", domainagg.NewError(domainagg.CodeValidation, "op", "invalid initiatedBy", nil), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mockService)
			svc.On("HandleDropout", mock.Anything, mock.Anything).Return(allocation.ReallocationResult{}, tc.err).Once()
			rec := do(t, newTestRouter(svc), http.MethodPost, "/api/allocations/dropout", map[string]string{"allocationId": id.String()})
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestDropoutRejectsMalformedBody(t *testing.T) {
	svc := new(mockService)
	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/allocations/dropout", map[string]string{"allocationId": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "HandleDropout", mock.Anything, mock.Anything)
}

func TestAcceptAndReject(t *testing.T) {
	id := uuid.New()
	svc := new(mockService)
	svc.On("AcceptAllocation", mock.Anything, id).
		Return(&placement.Allocation{ID: id, Status: placement.AllocationAccepted}, nil).Once()
	svc.On("RejectAllocation", mock.Anything, services.DropoutInput{AllocationID: id, Reason: "position withdrawn", InitiatedBy: "ORG"}).
		Return(allocation.ReallocationResult{Success: true, Action: allocation.ActionOpenSlot, OldAllocationID: id}, nil).Once()
	r := newTestRouter(svc)

	rec := do(t, r, http.MethodPost, fmt.Sprintf("/api/allocations/%s/accept", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(placement.AllocationAccepted))

	rec = do(t, r, http.MethodPost, fmt.Sprintf("/api/allocations/%s/reject", id), map[string]string{
		"reason":      "position withdrawn",
		"initiatedBy": "ORG",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(allocation.ActionOpenSlot))

	rec = do(t, r, http.MethodPost, "/api/allocations/not-a-uuid/accept", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

func TestScoreAndMLStatus(t *testing.T) {
	cid, pid := uuid.New(), uuid.New()
	svc := new(mockService)
	svc.On("CalculateScore", mock.Anything, cid, pid).
		Return(allocation.ScoreResult{TotalScore: 0.725, Explanation: "strong skill match"}, nil).Once()
	svc.On("MLStatus", mock.Anything).Return(predictor.Status{Configured: true, Available: false}).Once()
	r := newTestRouter(svc)

	rec := do(t, r, http.MethodPost, "/api/score", map[string]string{"candidateId": cid.String(), "positionId": pid.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "strong skill match")

	rec = do(t, r, http.MethodPost, "/api/score", map[string]string{"candidateId": cid.String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/ml/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st predictor.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Configured)
	assert.False(t, st.Available)
	svc.AssertExpectations(t)
}
