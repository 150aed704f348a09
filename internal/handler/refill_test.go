package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-slot-reservation/internal/clock"
	"github.com/iliyamo/studio-slot-reservation/internal/model"
	"github.com/iliyamo/studio-slot-reservation/internal/refill"
)

// brokenRefillStore yields one due subscription whose top-up always
// fails, so every cycle reports exactly one failure.
type brokenRefillStore struct{}

func (s *brokenRefillStore) ActiveSubscriptions(ctx context.Context) ([]model.RefillSubscription, error) {
	return []model.RefillSubscription{{
		ID:             1,
		UserID:         7,
		Category:       "pilates",
		ActivationDate: clock.MustDate("2026-01-05"),
		WeeklyTarget:   3,
		Active:         true,
	}}, nil
}

func (s *brokenRefillStore) SubscriptionByUser(ctx context.Context, userID uint64) (*model.RefillSubscription, error) {
	return nil, errors.New("unused")
}

func (s *brokenRefillStore) History(ctx context.Context, userID uint64, limit int) ([]model.RefillRun, error) {
	return nil, nil
}

func (s *brokenRefillStore) InTx(ctx context.Context, fn func(tx refill.Tx) error) error {
	return fn(brokenRefillTx{})
}

type brokenRefillTx struct{}

func (brokenRefillTx) RunExists(ctx context.Context, userID uint64, weekStart time.Time) (bool, error) {
	return false, nil
}

func (brokenRefillTx) TopUp(ctx context.Context, userID uint64, category string, target uint32) (uint32, error) {
	return 0, errors.New("ledger row gone: entry 10 missing for user 7")
}

func (brokenRefillTx) RecordRun(ctx context.Context, userID uint64, weekStart time.Time, credited uint32) error {
	return nil
}

func TestRunReportsFailureCountWithoutDetails(t *testing.T) {
	clk := clock.Fixed(clock.MustDate("2026-03-11").Add(6 * time.Hour))
	h := NewRefillHandler(refill.NewScheduler(&brokenRefillStore{}, clk), clk)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/refills/run", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	require.NoError(t, h.Run(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["processed"])
	assert.EqualValues(t, 1, body["failed"])
	// Internal error strings never reach the caller.
	assert.NotContains(t, body, "errors")
	assert.NotContains(t, rec.Body.String(), "ledger row gone")
}
