package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/pkg/research/stage"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observations(t *testing.T) {
	m := New()

	m.ObserveOperation(stage.OpExecuteMultiSearch, stage.OutcomeCompleted, 200*time.Millisecond)
	m.ObserveOperation(stage.OpExecuteMultiSearch, stage.OutcomeCompleted, 300*time.Millisecond)
	m.ObserveOperation(stage.OpRequestApproval, stage.OutcomeSuspended, time.Millisecond)
	m.ObserveTurn("research", time.Second, nil)
	m.ObserveTurn("research", time.Second, errors.New("boom"))
	m.ObserveInterrupt("source_approval")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageOperations.WithLabelValues("execute_multi_search", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageOperations.WithLabelValues("request_source_approval", "suspended")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnFailures.WithLabelValues("research")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Interrupts.WithLabelValues("source_approval")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveInterrupt("artifact_review")

	app := fiber.New()
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `lexora_interrupts_total{type="artifact_review"} 1`)
}
