package monitoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthManagerEvaluate(t *testing.T) {
	up := NewCheck("up", func(context.Context) ProbeResult { return ProbeResult{Status: StatusUp} })
	degraded := NewCheck("slow", func(context.Context) ProbeResult { return ProbeResult{Status: StatusDegraded} })
	down := NewCheck("down", func(context.Context) ProbeResult { return ProbeResult{Status: StatusDown, Details: "boom"} })

	report := NewHealthManager(up).Evaluate(context.Background())
	require.True(t, report.Success)
	require.Equal(t, StatusUp, report.Status)
	require.Len(t, report.Checks, 1)
	require.Equal(t, "up", report.Checks[0].Component)

	report = NewHealthManager(up, degraded).Evaluate(context.Background())
	require.False(t, report.Success)
	require.Equal(t, StatusDegraded, report.Status)

	report = NewHealthManager(down, degraded).Evaluate(context.Background())
	require.False(t, report.Success)
	require.Equal(t, StatusDown, report.Status)
	require.Equal(t, "boom", report.Checks[0].Details)
}

func TestHealthManagerEmptyAndUnnamed(t *testing.T) {
	var nilManager *HealthManager
	require.True(t, nilManager.Evaluate(context.Background()).Success)

	m := NewHealthManager(NewCheck("", nil))
	report := m.Evaluate(context.Background())
	require.True(t, report.Success)
	require.Empty(t, report.Checks)
}

func TestRunCheckRecoversPanics(t *testing.T) {
	m := NewHealthManager(
		NewCheck("panics", func(context.Context) ProbeResult { panic("kaboom") }),
		NewCheck("nil", nil),
		NewCheck("blank", func(context.Context) ProbeResult { return ProbeResult{} }),
	)

	report := m.Evaluate(context.Background())
	require.Equal(t, StatusDown, report.Status)
	require.Equal(t, "kaboom", report.Checks[0].Details)
	require.Equal(t, "panics", report.Checks[0].Component)
	require.Equal(t, "probe not implemented", report.Checks[1].Details)
	require.Equal(t, StatusDown, report.Checks[2].Status)
}

func TestResultFromError(t *testing.T) {
	require.Equal(t, StatusUp, ResultFromError("x", nil, -1).Status)
	require.Equal(t, StatusDown, ResultFromError("x", errors.New("refused"), 0).Status)
	require.Equal(t, StatusDegraded, ResultFromError("x", context.DeadlineExceeded, 0).Status)
}
