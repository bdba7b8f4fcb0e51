package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"tag-sync/core/config"
	"tag-sync/core/container"
	"tag-sync/core/layout"
	"tag-sync/core/reconcile"
	"tag-sync/core/stream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfirmAction(t *testing.T) {
	defer func() { yesConfirm = false }()

	assert.True(t, confirmAction(strings.NewReader("yes\n"), true))
	assert.False(t, confirmAction(strings.NewReader("no\n"), false))
	assert.False(t, confirmAction(strings.NewReader(""), false))

	yesConfirm = true
	assert.True(t, confirmAction(strings.NewReader(""), true))
}

func TestPrintSyncPlan(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	plan := &reconcile.Plan{Direction: reconcile.Upload}
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		plan.Actions = append(plan.Actions, reconcile.Action{Type: reconcile.ActionUpload, Key: "weap:" + k})
	}
	plan.Summary.Uploads = 7

	printSyncPlan(zap.New(core), plan)
	assert.Equal(t, 5, logs.FilterMessage("Sample action").Len())
	hidden := logs.FilterMessage("Additional actions not shown").All()
	require.Len(t, hidden, 1)
	assert.Equal(t, int64(2), hidden[0].ContextMap()["count"])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, &reconcile.Plan{Direction: reconcile.Download}))
	assert.Contains(t, buf.String(), `"direction": "download"`)
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range syncCmd.Commands() {
		names[c.Name()] = true
	}
	assert.Equal(t, map[string]bool{"upload": true, "download": true, "plan": true, "clear": true}, names)
}

func memorySession(t *testing.T, target config.Target) *session {
	t.Helper()
	c, err := container.New(container.BaseName(target.Path), stream.NewBuffer(nil),
		&container.Manifest{Mode: "memory"}, layout.NewRegistry())
	require.NoError(t, err)
	return &session{container: c, logger: zap.NewNop()}
}

func TestRunBatch_Order(t *testing.T) {
	cfg := config.SyncConfig{Containers: "m10.map,m20.map,shared.map", Base: "shared.map"}

	var visited []string
	open := func(target config.Target) (*session, error) {
		if target.Path == "m20.map" {
			return nil, errors.New("manifest missing")
		}
		return memorySession(t, target), nil
	}
	err := runBatch(context.Background(), zap.NewNop(), cfg.Batch(true), open,
		func(_ context.Context, s *session) error {
			visited = append(visited, s.container.Name())
			if s.container.Name() == "m10" {
				return errors.New("store down")
			}
			return nil
		})

	assert.Equal(t, []string{"shared", "m10"}, visited)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m10.map: store down")
	assert.Contains(t, err.Error(), "m20.map: manifest missing")
}

func TestRunBatch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := runBatch(ctx, zap.NewNop(), config.SyncConfig{Containers: "a.map,b.map"}.Batch(false),
		func(target config.Target) (*session, error) { return memorySession(t, target), nil },
		func(context.Context, *session) error { calls++; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
