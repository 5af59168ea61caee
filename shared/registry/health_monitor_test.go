package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaglebank/digibank/shared/logger"
)

func TestHealthMonitorMarksUnhealthyAfterMaxFailures(t *testing.T) {
	hm := NewHealthMonitor(logger.NewNop(), time.Hour, time.Second, 2)
	var failing atomic.Bool
	failing.Store(true)
	hm.SetCheckFunction(func(ctx context.Context, addr string) error {
		if failing.Load() {
			return errors.New("connection refused")
		}
		return nil
	})

	instances := []Instance{{Service: "cards", Address: "c:1"}}
	assert.True(t, hm.Eligible("c:1"), "untracked instances are eligible")

	hm.CheckAll(context.Background(), instances)
	assert.True(t, hm.Eligible("c:1"), "one failure is below the threshold")

	hm.CheckAll(context.Background(), instances)
	assert.False(t, hm.Eligible("c:1"))
	require.NotNil(t, hm.Health("c:1"))
	assert.Equal(t, StatusUnhealthy, hm.Health("c:1").Status)

	failing.Store(false)
	hm.CheckAll(context.Background(), instances)
	assert.True(t, hm.Eligible("c:1"))
	assert.Equal(t, 0, hm.Health("c:1").ConsecutiveFails)
}

func TestHealthMonitorForgetsRemovedInstances(t *testing.T) {
	hm := NewHealthMonitor(logger.NewNop(), time.Hour, time.Second, 1)
	hm.SetCheckFunction(func(ctx context.Context, addr string) error { return nil })

	hm.CheckAll(context.Background(), []Instance{{Address: "a:1"}, {Address: "a:2"}})
	require.NotNil(t, hm.Health("a:2"))

	hm.CheckAll(context.Background(), []Instance{{Address: "a:1"}})
	assert.Nil(t, hm.Health("a:2"))
}

func TestHealthMonitorDefaultCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer healthy.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	hm := NewHealthMonitor(logger.NewNop(), time.Hour, time.Second, 1)
	good := strings.TrimPrefix(healthy.URL, "http://")
	bad := strings.TrimPrefix(broken.URL, "http://")

	hm.CheckAll(context.Background(), []Instance{{Address: good}, {Address: bad}})
	assert.True(t, hm.Eligible(good))
	assert.False(t, hm.Eligible(bad))
}

func TestHealthMonitorWithStaticRegistry(t *testing.T) {
	r := NewStaticRegistry(map[string][]string{"loans": {"l:1", "l:2"}})
	hm := NewHealthMonitor(logger.NewNop(), time.Hour, time.Second, 1)
	hm.SetCheckFunction(func(ctx context.Context, addr string) error {
		if strings.HasSuffix(addr, "l:1") {
			return errors.New("down")
		}
		return nil
	})
	r.SetHealthStatus(hm)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hm.Start(ctx, r.Instances)
		close(done)
	}()

	assert.Eventually(t, func() bool { return !hm.Eligible("l:1") }, time.Second, 10*time.Millisecond)
	for i := 0; i < 3; i++ {
		inst, err := r.Resolve(context.Background(), "loans")
		require.NoError(t, err)
		assert.Equal(t, "l:2", inst.Address)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}
