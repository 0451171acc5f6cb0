package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/doc-translator/internal/config"
)

type fakeScheduler struct {
	expr string
	err  error
}

func (f *fakeScheduler) Schedule(_ context.Context, expr string) error {
	f.expr = expr
	return f.err
}

type fakeCron struct {
	started bool
	stopped bool
}

func (f *fakeCron) Start() {
	f.started = true
}

func (f *fakeCron) Stop() context.Context {
	f.stopped = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

type fakeHTTP struct {
	addr         string
	listenCalled chan struct{}
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	listenErr    error
}

func newFakeHTTP() *fakeHTTP {
	return &fakeHTTP{
		listenCalled: make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

func (f *fakeHTTP) ListenAndServe(addr string) error {
	f.addr = addr
	close(f.listenCalled)
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.shutdownCh
	return http.ErrServerClosed
}

func (f *fakeHTTP) Shutdown(context.Context) error {
	f.shutdownOnce.Do(func() { close(f.shutdownCh) })
	return nil
}

func testServeConfig() *config.Config {
	return &config.Config{
		HTTP:   config.HTTPConfig{Addr: "127.0.0.1:0"},
		Backup: config.BackupConfig{CronExpr: "0 3 * * *"},
	}
}

func TestRunWithComponents_StartsCronAndHTTP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := &fakeScheduler{}
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- runWithComponents(ctx, testServeConfig(), scheduler, cronEngine, httpSrv)
	}()

	select {
	case <-httpSrv.listenCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("http server did not start")
	}

	cancel()

	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runWithComponents did not exit after cancellation")
	}

	assert.Equal(t, "0 3 * * *", scheduler.expr)
	assert.Equal(t, "127.0.0.1:0", httpSrv.addr)
	assert.True(t, cronEngine.started)
	assert.True(t, cronEngine.stopped)
}

func TestRunWithComponents_ScheduleErrorStopsStartup(t *testing.T) {
	scheduler := &fakeScheduler{err: errors.New("bad cron")}
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()

	err := runWithComponents(context.Background(), testServeConfig(), scheduler, cronEngine, httpSrv)
	require.EqualError(t, err, "bad cron")
	assert.False(t, cronEngine.started)
}

func TestRunWithComponents_ListenErrorIsReturned(t *testing.T) {
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()
	httpSrv.listenErr = errors.New("address in use")

	err := runWithComponents(context.Background(), testServeConfig(), &fakeScheduler{}, cronEngine, httpSrv)
	require.EqualError(t, err, "address in use")
	assert.True(t, cronEngine.stopped)
}
