package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"improvfest/internal/config"
	"improvfest/internal/generator"
)

// slowGenerator blocks every Run until release is closed or ctx ends.
type slowGenerator struct {
	started chan struct{}
	release chan struct{}
}

func (g *slowGenerator) Run(ctx context.Context) (generator.Report, error) {
	close(g.started)
	select {
	case <-g.release:
	case <-ctx.Done():
	}
	return generator.Report{}, nil
}

func (g *slowGenerator) TryRun(context.Context) (generator.Report, error) {
	return generator.Report{}, generator.ErrBusy
}

func (g *slowGenerator) Last() (generator.Report, bool) {
	return generator.Report{}, false
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestDaemon_ServesHealthDuringInitialRun(t *testing.T) {
	conf := config.DefaultConfig()
	conf.OutputDir = t.TempDir()
	conf.Listen = freeAddr(t)

	gen := &slowGenerator{started: make(chan struct{}), release: make(chan struct{})}
	defer close(gen.release)

	ctx, cancel := context.WithCancel(context.Background())
	exit := make(chan int, 1)
	go func() { exit <- daemon(ctx, conf, gen) }()

	select {
	case <-gen.started:
	case <-time.After(5 * time.Second):
		t.Fatalf("initial run never started")
	}

	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := client.Get("http://" + conf.Listen + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("health status want=200 got=%d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("health not reachable while initial run is in progress: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case code := <-exit:
		if code != 0 {
			t.Fatalf("exit code want=0 got=%d", code)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("daemon did not shut down")
	}
}
