package main

import (
	"testing"
	"time"
)

func TestWaitWorker_Stopped(t *testing.T) {
	done := make(chan struct{})
	close(done)
	if !waitWorker(done, time.Second) {
		t.Fatalf("expected worker reported as stopped")
	}
}

func TestWaitWorker_TimesOut(t *testing.T) {
	done := make(chan struct{})
	if waitWorker(done, 10*time.Millisecond) {
		t.Fatalf("expected timeout while worker is still busy")
	}
}
