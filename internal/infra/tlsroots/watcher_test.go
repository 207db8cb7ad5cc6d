package tlsroots

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
)

func leafName(t *testing.T, w *Watcher) string {
	t.Helper()
	cert, err := w.GetClientCertificate(nil)
	if err != nil || cert == nil || cert.Leaf == nil {
		t.Fatalf("GetClientCertificate() = %v, %v", cert, err)
	}
	return cert.Leaf.Subject.CommonName
}

func TestNewWatcher(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := filepath.Join(dir, "c.pem"), filepath.Join(dir, "k.pem")
	writeKeyPair(t, certFile, keyFile, "client-1")

	w, err := NewWatcher(certFile, keyFile, WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if got := leafName(t, w); got != "client-1" {
		t.Errorf("certificate = %q, want client-1", got)
	}
}

func TestNewWatcher_InvalidFiles(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "c.pem")
	writePEM(t, certFile, "CERTIFICATE", []byte("garbage"))

	if _, err := NewWatcher(certFile, filepath.Join(dir, "k.pem")); err == nil {
		t.Error("NewWatcher() expected error")
	}
}

func TestWatcher_ReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := filepath.Join(dir, "c.pem"), filepath.Join(dir, "k.pem")
	writeKeyPair(t, certFile, keyFile, "client-1")

	w, err := NewWatcher(certFile, keyFile, WithLogger(logger.NewNop()), WithDebounce(0))
	if err != nil {
		t.Fatal(err)
	}
	w.settle = 10 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- w.Start() }()
	time.Sleep(100 * time.Millisecond)

	writeKeyPair(t, certFile, keyFile, "client-2")

	deadline := time.Now().Add(3 * time.Second)
	for leafName(t, w) != "client-2" {
		if time.Now().After(deadline) {
			t.Fatal("certificate not reloaded")
		}
		time.Sleep(20 * time.Millisecond)
	}

	w.Stop()
	w.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}
