package redisx

import (
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	opts := Config{Addr: "localhost:6379"}.options()

	if opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected addr: %s", opts.Addr)
	}
	if opts.DialTimeout != 5*time.Second {
		t.Fatalf("unexpected dial timeout: %s", opts.DialTimeout)
	}
	if opts.ReadTimeout != 3*time.Second || opts.WriteTimeout != 3*time.Second {
		t.Fatalf("unexpected io timeouts: read=%s write=%s", opts.ReadTimeout, opts.WriteTimeout)
	}
	if opts.PoolSize != 10 {
		t.Fatalf("unexpected pool size: %d", opts.PoolSize)
	}
}

func TestConfigOverrides(t *testing.T) {
	opts := Config{
		Addr:        "redis:6380",
		Password:    "secret",
		DB:          2,
		DialTimeout: time.Second,
		ReadTimeout: 10 * time.Second,
		PoolSize:    25,
	}.options()

	if opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("credentials not carried: %+v", opts)
	}
	if opts.DialTimeout != time.Second || opts.ReadTimeout != 10*time.Second {
		t.Fatalf("explicit timeouts not carried: dial=%s read=%s", opts.DialTimeout, opts.ReadTimeout)
	}
	if opts.PoolSize != 25 {
		t.Fatalf("explicit pool size not carried: %d", opts.PoolSize)
	}
	// Only the unset timeout falls back.
	if opts.WriteTimeout != 3*time.Second {
		t.Fatalf("unexpected write timeout: %s", opts.WriteTimeout)
	}
}
