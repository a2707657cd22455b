package cfg

import (
	"flag"
	"strings"
	"testing"
)

func newApp(t *testing.T, args ...string) (*App, *flag.FlagSet) {
	t.Helper()
	var c App
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	Register(fs, &c)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return &c, fs
}

func TestRegister_Defaults(t *testing.T) {
	c, _ := newApp(t)

	if !c.LogJSON {
		t.Error("LogJSON default should be true")
	}
	if c.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", c.LogLevel)
	}
	if c.AdminPort != 9000 {
		t.Errorf("AdminPort = %d, want 9000", c.AdminPort)
	}
	if c.CacheCapacity != 10000 {
		t.Errorf("CacheCapacity = %d, want 10000", c.CacheCapacity)
	}
	if c.UnsafeAsMissing {
		t.Error("UnsafeAsMissing default should be false")
	}
	if c.EnableBundleFetch {
		t.Error("EnableBundleFetch default should be false")
	}
}

func TestFillFromEnv_Precedence(t *testing.T) {
	t.Setenv("MODRESOLVE_LOG_LEVEL", "debug")
	t.Setenv("MODRESOLVE_ADMIN_PORT", "9100")

	// -admin-port on the CLI should beat the env var, log-level should not
	c, fs := newApp(t, "-admin-port=9200")
	FillFromEnv(fs, "MODRESOLVE_", nil)

	if c.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug (from env)", c.LogLevel)
	}
	if c.AdminPort != 9200 {
		t.Errorf("AdminPort = %d, want 9200 (cli wins)", c.AdminPort)
	}
}

func TestFillFromEnv_InvalidValueIgnored(t *testing.T) {
	t.Setenv("MODRESOLVE_CACHE_CAPACITY", "banana")

	var logged []string
	c, fs := newApp(t)
	FillFromEnv(fs, "MODRESOLVE_", func(format string, args ...any) {
		logged = append(logged, format)
	})

	if c.CacheCapacity != 10000 {
		t.Errorf("CacheCapacity = %d, want default 10000", c.CacheCapacity)
	}
	if len(logged) != 1 {
		t.Errorf("expected one warning, got %d", len(logged))
	}
}

func TestValidate_OK(t *testing.T) {
	c, _ := newApp(t)
	if err := Validate(*c); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad port", []string{"-admin-port=0"}, "ADMIN_PORT"},
		{"bad log level", []string{"-log-level=blah"}, "LOG_LEVEL"},
		{"empty mods file", []string{"-mods-file="}, "MODS_FILE"},
		{"traversal base root", []string{"-base-root=../escape"}, "BASE_ROOT"},
		{"zero capacity", []string{"-cache-capacity=0"}, "CACHE_CAPACITY"},
		{"negative rate", []string{"-rate-limit-per-sec=-1"}, "RATE_LIMIT_PER_SEC"},
		{"bundle fetch missing bucket", []string{"-enable-bundle-fetch"}, "BUNDLE_S3_BUCKET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newApp(t, tt.args...)
			err := Validate(*c)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	c, _ := newApp(t, "-admin-port=0", "-cache-capacity=0")
	err := Validate(*c)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "ADMIN_PORT") || !strings.Contains(msg, "CACHE_CAPACITY") {
		t.Errorf("error %q should mention both fields", msg)
	}
}
