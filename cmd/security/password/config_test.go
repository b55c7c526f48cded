package password

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Policy.MinLength != 8 || cfg.Policy.MaxLength != 256 || !cfg.Policy.RejectVeryWeak {
		t.Fatalf("unexpected default policy: %+v", cfg.Policy)
	}
	if cfg.Params.Parallelism < 1 || cfg.Params.Parallelism > 4 {
		t.Fatalf("parallelism not clamped: %d", cfg.Params.Parallelism)
	}
}

func TestFromEnv_EmptyValuesRejected(t *testing.T) {
	for _, k := range []string{
		"MICROBLOG_PASSWORD_MIN_LEN",
		"MICROBLOG_PASSWORD_MAX_LEN",
		"MICROBLOG_PASSWORD_REJECT_VERY_WEAK",
		"MICROBLOG_ARGON2_MEMORY_KIB",
		"MICROBLOG_ARGON2_ITERATIONS",
		"MICROBLOG_ARGON2_PARALLELISM",
		"MICROBLOG_ARGON2_SALT_LEN",
		"MICROBLOG_ARGON2_KEY_LEN",
	} {
		t.Setenv(k, "")
	}

	// Empty values are present-but-invalid; the loader must reject them.
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for empty numeric env values")
	}
}

func TestFromEnv_Override(t *testing.T) {
	t.Setenv("MICROBLOG_PASSWORD_MIN_LEN", "10")
	t.Setenv("MICROBLOG_PASSWORD_MAX_LEN", "200")
	t.Setenv("MICROBLOG_PASSWORD_REJECT_VERY_WEAK", "false")
	t.Setenv("MICROBLOG_ARGON2_MEMORY_KIB", "32768")
	t.Setenv("MICROBLOG_ARGON2_ITERATIONS", "4")
	t.Setenv("MICROBLOG_ARGON2_PARALLELISM", "2")
	t.Setenv("MICROBLOG_ARGON2_SALT_LEN", "24")
	t.Setenv("MICROBLOG_ARGON2_KEY_LEN", "32")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.Policy.MinLength != 10 || cfg.Policy.MaxLength != 200 || cfg.Policy.RejectVeryWeak {
		t.Fatalf("policy override failed: %+v", cfg.Policy)
	}
	if cfg.Params.MemoryKiB != 32768 || cfg.Params.Iterations != 4 || cfg.Params.Parallelism != 2 {
		t.Fatalf("argon2 override failed: %+v", cfg.Params)
	}
	if cfg.Params.SaltLength != 24 || cfg.Params.KeyLength != 32 {
		t.Fatalf("len override failed: %+v", cfg.Params)
	}
}

func TestFromEnv_InvalidMinMax(t *testing.T) {
	t.Setenv("MICROBLOG_PASSWORD_MIN_LEN", "20")
	t.Setenv("MICROBLOG_PASSWORD_MAX_LEN", "10")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFromEnv_OutOfRange(t *testing.T) {
	t.Setenv("MICROBLOG_ARGON2_ITERATIONS", "99")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error")
	}
}
