package password

import (
	"errors"
	"strings"
	"testing"
)

// cheapConfig keeps argon2 fast enough for table tests.
func cheapConfig() Config {
	cfg := DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

func TestHashAndVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := cheapConfig()
	for _, pw := range []string{"", "a", "cat", "this is a strong password 123!", "пароль-ünïcödé"} {
		h, err := cfg.Hash(pw)
		if err != nil {
			t.Fatalf("Hash(%q): %v", pw, err)
		}
		if !strings.HasPrefix(h, "$argon2id$") {
			t.Fatalf("unexpected hash format: %q", h)
		}

		ok, err := cfg.Verify(h, pw)
		if err != nil {
			t.Fatalf("Verify(%q): %v", pw, err)
		}
		if !ok {
			t.Fatalf("expected match for %q", pw)
		}

		ok, err = cfg.Verify(h, pw+"x")
		if err != nil {
			t.Fatalf("Verify mismatch: %v", err)
		}
		if ok {
			t.Fatalf("expected mismatch for %q+x", pw)
		}
	}
}

func TestHash_Salted(t *testing.T) {
	t.Parallel()

	cfg := cheapConfig()
	a, err := cfg.Hash("same password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := cfg.Hash("same password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Fatalf("expected different salts to yield different hashes")
	}
	if !strings.HasPrefix(a, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %q", a)
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	t.Parallel()

	cfg := cheapConfig()
	cases := []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$a2V5a2V5a2V5a2V5a2V5a2V5",
	}
	for _, enc := range cases {
		ok, err := cfg.Verify(enc, "whatever")
		if !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("Verify(%q) err=%v want ErrInvalidHash", enc, err)
		}
		if ok {
			t.Fatalf("Verify(%q) returned true", enc)
		}
	}
}

func TestVerify_RejectsOversizedCost(t *testing.T) {
	t.Parallel()

	cfg := cheapConfig()
	huge := "$argon2id$v=19$m=4194304,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2U"
	if _, err := cfg.Verify(huge, "pw"); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash for oversized memory, got %v", err)
	}
}

func TestVerify_AcceptsDefaultCostUnderCheaperConfig(t *testing.T) {
	t.Parallel()

	h, err := DefaultConfig().Hash("pw")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	ok, err := cheapConfig().Verify(h, "pw")
	if err != nil || !ok {
		t.Fatalf("Verify ok=%v err=%v", ok, err)
	}
}

func TestValidate_Policy(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Policy.MinLength = 8
	cfg.Policy.MaxLength = 16
	cfg.Policy.RejectVeryWeak = true

	cases := []struct {
		in   string
		want error
	}{
		{in: "short", want: ErrPasswordTooShort},
		{in: "this password is definitely too long", want: ErrPasswordTooLong},
		{in: "password", want: ErrWeakPassword},
		{in: "aaaaaaaaaa", want: ErrWeakPassword},
		{in: "11111111", want: ErrWeakPassword},
		{in: "a-very-ok-pass", want: nil},
	}
	for _, tc := range cases {
		if err := cfg.Validate(tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("Validate(%q)=%v want=%v", tc.in, err, tc.want)
		}
	}
}
