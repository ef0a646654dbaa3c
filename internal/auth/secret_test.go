package auth

import (
	"strings"
	"testing"
)

func TestHashVerifySecret(t *testing.T) {
	hash, err := HashSecret("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("expected PHC format, got %q", hash)
	}

	ok, err := VerifySecret("hunter2", hash)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Error("correct secret rejected")
	}

	ok, err = VerifySecret("wrong", hash)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Error("wrong secret accepted")
	}
}

func TestHashSecretSalted(t *testing.T) {
	h1, err := HashSecret("same")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := HashSecret("same")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same secret should differ (random salt)")
	}
}

func TestVerifySecretMalformedHash(t *testing.T) {
	if _, err := VerifySecret("x", "not-a-phc-string"); err == nil {
		t.Error("expected error for malformed hash")
	}
	if _, err := VerifySecret("x", "$bcrypt$v=19$m=1,t=1,p=1$AAAA$BBBB"); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}
