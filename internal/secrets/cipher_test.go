package secrets

import "testing"

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	c, err := NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	return c
}

func TestCipher_EncryptDecrypt(t *testing.T) {
	c := newTestCipher(t)

	original := "ghp_live_token"
	encrypted, err := c.Encrypt(original)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !IsEncrypted(encrypted) {
		t.Fatalf("expected $ENC: prefix, got %q", encrypted)
	}

	decrypted, err := c.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if decrypted != original {
		t.Fatalf("decrypted = %q, want %q", decrypted, original)
	}
}

func TestCipher_DecryptPlainValue(t *testing.T) {
	c := newTestCipher(t)

	got, err := c.Decrypt("plain-value")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "plain-value" {
		t.Fatalf("plain value should pass through, got %q", got)
	}
}

func TestCipher_WrongKeyFails(t *testing.T) {
	a := newTestCipher(t)
	b := newTestCipher(t)

	encrypted, err := a.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := b.Decrypt(encrypted); err == nil {
		t.Fatal("expected decrypt with another key to fail")
	}
}

func TestNewCipher_RejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "zz", "00ff"} {
		if _, err := NewCipher(key); err == nil {
			t.Errorf("NewCipher(%q) should fail", key)
		}
	}
}

func TestIsEncrypted(t *testing.T) {
	if IsEncrypted("plaintext") {
		t.Fatal("plaintext should not be detected as encrypted")
	}
	if IsEncrypted("$ENC:") {
		t.Fatal("empty $ENC: should not be detected as encrypted")
	}
	if !IsEncrypted("$ENC:abc123") {
		t.Fatal("$ENC:abc123 should be detected as encrypted")
	}
}
