package utils

import "testing"

func TestGenerateSessionToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateSessionToken()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(token) < 40 {
			t.Fatalf("token too short: %q", token)
		}
		if seen[token] {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[token] = true
	}
}

func TestRestoreTokenHashing(t *testing.T) {
	hash, err := HashRestoreToken("secret-token")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "secret-token" {
		t.Fatal("token stored in plaintext")
	}
	if !VerifyRestoreToken(hash, "secret-token") {
		t.Error("matching token rejected")
	}
	if VerifyRestoreToken(hash, "other-token") {
		t.Error("wrong token accepted")
	}
	if VerifyRestoreToken("", "secret-token") || VerifyRestoreToken(hash, "") {
		t.Error("empty input accepted")
	}
	if _, err := HashRestoreToken(""); err == nil {
		t.Error("empty token hashed")
	}
}
