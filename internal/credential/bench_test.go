package credential

import (
	"testing"
)

func BenchmarkArgon2Hasher_Hash(b *testing.B) {
	// RFC 9106 recommended parameters
	hasher := NewArgon2Hasher(64*1024, 1, 4, 16, 32)
	secret := "correct-horse-battery-staple"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := hasher.Hash(secret); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkArgon2Hasher_Verify(b *testing.B) {
	hasher := NewArgon2Hasher(64*1024, 1, 4, 16, 32)
	secret := "correct-horse-battery-staple"
	hash, _ := hasher.Hash(secret)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !hasher.Verify(secret, hash) {
			b.Fatal("verify failed")
		}
	}
}

func BenchmarkDigestToken(b *testing.B) {
	token, _ := NewToken()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DigestToken(token)
	}
}
