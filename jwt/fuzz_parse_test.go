package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

// FuzzParse feeds arbitrary strings to the parser: no panics, and any
// non-nil claims must carry a known category and a subject.
func FuzzParse(f *testing.F) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		f.Fatal(err)
	}
	mgr, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "fuzz-test",
		Leeway:        30 * time.Second,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub},
	})
	if err != nil {
		f.Fatal(err)
	}

	validToken, err := mgr.Mint(CategoryRefresh, "fuzz@example.com", "fuzz", "ROLE_USER", 5*time.Minute)
	if err != nil {
		f.Fatal(err)
	}

	f.Add(validToken)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJFZERTQSJ9.eyJ1aWQiOiJ0ZXN0In0.invalid")
	f.Add("eyJhbGciOiJub25lIn0.eyJ1aWQiOiJ0ZXN0In0.")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := mgr.Parse(input)
		if err != nil {
			return
		}
		if claims == nil {
			t.Fatal("Parse returned nil claims without error")
		}
		if !claims.Category.Valid() || claims.Subject == "" {
			t.Fatalf("accepted claims without category or subject: %+v", claims)
		}
	})
}
