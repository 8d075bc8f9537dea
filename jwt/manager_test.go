package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newHSManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("0123456789abcdef0123456789abcdef")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestMintParseRoundTrip(t *testing.T) {
	m := newHSManager(t)

	for _, cat := range []Category{CategoryAccess, CategoryRefresh} {
		tok, err := m.Mint(cat, "ada@example.com", "ada", "ROLE_USER", time.Minute)
		if err != nil {
			t.Fatalf("mint %s: %v", cat, err)
		}
		claims, err := m.Parse(tok)
		if err != nil {
			t.Fatalf("parse %s: %v", cat, err)
		}
		if claims.Category != cat || claims.Subject != "ada@example.com" || claims.Role != "ROLE_USER" || claims.Username != "ada" {
			t.Fatalf("unexpected claims: %+v", claims)
		}
		if got, _ := m.Category(tok); got != cat {
			t.Fatalf("category accessor = %q", got)
		}
		if got, _ := m.Subject(tok); got != "ada@example.com" {
			t.Fatalf("subject accessor = %q", got)
		}
		if got, _ := m.Role(tok); got != "ROLE_USER" {
			t.Fatalf("role accessor = %q", got)
		}
	}
}

func TestMintNonPositiveTTLIsExpired(t *testing.T) {
	m := newHSManager(t)

	for _, ttl := range []time.Duration{0, -time.Hour} {
		tok, err := m.Mint(CategoryRefresh, "s", "", "", ttl)
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		_, err = m.Parse(tok)
		if !errors.Is(err, ErrExpired) {
			t.Fatalf("ttl %v: expected ErrExpired, got %v", ttl, err)
		}
		if Classify(err) != OutcomeExpired {
			t.Fatalf("expected expired outcome")
		}
	}
}

func TestMintNonPositiveTTLIsExpiredWithLeeway(t *testing.T) {
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("secret-secret-secret-secret"), Leeway: time.Minute})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	tok, err := m.Mint(CategoryAccess, "s", "", "", 0)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := m.Parse(tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestExpiryUsesClock(t *testing.T) {
	m := newHSManager(t)
	base := time.Now()
	m.now = func() time.Time { return base }

	tok, err := m.Mint(CategoryAccess, "s", "", "", 10*time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	m.now = func() time.Time { return base.Add(9 * time.Minute) }
	if _, err := m.Parse(tok); err != nil {
		t.Fatalf("expected token valid before expiry: %v", err)
	}
	m.now = func() time.Time { return base.Add(11 * time.Minute) }
	if _, err := m.Parse(tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired after expiry, got %v", err)
	}
}

func TestMintProducesDistinctTokensWithinOneSecond(t *testing.T) {
	m := newHSManager(t)
	base := time.Now()
	m.now = func() time.Time { return base }

	a, _ := m.Mint(CategoryRefresh, "s", "u", "r", time.Hour)
	b, _ := m.Mint(CategoryRefresh, "s", "u", "r", time.Hour)
	if a == b {
		t.Fatal("expected distinct tokens for identical claims")
	}
}

func TestParseMalformed(t *testing.T) {
	m := newHSManager(t)
	other, _ := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("another-secret-another-secret!!")})
	foreign, _ := other.Mint(CategoryAccess, "s", "", "", time.Minute)

	good, _ := m.Mint(CategoryAccess, "s", "", "", time.Minute)
	mid := len(good) - 10
	swap := byte('A')
	if good[mid] == 'A' {
		swap = 'B'
	}
	tampered := good[:mid] + string(swap) + good[mid+1:]

	for name, tok := range map[string]string{
		"empty":     "",
		"garbage":   "not.a.jwt",
		"foreign":   foreign,
		"tampered":  tampered,
		"two parts": "abc.def",
	} {
		_, err := m.Parse(tok)
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", name, err)
		}
		if Classify(err) != OutcomeMalformed {
			t.Fatalf("%s: expected malformed outcome", name)
		}
	}
}

func TestParseRejectsUnknownCategoryAndMissingSubject(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	m, _ := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: secret})

	exp := gjwt.NewNumericDate(time.Now().Add(time.Minute))
	unknown := Claims{Category: "session", RegisteredClaims: gjwt.RegisteredClaims{Subject: "s", ExpiresAt: exp}}
	tok, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, unknown).SignedString(secret)
	if _, err := m.Parse(tok); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected unknown category to be malformed, got %v", err)
	}

	noSub := Claims{Category: CategoryAccess, RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: exp}}
	tok, _ = gjwt.NewWithClaims(gjwt.SigningMethodHS256, noSub).SignedString(secret)
	if _, err := m.Parse(tok); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected missing subject to be malformed, got %v", err)
	}

	noExp := Claims{Category: CategoryAccess, RegisteredClaims: gjwt.RegisteredClaims{Subject: "s"}}
	tok, _ = gjwt.NewWithClaims(gjwt.SigningMethodHS256, noExp).SignedString(secret)
	if _, err := m.Parse(tok); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected missing exp to be malformed, got %v", err)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{Category: CategoryAccess, RegisteredClaims: gjwt.RegisteredClaims{Subject: "s", ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Parse(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected wrong algorithm to be rejected, got %v", err)
	}
}

func TestEd25519IssuerAndLeeway(t *testing.T) {
	_, priv := newEdKeys(t)
	m, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     priv.Public().(ed25519.PublicKey),
		Issuer:        "tokenauth",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tok, err := m.Mint(CategoryAccess, "s", "", "ROLE_USER", time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := m.Parse(tok); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}

	wrongIssuer := Claims{Category: CategoryAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "s",
		Issuer:    "other",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	bad, _ := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, wrongIssuer).SignedString(priv)
	if _, err := m.Parse(bad); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected wrong issuer to fail, got %v", err)
	}

	withinLeeway := Claims{Category: CategoryAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "s",
		Issuer:    "tokenauth",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-15 * time.Second)),
	}}
	within, _ := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, withinLeeway).SignedString(priv)
	if _, err := m.Parse(within); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}
}

func TestUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	m, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub1},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{Category: CategoryAccess, RegisteredClaims: gjwt.RegisteredClaims{Subject: "s", ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = "k2"
	token, _ := tok.SignedString(priv1)
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected unknown kid failure")
	}

	good, err := m.Mint(CategoryAccess, "s", "", "", time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := m.Parse(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []Config{
		{SigningMethod: MethodHS256},
		{SigningMethod: MethodEd25519},
		{SigningMethod: "rs256", PrivateKey: []byte("x")},
		{SigningMethod: MethodHS256, PrivateKey: []byte("x"), Leeway: time.Hour},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}

func TestMintRejectsBadInput(t *testing.T) {
	m := newHSManager(t)
	if _, err := m.Mint("other", "s", "", "", time.Minute); err == nil {
		t.Fatal("expected unknown category to fail")
	}
	if _, err := m.Mint(CategoryAccess, "", "", "", time.Minute); err == nil {
		t.Fatal("expected empty subject to fail")
	}
}
