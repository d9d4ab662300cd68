package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/gheehive-storefront/pkg/config"
)

func testVisitorConfig() config.VisitorConfig {
	return config.VisitorConfig{
		Secret:   "secret",
		Issuer:   "gheehive",
		TokenTTL: time.Hour,
	}
}

func TestMintAndParseVisitorToken(t *testing.T) {
	cfg := testVisitorConfig()
	visitorID := NewVisitorID()

	token, err := MintVisitorToken(cfg, time.Now().UTC(), visitorID)
	if err != nil {
		t.Fatalf("mint visitor token: %v", err)
	}
	claims, err := ParseVisitorToken(cfg, token)
	if err != nil {
		t.Fatalf("parse visitor token: %v", err)
	}
	if claims.VisitorID != visitorID || claims.Subject != visitorID {
		t.Fatalf("expected visitor %s, got vid=%s sub=%s", visitorID, claims.VisitorID, claims.Subject)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
}

func TestParseVisitorTokenRejectsTampering(t *testing.T) {
	cfg := testVisitorConfig()
	token, err := MintVisitorToken(cfg, time.Now().UTC(), "visitor-1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseVisitorToken(other, token); err == nil {
		t.Fatal("expected signature mismatch")
	}

	parts := strings.Split(token, ".")
	parts[1] = parts[1] + "x"
	if _, err := ParseVisitorToken(cfg, strings.Join(parts, ".")); err == nil {
		t.Fatal("expected tampered payload to fail")
	}
}

func TestParseVisitorTokenExpired(t *testing.T) {
	cfg := testVisitorConfig()
	token, err := MintVisitorToken(cfg, time.Now().Add(-2*time.Hour), "visitor-1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseVisitorToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestMintVisitorTokenValidatesConfig(t *testing.T) {
	cfg := testVisitorConfig()
	cfg.Secret = ""
	if _, err := MintVisitorToken(cfg, time.Now(), "v"); err == nil {
		t.Fatal("expected missing secret error")
	}
	if _, err := MintVisitorToken(testVisitorConfig(), time.Now(), " "); err == nil {
		t.Fatal("expected missing visitor id error")
	}
}
