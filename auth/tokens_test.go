package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-0123456789"

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour, 24*time.Hour, nil)
	ctx := context.Background()

	pair, err := tokens.Issue(42)
	if err != nil {
		t.Fatal(err)
	}
	if pair.CSRFToken == "" || pair.AccessToken == pair.RefreshToken {
		t.Fatalf("unexpected pair %+v", pair)
	}

	claims, err := tokens.Parse(ctx, pair.AccessToken, AccessToken)
	if err != nil {
		t.Fatalf("Parse access: %v", err)
	}
	if claims.UserID != 42 || claims.CSRF != pair.CSRFToken {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := tokens.Parse(ctx, pair.RefreshToken, AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh token accepted as access token: %v", err)
	}
	if _, err := tokens.Parse(ctx, pair.AccessToken, RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access token accepted as refresh token: %v", err)
	}
}

func TestTokens_RejectsBadTokens(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour, 24*time.Hour, nil)
	ctx := context.Background()
	pair, _ := tokens.Issue(1)

	t.Run("expired", func(t *testing.T) {
		expired := NewTokens(testSecret, time.Hour, 24*time.Hour, nil)
		expired.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
		old, _ := expired.Issue(1)
		if _, err := tokens.Parse(ctx, old.AccessToken, AccessToken); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expired token error = %v", err)
		}
	})

	t.Run("wrong signature", func(t *testing.T) {
		parts := strings.Split(pair.AccessToken, ".")
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		tampered := parts[0] + "." + parts[1] + "." + string(sig)
		if _, err := tokens.Parse(ctx, tampered, AccessToken); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("tampered token error = %v", err)
		}
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewTokens("another-secret-0123456789", time.Hour, time.Hour, nil)
		if _, err := other.Parse(ctx, pair.AccessToken, AccessToken); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("foreign token error = %v", err)
		}
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := Claims{UserID: 1, Type: AccessToken, RegisteredClaims: jwt.RegisteredClaims{
			ID: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tokens.Parse(ctx, raw, AccessToken); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("alg=none token error = %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := tokens.Parse(ctx, "not.a.jwt", AccessToken); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("garbage error = %v", err)
		}
	})
}

func TestTokens_RevokeAndRefresh(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour, 24*time.Hour, NewMemoryRevoker())
	ctx := context.Background()
	pair, _ := tokens.Issue(7)

	claims, err := tokens.Parse(ctx, pair.AccessToken, AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if err := tokens.Revoke(ctx, claims); err != nil {
		t.Fatal(err)
	}
	if _, err := tokens.Parse(ctx, pair.AccessToken, AccessToken); !errors.Is(err, ErrRevokedToken) {
		t.Errorf("revoked token error = %v", err)
	}

	fresh, err := tokens.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := tokens.Parse(ctx, fresh.AccessToken, AccessToken); err != nil {
		t.Errorf("refreshed access token rejected: %v", err)
	}
	if _, err := tokens.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRevokedToken) {
		t.Errorf("reused refresh token error = %v", err)
	}
}

func TestTokens_ConcurrentRefreshSingleWinner(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour, 24*time.Hour, NewMemoryRevoker())
	pair, _ := tokens.Issue(7)

	const callers = 16
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tokens.Refresh(context.Background(), pair.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, revoked int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrRevokedToken):
			revoked++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || revoked != callers-1 {
		t.Errorf("ok=%d revoked=%d, want exactly one successful refresh", ok, revoked)
	}
}

func TestMemoryRevoker_FirstRevocation(t *testing.T) {
	m := NewMemoryRevoker()
	ctx := context.Background()
	until := time.Now().Add(time.Minute)

	if first, err := m.Revoke(ctx, "x", until); err != nil || !first {
		t.Errorf("first revoke = %v, %v", first, err)
	}
	if first, _ := m.Revoke(ctx, "x", until); first {
		t.Error("second revoke of the same id should not report first")
	}
}

func TestMemoryRevoker_Expiry(t *testing.T) {
	m := NewMemoryRevoker()
	now := time.Date(2024, 6, 13, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	m.Revoke(ctx, "a", now.Add(time.Minute))
	m.Revoke(ctx, "past", now.Add(-time.Minute))

	if ok, _ := m.Revoked(ctx, "a"); !ok {
		t.Error("a should be revoked")
	}
	if ok, _ := m.Revoked(ctx, "past"); ok {
		t.Error("already expired tokens need no entry")
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := m.Revoked(ctx, "a"); ok {
		t.Error("entry should lapse with the token")
	}
	m.Revoke(ctx, "b", now.Add(time.Minute))
	if _, ok := m.entries["a"]; ok {
		t.Error("stale entry should be pruned")
	}
}

func TestRedisRevoker_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	r := NewRedisRevoker(client)

	if _, err := r.Revoke(context.Background(), "id", time.Now().Add(time.Minute)); err == nil {
		t.Error("expected an error from an unreachable redis")
	}
	if _, err := r.Revoked(context.Background(), "id"); err == nil {
		t.Error("expected an error from an unreachable redis")
	}
	if _, err := r.Revoke(context.Background(), "id", time.Now().Add(-time.Minute)); err != nil {
		t.Errorf("expired tokens should not touch redis: %v", err)
	}
}
