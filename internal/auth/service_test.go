package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/velanstores/backend-kadai/internal/repo"
)

type fakeAccounts struct {
	byEmail map[string]repo.AdminUser
	byID    map[uuid.UUID]repo.AdminUser
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		byEmail: map[string]repo.AdminUser{},
		byID:    map[uuid.UUID]repo.AdminUser{},
	}
}

func (f *fakeAccounts) add(u repo.AdminUser) {
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (repo.AdminUser, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return repo.AdminUser{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeAccounts) Get(_ context.Context, id uuid.UUID) (repo.AdminUser, error) {
	u, ok := f.byID[id]
	if !ok {
		return repo.AdminUser{}, pgx.ErrNoRows
	}
	return u, nil
}

func newTestService(t *testing.T, accounts Accounts) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Accounts:       accounts,
		Secret:         "super-secret-key",
		AccessTokenTTL: time.Minute,
		Issuer:         "backend-kadai",
		Audience:       "kadai-admin",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestServiceParseAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService(t, newFakeAccounts())
	fixed := time.Now()
	svc.WithNow(func() time.Time { return fixed })

	token, _, err := svc.signAccessToken("admin-id")
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}
	subject, err := svc.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if subject != "admin-id" {
		t.Fatalf("unexpected subject: %s", subject)
	}
}

func TestServiceParseAccessTokenRejectsExpired(t *testing.T) {
	svc := newTestService(t, newFakeAccounts())
	issued := time.Now().Add(-time.Hour)
	svc.WithNow(func() time.Time { return issued })

	token, _, err := svc.signAccessToken("admin-id")
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}

	svc.WithNow(time.Now)
	if _, err := svc.ParseAccessToken(token); err == nil {
		t.Fatal("expected expired token error")
	}
}

func TestServiceParseAccessTokenRejectsAlgorithmMismatch(t *testing.T) {
	svc := newTestService(t, newFakeAccounts())
	fixed := time.Now()
	svc.WithNow(func() time.Time { return fixed })

	built, err := jwt.NewBuilder().
		Subject("admin-id").
		Issuer(svc.issuer).
		Audience([]string{svc.audience}).
		IssuedAt(fixed).
		Expiration(fixed.Add(svc.accessTTL)).
		Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(built, jwt.WithKey(jwa.HS384, svc.secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := svc.ParseAccessToken(string(signed)); err == nil {
		t.Fatal("expected algorithm mismatch error")
	}
}

func TestServiceLogin(t *testing.T) {
	hash, err := argon2id.CreateHash("correct horse", argon2id.DefaultParams)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	accounts := newFakeAccounts()
	admin := repo.AdminUser{
		ID:           uuid.New(),
		Name:         "Velan",
		Email:        "admin@velanstores.in",
		PasswordHash: hash,
	}
	accounts.add(admin)
	svc := newTestService(t, accounts)

	result, err := svc.Login(context.Background(), "Admin@velanstores.in", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Account.ID != admin.ID.String() {
		t.Fatalf("unexpected account id: %s", result.Account.ID)
	}
	if result.AccessToken == "" {
		t.Fatal("expected access token")
	}
	subject, err := svc.ParseAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if subject != admin.ID.String() {
		t.Fatalf("unexpected token subject: %s", subject)
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	hash, err := argon2id.CreateHash("correct horse", argon2id.DefaultParams)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	accounts := newFakeAccounts()
	accounts.add(repo.AdminUser{
		ID:           uuid.New(),
		Email:        "admin@velanstores.in",
		PasswordHash: hash,
	})
	svc := newTestService(t, accounts)

	if _, err := svc.Login(context.Background(), "admin@velanstores.in", "wrong"); err == nil {
		t.Fatal("expected login failure for wrong password")
	}
	if _, err := svc.Login(context.Background(), "nobody@velanstores.in", "correct horse"); err == nil {
		t.Fatal("expected login failure for unknown email")
	}
}

func TestServiceMe(t *testing.T) {
	accounts := newFakeAccounts()
	admin := repo.AdminUser{ID: uuid.New(), Name: "Velan", Email: "admin@velanstores.in"}
	accounts.add(admin)
	svc := newTestService(t, accounts)

	account, err := svc.Me(context.Background(), admin.ID.String())
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if account.Email != admin.Email {
		t.Fatalf("unexpected email: %s", account.Email)
	}
	if _, err := svc.Me(context.Background(), uuid.NewString()); err == nil {
		t.Fatal("expected error for unknown account")
	}
	if _, err := svc.Me(context.Background(), "not-a-uuid"); err == nil {
		t.Fatal("expected error for malformed subject")
	}
}
