package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/studio-bookings/internal/adapters/memory"
	"github.com/robertarktes/studio-bookings/internal/auth"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService() *auth.Service {
	return auth.NewService(memory.NewStore(), auth.NewIssuer("test-secret", time.Hour), bcrypt.MinCost)
}

func TestIssuer_RoundTrip(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)
	token, exp, err := iss.Issue("user-1", domain.RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	actor, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", actor.ID)
	assert.True(t, actor.IsAdmin())
}

func TestIssuer_Rejects(t *testing.T) {
	token, _, err := auth.NewIssuer("secret", time.Hour).Issue("user-1", domain.RoleCustomer)
	require.NoError(t, err)

	_, err = auth.NewIssuer("other-secret", time.Hour).Parse(token)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	expired, _, err := auth.NewIssuer("secret", -time.Minute).Issue("user-1", domain.RoleCustomer)
	require.NoError(t, err)
	_, err = auth.NewIssuer("secret", time.Hour).Parse(expired)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	_, err = auth.NewIssuer("secret", time.Hour).Parse("not-a-token")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, auth.VerifyPassword(hash, "correct horse"))
	assert.False(t, auth.VerifyPassword(hash, "battery staple"))
}

func TestRegisterLoginMe(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	sess, err := svc.Register(ctx, auth.RegisterInput{Email: " Ana@Example.com ", Password: "longenough", Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", sess.User.Email)
	assert.Equal(t, domain.RoleCustomer, sess.User.Role)
	assert.NotEqual(t, "longenough", sess.User.PasswordHash)

	_, err = svc.Register(ctx, auth.RegisterInput{Email: "ana@example.com", Password: "longenough", Name: "Ana"})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	_, err = svc.Login(ctx, "ana@example.com", "wrong-password")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	_, err = svc.Login(ctx, "nobody@example.com", "longenough")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	login, err := svc.Login(ctx, "ANA@example.com", "longenough")
	require.NoError(t, err)
	actor, err := svc.Issuer().Parse(login.Token)
	require.NoError(t, err)

	me, err := svc.Me(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, "Ana", me.Name)
}

func TestRegister_Validation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	for _, in := range []auth.RegisterInput{
		{Email: "not-an-email", Password: "longenough", Name: "x"},
		{Email: "a@b.co", Password: "short", Name: "x"},
		{Email: "a@b.co", Password: "longenough", Name: " "},
	} {
		_, err := svc.Register(ctx, in)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput), "%+v", in)
	}
}

func TestBlacklistBlocksLogin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	sess, err := svc.Register(ctx, auth.RegisterInput{Email: "bo@example.com", Password: "longenough", Name: "Bo"})
	require.NoError(t, err)

	u, err := svc.SetBlacklisted(ctx, sess.User.ID, true)
	require.NoError(t, err)
	assert.True(t, u.IsBlacklisted)

	_, err = svc.Login(ctx, "bo@example.com", "longenough")
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = svc.SetBlacklisted(ctx, "missing", true)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	customers, err := svc.ListUsers(ctx, domain.RoleCustomer)
	require.NoError(t, err)
	assert.Len(t, customers, 1)
}
