package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/pkg/config"
	"github.com/angelmondragon/moviestore/pkg/db/dbtest"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
	"github.com/angelmondragon/moviestore/pkg/security"
)

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func newRegisterService(t *testing.T) (RegisterService, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.OpenClient(t)
	svc, err := NewRegisterService(RegisterServiceParams{DB: client, PasswordConfig: testPasswordConfig})
	require.NoError(t, err)
	return svc, conn
}

func TestRegisterCreatesUserWithHashedPassword(t *testing.T) {
	svc, conn := newRegisterService(t)

	user, err := svc.Register(context.Background(), RegisterRequest{
		Username:  "moviebuff",
		Email:     "buff@example.com",
		Password1: "popcorn-night",
		Password2: "popcorn-night",
	})
	require.NoError(t, err)
	assert.Equal(t, "moviebuff", user.Username)

	var stored models.User
	require.NoError(t, conn.First(&stored, "id = ?", user.ID).Error)
	assert.NotEqual(t, "popcorn-night", stored.PasswordHash)
	ok, err := security.VerifyPassword("popcorn-night", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterRejectsTakenUsernameCaseInsensitively(t *testing.T) {
	svc, conn := newRegisterService(t)
	dbtest.MustCreateUser(t, conn, "moviebuff")

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username:  "MovieBuff",
		Email:     "buff@example.com",
		Password1: "popcorn-night",
		Password2: "popcorn-night",
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, pkgerrors.FieldErrors(err)["username"], "already exists")

	var count int64
	require.NoError(t, conn.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newRegisterService(t)

	tests := []struct {
		name  string
		req   RegisterRequest
		field string
		msg   string
	}{
		{
			name:  "mismatch",
			req:   RegisterRequest{Username: "ann", Email: "a@example.com", Password1: "popcorn-night", Password2: "popcorn-nite"},
			field: "password2",
			msg:   "didn't match",
		},
		{
			name:  "too short",
			req:   RegisterRequest{Username: "ann", Email: "a@example.com", Password1: "short", Password2: "short"},
			field: "password2",
			msg:   "too short",
		},
		{
			name:  "numeric",
			req:   RegisterRequest{Username: "ann", Email: "a@example.com", Password1: "8675309123", Password2: "8675309123"},
			field: "password2",
			msg:   "entirely numeric",
		},
		{
			name:  "similar to username",
			req:   RegisterRequest{Username: "spielberg", Email: "s@example.com", Password1: "spielberg99", Password2: "spielberg99"},
			field: "password2",
			msg:   "similar",
		},
		{
			name:  "common",
			req:   RegisterRequest{Username: "ann", Email: "a@example.com", Password1: "password1", Password2: "password1"},
			field: "password2",
			msg:   "too common",
		},
		{
			name:  "bad username characters",
			req:   RegisterRequest{Username: "ann smith", Email: "a@example.com", Password1: "popcorn-night", Password2: "popcorn-night"},
			field: "username",
			msg:   "valid username",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
			assert.Contains(t, pkgerrors.FieldErrors(err)[tt.field], tt.msg)
		})
	}
}

func TestNewRegisterServiceRequiresDB(t *testing.T) {
	_, err := NewRegisterService(RegisterServiceParams{})
	assert.Error(t, err)
}
