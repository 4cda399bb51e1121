package core

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"uamvh.cloud/escolar/config"
	"uamvh.cloud/escolar/escolar/v1/common"
	"uamvh.cloud/escolar/mockapi"
	"uamvh.cloud/escolar/notify"
	"uamvh.cloud/escolar/offline"
	"uamvh.cloud/escolar/store"
)

func TestNew(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	api := mockapi.New(nil)
	api.AddUser("lopez@uamvh.mx", "secreto")
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.API.URL = srv.URL
	cfg.Store.Driver = "sqlite"
	cfg.Store.DSN = ":memory:"
	cfg.Store.LogLevel = "silent"
	require.NoError(t, cfg.Validate())

	notes := &notify.Recorder{}
	app, err := New(ctx, cfg, Options{Notifier: notes, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	_, err = app.Session.Login(ctx, "lopez@uamvh.mx", "secreto")
	require.NoError(t, err)

	rec, outcome, err := app.Service.Students.Create(ctx, common.StudentDTO{FullName: "Ana Ruiz", RegistrationNumber: "2024099"})
	require.NoError(t, err)
	assert.Equal(t, offline.OutcomeOnline, outcome)
	assert.False(t, rec.Ref.Pending())
	assert.Equal(t, 1, notes.Count(notify.LevelSuccess))

	user, err := store.MustExist[common.LoginResponseDTO](ctx, app.Store, store.KeyCurrentUser)
	require.NoError(t, err)
	assert.Equal(t, "mock-token", user.Token)
}

func TestNewRejectsUnknownStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "redis"
	_, err := New(context.Background(), cfg, Options{Logger: zaptest.NewLogger(t)})
	assert.Error(t, err)
}
