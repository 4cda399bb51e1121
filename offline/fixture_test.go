package offline

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	v1 "uamvh.cloud/escolar/escolar/v1"
	"uamvh.cloud/escolar/mockapi"
	"uamvh.cloud/escolar/notify"
	"uamvh.cloud/escolar/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	api   *mockapi.Server
	svc   *Service
	notes *notify.Recorder
	store store.Store
}

func newFixture(t *testing.T, opts ServiceOptions) *fixture {
	t.Helper()

	api := mockapi.New(nil)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	client := v1.NewEscolarClient(srv.URL, "token", 2*time.Second)
	notes := &notify.Recorder{}
	s := store.NewMemStore()
	svc, err := NewService(client, s, notes, zaptest.NewLogger(t), opts)
	require.NoError(t, err)

	return &fixture{api: api, svc: svc, notes: notes, store: s}
}

func (f *fixture) offline() {
	f.svc.Tracker.SetOnline(context.Background(), false)
}

func (f *fixture) online() {
	f.svc.Tracker.SetOnline(context.Background(), true)
}

func (f *fixture) queue(t *testing.T) []Action {
	t.Helper()
	actions, err := f.svc.Log.List(context.Background())
	require.NoError(t, err)
	return actions
}
