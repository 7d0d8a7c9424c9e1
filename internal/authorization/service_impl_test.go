package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/loobook/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()

	db := dbtest.Open(t)
	require.NoError(t, AutoMigrate(db))

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	return NewService(Params{DB: db, Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeByRole(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.GrantRole(ctx, "vera", RoleViewer))
	require.NoError(t, svc.GrantRole(ctx, "andi", RoleAnalyst))
	require.NoError(t, svc.GrantRole(ctx, "ayu", RoleAdmin))

	cases := []struct {
		actor  string
		object string
		action string
		want   error
	}{
		{"vera", ObjectReport, ActionReportView, nil},
		{"vera", ObjectReport, ActionReportGenerate, ErrForbidden},
		{"andi", ObjectReport, ActionReportGenerate, nil},
		{"andi", ObjectReport, ActionReportExport, nil},
		{"andi", ObjectReport, ActionReportDelete, ErrForbidden},
		{"ayu", ObjectReport, ActionReportDelete, nil},
		{"ayu", ObjectBusiness, ActionBusinessManage, nil},
		{"ayu", ObjectAudit, ActionAuditView, nil},
		{"andi", ObjectAudit, ActionAuditView, ErrForbidden},
		{SystemActor, ObjectReport, ActionReportGenerate, nil},
		{SystemActor, ObjectBusiness, ActionBusinessManage, ErrForbidden},
		{"stranger", ObjectReport, ActionReportView, ErrForbidden},
	}
	for _, tc := range cases {
		err := svc.Authorize(ctx, tc.actor, tc.object, tc.action)
		if tc.want == nil {
			assert.NoError(t, err, "%s %s", tc.actor, tc.action)
			continue
		}
		assert.ErrorIs(t, err, tc.want, "%s %s", tc.actor, tc.action)
	}
}

func TestGrantRoleReplacesPreviousRole(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.GrantRole(ctx, "ayu", RoleAdmin))
	require.NoError(t, svc.Authorize(ctx, "ayu", ObjectReport, ActionReportDelete))

	require.NoError(t, svc.GrantRole(ctx, "ayu", RoleViewer))
	role, err := svc.RoleOf(ctx, "ayu")
	require.NoError(t, err)
	assert.Equal(t, RoleViewer, role)

	assert.ErrorIs(t, svc.Authorize(ctx, "ayu", ObjectReport, ActionReportDelete), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, "ayu", ObjectReport, ActionReportView))
}

func TestGrantRoleValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	assert.ErrorIs(t, svc.GrantRole(ctx, " ", RoleAdmin), ErrInvalidActor)
	assert.ErrorIs(t, svc.GrantRole(ctx, SystemActor, RoleAdmin), ErrInvalidActor)
	assert.ErrorIs(t, svc.GrantRole(ctx, "ayu", "owner"), ErrInvalidRole)
	assert.ErrorIs(t, svc.GrantRole(ctx, "ayu", RoleSystem), ErrInvalidRole)
}

func TestAuthorizeRejectsBlankInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	assert.ErrorIs(t, svc.Authorize(ctx, "", ObjectReport, ActionReportView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "ayu", "", ActionReportView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "ayu", ObjectReport, ""), ErrInvalidAction)
}

func TestNewEnforcerIsIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, AutoMigrate(db))

	_, err := NewEnforcer(db)
	require.NoError(t, err)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	policies, err := enforcer.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, policies, 14)
}
