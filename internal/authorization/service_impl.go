package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed model.conf
var modelText string

const (
	ObjectReport   = "report"
	ObjectBusiness = "business"
	ObjectAudit    = "audit"
)

const (
	ActionReportView     = "report.view"
	ActionReportExport   = "report.export"
	ActionReportGenerate = "report.generate"
	ActionReportDelete   = "report.delete"
	ActionReportImport   = "report.import"

	ActionBusinessManage = "business.manage"
	ActionAuditView      = "audit.view"
)

const (
	RoleViewer  = "viewer"
	RoleAnalyst = "analyst"
	RoleAdmin   = "admin"
	RoleSystem  = "system"
)

const SystemActor = "system"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	role, err := s.RoleOf(ctx, actor)
	if err != nil {
		s.logDenied(actor, object, action, err)
		return err
	}

	subject := subjectFor(actor)
	if err := s.ensureGrouping(subject, roleSubject(role)); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.logDenied(actor, object, action, ErrForbidden)
		return ErrForbidden
	}
	return nil
}

// RoleOf resolves the reporting role of actor. Unknown users are forbidden.
func (s *ServiceImpl) RoleOf(ctx context.Context, actor string) (string, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return "", ErrInvalidActor
	}
	if actor == SystemActor {
		return RoleSystem, nil
	}

	var member AdminMember
	err := s.db.WithContext(ctx).
		Where("username = ?", actor).
		Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrForbidden
	}
	if err != nil {
		return "", err
	}

	role := strings.ToLower(strings.TrimSpace(member.Role))
	if !validRole(role) {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) GrantRole(ctx context.Context, actor string, role string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" || actor == SystemActor {
		return ErrInvalidActor
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if !validRole(role) || role == RoleSystem {
		return ErrInvalidRole
	}

	member := AdminMember{Username: actor, Role: role}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(&member).Error; err != nil {
		return err
	}

	if err := s.ensureGrouping(subjectFor(actor), roleSubject(role)); err != nil {
		return err
	}
	s.log.Info("role granted", zap.String("actor", actor), zap.String("role", role))
	return nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) logDenied(actor, object, action string, reason error) {
	s.log.Warn("authorization denied",
		zap.String("actor", actor),
		zap.String("object", object),
		zap.String("action", action),
		zap.Error(reason),
	)
}

func subjectFor(actor string) string {
	if actor == SystemActor {
		return SystemActor
	}
	return fmt.Sprintf("user:%s", actor)
}

func roleSubject(role string) string {
	return fmt.Sprintf("role:%s", role)
}

func validRole(role string) bool {
	switch role {
	case RoleViewer, RoleAnalyst, RoleAdmin, RoleSystem:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Viewer permissions (read-only)
		{"role:viewer", ObjectReport, ActionReportView},

		// Analyst permissions
		{"role:analyst", ObjectReport, ActionReportView},
		{"role:analyst", ObjectReport, ActionReportExport},
		{"role:analyst", ObjectReport, ActionReportGenerate},

		// Admin permissions
		{"role:admin", ObjectReport, ActionReportView},
		{"role:admin", ObjectReport, ActionReportExport},
		{"role:admin", ObjectReport, ActionReportGenerate},
		{"role:admin", ObjectReport, ActionReportDelete},
		{"role:admin", ObjectReport, ActionReportImport},
		{"role:admin", ObjectBusiness, ActionBusinessManage},
		{"role:admin", ObjectAudit, ActionAuditView},

		// System permissions (for the batch CLI)
		{"role:system", ObjectReport, ActionReportView},
		{"role:system", ObjectReport, ActionReportGenerate},
		{"role:system", ObjectReport, ActionReportImport},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
