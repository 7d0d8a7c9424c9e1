package authorization

import "context"

// Service decides whether an admin actor may perform an action on a report
// object.
type Service interface {
	Authorize(ctx context.Context, actor string, object string, action string) error
	GrantRole(ctx context.Context, actor string, role string) error
	RoleOf(ctx context.Context, actor string) (string, error)
}
