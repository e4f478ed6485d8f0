package authz

import (
	"context"
	"errors"

	"github.com/arenadesk/arenadesk/internal/booking"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Platform roles. super_admin operates across tenants; every other role is
// scoped to the tenant on its actor.
const (
	RoleSuperAdmin   = "super_admin"
	RoleAdmin        = "admin"
	RoleTeacher      = "teacher"
	RoleClient       = "client"
	RoleRentalPlayer = "rental_player"
)

type actorContextKey struct{}

func ContextWithActor(ctx context.Context, actor booking.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext retrieves the actor stored in ctx. The second return is
// false if no actor was stored.
func ActorFromContext(ctx context.Context) (booking.Actor, bool) {
	if ctx == nil {
		return booking.Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(booking.Actor)
	return actor, ok
}

// capabilities maps each role to the actions it may perform within its own
// tenant. super_admin is handled separately.
var capabilities = map[string]map[booking.Action]bool{
	RoleAdmin: {
		booking.ActionBook:          true,
		booking.ActionView:          true,
		booking.ActionCancel:        true,
		booking.ActionReschedule:    true,
		booking.ActionRecordPayment: true,
		booking.ActionManageCourts:  true,
	},
	RoleTeacher: {
		booking.ActionBook:       true,
		booking.ActionView:       true,
		booking.ActionCancel:     true,
		booking.ActionReschedule: true,
	},
	RoleClient: {
		booking.ActionBook:   true,
		booking.ActionView:   true,
		booking.ActionCancel: true,
	},
	RoleRentalPlayer: {
		booking.ActionBook: true,
		booking.ActionView: true,
	},
}

// Service is the single capability check consulted by the reservation
// engine. It implements booking.Authorizer.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Authorize reports whether actor may perform action against tenantID.
// super_admin may act on any tenant. All other roles are denied outside
// their own tenant, then checked against the capability table.
func (s *Service) Authorize(_ context.Context, actor booking.Actor, action booking.Action, tenantID int64) error {
	if actor.UserID == 0 || actor.Role == "" {
		return ErrUnauthenticated
	}

	if actor.Role == RoleSuperAdmin {
		return nil
	}
	if action == booking.ActionManageTenants {
		return ErrForbidden
	}
	if actor.TenantID != tenantID {
		return ErrForbidden
	}

	allowed, ok := capabilities[actor.Role]
	if !ok || !allowed[action] {
		return ErrForbidden
	}
	return nil
}
