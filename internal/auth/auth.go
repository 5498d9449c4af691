// Package auth defines the authenticated principal handed to the core
// by the external auth layer, and the explicit authorization check the
// calling layer runs before reaching a core operation.
package auth

import (
	"errors"
	"fmt"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"
)

// Action names an operation a principal may be authorized to perform.
type Action string

const (
	ActionSubmitEmission Action = "submit_emission"
	ActionViewDashboard  Action = "view_dashboard"
	ActionUpdateLimit    Action = "update_limit"
	ActionImportBatch    Action = "import_batch"
	ActionRecordForUser  Action = "record_for_user"
	ActionViewOverview   Action = "view_overview"
)

// Principal is the already-authenticated caller. The core trusts it as
// supplied; credentials are verified upstream.
type Principal struct {
	UserID      int64
	Role        core.Role
	CarbonLimit *core.Amount
}

var ErrForbidden = errors.New("forbidden")

// adminOnly lists actions reserved for administrators; everything else
// is available to any authenticated principal.
var adminOnly = map[Action]bool{
	ActionImportBatch:   true,
	ActionRecordForUser: true,
	ActionViewOverview:  true,
}

// Authorize checks whether the principal may perform the action.
func Authorize(p Principal, action Action) error {
	if p.UserID <= 0 {
		return fmt.Errorf("%w: missing principal", ErrForbidden)
	}
	if adminOnly[action] && p.Role != core.RoleAdmin {
		return fmt.Errorf("%w: %s requires admin role", ErrForbidden, action)
	}
	return nil
}
