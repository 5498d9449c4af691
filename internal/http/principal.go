package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/auth"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"
)

// Identity headers set by the authenticating reverse proxy. The service
// trusts them as supplied; credential verification happens upstream.
const (
	headerUserID      = "X-User-Id"
	headerUserRole    = "X-User-Role"
	headerCarbonLimit = "X-Carbon-Limit"
)

var errNoPrincipal = errors.New("missing or malformed identity headers")

// principalFromRequest reads the authenticated caller out of the
// identity headers. X-User-Id is required; X-User-Role defaults to
// "user"; X-Carbon-Limit is an optional kgCO2e decimal, absent meaning
// no limit configured.
func principalFromRequest(r *http.Request) (auth.Principal, error) {
	rawID := strings.TrimSpace(r.Header.Get(headerUserID))
	if rawID == "" {
		return auth.Principal{}, errNoPrincipal
	}
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || userID <= 0 {
		return auth.Principal{}, errNoPrincipal
	}

	role := core.RoleUser
	switch strings.TrimSpace(r.Header.Get(headerUserRole)) {
	case "", string(core.RoleUser):
	case string(core.RoleAdmin):
		role = core.RoleAdmin
	default:
		return auth.Principal{}, errNoPrincipal
	}

	p := auth.Principal{UserID: userID, Role: role}

	if rawLimit := strings.TrimSpace(r.Header.Get(headerCarbonLimit)); rawLimit != "" {
		limit, err := core.ParseAmount(rawLimit)
		if err != nil {
			return auth.Principal{}, errNoPrincipal
		}
		p.CarbonLimit = &limit
	}

	return p, nil
}
