package permission

import (
	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/auth"
)

type Permission string

const (
	PermissionTrade         Permission = "trade"
	PermissionCreateRace    Permission = "create-race"
	PermissionJoinRace      Permission = "join-race"
	PermissionCreateAuction Permission = "create-auction"
	PermissionBid           Permission = "place-bid"
)

// permissions bound to the owner of an object
const (
	PermissionCancelAuction   Permission = "cancel-auction"
	PermissionStartRace       Permission = "start-race"
	PermissionStartTournament Permission = "start-tournament"
)

// collection of admin specific permissions
const (
	PermissionAdminExec Permission = "admin-exec"
	PermissionLoadPack  Permission = "load-pack"
)

type PermissionEvaluator interface {
	HasPermission(auth auth.Authentication, perm Permission) bool
	HasObjectPermission(auth auth.Authentication, perm Permission, objectOwner string) bool
}

func NewPermissionEvaluator() PermissionEvaluator {
	if ret, err := NewOpaPermissionEvaluator(); err != nil {
		log.Default().Error("failed to create permission evaluator", log.ErrorField(err))
		return nil
	} else {
		return ret
	}
}
