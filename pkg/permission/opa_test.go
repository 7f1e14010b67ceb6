//nolint:funlen // ok for this test code
package permission

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/carclash-server/pkg/auth"
)

var (
	admin  = auth.NewSimpleAuth("admin", auth.RoleAdmin)
	player = auth.NewSimpleAuth("p1", auth.RolePlayer)
	anon   = auth.Anonymous()
)

func TestOpa_HasPermission(t *testing.T) {
	type args struct {
		a    auth.Authentication
		perm Permission
	}
	tests := []struct {
		name string
		args args
		want bool
	}{
		{"player trades", args{player, PermissionTrade}, true},
		{"player creates race", args{player, PermissionCreateRace}, true},
		{"player admin exec", args{player, PermissionAdminExec}, false},
		{"player loads pack", args{player, PermissionLoadPack}, false},
		{"player owner bound without owner", args{player, PermissionCancelAuction}, false},
		{"admin exec", args{admin, PermissionAdminExec}, true},
		{"admin load pack", args{admin, PermissionLoadPack}, true},
		{"anon trades", args{anon, PermissionTrade}, false},
	}
	ope, err := NewOpaPermissionEvaluator()
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ope.HasPermission(tt.args.a, tt.args.perm); got != tt.want {
				t.Errorf("HasPermission() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpa_HasObjectPermission(t *testing.T) {
	type args struct {
		a     auth.Authentication
		perm  Permission
		owner string
	}
	tests := []struct {
		name string
		args args
		want bool
	}{
		{"seller cancels", args{player, PermissionCancelAuction, "p1"}, true},
		{"other cancels", args{player, PermissionCancelAuction, "p2"}, false},
		{"creator starts race", args{player, PermissionStartRace, "p1"}, true},
		{"other starts race", args{player, PermissionStartRace, "p2"}, false},
		{"creator starts tournament", args{player, PermissionStartTournament, "p1"}, true},
		{"other starts tournament", args{player, PermissionStartTournament, "p3"}, false},
		{"admin cancels foreign auction", args{admin, PermissionCancelAuction, "p2"}, true},
		{"anon with matching name", args{anon, PermissionStartRace, "anon"}, false},
		{"unbound action ignores owner", args{player, PermissionJoinRace, "p2"}, true},
	}
	ope, err := NewOpaPermissionEvaluator()
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ope.HasObjectPermission(tt.args.a, tt.args.perm, tt.args.owner)
			if got != tt.want {
				t.Errorf("HasObjectPermission() = %v, want %v", got, tt.want)
			}
		})
	}
}
