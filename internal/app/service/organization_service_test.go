package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Taka1304/sigza/internal/app/service"
	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"
)

func newOrgFixture() (*service.OrganizationService, *fakeOrgRepo) {
	orgRepo := newFakeOrgRepo()
	svc := service.NewOrganizationService(orgRepo, fakeTxManager{})
	return svc, orgRepo
}

func TestCreateOrganization_CreatorBecomesLeader(t *testing.T) {
	svc, orgRepo := newOrgFixture()

	org, err := svc.CreateOrganization(context.Background(), "creator", service.CreateOrganizationRequest{Name: "Algo Club"})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	if org.InviteCode == "" {
		t.Fatalf("invite code not generated")
	}

	member, err := orgRepo.GetMember(context.Background(), "creator", org.ID)
	if err != nil {
		t.Fatalf("creator not a member: %v", err)
	}
	if member.Role != model.MemberRoleLeader {
		t.Fatalf("creator role = %q, want LEADER", member.Role)
	}
}

func TestJoin_ByInviteCode(t *testing.T) {
	svc, _ := newOrgFixture()

	org, err := svc.CreateOrganization(context.Background(), "creator", service.CreateOrganizationRequest{Name: "Algo Club"})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}

	member, err := svc.Join(context.Background(), "newbie", org.InviteCode)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if member.Role != model.MemberRoleMember {
		t.Fatalf("joined role = %q, want MEMBER", member.Role)
	}

	if _, err := svc.Join(context.Background(), "newbie", org.InviteCode); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("double join should conflict, got %v", err)
	}
	if _, err := svc.Join(context.Background(), "someone", "bogus-code"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("bad invite code should be not found, got %v", err)
	}
}

func TestListMembers_RequiresMembershipOrAdmin(t *testing.T) {
	svc, _ := newOrgFixture()

	org, _ := svc.CreateOrganization(context.Background(), "creator", service.CreateOrganizationRequest{Name: "Algo Club"})

	if _, err := svc.ListMembers(context.Background(), "outsider", org.ID, model.RoleUser); !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ListMembers(context.Background(), "creator", org.ID, model.RoleUser); err != nil {
		t.Fatalf("member list: %v", err)
	}
	if _, err := svc.ListMembers(context.Background(), "admin", org.ID, model.RoleSystemAdmin); err != nil {
		t.Fatalf("admin list: %v", err)
	}
}

func TestChangeMemberRole_LeaderOnly(t *testing.T) {
	svc, orgRepo := newOrgFixture()

	org, _ := svc.CreateOrganization(context.Background(), "leader", service.CreateOrganizationRequest{Name: "Algo Club"})
	svc.Join(context.Background(), "member-a", org.InviteCode)
	svc.Join(context.Background(), "member-b", org.InviteCode)

	err := svc.ChangeMemberRole(context.Background(), "member-a", org.ID, "member-b", model.RoleUser, model.MemberRoleLeader)
	if !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("plain member promoting: expected ErrForbidden, got %v", err)
	}

	if err := svc.ChangeMemberRole(context.Background(), "leader", org.ID, "member-a", model.RoleUser, model.MemberRoleLeader); err != nil {
		t.Fatalf("leader promoting: %v", err)
	}
	m, _ := orgRepo.GetMember(context.Background(), "member-a", org.ID)
	if m.Role != model.MemberRoleLeader {
		t.Fatalf("promotion not applied: %q", m.Role)
	}

	err = svc.ChangeMemberRole(context.Background(), "leader", org.ID, "member-b", model.RoleUser, model.MemberRole("OWNER"))
	if !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("unknown role: expected ErrBadRequest, got %v", err)
	}
}
