package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Taka1304/sigza/internal/app/service"
	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"
)

func newSubmissionFixture() (*service.SubmissionService, *fakeSubmissionRepo, *fakeProblemRepo, *fakeOrgRepo, *fakeAuxRepo, *fakeDispatcher) {
	subRepo := newFakeSubmissionRepo()
	probRepo := newFakeProblemRepo()
	probRepo.subs = subRepo
	orgRepo := newFakeOrgRepo()
	auxRepo := newFakeAuxRepo()
	dispatcher := &fakeDispatcher{}
	svc := service.NewSubmissionService(subRepo, probRepo, orgRepo, auxRepo, dispatcher, fakeTxManager{})
	return svc, subRepo, probRepo, orgRepo, auxRepo, dispatcher
}

func seedProblem(t *testing.T, probRepo *fakeProblemRepo, id string, public bool) *model.Problem {
	t.Helper()
	p := &model.Problem{
		ID:             id,
		OrganizationID: "org-1",
		Title:          "Two Sum",
		Slug:           "two-sum-" + id,
		Version:        1,
		IsPublic:       public,
	}
	if err := probRepo.CreateProblem(context.Background(), nil, p); err != nil {
		t.Fatalf("seed problem: %v", err)
	}
	return p
}

func TestRecordSubmission_CreatesPendingAndDispatches(t *testing.T) {
	svc, subRepo, probRepo, _, _, dispatcher := newSubmissionFixture()
	seedProblem(t, probRepo, "p1", true)

	sub, err := svc.RecordSubmission(context.Background(), "user-1", service.RecordSubmissionRequest{
		ProblemID: "p1",
		Language:  "go",
		Code:      "package main",
	})
	if err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}
	if sub.Status != model.StatusPending {
		t.Fatalf("expected pending status, got %q", sub.Status)
	}

	stored, err := subRepo.GetSubmissionByID(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("submission not persisted: %v", err)
	}
	if stored.Status != model.StatusPending {
		t.Fatalf("expected stored pending, got %q", stored.Status)
	}
	if len(dispatcher.dispatched) != 1 || dispatcher.dispatched[0] != sub.ID {
		t.Fatalf("expected dispatch of %s, got %v", sub.ID, dispatcher.dispatched)
	}
}

func TestRecordSubmission_PrivateProblemRequiresMembership(t *testing.T) {
	svc, _, probRepo, orgRepo, _, _ := newSubmissionFixture()
	seedProblem(t, probRepo, "p1", false)

	req := service.RecordSubmissionRequest{ProblemID: "p1", Language: "go", Code: "x"}

	if _, err := svc.RecordSubmission(context.Background(), "outsider", req); !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-member, got %v", err)
	}

	orgRepo.AddMember(context.Background(), nil, &model.OrganizationMember{
		UserID:         "member",
		OrganizationID: "org-1",
		Role:           model.MemberRoleMember,
	})
	if _, err := svc.RecordSubmission(context.Background(), "member", req); err != nil {
		t.Fatalf("expected member to submit, got %v", err)
	}
}

func TestRecordSubmission_RejectsOversizedCode(t *testing.T) {
	svc, _, probRepo, _, _, _ := newSubmissionFixture()
	seedProblem(t, probRepo, "p1", true)

	big := make([]byte, 64*1024+1)
	for i := range big {
		big[i] = 'a'
	}
	_, err := svc.RecordSubmission(context.Background(), "user-1", service.RecordSubmissionRequest{
		ProblemID: "p1",
		Language:  "go",
		Code:      string(big),
	})
	if !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestRecordSubmission_DispatchFailureSurfaces(t *testing.T) {
	svc, _, probRepo, _, _, dispatcher := newSubmissionFixture()
	seedProblem(t, probRepo, "p1", true)
	dispatcher.err = errors.New("redis down")

	_, err := svc.RecordSubmission(context.Background(), "user-1", service.RecordSubmissionRequest{
		ProblemID: "p1",
		Language:  "go",
		Code:      "x",
	})
	if !errors.Is(err, common.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func submitAndJudge(t *testing.T, svc *service.SubmissionService, userID, status string) string {
	t.Helper()
	sub, err := svc.RecordSubmission(context.Background(), userID, service.RecordSubmissionRequest{
		ProblemID: "p1",
		Language:  "go",
		Code:      "x",
	})
	if err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}
	if err := svc.ApplyVerdict(context.Background(), sub.ID, model.Verdict{Status: status}); err != nil {
		t.Fatalf("ApplyVerdict(%s): %v", status, err)
	}
	return sub.ID
}

func TestReconcileCounters_IgnoresPendingRows(t *testing.T) {
	svc, _, probRepo, orgRepo, _, _ := newSubmissionFixture()
	seedProblem(t, probRepo, "p1", true)
	problemSvc := service.NewProblemService(probRepo, orgRepo, fakeTxManager{})

	sub, err := svc.RecordSubmission(context.Background(), "user-1", service.RecordSubmissionRequest{
		ProblemID: "p1",
		Language:  "go",
		Code:      "x",
	})
	if err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}

	if err := problemSvc.ReconcileCounters(context.Background(), "p1"); err != nil {
		t.Fatalf("ReconcileCounters: %v", err)
	}
	p, _ := probRepo.FindProblemByID(context.Background(), "p1")
	if p.SubmitCount != 0 || p.AcceptCount != 0 {
		t.Fatalf("reconcile counted pending row: submit=%d accept=%d, want 0/0", p.SubmitCount, p.AcceptCount)
	}

	if err := svc.ApplyVerdict(context.Background(), sub.ID, model.Verdict{Status: model.StatusAccepted}); err != nil {
		t.Fatalf("ApplyVerdict: %v", err)
	}
	p, _ = probRepo.FindProblemByID(context.Background(), "p1")
	if p.SubmitCount != 1 || p.AcceptCount != 1 {
		t.Fatalf("after verdict: submit=%d accept=%d, want 1/1", p.SubmitCount, p.AcceptCount)
	}

	if err := problemSvc.ReconcileCounters(context.Background(), "p1"); err != nil {
		t.Fatalf("ReconcileCounters: %v", err)
	}
	p, _ = probRepo.FindProblemByID(context.Background(), "p1")
	if p.SubmitCount != 1 || p.AcceptCount != 1 {
		t.Fatalf("reconcile disagrees with live counters: submit=%d accept=%d, want 1/1", p.SubmitCount, p.AcceptCount)
	}
}

func TestApplyVerdict_CountersFollowVerdicts(t *testing.T) {
	svc, _, probRepo, _, _, _ := newSubmissionFixture()
	seedProblem(t, probRepo, "p1", true)

	submitAndJudge(t, svc, "user-1", model.StatusWrongAnswer)

	p, _ := probRepo.FindProblemByID(context.Background(), "p1")
	if p.SubmitCount != 1 || p.AcceptCount != 0 {
		t.Fatalf("after wrong answer: submit=%d accept=%d, want 1/0", p.SubmitCount, p.AcceptCount)
	}

	submitAndJudge(t, svc, "user-1", model.StatusAccepted)

	p, _ = probRepo.FindProblemByID(context.Background(), "p1")
	if p.SubmitCount != 2 || p.AcceptCount != 1 {
		t.Fatalf("after accept: submit=%d accept=%d, want 2/1", p.SubmitCount, p.AcceptCount)
	}
}

func TestApplyVerdict_SecondVerdictRejectedAndStateUnchanged(t *testing.T) {
	svc, subRepo, probRepo, _, _, _ := newSubmissionFixture()
	seedProblem(t, probRepo, "p1", true)

	id := submitAndJudge(t, svc, "user-1", model.StatusAccepted)

	err := svc.ApplyVerdict(context.Background(), id, model.Verdict{Status: model.StatusWrongAnswer})
	if !errors.Is(err, common.ErrAlreadyJudged) {
		t.Fatalf("expected ErrAlreadyJudged, got %v", err)
	}

	sub, _ := subRepo.GetSubmissionByID(context.Background(), id)
	if sub.Status != model.StatusAccepted {
		t.Fatalf("verdict overwritten: got %q", sub.Status)
	}
	p, _ := probRepo.FindProblemByID(context.Background(), "p1")
	if p.SubmitCount != 1 || p.AcceptCount != 1 {
		t.Fatalf("counters moved on rejected verdict: submit=%d accept=%d", p.SubmitCount, p.AcceptCount)
	}
}

func TestApplyVerdict_RejectsNonTerminalStatus(t *testing.T) {
	svc, _, probRepo, _, _, _ := newSubmissionFixture()
	seedProblem(t, probRepo, "p1", true)

	sub, err := svc.RecordSubmission(context.Background(), "user-1", service.RecordSubmissionRequest{
		ProblemID: "p1", Language: "go", Code: "x",
	})
	if err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}

	if err := svc.ApplyVerdict(context.Background(), sub.ID, model.Verdict{Status: model.StatusPending}); !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for pending verdict, got %v", err)
	}
	if err := svc.ApplyVerdict(context.Background(), sub.ID, model.Verdict{Status: ""}); !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for empty verdict, got %v", err)
	}
}

func TestApplyVerdict_UnknownSubmission(t *testing.T) {
	svc, _, probRepo, _, _, _ := newSubmissionFixture()
	seedProblem(t, probRepo, "p1", true)

	err := svc.ApplyVerdict(context.Background(), "missing", model.Verdict{Status: model.StatusAccepted})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyVerdict_NotifiesSubmitter(t *testing.T) {
	svc, _, probRepo, _, auxRepo, _ := newSubmissionFixture()
	seedProblem(t, probRepo, "p1", true)

	submitAndJudge(t, svc, "user-1", model.StatusAccepted)

	notifications, _ := auxRepo.ListNotifications(context.Background(), "user-1", false, 10, 0)
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}
	if notifications[0].Kind != "submission_judged" {
		t.Fatalf("unexpected notification kind %q", notifications[0].Kind)
	}
}

func TestApplyVerdict_NotificationFailureDoesNotFailVerdict(t *testing.T) {
	svc, subRepo, probRepo, _, auxRepo, _ := newSubmissionFixture()
	seedProblem(t, probRepo, "p1", true)
	auxRepo.notifyErr = errors.New("insert failed")

	id := submitAndJudge(t, svc, "user-1", model.StatusAccepted)

	sub, _ := subRepo.GetSubmissionByID(context.Background(), id)
	if sub.Status != model.StatusAccepted {
		t.Fatalf("verdict lost: %q", sub.Status)
	}
}

func TestGetSubmission_HidesCodeFromOtherUsers(t *testing.T) {
	svc, _, probRepo, _, _, _ := newSubmissionFixture()
	seedProblem(t, probRepo, "p1", true)

	sub, err := svc.RecordSubmission(context.Background(), "owner", service.RecordSubmissionRequest{
		ProblemID: "p1", Language: "go", Code: "secret code",
	})
	if err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}

	own, _ := svc.GetSubmission(context.Background(), sub.ID, "owner", model.RoleUser)
	if own.Code != "secret code" {
		t.Fatalf("owner should see code")
	}
	other, _ := svc.GetSubmission(context.Background(), sub.ID, "someone-else", model.RoleUser)
	if other.Code != "" {
		t.Fatalf("other user should not see code")
	}
	admin, _ := svc.GetSubmission(context.Background(), sub.ID, "admin", model.RoleSystemAdmin)
	if admin.Code != "secret code" {
		t.Fatalf("admin should see code")
	}
}
