package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"
	"github.com/Taka1304/sigza/internal/domain/repository"
)

// fakeTxManager runs the callback without a real transaction; repositories
// backed by in-memory maps do not need one.
type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]*model.User
	providers []model.UserProvider
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("users_email_key: %w", common.ErrConflict)
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) CreateProvider(ctx context.Context, provider *model.UserProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.providers {
		if p.UserID == provider.UserID && p.Provider == provider.Provider {
			return fmt.Errorf("user_providers_user_provider_key: %w", common.ErrConflict)
		}
		if p.Provider == provider.Provider && p.ProviderID == provider.ProviderID {
			return fmt.Errorf("user_providers_identity_key: %w", common.ErrConflict)
		}
	}
	r.providers = append(r.providers, *provider)
	return nil
}

func (r *fakeUserRepo) FindByProviderIdentity(ctx context.Context, provider, providerID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.providers {
		if p.Provider == provider && p.ProviderID == providerID {
			if u, ok := r.users[p.UserID]; ok {
				cp := *u
				return &cp, nil
			}
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUserRepo) ListProviders(ctx context.Context, userID string) ([]model.UserProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.UserProvider
	for _, p := range r.providers {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeOrgRepo struct {
	mu      sync.Mutex
	orgs    map[string]*model.Organization
	members map[string]*model.OrganizationMember
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{
		orgs:    map[string]*model.Organization{},
		members: map[string]*model.OrganizationMember{},
	}
}

func memberKey(userID, orgID string) string { return userID + "|" + orgID }

func (r *fakeOrgRepo) Create(ctx context.Context, tx *sql.Tx, org *model.Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orgs {
		if o.InviteCode == org.InviteCode {
			return fmt.Errorf("organizations_invite_code_key: %w", common.ErrConflict)
		}
	}
	cp := *org
	r.orgs[org.ID] = &cp
	return nil
}

func (r *fakeOrgRepo) FindByID(ctx context.Context, id string) (*model.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orgs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrgRepo) FindByInviteCode(ctx context.Context, code string) (*model.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orgs {
		if o.InviteCode == code {
			cp := *o
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeOrgRepo) List(ctx context.Context, limit, offset int) ([]model.Organization, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Organization
	for _, o := range r.orgs {
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (r *fakeOrgRepo) AddMember(ctx context.Context, tx *sql.Tx, member *model.OrganizationMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := memberKey(member.UserID, member.OrganizationID)
	if _, ok := r.members[key]; ok {
		return fmt.Errorf("organization_members_user_org_key: %w", common.ErrConflict)
	}
	cp := *member
	r.members[key] = &cp
	return nil
}

func (r *fakeOrgRepo) GetMember(ctx context.Context, userID, organizationID string) (*model.OrganizationMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[memberKey(userID, organizationID)]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeOrgRepo) ListMembers(ctx context.Context, organizationID string) ([]model.OrganizationMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.OrganizationMember
	for _, m := range r.members {
		if m.OrganizationID == organizationID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeOrgRepo) UpdateMemberRole(ctx context.Context, userID, organizationID string, role model.MemberRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[memberKey(userID, organizationID)]
	if !ok {
		return common.ErrNotFound
	}
	m.Role = role
	return nil
}

func (r *fakeOrgRepo) IsMember(ctx context.Context, userID, organizationID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[memberKey(userID, organizationID)]
	return ok, nil
}

func (r *fakeOrgRepo) OrgIDsForUser(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, m := range r.members {
		if m.UserID == userID {
			ids = append(ids, m.OrganizationID)
		}
	}
	return ids, nil
}

type fakeProblemRepo struct {
	mu          sync.Mutex
	problems    map[string]*model.Problem
	testCases   map[string][]model.TestCase
	sampleCodes map[string][]model.SampleCode
	tags        map[string]*model.Tag
	problemTags map[string][]string
	subs        *fakeSubmissionRepo
}

func newFakeProblemRepo() *fakeProblemRepo {
	return &fakeProblemRepo{
		problems:    map[string]*model.Problem{},
		testCases:   map[string][]model.TestCase{},
		sampleCodes: map[string][]model.SampleCode{},
		tags:        map[string]*model.Tag{},
		problemTags: map[string][]string{},
	}
}

func (r *fakeProblemRepo) CreateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.problems {
		if p.Slug == problem.Slug {
			return fmt.Errorf("problems_slug_key: %w", common.ErrDuplicateSlug)
		}
	}
	cp := *problem
	r.problems[problem.ID] = &cp
	return nil
}

func (r *fakeProblemRepo) UpdateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.problems[problem.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *problem
	r.problems[problem.ID] = &cp
	return nil
}

func (r *fakeProblemRepo) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProblemRepo) FindProblemBySlug(ctx context.Context, s string) (*model.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.problems {
		if p.Slug == s {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeProblemRepo) ListProblems(ctx context.Context, limit, offset int, filter repository.ProblemListFilter) ([]model.Problem, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Problem
	for _, p := range r.problems {
		if p.IsArchived && !filter.IncludeArchived {
			continue
		}
		if filter.OrganizationID != "" && p.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.DifficultyLevel != 0 && p.DifficultyLevel != filter.DifficultyLevel {
			continue
		}
		if filter.VisibleToOrgIDs != nil && !p.IsPublic {
			member := false
			for _, id := range filter.VisibleToOrgIDs {
				if id == p.OrganizationID {
					member = true
					break
				}
			}
			if !member {
				continue
			}
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *fakeProblemRepo) AddTestCases(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.testCases[problemID] = append(r.testCases[problemID], testCases...)
	return nil
}

func (r *fakeProblemRepo) GetTestCases(ctx context.Context, problemID string) ([]model.TestCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.TestCase(nil), r.testCases[problemID]...), nil
}

func (r *fakeProblemRepo) DeleteTestCases(ctx context.Context, tx *sql.Tx, problemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.testCases, problemID)
	return nil
}

func (r *fakeProblemRepo) CountTestCases(ctx context.Context, problemID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.testCases[problemID]), nil
}

func (r *fakeProblemRepo) UpsertSampleCode(ctx context.Context, tx *sql.Tx, sc *model.SampleCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.sampleCodes[sc.ProblemID]
	for i, cur := range existing {
		if cur.Language == sc.Language {
			existing[i] = *sc
			return nil
		}
	}
	r.sampleCodes[sc.ProblemID] = append(existing, *sc)
	return nil
}

func (r *fakeProblemRepo) GetSampleCodes(ctx context.Context, problemID string) ([]model.SampleCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.SampleCode(nil), r.sampleCodes[problemID]...), nil
}

func (r *fakeProblemRepo) FindOrCreateTag(ctx context.Context, tx *sql.Tx, tag *model.Tag) (*model.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tags[tag.Slug]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *tag
	r.tags[tag.Slug] = &cp
	out := cp
	return &out, nil
}

func (r *fakeProblemRepo) AddTagsToProblem(ctx context.Context, tx *sql.Tx, problemID string, tagIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.problemTags[problemID] = append(r.problemTags[problemID], tagIDs...)
	return nil
}

func (r *fakeProblemRepo) GetTagsByProblemID(ctx context.Context, problemID string) ([]model.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Tag
	for _, id := range r.problemTags[problemID] {
		for _, t := range r.tags {
			if t.ID == id {
				out = append(out, *t)
			}
		}
	}
	return out, nil
}

func (r *fakeProblemRepo) ClearProblemTags(ctx context.Context, tx *sql.Tx, problemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.problemTags, problemID)
	return nil
}

func (r *fakeProblemRepo) IncrementCounters(ctx context.Context, tx *sql.Tx, problemID string, accepted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.problems[problemID]
	if !ok {
		return common.ErrNotFound
	}
	p.SubmitCount++
	if accepted {
		p.AcceptCount++
	}
	return nil
}

func (r *fakeProblemRepo) RecomputeCounters(ctx context.Context, problemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.problems[problemID]
	if !ok {
		return common.ErrNotFound
	}
	var submitted, accepted int
	if r.subs != nil {
		r.subs.mu.Lock()
		for _, s := range r.subs.submissions {
			if s.ProblemID != problemID || s.Status == model.StatusPending {
				continue
			}
			submitted++
			if s.Status == model.StatusAccepted {
				accepted++
			}
		}
		r.subs.mu.Unlock()
	}
	p.SubmitCount = submitted
	p.AcceptCount = accepted
	return nil
}

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	submissions map[string]*model.Submission
	problemStat map[string][]model.AcceptedStat
	globalStat  []model.AcceptedStat
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{
		submissions: map[string]*model.Submission{},
		problemStat: map[string][]model.AcceptedStat{},
	}
}

func (r *fakeSubmissionRepo) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	if cp.Status == "" {
		cp.Status = model.StatusPending
	}
	cp.CreatedAt = time.Now()
	r.submissions[sub.ID] = &cp
	return nil
}

func (r *fakeSubmissionRepo) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSubmissionRepo) ApplyVerdict(ctx context.Context, tx *sql.Tx, submissionID string, v model.Verdict) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[submissionID]
	if !ok {
		return common.ErrNotFound
	}
	if s.Status != model.StatusPending {
		return common.ErrAlreadyJudged
	}
	s.Status = v.Status
	s.ExecutionTimeMs = v.ExecutionTimeMs
	s.MemoryUsageMb = v.MemoryUsageMb
	s.ErrorMessage = v.ErrorMessage
	s.Score = v.Score
	s.TestResults = v.TestResults
	return nil
}

func (r *fakeSubmissionRepo) ListSubmissions(ctx context.Context, filter model.SubmissionFilter, limit, offset int) ([]model.Submission, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Submission
	for _, s := range r.submissions {
		if filter.UserID != "" && s.UserID != filter.UserID {
			continue
		}
		if filter.ProblemID != "" && s.ProblemID != filter.ProblemID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (r *fakeSubmissionRepo) FastestAccepted(ctx context.Context, problemID string, limit int) ([]model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Submission
	for _, s := range r.submissions {
		if s.ProblemID == problemID && s.Status == model.StatusAccepted {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) ProblemStats(ctx context.Context, problemID string) ([]model.AcceptedStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AcceptedStat(nil), r.problemStat[problemID]...), nil
}

func (r *fakeSubmissionRepo) GlobalStats(ctx context.Context) ([]model.AcceptedStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AcceptedStat(nil), r.globalStat...), nil
}

func (r *fakeSubmissionRepo) ProblemIDsWithSubmissions(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var ids []string
	for _, s := range r.submissions {
		if !seen[s.ProblemID] {
			seen[s.ProblemID] = true
			ids = append(ids, s.ProblemID)
		}
	}
	return ids, nil
}

type fakeAuxRepo struct {
	mu            sync.Mutex
	notifications []model.Notification
	announcements []model.Announcement
	settings      map[string]*model.SystemSetting
	learnings     []model.ExternalLearning
	attachments   []model.ExternalLearningAttachment
	learningTags  map[string][]string
	notifyErr     error
}

func newFakeAuxRepo() *fakeAuxRepo {
	return &fakeAuxRepo{
		settings:     map[string]*model.SystemSetting{},
		learningTags: map[string][]string{},
	}
}

func (r *fakeAuxRepo) CreateNotification(ctx context.Context, tx *sql.Tx, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notifyErr != nil {
		return r.notifyErr
	}
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *fakeAuxRepo) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, n := range r.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *fakeAuxRepo) MarkRead(ctx context.Context, userID, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.notifications {
		if n.ID == notificationID && n.UserID == userID {
			r.notifications[i].IsRead = true
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *fakeAuxRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeAuxRepo) CreateAnnouncement(ctx context.Context, a *model.Announcement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.announcements = append(r.announcements, *a)
	return nil
}

func (r *fakeAuxRepo) ListActiveAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []model.Announcement
	for _, a := range r.announcements {
		if a.PublishedAt.After(now) {
			continue
		}
		if a.ExpiresAt != nil && a.ExpiresAt.Before(now) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeAuxRepo) GetSetting(ctx context.Context, key string) (*model.SystemSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeAuxRepo) SetSetting(ctx context.Context, setting *model.SystemSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *setting
	r.settings[setting.Key] = &cp
	return nil
}

func (r *fakeAuxRepo) CreateExternalLearning(ctx context.Context, tx *sql.Tx, el *model.ExternalLearning) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.learnings = append(r.learnings, *el)
	return nil
}

func (r *fakeAuxRepo) AddAttachments(ctx context.Context, tx *sql.Tx, attachments []model.ExternalLearningAttachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attachments = append(r.attachments, attachments...)
	return nil
}

func (r *fakeAuxRepo) AddTags(ctx context.Context, tx *sql.Tx, externalLearningID string, tagIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range tagIDs {
		dup := false
		for _, cur := range r.learningTags[externalLearningID] {
			if cur == id {
				dup = true
				break
			}
		}
		if !dup {
			r.learningTags[externalLearningID] = append(r.learningTags[externalLearningID], id)
		}
	}
	return nil
}

func (r *fakeAuxRepo) ListExternalLearnings(ctx context.Context, userID string, limit, offset int) ([]model.ExternalLearning, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ExternalLearning
	for _, el := range r.learnings {
		if el.UserID == userID {
			out = append(out, el)
		}
	}
	return out, nil
}

type fakeSkillRepo struct {
	mu         sync.Mutex
	categories []model.SkillCategory
	skills     map[string]*model.Skill
	progress   map[string]*model.SkillProgress
}

func newFakeSkillRepo() *fakeSkillRepo {
	return &fakeSkillRepo{
		skills:   map[string]*model.Skill{},
		progress: map[string]*model.SkillProgress{},
	}
}

func (r *fakeSkillRepo) CreateCategory(ctx context.Context, category *model.SkillCategory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories = append(r.categories, *category)
	return nil
}

func (r *fakeSkillRepo) ListCategories(ctx context.Context) ([]model.SkillCategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.SkillCategory(nil), r.categories...), nil
}

func (r *fakeSkillRepo) CreateSkill(ctx context.Context, s *model.Skill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.skills[s.ID] = &cp
	return nil
}

func (r *fakeSkillRepo) FindSkillByID(ctx context.Context, id string) (*model.Skill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.skills[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSkillRepo) ListSkillsByCategory(ctx context.Context, categoryID string) ([]model.Skill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Skill
	for _, s := range r.skills {
		if s.CategoryID == categoryID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSkillRepo) MarkAchieved(ctx context.Context, p *model.SkillProgress) (*model.SkillProgress, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := p.UserID + "|" + p.SkillID
	if existing, ok := r.progress[key]; ok {
		if existing.IsAchieved {
			cp := *existing
			return &cp, false, nil
		}
		now := time.Now()
		existing.IsAchieved = true
		existing.AchievedAt = &now
		cp := *existing
		return &cp, true, nil
	}
	now := time.Now()
	cp := *p
	cp.IsAchieved = true
	cp.AchievedAt = &now
	cp.CreatedAt = now
	r.progress[key] = &cp
	out := cp
	return &out, true, nil
}

func (r *fakeSkillRepo) GetProgress(ctx context.Context, userID, skillID string) (*model.SkillProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.progress[userID+"|"+skillID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeSkillRepo) ListProgressByUser(ctx context.Context, userID string) ([]model.SkillProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SkillProgress
	for _, p := range r.progress {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeRankingRepo struct {
	mu        sync.Mutex
	snapshots []model.RankingSnapshot
}

func (r *fakeRankingRepo) Append(ctx context.Context, snapshot *model.RankingSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *snapshot
	cp.CreatedAt = time.Now().Add(time.Duration(len(r.snapshots)) * time.Millisecond)
	r.snapshots = append(r.snapshots, cp)
	return nil
}

func (r *fakeRankingRepo) Latest(ctx context.Context, rankingType model.RankingType, targetID *string) (*model.RankingSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *model.RankingSnapshot
	for i := range r.snapshots {
		s := &r.snapshots[i]
		if !matchesScope(s, rankingType, targetID) {
			continue
		}
		if best == nil || s.CreatedAt.After(best.CreatedAt) {
			best = s
		}
	}
	if best == nil {
		return nil, common.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *fakeRankingRepo) History(ctx context.Context, rankingType model.RankingType, targetID *string, limit int) ([]model.RankingSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.RankingSnapshot
	for i := len(r.snapshots) - 1; i >= 0 && len(out) < limit; i-- {
		if matchesScope(&r.snapshots[i], rankingType, targetID) {
			out = append(out, r.snapshots[i])
		}
	}
	return out, nil
}

func matchesScope(s *model.RankingSnapshot, rankingType model.RankingType, targetID *string) bool {
	if s.Type != rankingType {
		return false
	}
	if targetID == nil {
		return s.TargetID == nil
	}
	return s.TargetID != nil && *s.TargetID == *targetID
}

type fakeDispatcher struct {
	mu         sync.Mutex
	dispatched []string
	err        error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, submissionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.dispatched = append(d.dispatched, submissionID)
	return nil
}
