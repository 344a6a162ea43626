package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/models"
)

func paginate[T any](items []T, page models.Page) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	items = items[page.Offset:]
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}

type fakeRubricStore struct {
	templates map[uuid.UUID]models.RubricTemplate
	criteria  map[uuid.UUID]models.RubricCriterion
	position  int64
}

func newFakeRubricStore() *fakeRubricStore {
	return &fakeRubricStore{
		templates: map[uuid.UUID]models.RubricTemplate{},
		criteria:  map[uuid.UUID]models.RubricCriterion{},
	}
}

func (f *fakeRubricStore) CreateTemplate(_ context.Context, t *models.RubricTemplate) error {
	t.ID = uuid.New()
	t.CreatedAt, t.UpdatedAt = time.Now(), time.Now()
	f.templates[t.ID] = *t
	return nil
}

func (f *fakeRubricStore) GetTemplate(_ context.Context, id uuid.UUID) (*models.RubricTemplate, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, apperror.NotFound("rubric template")
	}
	return &t, nil
}

func (f *fakeRubricStore) ListTemplates(_ context.Context, q string, page models.Page) ([]models.RubricTemplate, int, error) {
	var out []models.RubricTemplate
	for _, t := range f.templates {
		if q == "" || strings.Contains(strings.ToLower(t.Name), strings.ToLower(q)) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, page), len(out), nil
}

func (f *fakeRubricStore) UpdateTemplate(_ context.Context, t *models.RubricTemplate) error {
	if _, ok := f.templates[t.ID]; !ok {
		return apperror.NotFound("rubric template")
	}
	f.templates[t.ID] = *t
	return nil
}

func (f *fakeRubricStore) DeleteTemplate(_ context.Context, id uuid.UUID) error {
	delete(f.templates, id)
	for cid, c := range f.criteria {
		if c.TemplateID == id {
			delete(f.criteria, cid)
		}
	}
	return nil
}

func (f *fakeRubricStore) CreateCriterion(_ context.Context, c *models.RubricCriterion) error {
	f.position++
	c.ID = uuid.New()
	c.Position = f.position
	f.criteria[c.ID] = *c
	return nil
}

func (f *fakeRubricStore) GetCriterion(_ context.Context, id uuid.UUID) (*models.RubricCriterion, error) {
	c, ok := f.criteria[id]
	if !ok {
		return nil, apperror.NotFound("rubric criterion")
	}
	return &c, nil
}

func (f *fakeRubricStore) ListCriteria(_ context.Context, templateID uuid.UUID) ([]models.RubricCriterion, error) {
	out := []models.RubricCriterion{}
	for _, c := range f.criteria {
		if c.TemplateID == templateID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeRubricStore) UpdateCriterion(_ context.Context, c *models.RubricCriterion) error {
	f.criteria[c.ID] = *c
	return nil
}

func (f *fakeRubricStore) DeleteCriterion(_ context.Context, id uuid.UUID) error {
	delete(f.criteria, id)
	return nil
}

type fakeGroupStore struct {
	groups map[uuid.UUID]models.ThesisGroup
}

func newFakeGroupStore() *fakeGroupStore {
	return &fakeGroupStore{groups: map[uuid.UUID]models.ThesisGroup{}}
}

func copyGroup(g models.ThesisGroup) models.ThesisGroup {
	g.MemberIDs = append([]uuid.UUID{}, g.MemberIDs...)
	return g
}

func (f *fakeGroupStore) Create(_ context.Context, g *models.ThesisGroup) error {
	g.ID = uuid.New()
	f.groups[g.ID] = copyGroup(*g)
	return nil
}

func (f *fakeGroupStore) GetByID(_ context.Context, id uuid.UUID) (*models.ThesisGroup, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, apperror.NotFound("thesis group")
	}
	g = copyGroup(g)
	return &g, nil
}

func (f *fakeGroupStore) List(_ context.Context, page models.Page) ([]models.ThesisGroup, int, error) {
	var out []models.ThesisGroup
	for _, g := range f.groups {
		out = append(out, copyGroup(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return paginate(out, page), len(out), nil
}

func (f *fakeGroupStore) ListByMember(_ context.Context, studentID uuid.UUID) ([]models.ThesisGroup, error) {
	var out []models.ThesisGroup
	for _, g := range f.groups {
		if g.HasMember(studentID) {
			out = append(out, copyGroup(g))
		}
	}
	return out, nil
}

func (f *fakeGroupStore) Update(_ context.Context, g *models.ThesisGroup) error {
	f.groups[g.ID] = copyGroup(*g)
	return nil
}

func (f *fakeGroupStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.groups, id)
	return nil
}

type fakeScheduleStore struct {
	schedules map[uuid.UUID]models.DefenseSchedule
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{schedules: map[uuid.UUID]models.DefenseSchedule{}}
}

func copySchedule(s models.DefenseSchedule) models.DefenseSchedule {
	s.PanelistIDs = append([]uuid.UUID{}, s.PanelistIDs...)
	return s
}

func (f *fakeScheduleStore) Create(_ context.Context, s *models.DefenseSchedule) error {
	s.ID = uuid.New()
	f.schedules[s.ID] = copySchedule(*s)
	return nil
}

func (f *fakeScheduleStore) GetByID(_ context.Context, id uuid.UUID) (*models.DefenseSchedule, error) {
	s, ok := f.schedules[id]
	if !ok {
		return nil, apperror.NotFound("defense schedule")
	}
	s = copySchedule(s)
	return &s, nil
}

func (f *fakeScheduleStore) List(_ context.Context, filter ScheduleFilter) ([]models.DefenseSchedule, int, error) {
	var out []models.DefenseSchedule
	for _, s := range f.schedules {
		if len(filter.GroupIDs) > 0 {
			match := false
			for _, g := range filter.GroupIDs {
				match = match || g == s.GroupID
			}
			if !match {
				continue
			}
		}
		out = append(out, copySchedule(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	return paginate(out, filter.Page), len(out), nil
}

func (f *fakeScheduleStore) Update(_ context.Context, s *models.DefenseSchedule) error {
	f.schedules[s.ID] = copySchedule(*s)
	return nil
}

type fakeEvaluationStore struct {
	mu          sync.Mutex
	evaluations map[uuid.UUID]models.Evaluation
	scores      map[uuid.UUID]map[uuid.UUID]models.EvaluationScore
	// beforeUpdate runs inside Update, simulating a concurrent writer
	beforeUpdate func(id uuid.UUID)
}

func newFakeEvaluationStore() *fakeEvaluationStore {
	return &fakeEvaluationStore{
		evaluations: map[uuid.UUID]models.Evaluation{},
		scores:      map[uuid.UUID]map[uuid.UUID]models.EvaluationScore{},
	}
}

func copyEvaluation(e models.Evaluation) models.Evaluation {
	overall := make(map[uuid.UUID]models.MemberOverall, len(e.MembersOverall))
	for k, v := range e.MembersOverall {
		overall[k] = v
	}
	e.MembersOverall = overall
	return e
}

func (f *fakeEvaluationStore) Create(_ context.Context, e *models.Evaluation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.evaluations {
		if existing.ScheduleID == e.ScheduleID && existing.EvaluatorID == e.EvaluatorID {
			return apperror.Conflict("evaluation already exists")
		}
	}
	e.ID = uuid.New()
	f.evaluations[e.ID] = copyEvaluation(*e)
	return nil
}

func (f *fakeEvaluationStore) GetByID(_ context.Context, id uuid.UUID) (*models.Evaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.evaluations[id]
	if !ok {
		return nil, apperror.NotFound("evaluation")
	}
	e = copyEvaluation(e)
	return &e, nil
}

func (f *fakeEvaluationStore) List(_ context.Context, filter EvaluationFilter) ([]models.Evaluation, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Evaluation
	for _, e := range f.evaluations {
		if filter.ScheduleID != nil && e.ScheduleID != *filter.ScheduleID {
			continue
		}
		if filter.EvaluatorID != nil && e.EvaluatorID != *filter.EvaluatorID {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, st := range filter.Statuses {
				match = match || st == e.Status
			}
			if !match {
				continue
			}
		}
		out = append(out, copyEvaluation(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return paginate(out, filter.Page), len(out), nil
}

func (f *fakeEvaluationStore) Update(_ context.Context, e *models.Evaluation, expected models.EvaluationStatus) error {
	if f.beforeUpdate != nil {
		f.beforeUpdate(e.ID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.evaluations[e.ID]
	if !ok {
		return apperror.NotFound("evaluation")
	}
	if current.Status != expected {
		return apperror.Conflict("evaluation was modified concurrently")
	}
	f.evaluations[e.ID] = copyEvaluation(*e)
	return nil
}

func (f *fakeEvaluationStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.evaluations, id)
	delete(f.scores, id)
	return nil
}

func (f *fakeEvaluationStore) ListScores(_ context.Context, ids ...uuid.UUID) ([]models.EvaluationScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.EvaluationScore{}
	for _, id := range ids {
		for _, sc := range f.scores[id] {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CriterionID.String() < out[j].CriterionID.String() })
	return out, nil
}

func (f *fakeEvaluationStore) UpsertScores(_ context.Context, evaluationID uuid.UUID, scores []models.EvaluationScore, check func(*models.Evaluation) error) ([]models.EvaluationScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.evaluations[evaluationID]
	if !ok {
		return nil, apperror.NotFound("evaluation")
	}
	if err := check(&e); err != nil {
		return nil, err
	}
	if f.scores[evaluationID] == nil {
		f.scores[evaluationID] = map[uuid.UUID]models.EvaluationScore{}
	}
	out := make([]models.EvaluationScore, len(scores))
	for i, sc := range scores {
		sc.UpdatedAt = time.Now()
		f.scores[evaluationID][sc.CriterionID] = sc
		out[i] = sc
	}
	return out, nil
}

// setScore writes a score directly, bypassing validation
func (f *fakeEvaluationStore) setScore(evaluationID, criterionID uuid.UUID, score int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scores[evaluationID] == nil {
		f.scores[evaluationID] = map[uuid.UUID]models.EvaluationScore{}
	}
	f.scores[evaluationID][criterionID] = models.EvaluationScore{EvaluationID: evaluationID, CriterionID: criterionID, Score: score}
}

type fakeStudentEvaluationStore struct {
	records map[uuid.UUID]models.StudentEvaluation
}

func newFakeStudentEvaluationStore() *fakeStudentEvaluationStore {
	return &fakeStudentEvaluationStore{records: map[uuid.UUID]models.StudentEvaluation{}}
}

func (f *fakeStudentEvaluationStore) Create(_ context.Context, e *models.StudentEvaluation) error {
	for _, existing := range f.records {
		if existing.ScheduleID == e.ScheduleID && existing.StudentID == e.StudentID {
			return apperror.Conflict("student evaluation already exists")
		}
	}
	e.ID = uuid.New()
	f.records[e.ID] = *e
	return nil
}

func (f *fakeStudentEvaluationStore) GetByID(_ context.Context, id uuid.UUID) (*models.StudentEvaluation, error) {
	e, ok := f.records[id]
	if !ok {
		return nil, apperror.NotFound("student evaluation")
	}
	return &e, nil
}

func (f *fakeStudentEvaluationStore) List(_ context.Context, filter StudentEvaluationFilter) ([]models.StudentEvaluation, int, error) {
	var out []models.StudentEvaluation
	for _, e := range f.records {
		if filter.StudentID != nil && e.StudentID != *filter.StudentID {
			continue
		}
		if filter.ScheduleID != nil && e.ScheduleID != *filter.ScheduleID {
			continue
		}
		out = append(out, e)
	}
	return paginate(out, filter.Page), len(out), nil
}

func (f *fakeStudentEvaluationStore) Update(_ context.Context, e *models.StudentEvaluation, expected models.EvaluationStatus) error {
	current, ok := f.records[e.ID]
	if !ok {
		return apperror.NotFound("student evaluation")
	}
	if current.Status != expected {
		return apperror.Conflict("student evaluation was modified concurrently")
	}
	f.records[e.ID] = *e
	return nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []models.AuditLog
	fail    bool
}

func (f *fakeAuditStore) Create(_ context.Context, entry *models.AuditLog) error {
	if f.fail {
		return errors.New("audit table unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = uuid.New()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditStore) List(_ context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AuditLog
	for _, e := range f.entries {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.Entity != "" && e.Entity != filter.Entity {
			continue
		}
		out = append(out, e)
	}
	return paginate(out, models.Page{Limit: filter.Limit, Offset: filter.Offset}), len(out), nil
}

func (f *fakeAuditStore) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.Action
	}
	return out
}

func (f *fakeAuditStore) last() models.AuditLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[len(f.entries)-1]
}

func (f *fakeAuditStore) lastDetails() map[string]any {
	var out map[string]any
	_ = json.Unmarshal(f.last().Details, &out)
	return out
}

type fakeUserStore struct {
	users map[uuid.UUID]models.User
	roles map[uuid.UUID][]string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uuid.UUID]models.User{}, roles: map[uuid.UUID][]string{}}
}

func (f *fakeUserStore) add(u models.User, roles ...string) models.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = u
	f.roles[u.ID] = roles
	return u
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user")
	}
	return &u, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user")
}

func (f *fakeUserStore) GetNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := map[uuid.UUID]string{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u.FullName
		}
	}
	return out, nil
}

func (f *fakeUserStore) GetRoles(_ context.Context, userID uuid.UUID) ([]string, error) {
	return f.roles[userID], nil
}

func (f *fakeUserStore) UpdateLastLogin(_ context.Context, userID uuid.UUID, at time.Time) error {
	u := f.users[userID]
	u.LastLoginAt = &at
	f.users[userID] = u
	return nil
}

type fakeTokenStore struct {
	tokens     map[string]models.PasswordResetToken
	users      *fakeUserStore
	fail       bool
	failUpdate bool
}

func newFakeTokenStore(users *fakeUserStore) *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]models.PasswordResetToken{}, users: users}
}

func (f *fakeTokenStore) CreatePasswordResetToken(_ context.Context, t *models.PasswordResetToken) error {
	if f.fail {
		return apperror.Unavailable("database unavailable", errors.New("connection refused"))
	}
	t.ID = uuid.New()
	f.tokens[t.Token] = *t
	return nil
}

func (f *fakeTokenStore) GetPasswordResetToken(_ context.Context, token string) (*models.PasswordResetToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, apperror.NotFound("password reset token")
	}
	return &t, nil
}

func (f *fakeTokenStore) ResetPassword(_ context.Context, tokenID, userID uuid.UUID, hash string, at time.Time) (bool, error) {
	for k, t := range f.tokens {
		if t.ID != tokenID {
			continue
		}
		if t.UsedAt != nil {
			return false, nil
		}
		if f.failUpdate {
			return false, apperror.Unavailable("database unavailable", errors.New("connection reset"))
		}
		u := f.users.users[userID]
		u.PasswordHash = hash
		f.users.users[userID] = u
		t.UsedAt = &at
		f.tokens[k] = t
		return true, nil
	}
	return false, nil
}

type publishedEvent struct {
	routingKey string
	payload    any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	fail   bool
}

func (f *fakePublisher) Publish(_ context.Context, routingKey string, payload any) error {
	if f.fail {
		return errors.New("broker unreachable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{routingKey: routingKey, payload: payload})
	return nil
}

func (f *fakePublisher) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.routingKey
	}
	return out
}

type sentMail struct {
	to, name, token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendPasswordResetEmail(to, name, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, name: name, token: token})
	return nil
}

// prefixSealer marks sealed payloads so tests can see what reached the store
type prefixSealer struct{}

func (prefixSealer) Seal(_ context.Context, plaintext []byte) ([]byte, error) {
	b, _ := json.Marshal(map[string]string{"sealed": string(plaintext)})
	return b, nil
}

func (prefixSealer) Open(_ context.Context, stored []byte) ([]byte, error) {
	var env map[string]string
	if err := json.Unmarshal(stored, &env); err != nil {
		return nil, err
	}
	return []byte(env["sealed"]), nil
}

// fixture wires every service against in-memory stores
type fixture struct {
	rubrics     *fakeRubricStore
	groups      *fakeGroupStore
	schedules   *fakeScheduleStore
	evaluations *fakeEvaluationStore
	studentEval *fakeStudentEvaluationStore
	auditStore  *fakeAuditStore
	users       *fakeUserStore
	tokens      *fakeTokenStore
	publisher   *fakePublisher
	mailer      *fakeMailer

	audit    *AuditService
	rubric   *RubricService
	group    *GroupService
	schedule *ScheduleService
	eval     *EvaluationService
	student  *StudentEvaluationService
	summary  *SummaryService

	admin models.Actor
}

func newFixture() *fixture {
	f := &fixture{
		rubrics:     newFakeRubricStore(),
		groups:      newFakeGroupStore(),
		schedules:   newFakeScheduleStore(),
		evaluations: newFakeEvaluationStore(),
		studentEval: newFakeStudentEvaluationStore(),
		auditStore:  &fakeAuditStore{},
		users:       newFakeUserStore(),
		publisher:   &fakePublisher{},
		mailer:      &fakeMailer{},
	}
	f.tokens = newFakeTokenStore(f.users)
	f.audit = NewAuditService(f.auditStore)
	f.rubric = NewRubricService(f.rubrics, f.audit)
	f.group = NewGroupService(f.groups, f.audit)
	f.schedule = NewScheduleService(f.schedules, f.groups, f.rubrics, f.audit)
	f.eval = NewEvaluationService(f.evaluations, f.schedules, f.groups, f.rubrics, f.audit, f.publisher)
	f.student = NewStudentEvaluationService(f.studentEval, f.schedules, f.groups, nil, f.audit, f.publisher)
	f.summary = NewSummaryService(f.groups, f.schedules, f.evaluations, f.rubrics, f.users)

	admin := f.users.add(models.User{Email: "admin@example.com", FullName: "Admin", IsActive: true}, models.RoleAdmin)
	f.admin = models.Actor{UserID: admin.ID, Roles: []string{models.RoleAdmin}}
	return f
}

func staffActor(id uuid.UUID) models.Actor {
	return models.Actor{UserID: id, Roles: []string{models.RoleStaff}}
}

func studentActor(id uuid.UUID) models.Actor {
	return models.Actor{UserID: id, Roles: []string{models.RoleStudent}}
}

// defense is a seeded schedule with a two-criterion rubric, two panelists
// and two students
type defense struct {
	template   models.RubricTemplate
	content    models.RubricCriterion
	delivery   models.RubricCriterion
	group      models.ThesisGroup
	schedule   models.DefenseSchedule
	panelistA  models.User
	panelistB  models.User
	studentOne models.User
	studentTwo models.User
}

func (f *fixture) seedDefense() defense {
	var d defense
	ctx := context.Background()

	d.panelistA = f.users.add(models.User{Email: "a@example.com", FullName: "Panelist A", IsActive: true}, models.RoleStaff)
	d.panelistB = f.users.add(models.User{Email: "b@example.com", FullName: "Panelist B", IsActive: true}, models.RoleStaff)
	d.studentOne = f.users.add(models.User{Email: "s1@example.com", FullName: "Student One", IsActive: true}, models.RoleStudent)
	d.studentTwo = f.users.add(models.User{Email: "s2@example.com", FullName: "Student Two", IsActive: true}, models.RoleStudent)

	name := "Defense Rubric"
	version := 1
	tpl, err := f.rubric.CreateTemplate(ctx, f.admin, TemplateInput{Name: &name, Version: &version})
	if err != nil {
		panic(err)
	}
	d.template = *tpl

	d.content = f.mustCriterion(tpl.ID, "Content", 1)
	d.delivery = f.mustCriterion(tpl.ID, "Delivery", 1)

	title := "Adaptive Grading Systems"
	members := []uuid.UUID{d.studentOne.ID, d.studentTwo.ID}
	g, err := f.group.Create(ctx, f.admin, GroupInput{Title: &title, MemberIDs: &members})
	if err != nil {
		panic(err)
	}
	d.group = *g

	at := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	panel := []uuid.UUID{d.panelistA.ID, d.panelistB.ID}
	s, err := f.schedule.Create(ctx, f.admin, ScheduleInput{
		GroupID:          &g.ID,
		ScheduledAt:      &at,
		RubricTemplateID: &tpl.ID,
		PanelistIDs:      &panel,
	})
	if err != nil {
		panic(err)
	}
	d.schedule = *s
	return d
}

func (f *fixture) mustCriterion(templateID uuid.UUID, name string, weight float64) models.RubricCriterion {
	minScore, maxScore := 0, 10
	c, err := f.rubric.AddCriterion(context.Background(), f.admin, templateID, CriterionInput{
		Criterion: &name,
		Weight:    &weight,
		MinScore:  &minScore,
		MaxScore:  &maxScore,
	})
	if err != nil {
		panic(err)
	}
	return *c
}

func ptr[T any](v T) *T { return &v }

func defaultTestPage() models.Page {
	return models.Page{Limit: 50}
}
