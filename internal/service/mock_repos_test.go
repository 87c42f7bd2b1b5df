package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"stargate/backend/internal/model"
	"stargate/backend/internal/repository"
	pkgerrors "stargate/backend/pkg/errors"
)

// ── Mock PersonRepository ──

type mockPersonRepo struct {
	people    map[string]*model.Person // key: person_id
	summaries *mockCareerSummaryRepo
	seq       int
}

func newMockPersonRepo() *mockPersonRepo {
	return &mockPersonRepo{people: make(map[string]*model.Person)}
}

func (m *mockPersonRepo) byName(name string) *model.Person {
	for _, p := range m.people {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (m *mockPersonRepo) withSummary(p *model.Person) *model.Person {
	cp := *p
	cp.CareerSummary = nil
	if m.summaries != nil {
		if cs, ok := m.summaries.summaries[p.PersonID]; ok {
			s := *cs
			cp.CareerSummary = &s
		}
	}
	return &cp
}

func (m *mockPersonRepo) Create(_ context.Context, person *model.Person) error {
	if m.byName(person.Name) != nil {
		return gorm.ErrDuplicatedKey
	}
	if person.PersonID == "" {
		m.seq++
		person.PersonID = fmt.Sprintf("person-%03d", m.seq)
	}
	cp := *person
	m.people[person.PersonID] = &cp
	return nil
}

func (m *mockPersonRepo) CreateIfAbsent(ctx context.Context, person *model.Person) (bool, error) {
	if m.byName(person.Name) != nil {
		return false, nil
	}
	return true, m.Create(ctx, person)
}

func (m *mockPersonRepo) GetByID(_ context.Context, id string) (*model.Person, error) {
	if p, ok := m.people[id]; ok {
		return m.withSummary(p), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPersonRepo) GetByName(_ context.Context, name string) (*model.Person, error) {
	if p := m.byName(name); p != nil {
		return m.withSummary(p), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPersonRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Person, error) {
	return m.GetByID(ctx, id)
}

func (m *mockPersonRepo) sorted() []model.Person {
	result := make([]model.Person, 0, len(m.people))
	for _, p := range m.people {
		result = append(result, *m.withSummary(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func (m *mockPersonRepo) List(_ context.Context, offset, limit int) ([]model.Person, int64, error) {
	all := m.sorted()
	return page(all, offset, limit), int64(len(all)), nil
}

func (m *mockPersonRepo) Rename(_ context.Context, id, newName, _ string) error {
	p, ok := m.people[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if other := m.byName(newName); other != nil && other.PersonID != id {
		return gorm.ErrDuplicatedKey
	}
	p.Name = newName
	return nil
}

// ── Mock DutyRepository ──

type mockDutyRepo struct {
	duties map[string]*model.Duty // key: duty_id
	people *mockPersonRepo
	seq    int
	writes int
}

func newMockDutyRepo() *mockDutyRepo {
	return &mockDutyRepo{duties: make(map[string]*model.Duty)}
}

func (m *mockDutyRepo) Create(_ context.Context, duty *model.Duty) error {
	if duty.DutyEndDate == nil {
		for _, d := range m.duties {
			if d.PersonID == duty.PersonID && d.DutyEndDate == nil {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if duty.DutyID == "" {
		m.seq++
		duty.DutyID = fmt.Sprintf("duty-%03d", m.seq)
	}
	if duty.Version == 0 {
		duty.Version = 1
	}
	cp := *duty
	cp.Person = nil
	m.duties[duty.DutyID] = &cp
	m.writes++
	return nil
}

func (m *mockDutyRepo) byPerson(personID string) []model.Duty {
	var result []model.Duty
	for _, d := range m.duties {
		if d.PersonID == personID {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DutyStartDate.Before(result[j].DutyStartDate) })
	return result
}

func (m *mockDutyRepo) GetOpenByPerson(_ context.Context, personID string) (*model.Duty, error) {
	for _, d := range m.byPerson(personID) {
		if d.DutyEndDate == nil {
			return &d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDutyRepo) GetLatestByPerson(_ context.Context, personID string) (*model.Duty, error) {
	list := m.byPerson(personID)
	if len(list) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	latest := list[len(list)-1]
	return &latest, nil
}

func (m *mockDutyRepo) UpdateEndDate(_ context.Context, dutyID string, version int, endDate time.Time, _ string) error {
	d, ok := m.duties[dutyID]
	if !ok || d.Version != version || d.DutyEndDate != nil {
		return pkgerrors.ErrOptimisticLock
	}
	end := endDate
	d.DutyEndDate = &end
	d.Version++
	m.writes++
	return nil
}

func (m *mockDutyRepo) ListByPerson(_ context.Context, personID string) ([]model.Duty, error) {
	return m.byPerson(personID), nil
}

func (m *mockDutyRepo) ListWithPerson(_ context.Context, filter repository.DutyFilter) ([]model.Duty, int64, error) {
	var all []model.Duty
	for _, p := range m.people.sorted() {
		if filter.PersonID != "" && p.PersonID != filter.PersonID {
			continue
		}
		for _, d := range m.byPerson(p.PersonID) {
			if filter.Outcome != "" && d.Outcome != filter.Outcome {
				continue
			}
			if filter.OpenOnly && d.DutyEndDate != nil {
				continue
			}
			person := p
			d.Person = &person
			all = append(all, d)
		}
	}
	return page(all, filter.Offset, filter.Limit), int64(len(all)), nil
}

// ── Mock CareerSummaryRepository ──

type mockCareerSummaryRepo struct {
	summaries map[string]*model.CareerSummary // key: person_id
	people    *mockPersonRepo
	upsertErr error
	writes    int
}

func newMockCareerSummaryRepo() *mockCareerSummaryRepo {
	return &mockCareerSummaryRepo{summaries: make(map[string]*model.CareerSummary)}
}

func (m *mockCareerSummaryRepo) GetByPerson(_ context.Context, personID string) (*model.CareerSummary, error) {
	if cs, ok := m.summaries[personID]; ok {
		cp := *cs
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCareerSummaryRepo) Upsert(_ context.Context, summary *model.CareerSummary) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if existing, ok := m.summaries[summary.PersonID]; ok {
		summary.Version = existing.Version + 1
	} else if summary.Version == 0 {
		summary.Version = 1
	}
	cp := *summary
	m.summaries[summary.PersonID] = &cp
	m.writes++
	return nil
}

func (m *mockCareerSummaryRepo) ListAstronauts(_ context.Context, offset, limit int) ([]model.Person, int64, error) {
	var all []model.Person
	for _, p := range m.people.sorted() {
		if p.CareerSummary != nil {
			all = append(all, p)
		}
	}
	return page(all, offset, limit), int64(len(all)), nil
}

// ── 组装 ──

type mockRepos struct {
	person  *mockPersonRepo
	duty    *mockDutyRepo
	summary *mockCareerSummaryRepo
}

// newMockRepository 返回不带数据库连接的聚合；BeginTx 返回 nil 事务
func newMockRepository() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		person:  newMockPersonRepo(),
		duty:    newMockDutyRepo(),
		summary: newMockCareerSummaryRepo(),
	}
	m.person.summaries = m.summary
	m.duty.people = m.person
	m.summary.people = m.person

	repo := &repository.Repository{
		Person:        m.person,
		Duty:          m.duty,
		CareerSummary: m.summary,
	}
	return repo, m
}

func page[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
