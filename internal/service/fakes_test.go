package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lapply/lapply/internal/entity"
	"github.com/lapply/lapply/pkg/line"
)

// In-memory repository fakes. They are mutex-guarded so the concurrency
// tests can hammer them from multiple goroutines.

type fakeApplicationRepo struct {
	mu            sync.Mutex
	apps          map[string]*entity.Application
	transitionErr error
	pendingWork   []string
}

func newFakeApplicationRepo(apps ...*entity.Application) *fakeApplicationRepo {
	repo := &fakeApplicationRepo{apps: make(map[string]*entity.Application)}
	for _, app := range apps {
		copied := *app
		repo.apps[app.ID] = &copied
	}
	return repo
}

func (f *fakeApplicationRepo) GetByID(_ context.Context, id string) (*entity.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	app, ok := f.apps[id]
	if !ok {
		return nil, entity.ErrApplicationNotFound
	}
	copied := *app
	return &copied, nil
}

func (f *fakeApplicationRepo) TransitionToCanceled(_ context.Context, id string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.transitionErr != nil {
		return f.transitionErr
	}

	app, ok := f.apps[id]
	if !ok {
		return entity.ErrApplicationNotFound
	}
	if app.Status.IsCanceled() {
		return entity.ErrAlreadyCanceled
	}
	if !app.Status.IsCancelable() {
		return entity.ErrNotCancelable
	}

	app.Status = entity.ApplicationStatusCanceled
	app.CanceledAt = &now
	return nil
}

func (f *fakeApplicationRepo) ClaimSlotRelease(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	app, ok := f.apps[id]
	if !ok {
		return false, entity.ErrApplicationNotFound
	}
	if app.SlotReleased {
		return false, nil
	}
	app.SlotReleased = true
	return true, nil
}

func (f *fakeApplicationRepo) ResetSlotRelease(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if app, ok := f.apps[id]; ok {
		app.SlotReleased = false
	}
	return nil
}

func (f *fakeApplicationRepo) FindCancelable(_ context.Context, userID, organizationID string, now time.Time) ([]*entity.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*entity.Application
	for _, app := range f.apps {
		if app.UserID != userID || app.OrganizationID != organizationID {
			continue
		}
		if app.Status != entity.ApplicationStatusApplied {
			continue
		}
		if app.SlotAt == nil || !app.SlotAt.After(now) {
			continue
		}
		copied := *app
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotAt.Before(*out[j].SlotAt) })
	return out, nil
}

func (f *fakeApplicationRepo) FindCanceledWithPendingWork(_ context.Context, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := f.pendingWork
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeApplicationRepo) GetByOrganization(_ context.Context, organizationID string, limit, offset int) ([]*entity.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*entity.Application
	for _, app := range f.apps {
		if app.OrganizationID != organizationID {
			continue
		}
		copied := *app
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeApplicationRepo) get(id string) *entity.Application {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *f.apps[id]
	return &copied
}

type fakeReminderRepo struct {
	mu        sync.Mutex
	reminders []*entity.Reminder
	cancelErr error
}

func (f *fakeReminderRepo) CancelPending(_ context.Context, applicationID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancelErr != nil {
		return 0, f.cancelErr
	}

	var count int64
	for _, r := range f.reminders {
		if r.ApplicationID == applicationID && !r.Canceled {
			r.Canceled = true
			count++
		}
	}
	return count, nil
}

func (f *fakeReminderRepo) GetByApplication(_ context.Context, applicationID string) ([]*entity.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*entity.Reminder
	for _, r := range f.reminders {
		if r.ApplicationID == applicationID {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) GetDue(_ context.Context, now time.Time, limit int) ([]*entity.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*entity.Reminder
	for _, r := range f.reminders {
		if r.Canceled || r.SentAt != nil || r.ScheduledAt.After(now) {
			continue
		}
		copied := *r
		out = append(out, &copied)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) MarkSent(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range f.reminders {
		if r.ID == id {
			sentAt := at
			r.SentAt = &sentAt
		}
	}
	return nil
}

func (f *fakeReminderRepo) liveCount(applicationID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, r := range f.reminders {
		if r.ApplicationID == applicationID && !r.Canceled {
			count++
		}
	}
	return count
}

type fakeStepRepo struct {
	mu      sync.Mutex
	steps   []*entity.StepDelivery
	skipErr error
}

func (f *fakeStepRepo) SkipPending(_ context.Context, applicationID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.skipErr != nil {
		return 0, f.skipErr
	}

	var count int64
	for _, s := range f.steps {
		if s.ApplicationID == applicationID && s.Status == entity.StepDeliveryStatusPending {
			s.Status = entity.StepDeliveryStatusSkipped
			count++
		}
	}
	return count, nil
}

func (f *fakeStepRepo) GetByApplication(_ context.Context, applicationID string) ([]*entity.StepDelivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*entity.StepDelivery
	for _, s := range f.steps {
		if s.ApplicationID == applicationID {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeStepRepo) GetDue(_ context.Context, now time.Time, limit int) ([]*entity.StepDelivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*entity.StepDelivery
	for _, s := range f.steps {
		if s.Status != entity.StepDeliveryStatusPending || s.ScheduledAt.After(now) {
			continue
		}
		copied := *s
		out = append(out, &copied)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStepRepo) MarkSent(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.steps {
		if s.ID == id {
			sentAt := at
			s.SentAt = &sentAt
			s.Status = entity.StepDeliveryStatusSent
		}
	}
	return nil
}

func (f *fakeStepRepo) pendingCount(applicationID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, s := range f.steps {
		if s.ApplicationID == applicationID && s.Status == entity.StepDeliveryStatusPending {
			count++
		}
	}
	return count
}

type fakeEventRepo struct {
	mu         sync.Mutex
	events     map[string]*entity.Event
	releaseErr error
}

func newFakeEventRepo(events ...*entity.Event) *fakeEventRepo {
	repo := &fakeEventRepo{events: make(map[string]*entity.Event)}
	for _, ev := range events {
		copied := *ev
		copied.Slots = append([]entity.EventSlot(nil), ev.Slots...)
		repo.events[ev.ID] = &copied
	}
	return repo
}

func (f *fakeEventRepo) GetByID(_ context.Context, id string) (*entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ev, ok := f.events[id]
	if !ok {
		return nil, entity.ErrEventNotFound
	}
	copied := *ev
	copied.Slots = append([]entity.EventSlot(nil), ev.Slots...)
	return &copied, nil
}

func (f *fakeEventRepo) ReleaseSlot(_ context.Context, eventID, slotID string) (*entity.SlotRelease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.releaseErr != nil {
		return nil, f.releaseErr
	}

	ev, ok := f.events[eventID]
	if !ok {
		return nil, nil
	}
	idx := ev.FindSlot(slotID)
	if idx < 0 {
		return nil, nil
	}

	slot := &ev.Slots[idx]
	if slot.CurrentCapacity == 0 {
		return nil, nil
	}

	previous := slot.CurrentCapacity
	slot.CurrentCapacity--

	return &entity.SlotRelease{
		EventID:  eventID,
		SlotID:   slotID,
		Previous: previous,
		Updated:  slot.CurrentCapacity,
	}, nil
}

func (f *fakeEventRepo) capacity(eventID, slotID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	ev := f.events[eventID]
	return ev.Slots[ev.FindSlot(slotID)].CurrentCapacity
}

type fakeOrganizationRepo struct {
	orgs map[string]*entity.Organization
}

func (f *fakeOrganizationRepo) GetByID(_ context.Context, id string) (*entity.Organization, error) {
	org, ok := f.orgs[id]
	if !ok {
		return nil, entity.ErrOrganizationNotFound
	}
	return org, nil
}

type fakePublisher struct {
	mu    sync.Mutex
	tasks []*Task
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, task *Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakePublisher) published() []*Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Task(nil), f.tasks...)
}

type pushedMessage struct {
	token string
	to    string
	text  string
}

type fakePusher struct {
	mu     sync.Mutex
	pushes []pushedMessage
	err    error
}

func (f *fakePusher) Push(_ context.Context, channelToken, to string, messages ...line.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	for _, m := range messages {
		f.pushes = append(f.pushes, pushedMessage{token: channelToken, to: to, text: m.Text})
	}
	return nil
}
