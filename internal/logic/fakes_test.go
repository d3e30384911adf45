package logic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/blues/cfp/internal/catalog"
	"github.com/blues/cfp/internal/event"
	"github.com/blues/cfp/internal/model"
)

// memStore 内存存储，三个fake仓储共享同一份数据
// withTx串行化事务并在context里打标记，嵌套调用复用外层事务
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	projects    map[int64]*model.ProjectModel
	tiers       map[int64]*model.RewardTierModel
	backings    map[int64]*model.BackingModel
	allocations []*model.BackingRewardModel
	updates     []model.ProjectUpdateModel

	nextProjectId int64
	nextTierId    int64
	nextBackingId int64
	nextAllocId   int64
}

type fakeTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		projects: make(map[int64]*model.ProjectModel),
		tiers:    make(map[int64]*model.RewardTierModel),
		backings: make(map[int64]*model.BackingModel),
	}
}

func (s *memStore) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(context.WithValue(ctx, fakeTxKey{}, true))
}

func (s *memStore) addProject(p *model.ProjectModel) *model.ProjectModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProjectId++
	p.Id = s.nextProjectId
	s.projects[p.Id] = p
	return p
}

func (s *memStore) addTier(t *model.RewardTierModel) *model.RewardTierModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTierId++
	t.Id = s.nextTierId
	if t.RemainingQuantity == 0 {
		t.RemainingQuantity = t.TotalQuantity
	}
	s.tiers[t.Id] = t
	return t
}

func (s *memStore) addBacking(b *model.BackingModel, allocations ...*model.BackingRewardModel) *model.BackingModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBackingId++
	b.Id = s.nextBackingId
	s.backings[b.Id] = b
	for _, a := range allocations {
		s.nextAllocId++
		a.Id = s.nextAllocId
		a.BackingId = b.Id
		a.ProjectId = b.ProjectId
		a.BackerId = b.BackerId
		s.allocations = append(s.allocations, a)
	}
	return b
}

func (s *memStore) project(id int64) *model.ProjectModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects[id]
}

func (s *memStore) tier(id int64) *model.RewardTierModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tiers[id]
}

func (s *memStore) backing(id int64) *model.BackingModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backings[id]
}

// fakeProjectRepo 实现 ProjectRepository
type fakeProjectRepo struct {
	store *memStore
}

func (r *fakeProjectRepo) Create(ctx context.Context, project *model.ProjectModel) error {
	r.store.addProject(project)
	return nil
}

func (r *fakeProjectRepo) Get(ctx context.Context, id int64) (*model.ProjectModel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: 项目 %d", model.ErrNotFound, id)
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProjectRepo) List(ctx context.Context, status, category string, creatorId int64, page, pageSize int) ([]model.ProjectModel, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []model.ProjectModel
	for _, p := range r.store.projects {
		if status != "" && string(p.Status) != status {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		if creatorId > 0 && p.CreatorId != creatorId {
			continue
		}
		result = append(result, *p)
	}
	return result, int64(len(result)), nil
}

func (r *fakeProjectRepo) ListByCreator(ctx context.Context, creatorId int64) ([]model.ProjectModel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []model.ProjectModel
	for _, p := range r.store.projects {
		if p.CreatorId == creatorId {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *fakeProjectRepo) TransitionStatus(ctx context.Context, id int64, from, to model.ProjectStatus, updates map[string]interface{}) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.projects[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	for k, v := range updates {
		switch k {
		case "approved_by":
			p.ApprovedBy = v.(int64)
		case "approved_at":
			p.ApprovedAt = v.(*time.Time)
		case "reject_reason":
			p.RejectReason = v.(string)
		case "product_id":
			p.ProductId = v.(int64)
		}
	}
	return true, nil
}

func (r *fakeProjectRepo) AddCurrentAmount(ctx context.Context, id int64, delta int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.projects[id]
	if !ok {
		return fmt.Errorf("%w: 项目 %d", model.ErrNotFound, id)
	}
	p.CurrentAmount += delta
	return nil
}

func (r *fakeProjectRepo) FindEndedActive(ctx context.Context, now time.Time) ([]model.ProjectModel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []model.ProjectModel
	for _, p := range r.store.projects {
		if p.Status == model.ProjectStatusActive && !p.EndTime.After(now) {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *fakeProjectRepo) FindByStatus(ctx context.Context, status model.ProjectStatus) ([]model.ProjectModel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []model.ProjectModel
	for _, p := range r.store.projects {
		if p.Status == status {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *fakeProjectRepo) CreateUpdate(ctx context.Context, update *model.ProjectUpdateModel) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	update.Id = int64(len(r.store.updates) + 1)
	update.CreatedAt = time.Now()
	r.store.updates = append(r.store.updates, *update)
	return nil
}

func (r *fakeProjectRepo) ListUpdates(ctx context.Context, projectId int64) ([]model.ProjectUpdateModel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []model.ProjectUpdateModel
	for _, u := range r.store.updates {
		if u.ProjectId == projectId {
			result = append(result, u)
		}
	}
	return result, nil
}

// fakeRewardRepo 实现 RewardRepository
type fakeRewardRepo struct {
	store *memStore
}

func (r *fakeRewardRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.store.withTx(ctx, fn)
}

func (r *fakeRewardRepo) Create(ctx context.Context, tier *model.RewardTierModel) error {
	r.store.addTier(tier)
	return nil
}

func (r *fakeRewardRepo) Get(ctx context.Context, id int64) (*model.RewardTierModel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tiers[id]
	if !ok {
		return nil, fmt.Errorf("%w: 回报档位 %d", model.ErrNotFound, id)
	}
	copied := *t
	return &copied, nil
}

func (r *fakeRewardRepo) GetForUpdate(ctx context.Context, id int64) (*model.RewardTierModel, error) {
	return r.Get(ctx, id)
}

func (r *fakeRewardRepo) ListByProject(ctx context.Context, projectId int64) ([]model.RewardTierModel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []model.RewardTierModel
	for _, t := range r.store.tiers {
		if t.ProjectId == projectId {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (r *fakeRewardRepo) SumBackerAllocations(ctx context.Context, rewardId, backerId int64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var sum int64
	for _, a := range r.store.allocations {
		if a.RewardId == rewardId && a.BackerId == backerId && !a.Released {
			sum += a.Quantity
		}
	}
	return sum, nil
}

func (r *fakeRewardRepo) ApplyReservation(ctx context.Context, rewardId, quantity, earlyBirdQty int64) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tiers[rewardId]
	if !ok {
		return false, nil
	}
	if t.RemainingQuantity < quantity || t.EarlyBirdGranted+earlyBirdQty > t.EarlyBirdLimit {
		return false, nil
	}
	t.RemainingQuantity -= quantity
	t.EarlyBirdGranted += earlyBirdQty
	return true, nil
}

func (r *fakeRewardRepo) ApplyRelease(ctx context.Context, rewardId, quantity, earlyBirdQty int64) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tiers[rewardId]
	if !ok {
		return false, nil
	}
	if t.RemainingQuantity+quantity > t.TotalQuantity || t.EarlyBirdGranted-earlyBirdQty < 0 {
		return false, nil
	}
	t.RemainingQuantity += quantity
	t.EarlyBirdGranted -= earlyBirdQty
	return true, nil
}

// fakeBackingRepo 实现 BackingRepository
type fakeBackingRepo struct {
	store *memStore
}

func (r *fakeBackingRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.store.withTx(ctx, fn)
}

func (r *fakeBackingRepo) Create(ctx context.Context, backing *model.BackingModel, allocations []model.BackingRewardModel) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.nextBackingId++
	backing.Id = r.store.nextBackingId
	backing.CreatedAt = time.Now()
	r.store.backings[backing.Id] = backing
	for i := range allocations {
		a := allocations[i]
		r.store.nextAllocId++
		a.Id = r.store.nextAllocId
		a.BackingId = backing.Id
		r.store.allocations = append(r.store.allocations, &a)
	}
	return nil
}

func (r *fakeBackingRepo) Get(ctx context.Context, id int64) (*model.BackingModel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.backings[id]
	if !ok {
		return nil, fmt.Errorf("%w: 支持记录 %d", model.ErrNotFound, id)
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBackingRepo) ConfirmPayment(ctx context.Context, id int64, paymentId string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.backings[id]
	if !ok || b.PaymentStatus != model.BackingStatusPending {
		return false, nil
	}
	b.PaymentStatus = model.BackingStatusConfirmed
	b.PaymentId = paymentId
	return true, nil
}

func (r *fakeBackingRepo) TransitionStatus(ctx context.Context, id int64, from, to model.BackingStatus, updates map[string]interface{}) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.backings[id]
	if !ok || b.PaymentStatus != from {
		return false, nil
	}
	b.PaymentStatus = to
	if reason, ok := updates["refund_reason"].(string); ok {
		b.RefundReason = reason
	}
	return true, nil
}

func (r *fakeBackingRepo) ListUnreleasedAllocations(ctx context.Context, backingId int64) ([]model.BackingRewardModel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []model.BackingRewardModel
	for _, a := range r.store.allocations {
		if a.BackingId == backingId && !a.Released {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (r *fakeBackingRepo) MarkAllocationsReleased(ctx context.Context, backingId int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, a := range r.store.allocations {
		if a.BackingId == backingId {
			a.Released = true
		}
	}
	return nil
}

func (r *fakeBackingRepo) ListByProjectAndStatus(ctx context.Context, projectId int64, status model.BackingStatus) ([]model.BackingModel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []model.BackingModel
	for _, b := range r.store.backings {
		if b.ProjectId == projectId && b.PaymentStatus == status {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (r *fakeBackingRepo) CountByProjectInStatuses(ctx context.Context, projectId int64, statuses []model.BackingStatus) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var count int64
	for _, b := range r.store.backings {
		if b.ProjectId != projectId {
			continue
		}
		for _, s := range statuses {
			if b.PaymentStatus == s {
				count++
				break
			}
		}
	}
	return count, nil
}

func (r *fakeBackingRepo) SumAmountInStatuses(ctx context.Context, projectId int64, statuses []model.BackingStatus) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var sum int64
	for _, b := range r.store.backings {
		if b.ProjectId != projectId {
			continue
		}
		for _, s := range statuses {
			if b.PaymentStatus == s {
				sum += b.Amount
				break
			}
		}
	}
	return sum, nil
}

func (r *fakeBackingRepo) CountDistinctBackers(ctx context.Context, projectId int64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	backers := make(map[int64]bool)
	for _, b := range r.store.backings {
		if b.ProjectId == projectId && b.PaymentStatus == model.BackingStatusConfirmed {
			backers[b.BackerId] = true
		}
	}
	return int64(len(backers)), nil
}

func (r *fakeBackingRepo) ListByBacker(ctx context.Context, backerId int64) ([]model.BackingModel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []model.BackingModel
	for _, b := range r.store.backings {
		if b.BackerId == backerId {
			result = append(result, *b)
		}
	}
	return result, nil
}

// fakeGateway 可编程的支付网关
type fakeGateway struct {
	mu          sync.Mutex
	confirmErr  error
	refundErr   error
	failBacking map[int64]error
	refunds     []int64
	onRefund    func(backingId int64)
}

func (g *fakeGateway) Confirm(ctx context.Context, paymentId string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.confirmErr
}

func (g *fakeGateway) Refund(ctx context.Context, backingId, amount int64) error {
	g.mu.Lock()
	hook := g.onRefund
	g.mu.Unlock()
	if hook != nil {
		hook(backingId)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.failBacking[backingId]; ok {
		return err
	}
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunds = append(g.refunds, backingId)
	return nil
}

func (g *fakeGateway) refundCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.refunds)
}

// fakeCatalog 可编程的商品目录
type fakeCatalog struct {
	mu        sync.Mutex
	createErr error
	created   []catalog.ProjectSnapshot
	nextId    int64
}

func (c *fakeCatalog) CreateProduct(ctx context.Context, snapshot catalog.ProjectSnapshot) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createErr != nil {
		return 0, c.createErr
	}
	c.created = append(c.created, snapshot)
	c.nextId++
	return c.nextId + 1000, nil
}

// fakePublisher 收集发布的事件
type fakePublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *fakePublisher) Publish(ctx context.Context, ev event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *fakePublisher) eventsOfType(t event.Type) []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var result []event.Event
	for _, ev := range p.events {
		if ev.Type == t {
			result = append(result, ev)
		}
	}
	return result
}
