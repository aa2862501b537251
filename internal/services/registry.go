package services

import (
	"sync"
	"sync/atomic"

	"tour-routing-service/internal/domain"
)

// CancelRegistry is the in-process cancellation flag checked by the
// invitation and confirmation workflows between batches.
type CancelRegistry struct {
	mu        sync.RWMutex
	cancelled map[string]struct{}
}

func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{cancelled: make(map[string]struct{})}
}

func (r *CancelRegistry) Cancel(tourID string) {
	r.mu.Lock()
	r.cancelled[tourID] = struct{}{}
	r.mu.Unlock()
}

// Restore lowers the flag after a cancellation that did not go through.
func (r *CancelRegistry) Restore(tourID string) {
	r.mu.Lock()
	delete(r.cancelled, tourID)
	r.mu.Unlock()
}

func (r *CancelRegistry) IsCancelled(tourID string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	_, ok := r.cancelled[tourID]
	r.mu.RUnlock()
	return ok
}

// ActivePlans holds each tour's current plan. Plans are immutable values;
// regenerating one swaps the pointer so readers never see a half-built plan.
type ActivePlans struct {
	plans sync.Map // tour ID -> *atomic.Pointer[domain.TourPlan]
}

func (a *ActivePlans) slot(tourID string) *atomic.Pointer[domain.TourPlan] {
	v, _ := a.plans.LoadOrStore(tourID, &atomic.Pointer[domain.TourPlan]{})
	return v.(*atomic.Pointer[domain.TourPlan])
}

// Swap installs plan and returns the previous one.
func (a *ActivePlans) Swap(tourID string, plan *domain.TourPlan) *domain.TourPlan {
	return a.slot(tourID).Swap(plan)
}

// Load returns the active plan or nil.
func (a *ActivePlans) Load(tourID string) *domain.TourPlan {
	v, ok := a.plans.Load(tourID)
	if !ok {
		return nil
	}
	return v.(*atomic.Pointer[domain.TourPlan]).Load()
}

// CompareAndSwap installs plan only if old is still the active plan.
func (a *ActivePlans) CompareAndSwap(tourID string, old, plan *domain.TourPlan) bool {
	return a.slot(tourID).CompareAndSwap(old, plan)
}

func (a *ActivePlans) Clear(tourID string) {
	a.slot(tourID).Store(nil)
}
