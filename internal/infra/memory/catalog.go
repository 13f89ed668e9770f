package memory

import (
	"context"
	"sort"

	"quiz-play-service/internal/domain"
)

type cosmeticRepo struct{ t *tx }

func (r cosmeticRepo) Create(_ context.Context, c *domain.Cosmetic) error {
	c.ID = r.t.store.seq.cosmetics.Add(1)
	stored := *c
	return r.t.write(func(st *state) error {
		st.cosmetics[stored.ID] = stored
		return nil
	})
}

func (r cosmeticRepo) FindByID(_ context.Context, id int64) (domain.Cosmetic, error) {
	c, ok := r.t.read().cosmetics[id]
	if !ok {
		return domain.Cosmetic{}, domain.ErrCosmeticNotFound
	}
	return c, nil
}

func (r cosmeticRepo) List(_ context.Context) ([]domain.Cosmetic, error) {
	out := make([]domain.Cosmetic, 0, len(r.t.read().cosmetics))
	for _, c := range r.t.read().cosmetics {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r cosmeticRepo) Update(_ context.Context, c domain.Cosmetic) error {
	return r.t.write(func(st *state) error {
		if _, ok := st.cosmetics[c.ID]; !ok {
			return domain.ErrCosmeticNotFound
		}
		st.cosmetics[c.ID] = c
		return nil
	})
}

// Delete removes the cosmetic and every owned copy of it.
func (r cosmeticRepo) Delete(_ context.Context, id int64) error {
	return r.t.write(func(st *state) error {
		if _, ok := st.cosmetics[id]; !ok {
			return domain.ErrCosmeticNotFound
		}
		delete(st.cosmetics, id)
		for iid, item := range st.inventory {
			if item.CosmeticID == id {
				delete(st.inventory, iid)
			}
		}
		return nil
	})
}

type advantageRepo struct{ t *tx }

func (r advantageRepo) Create(_ context.Context, a *domain.Advantage) error {
	a.ID = r.t.store.seq.advantages.Add(1)
	stored := *a
	return r.t.write(func(st *state) error {
		st.advantages[stored.ID] = stored
		return nil
	})
}

func (r advantageRepo) FindByID(_ context.Context, id int64) (domain.Advantage, error) {
	a, ok := r.t.read().advantages[id]
	if !ok {
		return domain.Advantage{}, domain.ErrAdvantageNotFound
	}
	return a, nil
}

func (r advantageRepo) List(_ context.Context) ([]domain.Advantage, error) {
	out := make([]domain.Advantage, 0, len(r.t.read().advantages))
	for _, a := range r.t.read().advantages {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r advantageRepo) Update(_ context.Context, a domain.Advantage) error {
	return r.t.write(func(st *state) error {
		if _, ok := st.advantages[a.ID]; !ok {
			return domain.ErrAdvantageNotFound
		}
		st.advantages[a.ID] = a
		return nil
	})
}

// Delete removes the advantage and its purchase records.
func (r advantageRepo) Delete(_ context.Context, id int64) error {
	return r.t.write(func(st *state) error {
		if _, ok := st.advantages[id]; !ok {
			return domain.ErrAdvantageNotFound
		}
		delete(st.advantages, id)
		for pid, p := range st.purchases {
			if p.AdvantageID == id {
				delete(st.purchases, pid)
			}
		}
		return nil
	})
}

type inventoryRepo struct{ t *tx }

func (r inventoryRepo) Create(_ context.Context, item *domain.InventoryItem) error {
	item.ID = r.t.store.seq.inventory.Add(1)
	stored := *item
	return r.t.write(func(st *state) error {
		if _, ok := st.users[stored.UserID]; !ok {
			return domain.ErrUserNotFound
		}
		if _, ok := st.cosmetics[stored.CosmeticID]; !ok {
			return domain.ErrCosmeticNotFound
		}
		if stored.Active {
			if err := st.checkSlot(stored); err != nil {
				return err
			}
		}
		st.inventory[stored.ID] = stored
		return nil
	})
}

func (r inventoryRepo) FindByID(_ context.Context, id int64) (domain.InventoryItem, error) {
	item, ok := r.t.read().inventory[id]
	if !ok {
		return domain.InventoryItem{}, domain.ErrInventoryNotFound
	}
	return item, nil
}

func (r inventoryRepo) FindActive(_ context.Context, userID int64, slot string) (domain.InventoryItem, bool, error) {
	for _, item := range r.t.read().inventory {
		if item.UserID == userID && item.Slot == slot && item.Active {
			return item, true, nil
		}
	}
	return domain.InventoryItem{}, false, nil
}

func (r inventoryRepo) ListByUser(_ context.Context, userID int64) ([]domain.InventoryItem, error) {
	var out []domain.InventoryItem
	for _, item := range r.t.read().inventory {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r inventoryRepo) Update(_ context.Context, item domain.InventoryItem) error {
	return r.t.write(func(st *state) error {
		if _, ok := st.inventory[item.ID]; !ok {
			return domain.ErrInventoryNotFound
		}
		if item.Active {
			if err := st.checkSlot(item); err != nil {
				return err
			}
		}
		st.inventory[item.ID] = item
		return nil
	})
}

// checkSlot rejects item when another item already holds its active slot.
func (st *state) checkSlot(item domain.InventoryItem) error {
	for _, other := range st.inventory {
		if other.ID != item.ID && other.Active && other.UserID == item.UserID && other.Slot == item.Slot {
			return domain.ErrSlotTaken
		}
	}
	return nil
}

type purchaseRepo struct{ t *tx }

func (r purchaseRepo) Create(_ context.Context, p *domain.AdvantagePurchase) error {
	p.ID = r.t.store.seq.purchases.Add(1)
	stored := copyPurchase(*p)
	return r.t.write(func(st *state) error {
		if _, ok := st.users[stored.UserID]; !ok {
			return domain.ErrUserNotFound
		}
		if _, ok := st.advantages[stored.AdvantageID]; !ok {
			return domain.ErrAdvantageNotFound
		}
		st.purchases[stored.ID] = stored
		return nil
	})
}

func (r purchaseRepo) FindByID(_ context.Context, id int64) (domain.AdvantagePurchase, error) {
	p, ok := r.t.read().purchases[id]
	if !ok {
		return domain.AdvantagePurchase{}, domain.ErrPurchaseNotFound
	}
	return copyPurchase(p), nil
}

func (r purchaseRepo) ListByUser(_ context.Context, userID int64, unusedOnly bool) ([]domain.AdvantagePurchase, error) {
	var out []domain.AdvantagePurchase
	for _, p := range r.t.read().purchases {
		if p.UserID != userID || (unusedOnly && p.Used) {
			continue
		}
		out = append(out, copyPurchase(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update fails with domain.ErrAdvantageAlreadyUsed once the stored purchase is
// used, which also catches a concurrent transaction consuming it first.
func (r purchaseRepo) Update(_ context.Context, p domain.AdvantagePurchase) error {
	stored := copyPurchase(p)
	return r.t.write(func(st *state) error {
		cur, ok := st.purchases[stored.ID]
		if !ok {
			return domain.ErrPurchaseNotFound
		}
		if cur.Used {
			return domain.ErrAdvantageAlreadyUsed
		}
		st.purchases[stored.ID] = stored
		return nil
	})
}

func copyPurchase(p domain.AdvantagePurchase) domain.AdvantagePurchase {
	if p.UsedAt != nil {
		v := *p.UsedAt
		p.UsedAt = &v
	}
	return p
}
