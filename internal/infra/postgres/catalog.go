package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"quiz-play-service/internal/domain"
)

type cosmeticRepo struct{ q querier }

func (r cosmeticRepo) Create(ctx context.Context, c *domain.Cosmetic) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO cosmetics (name, type, cost, resource_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		c.Name, c.Type, c.Cost, c.ResourceURL,
	).Scan(&c.ID)
	if err != nil {
		return translate(fmt.Errorf("insert cosmetic: %w", err))
	}
	return nil
}

func (r cosmeticRepo) FindByID(ctx context.Context, id int64) (domain.Cosmetic, error) {
	c := domain.Cosmetic{ID: id}
	err := r.q.QueryRow(ctx, `SELECT name, type, cost, resource_url FROM cosmetics WHERE id = $1`, id).
		Scan(&c.Name, &c.Type, &c.Cost, &c.ResourceURL)
	if err != nil {
		return domain.Cosmetic{}, notFound(err, domain.ErrCosmeticNotFound)
	}
	return c, nil
}

func (r cosmeticRepo) List(ctx context.Context) ([]domain.Cosmetic, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, type, cost, resource_url FROM cosmetics ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list cosmetics: %w", err)
	}
	defer rows.Close()
	out := []domain.Cosmetic{}
	for rows.Next() {
		var c domain.Cosmetic
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Cost, &c.ResourceURL); err != nil {
			return nil, fmt.Errorf("scan cosmetic: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r cosmeticRepo) Update(ctx context.Context, c domain.Cosmetic) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE cosmetics SET name = $2, type = $3, cost = $4, resource_url = $5 WHERE id = $1`,
		c.ID, c.Name, c.Type, c.Cost, c.ResourceURL,
	)
	if err != nil {
		return translate(fmt.Errorf("update cosmetic: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCosmeticNotFound
	}
	return nil
}

// Delete cascades to every owned copy of the cosmetic.
func (r cosmeticRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM cosmetics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cosmetic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCosmeticNotFound
	}
	return nil
}

type advantageRepo struct{ q querier }

func (r advantageRepo) Create(ctx context.Context, a *domain.Advantage) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO advantages (name, description, cost, effect)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		a.Name, a.Description, a.Cost, a.Effect,
	).Scan(&a.ID)
	if err != nil {
		return translate(fmt.Errorf("insert advantage: %w", err))
	}
	return nil
}

func (r advantageRepo) FindByID(ctx context.Context, id int64) (domain.Advantage, error) {
	a := domain.Advantage{ID: id}
	err := r.q.QueryRow(ctx, `SELECT name, description, cost, effect FROM advantages WHERE id = $1`, id).
		Scan(&a.Name, &a.Description, &a.Cost, &a.Effect)
	if err != nil {
		return domain.Advantage{}, notFound(err, domain.ErrAdvantageNotFound)
	}
	return a, nil
}

func (r advantageRepo) List(ctx context.Context) ([]domain.Advantage, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, description, cost, effect FROM advantages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list advantages: %w", err)
	}
	defer rows.Close()
	out := []domain.Advantage{}
	for rows.Next() {
		var a domain.Advantage
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Cost, &a.Effect); err != nil {
			return nil, fmt.Errorf("scan advantage: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r advantageRepo) Update(ctx context.Context, a domain.Advantage) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE advantages SET name = $2, description = $3, cost = $4, effect = $5 WHERE id = $1`,
		a.ID, a.Name, a.Description, a.Cost, a.Effect,
	)
	if err != nil {
		return translate(fmt.Errorf("update advantage: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAdvantageNotFound
	}
	return nil
}

func (r advantageRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM advantages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete advantage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAdvantageNotFound
	}
	return nil
}

const inventoryColumns = `id, user_id, cosmetic_id, slot, active, acquired_at`

type inventoryRepo struct{ q querier }

func (r inventoryRepo) Create(ctx context.Context, item *domain.InventoryItem) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO cosmetics_inventory (user_id, cosmetic_id, slot, active, acquired_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		item.UserID, item.CosmeticID, item.Slot, item.Active, item.AcquiredAt,
	).Scan(&item.ID)
	if err != nil {
		return translate(fmt.Errorf("insert inventory item: %w", err))
	}
	return nil
}

func (r inventoryRepo) FindByID(ctx context.Context, id int64) (domain.InventoryItem, error) {
	item, err := scanItem(r.q.QueryRow(ctx, `SELECT `+inventoryColumns+` FROM cosmetics_inventory WHERE id = $1`, id))
	if err != nil {
		return domain.InventoryItem{}, notFound(err, domain.ErrInventoryNotFound)
	}
	return item, nil
}

func (r inventoryRepo) FindActive(ctx context.Context, userID int64, slot string) (domain.InventoryItem, bool, error) {
	item, err := scanItem(r.q.QueryRow(ctx, `
		SELECT `+inventoryColumns+`
		FROM cosmetics_inventory
		WHERE user_id = $1 AND slot = $2 AND active`, userID, slot))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.InventoryItem{}, false, nil
	}
	if err != nil {
		return domain.InventoryItem{}, false, fmt.Errorf("find active item: %w", err)
	}
	return item, true, nil
}

func (r inventoryRepo) ListByUser(ctx context.Context, userID int64) ([]domain.InventoryItem, error) {
	rows, err := r.q.Query(ctx, `SELECT `+inventoryColumns+` FROM cosmetics_inventory WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()
	var out []domain.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Update surfaces the active slot index as domain.ErrSlotTaken.
func (r inventoryRepo) Update(ctx context.Context, item domain.InventoryItem) error {
	tag, err := r.q.Exec(ctx, `UPDATE cosmetics_inventory SET active = $2 WHERE id = $1`, item.ID, item.Active)
	if err != nil {
		return translate(fmt.Errorf("update inventory item: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInventoryNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := row.Scan(&item.ID, &item.UserID, &item.CosmeticID, &item.Slot, &item.Active, &item.AcquiredAt)
	return item, err
}

const purchaseColumns = `id, user_id, advantage_id, used, purchased_at, used_at`

type purchaseRepo struct{ q querier }

func (r purchaseRepo) Create(ctx context.Context, p *domain.AdvantagePurchase) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO advantage_purchases (user_id, advantage_id, used, purchased_at, used_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		p.UserID, p.AdvantageID, p.Used, p.PurchasedAt, p.UsedAt,
	).Scan(&p.ID)
	if err != nil {
		return translate(fmt.Errorf("insert purchase: %w", err))
	}
	return nil
}

func (r purchaseRepo) FindByID(ctx context.Context, id int64) (domain.AdvantagePurchase, error) {
	p, err := scanPurchase(r.q.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM advantage_purchases WHERE id = $1`, id))
	if err != nil {
		return domain.AdvantagePurchase{}, notFound(err, domain.ErrPurchaseNotFound)
	}
	return p, nil
}

func (r purchaseRepo) ListByUser(ctx context.Context, userID int64, unusedOnly bool) ([]domain.AdvantagePurchase, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+purchaseColumns+`
		FROM advantage_purchases
		WHERE user_id = $1 AND (NOT $2 OR NOT used)
		ORDER BY id`, userID, unusedOnly)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()
	var out []domain.AdvantagePurchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update only touches rows that are still unused, so of two transactions
// consuming the same purchase the second sees zero rows.
func (r purchaseRepo) Update(ctx context.Context, p domain.AdvantagePurchase) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE advantage_purchases SET used = $2, used_at = $3
		WHERE id = $1 AND NOT used`,
		p.ID, p.Used, p.UsedAt,
	)
	if err != nil {
		return translate(fmt.Errorf("update purchase: %w", err))
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM advantage_purchases WHERE id = $1)`, p.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check purchase: %w", err)
	}
	if !exists {
		return domain.ErrPurchaseNotFound
	}
	return domain.ErrAdvantageAlreadyUsed
}

func scanPurchase(row pgx.Row) (domain.AdvantagePurchase, error) {
	var p domain.AdvantagePurchase
	err := row.Scan(&p.ID, &p.UserID, &p.AdvantageID, &p.Used, &p.PurchasedAt, &p.UsedAt)
	return p, err
}
