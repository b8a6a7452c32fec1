package capacity

import (
	"context"

	"plates-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SlotTotals is the plate count held by requests on one slot, split by reservation stage.
type SlotTotals struct {
	// Committed counts CONFIRMED and COMPLETED requests.
	Committed int
	// Reserved counts PENDING requests.
	Reserved int
}

// Held is every plate that currently occupies the slot.
func (t SlotTotals) Held() int {
	return t.Committed + t.Reserved
}

func (t *SlotTotals) add(status domain.DonationStatus, plates int) {
	switch status {
	case domain.StatusPending:
		t.Reserved += plates
	case domain.StatusConfirmed, domain.StatusCompleted:
		t.Committed += plates
	}
}

func holdingStatuses() []string {
	return []string{string(domain.StatusPending), string(domain.StatusConfirmed), string(domain.StatusCompleted)}
}

// Committed sums plates of confirmed and completed requests on the slot.
func (s *Service) Committed(ctx context.Context, locationID uuid.UUID, date domain.Date, meal domain.MealType) (int, error) {
	totals, err := SlotTotalsTx(s.DB.WithContext(ctx), locationID, date, meal)
	if err != nil {
		return 0, err
	}
	return totals.Committed, nil
}

// SlotTotalsTx groups capacity-holding requests on the slot by status in one query.
func SlotTotalsTx(tx *gorm.DB, locationID uuid.UUID, date domain.Date, meal domain.MealType) (SlotTotals, error) {
	var rows []struct {
		Status string
		Plates int64
	}
	err := tx.Model(&domain.DonationRequest{}).
		Select("status, COALESCE(SUM(quantity_plates), 0) AS plates").
		Where("ngo_location_id = ? AND donation_date = ? AND meal_type = ? AND status IN ?", locationID, date, meal, holdingStatuses()).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return SlotTotals{}, err
	}
	var totals SlotTotals
	for _, r := range rows {
		totals.add(domain.DonationStatus(r.Status), int(r.Plates))
	}
	return totals, nil
}

// Reserved sums plates of pending requests on the slot.
func (s *Service) Reserved(ctx context.Context, locationID uuid.UUID, date domain.Date, meal domain.MealType) (int, error) {
	totals, err := SlotTotalsTx(s.DB.WithContext(ctx), locationID, date, meal)
	if err != nil {
		return 0, err
	}
	return totals.Reserved, nil
}
