package ledger

import (
	"github.com/google/uuid"
	"github.com/tally-ledger/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// push appends targets to the list. Targets already in the list stay where
// they are.
func push(u *unit, owner uuid.UUID, kind models.ReferenceKind, targets ...uuid.UUID) error {
	for _, target := range targets {
		err := u.tx.
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Reference{OwnerID: owner, Kind: kind, TargetID: target}).
			Error
		if err != nil {
			return err
		}
	}

	return nil
}

// pull removes targets from the list. Missing targets are ignored.
func pull(u *unit, owner uuid.UUID, kind models.ReferenceKind, targets ...uuid.UUID) error {
	if len(targets) == 0 {
		return nil
	}

	return u.tx.
		Where("owner_id = ? AND kind = ? AND target_id IN ?", owner, kind, targets).
		Delete(&models.Reference{}).
		Error
}

// dropReferences removes every list held by owner.
func dropReferences(u *unit, owner uuid.UUID) error {
	return u.tx.Where("owner_id = ?", owner).Delete(&models.Reference{}).Error
}

// references returns the list in the order entries were added.
func references(db *gorm.DB, owner uuid.UUID, kind models.ReferenceKind) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := db.
		Model(&models.Reference{}).
		Where("owner_id = ? AND kind = ?", owner, kind).
		Order("id ASC").
		Pluck("target_id", &ids).
		Error

	return ids, err
}
