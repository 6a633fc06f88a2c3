// Package ordering maintains dense, contiguous position ranks over dynamic
// sets of sibling rows.
//
// A position scope is the set of rows sharing one owner (e.g. all shelves of
// one user). Within a scope, positions are zero-based and gapless: for N rows
// they are exactly {0..N-1}. Every operation here is a multi-row
// read-shift-write sequence and must run inside the caller's transaction;
// callers pass the transactional *gorm.DB they already hold.
package ordering

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrPositionOutOfRange = errors.New("position out of range")

// Scope identifies one dense ordering domain: the rows of Table whose
// OwnerColumn equals OwnerID, ranked by PositionColumn.
type Scope struct {
	Table          string
	OwnerColumn    string
	OwnerID        uint
	PositionColumn string
}

// ShelvesOf is the scope of all shelves belonging to one user.
func ShelvesOf(userID uint) Scope {
	return Scope{
		Table:          "shelves",
		OwnerColumn:    "user_id",
		OwnerID:        userID,
		PositionColumn: "position",
	}
}

// Count returns the number of rows in the scope.
func Count(tx *gorm.DB, s Scope) (int64, error) {
	var n int64
	err := tx.Table(s.Table).Where(s.OwnerColumn+" = ?", s.OwnerID).Count(&n).Error
	return n, err
}

// NextPosition returns the rank an item appended to the scope would get.
func NextPosition(tx *gorm.DB, s Scope) (int, error) {
	n, err := Count(tx, s)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Move re-ranks the item from oldPos to newPos, shifting every other item in
// between by one so the scope stays dense. No-op when the positions are
// equal. newPos must lie within [0, count-1].
func Move(tx *gorm.DB, s Scope, itemID uint, oldPos, newPos int) error {
	if newPos == oldPos {
		return nil
	}

	n, err := Count(tx, s)
	if err != nil {
		return err
	}
	if newPos < 0 || int64(newPos) >= n {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrPositionOutOfRange, newPos, n-1)
	}

	if newPos > oldPos {
		// Items in (oldPos, newPos] slide down by one.
		err = tx.Table(s.Table).
			Where(s.OwnerColumn+" = ? AND id <> ? AND "+s.PositionColumn+" > ? AND "+s.PositionColumn+" <= ?",
				s.OwnerID, itemID, oldPos, newPos).
			UpdateColumn(s.PositionColumn, gorm.Expr(s.PositionColumn+" - 1")).Error
	} else {
		// Items in [newPos, oldPos) slide up by one.
		err = tx.Table(s.Table).
			Where(s.OwnerColumn+" = ? AND id <> ? AND "+s.PositionColumn+" >= ? AND "+s.PositionColumn+" < ?",
				s.OwnerID, itemID, newPos, oldPos).
			UpdateColumn(s.PositionColumn, gorm.Expr(s.PositionColumn+" + 1")).Error
	}
	if err != nil {
		return err
	}

	return tx.Table(s.Table).
		Where("id = ?", itemID).
		UpdateColumn(s.PositionColumn, newPos).Error
}

// Compact closes the gap left by a row removed at removedPos: every row
// ranked above it slides down by one. Call before or after deleting the row,
// in the same transaction.
func Compact(tx *gorm.DB, s Scope, removedPos int) error {
	return tx.Table(s.Table).
		Where(s.OwnerColumn+" = ? AND "+s.PositionColumn+" > ?", s.OwnerID, removedPos).
		UpdateColumn(s.PositionColumn, gorm.Expr(s.PositionColumn+" - 1")).Error
}

// Positions returns the scope's ranks in ascending order.
func Positions(tx *gorm.DB, s Scope) ([]int, error) {
	var positions []int
	err := tx.Table(s.Table).
		Where(s.OwnerColumn+" = ?", s.OwnerID).
		Order(s.PositionColumn + " ASC").
		Pluck(s.PositionColumn, &positions).Error
	return positions, err
}
