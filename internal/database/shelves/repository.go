// Package shelves provides database operations for shelves inside a location.
package shelves

import (
	"gorm.io/gorm"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a shelf. Duplicate names in one location yield gorm.ErrDuplicatedKey.
func (r *Repository) Create(shelf *entities.Shelf) error {
	return r.db.Create(shelf).Error
}

func (r *Repository) GetByID(id uint) (*entities.Shelf, error) {
	var shelf entities.Shelf
	if err := r.db.First(&shelf, id).Error; err != nil {
		return nil, err
	}
	return &shelf, nil
}

// ListByLocation returns shelves with their book counts, ordered by name.
func (r *Repository) ListByLocation(locationID uint) ([]entities.Shelf, error) {
	var shelves []entities.Shelf
	if err := r.db.Where("location_id = ?", locationID).Order("name ASC").Find(&shelves).Error; err != nil {
		return nil, err
	}

	type countRow struct {
		ShelfID uint
		Count   int64
	}
	var rows []countRow
	err := r.db.Model(&entities.Book{}).
		Select("shelf_id, COUNT(*) AS count").
		Where("location_id = ?", locationID).
		Group("shelf_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.ShelfID] = row.Count
	}
	for i := range shelves {
		shelves[i].BookCount = counts[shelves[i].ID]
	}
	return shelves, nil
}

func (r *Repository) Rename(id uint, name string) error {
	return database.RequireChanged(
		r.db.Model(&entities.Shelf{}).Where("id = ?", id).Update("name", name),
	)
}

// DeleteIfEmpty removes the shelf only when no book references it.
func (r *Repository) DeleteIfEmpty(id uint) error {
	return database.RequireChanged(r.db.Exec(
		`DELETE FROM shelves WHERE id = ? AND NOT EXISTS (SELECT 1 FROM books WHERE books.shelf_id = shelves.id)`,
		id,
	))
}
