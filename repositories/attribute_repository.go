package repositories

import (
	"context"

	"recipe-restful/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttributeRepository stores user-owned named records that recipes link to.
// Every lookup is scoped to the owning user.
type AttributeRepository[T any] interface {
	WithTx(tx *gorm.DB) AttributeRepository[T]
	ListByUser(ctx context.Context, userID uint, assignedOnly bool) ([]T, error)
	FindByUser(ctx context.Context, userID, id uint) (*T, error)
	FindByName(ctx context.Context, userID uint, name string) (*T, error)
	Update(ctx context.Context, item *T) error
	Delete(ctx context.Context, item *T) error
	// GetOrCreate returns the user's record with this exact name, inserting
	// it first when missing. Safe against concurrent inserts of the same name.
	GetOrCreate(ctx context.Context, userID uint, name string) (*T, error)
}

type (
	TagRepository        = AttributeRepository[models.Tag]
	IngredientRepository = AttributeRepository[models.Ingredient]
)

type attributeRepository[T any, PT models.AttributePtr[T]] struct {
	db         *gorm.DB
	joinTable  string // many2many table linking recipes to T
	joinColumn string // column of joinTable referencing T
}

func NewTagRepository(db *gorm.DB) TagRepository {
	return &attributeRepository[models.Tag, *models.Tag]{db: db, joinTable: "recipe_tags", joinColumn: "tag_id"}
}

func NewIngredientRepository(db *gorm.DB) IngredientRepository {
	return &attributeRepository[models.Ingredient, *models.Ingredient]{db: db, joinTable: "recipe_ingredients", joinColumn: "ingredient_id"}
}

func (r *attributeRepository[T, PT]) WithTx(tx *gorm.DB) AttributeRepository[T] {
	return &attributeRepository[T, PT]{db: tx, joinTable: r.joinTable, joinColumn: r.joinColumn}
}

// ListByUser returns the user's records ordered by name descending. With
// assignedOnly, only records linked to at least one of the user's recipes are
// returned, each once.
func (r *attributeRepository[T, PT]) ListByUser(ctx context.Context, userID uint, assignedOnly bool) ([]T, error) {
	ownerColumn := clause.Column{Table: clause.CurrentTable, Name: "user_id"}
	query := r.db.WithContext(ctx).Model(new(T)).Where(clause.Eq{Column: ownerColumn, Value: userID})

	if assignedOnly {
		query = query.Distinct().
			Joins("JOIN "+r.joinTable+" ON "+r.joinTable+"."+r.joinColumn+" = ?",
				clause.Column{Table: clause.CurrentTable, Name: "id"}).
			Joins("JOIN recipes ON recipes.id = "+r.joinTable+".recipe_id AND recipes.user_id = ?", userID)
	}

	var items []T
	err := query.Order(clause.OrderByColumn{
		Column: clause.Column{Table: clause.CurrentTable, Name: "name"},
		Desc:   true,
	}).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *attributeRepository[T, PT]) FindByUser(ctx context.Context, userID, id uint) (*T, error) {
	var item T
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *attributeRepository[T, PT]) FindByName(ctx context.Context, userID uint, name string) (*T, error) {
	var item T
	if err := r.db.WithContext(ctx).Where("user_id = ? AND name = ?", userID, name).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *attributeRepository[T, PT]) Update(ctx context.Context, item *T) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(item).Error
}

// Delete removes the record and its links to recipes; the recipes stay.
func (r *attributeRepository[T, PT]) Delete(ctx context.Context, item *T) error {
	id := PT(item).Base().ID
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM "+r.joinTable+" WHERE "+r.joinColumn+" = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(item).Error
	})
}

func (r *attributeRepository[T, PT]) GetOrCreate(ctx context.Context, userID uint, name string) (*T, error) {
	var item T
	base := PT(&item).Base()
	base.UserID = userID
	base.Name = name

	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&item)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 1 {
		return &item, nil
	}

	// The (user_id, name) row already existed. A locking read sees it even
	// when it was committed after this transaction's snapshot was taken.
	var existing T
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("user_id = ? AND name = ?", userID, name).
		First(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}
