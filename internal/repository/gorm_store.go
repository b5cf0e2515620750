package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/vlog-interaction-service/internal/domain"
	"github.com/weiawesome/vlog-interaction-service/pkg/database"
)

// isUniqueViolation reports whether err is a unique-constraint violation.
// gorm.ErrDuplicatedKey needs TranslateError; the string checks cover drivers
// that do not translate.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || // postgres
		strings.Contains(msg, "UNIQUE constraint") || // sqlite
		strings.Contains(msg, "Duplicate entry") // mysql
}

var contentCounters = map[domain.ContentCounter]bool{
	domain.CounterLikes:    true,
	domain.CounterDislikes: true,
	domain.CounterComments: true,
	domain.CounterViews:    true,
}

var userCounters = map[domain.UserCounter]bool{
	domain.CounterFollowers: true,
	domain.CounterFollowing: true,
}

// clampedAdd builds "col + delta" floored at zero in a portable form.
func clampedAdd(column string, delta int64) clause.Expr {
	return gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s + ? < 0 THEN 0 ELSE %[1]s + ? END", column), delta, delta)
}

// GormStore implements Store on a relational database through GORM.
type GormStore struct {
	gormReader
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{gormReader{db: db}}
}

// Migrate creates or updates the tables owned by the store.
func (s *GormStore) Migrate(ctx context.Context) error {
	return database.AutoMigrate(s.db.WithContext(ctx), domain.Models()...)
}

// WithTransaction runs fn inside a database transaction.
func (s *GormStore) WithTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{gormReader{db: tx}})
	})
}

// lockRow takes a row lock on the record so every edge write committed before
// it is visible to the counts that follow, and writers after it wait. It
// reports false when the record does not exist.
func lockRow(tx *gorm.DB, model interface{}, id string) (bool, error) {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func countRows(tx *gorm.DB, model interface{}, query string, args ...interface{}) (int64, error) {
	var n int64
	err := tx.Model(model).Where(query, args...).Count(&n).Error
	return n, err
}

// RecountContent recomputes the edge-backed counters of one content item from
// its reaction and comment rows.
func (s *GormStore) RecountContent(ctx context.Context, contentID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := lockRow(tx, &domain.ContentModel{}, contentID)
		if err != nil || !found {
			return err
		}

		likes, err := countRows(tx, &domain.ReactionModel{}, "content_id = ? AND kind = ?", contentID, string(domain.ReactionLike))
		if err != nil {
			return err
		}
		dislikes, err := countRows(tx, &domain.ReactionModel{}, "content_id = ? AND kind = ?", contentID, string(domain.ReactionDislike))
		if err != nil {
			return err
		}
		comments, err := countRows(tx, &domain.CommentModel{}, "content_id = ?", contentID)
		if err != nil {
			return err
		}

		return tx.Model(&domain.ContentModel{}).Where("id = ?", contentID).
			UpdateColumns(map[string]interface{}{
				string(domain.CounterLikes):    likes,
				string(domain.CounterDislikes): dislikes,
				string(domain.CounterComments): comments,
			}).Error
	})
	if err != nil {
		return fmt.Errorf("recount content %s: %w", contentID, err)
	}
	return nil
}

// RecountUser recomputes the follow counters of one user from its follow rows.
func (s *GormStore) RecountUser(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := lockRow(tx, &domain.UserModel{}, userID)
		if err != nil || !found {
			return err
		}

		followers, err := countRows(tx, &domain.FollowModel{}, "followee_id = ?", userID)
		if err != nil {
			return err
		}
		following, err := countRows(tx, &domain.FollowModel{}, "follower_id = ?", userID)
		if err != nil {
			return err
		}

		return tx.Model(&domain.UserModel{}).Where("id = ?", userID).
			UpdateColumns(map[string]interface{}{
				string(domain.CounterFollowers): followers,
				string(domain.CounterFollowing): following,
			}).Error
	})
	if err != nil {
		return fmt.Errorf("recount user %s: %w", userID, err)
	}
	return nil
}

// CreateContent registers a content item with zeroed counters unless set.
func (s *GormStore) CreateContent(ctx context.Context, c *domain.Content) error {
	model := &domain.ContentModel{
		ID:           c.ID,
		AuthorID:     c.AuthorID,
		LikeCount:    c.LikeCount,
		DislikeCount: c.DislikeCount,
		CommentCount: c.CommentCount,
		ViewCount:    c.ViewCount,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create content: %w", err)
	}
	return nil
}

// CreateUser registers a user with zeroed counters unless set.
func (s *GormStore) CreateUser(ctx context.Context, u *domain.User) error {
	model := &domain.UserModel{
		ID:             u.ID,
		FollowerCount:  u.FollowerCount,
		FollowingCount: u.FollowingCount,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// gormReader serves reads against either the pool or an open transaction.
type gormReader struct {
	db *gorm.DB
}

func (r gormReader) GetContent(ctx context.Context, id string) (*domain.Content, error) {
	var model domain.ContentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get content: %w", err)
	}
	return model.ToDomain(), nil
}

func (r gormReader) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var model domain.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return model.ToDomain(), nil
}

func (r gormReader) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	var model domain.CommentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return model.ToDomain(), nil
}

func (r gormReader) FindReactions(ctx context.Context, contentID, userID string) ([]domain.Reaction, error) {
	var models []domain.ReactionModel
	err := r.db.WithContext(ctx).
		Where("content_id = ? AND user_id = ?", contentID, userID).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find reactions: %w", err)
	}

	reactions := make([]domain.Reaction, 0, len(models))
	for _, m := range models {
		reactions = append(reactions, domain.Reaction{
			ContentID: m.ContentID,
			UserID:    m.UserID,
			Kind:      domain.ReactionKind(m.Kind),
			CreatedAt: m.CreatedAt,
		})
	}
	return reactions, nil
}

func (r gormReader) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FollowModel{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("is following: %w", err)
	}
	return count > 0, nil
}

// gormTx is a Tx bound to an open *gorm.DB transaction.
type gormTx struct {
	gormReader
}

func (t *gormTx) CreateReaction(ctx context.Context, r *domain.Reaction) error {
	model := &domain.ReactionModel{
		ContentID: r.ContentID,
		UserID:    r.UserID,
		Kind:      string(r.Kind),
	}
	if err := t.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create reaction: %w", err)
	}
	r.CreatedAt = model.CreatedAt
	return nil
}

func (t *gormTx) DeleteReaction(ctx context.Context, contentID, userID string, kind domain.ReactionKind) (bool, error) {
	result := t.db.WithContext(ctx).
		Where("content_id = ? AND user_id = ? AND kind = ?", contentID, userID, string(kind)).
		Delete(&domain.ReactionModel{})
	if result.Error != nil {
		return false, fmt.Errorf("delete reaction: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// AddFollow relies on the pair index: a duplicate insert is a no-op, so two
// racing follows insert exactly one row.
func (t *gormTx) AddFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	model := &domain.FollowModel{
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
	result := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model)
	if result.Error != nil {
		return false, fmt.Errorf("add follow: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (t *gormTx) RemoveFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	result := t.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&domain.FollowModel{})
	if result.Error != nil {
		return false, fmt.Errorf("remove follow: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (t *gormTx) CreateComment(ctx context.Context, c *domain.Comment) error {
	model := &domain.CommentModel{
		ID:        c.ID,
		ContentID: c.ContentID,
		AuthorID:  c.AuthorID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
	if err := t.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (t *gormTx) DeleteComment(ctx context.Context, id string) (bool, error) {
	result := t.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.CommentModel{})
	if result.Error != nil {
		return false, fmt.Errorf("delete comment: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (t *gormTx) IncrContentCounter(ctx context.Context, contentID string, counter domain.ContentCounter, delta int64) error {
	if !contentCounters[counter] {
		return fmt.Errorf("unknown content counter %q", counter)
	}
	column := string(counter)
	err := t.db.WithContext(ctx).Model(&domain.ContentModel{}).
		Where("id = ?", contentID).
		UpdateColumn(column, clampedAdd(column, delta)).Error
	if err != nil {
		return fmt.Errorf("incr %s: %w", column, err)
	}
	return nil
}

func (t *gormTx) IncrUserCounter(ctx context.Context, userID string, counter domain.UserCounter, delta int64) error {
	if !userCounters[counter] {
		return fmt.Errorf("unknown user counter %q", counter)
	}
	column := string(counter)
	err := t.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", userID).
		UpdateColumn(column, clampedAdd(column, delta)).Error
	if err != nil {
		return fmt.Errorf("incr %s: %w", column, err)
	}
	return nil
}

// Ensure interfaces are satisfied at compile time.
var (
	_ Store = (*GormStore)(nil)
	_ Tx    = (*gormTx)(nil)
)
