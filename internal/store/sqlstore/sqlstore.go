// Package sqlstore implements the persistence contract on gorm, backed by
// postgres in production and sqlite for local runs and tests.
package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/petermazzocco/go-catalog-api/internal/store"
	"github.com/petermazzocco/go-catalog-api/models"
)

// Tables lists every model migrated by AutoMigrate.
var Tables = []interface{}{
	&models.User{},
	&models.Product{},
	&models.Image{},
	&models.QuickEnquiry{},
}

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects with the named driver ("postgres" or "sqlite") and migrates
// the schema.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	gormLog, err := newLogger()
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// sqlite allows a single writer; a shared connection queues writers
	// instead of failing them with "database is locked".
	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "failed to access sql pool")
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(Tables...); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	zap.S().Infof("Database connection successful, type: %s", driver)
	return New(db), nil
}

// newLogger writes gorm warnings and slow queries through zap. Missing rows
// are an expected outcome of lookups and are not logged.
func newLogger() (logger.Interface, error) {
	stdLog, err := zap.NewStdLogAt(zap.L().Named("gorm"), zap.WarnLevel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build gorm logger")
	}
	return logger.New(stdLog, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	}), nil
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case isDuplicate(err):
		return store.ErrDuplicate
	}
	return err
}

// isDuplicate also matches raw driver messages for dialectors whose error
// translation misses a constraint.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func checkID(id string) error {
	if !models.ValidID(id) {
		return store.ErrInvalidID
	}
	return nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, errors.Wrap(translate(err), "find user")
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = models.NewID()
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return store.ErrDuplicate
		}
		return errors.Wrap(err, "insert user")
	}
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = models.NewID()
	}
	product.Normalize()
	return errors.Wrap(s.db.WithContext(ctx).Create(product).Error, "insert product")
}

func (s *Store) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Subcategory != "" {
		query = query.Where("subcategory = ?", filter.Subcategory)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, errors.Wrap(err, "find products")
	}
	for i := range products {
		products[i].Normalize()
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, errors.Wrap(translate(err), "find product")
	}
	product.Normalize()
	return &product, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) (*models.Product, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&product).Error; err != nil {
			return translate(err)
		}
		return tx.Delete(&product).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "delete product")
	}
	product.Normalize()
	return &product, nil
}

func (s *Store) AppendFeatures(ctx context.Context, id string, features []string) (*models.Product, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock on postgres; the sqlite dialect drops the clause and
		// relies on its single connection.
		locked := tx.Clauses(clause.Locking{Strength: "UPDATE"})
		if err := locked.Where("id = ?", id).First(&product).Error; err != nil {
			return translate(err)
		}
		product.Normalize()
		product.Features = append(product.Features, features...)
		return tx.Save(&product).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "append product features")
	}
	return &product, nil
}

func (s *Store) CreateImage(ctx context.Context, image *models.Image) error {
	if image.ID == "" {
		image.ID = models.NewID()
	}
	return errors.Wrap(s.db.WithContext(ctx).Create(image).Error, "insert image")
}

func (s *Store) ListImages(ctx context.Context) ([]models.Image, error) {
	var images []models.Image
	if err := s.db.WithContext(ctx).Find(&images).Error; err != nil {
		return nil, errors.Wrap(err, "find images")
	}
	return images, nil
}

func (s *Store) DeleteImage(ctx context.Context, id string) (*models.Image, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var image models.Image
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&image).Error; err != nil {
			return translate(err)
		}
		return tx.Delete(&image).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "delete image")
	}
	return &image, nil
}

func (s *Store) CreateEnquiry(ctx context.Context, enquiry *models.QuickEnquiry) error {
	if enquiry.ID == "" {
		enquiry.ID = models.NewID()
	}
	return errors.Wrap(s.db.WithContext(ctx).Create(enquiry).Error, "insert enquiry")
}
