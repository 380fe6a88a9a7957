// Package sqlstore implements sales.Storage on top of gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"sales_engine/internal/sales"
)

// Store persists sales and their items in a SQL database.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to the database for the given driver ("sqlite" or "postgres").
func Open(driver, dsn string, log *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	return New(db, log), nil
}

// New wraps an open gorm connection.
func New(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log.With(zap.String("store", "sqlstore"))}
}

// Migrate creates or updates the sales tables.
func (s *Store) Migrate(ctx context.Context) error {
	s.log.Info("auto migrating sales tables")
	if err := s.db.WithContext(ctx).AutoMigrate(&saleRecord{}, &itemRecord{}); err != nil {
		s.log.Error("auto migration failed", zap.Error(err))
		return err
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Begin(ctx context.Context) (sales.Tx, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	return &gormTx{db: tx}, nil
}

type gormTx struct {
	db   *gorm.DB
	done bool
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return sales.ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", sales.ErrDuplicateKey, err)
	default:
		return err
	}
}

func (t *gormTx) conn(ctx context.Context) (*gorm.DB, error) {
	if t.done {
		return nil, sales.ErrTxDone
	}
	return t.db.WithContext(ctx), nil
}

func (t *gormTx) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	db, err := t.conn(ctx)
	if err != nil {
		return nil, err
	}
	var rec saleRecord
	if err := db.Where("id = ?", id.String()).Take(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toSale()
}

func (t *gormTx) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	sale, err := t.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	db, err := t.conn(ctx)
	if err != nil {
		return nil, err
	}

	var recs []itemRecord
	if err := db.Where("sale_id = ?", id.String()).Order("position").Find(&recs).Error; err != nil {
		return nil, translate(err)
	}
	sale.Items = make([]sales.Item, 0, len(recs))
	for _, rec := range recs {
		item, err := rec.toItem()
		if err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, item)
	}
	return sale, nil
}

func (t *gormTx) FindAllWithItems(ctx context.Context) ([]*sales.Sale, error) {
	db, err := t.conn(ctx)
	if err != nil {
		return nil, err
	}

	var saleRecs []saleRecord
	if err := db.Order("order_number").Find(&saleRecs).Error; err != nil {
		return nil, translate(err)
	}
	if len(saleRecs) == 0 {
		return []*sales.Sale{}, nil
	}

	ids := make([]string, 0, len(saleRecs))
	for _, rec := range saleRecs {
		ids = append(ids, rec.ID)
	}
	var itemRecs []itemRecord
	if err := db.Where("sale_id IN ?", ids).Order("sale_id").Order("position").Find(&itemRecs).Error; err != nil {
		return nil, translate(err)
	}
	itemsBySale := make(map[string][]sales.Item, len(saleRecs))
	for _, rec := range itemRecs {
		item, err := rec.toItem()
		if err != nil {
			return nil, err
		}
		itemsBySale[rec.SaleID] = append(itemsBySale[rec.SaleID], item)
	}

	out := make([]*sales.Sale, 0, len(saleRecs))
	for _, rec := range saleRecs {
		sale, err := rec.toSale()
		if err != nil {
			return nil, err
		}
		sale.Items = itemsBySale[rec.ID]
		if sale.Items == nil {
			sale.Items = []sales.Item{}
		}
		out = append(out, sale)
	}
	return out, nil
}

func (t *gormTx) FindItemByID(ctx context.Context, id uuid.UUID) (*sales.Item, error) {
	db, err := t.conn(ctx)
	if err != nil {
		return nil, err
	}
	var rec itemRecord
	if err := db.Where("id = ?", id.String()).Take(&rec).Error; err != nil {
		return nil, translate(err)
	}
	item, err := rec.toItem()
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (t *gormTx) Insert(ctx context.Context, sale *sales.Sale) error {
	if sale.ID == uuid.Nil {
		return sales.ErrEmptyID
	}
	db, err := t.conn(ctx)
	if err != nil {
		return err
	}

	rec := toSaleRecord(sale)
	if err := db.Create(&rec).Error; err != nil {
		return translate(err)
	}
	if len(sale.Items) == 0 {
		return nil
	}
	items := make([]itemRecord, 0, len(sale.Items))
	for idx := range sale.Items {
		item := sale.Items[idx]
		item.SaleID = sale.ID
		items = append(items, toItemRecord(&item, idx))
	}
	return translate(db.Create(&items).Error)
}

func (t *gormTx) Update(ctx context.Context, sale *sales.Sale) error {
	db, err := t.conn(ctx)
	if err != nil {
		return err
	}
	rec := toSaleRecord(sale)
	res := db.Model(&saleRecord{}).
		Where("id = ?", rec.ID).
		Select("customer_id", "customer_name", "branch", "cancelled").
		Updates(&rec)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return sales.ErrRecordNotFound
	}
	return nil
}

func (t *gormTx) InsertItem(ctx context.Context, item *sales.Item) error {
	if item.ID == uuid.Nil {
		return sales.ErrEmptyID
	}
	db, err := t.conn(ctx)
	if err != nil {
		return err
	}

	var last int
	if err := db.Model(&itemRecord{}).
		Where("sale_id = ?", item.SaleID.String()).
		Select("COALESCE(MAX(position), -1)").
		Scan(&last).Error; err != nil {
		return translate(err)
	}
	rec := toItemRecord(item, last+1)
	return translate(db.Create(&rec).Error)
}

func (t *gormTx) UpdateItem(ctx context.Context, item *sales.Item) error {
	db, err := t.conn(ctx)
	if err != nil {
		return err
	}
	rec := toItemRecord(item, 0)
	res := db.Model(&itemRecord{}).
		Where("id = ?", rec.ID).
		Select("product_id", "product_name", "quantity", "unit_price", "discount", "cancelled").
		Updates(&rec)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return sales.ErrRecordNotFound
	}
	return nil
}

func (t *gormTx) DeleteItem(ctx context.Context, id uuid.UUID) error {
	db, err := t.conn(ctx)
	if err != nil {
		return err
	}
	res := db.Where("id = ?", id.String()).Delete(&itemRecord{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return sales.ErrRecordNotFound
	}
	return nil
}

func (t *gormTx) Commit(ctx context.Context) error {
	if t.done {
		return sales.ErrTxDone
	}
	t.done = true
	return t.db.WithContext(ctx).Commit().Error
}

func (t *gormTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	return t.db.WithContext(ctx).Rollback().Error
}
