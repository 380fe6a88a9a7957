package sales

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "sales_engine/internal/sales"

// Service runs the sale lifecycle operations on a Storage backend. Every
// operation works inside one unit of work and publishes its event only after
// the unit of work has been committed.
type Service struct {
	storage   Storage
	publisher Publisher
	numberer  Numberer
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now as the source of creation and event times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTracer replaces the global otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// NewService creates a new Service. A nil publisher logs events through
// logger and a nil numberer falls back to a sequence seeded from the clock.
func NewService(storage Storage, publisher Publisher, numberer Numberer, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	if publisher == nil {
		publisher = NewLogPublisher(logger)
	}
	if numberer == nil {
		numberer = NewSequence(time.Now().UnixNano())
	}

	s := &Service{
		storage:   storage,
		publisher: publisher,
		numberer:  numberer,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add creates a sale. The sale must not exist yet; its order number,
// creation time and cancelled flag are assigned here. Add works on a copy of
// sale and returns it, so the argument is never modified.
func (s *Service) Add(ctx context.Context, in *Sale) (*Sale, error) {
	const op = "add sale"
	sale := &Sale{}
	*sale = *in
	sale.Items = slices.Clone(in.Items)
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	ctx, span := s.start(ctx, "sales.Add", attribute.String("sale.id", sale.ID.String()))
	defer span.End()

	log := s.logger.With(zap.String("sale_id", sale.ID.String()))
	log.Info("adding sale", zap.Int("items", len(sale.Items)))

	tx, err := s.storage.Begin(ctx)
	if err != nil {
		return nil, s.fail(span, log, persistence(op, err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.FindByID(ctx, sale.ID); err == nil {
		return nil, s.fail(span, log, alreadyExists(op, "sale %s already exists", sale.ID))
	} else if !errors.Is(err, ErrRecordNotFound) {
		return nil, s.fail(span, log, persistence(op, err))
	}

	inUse, err := itemIDsInUse(ctx, tx, sale.Items, nil)
	if err != nil {
		return nil, s.fail(span, log, persistence(op, err))
	}

	sale.CreatedAt = s.now()
	sale.Cancelled = false
	for i := range sale.Items {
		item := &sale.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.SaleID = sale.ID
		item.Cancelled = false
	}

	_, messages := sale.Validate()
	if messages = append(messages, inUse...); len(messages) > 0 {
		return nil, s.fail(span, log, invalid(op, messages))
	}
	sale.OrderNumber = s.numberer.Next()

	if err := tx.Insert(ctx, sale); err != nil {
		return nil, s.fail(span, log, persistence(op, err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, s.fail(span, log, persistence(op, err))
	}

	s.publish(ctx, log, NewSaleCreated(sale.ID, s.now()))
	log.Info("sale added", zap.Int64("order_number", sale.OrderNumber))
	return sale, nil
}

// Update copies the customer fields of sale onto the stored sale and
// reconciles the stored items against sale.Items, which is taken as the
// complete desired item collection. It returns the stored sale after the merge.
func (s *Service) Update(ctx context.Context, sale *Sale) (*Sale, error) {
	const op = "update sale"
	ctx, span := s.start(ctx, "sales.Update", attribute.String("sale.id", sale.ID.String()))
	defer span.End()

	log := s.logger.With(zap.String("sale_id", sale.ID.String()))
	log.Info("updating sale", zap.Int("items", len(sale.Items)))

	tx, err := s.storage.Begin(ctx)
	if err != nil {
		return nil, s.fail(span, log, persistence(op, err))
	}
	defer tx.Rollback(ctx)

	existing, err := tx.FindByIDWithItems(ctx, sale.ID)
	if err != nil {
		return nil, s.fail(span, log, s.lookupError(op, err, "sale %s not found", sale.ID))
	}

	if dups := duplicateItemIDs(sale.Items); len(dups) > 0 {
		return nil, s.fail(span, log, invalid(op, dups))
	}

	known := make(map[uuid.UUID]struct{}, len(existing.Items))
	for _, item := range existing.Items {
		known[item.ID] = struct{}{}
	}
	inUse, err := itemIDsInUse(ctx, tx, sale.Items, known)
	if err != nil {
		return nil, s.fail(span, log, persistence(op, err))
	}
	if len(inUse) > 0 {
		return nil, s.fail(span, log, invalid(op, inUse))
	}

	existing.CustomerID = sale.CustomerID
	existing.CustomerName = sale.CustomerName
	existing.Branch = sale.Branch

	merged, removed := mergeItems(existing.ID, existing.Items, sale.Items)
	existing.Items = merged

	if ok, messages := existing.Validate(); !ok {
		return nil, s.fail(span, log, invalid(op, messages))
	}

	if err := tx.Update(ctx, existing); err != nil {
		return nil, s.fail(span, log, persistence(op, err))
	}
	for _, id := range removed {
		if err := tx.DeleteItem(ctx, id); err != nil {
			return nil, s.fail(span, log, persistence(op, err))
		}
	}
	for i := range existing.Items {
		item := &existing.Items[i]
		if _, ok := known[item.ID]; ok {
			err = tx.UpdateItem(ctx, item)
		} else {
			err = tx.InsertItem(ctx, item)
		}
		if err != nil {
			return nil, s.fail(span, log, persistence(op, err))
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, s.fail(span, log, persistence(op, err))
	}

	s.publish(ctx, log, NewSaleUpdated(existing.ID, s.now()))
	log.Info("sale updated", zap.Int("items", len(existing.Items)), zap.Int("removed", len(removed)))
	return existing, nil
}

// CancelSale marks a sale cancelled. Cancelling an already cancelled sale
// succeeds without writing or publishing.
func (s *Service) CancelSale(ctx context.Context, id uuid.UUID) error {
	const op = "cancel sale"
	ctx, span := s.start(ctx, "sales.CancelSale", attribute.String("sale.id", id.String()))
	defer span.End()

	log := s.logger.With(zap.String("sale_id", id.String()))
	log.Info("cancelling sale")

	tx, err := s.storage.Begin(ctx)
	if err != nil {
		return s.fail(span, log, persistence(op, err))
	}
	defer tx.Rollback(ctx)

	sale, err := tx.FindByID(ctx, id)
	if err != nil {
		return s.fail(span, log, s.lookupError(op, err, "sale %s not found", id))
	}
	if sale.Cancelled {
		log.Info("sale already cancelled")
		return nil
	}

	sale.Cancelled = true
	if err := tx.Update(ctx, sale); err != nil {
		return s.fail(span, log, persistence(op, err))
	}
	if err := tx.Commit(ctx); err != nil {
		return s.fail(span, log, persistence(op, err))
	}

	s.publish(ctx, log, NewSaleCancelled(id, s.now()))
	log.Info("sale cancelled")
	return nil
}

// CancelItem marks one line item cancelled. The parent sale's own cancelled
// flag is not consulted. Cancelling an already cancelled item succeeds
// without writing or publishing.
func (s *Service) CancelItem(ctx context.Context, saleID, itemID uuid.UUID) error {
	const op = "cancel item"
	ctx, span := s.start(ctx, "sales.CancelItem",
		attribute.String("sale.id", saleID.String()),
		attribute.String("item.id", itemID.String()),
	)
	defer span.End()

	log := s.logger.With(zap.String("sale_id", saleID.String()), zap.String("item_id", itemID.String()))
	log.Info("cancelling sale item")

	tx, err := s.storage.Begin(ctx)
	if err != nil {
		return s.fail(span, log, persistence(op, err))
	}
	defer tx.Rollback(ctx)

	sale, err := tx.FindByIDWithItems(ctx, saleID)
	if err != nil {
		return s.fail(span, log, s.lookupError(op, err, "sale %s not found", saleID))
	}
	idx := sale.findItem(itemID)
	if idx < 0 {
		return s.fail(span, log, notFound(op, "item %s not found", itemID))
	}

	item := &sale.Items[idx]
	if item.Cancelled {
		log.Info("sale item already cancelled")
		return nil
	}

	item.Cancelled = true
	if err := tx.UpdateItem(ctx, item); err != nil {
		return s.fail(span, log, persistence(op, err))
	}
	if err := tx.Commit(ctx); err != nil {
		return s.fail(span, log, persistence(op, err))
	}

	s.publish(ctx, log, NewItemCancelled(saleID, itemID, s.now()))
	log.Info("sale item cancelled")
	return nil
}

// Get returns one sale with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Sale, error) {
	const op = "get sale"
	ctx, span := s.start(ctx, "sales.Get", attribute.String("sale.id", id.String()))
	defer span.End()

	log := s.logger.With(zap.String("sale_id", id.String()))

	tx, err := s.storage.Begin(ctx)
	if err != nil {
		return nil, s.fail(span, log, persistence(op, err))
	}
	defer tx.Rollback(ctx)

	sale, err := tx.FindByIDWithItems(ctx, id)
	if err != nil {
		return nil, s.fail(span, log, s.lookupError(op, err, "sale %s not found", id))
	}
	return sale, nil
}

// GetAll returns every sale with its items in storage order.
func (s *Service) GetAll(ctx context.Context) ([]*Sale, error) {
	const op = "list sales"
	ctx, span := s.start(ctx, "sales.GetAll")
	defer span.End()

	s.logger.Info("loading all sales")

	tx, err := s.storage.Begin(ctx)
	if err != nil {
		return nil, s.fail(span, s.logger, persistence(op, err))
	}
	defer tx.Rollback(ctx)

	all, err := tx.FindAllWithItems(ctx)
	if err != nil {
		return nil, s.fail(span, s.logger, persistence(op, err))
	}

	s.logger.Info("all sales loaded", zap.Int("results_count", len(all)))
	return all, nil
}

// itemIDsInUse reports items whose non-nil id is already stored under any
// sale. Ids in owned belong to the sale being written and are skipped.
func itemIDsInUse(ctx context.Context, tx Tx, items []Item, owned map[uuid.UUID]struct{}) ([]string, error) {
	var messages []string
	for idx, item := range items {
		if item.ID == uuid.Nil {
			continue
		}
		if _, ok := owned[item.ID]; ok {
			continue
		}
		_, err := tx.FindItemByID(ctx, item.ID)
		switch {
		case err == nil:
			messages = append(messages, fmt.Sprintf("item %d: item id %s already in use", idx+1, item.ID))
		case !errors.Is(err, ErrRecordNotFound):
			return nil, err
		}
	}
	return messages, nil
}

func (s *Service) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) lookupError(op string, err error, format string, args ...any) error {
	if errors.Is(err, ErrRecordNotFound) {
		return notFound(op, format, args...)
	}
	return persistence(op, err)
}

func (s *Service) fail(span trace.Span, log *zap.Logger, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Error("sale operation failed", zap.Error(err))
	return err
}

// publish hands e to the publisher. The unit of work is already committed, so
// publisher errors and panics are logged and dropped.
func (s *Service) publish(ctx context.Context, log *zap.Logger, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("event publisher panicked", zap.String("event", string(e.Kind())), zap.Any("panic", r))
		}
	}()
	if err := s.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		log.Warn("failed to publish event", zap.String("event", string(e.Kind())), zap.Error(err))
	}
}
