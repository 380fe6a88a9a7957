package sales

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned by storage lookups that match nothing.
var ErrRecordNotFound = errors.New("record not found")

// ErrEmptyID is returned when trying to store a sale or item with a nil ID.
var ErrEmptyID = errors.New("empty ID")

// ErrDuplicateKey is returned when an insert collides with a stored ID.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrTxDone is returned by a Tx used after Commit or Rollback.
var ErrTxDone = errors.New("transaction already finished")

// Storage opens units of work over the sales store.
type Storage interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a unit of work. Writes become visible to other units of work only
// after Commit succeeds, and either all of them land or none do.
// Rollback after Commit is a no-op.
type Tx interface {
	// FindByID loads a sale without its items.
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*Sale, error)
	FindAllWithItems(ctx context.Context) ([]*Sale, error)
	// FindItemByID loads one item regardless of which sale owns it.
	FindItemByID(ctx context.Context, id uuid.UUID) (*Item, error)

	// Insert stores a new sale together with its items.
	Insert(ctx context.Context, sale *Sale) error
	// Update writes the sale's own fields. Items are untouched.
	Update(ctx context.Context, sale *Sale) error
	InsertItem(ctx context.Context, item *Item) error
	UpdateItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, id uuid.UUID) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// LocalStorage provides an in-memory implementation of Storage.
type LocalStorage struct {
	mu    sync.RWMutex
	state localState
}

type localState struct {
	sales     map[uuid.UUID]Sale
	order     []uuid.UUID
	items     map[uuid.UUID]Item
	itemOrder map[uuid.UUID][]uuid.UUID
}

// NewLocalStorage instantiates a new LocalStorage with empty maps.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		state: localState{
			sales:     map[uuid.UUID]Sale{},
			items:     map[uuid.UUID]Item{},
			itemOrder: map[uuid.UUID][]uuid.UUID{},
		},
	}
}

func (l *LocalStorage) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &localTx{storage: l}, nil
}

func (s localState) clone() localState {
	out := localState{
		sales:     make(map[uuid.UUID]Sale, len(s.sales)),
		order:     slices.Clone(s.order),
		items:     make(map[uuid.UUID]Item, len(s.items)),
		itemOrder: make(map[uuid.UUID][]uuid.UUID, len(s.itemOrder)),
	}
	for k, v := range s.sales {
		out.sales[k] = v
	}
	for k, v := range s.items {
		out.items[k] = v
	}
	for k, v := range s.itemOrder {
		out.itemOrder[k] = slices.Clone(v)
	}
	return out
}

func (s localState) load(id uuid.UUID, withItems bool) (*Sale, error) {
	sale, ok := s.sales[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	sale.Items = nil
	if withItems {
		sale.Items = make([]Item, 0, len(s.itemOrder[id]))
		for _, itemID := range s.itemOrder[id] {
			sale.Items = append(sale.Items, s.items[itemID])
		}
	}
	return &sale, nil
}

func (s *localState) insertItem(item Item) error {
	if item.ID == uuid.Nil {
		return ErrEmptyID
	}
	if _, ok := s.items[item.ID]; ok {
		return ErrDuplicateKey
	}
	if _, ok := s.sales[item.SaleID]; !ok {
		return ErrRecordNotFound
	}
	s.items[item.ID] = item
	s.itemOrder[item.SaleID] = append(s.itemOrder[item.SaleID], item.ID)
	return nil
}

type localOp func(s *localState) error

type localTx struct {
	storage *LocalStorage
	ops     []localOp
	done    bool
}

func (t *localTx) read(ctx context.Context) (localState, error) {
	if t.done {
		return localState{}, ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		return localState{}, err
	}
	t.storage.mu.RLock()
	return t.storage.state, nil
}

func (t *localTx) FindByID(ctx context.Context, id uuid.UUID) (*Sale, error) {
	st, err := t.read(ctx)
	if err != nil {
		return nil, err
	}
	defer t.storage.mu.RUnlock()
	return st.load(id, false)
}

func (t *localTx) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*Sale, error) {
	st, err := t.read(ctx)
	if err != nil {
		return nil, err
	}
	defer t.storage.mu.RUnlock()
	return st.load(id, true)
}

func (t *localTx) FindAllWithItems(ctx context.Context) ([]*Sale, error) {
	st, err := t.read(ctx)
	if err != nil {
		return nil, err
	}
	defer t.storage.mu.RUnlock()

	out := make([]*Sale, 0, len(st.order))
	for _, id := range st.order {
		sale, err := st.load(id, true)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, nil
}

func (t *localTx) FindItemByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	st, err := t.read(ctx)
	if err != nil {
		return nil, err
	}
	defer t.storage.mu.RUnlock()

	item, ok := st.items[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &item, nil
}

func (t *localTx) stage(ctx context.Context, op localOp) error {
	if t.done {
		return ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.ops = append(t.ops, op)
	return nil
}

func (t *localTx) Insert(ctx context.Context, sale *Sale) error {
	if sale.ID == uuid.Nil {
		return ErrEmptyID
	}
	row := *sale
	items := slices.Clone(sale.Items)
	row.Items = nil
	return t.stage(ctx, func(s *localState) error {
		if _, ok := s.sales[row.ID]; ok {
			return ErrDuplicateKey
		}
		s.sales[row.ID] = row
		s.order = append(s.order, row.ID)
		for _, item := range items {
			item.SaleID = row.ID
			if err := s.insertItem(item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (t *localTx) Update(ctx context.Context, sale *Sale) error {
	row := *sale
	row.Items = nil
	return t.stage(ctx, func(s *localState) error {
		if _, ok := s.sales[row.ID]; !ok {
			return ErrRecordNotFound
		}
		s.sales[row.ID] = row
		return nil
	})
}

func (t *localTx) InsertItem(ctx context.Context, item *Item) error {
	row := *item
	return t.stage(ctx, func(s *localState) error {
		return s.insertItem(row)
	})
}

func (t *localTx) UpdateItem(ctx context.Context, item *Item) error {
	row := *item
	return t.stage(ctx, func(s *localState) error {
		cur, ok := s.items[row.ID]
		if !ok {
			return ErrRecordNotFound
		}
		row.SaleID = cur.SaleID
		s.items[row.ID] = row
		return nil
	})
}

func (t *localTx) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return t.stage(ctx, func(s *localState) error {
		cur, ok := s.items[id]
		if !ok {
			return ErrRecordNotFound
		}
		delete(s.items, id)
		s.itemOrder[cur.SaleID] = slices.DeleteFunc(s.itemOrder[cur.SaleID], func(v uuid.UUID) bool {
			return v == id
		})
		return nil
	})
}

// Commit applies the staged writes to a copy of the store and swaps it in
// only if every write succeeded.
func (t *localTx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.done = true

	t.storage.mu.Lock()
	defer t.storage.mu.Unlock()

	next := t.storage.state.clone()
	for _, op := range t.ops {
		if err := op(&next); err != nil {
			return err
		}
	}
	t.storage.state = next
	return nil
}

func (t *localTx) Rollback(context.Context) error {
	t.done = true
	t.ops = nil
	return nil
}
