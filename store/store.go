// Package store реализует обобщенный репозиторий и единицу работы (unit of work)
// поверх произвольного хранилища. Хранилище подключается через Driver.
package store

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Predicate отбирает сущности при поиске
type Predicate[T any] func(*T) bool

// Changes содержит изменения, накопленные единицей работы
type Changes struct {
	Created []any
	Updated []any
}

// Driver предоставляет доступ к хранилищу.
// Load заполняет dest (указатель на срез сущностей) в порядке первичного ключа.
// Commit применяет все изменения атомарно: либо все, либо ни одного.
type Driver interface {
	Load(ctx context.Context, dest any, preload ...string) error
	Commit(ctx context.Context, changes Changes) error
}

// Factory создает новую единицу работы на каждый запрос
type Factory func() *UnitOfWork

// keyed реализуют сущности с первичным ключом, только они попадают в identity map
type keyed interface {
	PrimaryKey() uint
}

// toucher реализуют сущности, которым нужна отметка об изменении
type toucher interface {
	Touch(at time.Time, by string)
}

type identity struct {
	typ reflect.Type
	id  uint
}

type entry struct {
	entity   any // *T
	snapshot any // T
}

// UnitOfWork отслеживает загруженные сущности и накапливает изменения до Commit
type UnitOfWork struct {
	driver Driver
	actor  string
	now    func() time.Time

	mu           sync.Mutex
	repositories map[reflect.Type]any
	tracked      map[identity]*entry
	order        []identity
	added        []any
}

// Option настраивает UnitOfWork
type Option func(*UnitOfWork)

// WithActor задает автора изменений
func WithActor(actor string) Option {
	return func(u *UnitOfWork) {
		u.actor = actor
	}
}

// WithClock задает источник времени для отметок об изменении
func WithClock(now func() time.Time) Option {
	return func(u *UnitOfWork) {
		u.now = now
	}
}

// NewUnitOfWork создает новую единицу работы поверх драйвера
func NewUnitOfWork(driver Driver, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{
		driver:       driver,
		actor:        "System",
		now:          time.Now,
		repositories: make(map[reflect.Type]any),
		tracked:      make(map[identity]*entry),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// NewFactory возвращает фабрику единиц работы для драйвера
func NewFactory(driver Driver, opts ...Option) Factory {
	return func() *UnitOfWork {
		return NewUnitOfWork(driver, opts...)
	}
}

// GetRepository возвращает репозиторий для типа сущности T.
// В пределах одной единицы работы на каждый тип создается ровно один репозиторий.
func GetRepository[T any](u *UnitOfWork) *Repository[T] {
	key := reflect.TypeFor[T]()

	u.mu.Lock()
	defer u.mu.Unlock()

	if r, ok := u.repositories[key]; ok {
		return r.(*Repository[T])
	}

	r := &Repository[T]{uow: u}
	u.repositories[key] = r
	return r
}

// pending возвращает количество сущностей, ожидающих создания
func (u *UnitOfWork) pending() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.added)
}

// Commit сохраняет все созданные и измененные сущности одной операцией хранилища
func (u *UnitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	// Собираем измененные сущности
	var dirty []*entry
	for _, id := range u.order {
		e := u.tracked[id]
		if !reflect.DeepEqual(reflect.ValueOf(e.entity).Elem().Interface(), e.snapshot) {
			dirty = append(dirty, e)
		}
	}

	if len(dirty) == 0 && len(u.added) == 0 {
		return nil
	}

	changes := Changes{
		Created: append([]any(nil), u.added...),
		Updated: make([]any, 0, len(dirty)),
	}

	now := u.now()
	for _, e := range dirty {
		if t, ok := e.entity.(toucher); ok {
			t.Touch(now, u.actor)
		}
		changes.Updated = append(changes.Updated, e.entity)
	}

	if err := u.driver.Commit(ctx, changes); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}

	// Обновляем снимки и начинаем отслеживать созданные сущности
	for _, e := range dirty {
		e.snapshot = reflect.ValueOf(e.entity).Elem().Interface()
	}
	for _, created := range changes.Created {
		u.trackLocked(created)
	}
	u.added = nil

	return nil
}

// add ставит сущность в очередь на создание
func (u *UnitOfWork) add(entity any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.added = append(u.added, entity)
}

// trackLocked начинает отслеживать сущность и возвращает уже отслеживаемый экземпляр, если он есть.
// Вызывается под u.mu.
func (u *UnitOfWork) trackLocked(entity any) any {
	k, ok := entity.(keyed)
	if !ok || k.PrimaryKey() == 0 {
		return entity
	}

	id := identity{typ: reflect.TypeOf(entity).Elem(), id: k.PrimaryKey()}
	if e, ok := u.tracked[id]; ok {
		return e.entity
	}

	u.tracked[id] = &entry{
		entity:   entity,
		snapshot: reflect.ValueOf(entity).Elem().Interface(),
	}
	u.order = append(u.order, id)
	return entity
}

// Repository предоставляет поиск сущностей одного типа по предикату
type Repository[T any] struct {
	uow *UnitOfWork
}

// All возвращает все сущности типа T
func (r *Repository[T]) All(ctx context.Context, preload ...string) ([]*T, error) {
	return r.Find(ctx, nil, preload...)
}

// Find возвращает все сущности, удовлетворяющие предикату. Пустой предикат отбирает все.
func (r *Repository[T]) Find(ctx context.Context, where Predicate[T], preload ...string) ([]*T, error) {
	rows, err := r.load(ctx, preload)
	if err != nil {
		return nil, err
	}

	result := make([]*T, 0, len(rows))
	for _, row := range rows {
		if where == nil || where(row) {
			result = append(result, row)
		}
	}
	return result, nil
}

// First возвращает первую сущность, удовлетворяющую предикату, или nil, если таких нет
func (r *Repository[T]) First(ctx context.Context, where Predicate[T], preload ...string) (*T, error) {
	rows, err := r.load(ctx, preload)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if where == nil || where(row) {
			return row, nil
		}
	}
	return nil, nil
}

// Add ставит новую сущность в очередь на создание при следующем Commit
func (r *Repository[T]) Add(entity *T) {
	r.uow.add(entity)
}

// load читает сущности из хранилища и подключает их к identity map
func (r *Repository[T]) load(ctx context.Context, preload []string) ([]*T, error) {
	var rows []T
	if err := r.uow.driver.Load(ctx, &rows, preload...); err != nil {
		return nil, fmt.Errorf("store: load %s: %w", reflect.TypeFor[T]().Name(), err)
	}

	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()

	result := make([]*T, len(rows))
	for i := range rows {
		result[i] = r.uow.trackLocked(&rows[i]).(*T)
	}
	return result, nil
}
