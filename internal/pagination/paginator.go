// Package pagination разбивает список на страницы фиксированного размера.
package pagination

// DefaultPageSize — размер страницы витрины.
const DefaultPageSize = 6

// Paginator хранит список и номер текущей страницы (с 1).
// Не потокобезопасен: создаётся на один запрос или под защитой владельца.
type Paginator[T any] struct {
	pageSize int
	page     int
	items    []T
}

// New создает Paginator; pageSize <= 0 заменяется на DefaultPageSize.
func New[T any](items []T, pageSize int) *Paginator[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Paginator[T]{pageSize: pageSize, page: 1, items: items}
}

// SetItems заменяет список и возвращает на первую страницу.
func (p *Paginator[T]) SetItems(items []T) {
	p.items = items
	p.page = 1
}

// Page — номер текущей страницы.
func (p *Paginator[T]) Page() int { return p.page }

// PageSize — размер страницы.
func (p *Paginator[T]) PageSize() int { return p.pageSize }

// TotalPages — число страниц; 0 для пустого списка.
func (p *Paginator[T]) TotalPages() int {
	return (len(p.items) + p.pageSize - 1) / p.pageSize
}

// Total — число элементов во всем списке.
func (p *Paginator[T]) Total() int { return len(p.items) }

// Items возвращает элементы текущей страницы.
func (p *Paginator[T]) Items() []T {
	start := (p.page - 1) * p.pageSize
	if start >= len(p.items) {
		return []T{}
	}
	end := min(start+p.pageSize, len(p.items))
	out := make([]T, end-start)
	copy(out, p.items[start:end])
	return out
}

// GoTo переходит на page, если такая страница существует.
func (p *Paginator[T]) GoTo(page int) bool {
	if page < 1 || page > p.TotalPages() {
		return false
	}
	p.page = page
	return true
}

// Next переходит на следующую страницу, если она есть.
func (p *Paginator[T]) Next() bool { return p.GoTo(p.page + 1) }

// Prev переходит на предыдущую страницу, если она есть.
func (p *Paginator[T]) Prev() bool { return p.GoTo(p.page - 1) }
