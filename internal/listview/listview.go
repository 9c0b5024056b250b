// Package listview filters and mutates the record collections shown on the
// product and user pages.
package listview

import (
	"context"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/talkincode/storefront/internal/domain"
	"golang.org/x/text/cases"
)

// Fold returns the case-folded form of s used for matching
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Filter keeps the records where any of fields contains query, ignoring
// case. An empty query keeps everything. The input is never modified.
func Filter[T any](records []T, query string, fields ...func(T) string) []T {
	out := make([]T, 0, len(records))
	if query == "" {
		return append(out, records...)
	}
	q := Fold(query)
	for _, r := range records {
		for _, field := range fields {
			if strings.Contains(Fold(field(r)), q) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func productName(p domain.Product) string { return p.ProductName }
func productID(p domain.Product) int64    { return p.ID }
func userName(u domain.User) string       { return u.Name }
func userEmail(u domain.User) string      { return u.Email }
func userID(u domain.User) int64          { return u.ID }

// List holds the fetched collection and the current search query
type List[T any] struct {
	records []T
	Query   string
	fields  []func(T) string
	id      func(T) int64
}

// Products builds the product list, searched by product name
func Products(records []domain.Product, query string) *List[domain.Product] {
	return &List[domain.Product]{records: records, Query: query, fields: []func(domain.Product) string{productName}, id: productID}
}

// Users builds the user list, searched by name or email
func Users(records []domain.User, query string) *List[domain.User] {
	return &List[domain.User]{records: records, Query: query, fields: []func(domain.User) string{userName, userEmail}, id: userID}
}

// All returns every held record
func (l *List[T]) All() []T {
	return l.records
}

// Visible returns the records matching the query
func (l *List[T]) Visible() []T {
	return Filter(l.records, l.Query, l.fields...)
}

// Delete calls del and drops the record from the held collection only after
// del succeeded. On failure the collection is untouched.
func (l *List[T]) Delete(ctx context.Context, id int64, del func(context.Context, int64) error) error {
	if err := del(ctx, id); err != nil {
		return err
	}
	kept := make([]T, 0, len(l.records))
	for _, r := range l.records {
		if l.id(r) != id {
			kept = append(kept, r)
		}
	}
	l.records = kept
	return nil
}

// WriteCSV exports the visible records with their csv tags
func (l *List[T]) WriteCSV(w io.Writer) error {
	rows := l.Visible()
	if err := gocsv.Marshal(&rows, w); err != nil {
		return errors.Wrap(err, "export csv")
	}
	return nil
}
