package usecase

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/DRSN-tech/finsmart-search/pkg/e"
)

// Колонки исходного CSV каталога
const (
	columnName          = "name"
	columnMainCategory  = "main_category"
	columnSubCategory   = "sub_category"
	columnImage         = "image"
	columnDiscountPrice = "discount_price"
	columnActualPrice   = "actual_price"
)

// ReadCatalogCSV читает CSV каталога построчно и передаёт строки в fn.
// Битые строки пропускаются и учитываются в возвращаемом счётчике.
func ReadCatalogCSV(r io.Reader, fn func(row CatalogRow) error) (int, error) {
	const op = "ReadCatalogCSV"

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, e.Wrap(op, err)
	}
	columns := indexColumns(header)

	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return skipped, nil
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			continue
		}
		if err != nil {
			return skipped, e.Wrap(op, err)
		}

		if err := fn(columns.row(record)); err != nil {
			return skipped, err
		}
	}
}

type columnIndex map[string]int

func indexColumns(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	return idx
}

func (c columnIndex) value(record []string, column string) (string, bool) {
	i, ok := c[column]
	if !ok || i >= len(record) {
		return "", false
	}

	return strings.TrimSpace(record[i]), true
}

func (c columnIndex) text(record []string, column string) string {
	v, _ := c.value(record, column)
	return v
}

func (c columnIndex) optional(record []string, column string) *string {
	v, ok := c.value(record, column)
	if !ok {
		return nil
	}

	return &v
}

func (c columnIndex) row(record []string) CatalogRow {
	return CatalogRow{
		Name:          c.text(record, columnName),
		MainCategory:  c.text(record, columnMainCategory),
		SubCategory:   c.text(record, columnSubCategory),
		Image:         c.text(record, columnImage),
		DiscountPrice: c.optional(record, columnDiscountPrice),
		ActualPrice:   c.optional(record, columnActualPrice),
	}
}

// RawPrice выбирает цену строки: цена со скидкой, если она указана, иначе обычная.
// Выгрузки из pandas пишут пропуски как "nan".
func (r CatalogRow) RawPrice() *string {
	if r.DiscountPrice != nil {
		if v := strings.TrimSpace(*r.DiscountPrice); v != "" && !strings.EqualFold(v, "nan") {
			return r.DiscountPrice
		}
	}

	return r.ActualPrice
}

// Category объединяет основную и дополнительную категории через пробел.
func (r CatalogRow) Category() string {
	return strings.TrimSpace(strings.Join([]string{r.MainCategory, r.SubCategory}, " "))
}

// EmbeddingText — текст, по которому строится вектор товара при загрузке.
func (r CatalogRow) EmbeddingText() string {
	return r.ProductName() + ". Category: " + r.Category()
}

// ProductName возвращает название товара или UnknownProductName для пустых строк.
func (r CatalogRow) ProductName() string {
	if r.Name == "" {
		return UnknownProductName
	}

	return r.Name
}
