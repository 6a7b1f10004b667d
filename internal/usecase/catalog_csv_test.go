package usecase

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{raw: "₹1,299", want: 1299},
		{raw: " ₹ 32,999.50 ", want: 32999.5},
		{raw: "$15", want: 15},
		{raw: "499", want: 499},
		{raw: "", want: 0},
		{raw: "₹", want: 0},
		{raw: "nan", want: 0},
		{raw: "free", want: 0},
		{raw: "-10", want: 0},
		{raw: "1e3", want: 0},
		{raw: "1e400", want: 0},
		{raw: "1e999999999", want: 0},
		{raw: "1.2.3", want: 0},
		{raw: ".", want: 0},
		{raw: "0.99", want: 0.99},
		{raw: strings.Repeat("9", 400), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanPrice(tt.raw))
		})
	}

	assert.Zero(t, CleanPricePtr(nil))
}

func TestReadCatalogCSV(t *testing.T) {
	input := "\ufeffName,main_category,sub_category,image,discount_price,actual_price\n" +
		"Running Shoes,Sports,Footwear,https://img/1.jpg,\"₹1,299\",\"₹2,499\"\n" +
		"Kettle,Home,Kitchen,nan,,₹899\n"

	var rows []CatalogRow
	skipped, err := ReadCatalogCSV(strings.NewReader(input), func(row CatalogRow) error {
		rows = append(rows, row)
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, rows, 2)

	assert.Equal(t, "Running Shoes", rows[0].Name)
	assert.Equal(t, "Sports Footwear", rows[0].Category())
	assert.Equal(t, "Running Shoes. Category: Sports Footwear", rows[0].EmbeddingText())
	assert.Equal(t, 1299.0, CleanPricePtr(rows[0].RawPrice()))

	assert.Equal(t, "nan", rows[1].Image)
	assert.Equal(t, 899.0, CleanPricePtr(rows[1].RawPrice()), "empty discount falls back to actual price")
}

func TestReadCatalogCSV_MissingColumns(t *testing.T) {
	input := "name,actual_price\nLamp,₹450\n,\n"

	var rows []CatalogRow
	_, err := ReadCatalogCSV(strings.NewReader(input), func(row CatalogRow) error {
		rows = append(rows, row)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Nil(t, rows[0].DiscountPrice)
	assert.Equal(t, 450.0, CleanPricePtr(rows[0].RawPrice()))
	assert.Equal(t, "Lamp. Category: ", rows[0].EmbeddingText())

	assert.Equal(t, UnknownProductName, rows[1].ProductName())
	assert.Zero(t, CleanPricePtr(rows[1].RawPrice()))
}

func TestReadCatalogCSV_EmptyInput(t *testing.T) {
	called := false
	skipped, err := ReadCatalogCSV(strings.NewReader(""), func(CatalogRow) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.False(t, called)
}

func TestReadCatalogCSV_CallbackErrorStops(t *testing.T) {
	input := "name\na\nb\nc\n"
	stop := errors.New("stop")

	seen := 0
	_, err := ReadCatalogCSV(strings.NewReader(input), func(CatalogRow) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, seen)
}

func TestCatalogRow_RawPrice(t *testing.T) {
	assert.Equal(t, "₹10", *CatalogRow{DiscountPrice: strPtr("₹10"), ActualPrice: strPtr("₹20")}.RawPrice())
	assert.Equal(t, "₹20", *CatalogRow{DiscountPrice: strPtr("NaN"), ActualPrice: strPtr("₹20")}.RawPrice())
	assert.Equal(t, "₹20", *CatalogRow{DiscountPrice: strPtr(" "), ActualPrice: strPtr("₹20")}.RawPrice())
	assert.Nil(t, CatalogRow{}.RawPrice())
}
