package domain

// SearchHit — каноническое представление одного результата поиска независимо от формата ответа индекса.
// nil в полях означает, что поле отсутствовало в payload.
type SearchHit struct {
	ID          string
	ProductName *string
	Price       *float64
	ImageURL    *string
	Score       float32
}

// ResultEntry — элемент внешнего контракта результатов
type ResultEntry struct {
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
	Score       float32 `json:"score"`
}

// SearchResult — ответ поиска: что система поняла из запроса и ранжированный список товаров.
type SearchResult struct {
	DetectedQuery string        `json:"detected_query"`
	Results       []ResultEntry `json:"results"`
}

func NewSearchResult(detected string, results []ResultEntry) *SearchResult {
	if results == nil {
		results = []ResultEntry{}
	}

	return &SearchResult{
		DetectedQuery: detected,
		Results:       results,
	}
}
