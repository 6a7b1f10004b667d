package domain

// ProductRecord описывает товар в векторном индексе.
// ID присваивается при загрузке по позиции строки источника и не стабилен между перезагрузками.
type ProductRecord struct {
	ID          uint64
	Embedding   Vector
	ProductName string
	Price       float64 // 0 означает «цена неизвестна»
	ImageURL    string  // "" и "nan" означают «нет изображения»
}

func NewProductRecord(id uint64, embedding Vector, name string, price float64, imageURL string) *ProductRecord {
	return &ProductRecord{
		ID:          id,
		Embedding:   embedding,
		ProductName: name,
		Price:       price,
		ImageURL:    imageURL,
	}
}

// Payload возвращает сохраняемую часть записи в том виде, в котором её читает поиск.
func (p *ProductRecord) Payload() Payload {
	return Payload{
		PayloadProductName: p.ProductName,
		PayloadPrice:       p.Price,
		PayloadImageURL:    p.ImageURL,
	}
}
