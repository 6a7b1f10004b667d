package usecase

import "time"

// SEARCH USECASE

// SearchReq — входящий поисковый запрос. Заполняется ровно одно из QueryText / File, в зависимости от Modality.
type SearchReq struct {
	Modality     string
	QueryText    string
	File         *QueryFile
	CategoryHint string
	Limit        int // 0 — использовать лимит по умолчанию
}

// QueryFile представляет файл, загруженный через multipart/form-data.
type QueryFile struct {
	Data     []byte // байты файла
	MimeType string // Content-Type, определённый по содержимому или заявленный клиентом
	Name     string // оригинальное имя файла (для логов)
}

// CATALOG USECASE

// CatalogRow — одна строка исходного CSV каталога.
// Цены хранятся как сырые строки, nil означает отсутствие колонки.
type CatalogRow struct {
	Name          string
	MainCategory  string
	SubCategory   string
	Image         string
	DiscountPrice *string
	ActualPrice   *string
}

// IngestReport — итог загрузки каталога в индекс.
type IngestReport struct {
	RunID         string
	Files         int
	RowsRead      int
	RowsSkipped   int
	PointsWritten int
	PointsLost    int
	BatchesFailed int
}

type IngestionRunStatus string

const (
	RunRunning   IngestionRunStatus = "running"
	RunCompleted IngestionRunStatus = "completed"
	RunFailed    IngestionRunStatus = "failed"
)

// IngestionRun — запись о запуске загрузки каталога в PostgreSQL.
type IngestionRun struct {
	ID         string
	Source     string
	Collection string
	Status     IngestionRunStatus
	Report     IngestReport
	StartedAt  time.Time
	FinishedAt *time.Time
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
	Failed     OutboxStatus = "failed" // брокер отклонил событие, повторов не будет
)

type OutboxEventType string

const CatalogIngested OutboxEventType = "catalog_ingested"

type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   OutboxEventType
	AggregateID string
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// CatalogIngestedEvent — тело события outbox о завершённой загрузке каталога.
type CatalogIngestedEvent struct {
	RunID         string    `json:"run_id"`
	Collection    string    `json:"collection"`
	Status        string    `json:"status"`
	PointsWritten int       `json:"points_written"`
	PointsLost    int       `json:"points_lost"`
	RowsSkipped   int       `json:"rows_skipped"`
	FinishedAt    time.Time `json:"finished_at"`
}

// INFRASTRUCTURE

type WriteRawMessageReq struct {
	Key       string
	EventType string
	Payload   []byte
}

// MAPPERS

func NewSearchReq(modality, queryText string, file *QueryFile, categoryHint string, limit int) *SearchReq {
	return &SearchReq{
		Modality:     modality,
		QueryText:    queryText,
		File:         file,
		CategoryHint: categoryHint,
		Limit:        limit,
	}
}

func NewQueryFile(data []byte, mimeType string, name string) *QueryFile {
	return &QueryFile{
		Data:     data,
		MimeType: mimeType,
		Name:     name,
	}
}

func NewWriteRawMessageReq(key string, eventType string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:       key,
		EventType: eventType,
		Payload:   payload,
	}
}
