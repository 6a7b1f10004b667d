package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	"github.com/jimlawless/whereami"
)

type Config struct {
	Minio     *MinIOCfg
	Http      *HTTPConfig
	Db        *PGDBCfg
	Qdrant    *QdrantCfg
	Redis     *RedisCfg
	Ml        *MLServiceCfg
	OpenAI    *OpenAICfg
	Search    *SearchCfg
	Ingestion *IngestionCfg
	Kafka     *KafkaCfg // nil, если KAFKA_BROKERS не задан
}

type KafkaCfg struct {
	Topic             string
	Brokers           []string
	ClientID          string // Имя клиента в логах брокера
	Partitions        int
	ReplicationFactor int
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Бакет с исходными CSV каталога
	SourcePrefix      string // Префикс объектов CSV внутри бакета
	MinioRootUser     string // Имя пользователя для доступа к Minio
	MinioRootPassword string // Пароль для доступа к Minio
	MinioUseSSL       bool
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PGDBCfg struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MigrationsDir string
}

// DSN возвращает строку подключения к PostgreSQL
func (c *PGDBCfg) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type QdrantCfg struct {
	Transport            string // grpc | rest
	Port                 int
	Host                 string
	RestURL              string // базовый URL REST API, например https://xyz.cloud.qdrant.io:6333
	ApiKey               string
	QdrantCollectionName string // имя коллекции в Qdrant
	UseTLS               bool
	VectorSize           uint64
	Timeout              time.Duration // таймаут одного запроса к индексу
}

const (
	QdrantTransportGRPC = "grpc"
	QdrantTransportREST = "rest"
)

type RedisCfg struct {
	Enabled      bool
	Addr         string
	Password     string
	User         string
	DB           int
	MaxRetries   int
	DialTimeout  time.Duration
	Timeout      time.Duration
	EmbeddingTTL time.Duration
}

type MLServiceCfg struct {
	Addr           string
	ModelName      string
	MaxConcurrent  int
	MaxRetries     int
	Timeout        time.Duration
	ImageInputSize int // сторона квадрата, к которому приводится изображение перед CLIP
}

// OpenAICfg настраивает OpenAI-совместимый API для транскрибации (Whisper).
type OpenAICfg struct {
	Enabled         bool
	APIKey          string
	BaseURL         string
	TranscribeModel string
	Language        string
}

type SearchCfg struct {
	DefaultLimit int
	MaxLimit     int
	AudioTmpDir  string
	MaxFileSize  int64
}

type IngestionCfg struct {
	BatchSize  int
	MaxRetries int
	SourceDir  string
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
func Load(log logger.Logger) (*Config, error) {
	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	qdrant, err := loadQdrantCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ml, err := loadMLServiceCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	search, err := loadSearchCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ingestion, err := loadIngestionCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Minio:     minio,
		Http:      http,
		Db:        loadPGDBCfg(),
		Qdrant:    qdrant,
		Redis:     redis,
		Ml:        ml,
		OpenAI:    loadOpenAICfg(),
		Search:    search,
		Ingestion: ingestion,
		Kafka:     kafka,
	}, nil
}

// RequireDB проверяет, что заданы обязательные параметры PostgreSQL.
func (c *Config) RequireDB() error {
	switch {
	case c.Db.User == "":
		return fmt.Errorf("POSTGRES_USER is required")
	case c.Db.Password == "":
		return fmt.Errorf("POSTGRES_PASSWORD is required")
	case c.Db.DBName == "":
		return fmt.Errorf("POSTGRES_DB is required")
	}

	return nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultClientID          = "finsmart-search"
		defaultTopic             = "catalog.events"
	)

	brokerStr := os.Getenv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil, nil
	}
	brokers := strings.Split(brokerStr, ",")

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	return &KafkaCfg{
		Brokers:           brokers,
		Topic:             getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		ClientID:          getEnvOrDefault("KAFKA_CLIENT_ID", defaultClientID),
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL   = false
		defaultEndpoint = "minio:9000"
		defaultBucket   = "catalog"
		defaultPrefix   = "data/"
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint),
		BucketName:        getEnvOrDefault("BUCKET_NAME", defaultBucket),
		SourcePrefix:      getEnvOrDefault("CATALOG_PREFIX", defaultPrefix),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8000"
		defaultReadTimeout  = 30 * time.Second
		defaultWriteTimeout = 60 * time.Second
		defaultIdleTimeout  = 60 * time.Second
	)

	port := getEnvOrDefault("HTTP_PORT", defaultPort)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadPGDBCfg() *PGDBCfg {
	const (
		defaultHost       = "localhost"
		defaultPort       = "5432"
		defaultSSLMode    = "disable"
		defaultMigrations = "db/migrations"
	)

	return &PGDBCfg{
		Host:          getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:          getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:          getEnv("POSTGRES_USER"),
		Password:      getEnv("POSTGRES_PASSWORD"),
		DBName:        getEnv("POSTGRES_DB"),
		SSLMode:       getEnvOrDefault("SSL_MODE", defaultSSLMode),
		MigrationsDir: getEnvOrDefault("MIGRATIONS_DIR", defaultMigrations),
	}
}

func loadQdrantCfg(logger logger.Logger) (*QdrantCfg, error) {
	const (
		defaultQdrantGRPCPort = "6334"
		defaultUseTLS         = false
		defaultVectorSize     = "512"
		defaultCollection     = "finsmart_products"
		defaultTimeout        = 10 * time.Second
	)

	transport := strings.ToLower(getEnvOrDefault("QDRANT_TRANSPORT", QdrantTransportGRPC))
	if transport != QdrantTransportGRPC && transport != QdrantTransportREST {
		err := fmt.Errorf("%w: QDRANT_TRANSPORT=%q", e.ErrIncorrectEnvVariable, transport)
		logger.Errorf(err, "invalid QDRANT_TRANSPORT")
		return nil, err
	}

	strPort := getEnvOrDefault("QDRANT_GRPC_PORT", defaultQdrantGRPCPort)
	port, err := strconv.Atoi(strPort)
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_PORT")
		return nil, err
	}

	useTLS, err := strconv.ParseBool(getEnvOrDefault("QDRANT_USE_TLS", strconv.FormatBool(defaultUseTLS)))
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	strVectorSize := getEnvOrDefault("VECTOR_SIZE", defaultVectorSize)
	vectorSize, err := strconv.ParseUint(strVectorSize, 10, 64)
	if err != nil || vectorSize == 0 {
		if err == nil {
			err = e.ErrIncorrectEnvVariable
		}
		logger.Errorf(err, "invalid VECTOR_SIZE")
		return nil, err
	}

	timeout, err := parseDurationEnv("QDRANT_TIMEOUT", defaultTimeout)
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_TIMEOUT")
		return nil, err
	}

	restURL := strings.TrimRight(getEnv("QDRANT_URL"), "/")
	if transport == QdrantTransportREST && restURL == "" {
		err := fmt.Errorf("QDRANT_URL is required for rest transport")
		logger.Errorf(err, "missing QDRANT_URL")
		return nil, err
	}

	return &QdrantCfg{
		Transport:            transport,
		Host:                 getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:                 port,
		RestURL:              restURL,
		ApiKey:               getEnv("QDRANT__SERVICE__API_KEY"),
		QdrantCollectionName: getEnvOrDefault("COLLECTION_NAME", defaultCollection),
		UseTLS:               useTLS,
		VectorSize:           vectorSize,
		Timeout:              timeout,
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultEmbeddingTTL = 24 * time.Hour
	)

	addr := getEnv("REDIS_ADDR")

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	embeddingTTL, err := parseDurationEnv("EMBEDDING_CACHE_TTL", defaultEmbeddingTTL)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_CACHE_TTL")
		return nil, err
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Enabled:      addr != "",
		Addr:         addr,
		Password:     getEnv("REDIS_PASSWORD"),
		User:         getEnv("REDIS_USER"),
		DB:           db,
		MaxRetries:   maxRetries,
		DialTimeout:  dialTimeout,
		Timeout:      timeout,
		EmbeddingTTL: embeddingTTL,
	}, nil
}

func loadMLServiceCfg(log logger.Logger) (*MLServiceCfg, error) {
	const (
		defaultHost           = "ml-service"
		defaultPort           = "50051"
		defaultModel          = "clip-ViT-B-32"
		defaultMaxConcurrent  = 4
		defaultMaxRetries     = 3
		defaultTimeout        = 30 * time.Second
		defaultImageInputSize = 224
	)

	host := getEnvOrDefault("ML_HOST", defaultHost)
	port := getEnvOrDefault("ML_PORT", defaultPort)

	maxConcurrent, err := parseIntEnv("ML_MAX_CONCURRENT", defaultMaxConcurrent)
	if err != nil || maxConcurrent <= 0 {
		log.Errorf(err, "invalid ML_MAX_CONCURRENT")
		return nil, e.ErrIncorrectEnvVariable
	}

	maxRetries, err := parseIntEnv("ML_MAX_RETRIES", defaultMaxRetries)
	if err != nil || maxRetries <= 0 {
		log.Errorf(err, "invalid ML_MAX_RETRIES")
		return nil, e.ErrIncorrectEnvVariable
	}

	timeout, err := parseDurationEnv("ML_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid ML_TIMEOUT")
		return nil, err
	}

	imageSize, err := parseIntEnv("ML_IMAGE_INPUT_SIZE", defaultImageInputSize)
	if err != nil || imageSize <= 0 {
		log.Errorf(err, "invalid ML_IMAGE_INPUT_SIZE")
		return nil, e.ErrIncorrectEnvVariable
	}

	return &MLServiceCfg{
		Addr:           host + ":" + port,
		ModelName:      getEnvOrDefault("ML_MODEL_NAME", defaultModel),
		MaxConcurrent:  maxConcurrent,
		MaxRetries:     maxRetries,
		Timeout:        timeout,
		ImageInputSize: imageSize,
	}, nil
}

func loadOpenAICfg() *OpenAICfg {
	const defaultModel = "whisper-1"

	apiKey := getEnv("OPENAI_API_KEY")

	return &OpenAICfg{
		Enabled:         apiKey != "",
		APIKey:          apiKey,
		BaseURL:         getEnv("OPENAI_BASE_URL"),
		TranscribeModel: getEnvOrDefault("OPENAI_TRANSCRIBE_MODEL", defaultModel),
		Language:        getEnv("OPENAI_TRANSCRIBE_LANGUAGE"),
	}
}

func loadSearchCfg(log logger.Logger) (*SearchCfg, error) {
	const (
		defaultLimit       = 5
		defaultMaxLimit    = 100
		defaultMaxFileSize = 25 << 20
	)

	limit, err := parseIntEnv("SEARCH_DEFAULT_LIMIT", defaultLimit)
	if err != nil || limit <= 0 {
		log.Errorf(err, "invalid SEARCH_DEFAULT_LIMIT")
		return nil, e.ErrIncorrectEnvVariable
	}

	maxLimit, err := parseIntEnv("SEARCH_MAX_LIMIT", defaultMaxLimit)
	if err != nil || maxLimit < limit {
		log.Errorf(err, "invalid SEARCH_MAX_LIMIT")
		return nil, e.ErrIncorrectEnvVariable
	}

	maxFileSize, err := parseIntEnv("SEARCH_MAX_FILE_SIZE", defaultMaxFileSize)
	if err != nil || maxFileSize <= 0 {
		log.Errorf(err, "invalid SEARCH_MAX_FILE_SIZE")
		return nil, e.ErrIncorrectEnvVariable
	}

	return &SearchCfg{
		DefaultLimit: limit,
		MaxLimit:     maxLimit,
		AudioTmpDir:  getEnvOrDefault("AUDIO_TMP_DIR", os.TempDir()),
		MaxFileSize:  int64(maxFileSize),
	}, nil
}

func loadIngestionCfg() (*IngestionCfg, error) {
	const (
		defaultBatchSize  = 32
		defaultMaxRetries = 3
		defaultSourceDir  = "data"
	)

	batchSize, err := parseIntEnv("INGEST_BATCH_SIZE", defaultBatchSize)
	if err != nil || batchSize <= 0 {
		return nil, e.Wrap("INGEST_BATCH_SIZE", e.ErrIncorrectEnvVariable)
	}

	maxRetries, err := parseIntEnv("INGEST_MAX_RETRIES", defaultMaxRetries)
	if err != nil || maxRetries <= 0 {
		return nil, e.Wrap("INGEST_MAX_RETRIES", e.ErrIncorrectEnvVariable)
	}

	return &IngestionCfg{
		BatchSize:  batchSize,
		MaxRetries: maxRetries,
		SourceDir:  getEnvOrDefault("INGEST_SOURCE_DIR", defaultSourceDir),
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}
