package clients

import (
	config "github.com/DRSN-tech/finsmart-search/internal/cfg"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/jimlawless/whereami"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// NewMLConn создаёт gRPC-соединение с ML-сервисом. Соединение ленивое, первый вызов его установит.
func NewMLConn(cfg *config.MLServiceCfg) (*grpc.ClientConn, error) {
	const maxMsgSize = 64 << 20 // аудио и изображения в теле запроса

	conn, err := grpc.NewClient(
		cfg.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()), // сервис живёт во внутренней сети, без TLS
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(maxMsgSize),
			grpc.MaxCallRecvMsgSize(maxMsgSize),
		),
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return conn, nil
}
