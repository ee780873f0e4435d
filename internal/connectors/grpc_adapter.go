package connectors

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xela07ax/medipredict-console/internal/domain"
)

// DefaultExplainMethod: унарный метод сервиса объяснений.
// Запрос и ответ: google.protobuf.Struct, поэтому сгенерированный код не нужен.
const DefaultExplainMethod = "/medipredict.explain.v1.ExplainService/Explain"

// Invoker: часть *grpc.ClientConn, которой нам достаточно.
type Invoker interface {
	Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error
}

type GRPCAdapter struct {
	conn   Invoker
	method string
}

// NewGRPCAdapter создает экземпляр адаптера
func NewGRPCAdapter(conn Invoker, method string) *GRPCAdapter {
	if method == "" {
		method = DefaultExplainMethod
	}
	return &GRPCAdapter{conn: conn, method: method}
}

// Explain реализует insight.Explainer поверх gRPC.
func (a *GRPCAdapter) Explain(ctx context.Context, deviceID string) (*domain.Explanation, error) {
	// 1. Запрос
	req, err := structpb.NewStruct(map[string]any{"device_id": deviceID})
	if err != nil {
		return nil, fmt.Errorf("failed to create proto struct: %w", err)
	}

	// 2. Вызов
	resp := &structpb.Struct{}
	if err := a.conn.Invoke(ctx, a.method, req, resp); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("explain %s via grpc: %w", deviceID, err)
	}

	// 3. Struct -> JSON -> общая нормализация, как у HTTP
	data, err := json.Marshal(resp.AsMap())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return DecodeExplanation(data, deviceID)
}
