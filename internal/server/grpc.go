package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"TokenLedger/internal/observability"
)

// The service is exposed without protoc-generated stubs: requests and
// responses are plain structs carried by a JSON codec, registered through
// a hand-written grpc.ServiceDesc. Clients select the codec with
// grpc.CallContentSubtype(JSONCodec{}.Name()).

// JSONCodec marshals wire types with encoding/json.
type JSONCodec struct{}

func (JSONCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (JSONCodec) Name() string                               { return "json" }

func init() {
	encoding.RegisterCodec(JSONCodec{})
}

// LedgerServer is the server-side contract backing the ServiceDesc.
type LedgerServer interface {
	GetBalance(ctx context.Context, req *GetBalanceRequest) (*GetBalanceResponse, error)
	GetAllowance(ctx context.Context, req *GetAllowanceRequest) (*GetAllowanceResponse, error)
	GetStatus(ctx context.Context, req *GetStatusRequest) (*GetStatusResponse, error)
	Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error)
	Approve(ctx context.Context, req *ApproveRequest) (*ApproveResponse, error)
	IncreaseAllowance(ctx context.Context, req *AdjustAllowanceRequest) (*AdjustAllowanceResponse, error)
	DecreaseAllowance(ctx context.Context, req *AdjustAllowanceRequest) (*AdjustAllowanceResponse, error)
	TransferFrom(ctx context.Context, req *TransferFromRequest) (*TransferFromResponse, error)
	Mint(ctx context.Context, req *MintRequest) (*MintResponse, error)
	Burn(ctx context.Context, req *BurnRequest) (*BurnResponse, error)
	SetPaused(ctx context.Context, req *SetPausedRequest) (*SetPausedResponse, error)
	SetBlacklisted(ctx context.Context, req *SetBlacklistedRequest) (*SetBlacklistedResponse, error)
}

const serviceName = "tokenledger.v1.Ledger"

func unaryHandler[Req any, Resp any](
	method string,
	call func(LedgerServer, context.Context, *Req) (*Resp, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := fmt.Sprintf("/%s/%s", serviceName, method)
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(LedgerServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LedgerServiceDesc is the gRPC service descriptor for LedgerServer.
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBalance", Handler: unaryHandler("GetBalance", LedgerServer.GetBalance)},
		{MethodName: "GetAllowance", Handler: unaryHandler("GetAllowance", LedgerServer.GetAllowance)},
		{MethodName: "GetStatus", Handler: unaryHandler("GetStatus", LedgerServer.GetStatus)},
		{MethodName: "Transfer", Handler: unaryHandler("Transfer", LedgerServer.Transfer)},
		{MethodName: "Approve", Handler: unaryHandler("Approve", LedgerServer.Approve)},
		{MethodName: "IncreaseAllowance", Handler: unaryHandler("IncreaseAllowance", LedgerServer.IncreaseAllowance)},
		{MethodName: "DecreaseAllowance", Handler: unaryHandler("DecreaseAllowance", LedgerServer.DecreaseAllowance)},
		{MethodName: "TransferFrom", Handler: unaryHandler("TransferFrom", LedgerServer.TransferFrom)},
		{MethodName: "Mint", Handler: unaryHandler("Mint", LedgerServer.Mint)},
		{MethodName: "Burn", Handler: unaryHandler("Burn", LedgerServer.Burn)},
		{MethodName: "SetPaused", Handler: unaryHandler("SetPaused", LedgerServer.SetPaused)},
		{MethodName: "SetBlacklisted", Handler: unaryHandler("SetBlacklisted", LedgerServer.SetBlacklisted)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tokenledger/v1/ledger.proto",
}

// GRPCServer hosts the ledger service.
type GRPCServer struct {
	grpcServer *grpc.Server
	addr       string
	log        zerolog.Logger
}

// NewGRPCServer registers the ledger service with the JSON codec forced
// server-side. metrics may be nil.
func NewGRPCServer(addr string, svc LedgerServer, metrics *observability.Metrics, log zerolog.Logger) *GRPCServer {
	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(JSONCodec{}),
	}
	if metrics != nil {
		opts = append(opts, grpc.ChainUnaryInterceptor(metricsInterceptor(metrics)))
	}

	grpcServer := grpc.NewServer(opts...)
	grpcServer.RegisterService(&LedgerServiceDesc, svc)

	return &GRPCServer{
		grpcServer: grpcServer,
		addr:       addr,
		log:        log,
	}
}

// Start serves until ctx is cancelled (blocking).
func (s *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("gRPC server shutting down")
		s.grpcServer.GracefulStop()
	}()

	s.log.Info().Str("addr", s.addr).Msg("gRPC server listening")
	return s.grpcServer.Serve(lis)
}

func metricsInterceptor(metrics *observability.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		metrics.RequestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}
