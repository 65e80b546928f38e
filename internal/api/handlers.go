package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"roombook/internal/domain"
	"roombook/internal/models"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "roombook.v1.RoomBooking"

// Services bundles the operations exposed over HTTP and gRPC.
type Services struct {
	Rooms     domain.RoomService
	Calendar  domain.CalendarService
	Bookings  domain.BookingService
	CheckIns  domain.CheckInService
	Releaser  domain.AutoReleaser
	Analytics domain.AnalyticsService
}

// RoomBookingServer is the gRPC contract. Messages are google.protobuf.Struct
// objects carrying the same JSON shapes as the HTTP API.
type RoomBookingServer interface {
	GetSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckIn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckOut(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunAutoRelease(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structCall func(RoomBookingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func structMethod(name string, call structCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RoomBookingServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: grpcMethodPrefix + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RoomBookingServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var roomBookingServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RoomBookingServer)(nil),
	Methods: []grpc.MethodDesc{
		structMethod("GetSlots", RoomBookingServer.GetSlots),
		structMethod("CreateBooking", RoomBookingServer.CreateBooking),
		structMethod("CancelBooking", RoomBookingServer.CancelBooking),
		structMethod("CheckIn", RoomBookingServer.CheckIn),
		structMethod("CheckOut", RoomBookingServer.CheckOut),
		structMethod("RunAutoRelease", RoomBookingServer.RunAutoRelease),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "roombook/v1/roombook.proto",
}

func RegisterRoomBookingServer(s grpc.ServiceRegistrar, srv RoomBookingServer) {
	s.RegisterService(&roomBookingServiceDesc, srv)
}

// RoomBookingClient calls the service over an established connection.
type RoomBookingClient struct {
	cc grpc.ClientConnInterface
}

func NewRoomBookingClient(cc grpc.ClientConnInterface) *RoomBookingClient {
	return &RoomBookingClient{cc: cc}
}

// Call invokes method with in and returns the decoded response.
func (c *RoomBookingClient) Call(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, grpcMethodPrefix+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// RoomBookingService adapts the domain services to RoomBookingServer.
type RoomBookingService struct {
	svc        Services
	userHeader string
	logger     *zerolog.Logger
}

func NewRoomBookingService(svc Services, userHeader string, logger *zerolog.Logger) *RoomBookingService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RoomBookingService{
		svc:        svc,
		userHeader: headerName(userHeader, userIDHeaderDefault),
		logger:     logger,
	}
}

func (s *RoomBookingService) GetSlots(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		RoomID string `json:"room_id"`
		Date   string `json:"date"`
	}
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.RoomID) == "" {
		return nil, status.Error(codes.InvalidArgument, "room_id is required")
	}

	day, err := s.svc.Calendar.GetSlots(ctx, req.RoomID, req.Date)
	return s.reply(day, err)
}

func (s *RoomBookingService) CreateBooking(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.BookingRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	req.UserID = userID

	booking, err := s.svc.Bookings.CreateBooking(ctx, req)
	return s.reply(booking, err)
}

func (s *RoomBookingService) CancelBooking(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, bookingID, err := s.bookingTarget(ctx, in)
	if err != nil {
		return nil, err
	}
	booking, err := s.svc.Bookings.CancelBooking(ctx, userID, bookingID)
	return s.reply(booking, err)
}

func (s *RoomBookingService) CheckIn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	booking, err := s.svc.CheckIns.CheckIn(ctx, userID, req.Code)
	return s.reply(booking, err)
}

func (s *RoomBookingService) CheckOut(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, bookingID, err := s.bookingTarget(ctx, in)
	if err != nil {
		return nil, err
	}
	booking, err := s.svc.CheckIns.CheckOut(ctx, userID, bookingID)
	return s.reply(booking, err)
}

func (s *RoomBookingService) RunAutoRelease(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	result, err := s.svc.Releaser.Sweep(ctx)
	return s.reply(result, err)
}

func (s *RoomBookingService) bookingTarget(ctx context.Context, in *structpb.Struct) (string, string, error) {
	var req struct {
		BookingID string `json:"booking_id"`
	}
	if err := decodeStruct(in, &req); err != nil {
		return "", "", err
	}
	if strings.TrimSpace(req.BookingID) == "" {
		return "", "", status.Error(codes.InvalidArgument, "booking_id is required")
	}
	userID, err := s.requireUser(ctx)
	if err != nil {
		return "", "", err
	}
	return userID, req.BookingID, nil
}

func (s *RoomBookingService) requireUser(ctx context.Context) (string, error) {
	userID := userFromMetadata(ctx, s.userHeader)
	if userID == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s metadata is required", s.userHeader)
	}
	return userID, nil
}

func (s *RoomBookingService) reply(v any, err error) (*structpb.Struct, error) {
	if err != nil {
		if serverFault(err) {
			s.logger.Error().Err(err).Msg("grpc handler failed")
		}
		return nil, toStatus(err)
	}
	out, err := encodeStruct(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode grpc response")
		return nil, status.Error(codes.Internal, internalErrorMessage)
	}
	return out, nil
}

// decodeStruct maps a Struct onto a JSON-tagged Go value.
func decodeStruct(in *structpb.Struct, v any) error {
	raw, err := in.MarshalJSON()
	if err != nil {
		return status.Error(codes.InvalidArgument, "invalid request message")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request message: %v", err)
	}
	return nil
}

func encodeStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return out, nil
}
