package api

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"roombook/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func (e *testEnv) grpcClient(t *testing.T, cfg config.APIConfig) *RoomBookingClient {
	t.Helper()
	logger := zerolog.New(io.Discard)

	lis := bufconn.Listen(1 << 20)
	srv, err := newGRPCServerOn(lis, cfg, e.svc, &logger)
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewRoomBookingClient(conn)
}

func asUser(userID string, kv ...string) context.Context {
	return metadata.NewOutgoingContext(context.Background(), metadata.Pairs(append([]string{"x-user-id", userID}, kv...)...))
}

func TestGRPCBookingLifecycle(t *testing.T) {
	env := newTestEnv(t)
	client := env.grpcClient(t, openAPIConfig())

	created, err := client.Call(asUser("alice"), "CreateBooking", bookingBody(labID, "10:00", "11:00"))
	require.NoError(t, err)
	assert.Equal(t, "confirmed", created["status"])
	assert.Equal(t, "10:00", created["start_time"])
	assert.Regexp(t, codePattern, created["qr_code"])

	_, err = client.Call(asUser("bob"), "CreateBooking", bookingBody(labID, "10:30", "11:30"))
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	day, err := client.Call(asUser("alice"), "GetSlots", map[string]any{"room_id": labID, "date": testDate})
	require.NoError(t, err)
	slots, ok := day["slots"].([]any)
	require.True(t, ok)
	require.Len(t, slots, 13)
	assert.Equal(t, false, slots[2].(map[string]any)["available"])

	code := created["qr_code"].(string)
	_, err = client.Call(asUser("mallory"), "CheckIn", map[string]any{"code": code})
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, "invalid code or booking not found", status.Convert(err).Message())

	env.now = time.Date(2024, 5, 1, 10, 1, 0, 0, time.UTC)
	checkedIn, err := client.Call(asUser("alice"), "CheckIn", map[string]any{"code": code})
	require.NoError(t, err)
	assert.Equal(t, "checked_in", checkedIn["status"])

	_, err = client.Call(asUser("alice"), "CheckIn", map[string]any{"code": code})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	done, err := client.Call(asUser("alice"), "CheckOut", map[string]any{"booking_id": created["id"]})
	require.NoError(t, err)
	assert.Equal(t, "completed", done["status"])

	_, err = client.Call(asUser("alice"), "CancelBooking", map[string]any{"booking_id": created["id"]})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestGRPCRunAutoRelease(t *testing.T) {
	env := newTestEnv(t)
	client := env.grpcClient(t, openAPIConfig())

	_, err := client.Call(asUser("alice"), "CreateBooking", bookingBody(hallID, "09:00", "10:00"))
	require.NoError(t, err)

	env.now = time.Date(2024, 5, 1, 9, 20, 0, 0, time.UTC)
	result, err := client.Call(context.Background(), "RunAutoRelease", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, float64(1), result["bookings_released"])

	again, err := client.Call(context.Background(), "RunAutoRelease", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, float64(0), again["bookings_released"])
}

func TestGRPCInvalidArguments(t *testing.T) {
	env := newTestEnv(t)
	client := env.grpcClient(t, openAPIConfig())

	_, err := client.Call(context.Background(), "CreateBooking", bookingBody(labID, "10:00", "11:00"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "missing identity")

	_, err = client.Call(asUser("alice"), "CreateBooking", bookingBody(labID, "22:00", "23:00"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Call(asUser("alice"), "CancelBooking", map[string]any{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Call(context.Background(), "CheckIn", map[string]any{"code": "CRUO-1"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Call(asUser("alice"), "GetSlots", map[string]any{"room_id": labID, "date": "tomorrow"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Call(asUser("alice"), "CreateBooking", map[string]any{"attendees_count": "many"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCAuth(t *testing.T) {
	env := newTestEnv(t)
	cfg := openAPIConfig()
	cfg.Auth = config.APIAuthConfig{
		Enabled:      true,
		HeaderUserID: "x-user-id",
		APIKeys: []config.APIClientKey{
			{Key: "kiosk", Extra: "lobby", Permissions: []string{permReadRooms}},
		},
	}
	client := env.grpcClient(t, cfg)

	_, err := client.Call(asUser("alice"), "GetSlots", map[string]any{"room_id": labID, "date": testDate})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := asUser("alice", "x-api-key", "kiosk", "x-api-extra", "lobby")
	_, err = client.Call(ctx, "GetSlots", map[string]any{"room_id": labID, "date": testDate})
	assert.NoError(t, err)

	_, err = client.Call(ctx, "RunAutoRelease", map[string]any{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestGRPCRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)
	client := env.grpcClient(t, openAPIConfig())

	ctx := asUser("alice", "x-request-id", "trace-7")
	var header metadata.MD
	_, err := client.Call(ctx, "GetSlots", map[string]any{"room_id": labID, "date": testDate}, grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"trace-7"}, header.Get("x-request-id"))
}

func TestGRPCStoreFailureIsGeneric(t *testing.T) {
	env := newTestEnv(t)
	client := env.grpcClient(t, openAPIConfig())
	require.NoError(t, env.db.Close())

	_, err := client.Call(asUser("alice"), "GetSlots", map[string]any{"room_id": labID, "date": testDate})
	st, ok := status.FromError(err)
	require.True(t, ok, "%v", err)
	assert.Equal(t, codes.Unavailable, st.Code())
	assert.Equal(t, "service temporarily unavailable, retry", st.Message())
	assert.False(t, strings.Contains(st.Message(), "sql:"))
}

func TestGRPCCreateBookingRequiresMetadataIdentity(t *testing.T) {
	env := newTestEnv(t)
	client := env.grpcClient(t, openAPIConfig())

	body := bookingBody(labID, "10:00", "11:00")
	body["user_id"] = "victim"
	_, err := client.Call(context.Background(), "CreateBooking", body)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	created, err := client.Call(asUser("alice"), "CreateBooking", body)
	require.NoError(t, err)
	assert.Equal(t, "alice", created["user_id"])
}

func TestGRPCServerLifecycle(t *testing.T) {
	env := newTestEnv(t)
	logger := zerolog.New(io.Discard)

	lis := bufconn.Listen(1 << 20)
	srv, err := newGRPCServerOn(lis, openAPIConfig(), env.svc, &logger)
	require.NoError(t, err)
	assert.Equal(t, "bufconn", srv.Addr())

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}

	assert.NoError(t, (&GRPCServer{}).Shutdown(context.Background()))
}

func TestBuildTLSConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.APITLSConfig
		want string
	}{
		{name: "missing key pair", cfg: config.APITLSConfig{Enabled: true}, want: "cert_file and key_file"},
		{name: "client ca required", cfg: config.APITLSConfig{Enabled: true, CertFile: "c.pem", KeyFile: "k.pem", RequireClientCert: true}, want: "client_ca_file is required"},
		{name: "unreadable key pair", cfg: config.APITLSConfig{Enabled: true, CertFile: "missing.pem", KeyFile: "missing.key"}, want: "load key pair"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildTLSConfig(tt.cfg)
			assert.ErrorContains(t, err, tt.want)
		})
	}

	_, err := newGRPCServerOn(bufconn.Listen(1024), config.APIConfig{GRPC: config.APIGRPCConfig{TLS: config.APITLSConfig{Enabled: true}}}, Services{}, nil)
	assert.ErrorContains(t, err, "grpc tls")
}
