// Package feed serves a session's message feed over gRPC and provides the
// client side used by chat.Model.
package feed

import (
	"context"
	"strings"
	"time"

	"github.com/matheus3301/daychat/internal/bus"
	"github.com/matheus3301/daychat/internal/chat"
	"github.com/matheus3301/daychat/internal/metrics"
	"github.com/matheus3301/daychat/internal/store"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "daychat.feed.v1.FeedService"

type LoadMessagesRequest struct {
	PageNumber int `json:"pageNumber"`
}

// LoadMessagesResponse has the same JSON shape as chat.Page.
type LoadMessagesResponse = chat.Page

type SendMessageRequest struct {
	Text string `json:"text"`
}

type SendMessageResponse struct {
	MessageID string `json:"messageId"`
}

// PostMessageRequest stores a message from someone other than the session
// owner. An empty DateTime means now.
type PostMessageRequest struct {
	Sender   string `json:"sender"`
	Text     string `json:"text"`
	DateTime string `json:"dateTime,omitempty"`
}

type PostMessageResponse struct {
	MessageID string `json:"messageId"`
}

type ImportMessagesRequest struct {
	Messages []chat.RawMessage `json:"messages"`
}

type ImportMessagesResponse struct {
	Imported int `json:"imported"`
}

// FeedServer is the server API for FeedService.
type FeedServer interface {
	LoadMessages(context.Context, *LoadMessagesRequest) (*LoadMessagesResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	PostMessage(context.Context, *PostMessageRequest) (*PostMessageResponse, error)
	ImportMessages(context.Context, *ImportMessagesRequest) (*ImportMessagesResponse, error)
}

// Register adds srv to s under ServiceName.
func Register(s grpc.ServiceRegistrar, srv FeedServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Service implements FeedServer on top of the session store.
type Service struct {
	db       *store.DB
	bus      *bus.Bus
	metrics  *metrics.Feed
	logger   *zap.Logger
	pageSize int
	now      func() time.Time
}

// ServiceOptions configures a Service. Zero values fall back to defaults.
type ServiceOptions struct {
	Bus      *bus.Bus
	Metrics  *metrics.Feed
	Logger   *zap.Logger
	PageSize int
	Now      func() time.Time
}

// NewService creates a feed service backed by db.
func NewService(db *store.DB, opts ServiceOptions) *Service {
	s := &Service{
		db:       db,
		bus:      opts.Bus,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		pageSize: opts.PageSize,
		now:      opts.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.pageSize <= 0 {
		s.pageSize = store.DefaultPageSize
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) LoadMessages(_ context.Context, req *LoadMessagesRequest) (*LoadMessagesResponse, error) {
	if req.PageNumber < 1 {
		s.metrics.RequestError("LoadMessages")
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "page number %d: must be at least 1", req.PageNumber)
	}

	msgs, more, err := s.db.ListPage(req.PageNumber, s.pageSize)
	if err != nil {
		s.metrics.RequestError("LoadMessages")
		s.logger.Error("list page failed", zap.Int("page", req.PageNumber), zap.Error(err))
		return nil, grpcstatus.Errorf(codes.Internal, "load messages: %v", err)
	}

	resp := &LoadMessagesResponse{MoreExists: more, Messages: make([]chat.RawMessage, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, toRaw(m))
	}

	s.metrics.PageServed()
	s.bus.Publish(bus.Event{Kind: bus.KindPageServed, Payload: bus.PageLoaded{
		Page:       req.PageNumber,
		Messages:   len(msgs),
		MoreExists: more,
	}})
	s.logger.Debug("page served", zap.Int("page", req.PageNumber), zap.Int("messages", len(msgs)))
	return resp, nil
}

func (s *Service) SendMessage(_ context.Context, req *SendMessageRequest) (*SendMessageResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		s.metrics.RequestError("SendMessage")
		return nil, grpcstatus.Error(codes.InvalidArgument, "text is required")
	}

	m, err := s.db.AppendOwn(req.Text, s.now())
	if err != nil {
		s.metrics.RequestError("SendMessage")
		s.logger.Error("append own message failed", zap.Error(err))
		return nil, grpcstatus.Errorf(codes.Internal, "send message: %v", err)
	}
	s.stored(m.ID, metrics.OriginSelf, 1)
	return &SendMessageResponse{MessageID: m.ID}, nil
}

func (s *Service) PostMessage(_ context.Context, req *PostMessageRequest) (*PostMessageResponse, error) {
	if strings.TrimSpace(req.Sender) == "" || strings.TrimSpace(req.Text) == "" {
		s.metrics.RequestError("PostMessage")
		return nil, grpcstatus.Error(codes.InvalidArgument, "sender and text are required")
	}
	at := s.now()
	if req.DateTime != "" {
		t, err := time.Parse(time.RFC3339, req.DateTime)
		if err != nil {
			s.metrics.RequestError("PostMessage")
			return nil, grpcstatus.Errorf(codes.InvalidArgument, "date time %q: %v", req.DateTime, err)
		}
		at = t
	}

	m, err := s.db.Post(req.Sender, req.Text, at)
	if err != nil {
		s.metrics.RequestError("PostMessage")
		s.logger.Error("post message failed", zap.Error(err))
		return nil, grpcstatus.Errorf(codes.Internal, "post message: %v", err)
	}
	s.stored(m.ID, metrics.OriginOther, 1)
	return &PostMessageResponse{MessageID: m.ID}, nil
}

func (s *Service) ImportMessages(_ context.Context, req *ImportMessagesRequest) (*ImportMessagesResponse, error) {
	batch := make([]store.Message, 0, len(req.Messages))
	for i, r := range req.Messages {
		if _, err := time.Parse(time.RFC3339, r.DateTime); err != nil {
			s.metrics.RequestError("ImportMessages")
			return nil, grpcstatus.Errorf(codes.InvalidArgument, "message %d: date time %q: %v", i, r.DateTime, err)
		}
		m := store.Message{ID: r.ID, Text: r.Text, DateTime: r.DateTime}
		if r.Sender != nil {
			m.Sender = *r.Sender
		}
		batch = append(batch, m)
	}

	n, err := s.db.Import(batch)
	if err != nil {
		s.metrics.RequestError("ImportMessages")
		s.logger.Error("import failed", zap.Int("batch", len(batch)), zap.Error(err))
		return nil, grpcstatus.Errorf(codes.Internal, "import messages: %v", err)
	}
	s.stored("", metrics.OriginImport, n)
	s.logger.Info("messages imported", zap.Int("batch", len(batch)), zap.Int("inserted", n))
	return &ImportMessagesResponse{Imported: n}, nil
}

func (s *Service) stored(id, origin string, n int) {
	s.metrics.MessagesStored(origin, n)
	s.bus.Publish(bus.Event{Kind: bus.KindMessageStored, Payload: bus.MessageStored{ID: id, Origin: origin, Count: n}})
}

func toRaw(m store.Message) chat.RawMessage {
	r := chat.RawMessage{ID: m.ID, Text: m.Text, DateTime: m.DateTime}
	if !m.FromSelf() {
		sender := m.Sender
		r.Sender = &sender
	}
	return r
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FeedServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "LoadMessages", Handler: loadMessagesHandler},
		{MethodName: "SendMessage", Handler: sendMessageHandler},
		{MethodName: "PostMessage", Handler: postMessageHandler},
		{MethodName: "ImportMessages", Handler: importMessagesHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func loadMessagesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LoadMessagesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeedServer).LoadMessages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("LoadMessages")}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(FeedServer).LoadMessages(ctx, req.(*LoadMessagesRequest))
	})
}

func sendMessageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SendMessageRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeedServer).SendMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("SendMessage")}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(FeedServer).SendMessage(ctx, req.(*SendMessageRequest))
	})
}

func postMessageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PostMessageRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeedServer).PostMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("PostMessage")}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(FeedServer).PostMessage(ctx, req.(*PostMessageRequest))
	})
}

func importMessagesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ImportMessagesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeedServer).ImportMessages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("ImportMessages")}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(FeedServer).ImportMessages(ctx, req.(*ImportMessagesRequest))
	})
}

// Interface guard.
var _ FeedServer = (*Service)(nil)
