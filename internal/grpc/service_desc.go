package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name
const ServiceName = "studybot.v1.StudyService"

// Method names of the study service
const (
	MethodStartTask          = "StartTask"
	MethodStopTask           = "StopTask"
	MethodGetStats           = "GetStats"
	MethodVoiceJoin          = "VoiceJoin"
	MethodVoiceLeave         = "VoiceLeave"
	MethodAddAssignment      = "AddAssignment"
	MethodListAssignments    = "ListAssignments"
	MethodCompleteAssignment = "CompleteAssignment"
	MethodClearAssignments   = "ClearAssignments"
	MethodGetLeaderboard     = "GetLeaderboard"
)

// StudyServiceServer is the server API for the study service. Requests and
// responses are google.protobuf.Struct messages; 64-bit IDs travel as
// decimal strings.
type StudyServiceServer interface {
	StartTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StopTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VoiceJoin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VoiceLeave(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddAssignment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAssignments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompleteAssignment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearAssignments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLeaderboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(StudyServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts a typed method to the shape grpc.MethodDesc expects
func unaryHandler(name string, call unaryMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StudyServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(StudyServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// StudyServiceDesc is the grpc.ServiceDesc for the study service
var StudyServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StudyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodStartTask, Handler: unaryHandler(MethodStartTask, StudyServiceServer.StartTask)},
		{MethodName: MethodStopTask, Handler: unaryHandler(MethodStopTask, StudyServiceServer.StopTask)},
		{MethodName: MethodGetStats, Handler: unaryHandler(MethodGetStats, StudyServiceServer.GetStats)},
		{MethodName: MethodVoiceJoin, Handler: unaryHandler(MethodVoiceJoin, StudyServiceServer.VoiceJoin)},
		{MethodName: MethodVoiceLeave, Handler: unaryHandler(MethodVoiceLeave, StudyServiceServer.VoiceLeave)},
		{MethodName: MethodAddAssignment, Handler: unaryHandler(MethodAddAssignment, StudyServiceServer.AddAssignment)},
		{MethodName: MethodListAssignments, Handler: unaryHandler(MethodListAssignments, StudyServiceServer.ListAssignments)},
		{MethodName: MethodCompleteAssignment, Handler: unaryHandler(MethodCompleteAssignment, StudyServiceServer.CompleteAssignment)},
		{MethodName: MethodClearAssignments, Handler: unaryHandler(MethodClearAssignments, StudyServiceServer.ClearAssignments)},
		{MethodName: MethodGetLeaderboard, Handler: unaryHandler(MethodGetLeaderboard, StudyServiceServer.GetLeaderboard)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "studybot/v1/study.proto",
}

// RegisterStudyServiceServer registers srv on s
func RegisterStudyServiceServer(s grpc.ServiceRegistrar, srv StudyServiceServer) {
	s.RegisterService(&StudyServiceDesc, srv)
}

// StudyServiceClient calls the study service over a client connection
type StudyServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewStudyServiceClient returns a client bound to cc
func NewStudyServiceClient(cc grpc.ClientConnInterface) *StudyServiceClient {
	return &StudyServiceClient{cc: cc}
}

// Call invokes method with a request built from fields
func (c *StudyServiceClient) Call(ctx context.Context, method string, fields map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
