package thumbnailer

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The thumbnail service exchanges single-field bytes messages. Their wire
// encoding is identical to google.protobuf.BytesValue, so the well-known
// wrapper type is used for both the request and the response.
const (
	ServiceName           = "thumbnailer.ThumbnailService"
	GenerateThumbnailName = "GenerateThumbnail"
	GenerateThumbnailPath = "/" + ServiceName + "/" + GenerateThumbnailName
)

// Server is implemented by a thumbnail generation backend.
type Server interface {
	GenerateThumbnail(ctx context.Context, content []byte) ([]byte, error)
}

// RegisterServer registers srv on s under the thumbnail service name.
func RegisterServer(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}

func generateThumbnailHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	call := func(ctx context.Context, req interface{}) (interface{}, error) {
		out, err := srv.(Server).GenerateThumbnail(ctx, req.(*wrapperspb.BytesValue).GetValue())
		if err != nil {
			return nil, err
		}
		return wrapperspb.Bytes(out), nil
	}

	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GenerateThumbnailPath,
	}
	return interceptor(ctx, in, info, call)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: GenerateThumbnailName,
			Handler:    generateThumbnailHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "thumbnailer.proto",
}
