//go:build !onnx

package backend

import "context"

func init() { Register(KindONNX, loadONNXStub) }

func loadONNXStub(context.Context, Spec) (Backend, error) {
	return nil, ErrDependencyUnavailable("onnx support not built (missing 'onnx' build tag)")
}
