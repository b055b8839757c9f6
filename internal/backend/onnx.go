//go:build onnx

package backend

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

func init() { Register(KindONNX, loadONNX) }

var (
	ortInitMu  sync.Mutex
	ortInitErr error
	ortInited  bool
)

// initORT initializes the process-wide ONNX Runtime environment once.
// The shared library location may be overridden with ONNXRUNTIME_SHARED_LIB.
func initORT() error {
	ortInitMu.Lock()
	defer ortInitMu.Unlock()
	if ortInited {
		return ortInitErr
	}
	if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		ortInitErr = ErrDependencyUnavailable("onnxruntime init failed: " + err.Error())
	}
	ortInited = true
	return ortInitErr
}

type onnxBackend struct {
	session    *ort.DynamicAdvancedSession
	tok        *wordPiece
	inputNames []string
	dims       int
	maxTokens  int
	normalize  bool
}

func loadONNX(_ context.Context, spec Spec) (Backend, error) {
	if err := requireArtifactDir(spec.Path); err != nil {
		return nil, err
	}
	modelPath, err := requireFile(spec.Path, "model.onnx")
	if err != nil {
		return nil, err
	}
	vocabPath, err := requireFile(spec.Path, "vocab.txt")
	if err != nil {
		return nil, err
	}
	tok, err := loadWordPiece(vocabPath, true)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}
	mc, err := readModelConfig(spec.Path)
	if err != nil {
		return nil, err
	}
	if err := initORT(); err != nil {
		return nil, err
	}

	inputsInfo, outputsInfo, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect model io: %w", err)
	}
	if len(outputsInfo) == 0 {
		return nil, fmt.Errorf("model reports no outputs")
	}
	var inputNames []string
	for _, ii := range inputsInfo {
		inputNames = append(inputNames, ii.Name)
	}
	outputName := outputsInfo[0].Name

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer opts.Destroy()
	if spec.Device == DeviceCUDA {
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, ErrDependencyUnavailable("cuda provider unavailable: " + err.Error())
		}
		defer cuda.Destroy()
		if err := opts.AppendExecutionProviderCUDA(cuda); err != nil {
			return nil, ErrDependencyUnavailable("cuda provider unavailable: " + err.Error())
		}
	}

	sess, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{outputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	dims := spec.Dimensions
	if dims <= 0 {
		dims = mc.HiddenSize
	}
	spec.Logger.Debug().Str("model", modelPath).Strs("inputs", inputNames).Str("output", outputName).Str("device", string(spec.Device)).Msg("onnx session ready")
	return &onnxBackend{
		session:    sess,
		tok:        tok,
		inputNames: inputNames,
		dims:       dims,
		maxTokens:  spec.MaxTokens,
		normalize:  spec.Normalize,
	}, nil
}

func (b *onnxBackend) Dimensions() int { return b.dims }

func (b *onnxBackend) Close() error {
	if b.session == nil {
		return nil
	}
	err := b.session.Destroy()
	b.session = nil
	return err
}

func (b *onnxBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if b.session == nil {
		return nil, fmt.Errorf("onnx session closed")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	eb := b.tok.encodeBatch(texts, b.maxTokens)
	batch, seq := len(texts), eb.SeqLen
	shape := ort.NewShape(int64(batch), int64(seq))

	ids, err := ort.NewTensor(shape, flatten(eb.IDs))
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer ids.Destroy()
	mask, err := ort.NewTensor(shape, flatten(eb.Mask))
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer mask.Destroy()
	types, err := ort.NewTensor(shape, flatten(eb.TypeIDs))
	if err != nil {
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	defer types.Destroy()

	inputs := make([]ort.Value, 0, len(b.inputNames))
	for _, name := range b.inputNames {
		n := strings.ToLower(name)
		switch {
		case strings.Contains(n, "mask"):
			inputs = append(inputs, mask)
		case strings.Contains(n, "type") || strings.Contains(n, "segment"):
			inputs = append(inputs, types)
		default:
			inputs = append(inputs, ids)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outputs := []ort.Value{nil}
	if err := b.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	defer func() {
		if outputs[0] != nil {
			_ = outputs[0].Destroy()
		}
	}()
	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	data, outShape := out.GetData(), out.GetShape()

	var res [][]float32
	switch len(outShape) {
	case 2:
		dims := int(outShape[1])
		if len(data) != batch*dims {
			return nil, fmt.Errorf("output length %d does not match shape %v", len(data), outShape)
		}
		res = make([][]float32, batch)
		for i := range res {
			res[i] = append([]float32(nil), data[i*dims:(i+1)*dims]...)
		}
	case 3:
		s, dims := int(outShape[1]), int(outShape[2])
		if len(data) != batch*s*dims {
			return nil, fmt.Errorf("output length %d does not match shape %v", len(data), outShape)
		}
		res = meanPool(data, eb.Mask, s, dims)
	default:
		return nil, fmt.Errorf("unsupported output shape %v", outShape)
	}
	if b.dims > 0 && len(res) > 0 && len(res[0]) != b.dims {
		return nil, fmt.Errorf("output dims %d, want %d", len(res[0]), b.dims)
	}
	if b.normalize {
		for _, v := range res {
			l2Normalize(v)
		}
	}
	return res, nil
}

func flatten(rows [][]int64) []int64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]int64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
