//go:build cgo
// +build cgo

// ONNX-based CLIP-style encoder (requires CGO and the onnxruntime library).

package encoder

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

// CLIP image preprocessing constants (per-channel mean/std).
var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// ONNXEncoder runs exported CLIP vision and text towers locally through ONNX
// Runtime. Each tower is a separate session with pre-allocated tensors; Run
// calls are serialized per session.
type ONNXEncoder struct {
	dimensions int

	visionSession *ort.AdvancedSession
	pixelTensor   *ort.Tensor[float32]
	visionOutput  *ort.Tensor[float32]
	visionMu      sync.Mutex

	textSession   *ort.AdvancedSession
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	textOutput    *ort.Tensor[float32]
	textMu        sync.Mutex
}

// NewONNXEncoder creates an encoder from exported vision and text tower model
// files. InitializeEnvironment is called if not already done.
func NewONNXEncoder(visionModelPath, textModelPath string, dimensions int) (*ONNXEncoder, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	e := &ONNXEncoder{dimensions: dimensions}

	pixelData := make([]float32, 3*clipImageSize*clipImageSize)
	pixelTensor, err := ort.NewTensor(ort.NewShape(1, 3, clipImageSize, clipImageSize), pixelData)
	if err != nil {
		return nil, fmt.Errorf("failed to create pixel_values tensor: %w", err)
	}
	visionOutput, err := ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		pixelTensor.Destroy()
		return nil, fmt.Errorf("failed to create vision output tensor: %w", err)
	}
	visionSession, err := ort.NewAdvancedSession(visionModelPath,
		[]string{"pixel_values"}, []string{"image_embeds"},
		[]ort.ArbitraryTensor{pixelTensor}, []ort.ArbitraryTensor{visionOutput}, nil)
	if err != nil {
		pixelTensor.Destroy()
		visionOutput.Destroy()
		return nil, fmt.Errorf("failed to create vision session: %w", err)
	}
	e.visionSession = visionSession
	e.pixelTensor = pixelTensor
	e.visionOutput = visionOutput

	inputIDs, err := ort.NewTensor(ort.NewShape(1, clipContextLength), make([]int64, clipContextLength))
	if err != nil {
		e.destroyVision()
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	attentionMask, err := ort.NewTensor(ort.NewShape(1, clipContextLength), make([]int64, clipContextLength))
	if err != nil {
		inputIDs.Destroy()
		e.destroyVision()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	textOutput, err := ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		inputIDs.Destroy()
		attentionMask.Destroy()
		e.destroyVision()
		return nil, fmt.Errorf("failed to create text output tensor: %w", err)
	}
	textSession, err := ort.NewAdvancedSession(textModelPath,
		[]string{"input_ids", "attention_mask"}, []string{"text_embeds"},
		[]ort.ArbitraryTensor{inputIDs, attentionMask}, []ort.ArbitraryTensor{textOutput}, nil)
	if err != nil {
		inputIDs.Destroy()
		attentionMask.Destroy()
		textOutput.Destroy()
		e.destroyVision()
		return nil, fmt.Errorf("failed to create text session: %w", err)
	}
	e.textSession = textSession
	e.inputIDs = inputIDs
	e.attentionMask = attentionMask
	e.textOutput = textOutput

	return e, nil
}

// EncodeImage preprocesses img to the CLIP input format and runs the vision tower.
func (e *ONNXEncoder) EncodeImage(ctx context.Context, img image.Image) ([]float32, error) {
	pixels := preprocessImage(img)

	e.visionMu.Lock()
	defer e.visionMu.Unlock()
	copy(e.pixelTensor.GetData(), pixels)
	if err := e.visionSession.Run(); err != nil {
		return nil, fmt.Errorf("vision inference failed: %w", err)
	}
	out := make([]float32, e.dimensions)
	copy(out, e.visionOutput.GetData())
	return out, nil
}

// EncodeText tokenizes text and runs the text tower.
func (e *ONNXEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	ids, mask := tokenizeCLIP(text)

	e.textMu.Lock()
	defer e.textMu.Unlock()
	copy(e.inputIDs.GetData(), ids)
	copy(e.attentionMask.GetData(), mask)
	if err := e.textSession.Run(); err != nil {
		return nil, fmt.Errorf("text inference failed: %w", err)
	}
	out := make([]float32, e.dimensions)
	copy(out, e.textOutput.GetData())
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEncoder) Dimensions() int {
	return e.dimensions
}

// Close destroys the sessions and tensors.
func (e *ONNXEncoder) Close() error {
	if e.textSession != nil {
		e.textSession.Destroy()
		e.inputIDs.Destroy()
		e.attentionMask.Destroy()
		e.textOutput.Destroy()
		e.textSession = nil
	}
	e.destroyVision()
	return nil
}

func (e *ONNXEncoder) destroyVision() {
	if e.visionSession != nil {
		e.visionSession.Destroy()
		e.visionSession = nil
	}
	if e.pixelTensor != nil {
		e.pixelTensor.Destroy()
		e.pixelTensor = nil
	}
	if e.visionOutput != nil {
		e.visionOutput.Destroy()
		e.visionOutput = nil
	}
}

// preprocessImage center-crops and resizes to 224x224, then converts to a
// normalized CHW float tensor using the CLIP mean/std.
func preprocessImage(img image.Image) []float32 {
	resized := imaging.Fill(img, clipImageSize, clipImageSize, imaging.Center, imaging.Lanczos)
	out := make([]float32, 3*clipImageSize*clipImageSize)
	plane := clipImageSize * clipImageSize
	for y := 0; y < clipImageSize; y++ {
		for x := 0; x < clipImageSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			i := y*clipImageSize + x
			out[i] = (float32(r>>8)/255 - clipMean[0]) / clipStd[0]
			out[plane+i] = (float32(g>>8)/255 - clipMean[1]) / clipStd[1]
			out[2*plane+i] = (float32(b>>8)/255 - clipMean[2]) / clipStd[2]
		}
	}
	return out
}
