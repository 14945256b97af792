package detect

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"
	"runtime"
	"sync"

	tflite "github.com/tphakala/go-tflite"
	xdraw "golang.org/x/image/draw"

	"github.com/clementchangcheng/projectwildlife/internal/models"
)

// TFLiteDetector runs a TensorFlow Lite object-detection model (SSD-style
// postprocessed output: boxes, classes, scores, count) over camera images.
type TFLiteDetector struct {
	interpreter   *tflite.Interpreter
	labels        []string
	inputWidth    int
	inputHeight   int
	minConfidence float64

	// The interpreter is not safe for concurrent Invoke calls.
	mu sync.Mutex
}

// NewTFLiteDetector loads the model and its class-index label table from
// disk and prepares an interpreter.
func NewTFLiteDetector(modelPath, labelsPath string, minConfidence float64) (*TFLiteDetector, error) {
	modelData, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file %s: %w", modelPath, err)
	}
	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, fmt.Errorf("cannot load TensorFlow Lite model from %s", modelPath)
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(runtime.NumCPU())

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		return nil, fmt.Errorf("cannot create interpreter")
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		return nil, fmt.Errorf("tensor allocation failed")
	}

	input := interpreter.GetInputTensor(0)
	if input == nil || input.NumDims() != 4 {
		return nil, fmt.Errorf("unexpected input tensor shape")
	}

	labels, err := loadLabels(labelsPath)
	if err != nil {
		return nil, err
	}

	return &TFLiteDetector{
		interpreter:   interpreter,
		labels:        labels,
		inputHeight:   input.Dim(1),
		inputWidth:    input.Dim(2),
		minConfidence: minConfidence,
	}, nil
}

// Labels returns the class-index to species-name table.
func (d *TFLiteDetector) Labels() []string {
	return d.labels
}

// Detect runs one inference pass. The call runs to completion or natural
// failure; cancellation is left to the transport layer, so ctx is unused
// beyond satisfying the Detector contract.
func (d *TFLiteDetector) Detect(_ context.Context, img image.Image) ([]models.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	input := d.interpreter.GetInputTensor(0)
	if input == nil {
		return nil, fmt.Errorf("cannot get input tensor")
	}
	fillInputTensor(input.Float32s(), img, d.inputWidth, d.inputHeight)

	if status := d.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tensor invoke failed: %v", status)
	}

	boxes := d.interpreter.GetOutputTensor(0).Float32s()
	classes := d.interpreter.GetOutputTensor(1).Float32s()
	scores := d.interpreter.GetOutputTensor(2).Float32s()
	count := int(d.interpreter.GetOutputTensor(3).Float32s()[0])
	if count > len(scores) {
		count = len(scores)
	}

	detections := make([]models.Detection, 0, count)
	for i := 0; i < count; i++ {
		score := float64(scores[i])
		if score < d.minConfidence {
			continue
		}
		// Model boxes are ymin,xmin,ymax,xmax; Detection carries l,t,r,b.
		detections = append(detections, models.Detection{
			ClassIndex: int(classes[i]),
			Confidence: score,
			Box: [4]float64{
				float64(boxes[i*4+1]),
				float64(boxes[i*4+0]),
				float64(boxes[i*4+3]),
				float64(boxes[i*4+2]),
			},
		})
	}
	return detections, nil
}

// fillInputTensor resizes img to the model's input resolution and writes it
// as normalized RGB float32 in row-major order.
func fillInputTensor(dst []float32, img image.Image, width, height int) {
	resized := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	idx := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			offset := resized.PixOffset(x, y)
			dst[idx] = float32(resized.Pix[offset]) / 255
			dst[idx+1] = float32(resized.Pix[offset+1]) / 255
			dst[idx+2] = float32(resized.Pix[offset+2]) / 255
			idx += 3
		}
	}
}

func loadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file %s: %w", path, err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels file %s: %w", path, err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}
