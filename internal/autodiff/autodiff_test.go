package autodiff_test

import (
	"errors"
	"math"
	"testing"

	"github.com/born-ml/blocks/internal/autodiff"
	"github.com/born-ml/blocks/internal/backend/cpu"
	"github.com/born-ml/blocks/internal/tensor"
)

const tolerance = 1e-5

func approxEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) <= tolerance
}

func checkSlice(t *testing.T, name string, got, want []float32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: len = %d, want %d", name, len(got), len(want))
	}
	for i := range want {
		if !approxEqual(got[i], want[i]) {
			t.Errorf("%s[%d] = %f, want %f", name, i, got[i], want[i])
		}
	}
}

// TestAutodiffBackend_Name tests the backend name.
func TestAutodiffBackend_Name(t *testing.T) {
	backend := autodiff.New(cpu.New())
	if backend.Name() != "Autodiff(CPU)" {
		t.Errorf("Name() = %q, want %q", backend.Name(), "Autodiff(CPU)")
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Device() = %v, want cpu", backend.Device())
	}
}

// TestTape_Clear tests that Clear drops operations but keeps recording state.
func TestTape_Clear(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	backend.Add(a.Raw(), a.Raw())
	if tape.NumOps() != 1 {
		t.Fatalf("Expected 1 operation recorded, got %d", tape.NumOps())
	}

	tape.Clear()
	if tape.NumOps() != 0 {
		t.Errorf("Expected 0 operations after Clear, got %d", tape.NumOps())
	}
	if !tape.IsRecording() {
		t.Error("Clear should preserve recording state")
	}
}

// TestAutodiffBackend_Add_RecordsOperation tests that Add records operations.
func TestAutodiffBackend_Add_RecordsOperation(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, backend)

	result := backend.Add(a.Raw(), b.Raw())

	checkSlice(t, "Add", result.AsFloat32(), []float32{4, 6})
	if tape.NumOps() != 1 {
		t.Errorf("Expected 1 operation recorded, got %d", tape.NumOps())
	}
}

// TestAutodiffBackend_NoRecording tests that operations are not recorded when tape is off.
func TestAutodiffBackend_NoRecording(t *testing.T) {
	backend := autodiff.New(cpu.New())

	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, backend)
	backend.Add(a.Raw(), b.Raw())

	if backend.Tape().NumOps() != 0 {
		t.Errorf("Expected 0 operations recorded (tape off), got %d", backend.Tape().NumOps())
	}
}

// TestAutodiffBackend_Record tests the scoped recording helper.
func TestAutodiffBackend_Record(t *testing.T) {
	backend := autodiff.New(cpu.New())
	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)

	err := backend.Record(func() error {
		if !backend.IsRecording() {
			t.Error("Expected recording inside Record")
		}
		backend.Mul(a.Raw(), a.Raw())
		if backend.Tape().NumOps() != 1 {
			t.Errorf("Expected 1 operation recorded, got %d", backend.Tape().NumOps())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Record returned %v", err)
	}
	if backend.IsRecording() {
		t.Error("Record should restore the previous (stopped) state")
	}
	if backend.Tape().NumOps() != 0 {
		t.Errorf("Record should clear the tape on exit, got %d ops", backend.Tape().NumOps())
	}

	sentinel := errors.New("boom")
	if err := backend.Record(func() error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("Record error = %v, want %v", err, sentinel)
	}
}

// TestAutodiffBackend_RecordNested tests that an inner scope keeps the outer
// scope's operations.
func TestAutodiffBackend_RecordNested(t *testing.T) {
	backend := autodiff.New(cpu.New())
	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)

	// Leftovers from manual recording are dropped by the outermost scope.
	backend.Tape().StartRecording()
	backend.Add(a.Raw(), a.Raw())
	backend.Tape().StopRecording()

	err := backend.Record(func() error {
		backend.Mul(a.Raw(), a.Raw())
		if err := backend.Record(func() error {
			backend.Add(a.Raw(), a.Raw())
			return nil
		}); err != nil {
			return err
		}
		if !backend.IsRecording() {
			t.Error("Inner Record should leave the outer scope recording")
		}
		if got := backend.Tape().NumOps(); got != 2 {
			t.Errorf("Expected outer and inner operations (2), got %d", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Record returned %v", err)
	}
	if backend.Tape().NumOps() != 0 {
		t.Errorf("Expected empty tape after outer Record, got %d ops", backend.Tape().NumOps())
	}
}

// TestBackward_SimpleMultiplication tests backward pass for multiplication.
func TestBackward_SimpleMultiplication(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	// y = a * b
	a, _ := tensor.FromSlice([]float32{2, 3}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{4, 5}, tensor.Shape{2}, backend)
	result := a.Mul(b)

	gradients := autodiff.Backward(result, backend)

	gradA, gradB := gradients[a.Raw()], gradients[b.Raw()]
	if gradA == nil || gradB == nil {
		t.Fatal("Expected gradients for both inputs")
	}
	checkSlice(t, "grad_a", gradA.AsFloat32(), []float32{4, 5})
	checkSlice(t, "grad_b", gradB.AsFloat32(), []float32{2, 3})
}

// TestBackward_SeedsGivenOutput tests that operations recorded after the
// output do not affect its gradients.
func TestBackward_SeedsGivenOutput(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	y := x.Sum()
	_ = x.MulScalar(10).Sum() // unrelated, recorded later

	gradients := autodiff.Backward(y, backend)
	checkSlice(t, "grad_x", gradients[x.Raw()].AsFloat32(), []float32{1, 1, 1})
}

// TestBackward_SharedInput tests gradient accumulation when a tensor is used twice.
func TestBackward_SharedInput(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	// y = Σ(x*x + x) -> dy/dx = 2x + 1
	x, _ := tensor.FromSlice([]float32{1, -2, 3}, tensor.Shape{3}, backend)
	y := x.Mul(x).Add(x).Sum()

	gradients := autodiff.Backward(y, backend)
	checkSlice(t, "grad_x", gradients[x.Raw()].AsFloat32(), []float32{3, -3, 7})
}

// TestBackward_DenseLayer tests gradients through relu(x @ wᵀ + b).
func TestBackward_DenseLayer(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, _ := tensor.FromSlice([]float32{1, 2, -1, 0}, tensor.Shape{2, 2}, backend)
	w, _ := tensor.FromSlice([]float32{1, 0, 0, 1, 1, 1}, tensor.Shape{3, 2}, backend)
	b, _ := tensor.FromSlice([]float32{0, 0, -10}, tensor.Shape{3}, backend)

	// out = [[1, 2, 3-10], [-1, 0, -1-10]] before relu
	out := x.MatMul(w.T()).Add(b).ReLU().Sum()
	if !approxEqual(out.Item(), 3) {
		t.Fatalf("forward = %f, want 3", out.Item())
	}

	gradients := autodiff.Backward(out, backend)

	// Active units: (0,0) and (0,1). dL/dW[j] = Σ_b mask[b,j] * x[b].
	checkSlice(t, "grad_w", gradients[w.Raw()].AsFloat32(), []float32{1, 2, 1, 2, 0, 0})
	checkSlice(t, "grad_b", gradients[b.Raw()].AsFloat32(), []float32{1, 1, 0})
	checkSlice(t, "grad_x", gradients[x.Raw()].AsFloat32(), []float32{1, 1, 0, 0})
}

// TestBackward_Mean tests the mean reduction gradient.
func TestBackward_Mean(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	y := x.Sub(x.Mean()).Mul(x).Sum()

	// y = Σ x² - n·mean² ; dy/dx = 2x - 2·mean = 2(x - 2.5)
	gradients := autodiff.Backward(y, backend)
	checkSlice(t, "grad_x", gradients[x.Raw()].AsFloat32(), []float32{-3, -1, 1, 3})
}

// TestBackward_Reshape tests that gradients flow back through reshape.
func TestBackward_Reshape(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	scale, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{1, 2}, backend)
	y := x.Reshape(3, 2).Mul(scale).Sum()

	gradients := autodiff.Backward(y, backend)
	grad := gradients[x.Raw()]
	if !grad.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("grad shape = %v, want (2, 3)", grad.Shape())
	}
	checkSlice(t, "grad_x", grad.AsFloat32(), []float32{1, 2, 1, 2, 1, 2})
	checkSlice(t, "grad_scale", gradients[scale.Raw()].AsFloat32(), []float32{9, 12})
}

// TestBackward_SoftmaxCrossEntropy tests the fused loss gradient.
func TestBackward_SoftmaxCrossEntropy(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	logits, _ := tensor.FromSlice([]float32{0, 0, 1, 2, 3, 4}, tensor.Shape{2, 3}, backend)
	labels, _ := tensor.FromSlice([]int32{2, 0}, tensor.Shape{2}, backend)

	lossRaw := backend.SoftmaxCrossEntropy(logits.Raw(), labels.Raw())
	loss := tensor.New[float32](lossRaw, backend).Sum()

	gradients := autodiff.Backward(loss, backend)
	grad := gradients[logits.Raw()].AsFloat32()

	e := math.E
	z0 := 2 + e
	z1 := e*e + e*e*e + e*e*e*e
	want := []float32{
		float32(1 / z0), float32(1 / z0), float32(e/z0 - 1),
		float32(e*e/z1 - 1), float32(e * e * e / z1), float32(e * e * e * e / z1),
	}
	checkSlice(t, "grad_logits", grad, want)

	if _, ok := gradients[labels.Raw()]; ok {
		t.Error("labels must not receive a gradient")
	}
}
