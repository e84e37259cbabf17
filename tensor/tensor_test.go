package tensor

import "testing"

func TestNewShape(t *testing.T) {
	t1 := New(2, 3)
	if len(t1.Data) != 6 {
		t.Fatalf("expected 6 elements, got %d", len(t1.Data))
	}
	if len(t1.Shape) != 2 || t1.Shape[0] != 2 || t1.Shape[1] != 3 {
		t.Fatalf("unexpected shape: %v", t1.Shape)
	}
}

func TestAtSet(t *testing.T) {
	t1 := New(2, 3, 4)
	t1.Set(7.5, 1, 2, 3)
	if got := t1.At(1, 2, 3); got != 7.5 {
		t.Errorf("At(1,2,3) = %f, want 7.5", got)
	}
	if got := t1.At(0, 0, 0); got != 0 {
		t.Errorf("At(0,0,0) = %f, want 0", got)
	}
	// Linear layout: last index varies fastest
	if t1.Data[1*12+2*4+3] != 7.5 {
		t.Errorf("flat index mismatch")
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := NewWithData([]float64{1, 2, 3})
	b := a.Clone()
	b.Data[0] = 99
	if a.Data[0] != 1 {
		t.Errorf("Clone shares backing data")
	}
	if !SameShape(a, b) {
		t.Errorf("Clone changed shape")
	}
}

func TestCopyFrom(t *testing.T) {
	a := New(2, 2)
	b := &Tensor{Data: []float64{1, 2, 3, 4}, Shape: []int{2, 2}}
	if err := a.CopyFrom(b); err != nil {
		t.Fatal(err)
	}
	if !Equal(a, b) {
		t.Errorf("CopyFrom did not copy data")
	}

	c := New(3)
	if err := c.CopyFrom(b); err == nil {
		t.Errorf("expected shape mismatch error")
	}
}

func TestEqual(t *testing.T) {
	a := NewWithData([]float64{1, 2, 3})
	b := NewWithData([]float64{1, 2, 3})
	if !Equal(a, b) {
		t.Errorf("identical tensors reported unequal")
	}
	b.Data[2] = 4
	if Equal(a, b) {
		t.Errorf("different tensors reported equal")
	}
	c := &Tensor{Data: []float64{1, 2, 3}, Shape: []int{3, 1}}
	if Equal(a, c) {
		t.Errorf("different shapes reported equal")
	}
}

func TestZero(t *testing.T) {
	a := NewWithData([]float64{1, 2, 3})
	a.Zero()
	for i, v := range a.Data {
		if v != 0 {
			t.Errorf("Data[%d] = %f after Zero", i, v)
		}
	}
}
