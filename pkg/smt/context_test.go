package smt

import "testing"

// TestCDList tests context-dependent list semantics.
func TestCDList(t *testing.T) {
	t.Run("appends survive within a level", func(t *testing.T) {
		ctx := NewContext()
		l := NewCDList[int](ctx)
		l.Append(1)
		l.Append(2)
		if l.Size() != 2 || l.Get(0) != 1 || l.Get(1) != 2 {
			t.Errorf("unexpected contents %v", l.Slice())
		}
	})

	t.Run("pop drops appends from the popped level", func(t *testing.T) {
		ctx := NewContext()
		l := NewCDList[int](ctx)
		l.Append(1)
		ctx.Push()
		l.Append(2)
		l.Append(3)
		if l.Size() != 3 {
			t.Fatalf("expected 3 elements, got %d", l.Size())
		}
		ctx.Pop()
		if l.Size() != 1 || l.Get(0) != 1 {
			t.Errorf("expected [1] after pop, got %v", l.Slice())
		}
	})

	t.Run("pop of untouched level is a no-op on the list", func(t *testing.T) {
		ctx := NewContext()
		l := NewCDList[int](ctx)
		l.Append(1)
		ctx.Push()
		ctx.Pop()
		if l.Size() != 1 {
			t.Errorf("expected 1 element, got %d", l.Size())
		}
	})

	t.Run("nested levels restore in order", func(t *testing.T) {
		ctx := NewContext()
		l := NewCDList[string](ctx)
		l.Append("a")
		ctx.Push()
		l.Append("b")
		ctx.Push()
		l.Append("c")
		ctx.Pop()
		if l.Size() != 2 {
			t.Fatalf("expected 2 after inner pop, got %d", l.Size())
		}
		ctx.Pop()
		if l.Size() != 1 || l.Get(0) != "a" {
			t.Errorf("expected [a] after outer pop, got %v", l.Slice())
		}
	})
}

// TestCDVal tests context-dependent value semantics.
func TestCDVal(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		ctx := NewContext()
		v := NewCDVal(ctx, 10)
		if v.Get() != 10 {
			t.Errorf("expected initial 10, got %d", v.Get())
		}
		v.Set(20)
		if v.Get() != 20 {
			t.Errorf("expected 20, got %d", v.Get())
		}
	})

	t.Run("pop restores the previous value", func(t *testing.T) {
		ctx := NewContext()
		v := NewCDVal(ctx, 1)
		ctx.Push()
		v.Set(2)
		v.Set(3)
		ctx.Pop()
		if v.Get() != 1 {
			t.Errorf("expected 1 after pop, got %d", v.Get())
		}
	})

	t.Run("assignment at level zero persists", func(t *testing.T) {
		ctx := NewContext()
		v := NewCDVal(ctx, 1)
		v.Set(5)
		ctx.Push()
		ctx.Pop()
		if v.Get() != 5 {
			t.Errorf("expected 5, got %d", v.Get())
		}
	})
}

// TestContextPop tests pop misuse detection.
func TestContextPop(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Pop at level 0 should panic")
		}
	}()
	NewContext().Pop()
}
