package signals

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/vango-dev/stackkit/pkg/reactive"
)

func TestSignalReadAfterWrite(t *testing.T) {
	s := New(1)
	if got := s.Set(5); got != 5 {
		t.Errorf("Set returned %d, want 5", got)
	}
	if s.Get() != 5 {
		t.Errorf("Get() = %d, want 5", s.Get())
	}
	if got := s.Update(func(v int) int { return v * 2 }); got != 10 || s.Peek() != 10 {
		t.Errorf("Update = %d, Peek = %d, want 10", got, s.Peek())
	}
}

func TestExtendUnionOfLayers(t *testing.T) {
	arr := NewArray([]int{1, 2})
	hist := WrapHistory(arr.Base())

	if got := arr.Base().Layers(); !slices.Equal(got, []string{"array", "history"}) {
		t.Fatalf("Layers() = %v", got)
	}

	// The array layer keeps working after history replaced the base write.
	arr.Push(3)
	if got := hist.History(); len(got) != 2 || !slices.Equal(got[1], []int{1, 2, 3}) {
		t.Errorf("History() = %v", got)
	}

	found, ok := Lookup[*Array[int]](hist.Base())
	if !ok || found != arr {
		t.Errorf("Lookup did not return the array layer")
	}
	if _, ok := Lookup[*Table[int]](hist.Base()); ok {
		t.Errorf("Lookup found a layer that was never applied")
	}
}

func TestWiredSeesLaterLayers(t *testing.T) {
	s := New(0)
	var seen []int
	ExtendWithSetter(s, "spy",
		func(w Wired[int]) struct{} { return struct{}{} },
		func(prev Wired[int], _ struct{}) func(int) int {
			return func(v int) int {
				seen = append(seen, v)
				return prev.Set(v)
			}
		},
	)
	// An extension built before the spy still writes through it.
	arr := WrapArray(New([]int{}))
	ExtendWithSetter(arr.Base(), "spy",
		func(w Wired[[]int]) struct{} { return struct{}{} },
		func(prev Wired[[]int], _ struct{}) func([]int) []int {
			return func(v []int) []int {
				seen = append(seen, len(v))
				return prev.Set(v)
			}
		},
	)
	arr.Push(7, 8)
	s.Set(4)

	if !slices.Equal(seen, []int{2, 4}) {
		t.Errorf("seen = %v, want [2 4]", seen)
	}
}

func TestExtensionWritesAreUntracked(t *testing.T) {
	owner := reactive.NewOwner(nil)
	defer owner.Dispose()

	other := reactive.NewSignal(0)
	hist := NewHistory(0)
	runs := 0

	owner.Run(func() {
		reactive.CreateEffect(func() reactive.Cleanup {
			runs++
			other.Get()
			hist.Set(other.Peek() + 100)
			return nil
		})
	})
	if runs != 1 {
		t.Fatalf("effect runs = %d, want 1", runs)
	}

	// The history bookkeeping read inside the effect must not subscribe it.
	hist.Set(7)
	owner.RunPendingEffects()
	if runs != 1 {
		t.Errorf("effect reran after an unrelated write: runs = %d", runs)
	}

	other.Set(1)
	owner.RunPendingEffects()
	if runs != 2 {
		t.Errorf("effect runs = %d, want 2", runs)
	}
}

func TestArrayMutators(t *testing.T) {
	arr := NewArray([]int{3, 1, 2})
	before := arr.Peek()

	if n := arr.Push(4); n != 4 {
		t.Errorf("Push = %d, want 4", n)
	}
	if !slices.Equal(before, []int{3, 1, 2}) {
		t.Errorf("previous value was mutated: %v", before)
	}
	if v, ok := arr.Pop(); !ok || v != 4 {
		t.Errorf("Pop = %d, %v", v, ok)
	}
	if v, ok := arr.Shift(); !ok || v != 3 {
		t.Errorf("Shift = %d, %v", v, ok)
	}
	arr.Unshift(9, 8)
	if got := arr.Peek(); !slices.Equal(got, []int{9, 8, 1, 2}) {
		t.Errorf("after Unshift = %v", got)
	}
	removed := arr.Splice(1, 2, 5, 6, 7)
	if !slices.Equal(removed, []int{8, 1}) || !slices.Equal(arr.Peek(), []int{9, 5, 6, 7, 2}) {
		t.Errorf("Splice removed %v, left %v", removed, arr.Peek())
	}
	arr.Sort(func(a, b int) int { return a - b })
	if got := arr.Peek(); !slices.Equal(got, []int{2, 5, 6, 7, 9}) {
		t.Errorf("after Sort = %v", got)
	}
	arr.Reverse()
	if got := arr.Peek(); !slices.Equal(got, []int{9, 7, 6, 5, 2}) {
		t.Errorf("after Reverse = %v", got)
	}
	arr.CopyWithin(0, 3, 5)
	if got := arr.Peek(); !slices.Equal(got, []int{5, 2, 6, 5, 2}) {
		t.Errorf("after CopyWithin = %v", got)
	}
	arr.FillRange(0, -2, 5)
	if got := arr.Peek(); !slices.Equal(got, []int{5, 2, 6, 0, 0}) {
		t.Errorf("after FillRange = %v", got)
	}
	arr.Fill(1)
	if got := arr.Peek(); !slices.Equal(got, []int{1, 1, 1, 1, 1}) {
		t.Errorf("after Fill = %v", got)
	}

	empty := NewArray[int](nil)
	if _, ok := empty.Pop(); ok {
		t.Errorf("Pop on empty array reported a value")
	}
}

func TestArrayNegativeIndexing(t *testing.T) {
	arr := NewArray([]int{0, 1, 2, 3, 4})

	if _, err := arr.At(-1, 40); err != nil {
		t.Fatal(err)
	}
	if arr.Peek()[4] != 40 {
		t.Errorf("At(-1) wrote %v", arr.Peek())
	}
	if _, err := arr.At(-5, 10); err != nil {
		t.Fatal(err)
	}
	if arr.Peek()[0] != 10 {
		t.Errorf("At(-5) wrote %v", arr.Peek())
	}

	before := arr.Peek()
	_, err := arr.At(-6, 99)
	var oob *IndexOutOfBoundsError
	if !errors.As(err, &oob) || !errors.Is(err, ErrIndexOutOfBounds) {
		t.Fatalf("At(-6) error = %v", err)
	}
	if oob.Index != -6 || oob.Length != 5 {
		t.Errorf("error fields = %+v", oob)
	}
	if !slices.Equal(arr.Peek(), before) {
		t.Errorf("failed At wrote %v", arr.Peek())
	}
}

func TestArrayAtGrows(t *testing.T) {
	arr := NewArray([]string{"a"})
	if _, err := arr.At(3, "d"); err != nil {
		t.Fatal(err)
	}
	if got := arr.Peek(); !slices.Equal(got, []string{"a", "", "", "d"}) {
		t.Errorf("At past the end = %q", got)
	}
}

func TestArrayFind(t *testing.T) {
	arr := NewArray([]int{1, 2, 3, 2})
	got, ok := arr.Find(func(v int) bool { return v == 2 }, 20)
	if !ok || got != 20 {
		t.Errorf("Find = %d, %v", got, ok)
	}
	if !slices.Equal(arr.Peek(), []int{1, 20, 3, 2}) {
		t.Errorf("after Find = %v", arr.Peek())
	}

	before := arr.Peek()
	if _, ok := arr.Find(func(v int) bool { return v > 100 }, 0); ok {
		t.Errorf("Find matched nothing but reported ok")
	}
	if &arr.Peek()[0] != &before[0] {
		t.Errorf("Find without a match wrote a new value")
	}
}

func TestObject(t *testing.T) {
	obj := NewObject(map[string]int{"a": 1, "b": 2})
	before := obj.Peek()

	obj.Update(map[string]int{"b": 3, "c": 4})
	if !reflect.DeepEqual(obj.Peek(), map[string]int{"a": 1, "b": 3, "c": 4}) {
		t.Errorf("Update = %v", obj.Peek())
	}
	if before["b"] != 2 {
		t.Errorf("previous map was mutated")
	}

	obj.UpdateFunc(func(cur map[string]int) map[string]int {
		return map[string]int{"a": cur["a"] + 10}
	})
	if v, _ := obj.Value("a"); v != 11 {
		t.Errorf("UpdateFunc: a = %d", v)
	}

	obj.Delete("c")
	if _, ok := obj.Value("c"); ok {
		t.Errorf("Delete left the key")
	}
}

func TestSet(t *testing.T) {
	s := NewSet("a")
	s.Add("b")
	if !s.Has("a") || !s.Has("b") {
		t.Errorf("Has after Add = %v", s.Peek())
	}
	if !s.Delete("a") || s.Delete("a") {
		t.Errorf("Delete should report presence once")
	}
	s.Clear()
	if len(s.Peek()) != 0 {
		t.Errorf("Clear left %v", s.Peek())
	}
}

func TestResettable(t *testing.T) {
	r := NewResettable(map[string][]int{"xs": {1, 2}})
	WrapObject(r.Base()).Update(map[string][]int{"xs": {9}})

	got := r.Reset()
	if !reflect.DeepEqual(got, map[string][]int{"xs": {1, 2}}) {
		t.Errorf("Reset = %v", got)
	}

	// The snapshot does not share memory with values handed out.
	got["xs"][0] = 100
	if r.Initial()["xs"][0] != 1 {
		t.Errorf("snapshot was mutated through Reset's result")
	}
}

func TestDeepCloneStructs(t *testing.T) {
	type inner struct{ Tags []string }
	type outer struct {
		Name  string
		Inner *inner
		Meta  map[string]any
	}
	src := outer{Name: "x", Inner: &inner{Tags: []string{"a"}}, Meta: map[string]any{"k": []int{1}}}
	cp := deepClone(src)

	cp.Inner.Tags[0] = "b"
	cp.Meta["k"].([]int)[0] = 2
	if src.Inner.Tags[0] != "a" || src.Meta["k"].([]int)[0] != 1 {
		t.Errorf("deepClone shared memory: %+v", src)
	}
}
